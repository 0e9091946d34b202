// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package records persists proofreading results so they can be listed and
// reviewed later.
//
// Three backends implement Store:
//
//   - BadgerStore: embedded key-value store, the default.
//   - SQLiteStore: single-file SQL database.
//   - NopStore: persistence disabled.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
	"github.com/AleutianAI/AleutianProofread/services/proofread/storage/badger"
	"github.com/google/uuid"
)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ErrNotFound is returned by Get and Delete for an unknown ID.
var ErrNotFound = errors.New("record not found")

// Record is one proofreading result.
type Record struct {
	ID        string                `json:"id"`
	Original  string                `json:"original"`
	Corrected string                `json:"corrected"`
	Analysis  []analyzer.Annotation `json:"analysis"`
	Provider  string                `json:"provider"`
	CreatedAt time.Time             `json:"created_at"`
}

// NewRecord stamps a result with a fresh ID and the current UTC time.
func NewRecord(original, corrected string, analysis []analyzer.Annotation, provider string) *Record {
	if analysis == nil {
		analysis = []analyzer.Annotation{}
	}
	return &Record{
		ID:        uuid.NewString(),
		Original:  original,
		Corrected: corrected,
		Analysis:  analysis,
		Provider:  provider,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists records. Implementations are safe for concurrent use.
type Store interface {
	// Save inserts or replaces rec. ID and CreatedAt must be set.
	Save(ctx context.Context, rec *Record) error

	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest first. limit is clamped to
	// [1, MaxListLimit]; zero or less means DefaultListLimit.
	List(ctx context.Context, limit int) ([]Record, error)

	// Delete removes the record with id or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Backend names the implementation, e.g. "badger".
	Backend() string

	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(cfg config.RecordsConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case config.RecordsNone, "":
		logger.Info("Record persistence disabled")
		return NopStore{}, nil
	case config.RecordsBadger:
		bcfg := badger.DefaultConfig(cfg.Path)
		bcfg.GCInterval = cfg.GCInterval
		bcfg.Logger = logger.With("component", "badger")
		db, err := badger.OpenDB(bcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open record store: %w", err)
		}
		logger.Info("Opened badger record store", "path", cfg.Path)
		return NewBadgerStore(db), nil
	case config.RecordsSQLite:
		store, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open record store: %w", err)
		}
		logger.Info("Opened sqlite record store", "path", cfg.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown records backend %q", cfg.Backend)
	}
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func validateRecord(rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if rec.ID == "" {
		return errors.New("record id is empty")
	}
	if rec.CreatedAt.IsZero() {
		return errors.New("record created_at is zero")
	}
	return nil
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Save(context.Context, *Record) error { return nil }

func (NopStore) Get(context.Context, string) (*Record, error) { return nil, ErrNotFound }

func (NopStore) List(context.Context, int) ([]Record, error) { return []Record{}, nil }

func (NopStore) Delete(context.Context, string) error { return ErrNotFound }

func (NopStore) Backend() string { return config.RecordsNone }

func (NopStore) Close() error { return nil }
