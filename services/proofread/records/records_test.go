// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package records

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianProofread/services/proofread/analyzer"
	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
	"github.com/AleutianAI/AleutianProofread/services/proofread/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

var storeFactories = []storeFactory{
	{"badger", func(t *testing.T) Store {
		db, err := badger.OpenDB(badger.InMemoryConfig())
		require.NoError(t, err)
		return NewBadgerStore(db)
	}},
	{"sqlite", func(t *testing.T) Store {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
		require.NoError(t, err)
		return s
	}},
}

// forEachStore runs fn once per persistent backend with a fresh store.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, f := range storeFactories {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			defer s.Close()
			fn(t, s)
		})
	}
}

func sampleRecord(i int, created time.Time) *Record {
	rec := NewRecord(
		fmt.Sprintf("teh text %d", i),
		fmt.Sprintf("the text %d", i),
		analyzer.Analyze("teh text", "the text"),
		"mock",
	)
	rec.CreatedAt = created
	return rec
}

// =============================================================================
// Store contract
// =============================================================================

func TestStore_SaveGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rec := NewRecord("i has a apple", "I have an apple.", analyzer.Analyze("i has a apple", "I have an apple."), "openai")
		require.NoError(t, s.Save(ctx, rec))

		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Original, got.Original)
		assert.Equal(t, rec.Corrected, got.Corrected)
		assert.Equal(t, rec.Provider, got.Provider)
		assert.Equal(t, rec.Analysis, got.Analysis)
		assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	})
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_ListNewestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		var ids []string
		for i := 0; i < 5; i++ {
			rec := sampleRecord(i, base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, s.Save(ctx, rec))
			ids = append(ids, rec.ID)
		}

		all, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i, rec := range all {
			assert.Equal(t, ids[4-i], rec.ID)
		}

		limited, err := s.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, ids[4], limited[0].ID)
		assert.Equal(t, ids[3], limited[1].ID)
	})
}

func TestStore_ListEmpty(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		got, err := s.List(context.Background(), 10)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestStore_SaveReplaces(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rec := sampleRecord(1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, s.Save(ctx, rec))

		rec.Corrected = "replaced"
		rec.CreatedAt = rec.CreatedAt.Add(time.Hour)
		require.NoError(t, s.Save(ctx, rec))

		all, err := s.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "replaced", all[0].Corrected)
	})
}

func TestStore_Delete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rec := sampleRecord(1, time.Now().UTC())
		require.NoError(t, s.Save(ctx, rec))

		require.NoError(t, s.Delete(ctx, rec.ID))
		_, err := s.Get(ctx, rec.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, rec.ID), ErrNotFound)

		all, err := s.List(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestStore_SaveRejectsIncompleteRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		assert.Error(t, s.Save(ctx, nil))
		assert.Error(t, s.Save(ctx, &Record{CreatedAt: time.Now()}))
		assert.Error(t, s.Save(ctx, &Record{ID: "x"}))
	})
}

// =============================================================================
// Helpers and factory
// =============================================================================

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, normalizeLimit(0))
	assert.Equal(t, DefaultListLimit, normalizeLimit(-3))
	assert.Equal(t, 7, normalizeLimit(7))
	assert.Equal(t, MaxListLimit, normalizeLimit(MaxListLimit+1))
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord("a", "b", nil, "mock")
	assert.Len(t, rec.ID, 36)
	assert.NotNil(t, rec.Analysis)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
}

func TestNopStore(t *testing.T) {
	ctx := context.Background()
	var s Store = NopStore{}
	rec := NewRecord("a", "b", nil, "mock")

	assert.NoError(t, s.Save(ctx, rec))
	_, err := s.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	all, err := s.List(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.ErrorIs(t, s.Delete(ctx, rec.ID), ErrNotFound)
	assert.Equal(t, config.RecordsNone, s.Backend())
	assert.NoError(t, s.Close())
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		cfg     config.RecordsConfig
		backend string
	}{
		{config.RecordsConfig{Backend: config.RecordsNone}, config.RecordsNone},
		{config.RecordsConfig{Backend: config.RecordsBadger, Path: filepath.Join(dir, "badger")}, config.RecordsBadger},
		{config.RecordsConfig{Backend: config.RecordsSQLite, Path: filepath.Join(dir, "db", "records.db")}, config.RecordsSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := Open(tt.cfg, nil)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, tt.backend, s.Backend())
		})
	}

	_, err := Open(config.RecordsConfig{Backend: "mongo"}, nil)
	assert.Error(t, err)
}
