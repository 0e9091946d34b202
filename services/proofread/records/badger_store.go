// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianProofread/services/proofread/config"
	"github.com/AleutianAI/AleutianProofread/services/proofread/storage/badger"
)

// Key layout:
//
//	record/<id>                     -> JSON Record
//	bytime/<inverted nanos>/<id>    -> <id>
//
// Inverting the timestamp makes a forward prefix scan of bytime/ yield the
// newest record first.
const (
	recordPrefix = "record/"
	byTimePrefix = "bytime/"
)

// BadgerStore keeps records in BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore takes ownership of db; Close closes it.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func byTimeKey(rec *Record) []byte {
	inverted := uint64(math.MaxInt64 - rec.CreatedAt.UnixNano())
	return []byte(fmt.Sprintf("%s%016x/%s", byTimePrefix, inverted, rec.ID))
}

func (s *BadgerStore) Save(ctx context.Context, rec *Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		// Replacing a record must not leave its old index entry behind.
		if old, err := getRecord(txn, rec.ID); err == nil {
			if err := txn.Delete(byTimeKey(old)); err != nil {
				return err
			}
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := txn.Set(recordKey(rec.ID), data); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := txn.Set(byTimeKey(rec), []byte(rec.ID)); err != nil {
			return fmt.Errorf("write record index: %w", err)
		}
		return nil
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec *Record
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BadgerStore) List(ctx context.Context, limit int) ([]Record, error) {
	limit = normalizeLimit(limit)
	out := make([]Record, 0, min(limit, DefaultListLimit))

	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(byTimePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(out) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read record index: %w", err)
			}
			rec, err := getRecord(txn, string(id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(byTimeKey(rec)); err != nil {
			return err
		}
		return txn.Delete(recordKey(id))
	})
}

func (s *BadgerStore) Backend() string { return config.RecordsBadger }

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func getRecord(txn *badgerdb.Txn, id string) (*Record, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", id, err)
	}
	var rec Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &rec, nil
}
