// Copyright 2025 The bdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package export copies recovered records into a LevelDB database, the
// usual landing spot when migrating a salvaged wallet.
package export

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/bpowers/bdb"
)

const defaultBatchSize = 1024

// Stats summarizes one Export.
type Stats struct {
	Records  int
	Bytes    int64
	Batches  int
	Replaced int
}

// Option configures a Sink.
type Option func(*Sink)

// WithBatchSize sets how many records are written per LevelDB batch.
func WithBatchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets a logger for per-batch progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Sink is an open LevelDB database receiving records.
type Sink struct {
	db        *leveldb.DB
	path      string
	batchSize int
	logger    *slog.Logger
}

// Open opens or creates the database at path.  An empty path uses
// in-memory storage.
func Open(path string, opts ...Option) (*Sink, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb open %q: %w", path, err)
	}

	s := &Sink{
		db:        db,
		path:      path,
		batchSize: defaultBatchSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Export writes every record under its raw key.  Duplicate keys keep
// the last record, matching bdb.Map.  Batches already written stay
// written if records ends in an error.
func (s *Sink) Export(records iter.Seq2[bdb.Record, error]) (Stats, error) {
	var stats Stats
	seen := make(map[string]struct{})
	batch := new(leveldb.Batch)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := s.db.Write(batch, nil); err != nil {
			return fmt.Errorf("leveldb write: %w", err)
		}
		stats.Batches++
		s.logger.Debug("wrote batch", "path", s.path, "records", batch.Len(), "total", stats.Records)
		batch.Reset()
		return nil
	}

	for rec, err := range records {
		if err != nil {
			return stats, errors.Join(err, flush())
		}
		if _, ok := seen[string(rec.Key)]; ok {
			stats.Replaced++
		} else {
			seen[string(rec.Key)] = struct{}{}
		}
		batch.Put(rec.Key, rec.Value)
		stats.Records++
		stats.Bytes += int64(len(rec.Key) + len(rec.Value))
		if batch.Len() >= s.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	return stats, flush()
}

// Get reads back one key.  Missing keys return (nil, false, nil).
func (s *Sink) Get(key []byte) ([]byte, bool, error) {
	v, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leveldb get %x: %w", key, err)
	}
	return v, true, nil
}

// All iterates the stored pairs in key order.  The slices are copies.
func (s *Sink) All() iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		it := s.db.NewIterator(nil, nil)
		defer it.Release()
		for it.Next() {
			k := append([]byte(nil), it.Key()...)
			v := append([]byte(nil), it.Value()...)
			if !yield(k, v) {
				return
			}
		}
	}
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}
