// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package events

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

const (
	journalPrefix      = "event:"
	journalSequenceKey = "meta:seq"
)

// ErrJournalClosed is returned after Close.
var ErrJournalClosed = errors.New("journal closed")

// JournalConfig configures the BadgerDB event journal.
type JournalConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps the journal in memory only.
	InMemory bool
	// TTL expires entries after the given duration. Zero keeps them forever.
	TTL time.Duration
	// SyncWrites fsyncs every append.
	SyncWrites bool
	// Buffer is the subscription buffer used by Serve.
	Buffer int
}

// Journal appends events to BadgerDB in arrival order.
type Journal[T any] struct {
	db  *badger.DB
	seq *badger.Sequence
	cfg JournalConfig
	bus *Broadcaster[T]

	mu     sync.RWMutex
	closed bool

	logger zerolog.Logger
}

// OpenJournal opens (or creates) a journal. bus may be nil if the journal is
// only written through Append.
func OpenJournal[T any](cfg JournalConfig, bus *Broadcaster[T]) (*Journal[T], error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	seq, err := db.GetSequence([]byte(journalSequenceKey), 256)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open journal sequence: %w", err)
	}

	j := &Journal[T]{
		db:     db,
		seq:    seq,
		cfg:    cfg,
		bus:    bus,
		logger: logging.WithComponent("journal"),
	}
	j.logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("ttl", cfg.TTL).
		Msg("Event journal opened")
	return j, nil
}

func journalKey(n uint64) []byte {
	key := make([]byte, len(journalPrefix)+8)
	copy(key, journalPrefix)
	binary.BigEndian.PutUint64(key[len(journalPrefix):], n)
	return key
}

// Append stores one event.
func (j *Journal[T]) Append(ev T) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	n, err := j.seq.Next()
	if err != nil {
		metrics.RecordJournalWrite(err)
		return fmt.Errorf("next journal sequence: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(journalKey(n), data)
		if j.cfg.TTL > 0 {
			e = e.WithTTL(j.cfg.TTL)
		}
		return txn.SetEntry(e)
	})
	metrics.RecordJournalWrite(err)
	if err != nil {
		return fmt.Errorf("write to BadgerDB: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest events that keep accepts, oldest
// first. A nil keep accepts every event.
func (j *Journal[T]) Recent(limit int, keep func(T) bool) ([]T, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	var out []T
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(journalPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append([]byte(journalPrefix), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(out) < limit; it.Next() {
			var ev T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			})
			if err != nil {
				j.logger.Warn().Err(err).Msg("Skipping undecodable journal entry")
				continue
			}
			if keep != nil && !keep(ev) {
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}

// Serve implements suture.Service. It appends every event published on the
// bus until ctx is done.
func (j *Journal[T]) Serve(ctx context.Context) error {
	if j.bus == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	sub := j.bus.Subscribe(j.cfg.Buffer)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := j.Append(ev); err != nil {
				if errors.Is(err, ErrJournalClosed) {
					return nil
				}
				j.logger.Warn().Err(err).Msg("Failed to journal event")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (j *Journal[T]) String() string {
	return "event-journal"
}

// Close releases the sequence and closes BadgerDB.
func (j *Journal[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true

	var errs []error
	if err := j.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release sequence: %w", err))
	}
	if err := j.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close BadgerDB: %w", err))
	}
	return errors.Join(errs...)
}
