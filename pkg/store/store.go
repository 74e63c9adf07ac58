package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"stones/pkg/clock"
	"stones/pkg/config"
	"stones/pkg/dberrors"
	"stones/pkg/memtable"
	"stones/pkg/persistence"
)

type iClock interface {
	Val() uint64
	Next() uint64
	Observe(t uint64)
}

// Tree is the LSM tree handle: one active memtable plus the SSTables of a
// single directory. It is safe for concurrent use. Only one Tree may own a
// directory at a time; this is not enforced.
type Tree struct {
	dataDir       string
	threshold     int
	indexInterval int
	log           *slog.Logger

	mt  *memtable.Memtable
	gen iClock

	// serialises flushes so generations are written in order
	flushMu sync.Mutex

	// guards pending and tables
	mu sync.RWMutex
	// drained memtables not yet on disk, oldest first
	pending []memtable.SortedSet
	// newest generation first
	tables []*generation

	// held shared by every operation and exclusively by Close, so no write
	// can land in the memtable after Close has drained it
	closeMu sync.RWMutex
	closed  bool
}

type generation struct {
	id    uint64
	table *persistence.Table
}

type Option func(*Tree)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		t.log = l
	}
}

// Open creates the data directory if needed and loads every SSTable in it.
func Open(cfg config.DB, opts ...Option) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir := filepath.Clean(cfg.Persistence.RootPath)
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	t := &Tree{
		dataDir:       dataDir,
		threshold:     cfg.Memtable.FlushThreshold,
		indexInterval: cfg.Persistence.IndexInterval,
		log:           slog.Default(),
		mt:            memtable.New(),
		gen:           clock.NewAtomic(0),
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.loadTables(); err != nil {
		return nil, err
	}

	t.log.Info("lsm tree opened",
		"dir", t.dataDir,
		"tables", len(t.tables),
		"generation", t.gen.Val(),
		"flush_threshold", t.threshold,
	)

	return t, nil
}

// Put stores value under key. When the memtable reaches the flush threshold
// the flush runs synchronously before Put returns.
func (t *Tree) Put(key, value []byte) error {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return dberrors.ErrClosed
	}
	if err := checkKV(key, value); err != nil {
		return err
	}

	t.mt.Put(key, value)
	return t.maybeFlush()
}

// Get returns the newest live value of key. A missing or deleted key is
// reported as (nil, false, nil).
func (t *Tree) Get(key []byte) ([]byte, bool, error) {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return nil, false, dberrors.ErrClosed
	}

	if it, ok := t.mt.Lookup(key); ok {
		return resolve(it.Value, it.Tombstone)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.pending) - 1; i >= 0; i-- {
		if it, ok := t.pending[i].Lookup(key); ok {
			return resolve(it.Value, it.Tombstone)
		}
	}

	for _, g := range t.tables {
		rec, ok, err := g.table.Get(key)
		if err != nil {
			return nil, false, fmt.Errorf("failed to Get from generation %d: %w", g.id, err)
		}
		if ok {
			return resolve(rec.Value, rec.Tombstone)
		}
	}

	return nil, false, nil
}

// Delete hides key from every older version, including flushed ones.
func (t *Tree) Delete(key []byte) error {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return dberrors.ErrClosed
	}
	if err := checkKV(key, nil); err != nil {
		return err
	}

	t.mt.Delete(key)
	return t.maybeFlush()
}

// Flush writes the memtable, and any snapshot left over from a failed
// flush, to new SSTables.
func (t *Tree) Flush() error {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return dberrors.ErrClosed
	}

	t.flushMu.Lock()
	defer t.flushMu.Unlock()
	return t.flush()
}

// Close flushes whatever is buffered and releases the tables. Calling it
// again is a no-op.
func (t *Tree) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	t.flushMu.Lock()
	flushErr := t.flush()
	t.flushMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	var closeErr error
	for _, g := range t.tables {
		if err := g.table.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to close generation %d: %w", g.id, err))
		}
	}
	t.tables = nil

	if flushErr != nil {
		t.log.Error("lsm tree closed with unflushed data", "dir", t.dataDir, "error", flushErr)
	} else {
		t.log.Info("lsm tree closed", "dir", t.dataDir)
	}

	return errors.Join(flushErr, closeErr)
}

func (t *Tree) maybeFlush() error {
	if !t.mt.IsFull(t.threshold) {
		return nil
	}

	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	// another writer may have flushed while we waited
	if !t.mt.IsFull(t.threshold) {
		return nil
	}
	return t.flush()
}

func resolve(value []byte, tombstone bool) ([]byte, bool, error) {
	if tombstone {
		return nil, false, nil
	}
	return value, true, nil
}

func checkKV(key, value []byte) error {
	if uint64(len(key)) > persistence.MaxFieldLen {
		return fmt.Errorf("%w: key too large: %d", dberrors.ErrInvalidArgument, len(key))
	}
	if uint64(len(value)) > persistence.MaxFieldLen {
		return fmt.Errorf("%w: value too large: %d", dberrors.ErrInvalidArgument, len(value))
	}
	return nil
}
