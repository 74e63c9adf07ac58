package persistence

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"stones/pkg/dberrors"
)

// Table is an indexed SSTable ready for point lookups. Only the sparse
// index stays in memory; each Get opens the file for one span read, so the
// number of tables is not bounded by the descriptor limit. A Table may be
// shared between goroutines.
type Table struct {
	filePath string
	size     int64
	count    int
	index    sparseIndex

	closed atomic.Bool
}

// Open scans the table once to build its sparse index. interval <= 0
// selects DefaultIndexInterval.
func (s *SSTable) Open(interval int) (*Table, error) {
	if interval <= 0 {
		interval = DefaultIndexInterval
	}

	file, err := os.Open(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SSTable file: %w", err)
	}
	defer file.Close()

	t := &Table{filePath: s.filePath}
	if err := t.loadIndex(file, interval); err != nil {
		return nil, fmt.Errorf("failed to load index of %s: %w", s.filePath, err)
	}

	return t, nil
}

func (t *Table) loadIndex(file *os.File, interval int) error {
	stat, err := file.Stat()
	if err != nil {
		return err
	}
	t.size = stat.Size()

	var (
		reader = bufio.NewReader(io.NewSectionReader(file, 0, t.size))
		offset int64
		prev   []byte
	)
	for {
		rec, n, err := readRecord(reader, t.size-offset)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if prev != nil && bytes.Compare(prev, rec.Key) >= 0 {
			return fmt.Errorf("%w: keys out of order at offset %d", dberrors.ErrCorrupted, offset)
		}

		if t.count%interval == 0 {
			t.index.add(rec.Key, offset)
		}
		if t.count == 0 {
			t.index.first = rec.Key
		}
		t.index.last = rec.Key

		prev = rec.Key
		offset += n
		t.count++
	}
	t.index.end = offset

	return nil
}

// Get looks key up. A tombstone is returned as found with Tombstone set.
func (t *Table) Get(key []byte) (Record, bool, error) {
	if t.closed.Load() {
		return Record{}, false, dberrors.ErrClosed
	}
	if !t.index.mayContain(key) {
		return Record{}, false, nil
	}

	file, err := os.Open(t.filePath)
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to open SSTable file: %w", err)
	}
	defer file.Close()

	start, end := t.index.span(key)
	reader := bufio.NewReader(io.NewSectionReader(file, start, end-start))
	for remaining := end - start; remaining > 0; {
		rec, n, err := readRecord(reader, remaining)
		if err != nil {
			return Record{}, false, fmt.Errorf("failed to scan %s: %w", t.filePath, noEOF(err))
		}
		remaining -= n

		switch cmp := bytes.Compare(rec.Key, key); {
		case cmp == 0:
			return rec, true, nil
		case cmp > 0:
			return Record{}, false, nil
		}
	}

	return Record{}, false, nil
}

func (t *Table) Path() string {
	return t.filePath
}

// Count is the number of records, tombstones included.
func (t *Table) Count() int {
	return t.count
}

// Size is the file size in bytes.
func (t *Table) Size() int64 {
	return t.size
}

// Close releases the index. Later Gets return dberrors.ErrClosed.
func (t *Table) Close() error {
	t.closed.Store(true)
	return nil
}
