package persistence

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"stones/pkg/dberrors"
)

// SSTable is an immutable sorted run stored at a single path. The file is a
// bare concatenation of records: no header, footer or count.
type SSTable struct {
	filePath string
}

func NewSSTable(path string) *SSTable {
	return &SSTable{filePath: path}
}

func (s *SSTable) Path() string {
	return s.filePath
}

// Create writes records, which must be in strictly ascending key order, to
// the table's path. The data goes to a temporary file that is synced and
// renamed into place, so the path never holds a partial table.
func (s *SSTable) Create(records []Record) (err error) {
	for i, rec := range records {
		if err := checkRecord(rec); err != nil {
			return err
		}
		if i > 0 && bytes.Compare(records[i-1].Key, rec.Key) >= 0 {
			return fmt.Errorf("%w: %q after %q", dberrors.ErrUnsorted, rec.Key, records[i-1].Key)
		}
	}

	tmpPath := s.filePath + tmpSuffix
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create SSTable file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	writer := bufio.NewWriter(file)
	for _, rec := range records {
		if err = writeRecord(writer, rec); err != nil {
			return fmt.Errorf("failed to write SSTable record: %w", err)
		}
	}
	if err = writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush SSTable: %w", err)
	}
	if err = file.Sync(); err != nil {
		return fmt.Errorf("failed to sync SSTable: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close SSTable: %w", err)
	}
	if err = os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("failed to install SSTable: %w", err)
	}

	return nil
}

// Read decodes every record of the table in file order.
func (s *SSTable) Read() ([]Record, error) {
	file, err := os.Open(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SSTable file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat SSTable file: %w", err)
	}

	var (
		records   []Record
		remaining = stat.Size()
		reader    = bufio.NewReader(file)
	)
	for {
		rec, n, err := readRecord(reader, remaining)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read %s: %w", s.filePath, err)
		}
		remaining -= n
		records = append(records, rec)
	}

	return records, nil
}

// Delete removes the table file.
func (s *SSTable) Delete() error {
	if err := os.Remove(s.filePath); err != nil {
		return fmt.Errorf("failed to delete SSTable: %w", err)
	}
	return nil
}

func (s *SSTable) Exists() bool {
	info, err := os.Stat(s.filePath)
	return err == nil && info.Mode().IsRegular()
}
