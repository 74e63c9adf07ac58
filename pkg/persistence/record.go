package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"stones/pkg/dberrors"
)

const (
	// key_len(4) + value_len(4)
	recordHeaderSize = 8

	// value_len sentinel marking a tombstone; no value bytes follow it.
	tombstoneLen = math.MaxUint32

	// MaxFieldLen is the longest key or value a record can carry.
	MaxFieldLen = math.MaxUint32 - 1
)

// Record is one key/value pair as stored in an SSTable.
type Record struct {
	Key       []byte
	Value     []byte
	Tombstone bool
}

func (r Record) encodedSize() int64 {
	n := int64(recordHeaderSize) + int64(len(r.Key))
	if !r.Tombstone {
		n += int64(len(r.Value))
	}
	return n
}

func checkRecord(r Record) error {
	if uint64(len(r.Key)) > MaxFieldLen {
		return fmt.Errorf("%w: key too large: %d", dberrors.ErrInvalidArgument, len(r.Key))
	}
	if uint64(len(r.Value)) > MaxFieldLen {
		return fmt.Errorf("%w: value too large: %d", dberrors.ErrInvalidArgument, len(r.Value))
	}
	return nil
}

// writeRecord writes key_len, value_len, key and value, all lengths
// little-endian uint32.
func writeRecord(w io.Writer, r Record) error {
	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(r.Key)))
	if r.Tombstone {
		binary.LittleEndian.PutUint32(header[4:8], tombstoneLen)
	} else {
		binary.LittleEndian.PutUint32(header[4:8], uint32(len(r.Value)))
	}

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(r.Key); err != nil {
		return err
	}
	if r.Tombstone {
		return nil
	}
	_, err := w.Write(r.Value)
	return err
}

// readRecord decodes the next record. remaining is the number of bytes left
// in the input and bounds the lengths a header may claim. It returns io.EOF
// only at a clean record boundary; a partial record is io.ErrUnexpectedEOF.
func readRecord(rd io.Reader, remaining int64) (Record, int64, error) {
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(rd, header[:]); err != nil {
		if err == io.EOF {
			return Record{}, 0, io.EOF
		}
		return Record{}, 0, fmt.Errorf("failed to read record header: %w", err)
	}

	keyLen := binary.LittleEndian.Uint32(header[0:4])
	valueLen := binary.LittleEndian.Uint32(header[4:8])
	if keyLen == tombstoneLen {
		return Record{}, 0, fmt.Errorf("%w: invalid key length", dberrors.ErrCorrupted)
	}

	rec := Record{Tombstone: valueLen == tombstoneLen}
	body := int64(keyLen)
	if !rec.Tombstone {
		body += int64(valueLen)
	}
	if body > remaining-recordHeaderSize {
		return Record{}, 0, fmt.Errorf("failed to read record body: %w", io.ErrUnexpectedEOF)
	}

	rec.Key = make([]byte, keyLen)
	if _, err := io.ReadFull(rd, rec.Key); err != nil {
		return Record{}, 0, fmt.Errorf("failed to read key: %w", noEOF(err))
	}
	if !rec.Tombstone {
		rec.Value = make([]byte, valueLen)
		if _, err := io.ReadFull(rd, rec.Value); err != nil {
			return Record{}, 0, fmt.Errorf("failed to read value: %w", noEOF(err))
		}
	}

	return rec, recordHeaderSize + body, nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
