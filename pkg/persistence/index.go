package persistence

import (
	"bytes"
	"sort"
)

// DefaultIndexInterval is how many records share one sparse index entry.
const DefaultIndexInterval = 16

type indexEntry struct {
	key    []byte
	offset int64
}

// sparseIndex keeps the key range of a table and the offset of every
// interval-th record, so a lookup reads a single span of the file.
type sparseIndex struct {
	entries []indexEntry
	first   []byte
	last    []byte
	end     int64
}

func (ix *sparseIndex) add(key []byte, offset int64) {
	ix.entries = append(ix.entries, indexEntry{key: key, offset: offset})
}

// mayContain reports whether key falls inside the table's key range.
func (ix *sparseIndex) mayContain(key []byte) bool {
	if len(ix.entries) == 0 {
		return false
	}
	return bytes.Compare(key, ix.first) >= 0 && bytes.Compare(key, ix.last) <= 0
}

// span returns the [start, end) byte range that holds key if the table has
// it. Only valid when mayContain(key) is true.
func (ix *sparseIndex) span(key []byte) (int64, int64) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return bytes.Compare(ix.entries[i].key, key) > 0
	})
	if i == 0 {
		// key < first; unreachable after mayContain
		return 0, 0
	}

	start := ix.entries[i-1].offset
	end := ix.end
	if i < len(ix.entries) {
		end = ix.entries[i].offset
	}
	return start, end
}
