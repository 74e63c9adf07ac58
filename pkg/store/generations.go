package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"stones/pkg/persistence"
)

// loadTables opens every sst-<N>.sst in the data directory, newest
// generation first, and moves the generation clock past the highest N.
func (t *Tree) loadTables() error {
	entries, err := os.ReadDir(t.dataDir)
	if err != nil {
		return fmt.Errorf("failed to list data directory: %w", err)
	}

	var (
		found []uint64
		names = make(map[uint64]string)
	)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && persistence.IsTempName(name) {
			if err := os.Remove(filepath.Join(t.dataDir, name)); err != nil {
				return fmt.Errorf("failed to remove unfinished sstable %s: %w", name, err)
			}
			t.log.Warn("removed unfinished sstable", "file", name)
			continue
		}
		if entry.IsDir() || filepath.Ext(name) != persistence.Ext {
			continue
		}
		id, ok := persistence.ParseFileName(name)
		if !ok {
			t.log.Warn("skipping unrecognised sstable file", "file", name)
			continue
		}
		if prev, dup := names[id]; dup {
			t.log.Warn("skipping duplicate sstable generation", "file", name, "kept", prev)
			continue
		}
		names[id] = name
		found = append(found, id)
	}
	sort.Slice(found, func(i, j int) bool { return found[i] > found[j] })

	tables := make([]*generation, 0, len(found))
	for _, id := range found {
		sst := persistence.NewSSTable(filepath.Join(t.dataDir, names[id]))
		table, err := sst.Open(t.indexInterval)
		if err != nil {
			var closeErr error
			for _, g := range tables {
				closeErr = errors.Join(closeErr, g.table.Close())
			}
			return errors.Join(fmt.Errorf("failed to open generation %d: %w", id, err), closeErr)
		}
		tables = append(tables, &generation{id: id, table: table})
		t.gen.Observe(id)
	}

	t.tables = tables
	return nil
}

// Stats is a point-in-time view of the tree.
type Stats struct {
	MemtableEntries int
	PendingFlushes  int
	Tables          int
	DiskBytes       int64
	Generation      uint64
}

func (t *Tree) Stats() Stats {
	st := Stats{
		MemtableEntries: t.mt.Len(),
		Generation:      t.gen.Val(),
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	st.PendingFlushes = len(t.pending)
	st.Tables = len(t.tables)
	for _, g := range t.tables {
		st.DiskBytes += g.table.Size()
	}
	return st
}

// Dir returns the data directory.
func (t *Tree) Dir() string {
	return t.dataDir
}
