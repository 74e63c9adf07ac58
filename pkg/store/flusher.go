package store

import (
	"fmt"
	"path/filepath"

	"stones/pkg/memtable"
	"stones/pkg/persistence"
)

// flush must be called with flushMu held.
func (t *Tree) flush() error {
	if t.mt.Len() > 0 {
		// Drain and publish under one lock: a reader that missed the
		// memtable must find the snapshot in pending.
		t.mu.Lock()
		t.pending = append(t.pending, t.mt.Drain())
		t.mu.Unlock()
	}

	for {
		t.mu.RLock()
		if len(t.pending) == 0 {
			t.mu.RUnlock()
			return nil
		}
		snapshot := t.pending[0]
		t.mu.RUnlock()

		g, err := t.writeGeneration(snapshot)
		if err != nil {
			return fmt.Errorf("failed to flush memtable: %w", err)
		}

		t.mu.Lock()
		t.tables = append([]*generation{g}, t.tables...)
		t.pending = t.pending[1:]
		t.mu.Unlock()

		t.log.Debug("memtable flushed",
			"generation", g.id,
			"entries", g.table.Count(),
			"bytes", g.table.Size(),
		)
	}
}

func (t *Tree) writeGeneration(snapshot memtable.SortedSet) (*generation, error) {
	items := snapshot.Sorted()
	records := make([]persistence.Record, len(items))
	for i, it := range items {
		records[i] = persistence.Record{
			Key:       it.Key,
			Value:     it.Value,
			Tombstone: it.Tombstone,
		}
	}

	id := t.gen.Next()
	sst := persistence.NewSSTable(filepath.Join(t.dataDir, persistence.FileName(id)))
	if err := sst.Create(records); err != nil {
		return nil, fmt.Errorf("failed to write generation %d: %w", id, err)
	}

	table, err := sst.Open(t.indexInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to open generation %d: %w", id, err)
	}

	return &generation{id: id, table: table}, nil
}
