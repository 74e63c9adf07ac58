package memtable

import (
	"bytes"
	"sync"

	"github.com/zhangyunhao116/skipmap"
)

type orderedMap = skipmap.FuncMap[[]byte, Item]

func newOrderedMap() *orderedMap {
	return skipmap.NewFunc[[]byte, Item](func(a, b []byte) bool {
		return bytes.Compare(a, b) < 0
	})
}

// Memtable is the sorted in-memory write buffer. All access to the
// underlying map goes through mu; no I/O happens while it is held.
type Memtable struct {
	mu         sync.RWMutex
	underlying *orderedMap
}

func New() *Memtable {
	return &Memtable{underlying: newOrderedMap()}
}

// Put inserts or overwrites key. Key and value are copied.
func (mt *Memtable) Put(key, value []byte) {
	it := Item{
		Key:   bytes.Clone(key),
		Value: bytes.Clone(value),
	}
	if it.Value == nil {
		it.Value = []byte{}
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.underlying.Store(it.Key, it)
}

// Delete installs a tombstone for key. Deleting an absent key is not an
// error: the tombstone still has to shadow older on-disk versions.
func (mt *Memtable) Delete(key []byte) {
	it := Item{
		Key:       bytes.Clone(key),
		Tombstone: true,
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.underlying.Store(it.Key, it)
}

// Get returns a copy of the live value for key. Tombstones read as absent.
func (mt *Memtable) Get(key []byte) ([]byte, bool) {
	it, ok := mt.Lookup(key)
	if !ok || it.Tombstone {
		return nil, false
	}
	return it.Value, true
}

// Lookup returns a copy of the entry for key, tombstones included.
func (mt *Memtable) Lookup(key []byte) (Item, bool) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()

	it, ok := mt.underlying.Load(key)
	if !ok {
		return Item{}, false
	}
	return it.clone(), true
}

// Len counts entries, tombstones included.
func (mt *Memtable) Len() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.underlying.Len()
}

func (mt *Memtable) IsFull(maxEntries int) bool {
	return mt.Len() >= maxEntries
}

// Drain detaches the current contents as an immutable snapshot and leaves
// the memtable empty. Snapshot and clear happen under one write lock, so a
// concurrent Put lands either in the snapshot or in the fresh map.
func (mt *Memtable) Drain() SortedSet {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	current := mt.underlying
	mt.underlying = newOrderedMap()
	return &sortedSet{current}
}
