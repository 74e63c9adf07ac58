package memtable

import "bytes"

// Item is one memtable entry. A tombstone carries no value and shadows
// every older version of the key.
type Item struct {
	Key       []byte
	Value     []byte
	Tombstone bool
}

func (it Item) clone() Item {
	return Item{
		Key:       bytes.Clone(it.Key),
		Value:     bytes.Clone(it.Value),
		Tombstone: it.Tombstone,
	}
}
