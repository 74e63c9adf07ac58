package memtable

// SortedSet is a detached, read-only memtable snapshot.
type SortedSet interface {
	Sorted() []Item
	Len() int
	Lookup(key []byte) (Item, bool)
}

type sortedSet struct {
	*orderedMap
}

func (s *sortedSet) Sorted() []Item {
	result := make([]Item, 0, s.orderedMap.Len())
	s.Range(func(_ []byte, value Item) bool {
		result = append(result, value)
		return true
	})

	return result
}

func (s *sortedSet) Len() int {
	return s.orderedMap.Len()
}

func (s *sortedSet) Lookup(key []byte) (Item, bool) {
	it, ok := s.Load(key)
	if !ok {
		return Item{}, false
	}
	return it.clone(), true
}
