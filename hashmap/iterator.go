package hashmap

// Iterator over values sharing the same key. Iterator is valid only
// while the map is not resized.
type Iterator[K comparable] struct {
	key   K
	entry int32
	next  int32
}

// Key for this iterator.
func (it Iterator[K]) Key() K {
	return it.key
}

// Entry return the entry index iterator is pointing to, -1 if
// iterator is exhausted.
func (it Iterator[K]) Entry() int32 {
	return it.entry
}

// Valid return false if iterator is exhausted.
func (it Iterator[K]) Valid() bool {
	return it.entry != nilentry
}
