package hashmap

import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"

// Hashmap holds atmost one value for each key.
type Hashmap[K comparable, V any] struct {
	*engine[K, V]
}

// NewHashmap create a new map with storage allocated from mgr. If
// hasher is nil Defaulthasher is used. Refer to Defaultsettings() for
// settings. Panics if storage cannot be allocated.
func NewHashmap[K comparable, V any](
	name string, mgr *malloc.Manager, hasher Hasher[K],
	setts s.Settings) *Hashmap[K, V] {

	return &Hashmap[K, V]{engine: newengine[K, V](name, mgr, hasher, setts, false)}
}

// Tryadd key and value, return false if key is already present. If
// map is full it is grown when growable, else panics with
// api.ErrorMapFull.
func (m *Hashmap[K, V]) Tryadd(key K, value V) bool {
	return m.add(0, key, value, true, true)
}

// Set value for key, return true if key is newly added.
func (m *Hashmap[K, V]) Set(key K, value V) bool {
	if entry := m.lookup(key); entry != nilentry {
		m.data.values[entry] = value
		return false
	}
	return m.add(0, key, value, true, true)
}

// Trygetvalue return value for key.
func (m *Hashmap[K, V]) Trygetvalue(key K) (value V, ok bool) {
	if entry := m.lookup(key); entry != nilentry {
		return m.data.values[entry], true
	}
	return value, false
}

// Remove key, return number of entries removed, 0 or 1.
func (m *Hashmap[K, V]) Remove(key K) int {
	return m.remove(key)
}

// Parallelwriter return a writer to add entries concurrently.
func (m *Hashmap[K, V]) Parallelwriter() *Parallelwriter[K, V] {
	return &Parallelwriter[K, V]{e: m.engine}
}
