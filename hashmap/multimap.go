package hashmap

import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"

// Multimap holds any number of values for each key, including
// duplicate values.
type Multimap[K comparable, V any] struct {
	*engine[K, V]
}

// NewMultimap create a new multi-value map with storage allocated
// from mgr. If hasher is nil Defaulthasher is used. Refer to
// Defaultsettings() for settings. Panics if storage cannot be
// allocated.
func NewMultimap[K comparable, V any](
	name string, mgr *malloc.Manager, hasher Hasher[K],
	setts s.Settings) *Multimap[K, V] {

	return &Multimap[K, V]{engine: newengine[K, V](name, mgr, hasher, setts, true)}
}

// Add value for key. If map is full it is grown when growable, else
// panics with api.ErrorMapFull.
func (m *Multimap[K, V]) Add(key K, value V) {
	m.add(0, key, value, false, true)
}

// Trygetvalue return the first value found for key.
func (m *Multimap[K, V]) Trygetvalue(key K) (value V, ok bool) {
	value, _, ok = m.Trygetfirst(key)
	return value, ok
}

// Remove all values for key, return number of entries removed.
func (m *Multimap[K, V]) Remove(key K) int {
	return m.remove(key)
}

// Countvalues return number of values for key.
func (m *Multimap[K, V]) Countvalues(key K) (n int) {
	_, it, ok := m.Trygetfirst(key)
	for ok {
		n++
		_, ok = m.Trygetnext(&it)
	}
	return n
}

// Uniquekeys return distinct keys in map, in no particular order.
func (m *Multimap[K, V]) Uniquekeys() []K {
	seen := make(map[K]struct{})
	keys := make([]K, 0)
	m.Range(func(key K, _ V) bool {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

// Parallelwriter return a writer to add entries concurrently.
func (m *Multimap[K, V]) Parallelwriter() *Parallelwriter[K, V] {
	return &Parallelwriter[K, V]{e: m.engine}
}
