package hashmap

import "fmt"
import "reflect"
import "hash/maphash"
import "sync/atomic"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"

// Hasher computes hash for key, it must be deterministic and equal
// keys must hash equally.
type Hasher[K comparable] func(key K) uint64

// Defaulthasher return a hasher seeded afresh, using hash/maphash.
func Defaulthasher[K comparable]() Hasher[K] {
	seed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(seed, key)
	}
}

// engine is shared by Hashmap and Multimap.
type engine[K comparable, V any] struct {
	// 64-bit aligned stats
	n_adds    int64
	n_dups    int64
	n_removes int64
	n_grows   int64

	name     string
	mgr      *malloc.Manager
	handle   api.Handle
	hasher   Hasher[K]
	workers  int
	growable bool
	multi    bool
	data     *mapdata[K, V]
	setts    s.Settings
	logprfx  string
}

func newengine[K comparable, V any](
	name string, mgr *malloc.Manager, hasher Hasher[K],
	setts s.Settings, multi bool) *engine[K, V] {

	if typ := reflect.TypeFor[K](); lib.Haspointers(typ) {
		panicerr("hashmap %q key type %v holds pointers", name, typ)
	} else if typ := reflect.TypeFor[V](); lib.Haspointers(typ) {
		panicerr("hashmap %q value type %v holds pointers", name, typ)
	}
	if hasher == nil {
		hasher = Defaulthasher[K]()
	}

	e := &engine[K, V]{
		name:   name,
		mgr:    mgr,
		hasher: hasher,
		multi:  multi,
		setts:  make(s.Settings).Mixin(Defaultsettings(), setts),
	}
	e.logprfx = fmt.Sprintf("HASHMAP [%v]", name)
	e.readsettings(e.setts)

	capacity := e.setts.Int64("capacity")
	data, err := newmapdata[K, V](e.mgr, e.handle, capacity, e.workers)
	if err != nil {
		panicerr("%v allocate %v entries: %w", e.logprfx, capacity, err)
	}
	e.data = data
	infof("%v started with capacity %v, %v workers", e.logprfx, capacity, e.workers)
	return e
}

func (e *engine[K, V]) readsettings(setts s.Settings) {
	e.workers = int(setts.Int64("workers"))
	e.growable = setts.Bool("growable")
	e.handle = api.Handle(setts.Int64("allocator"))
	if e.workers < 1 {
		panicerr("%v invalid number of workers %v", e.logprfx, e.workers)
	}
}

func (e *engine[K, V]) bucketof(d *mapdata[K, V], key K) int32 {
	return int32(e.hasher(key) & d.mask)
}

// find key in chain starting from entry.
func (e *engine[K, V]) find(d *mapdata[K, V], entry int32, key K) int32 {
	for entry != nilentry {
		if d.keys[entry] == key {
			return entry
		}
		entry = atomic.LoadInt32(&d.next[entry])
	}
	return nilentry
}

func (e *engine[K, V]) lookup(key K) int32 {
	d := e.data
	head := atomic.LoadInt32(&d.buckets[e.bucketof(d, key)])
	return e.find(d, head, key)
}

// add entry into map, if unique is true fail on duplicate key. A full
// map is grown if dogrow is true and map is growable, else panics.
func (e *engine[K, V]) add(worker int, key K, value V, unique, dogrow bool) bool {
	d := e.data
	bucket := e.bucketof(d, key)
	if unique && e.find(d, atomic.LoadInt32(&d.buckets[bucket]), key) != nilentry {
		atomic.AddInt64(&e.n_dups, 1)
		return false
	}

	entry := d.allocentry(worker)
	if entry == nilentry {
		if !dogrow || !e.growable {
			panic(api.ErrorMapFull)
		} else if err := e.grow(2 * int64(d.capacity)); err != nil && e.data == d {
			panic(fmt.Errorf("%v: %w", api.ErrorMapFull, err))
		} else if err != nil {
			panic(err) // grown, but old storage is leaked.
		}
		d = e.data
		bucket = e.bucketof(d, key)
		entry = d.allocentry(worker)
	}

	d.keys[entry], d.values[entry] = key, value
	for {
		head := atomic.LoadInt32(&d.buckets[bucket])
		// chain from head is checked for key before linking to head.
		// A racing writer that links the same key makes our CAS fail,
		// and the next round finds its entry.
		if unique && e.find(d, head, key) != nilentry {
			d.pushfree(worker, entry)
			atomic.AddInt64(&e.n_dups, 1)
			return false
		}
		atomic.StoreInt32(&d.next[entry], head)
		if atomic.CompareAndSwapInt32(&d.buckets[bucket], head, entry) {
			atomic.AddInt64(&e.n_adds, 1)
			return true
		}
	}
}

// unlink entry from bucket, prev is the entry before it in the chain.
func (e *engine[K, V]) unlink(d *mapdata[K, V], bucket, prev, entry int32) {
	next := atomic.LoadInt32(&d.next[entry])
	if prev == nilentry {
		atomic.StoreInt32(&d.buckets[bucket], next)
	} else {
		atomic.StoreInt32(&d.next[prev], next)
	}
	d.pushfree(0, entry)
	atomic.AddInt64(&e.n_removes, 1)
}

// remove entries matching key, single value maps remove atmost one.
func (e *engine[K, V]) remove(key K) (n int) {
	d := e.data
	bucket := e.bucketof(d, key)
	prev, entry := nilentry, atomic.LoadInt32(&d.buckets[bucket])
	for entry != nilentry {
		next := atomic.LoadInt32(&d.next[entry])
		if d.keys[entry] != key {
			prev, entry = entry, next
			continue
		}
		e.unlink(d, bucket, prev, entry)
		n++
		if !e.multi {
			break
		}
		entry = next
	}
	return n
}

//---- exported methods common to Hashmap and Multimap

// Name of the map.
func (e *engine[K, V]) Name() string {
	return e.name
}

// Containskey return true if key is present in map.
func (e *engine[K, V]) Containskey(key K) bool {
	return e.lookup(key) != nilentry
}

// Trygetfirst return the first value for key, along with an iterator
// that can be passed to Trygetnext for subsequent values.
func (e *engine[K, V]) Trygetfirst(key K) (value V, it Iterator[K], ok bool) {
	d := e.data
	it.key, it.entry, it.next = key, nilentry, nilentry
	entry := e.lookup(key)
	if entry == nilentry {
		return value, it, false
	}
	it.entry, it.next = entry, atomic.LoadInt32(&d.next[entry])
	return d.values[entry], it, true
}

// Trygetnext return the next value for iterator's key.
func (e *engine[K, V]) Trygetnext(it *Iterator[K]) (value V, ok bool) {
	d := e.data
	entry := e.find(d, it.next, it.key)
	if entry == nilentry {
		it.entry, it.next = nilentry, nilentry
		return value, false
	}
	it.entry, it.next = entry, atomic.LoadInt32(&d.next[entry])
	return d.values[entry], true
}

// Removeat remove the entry pointed by iterator. Iterator shall be
// obtained from Trygetfirst or Trygetnext, and must not be used with
// Removeat after its entry is removed or after map is resized.
// Subsequent Trygetnext on the iterator continue with the next value.
func (e *engine[K, V]) Removeat(it Iterator[K]) {
	if it.entry == nilentry {
		return
	}
	d := e.data
	bucket := e.bucketof(d, it.key)
	prev, entry := nilentry, atomic.LoadInt32(&d.buckets[bucket])
	for entry != nilentry {
		if entry == it.entry {
			e.unlink(d, bucket, prev, entry)
			return
		}
		prev, entry = entry, atomic.LoadInt32(&d.next[entry])
	}
}

// Count number of entries in map. Count is not a running counter, it
// is computed from allocated length and free lists.
func (e *engine[K, V]) Count() int {
	return int(e.data.count())
}

// Capacity maximum number of entries before map is full.
func (e *engine[K, V]) Capacity() int {
	return int(e.data.capacity)
}

// Setcapacity grow map to hold capacity entries. Capacity less than
// Count() is rejected with api.ErrorCapacityShrink, capacity less
// than or equal to current capacity is a no-op. Must not be called
// concurrently with other writers. If the old storage cannot be
// freed, like with a stack allocator, map is grown and the error
// is returned.
func (e *engine[K, V]) Setcapacity(capacity int) error {
	if capacity < e.Count() {
		return api.ErrorCapacityShrink
	} else if capacity <= e.Capacity() {
		return nil
	}
	return e.grow(int64(capacity))
}

// grow map to capacity preserving entry indices. If old storage
// cannot be released, map continues with the new storage and the
// release error is returned.
func (e *engine[K, V]) grow(capacity int64) error {
	old := e.data
	if capacity > Maxcapacity {
		return fmt.Errorf("%v capacity %v exceeds %v", e.logprfx, capacity, Maxcapacity)
	}
	d, err := newmapdata[K, V](e.mgr, e.handle, capacity, e.workers)
	if err != nil {
		errorf("%v grow to %v: %v", e.logprfx, capacity, err)
		return err
	}

	n := old.capacity
	copy(d.values, old.values[:n])
	copy(d.keys, old.keys[:n])
	copy(d.next, old.next[:n])
	for worker := range old.heads {
		d.heads[worker].head.Store(old.heads[worker].head.Load())
	}
	d.alloclen.Store(minint32(old.alloclen.Load(), n))

	// rebuild buckets by walking old chains, new next links are
	// written as we go, hence walk using old next links.
	for _, entry := range old.buckets {
		for entry != nilentry {
			next := old.next[entry]
			bucket := e.bucketof(d, d.keys[entry])
			d.next[entry] = d.buckets[bucket]
			d.buckets[bucket] = entry
			entry = next
		}
	}

	e.data = d
	atomic.AddInt64(&e.n_grows, 1)
	if err := old.release(e.mgr); err != nil {
		errorf("%v release old storage: %v", e.logprfx, err)
		return fmt.Errorf("%v release old storage: %w", e.logprfx, err)
	}
	debugf("%v grown from %v to %v", e.logprfx, n, capacity)
	return nil
}

// Clear remove all entries, storage is retained.
func (e *engine[K, V]) Clear() {
	e.data.clear()
}

// Range over every entry in map, in no particular order, till
// callback returns false.
func (e *engine[K, V]) Range(callb func(key K, value V) bool) {
	d := e.data
	for i := range d.buckets {
		entry := atomic.LoadInt32(&d.buckets[i])
		for entry != nilentry {
			if !callb(d.keys[entry], d.values[entry]) {
				return
			}
			entry = atomic.LoadInt32(&d.next[entry])
		}
	}
}

// Keys return all keys, in no particular order. Multimap repeats a
// key for each of its values.
func (e *engine[K, V]) Keys() []K {
	keys := make([]K, 0, e.Count())
	e.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Values return all values, in no particular order.
func (e *engine[K, V]) Values() []V {
	values := make([]V, 0, e.Count())
	e.Range(func(_ K, value V) bool {
		values = append(values, value)
		return true
	})
	return values
}

// Workers return number of concurrent writers supported.
func (e *engine[K, V]) Workers() int {
	return e.workers
}

// Release storage, map is not usable after this call.
func (e *engine[K, V]) Release() {
	if e.data == nil {
		return
	}
	if err := e.data.release(e.mgr); err != nil {
		errorf("%v release: %v", e.logprfx, err)
	}
	e.data = nil
	infof("%v released", e.logprfx)
}

// Disposeafter release storage after job `after` is complete. Map is
// not usable after this call, returned handle is signalled once
// storage is released.
func (e *engine[K, V]) Disposeafter(after api.Jobhandle) api.Jobhandle {
	if e.data == nil {
		return lib.Closedfence()
	}
	job := e.mgr.Disposeafter(e.data.block, after)
	e.data = nil
	return job
}
