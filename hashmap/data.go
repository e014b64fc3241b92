package hashmap

import "unsafe"
import "runtime"
import "sync/atomic"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import "github.com/bnclabs/umem/malloc"

// Maxcapacity maximum number of entries in a map.
const Maxcapacity = 1 << 29

// carvesize number of never used entries carved from allocated length
// in one go. One is handed out and the rest go into worker's free
// list.
const carvesize = 16

const nilentry = int32(-1)

// freehead packs a 32-bit tag with a 32-bit entry index. Tag is
// bumped on every update so that a stale head never compares equal.
type freehead struct {
	head atomic.Uint64
	_    [malloc.Cacheline - 8]byte
}

func packhead(tag uint32, entry int32) uint64 {
	return (uint64(tag) << 32) | uint64(uint32(entry))
}

func unpackhead(head uint64) (tag uint32, entry int32) {
	return uint32(head >> 32), int32(uint32(head))
}

// mapdata is backing storage for a map, memory for values, keys, next
// and buckets is carved out of a single block.
type mapdata[K comparable, V any] struct {
	alloclen atomic.Int32
	carving  atomic.Int32 // carves yet to be spliced into a free list

	block    api.Block
	capacity int32
	mask     uint64
	values   []V
	keys     []K
	next     []int32
	buckets  []int32
	heads    []freehead
}

// layout return offsets for values, keys, next and buckets region,
// along with the total size. Each region starts at a cache line.
func layout(capacity, bucketcap, keysize, valsize int64) (offs [4]int64, size int64) {
	sizes := [4]int64{capacity * valsize, capacity * keysize, capacity * 4, bucketcap * 4}
	for i, sz := range sizes {
		offs[i] = size
		size = lib.Alignup(size+sz, malloc.Cacheline)
	}
	return offs, size
}

func newmapdata[K comparable, V any](
	mgr *malloc.Manager, handle api.Handle, capacity int64,
	workers int) (*mapdata[K, V], error) {

	var key K
	var value V

	if capacity < 1 || capacity > Maxcapacity {
		panicerr("hashmap capacity %v out of range (1, %v)", capacity, Maxcapacity)
	}
	bucketcap := lib.Nextpow2(2 * capacity)
	keysize, valsize := int64(unsafe.Sizeof(key)), int64(unsafe.Sizeof(value))
	offs, size := layout(capacity, bucketcap, keysize, valsize)

	cl := malloc.Cacheline
	block, err := mgr.Allocate(handle, cl, cl, int(size/int64(cl)))
	if err != nil {
		return nil, err
	}

	base := block.Range.Pointer
	d := &mapdata[K, V]{
		block:    block,
		capacity: int32(capacity),
		mask:     uint64(bucketcap - 1),
		values:   unsafe.Slice((*V)(unsafe.Add(base, offs[0])), capacity),
		keys:     unsafe.Slice((*K)(unsafe.Add(base, offs[1])), capacity),
		next:     unsafe.Slice((*int32)(unsafe.Add(base, offs[2])), capacity),
		buckets:  unsafe.Slice((*int32)(unsafe.Add(base, offs[3])), bucketcap),
		heads:    make([]freehead, workers),
	}
	d.clear()
	return d, nil
}

// clear reset buckets, next links and free lists to empty, values and
// keys are left as is.
func (d *mapdata[K, V]) clear() {
	for i := range d.buckets {
		d.buckets[i] = nilentry
	}
	for i := range d.next {
		d.next[i] = nilentry
	}
	for i := range d.heads {
		tag, _ := unpackhead(d.heads[i].head.Load())
		d.heads[i].head.Store(packhead(tag+1, nilentry))
	}
	d.alloclen.Store(0)
}

func (d *mapdata[K, V]) release(mgr *malloc.Manager) error {
	err := mgr.Freeblock(&d.block)
	d.values, d.keys, d.next, d.buckets = nil, nil, nil, nil
	return err
}

//---- free list

func (d *mapdata[K, V]) pushfree(worker int, entry int32) {
	d.splicefree(worker, entry, entry)
}

func (d *mapdata[K, V]) popfree(worker int) int32 {
	head := &d.heads[worker].head
	for {
		old := head.Load()
		tag, first := unpackhead(old)
		if first == nilentry {
			return nilentry
		}
		// next[first] might be stale if first is popped by another
		// worker in the mean time, in which case the tag has moved
		// and CAS fails.
		next := atomic.LoadInt32(&d.next[first])
		if head.CompareAndSwap(old, packhead(tag+1, next)) {
			return first
		}
	}
}

// carve fresh entries from allocated length, return the first one and
// splice the rest into worker's free list.
func (d *mapdata[K, V]) carve(worker int) int32 {
	if d.alloclen.Load() >= d.capacity {
		return nilentry
	}
	d.carving.Add(1)
	defer d.carving.Add(-1)

	end := d.alloclen.Add(carvesize)
	start := end - carvesize
	if start >= d.capacity {
		return nilentry
	}
	end = minint32(end, d.capacity)
	if first, last := start+1, end-1; first <= last {
		for entry := first; entry < last; entry++ {
			atomic.StoreInt32(&d.next[entry], entry+1)
		}
		d.splicefree(worker, first, last)
	}
	return start
}

// splicefree push a privately linked chain, first to last, into
// worker's free list with a single CAS.
func (d *mapdata[K, V]) splicefree(worker int, first, last int32) {
	head := &d.heads[worker].head
	for {
		old := head.Load()
		tag, top := unpackhead(old)
		atomic.StoreInt32(&d.next[last], top)
		if head.CompareAndSwap(old, packhead(tag+1, first)) {
			return
		}
	}
}

// allocentry pops from worker's own free list, else carves new
// entries, else steals from other workers. Return nilentry if map
// is full.
func (d *mapdata[K, V]) allocentry(worker int) int32 {
	if entry := d.popfree(worker); entry != nilentry {
		return entry
	} else if entry = d.carve(worker); entry != nilentry {
		return entry
	}
	// allocated length is exhausted. Entries carved by other workers
	// show up in their free lists once spliced, map is full only when
	// a scan that started with no carve in progress finds nothing.
	for {
		carving := d.carving.Load()
		for i := 0; i < len(d.heads); i++ {
			if entry := d.popfree((worker + i) % len(d.heads)); entry != nilentry {
				return entry
			}
		}
		if carving == 0 {
			return nilentry
		}
		runtime.Gosched()
	}
}

// freelen return the number of entries in worker's free list.
func (d *mapdata[K, V]) freelen(worker int) (n int32) {
	_, entry := unpackhead(d.heads[worker].head.Load())
	for entry != nilentry && n < d.capacity {
		n++
		entry = atomic.LoadInt32(&d.next[entry])
	}
	return n
}

func (d *mapdata[K, V]) count() int32 {
	n := minint32(d.capacity, d.alloclen.Load())
	for worker := range d.heads {
		n -= d.freelen(worker)
	}
	return n
}
