package malloc

import "unsafe"
import "sync/atomic"

import "github.com/bnclabs/umem/api"
import s "github.com/bnclabs/gosettings"

// Slab allocator manages a storage block sliced up into equal sized
// slabs. Each allocation consumes exactly one slab, requests larger
// than a slab are rejected. Slab is safe for concurrent use.
type Slab struct {
	// 64-bit aligned stats
	allocated int64
	n_allocs  int64
	n_frees   int64
	n_fails   int64

	m        *Manager
	handle   api.Handle
	storage  api.Block
	base     unsafe.Pointer
	slabsize int64
	nslabs   int64
	budget   int64
	occupied *occupancy
}

// NewSlab wrap storage block as slab allocator with `slabsize` byte
// slabs, and a budget of outstanding bytes, zero budget means the
// entire storage. Returned allocator is not registered with any
// manager.
func NewSlab(storage api.Block, slabsize, budget int64) *Slab {
	if slabsize <= 0 {
		panicerr("invalid slab size %v", slabsize)
	}
	nslabs := storage.Allocatedbytes() / slabsize
	if storage.Range.Pointer == nil || nslabs == 0 {
		panicerr("slab storage cannot hold a %v byte slab", slabsize)
	}
	if budget <= 0 || budget > nslabs*slabsize {
		budget = nslabs * slabsize
	}
	return &Slab{
		handle:   api.Invalid,
		storage:  storage,
		base:     storage.Range.Pointer,
		slabsize: slabsize,
		nslabs:   nslabs,
		budget:   budget,
		occupied: newoccupancy(nslabs),
	}
}

// Newslab allocate storage from manager and register a new slab
// allocator, refer to Defaultsettings() for "slab.*" settings.
func Newslab(m *Manager, setts s.Settings) (*Slab, error) {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	slabsize, count := setts.Int64("slab.size"), setts.Int64("slab.count")
	storagehandle := api.Handle(setts.Int64("slab.storage"))

	storage, err := m.Allocate(storagehandle, int(slabsize), Cacheline, int(count))
	if err != nil {
		return nil, err
	}
	slab := NewSlab(storage, slabsize, setts.Int64("slab.budget"))
	slab.m = m
	if slab.handle, err = m.Register(slab); err != nil {
		m.Freeblock(&slab.storage)
		return nil, err
	}
	infof("%v registered slab allocator %v, %v x %v", m.logprfx, slab.handle, count, slabsize)
	return slab, nil
}

// Handle return registered handle for this allocator.
func (slab *Slab) Handle() api.Handle {
	return slab.handle
}

// Try implement api.Allocator{} interface.
func (slab *Slab) Try(block *api.Block) error {
	if block.Range.Pointer == nil {
		return slab.alloc(block)
	} else if block.Bytes() == 0 {
		return slab.free(block)
	}
	return api.ErrorReallocation
}

func (slab *Slab) alloc(block *api.Block) error {
	size, align := block.Bytes(), block.Alignment()
	if size == 0 {
		block.Allocateditems = 0
		return nil
	} else if size > slab.slabsize {
		atomic.AddInt64(&slab.n_fails, 1)
		return api.ErrorAllocationFailed
	} else if (slab.slabsize%align) != 0 || (int64(uintptr(slab.base))%align) != 0 {
		atomic.AddInt64(&slab.n_fails, 1)
		return api.ErrorAllocationFailed
	}

	if atomic.AddInt64(&slab.allocated, slab.slabsize) > slab.budget {
		atomic.AddInt64(&slab.allocated, -slab.slabsize)
		atomic.AddInt64(&slab.n_fails, 1)
		return api.ErrorAllocationFailed
	}
	nth := slab.occupied.acquire()
	if nth < 0 {
		atomic.AddInt64(&slab.allocated, -slab.slabsize)
		atomic.AddInt64(&slab.n_fails, 1)
		return api.ErrorAllocationFailed
	}
	block.Range.Pointer = unsafe.Add(slab.base, nth*slab.slabsize)
	block.Allocateditems = block.Range.Items
	atomic.AddInt64(&slab.n_allocs, 1)
	return nil
}

func (slab *Slab) free(block *api.Block) error {
	ptr, base := uintptr(block.Range.Pointer), uintptr(slab.base)
	if ptr < base {
		return api.ErrorInvalidFree
	}
	off := int64(ptr - base)
	if off >= slab.nslabs*slab.slabsize || (off%slab.slabsize) != 0 {
		return api.ErrorInvalidFree
	} else if !slab.occupied.release(off / slab.slabsize) {
		return api.ErrorInvalidFree
	}
	atomic.AddInt64(&slab.allocated, -slab.slabsize)
	atomic.AddInt64(&slab.n_frees, 1)
	block.Range.Pointer, block.Allocateditems = nil, 0
	return nil
}

// Slabsize return size of each slab.
func (slab *Slab) Slabsize() int64 {
	return slab.slabsize
}

// Slabs return total number of slabs.
func (slab *Slab) Slabs() int64 {
	return slab.nslabs
}

// Occupied return number of slabs in use.
func (slab *Slab) Occupied() int64 {
	return slab.occupied.count()
}

// Allocated return number of bytes outstanding.
func (slab *Slab) Allocated() int64 {
	return atomic.LoadInt64(&slab.allocated)
}

// Available return number of bytes that can be allocated.
func (slab *Slab) Available() int64 {
	return slab.budget - atomic.LoadInt64(&slab.allocated)
}

// Utilization ratio of occupied slabs.
func (slab *Slab) Utilization() float64 {
	return float64(slab.Occupied()) / float64(slab.nslabs)
}

// Release uninstall allocator from its manager and free its storage,
// outstanding allocations become invalid.
func (slab *Slab) Release() error {
	if slab.m == nil {
		return nil
	}
	if n := slab.Occupied(); n > 0 {
		warnf("%v slab %v released with %v slabs in use", slab.m.logprfx, slab.handle, n)
	}
	if err := slab.m.Uninstall(slab.handle); err != nil {
		return err
	}
	err := slab.m.Freeblock(&slab.storage)
	slab.m, slab.handle, slab.base = nil, api.Invalid, nil
	return err
}

// Stats return allocation counters.
func (slab *Slab) Stats() map[string]interface{} {
	return map[string]interface{}{
		"slabsize":  slab.slabsize,
		"slabs":     slab.nslabs,
		"budget":    slab.budget,
		"occupied":  slab.occupied.count(),
		"overhead":  slab.occupied.sizeof() + int64(unsafe.Sizeof(*slab)),
		"allocated": atomic.LoadInt64(&slab.allocated),
		"n_allocs":  atomic.LoadInt64(&slab.n_allocs),
		"n_frees":   atomic.LoadInt64(&slab.n_frees),
		"n_fails":   atomic.LoadInt64(&slab.n_fails),
	}
}
