//go:build linux || darwin || freebsd

package malloc

import "unsafe"
import "sync/atomic"

import "github.com/bnclabs/umem/api"
import "golang.org/x/sys/unix"

// Mapped strategy, every allocation is an anonymous private mapping
// rounded up to page size. Mappings are zero filled by OS.
type Mapped struct {
	// 64-bit aligned stats
	allocated int64
	n_allocs  int64
	n_frees   int64
	n_fails   int64

	capacity int64
	pagesize int64
}

func newmapped(capacity int64) strategy {
	return &Mapped{capacity: capacity, pagesize: int64(unix.Getpagesize())}
}

// Try implement api.Allocator{} interface.
func (mm *Mapped) Try(block *api.Block) error {
	if block.Range.Pointer == nil {
		return mm.alloc(block)
	} else if block.Bytes() == 0 {
		return mm.free(block)
	}
	return api.ErrorReallocation
}

func (mm *Mapped) alloc(block *api.Block) error {
	if block.Bytes() == 0 {
		block.Allocateditems = 0
		return nil
	} else if block.Alignment() > mm.pagesize {
		atomic.AddInt64(&mm.n_fails, 1)
		return api.ErrorAllocationFailed
	}
	size := mm.mapsize(block.Bytes())
	if atomic.AddInt64(&mm.allocated, size) > mm.capacity {
		atomic.AddInt64(&mm.allocated, -size)
		atomic.AddInt64(&mm.n_fails, 1)
		return api.ErrorAllocationFailed
	}
	prot, flags := unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE
	data, err := unix.Mmap(-1, 0, int(size), prot, flags)
	if err != nil {
		errorf("mapped: mmap %v bytes: %v", size, err)
		atomic.AddInt64(&mm.allocated, -size)
		atomic.AddInt64(&mm.n_fails, 1)
		return api.ErrorAllocationFailed
	}
	block.Range.Pointer = unsafe.Pointer(&data[0])
	block.Allocateditems = block.Range.Items
	atomic.AddInt64(&mm.n_allocs, 1)
	return nil
}

func (mm *Mapped) free(block *api.Block) error {
	size := mm.mapsize(block.Allocatedbytes())
	if size == 0 {
		return api.ErrorInvalidFree
	}
	data := unsafe.Slice((*byte)(block.Range.Pointer), size)
	if err := unix.Munmap(data); err != nil {
		errorf("mapped: munmap %v bytes: %v", size, err)
		return api.ErrorInvalidFree
	}
	atomic.AddInt64(&mm.allocated, -size)
	atomic.AddInt64(&mm.n_frees, 1)
	block.Range.Pointer, block.Allocateditems = nil, 0
	return nil
}

func (mm *Mapped) mapsize(size int64) int64 {
	return ceil(size, mm.pagesize) * mm.pagesize
}

// Allocated return number of bytes mapped, in multiples of pagesize.
func (mm *Mapped) Allocated() int64 {
	return atomic.LoadInt64(&mm.allocated)
}

// Stats return allocation counters.
func (mm *Mapped) Stats() map[string]interface{} {
	return map[string]interface{}{
		"capacity":  mm.capacity,
		"pagesize":  mm.pagesize,
		"allocated": atomic.LoadInt64(&mm.allocated),
		"n_allocs":  atomic.LoadInt64(&mm.n_allocs),
		"n_frees":   atomic.LoadInt64(&mm.n_frees),
		"n_fails":   atomic.LoadInt64(&mm.n_fails),
	}
}
