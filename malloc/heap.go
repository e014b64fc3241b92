package malloc

// #include <stdlib.h>
//
// static void *alignedalloc(size_t align, size_t size) {
//     void *ptr = NULL;
//     if (posix_memalign(&ptr, align, size) != 0) {
//         return NULL;
//     }
//     return ptr;
// }
import "C"

import "unsafe"
import "sync/atomic"

import "github.com/bnclabs/umem/api"

// Heap strategy, memory is obtained from C allocator and is not
// managed by golang runtime. Reallocation is not supported.
type Heap struct {
	// 64-bit aligned stats
	allocated int64
	n_allocs  int64
	n_frees   int64
	n_fails   int64

	handle   api.Handle
	capacity int64
}

func newheap(handle api.Handle, capacity int64) *Heap {
	return &Heap{handle: handle, capacity: capacity}
}

// Try implement api.Allocator{} interface.
func (heap *Heap) Try(block *api.Block) error {
	if block.Range.Pointer == nil {
		return heap.alloc(block)
	} else if block.Bytes() == 0 {
		return heap.free(block)
	}
	return api.ErrorReallocation
}

func (heap *Heap) alloc(block *api.Block) error {
	size := block.Bytes()
	if size == 0 {
		block.Allocateditems = 0
		return nil
	}
	if atomic.AddInt64(&heap.allocated, size) > heap.capacity {
		atomic.AddInt64(&heap.allocated, -size)
		atomic.AddInt64(&heap.n_fails, 1)
		return api.ErrorAllocationFailed
	}
	align := block.Alignment()
	if align < Minalignment {
		align = Minalignment
	}
	ptr := C.alignedalloc(C.size_t(align), C.size_t(size))
	if ptr == nil {
		atomic.AddInt64(&heap.allocated, -size)
		atomic.AddInt64(&heap.n_fails, 1)
		return api.ErrorAllocationFailed
	}
	initblock(unsafe.Pointer(ptr), size)
	block.Range.Pointer = unsafe.Pointer(ptr)
	block.Allocateditems = block.Range.Items
	atomic.AddInt64(&heap.n_allocs, 1)
	return nil
}

func (heap *Heap) free(block *api.Block) error {
	C.free(block.Range.Pointer)
	atomic.AddInt64(&heap.allocated, -block.Allocatedbytes())
	atomic.AddInt64(&heap.n_frees, 1)
	block.Range.Pointer, block.Allocateditems = nil, 0
	return nil
}

// Allocated return number of bytes outstanding.
func (heap *Heap) Allocated() int64 {
	return atomic.LoadInt64(&heap.allocated)
}

// Capacity return the byte budget for this heap.
func (heap *Heap) Capacity() int64 {
	return heap.capacity
}

// Stats return allocation counters.
func (heap *Heap) Stats() map[string]interface{} {
	return map[string]interface{}{
		"capacity":  heap.capacity,
		"allocated": atomic.LoadInt64(&heap.allocated),
		"n_allocs":  atomic.LoadInt64(&heap.n_allocs),
		"n_frees":   atomic.LoadInt64(&heap.n_frees),
		"n_fails":   atomic.LoadInt64(&heap.n_fails),
	}
}
