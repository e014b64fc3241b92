package malloc

import "unsafe"
import "sync/atomic"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import s "github.com/bnclabs/gosettings"

// stackmark size of mark word preceding every allocation.
const stackmark = 8

// Stack allocator bumps a cursor through a storage block. Memory must
// be released in the reverse order of allocation, only the most
// recent allocation can be freed. Every allocation is preceded by a
// mark word holding the cursor before the allocation, freeing the
// allocation restores the cursor to the mark.
type Stack struct {
	// 64-bit aligned stats
	top      int64 // offset into storage
	n_allocs int64
	n_frees  int64
	n_fails  int64

	m       *Manager
	handle  api.Handle
	storage api.Block
	base    unsafe.Pointer
	size    int64
}

// NewStack wrap storage block as a stack allocator. Returned allocator
// is not registered with any manager.
func NewStack(storage api.Block) *Stack {
	return &Stack{
		handle:  api.Invalid,
		storage: storage,
		base:    storage.Range.Pointer,
		size:    storage.Allocatedbytes(),
	}
}

// Newstack allocate storage from manager and register a new stack
// allocator, refer to Defaultsettings() for "stack.*" settings.
func Newstack(m *Manager, setts s.Settings) (*Stack, error) {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	capacity := setts.Int64("stack.capacity")
	storagehandle := api.Handle(setts.Int64("stack.storage"))

	storage, err := m.Allocate(storagehandle, 1, Cacheline, int(capacity))
	if err != nil {
		return nil, err
	}
	stack := NewStack(storage)
	stack.m = m
	if stack.handle, err = m.Register(stack); err != nil {
		m.Freeblock(&stack.storage)
		return nil, err
	}
	infof("%v registered stack allocator %v, capacity %v", m.logprfx, stack.handle, capacity)
	return stack, nil
}

// Handle return registered handle for this allocator.
func (stack *Stack) Handle() api.Handle {
	return stack.handle
}

// Try implement api.Allocator{} interface.
func (stack *Stack) Try(block *api.Block) error {
	if block.Range.Pointer == nil {
		return stack.alloc(block)
	} else if block.Bytes() == 0 {
		return stack.free(block)
	}
	return api.ErrorReallocation
}

func (stack *Stack) alloc(block *api.Block) error {
	size, align := block.Bytes(), block.Alignment()
	if size == 0 {
		block.Allocateditems = 0
		return nil
	} else if align < stackmark {
		align = stackmark
	}
	base := int64(uintptr(stack.base))
	for {
		top := atomic.LoadInt64(&stack.top)
		start := lib.Alignup(base+top+stackmark, align) - base
		if start+size > stack.size {
			atomic.AddInt64(&stack.n_fails, 1)
			return api.ErrorAllocationFailed
		}
		if atomic.CompareAndSwapInt64(&stack.top, top, start+size) {
			*(*int64)(unsafe.Add(stack.base, start-stackmark)) = top
			block.Range.Pointer = unsafe.Add(stack.base, start)
			block.Allocateditems = block.Range.Items
			atomic.AddInt64(&stack.n_allocs, 1)
			return nil
		}
	}
}

func (stack *Stack) free(block *api.Block) error {
	ptr, base := uintptr(block.Range.Pointer), uintptr(stack.base)
	if ptr < base+stackmark || int64(ptr-base) >= stack.size {
		return api.ErrorInvalidFree
	}
	start := int64(ptr - base)
	end := start + block.Allocatedbytes()
	if end != atomic.LoadInt64(&stack.top) {
		return api.ErrorInvalidFree
	}
	mark := *(*int64)(unsafe.Add(stack.base, start-stackmark))
	if mark < 0 || mark > start-stackmark {
		return api.ErrorInvalidFree
	} else if !atomic.CompareAndSwapInt64(&stack.top, end, mark) {
		return api.ErrorInvalidFree
	}
	atomic.AddInt64(&stack.n_frees, 1)
	block.Range.Pointer, block.Allocateditems = nil, 0
	return nil
}

// Top return the current offset of stack cursor.
func (stack *Stack) Top() int64 {
	return atomic.LoadInt64(&stack.top)
}

// Rewind stack cursor to `top`, an offset previously obtained from
// Top(). All allocations made after that are released at once.
func (stack *Stack) Rewind(top int64) {
	if top < 0 || top > atomic.LoadInt64(&stack.top) {
		panicerr("cannot rewind stack to %v, current top %v", top, stack.Top())
	}
	atomic.StoreInt64(&stack.top, top)
}

// Capacity return size of storage block.
func (stack *Stack) Capacity() int64 {
	return stack.size
}

// Allocated return bytes consumed by the stack, including marks and
// padding.
func (stack *Stack) Allocated() int64 {
	return stack.Top()
}

// Release uninstall allocator from its manager and free its storage.
func (stack *Stack) Release() error {
	if stack.m == nil {
		return nil
	}
	if err := stack.m.Uninstall(stack.handle); err != nil {
		return err
	}
	err := stack.m.Freeblock(&stack.storage)
	stack.m, stack.handle, stack.base, stack.size = nil, api.Invalid, nil, 0
	return err
}

// Stats return allocation counters.
func (stack *Stack) Stats() map[string]interface{} {
	return map[string]interface{}{
		"capacity":  stack.size,
		"allocated": stack.Top(),
		"n_allocs":  atomic.LoadInt64(&stack.n_allocs),
		"n_frees":   atomic.LoadInt64(&stack.n_frees),
		"n_fails":   atomic.LoadInt64(&stack.n_fails),
	}
}
