package container

import "fmt"
import "unsafe"
import "reflect"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import "github.com/bnclabs/umem/malloc"

// storage is a typed slice over a block allocated from manager.
type storage[T any] struct {
	mgr    *malloc.Manager
	handle api.Handle
	block  api.Block
	items  []T // len(items) is capacity
}

func checkelement[T any]() {
	var item T
	if typ := reflect.TypeFor[T](); lib.Haspointers(typ) {
		panicerr("container element type %v holds pointers", typ)
	} else if unsafe.Sizeof(item) == 0 {
		panicerr("container element type %v is zero sized", typ)
	}
}

// allocate n items, previous storage is left untouched.
func (st *storage[T]) allocate(n int) (api.Block, []T, error) {
	var item T
	size, align := int(unsafe.Sizeof(item)), int(unsafe.Alignof(item))
	block, err := st.mgr.Allocate(st.handle, size, align, n)
	if err != nil {
		return block, nil, err
	} else if n == 0 {
		return block, nil, nil
	}
	return block, unsafe.Slice((*T)(block.Range.Pointer), n), nil
}

// resize storage to n items, copying upto n existing items.
func (st *storage[T]) resize(n int) error {
	block, items, err := st.allocate(n)
	if err != nil {
		return err
	}
	copy(items, st.items)
	if err := st.mgr.Freeblock(&st.block); err != nil {
		st.mgr.Freeblock(&block)
		return err
	}
	st.block, st.items = block, items
	return nil
}

func (st *storage[T]) release() error {
	err := st.mgr.Freeblock(&st.block)
	st.items = nil
	return err
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
