package container

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"

// List is a growable array of items.
type List[T any] struct {
	storage[T]
	length int
}

// NewList create an empty list, refer to Defaultsettings() for
// settings. Panics if storage cannot be allocated.
func NewList[T any](mgr *malloc.Manager, setts s.Settings) *List[T] {
	checkelement[T]()
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	list := &List[T]{}
	list.mgr = mgr
	list.handle = api.Handle(setts.Int64("allocator"))
	if err := list.resize(int(setts.Int64("capacity"))); err != nil {
		panicerr("list allocate: %w", err)
	}
	return list
}

// Add item at the end of list, grows storage when full.
func (list *List[T]) Add(item T) {
	if list.length == len(list.items) {
		capacity := len(list.items) * 2
		if capacity == 0 {
			capacity = 1
		}
		if err := list.resize(capacity); err != nil {
			panicerr("list grow to %v: %w", capacity, err)
		}
	}
	list.items[list.length] = item
	list.length++
}

// Get item at index.
func (list *List[T]) Get(index int) T {
	return list.items[list.checkindex(index)]
}

// Set item at index.
func (list *List[T]) Set(index int, item T) {
	list.items[list.checkindex(index)] = item
}

// Removeswapback remove item at index by moving the last item into
// its place.
func (list *List[T]) Removeswapback(index int) T {
	item := list.items[list.checkindex(index)]
	list.length--
	list.items[index] = list.items[list.length]
	return item
}

// Resize list to length items, new items are zero valued.
func (list *List[T]) Resize(length int) error {
	if length < 0 {
		panicerr("invalid list length %v", length)
	} else if length > len(list.items) {
		if err := list.resize(length); err != nil {
			return err
		}
	}
	var zero T
	for i := list.length; i < length; i++ {
		list.items[i] = zero
	}
	list.length = length
	return nil
}

// Setcapacity resize storage, capacity less than length is rejected.
func (list *List[T]) Setcapacity(capacity int) error {
	if capacity < list.length {
		return api.ErrorCapacityShrink
	} else if capacity == len(list.items) {
		return nil
	}
	return list.resize(capacity)
}

// Items return list items as slice, valid until the next call that
// changes capacity.
func (list *List[T]) Items() []T {
	return list.items[:list.length]
}

// Length of list.
func (list *List[T]) Length() int {
	return list.length
}

// Capacity of list.
func (list *List[T]) Capacity() int {
	return len(list.items)
}

// Clear list, storage is retained.
func (list *List[T]) Clear() {
	list.length = 0
}

// Release storage, list is not usable after this call.
func (list *List[T]) Release() error {
	list.length = 0
	return list.release()
}

func (list *List[T]) checkindex(index int) int {
	if index < 0 || index >= list.length {
		panicerr("list index %v out of range [0, %v)", index, list.length)
	}
	return index
}
