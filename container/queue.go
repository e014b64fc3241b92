package container

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"

// Queue is a fixed capacity FIFO ring buffer.
type Queue[T any] struct {
	storage[T]
	head   int
	length int
}

// NewQueue create an empty queue of "capacity" items, refer to
// Defaultsettings(). Panics if storage cannot be allocated.
func NewQueue[T any](mgr *malloc.Manager, setts s.Settings) *Queue[T] {
	checkelement[T]()
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	capacity := int(setts.Int64("capacity"))
	if capacity < 1 {
		panicerr("invalid queue capacity %v", capacity)
	}
	queue := &Queue[T]{}
	queue.mgr = mgr
	queue.handle = api.Handle(setts.Int64("allocator"))
	if err := queue.resize(capacity); err != nil {
		panicerr("queue allocate: %w", err)
	}
	return queue
}

// Tryenqueue item at the tail, return false if queue is full.
func (queue *Queue[T]) Tryenqueue(item T) bool {
	if queue.length == len(queue.items) {
		return false
	}
	queue.items[(queue.head+queue.length)%len(queue.items)] = item
	queue.length++
	return true
}

// Trydequeue item from the head, return false if queue is empty.
func (queue *Queue[T]) Trydequeue() (item T, ok bool) {
	if queue.length == 0 {
		return item, false
	}
	item = queue.items[queue.head]
	queue.head = (queue.head + 1) % len(queue.items)
	queue.length--
	return item, true
}

// Peek item at the head without removing it.
func (queue *Queue[T]) Peek() (item T, ok bool) {
	if queue.length == 0 {
		return item, false
	}
	return queue.items[queue.head], true
}

// Length number of items in queue.
func (queue *Queue[T]) Length() int {
	return queue.length
}

// Capacity of queue.
func (queue *Queue[T]) Capacity() int {
	return len(queue.items)
}

// Clear queue, storage is retained.
func (queue *Queue[T]) Clear() {
	queue.head, queue.length = 0, 0
}

// Release storage, queue is not usable after this call.
func (queue *Queue[T]) Release() error {
	queue.head, queue.length = 0, 0
	return queue.release()
}
