package lib

import "sync"

// Fence is a one shot completion token. Fence implements api.Jobhandle.
type Fence struct {
	once sync.Once
	ch   chan struct{}
}

// NewFence return an open fence.
func NewFence() *Fence {
	return &Fence{ch: make(chan struct{})}
}

// Closedfence return a fence that is already signalled.
func Closedfence() *Fence {
	fence := NewFence()
	fence.Signal()
	return fence
}

// Signal completion, can be called any number of times.
func (fence *Fence) Signal() {
	fence.once.Do(func() { close(fence.ch) })
}

// Done implement api.Jobhandle interface.
func (fence *Fence) Done() <-chan struct{} {
	return fence.ch
}

// Isdone return true if fence is signalled, does not block.
func (fence *Fence) Isdone() bool {
	select {
	case <-fence.ch:
		return true
	default:
	}
	return false
}
