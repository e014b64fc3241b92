// Package api define types and interfaces common to allocators and
// containers implemented by this module.
package api

// Allocator strategy. Try shall inspect the block and allocate memory
// if block.Range.Pointer is nil, free memory if block describes zero
// bytes, and fail with ErrorReallocation for anything else. Try shall
// never panic, failures are reported as one of the errors defined in
// this package.
type Allocator interface {
	Try(block *Block) error
}

// Tryfunc adapts an ordinary function, typically a closure over
// allocator state, as an Allocator.
type Tryfunc func(block *Block) error

// Try implement Allocator{} interface.
func (fn Tryfunc) Try(block *Block) error {
	return fn(block)
}

// Jobhandle opaque completion token for asynchronous tasks. Done
// channel shall be closed once the task is complete.
type Jobhandle interface {
	Done() <-chan struct{}
}
