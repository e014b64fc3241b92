package api

import "errors"

// ErrorInvalidHandle request against an invalid or unassigned handle.
var ErrorInvalidHandle = errors.New("malloc.invalidhandle")

// ErrorReservedHandle attempt to install over a built-in handle.
var ErrorReservedHandle = errors.New("malloc.reservedhandle")

// ErrorNoAllocator no allocator installed for user handle.
var ErrorNoAllocator = errors.New("malloc.noallocator")

// ErrorOutofHandles user handle space exhausted.
var ErrorOutofHandles = errors.New("malloc.outofhandles")

// ErrorAllocationFailed strategy could not satisfy the request, for
// example stack or slab out of room, budget exceeded.
var ErrorAllocationFailed = errors.New("malloc.allocationfailed")

// ErrorInvalidFree freeing memory not owned by the strategy, or not
// freeable under its discipline.
var ErrorInvalidFree = errors.New("malloc.invalidfree")

// ErrorReallocation resizing an allocated block is not supported.
var ErrorReallocation = errors.New("malloc.reallocation")

// ErrorClosed request after the manager was shutdown.
var ErrorClosed = errors.New("malloc.closed")

// ErrorCapacityShrink capacity below current count.
var ErrorCapacityShrink = errors.New("hashmap.capacityshrink")

// ErrorMapFull all free lists exhausted on a map that cannot grow.
var ErrorMapFull = errors.New("hashmap.full")

var errcodes = map[error]int32{
	ErrorInvalidHandle:    1,
	ErrorReservedHandle:   2,
	ErrorNoAllocator:      3,
	ErrorOutofHandles:     4,
	ErrorAllocationFailed: 5,
	ErrorInvalidFree:      6,
	ErrorReallocation:     7,
	ErrorClosed:           8,
	ErrorCapacityShrink:   9,
	ErrorMapFull:          10,
}

// Errorcode map err to a stable integer code, 0 for nil and -1 for
// errors not defined by this package.
func Errorcode(err error) int32 {
	if err == nil {
		return 0
	}
	for e, code := range errcodes {
		if errors.Is(err, e) {
			return code
		}
	}
	return -1
}
