// Package malloc supplies the allocator dispatch layer for unmanaged
// containers. Memory handed out by this package is not managed by
// golang runtime, it must be explicitly freed and it must not hold
// references to golang managed memory.
//
// Manager is the registry. It maps small integer handles to allocator
// strategies. Handles below api.FirstUserIndex are built-in and are
// dispatched with a switch, without a table lookup:
//
//   api.Invalid    : every request fails.
//   api.None       : allocation fails, free is a no-op.
//   api.Temp       : heap, scratch memory.
//   api.Tempjob    : heap, scratch memory handed to asynchronous tasks.
//   api.Persistent : heap.
//   api.Mapped     : page granular virtual memory obtained from OS.
//
// Handles at or above api.FirstUserIndex are installed by applications,
// typically a Stack or a Slab allocator carved out of a built-in block.
//
// Every request is a Try operation on api.Block, returning an error and
// never panicking. Mustallocate is the only place where an allocation
// failure turns fatal.
package malloc
