package api

import "fmt"
import "unsafe"
import "math/bits"

// Handle identify the allocator backing a piece of memory. Handles
// below FirstUserIndex are built-in strategies, dispatched without a
// table lookup. Handles at or above FirstUserIndex are registered by
// applications.
type Handle uint16

const (
	// Invalid handle, every request against it fails.
	Invalid Handle = iota
	// None marks memory not owned by any allocator. Free is a no-op.
	None
	// Temp scratch allocations, expected to live for a frame.
	Temp
	// Tempjob scratch allocations handed over to asynchronous tasks.
	Tempjob
	// Persistent long lived heap allocations.
	Persistent
	// Mapped page granular virtual memory, obtained directly from OS.
	Mapped
)

// FirstUserIndex is the first handle available to Install and Register.
const FirstUserIndex = Handle(32)

// Maxhandles size of the dense handle space.
const Maxhandles = 65536

var builtinnames = map[Handle]string{
	Invalid:    "invalid",
	None:       "none",
	Temp:       "temp",
	Tempjob:    "tempjob",
	Persistent: "persistent",
	Mapped:     "mapped",
}

// Isbuiltin return true if handle is reserved for a built-in strategy.
func (h Handle) Isbuiltin() bool {
	return h < FirstUserIndex
}

func (h Handle) String() string {
	if name, ok := builtinnames[h]; ok {
		return name
	} else if h.Isbuiltin() {
		return fmt.Sprintf("reserved%d", uint16(h))
	}
	return fmt.Sprintf("user%d", uint16(h))
}

// Range describe Items number of items living at Pointer, owned by
// the Allocator. Layout is stable, 16 bytes on 64-bit platforms.
type Range struct {
	Pointer     unsafe.Pointer
	Items       int32
	Allocator   Handle
	Blockhandle uint16
}

// Block is the unit of currency for every allocate and free request.
// A nil Range.Pointer asks for allocation, a zero sized range with a
// non-nil pointer asks for release, anything else is a reallocation
// request. Layout is stable, 32 bytes on 64-bit platforms.
type Block struct {
	Range          Range
	Bytesperitem   int32
	Allocateditems int32
	Log2align      uint8
	_              [7]byte
}

// Newblock return an allocation request for `items` number of
// `itemsize` bytes aligned to `align`, that must be a power of 2.
func Newblock(handle Handle, itemsize, align, items int) Block {
	if align <= 0 || (align&(align-1)) != 0 {
		panic(fmt.Errorf("alignment %v is not a power of 2", align))
	} else if itemsize < 0 || items < 0 {
		panic(fmt.Errorf("negative block size %v x %v", itemsize, items))
	}
	block := Block{
		Bytesperitem: int32(itemsize),
		Log2align:    uint8(bits.TrailingZeros(uint(align))),
	}
	block.Range.Items = int32(items)
	block.Range.Allocator = handle
	return block
}

// Bytes requested by this block.
func (block *Block) Bytes() int64 {
	return int64(block.Bytesperitem) * int64(block.Range.Items)
}

// Allocatedbytes held by this block.
func (block *Block) Allocatedbytes() int64 {
	return int64(block.Bytesperitem) * int64(block.Allocateditems)
}

// Alignment in bytes.
func (block *Block) Alignment() int64 {
	return int64(1) << block.Log2align
}

// Isallocate return true if block is an allocation request.
func (block *Block) Isallocate() bool {
	return block.Range.Pointer == nil
}

// Isfree return true if block is a release request.
func (block *Block) Isfree() bool {
	return block.Range.Pointer != nil && block.Bytes() == 0
}

// Slice return allocated memory as byte slice. Memory is not managed
// by golang runtime, do not retain the slice after block is freed.
func (block *Block) Slice() []byte {
	if block.Range.Pointer == nil {
		return nil
	}
	return unsafe.Slice((*byte)(block.Range.Pointer), block.Allocatedbytes())
}
