package malloc

import "github.com/bnclabs/umem/api"
import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// Cacheline alignment used for storage blocks, should always be
// power of 2.
const Cacheline = 64

// Minalignment alignment for every heap allocation.
const Minalignment = 8

// Maxheapsize used as heap capacity when system memory cannot be
// detected.
const Maxheapsize = int64(1024 * 1024 * 1024 * 1024) // 1TB

// Defaultsettings for Manager and the allocators hosted by it.
//
// "heap.capacity" (int64, default: <free system memory>)
//		Maximum number of bytes outstanding on each of the built-in
//		heap handles, and on the mapped handle.
//
// "stack.capacity" (int64, default: 1MB)
//		Size of storage block managed by a Stack allocator.
//
// "stack.storage" (int64, default: api.Persistent)
//		Handle to allocate stack storage from.
//
// "slab.size" (int64, default: 256)
//		Size of each slab, in bytes.
//
// "slab.count" (int64, default: 4096)
//		Number of slabs in storage block.
//
// "slab.budget" (int64, default: 0)
//		Maximum number of bytes outstanding, zero means
//		slab.size * slab.count.
//
// "slab.storage" (int64, default: api.Persistent)
//		Handle to allocate slab storage from.
func Defaultsettings() s.Settings {
	_, _, free := getsysmem()
	capacity := int64(free)
	if capacity <= 0 || capacity > Maxheapsize {
		capacity = Maxheapsize
	}
	return s.Settings{
		"heap.capacity":  capacity,
		"stack.capacity": int64(1024 * 1024),
		"stack.storage":  int64(api.Persistent),
		"slab.size":      int64(256),
		"slab.count":     int64(4096),
		"slab.budget":    int64(0),
		"slab.storage":   int64(api.Persistent),
	}
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return 0, 0, 0
	}
	return mem.Total, mem.Used, mem.ActualFree
}
