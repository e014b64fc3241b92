package hashmap

import "runtime"

import "github.com/bnclabs/umem/api"
import s "github.com/bnclabs/gosettings"

// Defaultsettings for Hashmap and Multimap.
//
// "capacity" (int64, default: 1024)
//		Number of entries the map can hold before it is full.
//
// "workers" (int64, default: <GOMAXPROCS>)
//		Number of concurrent writers, each gets its own free list.
//
// "growable" (bool, default: true)
//		Double the capacity when map is full. Applicable only to
//		single writer Tryadd, Add and Set.
//
// "allocator" (int64, default: api.Persistent)
//		Allocator handle for backing storage. Growing a map frees
//		its old storage after allocating the new one, hence a map
//		backed by a stack allocator must not grow.
func Defaultsettings() s.Settings {
	return s.Settings{
		"capacity":  int64(1024),
		"workers":   int64(runtime.GOMAXPROCS(0)),
		"growable":  true,
		"allocator": int64(api.Persistent),
	}
}
