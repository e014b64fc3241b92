// Package hashmap implements chained hash maps over memory obtained
// from malloc.Manager. Hashmap holds a single value per key, Multimap
// holds any number of values per key.
//
// Storage is a single block split into parallel arrays of values,
// keys, next links and bucket heads, entries are addressed by int32
// index. The next array doubles as hash chain link and free list
// link, an entry index is either in a bucket chain, in one of the
// per-worker free lists or beyond the allocated length.
//
// Concurrency:
//
// Parallelwriter allows any number of goroutines to add entries
// concurrently, each goroutine identifies itself with a worker index
// in [0, workers). Lookups may run concurrently with adds. Remove,
// Clear, Setcapacity and the single-writer Tryadd that may grow the
// map, must not run concurrently with other writers.
//
// Keys and values are stored outside golang managed memory, hence
// their types must not contain pointers, strings, slices, maps,
// channels, functions or interfaces.
package hashmap
