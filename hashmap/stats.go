package hashmap

import "sync/atomic"

import "github.com/bnclabs/umem/lib"
import humanize "github.com/dustin/go-humanize"

// Stats return map statistics, including a histogram of chain length
// across buckets. Computing stats walks the entire map.
func (e *engine[K, V]) Stats() map[string]interface{} {
	d := e.data
	chainlen := lib.NewhistorgramInt64(0, 16, 1)
	freelen := int64(0)
	for worker := range d.heads {
		freelen += int64(d.freelen(worker))
	}
	usedbuckets := int64(0)
	for i := range d.buckets {
		n, entry := int64(0), atomic.LoadInt32(&d.buckets[i])
		for entry != nilentry {
			n++
			entry = atomic.LoadInt32(&d.next[entry])
		}
		if n > 0 {
			usedbuckets++
		}
		chainlen.Add(n)
	}
	return map[string]interface{}{
		"count":        int64(d.count()),
		"capacity":     int64(d.capacity),
		"buckets":      int64(len(d.buckets)),
		"buckets.used": usedbuckets,
		"allocatedlen": int64(d.alloclen.Load()),
		"freelist":     freelen,
		"workers":      int64(e.workers),
		"memory":       d.block.Allocatedbytes(),
		"chainlen":     chainlen,
		"n_adds":       atomic.LoadInt64(&e.n_adds),
		"n_dups":       atomic.LoadInt64(&e.n_dups),
		"n_removes":    atomic.LoadInt64(&e.n_removes),
		"n_grows":      atomic.LoadInt64(&e.n_grows),
	}
}

// Log map statistics.
func (e *engine[K, V]) Log(dohumanize bool) {
	stats := e.Stats()
	var memory interface{} = stats["memory"]
	if dohumanize {
		memory = humanize.Bytes(uint64(stats["memory"].(int64)))
	}
	fmsg := "%v count:%v capacity:%v buckets:%v/%v memory:%v"
	infof(fmsg, e.logprfx, stats["count"], stats["capacity"],
		stats["buckets.used"], stats["buckets"], memory)
	fmsg = "%v adds:%v dups:%v removes:%v grows:%v freelist:%v"
	infof(fmsg, e.logprfx, stats["n_adds"], stats["n_dups"],
		stats["n_removes"], stats["n_grows"], stats["freelist"])
	chainlen := stats["chainlen"].(*lib.HistogramInt64)
	infof("%v chain length %v", e.logprfx, chainlen.Logstring())
}
