package main

import "fmt"
import "flag"
import "sync"
import "math/rand"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"
import humanize "github.com/dustin/go-humanize"

var options struct {
	slabsize int
	count    int
	minsize  int
	par      int
	repeat   int
	hold     int
}

func argParse() {
	flag.IntVar(&options.slabsize, "size", 256,
		"slab size in bytes")
	flag.IntVar(&options.count, "count", 4096,
		"number of slabs")
	flag.IntVar(&options.minsize, "minsize", 32,
		"minimum request size, requests are between [minsize, size]")
	flag.IntVar(&options.par, "par", 8,
		"number of concurrent allocators")
	flag.IntVar(&options.repeat, "repeat", 100000,
		"number of allocations per allocator")
	flag.IntVar(&options.hold, "hold", 64,
		"number of blocks held by each allocator before freeing")
	flag.Parse()
}

func main() {
	argParse()

	mgr := malloc.NewManager("slabs", nil)
	defer mgr.Shutdown()

	setts := s.Settings{
		"slab.size":  int64(options.slabsize),
		"slab.count": int64(options.count),
	}
	slab, err := malloc.Newslab(mgr, setts)
	if err != nil {
		fmt.Printf("unable to create slab allocator: %v\n", err)
		return
	}
	defer slab.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	waste, peak := &lib.AverageInt64{}, int64(0)
	for n := 0; n < options.par; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w, p := allocator(mgr, slab, n)
			mu.Lock()
			defer mu.Unlock()
			if p > peak {
				peak = p
			}
			waste.Add(w.Mean())
		}(n)
	}
	wg.Wait()

	tellutilization(slab, waste, peak)
}

func allocator(
	mgr *malloc.Manager, slab *malloc.Slab, n int) (*lib.AverageInt64, int64) {

	rnd := rand.New(rand.NewSource(int64(n)))
	waste, peak := &lib.AverageInt64{}, int64(0)
	held := make([]api.Block, 0, options.hold)
	span := options.slabsize - options.minsize + 1
	for i := 0; i < options.repeat; i++ {
		size := options.minsize + rnd.Intn(span)
		block, err := mgr.Allocate(slab.Handle(), 1, 1, size)
		if err == nil {
			waste.Add(int64(options.slabsize - size))
			held = append(held, block)
		}
		if occupied := slab.Occupied(); occupied > peak {
			peak = occupied
		}
		if len(held) == cap(held) || err != nil {
			for i := range held {
				mgr.Freeblock(&held[i])
			}
			held = held[:0]
		}
	}
	for i := range held {
		mgr.Freeblock(&held[i])
	}
	return waste, peak
}

func tellutilization(slab *malloc.Slab, waste *lib.AverageInt64, peak int64) {
	stats := slab.Stats()
	fmt.Println(lib.Prettystats(stats, true))
	fmt.Printf("slab size %v, slabs %v, storage %v\n",
		humanize.Bytes(uint64(slab.Slabsize())), slab.Slabs(),
		humanize.Bytes(uint64(slab.Slabsize()*slab.Slabs())))
	fmt.Printf("peak occupancy %v/%v (%.2f%%)\n",
		peak, slab.Slabs(), float64(peak)*100/float64(slab.Slabs()))
	util := 1 - (float64(waste.Mean()) / float64(slab.Slabsize()))
	fmt.Printf("mean waste per block %v bytes, util %.2f\n", waste.Mean(), util)
	fmt.Printf("occupied after run %v\n", slab.Occupied())
}
