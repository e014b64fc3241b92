package main

import "os"
import "fmt"
import "flag"
import "sync"
import "time"
import "runtime"
import "math/rand"
import "runtime/pprof"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import "github.com/bnclabs/umem/log"
import "github.com/bnclabs/umem/hashmap"
import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"
import humanize "github.com/dustin/go-humanize"

var options struct {
	n        int
	par      int
	capacity int
	growable bool
	multi    bool
	dups     int
	seed     int
	loglevel string
	pprof    string
}

func argParse() {
	flag.IntVar(&options.n, "n", 1000000,
		"number of entries to add")
	flag.IntVar(&options.par, "par", runtime.GOMAXPROCS(0),
		"number of concurrent writers")
	flag.IntVar(&options.capacity, "capacity", 0,
		"initial capacity, zero means sized for n")
	flag.BoolVar(&options.growable, "growable", false,
		"load using single writer, growing the map as it fills")
	flag.BoolVar(&options.multi, "multi", false,
		"load a multimap instead of hashmap")
	flag.IntVar(&options.dups, "dups", 0,
		"percentage of keys repeated across writers")
	flag.IntVar(&options.seed, "seed", int(time.Now().UnixNano()%1000000),
		"seed for key generation")
	flag.StringVar(&options.loglevel, "log", "info",
		"log level")
	flag.StringVar(&options.pprof, "pprof", "",
		"dump cpu-profile to file")
	flag.Parse()
}

type writer interface {
	Add(worker int, key, value int64) bool
}

type loader interface {
	Count() int
	Capacity() int
	Containskey(key int64) bool
	Stats() map[string]interface{}
	Log(humanize bool)
	Release()
}

func main() {
	argParse()
	log.SetLogger(nil, map[string]interface{}{"log.level": options.loglevel, "log.file": ""})
	malloc.LogComponents("all")
	hashmap.LogComponents("all")

	if options.pprof != "" {
		fd, err := os.Create(options.pprof)
		if err != nil {
			fmt.Printf("unable to create %q: %v\n", options.pprof, err)
			os.Exit(1)
		}
		defer fd.Close()
		pprof.StartCPUProfile(fd)
		defer pprof.StopCPUProfile()
	}

	mgr := malloc.NewManager("hashload", nil)
	defer mgr.Shutdown()

	capacity := options.capacity
	if capacity == 0 {
		capacity = options.n + options.par
	}
	setts := s.Settings{
		"capacity": int64(capacity),
		"workers":  int64(options.par),
		"growable": options.growable,
	}

	var m loader
	var w writer
	var add func(key, value int64) bool
	if options.multi {
		mm := hashmap.NewMultimap[int64, int64]("load", mgr, nil, setts)
		m, w = mm, mm.Parallelwriter()
		add = func(key, value int64) bool { mm.Add(key, value); return true }
	} else {
		hm := hashmap.NewHashmap[int64, int64]("load", mgr, nil, setts)
		m, w = hm, hm.Parallelwriter()
		add = hm.Tryadd
	}
	defer m.Release()

	var took time.Duration
	var added int64
	if options.growable {
		took, added = loadsingle(add)
	} else {
		took, added = loadparallel(w)
	}
	report(mgr, m, took, added)
	if missing := verify(m); missing > 0 {
		fmt.Printf("verify: %v keys missing\n", missing)
		os.Exit(1)
	}
	fmt.Println("verify: all keys present")
}

func genkey(rnd *rand.Rand, worker, i int) int64 {
	if options.dups > 0 && rnd.Intn(100) < options.dups {
		return int64(i)
	}
	return int64((worker+1)<<40) + int64(i)
}

// verify regenerate keys using the same seeds as the load and count
// keys missing from the map.
func verify(m loader) (missing int64) {
	if options.growable {
		rnd := rand.New(rand.NewSource(int64(options.seed)))
		for i := 0; i < options.n; i++ {
			if !m.Containskey(genkey(rnd, 0, i)) {
				missing++
			}
		}
		return missing
	}
	perworker := options.n / options.par
	for worker := 0; worker < options.par; worker++ {
		rnd := rand.New(rand.NewSource(int64(options.seed + worker)))
		for i := 0; i < perworker; i++ {
			if !m.Containskey(genkey(rnd, worker, i)) {
				missing++
			}
		}
	}
	return missing
}

func loadsingle(add func(key, value int64) bool) (time.Duration, int64) {
	rnd := rand.New(rand.NewSource(int64(options.seed)))
	added, start := int64(0), time.Now()
	for i := 0; i < options.n; i++ {
		if add(genkey(rnd, 0, i), int64(i)) {
			added++
		}
	}
	return time.Since(start), added
}

func loadparallel(w writer) (time.Duration, int64) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	added, start := int64(0), time.Now()
	latency := &lib.AverageInt64{}
	perworker := options.n / options.par
	for worker := 0; worker < options.par; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(options.seed + worker)))
			n, wstart := int64(0), time.Now()
			for i := 0; i < perworker; i++ {
				if w.Add(worker, genkey(rnd, worker, i), int64(i)) {
					n++
				}
			}
			mu.Lock()
			added += n
			latency.Add(int64(time.Since(wstart)) / int64(perworker+1))
			mu.Unlock()
		}(worker)
	}
	wg.Wait()
	fmsg := "per add latency: mean %v, min %v, max %v\n"
	fmt.Printf(fmsg, time.Duration(latency.Mean()), time.Duration(latency.Min()),
		time.Duration(latency.Max()))
	return time.Since(start), added
}

func report(mgr *malloc.Manager, m loader, took time.Duration, added int64) {
	fmt.Printf("added %v entries in %v, count %v, capacity %v\n",
		added, took, m.Count(), m.Capacity())
	if int64(m.Count()) != added {
		fmt.Printf("count mismatch: added %v, count %v\n", added, m.Count())
	}

	stats := m.Stats()
	chainlen := stats["chainlen"].(*lib.HistogramInt64)
	stats["chainlen"] = chainlen.Fullstats()
	fmt.Println(lib.Prettystats(stats, true))

	memory := stats["memory"].(int64)
	fmt.Printf("memory %v, %v per entry\n", humanize.Bytes(uint64(memory)),
		humanize.Bytes(uint64(memory/int64(m.Capacity()))))
	fmt.Printf("persistent heap %v\n",
		humanize.Bytes(uint64(mgr.Allocated(api.Persistent))))
	m.Log(true)
	mgr.Log(true)
}
