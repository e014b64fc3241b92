package hashmap

// Parallelwriter adds entries into a map from concurrent goroutines.
// Each goroutine shall use a distinct worker index, in the range
// [0, Workers()). Parallelwriter never grows the map, map must be
// sized upfront, adding to a full map panics with api.ErrorMapFull.
// Remove, Clear and Setcapacity must not run concurrently with
// a Parallelwriter.
type Parallelwriter[K comparable, V any] struct {
	e *engine[K, V]
}

// Tryadd key and value, return false if key is already present. Two
// workers racing to add the same key will have exactly one of them
// succeed.
func (w *Parallelwriter[K, V]) Tryadd(worker int, key K, value V) bool {
	w.checkworker(worker)
	return w.e.add(worker, key, value, true, false)
}

// Add key and value. For Multimap duplicate keys are allowed, for
// Hashmap this is same as Tryadd.
func (w *Parallelwriter[K, V]) Add(worker int, key K, value V) bool {
	w.checkworker(worker)
	return w.e.add(worker, key, value, !w.e.multi, false)
}

// Workers return number of workers supported by this writer.
func (w *Parallelwriter[K, V]) Workers() int {
	return w.e.workers
}

func (w *Parallelwriter[K, V]) checkworker(worker int) {
	if worker < 0 || worker >= w.e.workers {
		panicerr("%v invalid worker %v, expected [0, %v)", w.e.logprfx, worker, w.e.workers)
	}
}
