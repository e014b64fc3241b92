package malloc

import "unsafe"
import "sync/atomic"

import "github.com/bnclabs/umem/lib"

// occupancy bitmap, one bit per slab packed into 64-bit words, a set
// bit marks an occupied slab. Bits are set and cleared with CAS so
// that allocation and free can proceed concurrently.
type occupancy struct {
	hint    int64 // word to start scanning from, 64-bit aligned
	nbits   int64
	padbits int64
	words   []uint64
}

func newoccupancy(nbits int64) *occupancy {
	if nbits <= 0 {
		panicerr("occupancy bitmap needs atleast one bit, got %v", nbits)
	}
	occ := &occupancy{nbits: nbits, words: make([]uint64, ceil(nbits, 64))}
	// bits beyond nbits are marked occupied, so they never get
	// allocated.
	if x := nbits % 64; x > 0 {
		occ.padbits = 64 - x
		occ.words[len(occ.words)-1] = ^lib.Mask(uint8(x))
	}
	return occ
}

// acquire set the first cleared bit and return its index, return -1
// if all bits are set.
func (occ *occupancy) acquire() int64 {
	nwords := int64(len(occ.words))
	start := atomic.LoadInt64(&occ.hint)
	for i := int64(0); i < nwords; i++ {
		w := (start + i) % nwords
		for {
			old := atomic.LoadUint64(&occ.words[w])
			n := lib.Bit64(old).Findfirstzero()
			if n < 0 {
				break
			}
			word := uint64(lib.Bit64(old).Setbit(uint8(n)))
			if atomic.CompareAndSwapUint64(&occ.words[w], old, word) {
				if w != start {
					atomic.StoreInt64(&occ.hint, w)
				}
				return (w << 6) + int64(n)
			}
		}
	}
	return -1
}

// release clear the nth bit, return false if bit was already cleared.
func (occ *occupancy) release(nth int64) bool {
	if nth < 0 || nth >= occ.nbits {
		return false
	}
	w, n := nth>>6, uint8(nth&0x3f)
	for {
		old := atomic.LoadUint64(&occ.words[w])
		if !lib.Bit64(old).Isset(n) {
			return false
		}
		word := uint64(lib.Bit64(old).Clearbit(n))
		if atomic.CompareAndSwapUint64(&occ.words[w], old, word) {
			if w < atomic.LoadInt64(&occ.hint) {
				atomic.StoreInt64(&occ.hint, w)
			}
			return true
		}
	}
}

func (occ *occupancy) isset(nth int64) bool {
	if nth < 0 || nth >= occ.nbits {
		return false
	}
	word := atomic.LoadUint64(&occ.words[nth>>6])
	return lib.Bit64(word).Isset(uint8(nth & 0x3f))
}

// count number of occupied bits.
func (occ *occupancy) count() (n int64) {
	for i := range occ.words {
		n += int64(lib.Bit64(atomic.LoadUint64(&occ.words[i])).Ones())
	}
	return n - occ.padbits
}

func (occ *occupancy) sizeof() int64 {
	return int64(unsafe.Sizeof(*occ)) + int64(len(occ.words)*8)
}
