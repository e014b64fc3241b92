package container

import "math/bits"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"

// Bitarray is a fixed length array of bits packed into 64-bit words.
type Bitarray struct {
	storage[uint64]
	nbits int64
}

// NewBitarray create an array of nbits cleared bits. Only "allocator"
// setting is applicable. Panics if storage cannot be allocated.
func NewBitarray(mgr *malloc.Manager, nbits int64, setts s.Settings) *Bitarray {
	if nbits < 1 {
		panicerr("invalid bitarray length %v", nbits)
	}
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	ba := &Bitarray{nbits: nbits}
	ba.mgr = mgr
	ba.handle = api.Handle(setts.Int64("allocator"))
	if err := ba.resize(int((nbits + 63) / 64)); err != nil {
		panicerr("bitarray allocate: %w", err)
	}
	ba.Clear()
	return ba
}

// Length number of bits.
func (ba *Bitarray) Length() int64 {
	return ba.nbits
}

// Set bit at pos.
func (ba *Bitarray) Set(pos int64, value bool) {
	ba.checkrange(pos, 1)
	word := lib.Bit64(ba.items[pos>>6])
	if value {
		ba.items[pos>>6] = uint64(word.Setbit(uint8(pos & 63)))
	} else {
		ba.items[pos>>6] = uint64(word.Clearbit(uint8(pos & 63)))
	}
}

// Isset return true if bit at pos is set.
func (ba *Bitarray) Isset(pos int64) bool {
	ba.checkrange(pos, 1)
	return lib.Bit64(ba.items[pos>>6]).Isset(uint8(pos & 63))
}

// Setbits write the low n bits of value starting at pos, n must
// not exceed 64. Range may span two words.
func (ba *Bitarray) Setbits(pos int64, value uint64, n uint8) {
	ba.checkrange(pos, n)
	w, off := pos>>6, uint(pos&63)
	mask := lib.Mask(n)
	value &= mask
	ba.items[w] = (ba.items[w] &^ (mask << off)) | (value << off)
	if off+uint(n) > 64 {
		shift := 64 - off
		ba.items[w+1] = (ba.items[w+1] &^ (mask >> shift)) | (value >> shift)
	}
}

// Getbits read n bits starting at pos, n must not exceed 64.
func (ba *Bitarray) Getbits(pos int64, n uint8) uint64 {
	ba.checkrange(pos, n)
	w, off := pos>>6, uint(pos&63)
	value := ba.items[w] >> off
	if off+uint(n) > 64 {
		value |= ba.items[w+1] << (64 - off)
	}
	return value & lib.Mask(n)
}

// Testany return true if any bit is set.
func (ba *Bitarray) Testany() bool {
	for _, word := range ba.items {
		if word != 0 {
			return true
		}
	}
	return false
}

// Testall return true if all bits are set.
func (ba *Bitarray) Testall() bool {
	last := len(ba.items) - 1
	for _, word := range ba.items[:last] {
		if word != ^uint64(0) {
			return false
		}
	}
	mask := lib.Mask(uint8(ba.nbits - int64(last)*64))
	return (ba.items[last] & mask) == mask
}

// Countbits return number of bits set.
func (ba *Bitarray) Countbits() (n int64) {
	for _, word := range ba.items {
		n += int64(bits.OnesCount64(word))
	}
	return n
}

// Clear all bits.
func (ba *Bitarray) Clear() {
	clear(ba.items)
}

// Release storage, bitarray is not usable after this call.
func (ba *Bitarray) Release() error {
	ba.nbits = 0
	return ba.release()
}

func (ba *Bitarray) checkrange(pos int64, n uint8) {
	if n > 64 {
		panicerr("cannot access %v bits, maximum 64", n)
	} else if pos < 0 || pos+int64(n) > ba.nbits {
		panicerr("bit range [%v, %v) out of [0, %v)", pos, pos+int64(n), ba.nbits)
	}
}
