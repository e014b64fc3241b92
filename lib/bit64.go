package lib

import "math/bits"

// Bit64 alias for uint64, provides bit twiddling methods on 64-bit number.
type Bit64 uint64

// Ones return number of bits set.
func (b Bit64) Ones() int8 {
	return int8(bits.OnesCount64(uint64(b)))
}

// Zeros return number of bits cleared.
func (b Bit64) Zeros() int8 {
	return 64 - b.Ones()
}

// Findfirstzero return the lowest cleared bit, -1 if all bits are set.
func (b Bit64) Findfirstzero() int8 {
	if b == ^Bit64(0) {
		return -1
	}
	return int8(bits.TrailingZeros64(^uint64(b)))
}

// Findfirstset return the lowest set bit, -1 if no bit is set.
func (b Bit64) Findfirstset() int8 {
	if b == 0 {
		return -1
	}
	return int8(bits.TrailingZeros64(uint64(b)))
}

// Setbit return b with n-th bit set.
func (b Bit64) Setbit(n uint8) Bit64 {
	return b | (1 << n)
}

// Clearbit return b with n-th bit cleared.
func (b Bit64) Clearbit(n uint8) Bit64 {
	return b &^ (1 << n)
}

// Isset return true if n-th bit is set.
func (b Bit64) Isset(n uint8) bool {
	return (b & (1 << n)) != 0
}

// Mask return a mask with `n` low bits set.
func Mask(n uint8) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}
