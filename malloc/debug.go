//go:build debug

package malloc

import "unsafe"

// initblock poisons freshly allocated heap memory with 0xff, so that
// reads from uninitialized memory show up early.
func initblock(ptr unsafe.Pointer, size int64) {
	dst := unsafe.Slice((*byte)(ptr), size)
	for len(dst) > 0 {
		n := copy(dst, poolblkinit)
		dst = dst[n:]
	}
}
