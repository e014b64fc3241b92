//go:build !debug

package malloc

import "unsafe"

// initblock zero fills freshly allocated heap memory.
func initblock(ptr unsafe.Pointer, size int64) {
	clear(unsafe.Slice((*byte)(ptr), size))
}
