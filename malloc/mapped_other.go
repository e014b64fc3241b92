//go:build !(linux || darwin || freebsd)

package malloc

import "github.com/bnclabs/umem/api"

// mapped handle falls back to heap where anonymous mappings are
// not available.
func newmapped(capacity int64) strategy {
	return newheap(api.Mapped, capacity)
}
