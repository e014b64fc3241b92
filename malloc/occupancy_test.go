package malloc

import "sync"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestOccupancy(t *testing.T) {
	for _, nbits := range []int64{1, 63, 64, 65, 1000} {
		occ := newoccupancy(nbits)
		assert.Equal(t, int64(0), occ.count())

		for i := int64(0); i < nbits; i++ {
			if x := occ.acquire(); x != i {
				t.Fatalf("nbits %v expected %v, got %v", nbits, i, x)
			}
		}
		assert.Equal(t, nbits, occ.count())
		assert.Equal(t, int64(-1), occ.acquire())

		require.True(t, occ.release(nbits/2))
		require.False(t, occ.release(nbits/2))
		require.False(t, occ.release(nbits))
		require.False(t, occ.isset(nbits/2))
		assert.Equal(t, nbits/2, occ.acquire())

		for i := int64(0); i < nbits; i++ {
			require.True(t, occ.release(i))
		}
		assert.Equal(t, int64(0), occ.count())
		if occ.sizeof() <= 0 {
			t.Errorf("unexpected sizeof %v", occ.sizeof())
		}
	}

	require.Panics(t, func() { newoccupancy(0) })
}

func TestOccupancyConcurrent(t *testing.T) {
	nbits, nroutines := int64(4096), 8
	occ := newoccupancy(nbits)

	var wg sync.WaitGroup
	acquired := make([][]int64, nroutines)
	for n := 0; n < nroutines; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := int64(0); i < nbits/int64(nroutines); i++ {
				acquired[n] = append(acquired[n], occ.acquire())
			}
		}(n)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, list := range acquired {
		for _, nth := range list {
			require.True(t, nth >= 0)
			require.False(t, seen[nth])
			seen[nth] = true
		}
	}
	assert.Equal(t, nbits, occ.count())
	assert.Equal(t, int64(-1), occ.acquire())
}
