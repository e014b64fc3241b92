package malloc

import "fmt"
import "sync"
import "testing"
import "unsafe"
import "math/rand"

import "github.com/bnclabs/umem/api"
import s "github.com/bnclabs/gosettings"
import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestSlabOccupancy(t *testing.T) {
	m := NewManager("slab", nil)
	defer m.Shutdown()

	setts := s.Settings{"slab.size": int64(64), "slab.count": int64(100)}
	slab, err := Newslab(m, setts)
	require.NoError(t, err)
	assert.Equal(t, int64(6400), m.Allocated(api.Persistent))
	assert.Equal(t, int64(100), slab.Slabs())

	blocks := make([]api.Block, 0, 100)
	for i := 0; i < 100; i++ {
		block, err := m.Allocate(slab.Handle(), 8, 8, 8)
		require.NoError(t, err)
		blocks = append(blocks, block)
	}
	assert.Equal(t, int64(100), slab.Occupied())
	assert.Equal(t, float64(1), slab.Utilization())
	_, err = m.Allocate(slab.Handle(), 8, 8, 1)
	require.ErrorIs(t, err, api.ErrorAllocationFailed)

	for i := range blocks {
		require.NoError(t, m.Freeblock(&blocks[i]))
	}
	assert.Equal(t, int64(0), slab.Occupied())
	assert.Equal(t, int64(0), slab.Allocated())
	assert.Equal(t, int64(6400), slab.Available())

	require.NoError(t, slab.Release())
	assert.Equal(t, int64(0), m.Allocated(api.Persistent))
}

func TestSlabReject(t *testing.T) {
	m := NewManager("slab", nil)
	defer m.Shutdown()

	setts := s.Settings{
		"slab.size": int64(64), "slab.count": int64(100), "slab.budget": int64(128),
	}
	slab, err := Newslab(m, setts)
	require.NoError(t, err)
	defer slab.Release()

	// larger than a slab.
	_, err = m.Allocate(slab.Handle(), 65, 8, 1)
	require.ErrorIs(t, err, api.ErrorAllocationFailed)
	// alignment beyond slab size.
	_, err = m.Allocate(slab.Handle(), 8, 128, 1)
	require.ErrorIs(t, err, api.ErrorAllocationFailed)

	// budget allows two slabs.
	a, err := m.Allocate(slab.Handle(), 1, 64, 64)
	require.NoError(t, err)
	if x := uintptr(a.Range.Pointer) % 64; x != 0 {
		t.Errorf("expected 64 byte alignment, got %v", x)
	}
	b, err := m.Allocate(slab.Handle(), 1, 1, 1)
	require.NoError(t, err)
	_, err = m.Allocate(slab.Handle(), 1, 1, 1)
	require.ErrorIs(t, err, api.ErrorAllocationFailed)

	// invalid frees.
	var x int64
	err = m.Free(slab.Handle(), unsafe.Pointer(&x), 1, 1, 1)
	require.ErrorIs(t, err, api.ErrorInvalidFree)
	err = m.Free(slab.Handle(), unsafe.Add(b.Range.Pointer, 8), 1, 1, 1)
	require.ErrorIs(t, err, api.ErrorInvalidFree)
	ptr := b.Range.Pointer
	require.NoError(t, m.Freeblock(&b))
	require.ErrorIs(t, m.Free(slab.Handle(), ptr, 1, 1, 1), api.ErrorInvalidFree)

	require.NoError(t, m.Freeblock(&a))
	assert.Equal(t, int64(0), slab.Occupied())
	stats := slab.Stats()
	assert.Equal(t, int64(2), stats["n_allocs"])
	assert.Equal(t, int64(2), stats["n_frees"])
	assert.Equal(t, int64(3), stats["n_fails"])
}

type testalloc struct {
	n     byte
	block api.Block
}

func TestSlabConcurrent(t *testing.T) {
	m := NewManager("slab", nil)
	defer m.Shutdown()

	setts := s.Settings{"slab.size": int64(64), "slab.count": int64(2048)}
	slab, err := Newslab(m, setts)
	require.NoError(t, err)
	defer slab.Release()

	var awg, fwg sync.WaitGroup
	nroutines, repeat := 8, 2000

	chans := make([]chan testalloc, 0, nroutines)
	for n := 0; n < nroutines; n++ {
		chans = append(chans, make(chan testalloc, 100))
	}
	awg.Add(nroutines)
	fwg.Add(nroutines)
	for n := 0; n < nroutines; n++ {
		go testallocator(m, slab.Handle(), byte(n), repeat, chans, &awg)
		go testfree(m, chans[n], &fwg)
	}
	awg.Wait()
	for _, ch := range chans {
		close(ch)
	}
	fwg.Wait()

	stats := slab.Stats()
	assert.Equal(t, int64(nroutines*repeat), stats["n_allocs"])
	assert.Equal(t, int64(nroutines*repeat), stats["n_frees"])
	assert.Equal(t, int64(0), stats["n_fails"])
	assert.Equal(t, int64(0), slab.Occupied())
}

func testallocator(
	m *Manager, handle api.Handle, n byte, repeat int,
	chans []chan testalloc, wg *sync.WaitGroup) {

	defer wg.Done()

	for i := 0; i < repeat; i++ {
		size := 1 + rand.Intn(64)
		block, err := m.Allocate(handle, 1, 1, size)
		if err != nil {
			panic(err)
		}
		data := block.Slice()
		for j := range data {
			data[j] = n
		}
		chans[rand.Intn(len(chans))] <- testalloc{n: n, block: block}
	}
}

func testfree(m *Manager, ch chan testalloc, wg *sync.WaitGroup) {
	defer wg.Done()

	for msg := range ch {
		for _, c := range msg.block.Slice() {
			if c != msg.n {
				panic(fmt.Errorf("expected %v, got %v", msg.n, c))
			}
		}
		if err := m.Freeblock(&msg.block); err != nil {
			panic(err)
		}
	}
}
