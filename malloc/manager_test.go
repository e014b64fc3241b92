package malloc

import "errors"
import "testing"
import "unsafe"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import s "github.com/bnclabs/gosettings"
import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestDefaultsettings(t *testing.T) {
	setts := Defaultsettings()
	if x := setts.Int64("heap.capacity"); x <= 0 || x > Maxheapsize {
		t.Errorf("unexpected heap.capacity %v", x)
	}
	assert.Equal(t, int64(api.Persistent), setts.Int64("stack.storage"))
	assert.Equal(t, int64(api.Persistent), setts.Int64("slab.storage"))
	assert.Equal(t, int64(256), setts.Int64("slab.size"))
}

func TestHeapRoundtrip(t *testing.T) {
	m := NewManager("heap", nil)
	defer m.Shutdown()

	for _, handle := range []api.Handle{api.Temp, api.Tempjob, api.Persistent} {
		block, err := m.Allocate(handle, 8, 64, 100)
		require.NoError(t, err)
		require.NotNil(t, block.Range.Pointer)
		if x := uintptr(block.Range.Pointer) % 64; x != 0 {
			t.Errorf("expected 64 byte alignment, got %v", x)
		}
		assert.Equal(t, int32(100), block.Allocateditems)
		assert.Equal(t, int64(800), m.Allocated(handle))

		data := block.Slice()
		require.Equal(t, 800, len(data))
		for i := range data {
			data[i] = byte(i)
		}

		require.NoError(t, m.Free(handle, block.Range.Pointer, 8, 64, 100))
		assert.Equal(t, int64(0), m.Allocated(handle))
	}

	stats := m.Stats()
	assert.Equal(t, int64(3), stats["n_allocs"])
	assert.Equal(t, int64(3), stats["n_frees"])
	assert.Equal(t, int64(1), stats["persistent.n_allocs"])
	m.Log(true)
}

func TestHeapZerobytes(t *testing.T) {
	m := NewManager("heap", nil)
	defer m.Shutdown()

	block, err := m.Allocate(api.Persistent, 8, 8, 0)
	require.NoError(t, err)
	assert.Nil(t, block.Range.Pointer)
	require.NoError(t, m.Freeblock(&block))
	assert.Equal(t, int64(0), m.Allocated(api.Persistent))
}

func TestHeapBudget(t *testing.T) {
	m := NewManager("budget", s.Settings{"heap.capacity": int64(1024)})
	defer m.Shutdown()

	block, err := m.Allocate(api.Temp, 1, 8, 1000)
	require.NoError(t, err)
	_, err = m.Allocate(api.Temp, 1, 8, 100)
	require.ErrorIs(t, err, api.ErrorAllocationFailed)
	assert.Equal(t, int64(1000), m.Allocated(api.Temp))

	// budget is per handle.
	other, err := m.Allocate(api.Persistent, 1, 8, 1000)
	require.NoError(t, err)

	require.NoError(t, m.Freeblock(&block))
	require.NoError(t, m.Freeblock(&other))
	assert.Nil(t, block.Range.Pointer)
	assert.Equal(t, int32(0), block.Allocateditems)

	require.Panics(t, func() { m.Mustallocate(api.Temp, 1, 8, 2048) })
}

func TestReallocation(t *testing.T) {
	m := NewManager("realloc", nil)
	defer m.Shutdown()

	block, err := m.Allocate(api.Persistent, 4, 8, 16)
	require.NoError(t, err)
	block.Range.Items = 32
	require.ErrorIs(t, m.Try(&block), api.ErrorReallocation)
	require.NotNil(t, block.Range.Pointer)
	require.NoError(t, m.Freeblock(&block))
}

func TestBuiltinHandles(t *testing.T) {
	m := NewManager("builtins", nil)
	defer m.Shutdown()

	_, err := m.Allocate(api.Invalid, 8, 8, 1)
	require.ErrorIs(t, err, api.ErrorInvalidHandle)

	_, err = m.Allocate(api.None, 8, 8, 1)
	require.ErrorIs(t, err, api.ErrorAllocationFailed)
	var x int64
	require.NoError(t, m.Free(api.None, unsafe.Pointer(&x), 8, 8, 1))

	_, err = m.Allocate(api.Handle(7), 8, 8, 1)
	require.ErrorIs(t, err, api.ErrorInvalidHandle)

	_, err = m.Allocate(api.Handle(100), 8, 8, 1)
	require.ErrorIs(t, err, api.ErrorNoAllocator)

	// freeing nil is a no-op, even on invalid handles.
	require.NoError(t, m.Free(api.Invalid, nil, 8, 8, 1))
}

func TestInstall(t *testing.T) {
	m := NewManager("install", nil)
	defer m.Shutdown()

	var calls int
	fail := errors.New("test.fail")
	allocator := api.Tryfunc(func(block *api.Block) error {
		calls++
		return fail
	})

	for handle := api.Invalid; handle < api.FirstUserIndex; handle++ {
		require.ErrorIs(t, m.Install(handle, allocator), api.ErrorReservedHandle)
	}

	require.NoError(t, m.Install(api.Handle(100), allocator))
	assert.NotNil(t, m.Installed(api.Handle(100)))
	_, err := m.Allocate(api.Handle(100), 8, 8, 1)
	require.ErrorIs(t, err, fail)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(-1), m.Allocated(api.Handle(100)))

	require.NoError(t, m.Uninstall(api.Handle(100)))
	assert.Nil(t, m.Installed(api.Handle(100)))
	_, err = m.Allocate(api.Handle(100), 8, 8, 1)
	require.ErrorIs(t, err, api.ErrorNoAllocator)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(0), m.Stats()["n_installed"])
}

func TestRegister(t *testing.T) {
	m := NewManager("register", nil)
	defer m.Shutdown()

	allocator := api.Tryfunc(func(block *api.Block) error { return nil })
	seen := map[api.Handle]bool{}
	for i := 0; i < 100; i++ {
		handle, err := m.Register(allocator)
		require.NoError(t, err)
		require.False(t, handle.Isbuiltin())
		require.False(t, seen[handle])
		seen[handle] = true
	}
	assert.Equal(t, int64(100), m.Stats()["n_installed"])

	m.Shutdown()
	assert.Equal(t, int64(0), m.Stats()["n_installed"])
	_, err := m.Register(allocator)
	require.ErrorIs(t, err, api.ErrorClosed)
}

func TestOutofHandles(t *testing.T) {
	m := NewManager("handles", nil)
	defer m.Shutdown()

	allocator := api.Tryfunc(func(block *api.Block) error { return nil })
	n := api.Maxhandles - int(api.FirstUserIndex)
	for i := 0; i < n; i++ {
		_, err := m.Register(allocator)
		require.NoError(t, err)
	}
	_, err := m.Register(allocator)
	require.ErrorIs(t, err, api.ErrorOutofHandles)

	// a freed handle is picked up again.
	require.NoError(t, m.Uninstall(api.Handle(1000)))
	handle, err := m.Register(allocator)
	require.NoError(t, err)
	assert.Equal(t, api.Handle(1000), handle)
}

func TestShutdown(t *testing.T) {
	m := NewManager("shutdown", nil)
	block, err := m.Allocate(api.Persistent, 8, 8, 8)
	require.NoError(t, err)

	m.Shutdown() // leaks 64 bytes, logged as warning.
	_, err = m.Allocate(api.Persistent, 8, 8, 8)
	require.ErrorIs(t, err, api.ErrorClosed)
	require.ErrorIs(t, m.Freeblock(&block), api.ErrorClosed)
	m.Shutdown()
}

func TestDisposeafter(t *testing.T) {
	m := NewManager("dispose", nil)
	defer m.Shutdown()

	block, err := m.Allocate(api.Tempjob, 8, 8, 8)
	require.NoError(t, err)

	job := lib.NewFence()
	done := m.Disposeafter(block, job)
	assert.Equal(t, int64(64), m.Allocated(api.Tempjob))
	job.Signal()
	<-done.Done()
	assert.Equal(t, int64(0), m.Allocated(api.Tempjob))

	block, err = m.Allocate(api.Tempjob, 8, 8, 8)
	require.NoError(t, err)
	done = m.Disposeafter(block, nil)
	<-done.Done()
	assert.Equal(t, int64(0), m.Allocated(api.Tempjob))
}

func TestMapped(t *testing.T) {
	m := NewManager("mapped", nil)
	defer m.Shutdown()

	block, err := m.Allocate(api.Mapped, 1, 64, 10000)
	require.NoError(t, err)
	require.NotNil(t, block.Range.Pointer)
	if x := m.Allocated(api.Mapped); x < 10000 {
		t.Errorf("expected atleast %v, got %v", 10000, x)
	}
	data := block.Slice()
	for i := range data {
		require.Equal(t, byte(0), data[i])
		data[i] = 0xAB
	}
	require.NoError(t, m.Freeblock(&block))
	assert.Equal(t, int64(0), m.Allocated(api.Mapped))
}

func BenchmarkHeapAllocFree(b *testing.B) {
	m := NewManager("bench", nil)
	defer m.Shutdown()
	for i := 0; i < b.N; i++ {
		block, _ := m.Allocate(api.Temp, 64, 8, 1)
		m.Freeblock(&block)
	}
}

func BenchmarkInstalled(b *testing.B) {
	m := NewManager("bench", nil)
	defer m.Shutdown()
	handle, _ := m.Register(api.Tryfunc(func(block *api.Block) error { return nil }))
	block := api.Newblock(handle, 64, 8, 1)
	for i := 0; i < b.N; i++ {
		m.Try(&block)
	}
}
