package hashmap

import "testing"
import "math/rand"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import "github.com/bnclabs/umem/malloc"
import s "github.com/bnclabs/gosettings"
import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

type point struct {
	x, y int32
}

func newtestmap(t *testing.T, setts s.Settings) (*malloc.Manager, *Hashmap[int64, int64]) {
	mgr := malloc.NewManager(t.Name(), nil)
	m := NewHashmap[int64, int64](t.Name(), mgr, nil, setts)
	t.Cleanup(func() {
		m.Release()
		mgr.Shutdown()
	})
	return mgr, m
}

func TestCapacityFour(t *testing.T) {
	setts := s.Settings{"capacity": int64(4), "growable": false, "workers": int64(2)}
	_, m := newtestmap(t, setts)

	for key := int64(1); key <= 4; key++ {
		require.True(t, m.Tryadd(key, key*10))
	}
	assert.Equal(t, 4, m.Count())
	alloclen := m.data.alloclen.Load()

	_, it, ok := m.Trygetfirst(2)
	require.True(t, ok)
	freed := it.Entry()

	assert.Equal(t, 1, m.Remove(2))
	assert.Equal(t, 3, m.Count())
	_, ok = m.Trygetvalue(2)
	require.False(t, ok)

	require.True(t, m.Tryadd(5, 50))
	assert.Equal(t, alloclen, m.data.alloclen.Load())
	_, it, ok = m.Trygetfirst(5)
	require.True(t, ok)
	assert.Equal(t, freed, it.Entry())
	assert.Equal(t, 4, m.Count())

	for _, key := range []int64{1, 3, 4, 5} {
		value, ok := m.Trygetvalue(key)
		require.True(t, ok)
		assert.Equal(t, key*10, value)
	}

	// full and not growable.
	require.PanicsWithValue(t, api.ErrorMapFull, func() { m.Tryadd(6, 60) })
	// duplicate on a full map is not a failure.
	require.False(t, m.Tryadd(5, 500))
}

func TestDuplicate(t *testing.T) {
	_, m := newtestmap(t, nil)

	for i := 0; i < 100; i++ {
		key := rand.Int63()
		require.True(t, m.Tryadd(key, 1))
		require.False(t, m.Tryadd(key, 2))
		value, ok := m.Trygetvalue(key)
		require.True(t, ok)
		assert.Equal(t, int64(1), value)
	}
	assert.Equal(t, 100, m.Count())
	assert.Equal(t, int64(100), m.Stats()["n_dups"])
}

func TestRemoveReuse(t *testing.T) {
	_, m := newtestmap(t, s.Settings{"capacity": int64(100)})

	for key := int64(0); key < 16; key++ {
		require.True(t, m.Tryadd(key, key))
	}
	alloclen := m.data.alloclen.Load()
	assert.Equal(t, int32(16), alloclen)

	for key := int64(0); key < 16; key += 2 {
		assert.Equal(t, 1, m.Remove(key))
		_, ok := m.Trygetvalue(key)
		require.False(t, ok)
	}
	assert.Equal(t, 0, m.Remove(0))
	assert.Equal(t, 8, m.Count())

	for key := int64(100); key < 108; key++ {
		require.True(t, m.Tryadd(key, key))
		assert.Equal(t, alloclen, m.data.alloclen.Load())
	}
	assert.Equal(t, 16, m.Count())

	// free list is exhausted, next add carves.
	require.True(t, m.Tryadd(200, 200))
	assert.Equal(t, alloclen+carvesize, m.data.alloclen.Load())
}

func TestSet(t *testing.T) {
	_, m := newtestmap(t, nil)

	require.True(t, m.Set(10, 100))
	require.False(t, m.Set(10, 200))
	value, ok := m.Trygetvalue(10)
	require.True(t, ok)
	assert.Equal(t, int64(200), value)
	assert.Equal(t, 1, m.Count())
	require.True(t, m.Containskey(10))
	require.False(t, m.Containskey(11))
}

func TestGrow(t *testing.T) {
	_, m := newtestmap(t, s.Settings{"capacity": int64(8)})

	refmap := make(map[int64]int64)
	for len(refmap) < 1000 {
		key, value := rand.Int63(), rand.Int63()
		if _, ok := refmap[key]; ok {
			continue
		}
		refmap[key] = value
		require.True(t, m.Tryadd(key, value))
	}
	assert.Equal(t, 1000, m.Count())
	if x := m.Capacity(); x < 1000 {
		t.Errorf("expected capacity >= 1000, got %v", x)
	}
	if x := m.Stats()["n_grows"].(int64); x < 7 {
		t.Errorf("expected atleast 7 grows, got %v", x)
	}
	for key, value := range refmap {
		x, ok := m.Trygetvalue(key)
		require.True(t, ok)
		require.Equal(t, value, x)
	}
}

func TestSetcapacity(t *testing.T) {
	_, m := newtestmap(t, s.Settings{"capacity": int64(64)})

	entries := make(map[int64]int32)
	for key := int64(0); key < 50; key++ {
		require.True(t, m.Tryadd(key, -key))
	}
	for key := int64(0); key < 50; key += 5 {
		m.Remove(key)
	}
	for key := int64(0); key < 50; key++ {
		if _, it, ok := m.Trygetfirst(key); ok {
			entries[key] = it.Entry()
		}
	}
	count := m.Count()
	assert.Equal(t, 40, count)

	require.ErrorIs(t, m.Setcapacity(count-1), api.ErrorCapacityShrink)
	require.NoError(t, m.Setcapacity(count))
	require.NoError(t, m.Setcapacity(64))
	assert.Equal(t, 64, m.Capacity())

	require.NoError(t, m.Setcapacity(1000))
	assert.Equal(t, 1000, m.Capacity())
	assert.Equal(t, count, m.Count())
	for key, entry := range entries {
		value, it, ok := m.Trygetfirst(key)
		require.True(t, ok)
		assert.Equal(t, -key, value)
		assert.Equal(t, entry, it.Entry())
	}
	// free list survives growth.
	alloclen := m.data.alloclen.Load()
	require.True(t, m.Tryadd(1000, 1000))
	assert.Equal(t, alloclen, m.data.alloclen.Load())
	assert.Equal(t, count+1, m.Count())
}

func TestGrowOnStack(t *testing.T) {
	mgr := malloc.NewManager(t.Name(), nil)
	defer mgr.Shutdown()

	stack, err := malloc.Newstack(mgr, s.Settings{"stack.capacity": int64(64 * 1024)})
	require.NoError(t, err)
	defer stack.Release()

	setts := s.Settings{"capacity": int64(8), "allocator": int64(stack.Handle())}
	m := NewHashmap[int64, int64](t.Name(), mgr, nil, setts)
	for key := int64(0); key < 8; key++ {
		require.True(t, m.Tryadd(key, key))
	}

	// old storage is below the new one, stack cannot free it.
	err = m.Setcapacity(16)
	require.ErrorIs(t, err, api.ErrorInvalidFree)
	assert.Equal(t, 16, m.Capacity())
	assert.Equal(t, 8, m.Count())
	for key := int64(0); key < 8; key++ {
		value, ok := m.Trygetvalue(key)
		require.True(t, ok)
		require.Equal(t, key, value)
	}

	for key := int64(8); key < 16; key++ {
		require.True(t, m.Tryadd(key, key))
	}
	require.Panics(t, func() { m.Tryadd(16, 16) })
	assert.Equal(t, 32, m.Capacity())
	assert.Equal(t, 16, m.Count())
	m.Release()
}

func TestClear(t *testing.T) {
	mgr, m := newtestmap(t, s.Settings{"capacity": int64(100)})
	allocated := mgr.Allocated(api.Persistent)

	for key := int64(0); key < 100; key++ {
		require.True(t, m.Tryadd(key, key))
	}
	m.Clear()
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 100, m.Capacity())
	assert.Equal(t, allocated, mgr.Allocated(api.Persistent))
	for key := int64(0); key < 100; key++ {
		require.False(t, m.Containskey(key))
	}
	require.True(t, m.Tryadd(1, 1))
	assert.Equal(t, 1, m.Count())
}

func TestRangeKeysValues(t *testing.T) {
	_, m := newtestmap(t, nil)

	sum := int64(0)
	for key := int64(1); key <= 100; key++ {
		require.True(t, m.Tryadd(key, key*2))
		sum += key
	}
	keys, values := m.Keys(), m.Values()
	assert.Equal(t, 100, len(keys))
	assert.Equal(t, 100, len(values))
	ksum, vsum := int64(0), int64(0)
	for i := range keys {
		ksum, vsum = ksum+keys[i], vsum+values[i]
	}
	assert.Equal(t, sum, ksum)
	assert.Equal(t, 2*sum, vsum)

	n := 0
	m.Range(func(key, value int64) bool {
		n++
		return n < 10
	})
	assert.Equal(t, 10, n)
}

func TestStructKeys(t *testing.T) {
	mgr := malloc.NewManager(t.Name(), nil)
	defer mgr.Shutdown()

	m := NewHashmap[point, [4]float64](t.Name(), mgr, nil, s.Settings{"capacity": int64(16)})
	defer m.Release()

	for i := int32(0); i < 100; i++ {
		require.True(t, m.Tryadd(point{i, -i}, [4]float64{float64(i)}))
	}
	value, ok := m.Trygetvalue(point{42, -42})
	require.True(t, ok)
	assert.Equal(t, float64(42), value[0])
	_, ok = m.Trygetvalue(point{42, 42})
	require.False(t, ok)
}

func TestCollisions(t *testing.T) {
	mgr := malloc.NewManager(t.Name(), nil)
	defer mgr.Shutdown()

	hasher := func(key int64) uint64 { return 7 }
	m := NewHashmap[int64, int64](t.Name(), mgr, hasher, nil)
	defer m.Release()

	for key := int64(0); key < 50; key++ {
		require.True(t, m.Tryadd(key, key))
	}
	require.False(t, m.Tryadd(25, 0))
	assert.Equal(t, 1, m.Remove(25))
	assert.Equal(t, 49, m.Count())

	chainlen := m.Stats()["chainlen"].(*lib.HistogramInt64)
	assert.Equal(t, int64(49), chainlen.Max())
	assert.Equal(t, int64(1), m.Stats()["buckets.used"])
	m.Log(true)
}

func TestPointerTypes(t *testing.T) {
	mgr := malloc.NewManager(t.Name(), nil)
	defer mgr.Shutdown()

	require.Panics(t, func() { NewHashmap[string, int64]("str", mgr, nil, nil) })
	require.Panics(t, func() { NewHashmap[int64, []byte]("slice", mgr, nil, nil) })
	require.Panics(t, func() { NewMultimap[int64, *point]("ptr", mgr, nil, nil) })
	require.Panics(t, func() {
		NewHashmap[int64, int64]("workers", mgr, nil, s.Settings{"workers": int64(0)})
	})
	require.Panics(t, func() {
		NewHashmap[int64, int64]("capacity", mgr, nil, s.Settings{"capacity": int64(0)})
	})
}

func TestRelease(t *testing.T) {
	mgr := malloc.NewManager(t.Name(), nil)
	defer mgr.Shutdown()

	m := NewHashmap[int64, int64](t.Name(), mgr, nil, s.Settings{"capacity": int64(10)})
	require.True(t, m.Tryadd(1, 1))
	if mgr.Allocated(api.Persistent) <= 0 {
		t.Errorf("expected storage from persistent heap")
	}
	m.Release()
	m.Release()
	assert.Equal(t, int64(0), mgr.Allocated(api.Persistent))

	setts := s.Settings{"capacity": int64(10), "allocator": int64(api.Tempjob)}
	m = NewHashmap[int64, int64](t.Name(), mgr, nil, setts)
	require.True(t, m.Tryadd(1, 1))
	job := lib.NewFence()
	done := m.Disposeafter(job)
	assert.NotEqual(t, int64(0), mgr.Allocated(api.Tempjob))
	job.Signal()
	<-done.Done()
	assert.Equal(t, int64(0), mgr.Allocated(api.Tempjob))
	<-m.Disposeafter(nil).Done()
}

func TestLayout(t *testing.T) {
	offs, size := layout(10, 32, 8, 3)
	assert.Equal(t, [4]int64{0, 64, 192, 256}, offs)
	assert.Equal(t, int64(384), size)

	offs, size = layout(1, 2, 8, 0)
	assert.Equal(t, [4]int64{0, 0, 64, 128}, offs)
	assert.Equal(t, int64(192), size)
}

func BenchmarkTryadd(b *testing.B) {
	mgr := malloc.NewManager(b.Name(), nil)
	defer mgr.Shutdown()
	m := NewHashmap[int64, int64](b.Name(), mgr, nil, s.Settings{"capacity": int64(b.N + 1)})
	defer m.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Tryadd(int64(i), int64(i))
	}
}

func BenchmarkTrygetvalue(b *testing.B) {
	mgr := malloc.NewManager(b.Name(), nil)
	defer mgr.Shutdown()
	m := NewHashmap[int64, int64](b.Name(), mgr, nil, s.Settings{"capacity": int64(10000)})
	defer m.Release()
	for i := 0; i < 10000; i++ {
		m.Tryadd(int64(i), int64(i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Trygetvalue(int64(i % 10000))
	}
}
