package malloc

import "fmt"
import "unsafe"
import "sync/atomic"

import "github.com/bnclabs/umem/api"
import "github.com/bnclabs/umem/lib"
import s "github.com/bnclabs/gosettings"
import humanize "github.com/dustin/go-humanize"

// strategy built-in allocators, in addition to Try they account for
// outstanding memory.
type strategy interface {
	api.Allocator
	Allocated() int64
	Stats() map[string]interface{}
}

type tableentry struct {
	allocator api.Allocator
}

// Manager registry of allocators, dispatching api.Block requests to
// allocator strategy identified by block's handle. Manager is safe
// for concurrent use, except that install and uninstall of the same
// handle must be serialized by the caller.
type Manager struct {
	// 64-bit aligned stats
	n_allocs   int64
	n_frees    int64
	n_fails    int64
	n_installs int64
	closed     int64
	nexthandle int64 // hint for Register

	name     string
	builtins [api.FirstUserIndex]strategy
	table    *[api.Maxhandles]atomic.Pointer[tableentry]
	setts    s.Settings
	logprfx  string
}

// NewManager create a registry of allocators with built-in handles
// set up, refer to Defaultsettings() for settings.
func NewManager(name string, setts s.Settings) *Manager {
	m := &Manager{
		name:       name,
		table:      new([api.Maxhandles]atomic.Pointer[tableentry]),
		nexthandle: int64(api.FirstUserIndex),
		setts:      make(s.Settings).Mixin(Defaultsettings(), setts),
		logprfx:    fmt.Sprintf("MALLOC [%v]", name),
	}
	capacity := m.setts.Int64("heap.capacity")
	m.builtins[api.Temp] = newheap(api.Temp, capacity)
	m.builtins[api.Tempjob] = newheap(api.Tempjob, capacity)
	m.builtins[api.Persistent] = newheap(api.Persistent, capacity)
	m.builtins[api.Mapped] = newmapped(capacity)

	infof("%v started with heap capacity %v", m.logprfx, humanize.Bytes(uint64(capacity)))
	return m
}

// Name of this manager.
func (m *Manager) Name() string {
	return m.name
}

// Settings return the effective settings for this manager, can be
// used as base settings for Newstack and Newslab.
func (m *Manager) Settings() s.Settings {
	return m.setts
}

//---- operations

// Try dispatch block to allocator identified by
// block.Range.Allocator. Refer to api.Allocator for semantics.
func (m *Manager) Try(block *api.Block) (err error) {
	if atomic.LoadInt64(&m.closed) > 0 {
		return api.ErrorClosed
	}

	isalloc := block.Isallocate()
	handle := block.Range.Allocator
	if handle.Isbuiltin() {
		err = m.trybuiltin(handle, block)
	} else if entry := m.table[handle].Load(); entry == nil {
		err = api.ErrorNoAllocator
	} else {
		err = entry.allocator.Try(block)
	}

	if err != nil {
		atomic.AddInt64(&m.n_fails, 1)
	} else if isalloc {
		atomic.AddInt64(&m.n_allocs, 1)
	} else {
		atomic.AddInt64(&m.n_frees, 1)
	}
	return err
}

func (m *Manager) trybuiltin(handle api.Handle, block *api.Block) error {
	switch handle {
	case api.Invalid:
		return api.ErrorInvalidHandle

	case api.None:
		if block.Isfree() {
			block.Range.Pointer, block.Allocateditems = nil, 0
			return nil
		} else if block.Isallocate() {
			return api.ErrorAllocationFailed
		}
		return api.ErrorReallocation

	case api.Temp, api.Tempjob, api.Persistent, api.Mapped:
		return m.builtins[handle].Try(block)
	}
	return api.ErrorInvalidHandle
}

// Allocate `items` number of `itemsize` bytes aligned to `align` from
// allocator identified by handle.
func (m *Manager) Allocate(
	handle api.Handle, itemsize, align, items int) (api.Block, error) {

	block := api.Newblock(handle, itemsize, align, items)
	err := m.Try(&block)
	return block, err
}

// Mustallocate is similar to Allocate, panics on failure.
func (m *Manager) Mustallocate(
	handle api.Handle, itemsize, align, items int) api.Block {

	block, err := m.Allocate(handle, itemsize, align, items)
	if err != nil {
		panicerr("%v allocate %v x %v from %v: %w", m.logprfx, items, itemsize, handle, err)
	}
	return block
}

// Free memory at ptr, previously allocated from handle with the same
// itemsize, align and items. Freeing a nil pointer is a no-op.
func (m *Manager) Free(
	handle api.Handle, ptr unsafe.Pointer, itemsize, align, items int) error {

	if ptr == nil {
		return nil
	}
	block := api.Newblock(handle, itemsize, align, 0)
	block.Range.Pointer = ptr
	block.Allocateditems = int32(items)
	return m.Try(&block)
}

// Freeblock release memory held by block, on success block's pointer
// is reset. Freeing a block with nil pointer is a no-op.
func (m *Manager) Freeblock(block *api.Block) error {
	if block.Range.Pointer == nil {
		return nil
	}
	block.Range.Items = 0
	return m.Try(block)
}

// Disposeafter release block after the job identified by `after` is
// complete. Returned handle is signalled once block is released. If
// after is nil block is released before returning.
func (m *Manager) Disposeafter(block api.Block, after api.Jobhandle) api.Jobhandle {
	fence := lib.NewFence()
	if after == nil {
		m.dispose(&block)
		fence.Signal()
		return fence
	}
	go func() {
		<-after.Done()
		m.dispose(&block)
		fence.Signal()
	}()
	return fence
}

func (m *Manager) dispose(block *api.Block) {
	if err := m.Freeblock(block); err != nil {
		errorf("%v dispose %v block: %v", m.logprfx, block.Range.Allocator, err)
	}
}

//---- registry

// Install allocator at handle, a nil allocator will uninstall the
// handle. Built-in handles cannot be installed.
func (m *Manager) Install(handle api.Handle, allocator api.Allocator) error {
	if handle.Isbuiltin() {
		return api.ErrorReservedHandle
	} else if atomic.LoadInt64(&m.closed) > 0 {
		return api.ErrorClosed
	}
	if allocator == nil {
		if m.table[handle].Swap(nil) != nil {
			atomic.AddInt64(&m.n_installs, -1)
			debugf("%v uninstalled %v", m.logprfx, handle)
		}
		return nil
	}
	if m.table[handle].Swap(&tableentry{allocator: allocator}) == nil {
		atomic.AddInt64(&m.n_installs, 1)
	}
	debugf("%v installed %v", m.logprfx, handle)
	return nil
}

// Uninstall allocator at handle.
func (m *Manager) Uninstall(handle api.Handle) error {
	return m.Install(handle, nil)
}

// Register allocator at the next free user handle.
func (m *Manager) Register(allocator api.Allocator) (api.Handle, error) {
	if allocator == nil {
		panicerr("%v register nil allocator", m.logprfx)
	} else if atomic.LoadInt64(&m.closed) > 0 {
		return api.Invalid, api.ErrorClosed
	}

	entry := &tableentry{allocator: allocator}
	first, span := int64(api.FirstUserIndex), int64(api.Maxhandles)-int64(api.FirstUserIndex)
	hint := atomic.LoadInt64(&m.nexthandle) - first
	for i := int64(0); i < span; i++ {
		handle := api.Handle(first + ((hint + i) % span))
		if m.table[handle].CompareAndSwap(nil, entry) {
			atomic.StoreInt64(&m.nexthandle, int64(handle)+1)
			atomic.AddInt64(&m.n_installs, 1)
			debugf("%v registered %v", m.logprfx, handle)
			return handle, nil
		}
	}
	return api.Invalid, api.ErrorOutofHandles
}

// Installed return allocator installed at handle, nil if handle is
// built-in or not installed.
func (m *Manager) Installed(handle api.Handle) api.Allocator {
	if handle.Isbuiltin() {
		return nil
	} else if entry := m.table[handle].Load(); entry != nil {
		return entry.allocator
	}
	return nil
}

// Shutdown uninstall all user allocators and report leaked memory
// from built-in strategies. Subsequent requests fail with
// api.ErrorClosed.
func (m *Manager) Shutdown() {
	if !atomic.CompareAndSwapInt64(&m.closed, 0, 1) {
		return
	}
	for handle := int(api.FirstUserIndex); handle < api.Maxhandles; handle++ {
		if m.table[handle].Swap(nil) != nil {
			atomic.AddInt64(&m.n_installs, -1)
		}
	}
	for handle, strat := range m.builtins {
		if strat == nil {
			continue
		} else if n := strat.Allocated(); n > 0 {
			fmsg := "%v %v leaked %v bytes"
			warnf(fmsg, m.logprfx, api.Handle(handle), humanize.Bytes(uint64(n)))
		}
	}
	infof("%v shutdown", m.logprfx)
}

//---- statistics

// Allocated return outstanding bytes on handle, for user allocators
// that do not account for memory return -1.
func (m *Manager) Allocated(handle api.Handle) int64 {
	if handle.Isbuiltin() {
		if strat := m.builtins[handle]; strat != nil {
			return strat.Allocated()
		}
		return 0
	}
	if acc, ok := m.Installed(handle).(interface{ Allocated() int64 }); ok {
		return acc.Allocated()
	}
	return -1
}

// Stats return manager counters along with built-in strategy
// statistics, prefixed by handle name.
func (m *Manager) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"n_allocs":    atomic.LoadInt64(&m.n_allocs),
		"n_frees":     atomic.LoadInt64(&m.n_frees),
		"n_fails":     atomic.LoadInt64(&m.n_fails),
		"n_installed": atomic.LoadInt64(&m.n_installs),
	}
	for handle, strat := range m.builtins {
		if strat == nil {
			continue
		}
		name := api.Handle(handle).String()
		for key, value := range strat.Stats() {
			stats[name+"."+key] = value
		}
	}
	return stats
}

// Log manager statistics.
func (m *Manager) Log(dohumanize bool) {
	stats := m.Stats()
	fmsg := "%v allocs:%v frees:%v fails:%v installed:%v"
	infof(fmsg, m.logprfx, stats["n_allocs"], stats["n_frees"],
		stats["n_fails"], stats["n_installed"])
	for _, handle := range []api.Handle{api.Temp, api.Tempjob, api.Persistent, api.Mapped} {
		var allocated interface{} = stats[handle.String()+".allocated"]
		if dohumanize {
			allocated = humanize.Bytes(uint64(allocated.(int64)))
		}
		infof("%v %-10v allocated:%v", m.logprfx, handle, allocated)
	}
}
