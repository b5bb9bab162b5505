// File: iomgr/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocator backs IobufAlloc/Free/Realloc. The default implementation
// wraps pool.BufferPoolManager (kept, adapted from the teacher).
// SetAllocator replaces it atomically through an atomic.Value slot; the
// slot has no set-once guard, and nothing in the manager calls
// SetAllocator itself.

package iomgr

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/internal/normalize"
	"github.com/momentics/hioload-ws/pool"
)

// liveEntry is the bookkeeping record poolAllocator keeps per outstanding
// allocation. Pooled via entryPool since Alloc/Free churn one of these per
// call on the hot path.
type liveEntry struct {
	buf api.Buffer
}

var entryPool pool.ObjectPool[*liveEntry] = pool.NewSyncPool(func() *liveEntry { return &liveEntry{} })

// Allocator abstracts the process-wide aligned-buffer allocator. size and
// align mirror the C-level alloc/free/realloc contract this replaces;
// alignment beyond what the backing api.Buffer already guarantees is
// best-effort.
type Allocator interface {
	Alloc(align, size int) ([]byte, error)
	Free(buf []byte)
	Realloc(buf []byte, align, size int) ([]byte, error)
}

// poolAllocator adapts api.BufferPool (NUMA-segmented) to Allocator. Since
// Allocator's contract is byte-slice based while api.BufferPool deals in
// api.Buffer handles, live buffers are tracked by their backing array's
// address so Free/Realloc can find the Buffer to release back to the pool.
type poolAllocator struct {
	mgr  *pool.BufferPoolManager
	numa int

	mu   sync.Mutex
	live map[uintptr]*liveEntry
}

// NewPoolAllocator builds the default Allocator over the shared
// pool.DefaultManager(), preferring numaNode for new allocations. numaNode
// is normalized against the host's actual NUMA topology first: a
// caller-supplied index outside the topology's range, or a negative
// "auto" sentinel, would otherwise reach pool.BufferPoolManager.GetPool
// unchecked.
func NewPoolAllocator(numaNode int) Allocator {
	numa := normalize.NUMANodeAuto(numaNode)
	return &poolAllocator{mgr: pool.DefaultManager(), numa: numa, live: make(map[uintptr]*liveEntry)}
}

func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func (a *poolAllocator) Alloc(align, size int) ([]byte, error) {
	if size <= 0 {
		return nil, api.ErrInvalidArgument
	}
	p := a.mgr.GetPool(a.numa)
	buf := p.Get(size, a.numa)
	if buf == nil {
		return nil, api.ErrResourceExhausted
	}
	data := buf.Bytes()
	entry := entryPool.Get()
	entry.buf = buf
	a.mu.Lock()
	a.live[addrOf(data)] = entry
	a.mu.Unlock()
	return data, nil
}

func (a *poolAllocator) Free(b []byte) {
	key := addrOf(b)
	a.mu.Lock()
	entry, ok := a.live[key]
	if ok {
		delete(a.live, key)
	}
	a.mu.Unlock()
	if !ok {
		return
	}
	buf := entry.buf
	entry.buf = nil
	entryPool.Put(entry)

	p := a.mgr.GetPool(a.numa)
	p.Put(buf)
}

func (a *poolAllocator) Realloc(b []byte, align, size int) ([]byte, error) {
	newBuf, err := a.Alloc(align, size)
	if err != nil {
		return nil, err
	}
	n := copy(newBuf, b)
	_ = n
	a.Free(b)
	return newBuf, nil
}

var _ Allocator = (*poolAllocator)(nil)

// SetAllocator atomically swaps the active allocator; it may be called any
// number of times.
func (m *IOManager) SetAllocator(a Allocator) {
	if a == nil {
		panic(fmt.Sprintf("iomgr: SetAllocator called with nil"))
	}
	m.allocator.Store(a)
}

// IobufAlloc allocates an aligned buffer via the currently active allocator.
func (m *IOManager) IobufAlloc(align, size int) ([]byte, error) {
	a, _ := m.allocator.Load().(Allocator)
	if a == nil {
		return nil, fmt.Errorf("iomgr: no allocator configured")
	}
	return a.Alloc(align, size)
}

// IobufFree releases a buffer previously returned by IobufAlloc.
func (m *IOManager) IobufFree(buf []byte) {
	a, _ := m.allocator.Load().(Allocator)
	if a != nil {
		a.Free(buf)
	}
}

// IobufRealloc resizes a buffer previously returned by IobufAlloc.
func (m *IOManager) IobufRealloc(buf []byte, align, size int) ([]byte, error) {
	a, _ := m.allocator.Load().(Allocator)
	if a == nil {
		return nil, fmt.Errorf("iomgr: no allocator configured")
	}
	return a.Realloc(buf, align, size)
}
