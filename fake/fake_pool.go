// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT
//
// FakeBufferPool is a trivial api.BufferPool double: plain heap
// allocation, no NUMA segmentation, but real Stats() bookkeeping so tests
// can assert on allocation counts.

package fake

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-ws/api"
)

// FakeBuffer wraps a plain []byte to satisfy api.Buffer.
type FakeBuffer struct {
	data     []byte
	numaNode int
	pool     *FakeBufferPool
}

func (b *FakeBuffer) Bytes() []byte { return b.data }

func (b *FakeBuffer) Slice(from, to int) api.Buffer {
	return &FakeBuffer{data: b.data[from:to], numaNode: b.numaNode, pool: b.pool}
}

func (b *FakeBuffer) Release() {
	if b.pool != nil {
		b.pool.Put(b)
	}
}

func (b *FakeBuffer) Copy() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *FakeBuffer) NUMANode() int { return b.numaNode }

// FakeBufferPool allocates plain heap buffers, tracking counts for Stats.
type FakeBufferPool struct {
	mu         sync.Mutex
	totalAlloc int64
	totalFree  int64
	inUse      int64
	numaStats  map[int]int64
}

// NewFakeBufferPool builds an empty accounting pool.
func NewFakeBufferPool() *FakeBufferPool {
	return &FakeBufferPool{numaStats: make(map[int]int64)}
}

func (p *FakeBufferPool) Get(size int, numaPreferred int) api.Buffer {
	atomic.AddInt64(&p.totalAlloc, 1)
	atomic.AddInt64(&p.inUse, 1)
	p.mu.Lock()
	p.numaStats[numaPreferred]++
	p.mu.Unlock()
	return &FakeBuffer{data: make([]byte, size), numaNode: numaPreferred, pool: p}
}

func (p *FakeBufferPool) Put(b api.Buffer) {
	atomic.AddInt64(&p.totalFree, 1)
	atomic.AddInt64(&p.inUse, -1)
}

func (p *FakeBufferPool) Stats() api.BufferPoolStats {
	p.mu.Lock()
	numaCopy := make(map[int]int64, len(p.numaStats))
	for k, v := range p.numaStats {
		numaCopy[k] = v
	}
	p.mu.Unlock()
	return api.BufferPoolStats{
		TotalAlloc: atomic.LoadInt64(&p.totalAlloc),
		TotalFree:  atomic.LoadInt64(&p.totalFree),
		InUse:      atomic.LoadInt64(&p.inUse),
		NUMAStats:  numaCopy,
	}
}

var _ api.BufferPool = (*FakeBufferPool)(nil)
var _ api.Buffer = (*FakeBuffer)(nil)
