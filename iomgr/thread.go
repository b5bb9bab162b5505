// File: iomgr/thread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread-Index Reserver and the logical I/O thread identity types. Grounded
// on original_source/src/lib/iomgr.cpp's thread_state_t/reserve/unreserve
// pair: a fixed-size bitmap handing out the smallest free index.

package iomgr

import (
	"sync"
	"sync/atomic"

	"github.com/rcrowley/go-metrics"
)

// MaxIOThreads bounds the dense index space handed out by ThreadIdxReserver.
const MaxIOThreads = 4096

// ThreadIdx is a dense, globally-unique small integer identifying one
// logical I/O thread while it is live.
type ThreadIdx int

// ThreadIdxReserver hands out the smallest available integer in
// [0, MaxIOThreads). Thread-safe, releases are idempotent.
type ThreadIdxReserver struct {
	mu   sync.Mutex
	used [MaxIOThreads]bool
	next int // hint: lowest index that might be free
}

// NewThreadIdxReserver constructs an empty reserver.
func NewThreadIdxReserver() *ThreadIdxReserver {
	return &ThreadIdxReserver{}
}

// Reserve returns the smallest free index, or ErrThreadsExhausted.
func (r *ThreadIdxReserver) Reserve() (ThreadIdx, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := r.next; i < MaxIOThreads; i++ {
		if !r.used[i] {
			r.used[i] = true
			r.next = i + 1
			return ThreadIdx(i), nil
		}
	}
	for i := 0; i < r.next; i++ {
		if !r.used[i] {
			r.used[i] = true
			r.next = i + 1
			return ThreadIdx(i), nil
		}
	}
	return -1, ErrThreadsExhausted
}

// Release frees idx for reuse. Calling Release on an already-free or
// out-of-range index is a no-op (idempotent).
func (r *ThreadIdxReserver) Release(idx ThreadIdx) {
	if idx < 0 || int(idx) >= MaxIOThreads {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used[idx] {
		r.used[idx] = false
		if int(idx) < r.next {
			r.next = int(idx)
		}
	}
}

// ThreadAddr addresses one logical I/O thread inside a reactor: a pair of
// (reactor identity, local slot). Reactors host 1..N logical threads at
// the local-slot positions 0..N-1.
type ThreadAddr struct {
	ReactorIdx int
	LocalSlot  int
}

// IOThread is the runtime identity of one logical I/O thread: its dense
// index, its address inside the owning reactor, and its own
// outstanding_ops gauge. outstanding_ops is mutated only by the thread's
// owning reactor goroutine, per the manager's concurrency invariant; other
// goroutines only ever read a snapshot via Outstanding().
//
// Worker/user classification is a property of the owning reactor
// (IOReactor.IsWorker), not of the thread itself: a reactor hosts either
// all-worker or all-user threads, never a mix.
type IOThread struct {
	Idx          ThreadIdx
	Addr         ThreadAddr
	Reactor      IOReactor
	relinquished int32

	outstandingOps int64
	gauge          metrics.Gauge // mirrors outstandingOps for external Stats()
}

// newIOThread constructs a logical thread bound to reactor at addr, backed
// by a named gauge in the given metrics registry.
func newIOThread(idx ThreadIdx, addr ThreadAddr, reactor IOReactor, gauge metrics.Gauge) *IOThread {
	return &IOThread{Idx: idx, Addr: addr, Reactor: reactor, gauge: gauge}
}

// IsWorker reports whether the owning reactor classifies this thread as a
// worker thread (as opposed to a user thread).
func (t *IOThread) IsWorker() bool {
	return t.Reactor != nil && t.Reactor.IsWorker()
}

// IsIO reports whether the owning reactor is an I/O reactor.
func (t *IOThread) IsIO() bool {
	return t.Reactor != nil && t.Reactor.IsIOReactor()
}

// IncOutstanding must be called only by the thread's owning reactor
// goroutine.
func (t *IOThread) IncOutstanding(delta int64) {
	v := atomic.AddInt64(&t.outstandingOps, delta)
	if t.gauge != nil {
		t.gauge.Update(v)
	}
}

// Outstanding returns a snapshot of outstanding_ops, safe to call from any
// goroutine (used by least_busy_* selection).
func (t *IOThread) Outstanding() int64 {
	return atomic.LoadInt64(&t.outstandingOps)
}

// Relinquished reports whether RELINQUISH_IO_THREAD has already been
// processed for this thread.
func (t *IOThread) Relinquished() bool {
	return atomic.LoadInt32(&t.relinquished) != 0
}

// Relinquish flips the relinquished flag; idempotent. Called by the owning
// reactor when its hosted thread is torn down, either via
// MsgRelinquishIOThread or on Run's own exit.
func (t *IOThread) Relinquish() {
	atomic.StoreInt32(&t.relinquished, 1)
}
