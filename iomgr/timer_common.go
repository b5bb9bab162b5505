// File: iomgr/timer_common.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared min-heap and Cancelable handle used by both timer service
// variants (timer_epoll_*.go, timer_polled.go). Two variants, one
// interface: api.Scheduler.

package iomgr

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-ws/api"
)

type timerEntry struct {
	deadline  int64 // unix nanos
	interval  int64 // for recurring entries
	recurring bool
	cookie    any
	fn        func(cookie any)
	cancelled int32
	index     int // heap.Interface bookkeeping
	done      chan struct{}
}

func (e *timerEntry) Cancel() error {
	atomic.StoreInt32(&e.cancelled, 1)
	return nil
}

func (e *timerEntry) Done() <-chan struct{} { return e.done }

func (e *timerEntry) Err() error {
	select {
	case <-e.done:
		if atomic.LoadInt32(&e.cancelled) != 0 {
			return api.ErrOperationTimeout
		}
		return nil
	default:
		return nil
	}
}

func (e *timerEntry) isCancelled() bool { return atomic.LoadInt32(&e.cancelled) != 0 }

var _ api.Cancelable = (*timerEntry)(nil)

// timerHeap is a min-heap by deadline.
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any)         { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// timerCore holds the heap and dispatch mechanics shared by both timer
// service variants. dispatch runs fn on the thread-class the timer was
// scoped to (the manager supplies this by closing over SendMsg/MulticastMsg).
type timerCore struct {
	mu      sync.Mutex
	h       timerHeap
	dispatch func(cookie any, fn func(cookie any))
}

func newTimerCore(dispatch func(cookie any, fn func(cookie any))) *timerCore {
	return &timerCore{dispatch: dispatch}
}

// schedule inserts a new entry and returns it. Callers re-arm their wake
// primitive themselves afterwards.
func (c *timerCore) schedule(delayNanos int64, recurring bool, cookie any, fn func(cookie any)) *timerEntry {
	e := &timerEntry{
		deadline:  time.Now().UnixNano() + delayNanos,
		interval:  delayNanos,
		recurring: recurring,
		cookie:    cookie,
		fn:        fn,
		done:      make(chan struct{}),
	}
	c.mu.Lock()
	heap.Push(&c.h, e)
	c.mu.Unlock()
	return e
}

// nextDeadline returns the earliest pending deadline, or (0, false) if
// the heap is empty.
func (c *timerCore) nextDeadline() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.h.Len() > 0 && c.h[0].isCancelled() {
		e := heap.Pop(&c.h).(*timerEntry)
		close(e.done)
	}
	if c.h.Len() == 0 {
		return 0, false
	}
	return c.h[0].deadline, true
}

// fireDue pops and dispatches every entry whose deadline has passed,
// re-arming recurring entries after their callback runs.
func (c *timerCore) fireDue(now int64) {
	for {
		c.mu.Lock()
		if c.h.Len() == 0 || c.h[0].deadline > now {
			c.mu.Unlock()
			return
		}
		e := heap.Pop(&c.h).(*timerEntry)
		c.mu.Unlock()

		if e.isCancelled() {
			close(e.done)
			continue
		}
		c.dispatch(e.cookie, func(cookie any) {
			e.fn(cookie)
			if e.recurring && !e.isCancelled() {
				e.deadline = time.Now().UnixNano() + e.interval
				c.mu.Lock()
				heap.Push(&c.h, e)
				c.mu.Unlock()
			} else {
				close(e.done)
			}
		})
	}
}
