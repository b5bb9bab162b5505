// File: polled/runtime.go
// Package polled implements the opaque "polled-thread runtime" collaborator
// the design treats as an external dependency: init, create a logical
// thread, send a closure to it, and poll it forward. Built on
// adapters.PollerAdapter (itself wrapping internal/concurrency.EventLoop),
// per the teacher's own layering of a tight busy-loop under a handler
// registration surface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package polled

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-ws/adapters"
	"github.com/momentics/hioload-ws/api"
)

// ThreadHandle identifies one logical thread created by the runtime.
type ThreadHandle int64

// closureHandler executes any func() payload posted via SendMsg.
type closureHandler struct{}

func (closureHandler) Handle(data any) error {
	fn, ok := data.(func())
	if !ok {
		return fmt.Errorf("polled: unexpected payload type %T", data)
	}
	fn()
	return nil
}

type logicalThread struct {
	poller *adapters.PollerAdapter
}

// Runtime is the process-wide polled-thread collaborator. Exactly one
// instance is expected per process, mirroring the original's global
// polled-runtime singleton.
type Runtime struct {
	mu          sync.RWMutex
	initialized int32
	threads     map[ThreadHandle]*logicalThread
	nextHandle  int64
}

// NewRuntime constructs an uninitialised runtime.
func NewRuntime() *Runtime {
	return &Runtime{threads: make(map[ThreadHandle]*logicalThread)}
}

// Init idempotently prepares the runtime. Safe to call even when another
// caller already initialised it externally, matching spec.md §4.8's
// "initialise the polled runtime if requested and not already externally
// initialised".
func (r *Runtime) Init() error {
	atomic.StoreInt32(&r.initialized, 1)
	return nil
}

// Initialized reports whether Init has run.
func (r *Runtime) Initialized() bool {
	return atomic.LoadInt32(&r.initialized) != 0
}

// CreateThread starts a new logical thread's tight poll loop and returns
// its handle.
func (r *Runtime) CreateThread(batchSize, ringCapacity int) (ThreadHandle, error) {
	if !r.Initialized() {
		return 0, fmt.Errorf("polled: runtime not initialized")
	}
	adapter := adapters.NewPollerAdapter(batchSize, ringCapacity)
	if err := adapter.Register(closureHandler{}); err != nil {
		return 0, err
	}
	// Poll(0) starts the adapter's background event loop goroutine on
	// first call; subsequent Poll calls just report pending count.
	if _, err := adapter.Poll(0); err != nil {
		return 0, err
	}
	r.mu.Lock()
	h := ThreadHandle(atomic.AddInt64(&r.nextHandle, 1))
	r.threads[h] = &logicalThread{poller: adapter}
	r.mu.Unlock()
	return h, nil
}

// SendMsg posts fn to be executed on thread h's loop.
func (r *Runtime) SendMsg(h ThreadHandle, fn func()) error {
	r.mu.RLock()
	t, ok := r.threads[h]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("polled: unknown thread handle %d", h)
	}
	if !t.poller.Post(fn) {
		return fmt.Errorf("polled: mailbox full for thread %d", h)
	}
	return nil
}

// Poll reports how many events are pending on thread h's loop.
func (r *Runtime) Poll(h ThreadHandle, maxEvents int) (int, error) {
	r.mu.RLock()
	t, ok := r.threads[h]
	r.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("polled: unknown thread handle %d", h)
	}
	return t.poller.Poll(maxEvents)
}

// DestroyThread stops thread h's loop and forgets its handle.
func (r *Runtime) DestroyThread(h ThreadHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[h]
	if !ok {
		return fmt.Errorf("polled: unknown thread handle %d", h)
	}
	t.poller.Stop()
	delete(r.threads, h)
	return nil
}

var _ api.Handler = closureHandler{}
