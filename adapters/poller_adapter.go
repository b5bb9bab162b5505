// File: adapters/poller_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PollerAdapter bridges the generic api.Poller/api.Handler contract onto
// internal/concurrency's EventLoop. It backs each logical thread hosted
// by the polled-thread runtime (see package polled): one EventLoop per
// thread, driven by that thread's tight busy loop.

package adapters

import (
	"sync"

	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/internal/concurrency"
)

type PollerAdapter struct {
	eventLoop *concurrency.EventLoop
	handlers  []api.Handler
	mu        sync.RWMutex
	running   bool
}

// NewPollerAdapter builds a poller over an EventLoop sized by batchSize and
// ringCapacity. A non-positive batchSize falls back to EventLoop's default
// of 16; ringCapacity is rounded up to a power of two (0 gives a one-slot
// ring) and must not be negative.
func NewPollerAdapter(batchSize, ringCapacity int) *PollerAdapter {
	return &PollerAdapter{
		eventLoop: concurrency.NewEventLoop(batchSize, ringCapacity),
		handlers:  make([]api.Handler, 0),
	}
}

// handlerBridge adapts an api.Handler to concurrency.EventHandler.
type handlerBridge struct{ inner api.Handler }

func (hb handlerBridge) HandleEvent(ev concurrency.Event) {
	_ = hb.inner.Handle(ev.Data)
}

// Post enqueues a raw payload for the next Poll cycle to dispatch.
func (p *PollerAdapter) Post(data any) bool {
	return p.eventLoop.Post(concurrency.Event{Data: data})
}

// Poll starts the EventLoop's goroutine on its first call. Events are
// dispatched by that goroutine, not by Poll itself: Poll ignores maxEvents
// and returns the number of events still pending, not a count handled.
func (p *PollerAdapter) Poll(maxEvents int) (int, error) {
	if !p.running {
		go p.eventLoop.Run()
		p.running = true
	}
	return p.eventLoop.Pending(), nil
}

func (p *PollerAdapter) Register(h api.Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	hb := handlerBridge{inner: h}
	p.eventLoop.RegisterHandler(hb)
	p.handlers = append(p.handlers, h)
	return nil
}

func (p *PollerAdapter) Unregister(h api.Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, orig := range p.handlers {
		if orig == h {
			p.handlers = append(p.handlers[:i], p.handlers[i+1:]...)
			p.eventLoop.UnregisterHandler(handlerBridge{inner: h})
			break
		}
	}
	return nil
}

func (p *PollerAdapter) Stop() {
	p.eventLoop.Stop()
}
