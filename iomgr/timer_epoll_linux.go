//go:build linux

// File: iomgr/timer_epoll_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EpollTimer, Linux variant: one CLOCK_MONOTONIC timerfd services every
// scheduled entry — the same "single periodic descriptor" facility
// reactor/reactor_linux.go already uses golang.org/x/sys/unix for on the
// epoll side, so the timer and reactor multiplex on the same kernel
// primitive family instead of the timer alone falling back to a
// goroutine-local time.Timer.

package iomgr

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-ws/api"
)

// EpollTimer implements api.Scheduler over a Linux timerfd: entries fire
// on the manager-supplied dispatch function, which routes the callback
// back onto the reactor(s) the timer was scoped to.
type EpollTimer struct {
	core   *timerCore
	fd     int
	stopCh chan struct{}
}

// NewEpollTimer creates a CLOCK_MONOTONIC timerfd and starts the
// background thread that blocks reading it until it fires. If the kernel
// refuses to hand out a timerfd (e.g. an exhausted fd table), the timer
// degrades to never firing rather than panicking the manager.
func NewEpollTimer(dispatch func(cookie any, fn func(cookie any))) *EpollTimer {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC)
	if err != nil {
		fd = -1
	}
	t := &EpollTimer{
		core:   newTimerCore(dispatch),
		fd:     fd,
		stopCh: make(chan struct{}),
	}
	if fd >= 0 {
		go t.loop()
	}
	return t
}

func (t *EpollTimer) loop() {
	buf := make([]byte, 8)
	for {
		_, err := unix.Read(t.fd, buf)
		select {
		case <-t.stopCh:
			return
		default:
		}
		if err != nil {
			continue
		}
		t.core.fireDue(t.Now())
		t.rearm()
	}
}

func (t *EpollTimer) rearm() {
	if t.fd < 0 {
		return
	}
	deadline, ok := t.core.nextDeadline()
	if !ok {
		return
	}
	d := deadline - t.Now()
	if d < 0 {
		d = 0
	}
	spec := &unix.ItimerSpec{Value: unix.NsecToTimespec(d)}
	_ = unix.TimerfdSettime(t.fd, 0, spec, nil)
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

// Stop tears down the background loop and the timerfd.
func (t *EpollTimer) Stop() {
	close(t.stopCh)
	if t.fd >= 0 {
		_ = unix.Close(t.fd)
	}
}

var _ api.Scheduler = (*EpollTimer)(nil)
