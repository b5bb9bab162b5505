// File: iomgr/timer_polled.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PolledTimer: a fixed-resolution ticker on the timer's own goroutine
// checks the heap instead of sleeping exactly
// until the next deadline, matching spec.md §4.4's "no tighter latency
// guarantee than next loop iteration after the deadline" for this
// variant.

package iomgr

import (
	"time"

	"github.com/momentics/hioload-ws/api"
)

const defaultPollResolution = time.Millisecond

// PolledTimer implements api.Scheduler with its own ticker at
// pollResolution granularity; it is not driven by the polled-thread
// runtime's loop.
type PolledTimer struct {
	core       *timerCore
	ticker     *time.Ticker
	stopCh     chan struct{}
}

// NewPolledTimer starts the ticker-driven wake loop.
func NewPolledTimer(dispatch func(cookie any, fn func(cookie any)), pollResolution time.Duration) *PolledTimer {
	if pollResolution <= 0 {
		pollResolution = defaultPollResolution
	}
	t := &PolledTimer{
		core:   newTimerCore(dispatch),
		ticker: time.NewTicker(pollResolution),
		stopCh: make(chan struct{}),
	}
	go t.loop()
	return t
}

func (t *PolledTimer) loop() {
	for {
		select {
		case <-t.stopCh:
			return
		case now := <-t.ticker.C:
			t.core.fireDue(now.UnixNano())
		}
	}
}

// Schedule arms a callback delayNanos from now.
func (t *PolledTimer) Schedule(delayNanos int64, recurring bool, cookie any, fn func(cookie any)) (api.Cancelable, error) {
	return t.core.schedule(delayNanos, recurring, cookie, fn), nil
}

// Cancel best-effort cancels a scheduled entry.
func (t *PolledTimer) Cancel(c api.Cancelable) error {
	return c.Cancel()
}

// Now returns the current wall-clock time in Unix nanoseconds.
func (t *PolledTimer) Now() int64 {
	return time.Now().UnixNano()
}

// Stop tears down the ticker loop.
func (t *PolledTimer) Stop() {
	close(t.stopCh)
	t.ticker.Stop()
}

var _ api.Scheduler = (*PolledTimer)(nil)
