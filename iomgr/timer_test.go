package iomgr_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-ws/iomgr"
)

func directDispatch(cookie any, fn func(cookie any)) { fn(cookie) }

func TestEpollTimerFiresOnceAfterDelay(t *testing.T) {
	timer := iomgr.NewEpollTimer(directDispatch)
	defer timer.Stop()

	var fired int32
	done := make(chan struct{})
	_, err := timer.Schedule(int64(20*time.Millisecond), false, nil, func(any) {
		atomic.AddInt32(&fired, 1)
		close(done)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expected 1 firing, got %d", fired)
	}
}

func TestEpollTimerRecurringFiresMultipleTimes(t *testing.T) {
	timer := iomgr.NewEpollTimer(directDispatch)
	defer timer.Stop()

	var mu sync.Mutex
	count := 0
	done := make(chan struct{})
	cancel, err := timer.Schedule(int64(10*time.Millisecond), true, nil, func(any) {
		mu.Lock()
		count++
		c := count
		mu.Unlock()
		if c == 3 {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recurring timer did not fire 3 times in time")
	}
	cancel.Cancel()
}

func TestEpollTimerCancelPreventsFiring(t *testing.T) {
	timer := iomgr.NewEpollTimer(directDispatch)
	defer timer.Stop()

	var fired int32
	cancelable, err := timer.Schedule(int64(50*time.Millisecond), false, nil, func(any) {
		atomic.AddInt32(&fired, 1)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := cancelable.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatalf("expected cancelled timer to never fire, fired=%d", fired)
	}
}

func TestPolledTimerFiresAtTickResolution(t *testing.T) {
	timer := iomgr.NewPolledTimer(directDispatch, 10*time.Millisecond)
	defer timer.Stop()

	done := make(chan struct{})
	_, err := timer.Schedule(int64(5*time.Millisecond), false, nil, func(any) { close(done) })
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("polled timer never fired")
	}
}

func TestSchedulerNowIsMonotonicNondecreasing(t *testing.T) {
	timer := iomgr.NewEpollTimer(directDispatch)
	defer timer.Stop()
	a := timer.Now()
	time.Sleep(time.Millisecond)
	b := timer.Now()
	if b < a {
		t.Fatalf("Now() went backwards: %d then %d", a, b)
	}
}
