package iomgr_test

import (
	"testing"

	"github.com/momentics/hioload-ws/iomgr"
)

func TestThreadIdxReserverReusesSmallestFree(t *testing.T) {
	r := iomgr.NewThreadIdxReserver()
	a, err := r.Reserve()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	b, err := r.Reserve()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct indices, got %d twice", a)
	}
	r.Release(a)
	c, err := r.Reserve()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if c != a {
		t.Fatalf("expected reused index %d, got %d", a, c)
	}
}

func TestThreadIdxReserverExhaustion(t *testing.T) {
	r := iomgr.NewThreadIdxReserver()
	for i := 0; i < iomgr.MaxIOThreads; i++ {
		if _, err := r.Reserve(); err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}
	if _, err := r.Reserve(); err != iomgr.ErrThreadsExhausted {
		t.Fatalf("expected ErrThreadsExhausted, got %v", err)
	}
}

func TestThreadIdxReserverReleaseIdempotent(t *testing.T) {
	r := iomgr.NewThreadIdxReserver()
	idx, _ := r.Reserve()
	r.Release(idx)
	r.Release(idx) // must not panic or corrupt state
	if _, err := r.Reserve(); err != nil {
		t.Fatalf("reserve after double release: %v", err)
	}
}
