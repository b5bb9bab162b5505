package iomgr_test

import (
	"testing"

	"github.com/momentics/hioload-ws/iomgr"
)

func TestPoolAllocatorAllocFreeRoundTrip(t *testing.T) {
	a := iomgr.NewPoolAllocator(-1)

	buf, err := a.Alloc(0, 128)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if len(buf) != 128 {
		t.Fatalf("expected 128 bytes, got %d", len(buf))
	}
	a.Free(buf)

	// A second allocation of the same size should still succeed, whether
	// or not the pool happens to hand back the freed buffer's storage.
	buf2, err := a.Alloc(0, 128)
	if err != nil {
		t.Fatalf("alloc after free: %v", err)
	}
	if len(buf2) != 128 {
		t.Fatalf("expected 128 bytes, got %d", len(buf2))
	}
	a.Free(buf2)
}

func TestPoolAllocatorRejectsNonPositiveSize(t *testing.T) {
	a := iomgr.NewPoolAllocator(0)
	if _, err := a.Alloc(0, 0); err == nil {
		t.Fatal("expected an error allocating zero bytes")
	}
}

func TestPoolAllocatorNormalizesOutOfRangeNUMANode(t *testing.T) {
	// A wildly out-of-range NUMA node must not panic or otherwise reach
	// pool.BufferPoolManager.GetPool unnormalized.
	a := iomgr.NewPoolAllocator(9999)
	buf, err := a.Alloc(0, 64)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	a.Free(buf)
}
