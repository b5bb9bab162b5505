// File: pool/default.go
// Author: momentics <momentics@gmail.com>
//
// Process-wide BufferPoolManager so IobufAlloc/Free/Realloc and every other
// caller reuse the same NUMA-segmented pools instead of fragmenting
// allocations.

package pool

import (
	"sync"

	"github.com/momentics/hioload-ws/api"
)

var (
	defaultOnce sync.Once
	defaultMgr  *BufferPoolManager
)

// DefaultManager returns the process-wide BufferPoolManager, created once.
func DefaultManager() *BufferPoolManager {
	defaultOnce.Do(func() {
		defaultMgr = NewBufferPoolManager()
	})
	return defaultMgr
}

// DefaultPool is a shortcut to fetch the pool for a given NUMA node from
// the default manager.
func DefaultPool(numaPreferred int) api.BufferPool {
	return DefaultManager().GetPool(numaPreferred)
}
