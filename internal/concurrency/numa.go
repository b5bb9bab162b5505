// File: internal/concurrency/numa.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NUMA topology queries used by adapters.AffinityAdapter and
// internal/normalize to pick a default CPU/node when a caller passes -1.
// Kept separate from the removed pin*.go cluster: this file only reads
// topology, it never touches the calling thread's affinity mask.

package concurrency

import "runtime"

// NUMANodes returns the number of NUMA nodes visible to the process.
// Platform-specific implementations live in numa_linux.go / numa_stub.go.
var numaNodeCounter = defaultNUMANodes

func NUMANodes() int {
	n := numaNodeCounter()
	if n < 1 {
		return 1
	}
	return n
}

// CurrentNUMANodeID returns the NUMA node the calling OS thread currently
// runs on, or -1 if it cannot be determined. Callers should treat -1 as
// "use node 0".
var currentNodeGetter = defaultCurrentNUMANodeID

func CurrentNUMANodeID() int {
	return currentNodeGetter()
}

// PreferredCPUID returns the lowest CPU index belonging to numaID, spreading
// round-robin across runtime.NumCPU() when the node cannot be resolved.
func PreferredCPUID(numaID int) int {
	cpus := cpuListForNode(numaID)
	if len(cpus) > 0 {
		return cpus[0]
	}
	if numaID < 0 {
		numaID = 0
	}
	total := runtime.NumCPU()
	if total < 1 {
		return 0
	}
	return numaID % total
}

// UnpinCurrentThread undoes one runtime.LockOSThread made by the caller,
// letting the Go scheduler migrate the goroutine's carrier thread again.
// It does not change the OS thread's CPU affinity mask.
func UnpinCurrentThread() {
	runtime.UnlockOSThread()
}
