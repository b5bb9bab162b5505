// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// AffinityAdapter implements api.Affinity by delegating to the affinity
// package's cross-platform pthread/Win32 pinning, plus internal/concurrency's
// NUMA topology helpers for auto-selection. Reactors use this to pin their
// OS thread to a CPU on entry, matching the SPDK reactor mask model this
// system's timers and reactors are grounded on.
package adapters

import (
	"github.com/momentics/hioload-ws/affinity"
	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/internal/concurrency"
)

// AffinityAdapter tracks the current CPU/NUMA binding of the calling thread.
type AffinityAdapter struct {
	currentCPU  int
	currentNUMA int
	pinned      bool
}

// NewAffinityAdapter creates an AffinityAdapter with no binding.
func NewAffinityAdapter() api.Affinity {
	return &AffinityAdapter{currentCPU: -1, currentNUMA: -1}
}

// Pin assigns the calling OS thread to a specific CPU and/or NUMA node.
// cpuID == -1 picks the preferred CPU for numaID; numaID == -1 detects the
// current NUMA node.
func (a *AffinityAdapter) Pin(cpuID int, numaID int) error {
	if cpuID == -1 {
		cpuID = concurrency.PreferredCPUID(numaID)
	}
	if numaID == -1 {
		numaID = concurrency.CurrentNUMANodeID()
	}
	if err := affinity.SetAffinity(cpuID); err != nil {
		return err
	}
	a.currentCPU = cpuID
	a.currentNUMA = numaID
	a.pinned = true
	return nil
}

// Unpin forgets the recorded CPU/NUMA binding and calls
// runtime.UnlockOSThread; the OS thread's affinity mask set by Pin is left
// in place.
func (a *AffinityAdapter) Unpin() error {
	concurrency.UnpinCurrentThread()
	a.pinned = false
	a.currentCPU = -1
	a.currentNUMA = -1
	return nil
}

// Get returns the currently effective CPU and NUMA IDs for this adapter.
func (a *AffinityAdapter) Get() (cpuID int, numaID int, err error) {
	return a.currentCPU, a.currentNUMA, nil
}
