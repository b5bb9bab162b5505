package iomgr_test

import (
	"testing"

	"github.com/momentics/hioload-ws/iomgr"
)

func TestManagerControlDefaultsAndExposesLiveState(t *testing.T) {
	mgr := iomgr.New(iomgr.Config{ReactorMode: "unregistered-mode"})

	ctrl := mgr.Control()
	if ctrl == nil {
		t.Fatal("expected a default Control instance")
	}

	stats := ctrl.Stats()
	if got := stats["debug.iomgr.state"]; got != iomgr.StateUninitialised.String() {
		t.Fatalf("expected iomgr.state debug probe to report %q, got %v", iomgr.StateUninitialised, got)
	}
	if got := stats["debug.iomgr.reactors"]; got != 0 {
		t.Fatalf("expected iomgr.reactors debug probe to report 0 before Start, got %v", got)
	}
}

func TestManagerControlSharesMetricsRegistryByDefault(t *testing.T) {
	mgr := iomgr.New(iomgr.Config{ReactorMode: "unregistered-mode"})
	if mgr.Metrics() == nil {
		t.Fatal("expected a non-nil metrics registry")
	}
	// The default Control adapter's own metrics registry backs the
	// manager's, so a metric set through one surface is visible via
	// Control().Stats() too.
	mgr.Metrics().Set("probe.value", 7)
	stats := mgr.Control().Stats()
	if stats["probe.value"] != 7 {
		t.Fatalf("expected probe.value=7 via Control().Stats(), got %v", stats["probe.value"])
	}
}
