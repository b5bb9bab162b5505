package drive_test

import (
	"testing"

	"github.com/momentics/hioload-ws/control"
	"github.com/momentics/hioload-ws/drive"
	"github.com/momentics/hioload-ws/iomgr"
)

type tightLoopReactor struct{ iomgr.IOReactor }

func (tightLoopReactor) IsTightLoopReactor() bool { return true }
func (tightLoopReactor) IsWorker() bool           { return true }
func (tightLoopReactor) IsIOReactor() bool        { return false }

type looseReactor struct{ iomgr.IOReactor }

func (looseReactor) IsTightLoopReactor() bool { return false }
func (looseReactor) IsWorker() bool           { return true }
func (looseReactor) IsIOReactor() bool        { return true }

func TestPolledDriveRejectsNonTightLoopReactor(t *testing.T) {
	p := drive.NewPolledDrive("polled", &recordingHandler{}, quietLogger(), control.NewMetricsRegistry())
	thread := &iomgr.IOThread{Reactor: looseReactor{}}
	if err := p.OnIOThreadStart(thread); err == nil {
		t.Fatal("expected error attaching polled-drive to a non-tight-loop reactor")
	}
}

func TestPolledDriveAcceptsTightLoopReactor(t *testing.T) {
	p := drive.NewPolledDrive("polled", &recordingHandler{}, quietLogger(), control.NewMetricsRegistry())
	thread := &iomgr.IOThread{Reactor: tightLoopReactor{}}
	if err := p.OnIOThreadStart(thread); err != nil {
		t.Fatalf("expected tight-loop reactor to be accepted: %v", err)
	}
}

func TestPolledDriveRejectsNilReactor(t *testing.T) {
	p := drive.NewPolledDrive("polled", &recordingHandler{}, quietLogger(), control.NewMetricsRegistry())
	thread := &iomgr.IOThread{}
	if err := p.OnIOThreadStart(thread); err == nil {
		t.Fatal("expected error attaching polled-drive to a thread with no reactor")
	}
}
