// File: iomgr/regex_test.go

package iomgr

import (
	"context"
	"testing"
)

// minimalReactor satisfies IOReactor with just enough behavior to drive
// IOThread.IsWorker/IsIO from a white-box test. The fuller fake.FakeReactor
// double (exercised from manager_test.go) can't be imported here without
// creating an import cycle, since package fake imports package iomgr.
type minimalReactor struct {
	worker bool
	io     bool
}

func (m *minimalReactor) Run(ctx context.Context) error                     { return nil }
func (m *minimalReactor) DeliverMsg(addr ThreadAddr, msg *Message) bool     { return false }
func (m *minimalReactor) IOThreadSelf() (*IOThread, bool)                   { return nil, false }
func (m *minimalReactor) IsWorker() bool                                   { return m.worker }
func (m *minimalReactor) IsTightLoopReactor() bool                         { return false }
func (m *minimalReactor) IsIOReactor() bool                                { return m.io }
func (m *minimalReactor) AddrToThread(addr ThreadAddr) (*IOThread, bool)   { return nil, false }
func (m *minimalReactor) SelectThread() (*IOThread, bool)                  { return nil, false }
func (m *minimalReactor) IOThreads() []*IOThread                           { return nil }
func (m *minimalReactor) NotifyThreadState(started bool)                   {}
func (m *minimalReactor) Index() int                                       { return 0 }
func (m *minimalReactor) AttachDevice(dev *IODevice) error                 { return nil }
func (m *minimalReactor) DetachDevice(dev *IODevice) error                 { return nil }

var _ IOReactor = (*minimalReactor)(nil)

func threadWith(worker, io bool) *IOThread {
	return &IOThread{Reactor: &minimalReactor{worker: worker, io: io}}
}

func TestThreadRegexMatchesClassification(t *testing.T) {
	worker := threadWith(true, true)
	user := threadWith(false, true)

	cases := []struct {
		regex ThreadRegex
		t     *IOThread
		want  bool
	}{
		{AllIO, worker, true},
		{AllIO, user, true},
		{AllWorker, worker, true},
		{AllWorker, user, false},
		{AllUser, worker, false},
		{AllUser, user, true},
		{LeastBusyIO, worker, true},
		{LeastBusyWorker, worker, true},
		{LeastBusyWorker, user, false},
		{LeastBusyUser, user, true},
	}
	for _, c := range cases {
		if got := c.regex.matches(c.t); got != c.want {
			t.Errorf("%s.matches(worker=%v): got %v, want %v", c.regex, c.t.IsWorker(), got, c.want)
		}
	}
}

func TestThreadRegexIsLeastBusy(t *testing.T) {
	for _, r := range []ThreadRegex{LeastBusyIO, LeastBusyWorker, LeastBusyUser} {
		if !r.isLeastBusy() {
			t.Errorf("%s: expected isLeastBusy true", r)
		}
	}
	for _, r := range []ThreadRegex{AllIO, AllWorker, AllUser, RandomWorker} {
		if r.isLeastBusy() {
			t.Errorf("%s: expected isLeastBusy false", r)
		}
	}
}

func TestThreadRegexIsGlobalScope(t *testing.T) {
	for r := AllIO; r <= RandomWorker; r++ {
		if !r.isGlobalScope() {
			t.Errorf("%s: expected valid global scope", r)
		}
	}
	if ThreadRegex(-1).isGlobalScope() {
		t.Error("out-of-range regex must not be a valid global scope")
	}
}

func TestThreadRegexString(t *testing.T) {
	if AllIO.String() != "all_io" {
		t.Errorf("unexpected String(): %s", AllIO.String())
	}
	if ThreadRegex(99).String() != "unknown_regex" {
		t.Errorf("unexpected String() for out-of-range value: %s", ThreadRegex(99).String())
	}
}
