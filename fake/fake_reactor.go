// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT
//
// FakeReactor is a minimal in-memory iomgr.IOReactor double for tests that
// need to exercise IOManager's messaging fabric without a real epoll/IOCP
// event loop or the polled runtime.

package fake

import (
	"context"
	"sync"

	"github.com/momentics/hioload-ws/iomgr"
)

// FakeReactor hosts a single logical thread and records every message
// delivered to it, without ever dispatching them — tests drain Delivered
// directly instead of relying on IOManager.DispatchMessage.
type FakeReactor struct {
	idx      int
	isWorker bool

	mu        sync.Mutex
	thread    *iomgr.IOThread
	Delivered []*iomgr.Message

	// AttachedDevices records every device passed to AttachDevice, minus
	// any later removed by DetachDevice, for test inspection.
	AttachedDevices []*iomgr.IODevice
}

// NewFakeReactor builds a fake reactor at idx, classified as a worker
// reactor when isWorker is true.
func NewFakeReactor(idx int, isWorker bool) *FakeReactor {
	return &FakeReactor{idx: idx, isWorker: isWorker}
}

// Attach installs t as this reactor's hosted thread, as a real reactor's
// Run would on startup. Tests call this directly instead of running Run.
func (f *FakeReactor) Attach(t *iomgr.IOThread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thread = t
}

func (f *FakeReactor) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *FakeReactor) DeliverMsg(addr iomgr.ThreadAddr, msg *iomgr.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.thread == nil || addr.LocalSlot != 0 {
		return false
	}
	f.Delivered = append(f.Delivered, msg)
	return true
}

func (f *FakeReactor) IOThreadSelf() (*iomgr.IOThread, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.thread == nil {
		return nil, false
	}
	return f.thread, true
}

func (f *FakeReactor) IsWorker() bool           { return f.isWorker }
func (f *FakeReactor) IsTightLoopReactor() bool { return false }
func (f *FakeReactor) IsIOReactor() bool        { return true }

func (f *FakeReactor) AddrToThread(addr iomgr.ThreadAddr) (*iomgr.IOThread, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.thread == nil || addr.ReactorIdx != f.idx || addr.LocalSlot != 0 {
		return nil, false
	}
	return f.thread, true
}

func (f *FakeReactor) SelectThread() (*iomgr.IOThread, bool) {
	return f.IOThreadSelf()
}

func (f *FakeReactor) IOThreads() []*iomgr.IOThread {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.thread == nil {
		return nil
	}
	return []*iomgr.IOThread{f.thread}
}

func (f *FakeReactor) NotifyThreadState(started bool) {}

func (f *FakeReactor) Index() int { return f.idx }

// AttachDevice records dev without any real registration.
func (f *FakeReactor) AttachDevice(dev *iomgr.IODevice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AttachedDevices = append(f.AttachedDevices, dev)
	return nil
}

// DetachDevice removes dev from AttachedDevices.
func (f *FakeReactor) DetachDevice(dev *iomgr.IODevice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.AttachedDevices {
		if d == dev {
			f.AttachedDevices = append(f.AttachedDevices[:i], f.AttachedDevices[i+1:]...)
			break
		}
	}
	return nil
}

var _ iomgr.IOReactor = (*FakeReactor)(nil)
