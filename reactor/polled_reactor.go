// File: reactor/polled_reactor.go
// Author: momentics <momentics@gmail.com>
//
// PolledReactor implements iomgr.IOReactor over the polled-thread runtime
// (package polled): a tight, non-blocking loop that drains its inbox and
// polls the runtime's own event queue every iteration instead of waiting
// on a readiness primitive. Registered under "polled" alongside
// EpollReactor's "epoll" in epoll_reactor.go's init().

package reactor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-ws/iomgr"
	"github.com/momentics/hioload-ws/polled"
)

// PolledReactor hosts a single logical I/O thread whose readiness source
// is the polled runtime's own mailbox rather than epoll/IOCP; used for
// tight-loop, latency-sensitive workloads that would rather spin than
// block on a syscall.
type PolledReactor struct {
	mgr      *iomgr.IOManager
	idx      int
	isWorker bool

	rt     *polled.Runtime
	handle polled.ThreadHandle

	mu     sync.Mutex
	inbox  *queue.Queue
	thread *iomgr.IOThread
	inLoop int32

	devicesMu sync.Mutex
	devices   []*iomgr.IODevice
}

// sharedRuntime is the process-wide polled runtime; every PolledReactor
// creates its logical thread in it.
var sharedRuntime = polled.NewRuntime()

func newPolledReactor(mgr *iomgr.IOManager, idx int) (iomgr.IOReactor, error) {
	rt := sharedRuntime
	if err := rt.Init(); err != nil {
		return nil, err
	}
	return &PolledReactor{
		mgr:      mgr,
		idx:      idx,
		isWorker: true, // polled-runtime reactors are always worker reactors
		rt:       rt,
		inbox:    queue.New(),
	}, nil
}

func (r *PolledReactor) Index() int             { return r.idx }
func (r *PolledReactor) IsWorker() bool         { return r.isWorker }
func (r *PolledReactor) IsIOReactor() bool      { return true }
func (r *PolledReactor) IsTightLoopReactor() bool { return true }

func (r *PolledReactor) IOThreads() []*iomgr.IOThread {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.thread == nil {
		return nil
	}
	return []*iomgr.IOThread{r.thread}
}

func (r *PolledReactor) AddrToThread(addr iomgr.ThreadAddr) (*iomgr.IOThread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.thread == nil || addr.ReactorIdx != r.idx || addr.LocalSlot != 0 {
		return nil, false
	}
	return r.thread, true
}

func (r *PolledReactor) SelectThread() (*iomgr.IOThread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.thread == nil || r.thread.Relinquished() {
		return nil, false
	}
	return r.thread, true
}

func (r *PolledReactor) IOThreadSelf() (*iomgr.IOThread, bool) {
	if atomic.LoadInt32(&r.inLoop) == 0 {
		return nil, false
	}
	return r.SelectThread()
}

func (r *PolledReactor) NotifyThreadState(started bool) {
	field := "stopped"
	if started {
		field = "started"
	}
	r.mgr.Logger().WithFields(logrus.Fields{"reactor": r.idx, "transition": field}).Debug("reactor: polled thread state change")
}

// AttachDevice adds dev to the busy-poll list every Run iteration walks;
// there is no readiness-notification primitive to register with in the
// polled model, matching the tight-loop reactor's whole premise.
func (r *PolledReactor) AttachDevice(dev *iomgr.IODevice) error {
	r.devicesMu.Lock()
	defer r.devicesMu.Unlock()
	r.devices = append(r.devices, dev)
	return nil
}

// DetachDevice removes dev from the busy-poll list.
func (r *PolledReactor) DetachDevice(dev *iomgr.IODevice) error {
	r.devicesMu.Lock()
	defer r.devicesMu.Unlock()
	for i, d := range r.devices {
		if d == dev {
			r.devices = append(r.devices[:i], r.devices[i+1:]...)
			break
		}
	}
	return nil
}

// pollDevices invokes every attached device's interface once per loop
// iteration, unconditionally — the polled model has no readiness signal
// to gate on, so the handler itself decides whether there is work.
func (r *PolledReactor) pollDevices() {
	r.devicesMu.Lock()
	devices := append([]*iomgr.IODevice(nil), r.devices...)
	r.devicesMu.Unlock()
	for _, dev := range devices {
		if dev.Interface == nil {
			continue
		}
		if err := dev.Interface.HandleEvent(dev, 0); err != nil {
			r.mgr.Logger().WithError(err).WithField("interface", dev.Interface.Name()).Warn("reactor: polled device handler failed")
		}
	}
}

func (r *PolledReactor) DeliverMsg(addr iomgr.ThreadAddr, msg *iomgr.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.thread == nil || addr.LocalSlot != 0 || r.thread.Relinquished() {
		return false
	}
	r.inbox.Add(msg)
	r.thread.IncOutstanding(1)
	return true
}

// Run brings up the polled thread and its logical iomgr.IOThread, then
// tight-loops: drain the inbox, poll the runtime, repeat, until ctx is
// cancelled.
func (r *PolledReactor) Run(ctx context.Context) error {
	unpin := pinIfRequested(r.mgr, r.idx)
	defer unpin()

	handle, err := r.rt.CreateThread(64, 1024)
	if err != nil {
		return err
	}
	r.handle = handle
	defer r.rt.DestroyThread(handle)

	idx, err := r.mgr.ReserveThreadIdx()
	if err != nil {
		return err
	}
	defer r.mgr.ReleaseThreadIdx(idx)

	addr := iomgr.ThreadAddr{ReactorIdx: r.idx, LocalSlot: 0}
	thread := r.mgr.NewThread(idx, addr, r)

	r.mu.Lock()
	r.thread = thread
	r.mu.Unlock()

	if err := r.mgr.InitThreadForInterfaces(thread); err != nil {
		return err
	}
	atomic.StoreInt32(&r.inLoop, 1)
	r.NotifyThreadState(true)
	defer func() {
		atomic.StoreInt32(&r.inLoop, 0)
		thread.Relinquish()
		r.mgr.ForeachInterface(func(iface iomgr.IOInterface) {
			_ = iface.OnIOThreadStop(thread)
		})
		r.NotifyThreadState(false)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		r.drain(thread)
		r.pollDevices()
		if _, err := r.rt.Poll(r.handle, 64); err != nil {
			return err
		}
	}
}

func (r *PolledReactor) drain(thread *iomgr.IOThread) {
	for {
		r.mu.Lock()
		if r.inbox.Length() == 0 {
			r.mu.Unlock()
			return
		}
		v := r.inbox.Remove()
		r.mu.Unlock()

		msg := v.(*iomgr.Message)
		thread.IncOutstanding(-1)
		if msg.Type == iomgr.MsgRelinquishIOThread {
			thread.Relinquish()
			msg.Free()
			continue
		}
		r.mgr.DispatchMessage(msg)
	}
}

var _ iomgr.IOReactor = (*PolledReactor)(nil)
