// File: iomgr/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IOReactor is the contract the manager drives; concrete EpollReactor and
// PolledReactor implementations live in package reactor, which imports
// this package and registers itself via RegisterReactorFactory in an
// init() — the same driver-registration idiom database/sql uses, chosen
// here specifically to avoid a reactor<->iomgr import cycle: the manager
// must construct reactors, and reactors must call back into the manager.

package iomgr

import "context"

// IOReactor owns one OS thread, runs an event loop, hosts one or more
// logical I/O threads, and holds an incoming-message queue.
type IOReactor interface {
	// Run blocks until Stop-equivalent shutdown (ctx cancellation or a
	// RELINQUISH_IO_THREAD that empties the reactor's hosted threads).
	Run(ctx context.Context) error

	// DeliverMsg enqueues msg for the logical thread at addr. Fails only
	// if this reactor is not an I/O reactor or the destination has
	// relinquished.
	DeliverMsg(addr ThreadAddr, msg *Message) bool

	// IOThreadSelf returns the calling goroutine's hosted thread, if the
	// calling goroutine is in fact this reactor's loop.
	IOThreadSelf() (*IOThread, bool)

	IsWorker() bool
	IsTightLoopReactor() bool
	IsIOReactor() bool

	AddrToThread(addr ThreadAddr) (*IOThread, bool)
	SelectThread() (*IOThread, bool)
	IOThreads() []*IOThread

	// NotifyThreadState broadcasts a started/stopped transition to this
	// reactor's registered notifiers.
	NotifyThreadState(started bool)

	// Index returns the reactor's slot in the manager's reactor table.
	Index() int

	// AttachDevice registers dev's handle with this reactor's readiness
	// source (epoll/IOCP fd set, or the polled busy-poll device list),
	// so future readiness events reach dev.Interface.HandleEvent.
	AttachDevice(dev *IODevice) error

	// DetachDevice reverses AttachDevice.
	DetachDevice(dev *IODevice) error
}

// ReactorFactory constructs one IOReactor bound to mgr at the given
// index. The epoll-driven and polled-runtime variants are separate
// factories, chosen by the name each is registered under.
type ReactorFactory func(mgr *IOManager, idx int) (IOReactor, error)

var reactorFactories = map[string]ReactorFactory{}

// RegisterReactorFactory makes a reactor implementation available to
// IOManager.Start under name ("epoll" or "polled"). Called from an
// init() in package reactor.
func RegisterReactorFactory(name string, f ReactorFactory) {
	reactorFactories[name] = f
}

func lookupReactorFactory(name string) (ReactorFactory, bool) {
	f, ok := reactorFactories[name]
	return f, ok
}
