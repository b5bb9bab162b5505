// File: iomgr/device.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IODevice and IOInterface: the registration surface concrete drive
// back-ends (package drive) build on. IODevice.dev is modelled as a Go
// sum type via DeviceHandle rather than a C++ tagged union, since Go has
// no anonymous unions; the Kind discriminant plays the same role the
// original's enum tag does.

package iomgr

import "sync"

// DeviceHandleKind discriminates the three device-handle shapes the
// original models as a tagged union.
type DeviceHandleKind int

const (
	HandleFD DeviceHandleKind = iota
	HandleBlockDevice
	HandleQueuePair
)

// DeviceHandle is the variant device handle: exactly one of the typed
// fields is meaningful, selected by Kind.
type DeviceHandle struct {
	Kind        DeviceHandleKind
	FD          int
	BlockDevice any // opaque block-device handle, back-end defined
	QueuePair   any // opaque queue-pair handle, back-end defined
}

// IODevice is a registered device: an interface-owned handle with a scope
// (global or pinned to one logical thread) and per-thread context slots
// indexed by ThreadIdx, used when the device is global so each reactor's
// per-thread state can be looked up in O(1).
type IODevice struct {
	Handle    DeviceHandle
	Interface IOInterface
	Cookie    any

	// ThreadScope is nil for a global device (attached to every reactor,
	// with a context slot per current I/O thread) or non-nil to pin the
	// device to one logical thread, per original_source's is_global() ==
	// "thread_scope does not hold a concrete thread".
	ThreadScope *ThreadAddr

	mu       sync.RWMutex
	perThread map[ThreadIdx]any
}

// NewGlobalDevice registers a device visible to every reactor.
func NewGlobalDevice(h DeviceHandle, iface IOInterface, cookie any) *IODevice {
	return &IODevice{Handle: h, Interface: iface, Cookie: cookie, perThread: make(map[ThreadIdx]any)}
}

// NewPinnedDevice registers a device attached only to the logical thread
// at addr.
func NewPinnedDevice(h DeviceHandle, iface IOInterface, cookie any, addr ThreadAddr) *IODevice {
	return &IODevice{Handle: h, Interface: iface, Cookie: cookie, ThreadScope: &addr, perThread: make(map[ThreadIdx]any)}
}

// IsGlobal reports whether the device has no thread pin.
func (d *IODevice) IsGlobal() bool {
	return d.ThreadScope == nil
}

// SetThreadContext stores back-end-defined per-thread state for idx.
func (d *IODevice) SetThreadContext(idx ThreadIdx, ctx any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.perThread[idx] = ctx
}

// ThreadContext retrieves per-thread state previously stored for idx.
func (d *IODevice) ThreadContext(idx ThreadIdx) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.perThread[idx]
	return v, ok
}

// IOInterface is a family of devices sharing a back-end. Concrete
// variants (package drive: Generic, AIO-Drive, Polled-Drive) implement
// this to attach/detach per-thread state as reactors come and go, and to
// dispatch readiness events to the owning device.
type IOInterface interface {
	// Name identifies the interface for logging/debug, e.g. "generic",
	// "aio-drive", "polled-drive".
	Name() string

	// OnIOThreadStart is called once per hosted logical thread, either
	// during AddInterface's synchronous setup broadcast (for reactors
	// already running) or when a new reactor creates its first thread
	// (for interfaces already registered).
	OnIOThreadStart(t *IOThread) error

	// OnIOThreadStop is called as a logical thread relinquishes, giving
	// the interface a chance to release per-thread state.
	OnIOThreadStop(t *IOThread) error

	// HandleEvent dispatches a readiness event for one of this
	// interface's devices.
	HandleEvent(dev *IODevice, event int) error
}
