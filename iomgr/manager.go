// File: iomgr/manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IOManager is the facade: lifecycle state machine, reactor table,
// interface registry, messaging fabric (SendMsg/MulticastMsg), timer
// services, and the process-wide allocator. Grounded on
// original_source/src/lib/iomgr.cpp's iomgr class, restructured around
// goroutines-as-reactors instead of pthreads, logrus instead of the
// original's plain stderr tracing, and go-metrics instead of hand-rolled
// counters.

package iomgr

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-ws/adapters"
	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/control"
)

// State enumerates the manager's lifecycle, strictly monotonic on every
// success path per the design's state-machine invariant.
type State int32

const (
	StateUninitialised State = iota
	StateInterfaceInit
	StateReactorInit
	StateSysInit
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialised:
		return "uninitialised"
	case StateInterfaceInit:
		return "interface_init"
	case StateReactorInit:
		return "reactor_init"
	case StateSysInit:
		return "sys_init"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config parameterises a manager instance.
type Config struct {
	// ReactorMode selects the registered reactor factory: "epoll" or
	// "polled". Concrete implementations register themselves via
	// RegisterReactorFactory from package reactor's init().
	ReactorMode string

	// NumIOReactors is the number of I/O reactors to create at Start.
	// Worker/user reactor classification is decided by the factory.
	NumIOReactors int

	// Logger receives structured lifecycle and delivery-failure events.
	// If nil, a default logrus.Logger at Info level is used.
	Logger *logrus.Logger

	// Metrics is the shared registry mirrored by every IOThread's
	// outstanding_ops gauge. If nil, and Control is also nil (or supplies
	// its own *control.MetricsRegistry), one is derived from Control.
	Metrics *control.MetricsRegistry

	// Control backs the manager's runtime config/metrics/debug-probe
	// surface. If nil, adapters.NewControlAdapter() is used, matching the
	// way a reactor obtains its own affinity adapter. Exposed so a caller
	// can wire the same api.Control instance into other subsystems (e.g.
	// an HTTP debug endpoint) that need to observe or reconfigure this
	// manager at runtime.
	Control api.Control

	// PinReactorThreads, when true, has every reactor's Run pin its OS
	// thread to a CPU via adapters.AffinityAdapter before entering its
	// event loop, matching the SPDK reactor-mask model this system's
	// reactors are grounded on. Pinning failure (unsupported platform, or
	// a container without CAP_SYS_NICE) is logged and otherwise ignored;
	// it never fails Start.
	PinReactorThreads bool

	// IsPolled selects the polled-runtime drive interface ("polled-drive")
	// over the AIO-style one ("aio-drive") in the default interface
	// adder. Callers running ReactorMode "polled" should set this too.
	IsPolled bool

	// Notifier, if set, is called once with true after the manager
	// reaches StateRunning and once with false after it reaches
	// StateStopped — the manager-level counterpart to each reactor's own
	// per-thread NotifyThreadState broadcast.
	Notifier func(started bool)

	// InterfaceAdder runs during interface_init, before any reactor
	// exists, and is responsible for registering the manager's generic
	// interface and (usually) a drive interface via AddDriveInterface. If
	// nil, defaultInterfaceAdder runs instead, building a "generic" plus
	// an "aio-drive"/"polled-drive" interface from package drive's
	// registered factories — a no-op if drive was never imported.
	InterfaceAdder func(m *IOManager) error
}

// moduleEntry is one registered message-module's handler.
type moduleEntry struct {
	name    string
	handler func(msg *Message)
}

// IOManager is the process-wide facade over the reactor set, the
// messaging fabric, timers, and the buffer allocator.
type IOManager struct {
	cfg  Config
	log  *logrus.Logger
	met  *control.MetricsRegistry
	ctrl api.Control

	state int32 // State, accessed atomically
	// stateCh is closed and replaced on every transition so WaitForState
	// can block without polling.
	stateMu sync.Mutex
	stateCh chan struct{}

	reserver *ThreadIdxReserver

	reactorsMu sync.RWMutex
	reactors   []IOReactor

	ifaceMu    sync.Mutex // spans the entire OnIOThreadStart+append sequence, per S6
	interfaces []IOInterface

	// driveMu guards the drive-interface list separately from ifaceMu:
	// the spec requires the drive-interface list be independently
	// observable (and independently emptied at Stop) from the full
	// interface list, even though every drive interface is also a member
	// of interfaces.
	driveMu         sync.RWMutex
	driveInterfaces []IOInterface
	defaultDrive    IOInterface

	modulesMu sync.RWMutex
	modules   map[int]*moduleEntry

	allocator atomic.Value // Allocator

	epollTimer  *EpollTimer
	polledTimer *PolledTimer

	yetToStop int32 // outstanding reactor shutdowns, Stop's race-closing counter

	cancel context.CancelFunc

	wg           sync.WaitGroup
	doneCh       chan struct{}
	finalizeOnce sync.Once
}

// metricsSource is satisfied by *adapters.ControlAdapter without iomgr
// depending on its concrete type: a Control implementation that also
// exposes the live go-metrics registry backing it, so New can reuse one
// registry for both surfaces instead of running two side by side.
type metricsSource interface {
	Metrics() *control.MetricsRegistry
}

// New constructs a manager in the uninitialised state. Call Start to bring
// up reactors and enter the running state.
func New(cfg Config) *IOManager {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Control == nil {
		cfg.Control = adapters.NewControlAdapter()
	}
	if cfg.Metrics == nil {
		if src, ok := cfg.Control.(metricsSource); ok {
			cfg.Metrics = src.Metrics()
		} else {
			cfg.Metrics = control.NewMetricsRegistry()
		}
	}
	m := &IOManager{
		cfg:      cfg,
		log:      cfg.Logger,
		met:      cfg.Metrics,
		ctrl:     cfg.Control,
		reserver: NewThreadIdxReserver(),
		modules:  make(map[int]*moduleEntry),
		stateCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	m.allocator.Store(Allocator(NewPoolAllocator(0)))
	m.setState(StateUninitialised)
	m.epollTimer = NewEpollTimer(m.dispatchTimerCookie)
	cfg.Control.RegisterDebugProbe("iomgr.state", func() any { return m.State().String() })
	cfg.Control.RegisterDebugProbe("iomgr.reactors", func() any { return len(m.Reactors()) })
	cfg.Control.RegisterDebugProbe("iomgr.interfaces", func() any { return len(m.Interfaces()) })
	return m
}

// State returns the current lifecycle state.
func (m *IOManager) State() State {
	return State(atomic.LoadInt32(&m.state))
}

func (m *IOManager) setState(s State) {
	atomic.StoreInt32(&m.state, int32(s))
	m.stateMu.Lock()
	close(m.stateCh)
	m.stateCh = make(chan struct{})
	m.stateMu.Unlock()
	m.met.Set("iomgr.state", s.String())
	m.log.WithField("state", s.String()).Info("iomgr: state transition")
}

// WaitForState blocks until the manager reaches at least target, or ctx is
// done.
func (m *IOManager) WaitForState(ctx context.Context, target State) error {
	for {
		if m.State() >= target {
			return nil
		}
		m.stateMu.Lock()
		ch := m.stateCh
		m.stateMu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AddInterface registers iface with every currently running reactor,
// synchronously invoking OnIOThreadStart for each of their hosted threads
// before returning, then appends iface so future reactors call
// OnIOThreadStart for it too. The lock spans the whole sequence so a
// concurrent reactor creation can never observe iface half-registered
// (invariant S6).
func (m *IOManager) AddInterface(iface IOInterface) error {
	m.ifaceMu.Lock()
	defer m.ifaceMu.Unlock()

	m.reactorsMu.RLock()
	reactors := append([]IOReactor(nil), m.reactors...)
	m.reactorsMu.RUnlock()

	for _, r := range reactors {
		for _, t := range r.IOThreads() {
			if t.Relinquished() {
				continue
			}
			if err := iface.OnIOThreadStart(t); err != nil {
				return fmt.Errorf("iomgr: interface %s failed on thread %d: %w", iface.Name(), t.Idx, err)
			}
		}
	}
	m.interfaces = append(m.interfaces, iface)
	m.log.WithField("interface", iface.Name()).Info("iomgr: interface registered")
	return nil
}

// InitThreadForInterfaces calls OnIOThreadStart for every registered
// interface against a freshly created thread. Called by a reactor factory
// as it brings a new logical thread online, under the same ifaceMu lock
// AddInterface uses, so the two orderings can never race (S6, symmetric
// direction).
func (m *IOManager) InitThreadForInterfaces(t *IOThread) error {
	m.ifaceMu.Lock()
	defer m.ifaceMu.Unlock()
	for _, iface := range m.interfaces {
		if err := iface.OnIOThreadStart(t); err != nil {
			return fmt.Errorf("iomgr: interface %s failed on new thread %d: %w", iface.Name(), t.Idx, err)
		}
	}
	return nil
}

// Interfaces returns a snapshot of every registered interface, draining
// to empty once Stop's finalize has run — the direct observation Testable
// Property 3 requires.
func (m *IOManager) Interfaces() []IOInterface {
	m.ifaceMu.Lock()
	defer m.ifaceMu.Unlock()
	return append([]IOInterface(nil), m.interfaces...)
}

// Reactors returns a snapshot of the worker-reactor table, likewise
// draining to empty once Stop's finalize has run.
func (m *IOManager) Reactors() []IOReactor {
	m.reactorsMu.RLock()
	defer m.reactorsMu.RUnlock()
	return append([]IOReactor(nil), m.reactors...)
}

// ForeachInterface calls fn for every registered interface, in
// registration order.
func (m *IOManager) ForeachInterface(fn func(IOInterface)) {
	m.ifaceMu.Lock()
	ifaces := append([]IOInterface(nil), m.interfaces...)
	m.ifaceMu.Unlock()
	for _, iface := range ifaces {
		fn(iface)
	}
}

// AddDriveInterface registers iface the same way AddInterface does, and
// additionally tracks it in the separate drive-interface list. The first
// drive interface registered, or any registered with isDefault true,
// becomes the interface RegisterDevice falls back to for a device that
// names none of its own.
func (m *IOManager) AddDriveInterface(iface IOInterface, isDefault bool) error {
	if err := m.AddInterface(iface); err != nil {
		return err
	}
	m.driveMu.Lock()
	defer m.driveMu.Unlock()
	m.driveInterfaces = append(m.driveInterfaces, iface)
	if isDefault || m.defaultDrive == nil {
		m.defaultDrive = iface
	}
	m.log.WithField("interface", iface.Name()).Info("iomgr: drive interface registered")
	return nil
}

// DriveInterfaces returns a snapshot of the registered drive interfaces.
func (m *IOManager) DriveInterfaces() []IOInterface {
	m.driveMu.RLock()
	defer m.driveMu.RUnlock()
	return append([]IOInterface(nil), m.driveInterfaces...)
}

// DefaultDriveInterface returns the interface a device attaches to when
// it names none of its own.
func (m *IOManager) DefaultDriveInterface() (IOInterface, bool) {
	m.driveMu.RLock()
	defer m.driveMu.RUnlock()
	return m.defaultDrive, m.defaultDrive != nil
}

// RegisterDevice attaches dev to every reactor able to host it: every
// reactor for a global device, or only the reactor hosting dev's pinned
// thread. dev.Interface is used if set, otherwise the default drive
// interface, recorded onto dev for HandleEvent dispatch.
func (m *IOManager) RegisterDevice(dev *IODevice) error {
	if dev.Interface == nil {
		def, ok := m.DefaultDriveInterface()
		if !ok {
			return ErrNoDriveInterface
		}
		dev.Interface = def
	}
	m.reactorsMu.RLock()
	reactors := append([]IOReactor(nil), m.reactors...)
	m.reactorsMu.RUnlock()
	for _, r := range reactors {
		if dev.ThreadScope != nil && dev.ThreadScope.ReactorIdx != r.Index() {
			continue
		}
		if err := r.AttachDevice(dev); err != nil {
			return fmt.Errorf("iomgr: attach device to reactor %d: %w", r.Index(), err)
		}
	}
	return nil
}

// UnregisterDevice detaches dev from every reactor it may be attached to.
func (m *IOManager) UnregisterDevice(dev *IODevice) error {
	m.reactorsMu.RLock()
	reactors := append([]IOReactor(nil), m.reactors...)
	m.reactorsMu.RUnlock()
	for _, r := range reactors {
		if err := r.DetachDevice(dev); err != nil {
			return fmt.Errorf("iomgr: detach device from reactor %d: %w", r.Index(), err)
		}
	}
	return nil
}

// defaultInterfaceAdder is used when Config.InterfaceAdder is nil: it
// builds a "generic" interface plus an "aio-drive" or "polled-drive"
// interface (per Config.IsPolled) from package drive's registered
// factories. Soft-skips, rather than failing Start, when no factory is
// registered — callers that never import package drive get no automatic
// interfaces, exactly as before this adder existed.
func defaultInterfaceAdder(m *IOManager) error {
	factory, ok := lookupInterfaceFactory("generic")
	if !ok {
		m.log.Debug("iomgr: no interface factory registered, skipping automatic interface bring-up")
		return nil
	}
	iface, err := factory(m)
	if err != nil {
		return fmt.Errorf("iomgr: default generic interface factory failed: %w", err)
	}
	if err := m.AddInterface(iface); err != nil {
		return err
	}

	driveName := "aio-drive"
	if m.cfg.IsPolled {
		driveName = "polled-drive"
	}
	driveFactory, ok := lookupInterfaceFactory(driveName)
	if !ok {
		m.log.WithField("drive", driveName).Debug("iomgr: no drive interface factory registered, skipping automatic drive bring-up")
		return nil
	}
	drv, err := driveFactory(m)
	if err != nil {
		return fmt.Errorf("iomgr: default drive interface factory failed: %w", err)
	}
	return m.AddDriveInterface(drv, true)
}

// ReserveThreadIdx hands out the next dense thread index for a reactor
// bringing up a new logical thread.
func (m *IOManager) ReserveThreadIdx() (ThreadIdx, error) {
	return m.reserver.Reserve()
}

// ReleaseThreadIdx returns idx to the free pool.
func (m *IOManager) ReleaseThreadIdx(idx ThreadIdx) {
	m.reserver.Release(idx)
}

// NewThread constructs an IOThread bound to the given reactor, wiring its
// outstanding_ops gauge into the shared metrics registry.
func (m *IOManager) NewThread(idx ThreadIdx, addr ThreadAddr, reactor IOReactor) *IOThread {
	gauge := m.met.Gauge(fmt.Sprintf("iomgr.thread.%d.outstanding_ops", idx))
	return newIOThread(idx, addr, reactor, gauge)
}

// Logger exposes the manager's structured logger to reactors and
// interfaces.
func (m *IOManager) Logger() *logrus.Logger { return m.log }

// Metrics exposes the shared metrics registry.
func (m *IOManager) Metrics() *control.MetricsRegistry { return m.met }

// Control exposes the manager's runtime config/metrics/debug-probe facade.
func (m *IOManager) Control() api.Control { return m.ctrl }

// PinReactorThreads reports whether reactors should pin their OS thread to
// a CPU on entry to Run, per Config.PinReactorThreads.
func (m *IOManager) PinReactorThreads() bool { return m.cfg.PinReactorThreads }

// Start reserves reactor slots, constructs them via the registered
// factory for cfg.ReactorMode, and runs each on its own goroutine. Start
// blocks until every reactor hosts its first logical thread (visible
// through IOThreads) or has already exited, then moves through
// StateSysInit and returns once the manager reaches StateRunning.
func (m *IOManager) Start(ctx context.Context) error {
	if m.State() != StateUninitialised {
		return ErrAlreadyRunning
	}
	m.setState(StateInterfaceInit)

	adder := m.cfg.InterfaceAdder
	if adder == nil {
		adder = defaultInterfaceAdder
	}
	if err := adder(m); err != nil {
		m.setState(StateStopped)
		return fmt.Errorf("iomgr: interface bring-up failed: %w", err)
	}

	factory, ok := lookupReactorFactory(m.cfg.ReactorMode)
	if !ok {
		m.setState(StateStopped)
		return ErrNoReactorFactory
	}

	m.setState(StateReactorInit)
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	n := m.cfg.NumIOReactors
	if n <= 0 {
		n = 1
	}
	reactors := make([]IOReactor, 0, n)
	for i := 0; i < n; i++ {
		r, err := factory(m, i)
		if err != nil {
			cancel()
			m.setState(StateStopped)
			return fmt.Errorf("iomgr: reactor factory failed at index %d: %w", i, err)
		}
		reactors = append(reactors, r)
	}
	m.reactorsMu.Lock()
	m.reactors = reactors
	m.reactorsMu.Unlock()
	atomic.StoreInt32(&m.yetToStop, int32(len(reactors)))

	exited := make([]chan struct{}, len(reactors))
	for i, r := range reactors {
		done := make(chan struct{})
		exited[i] = done
		m.wg.Add(1)
		go func(r IOReactor) {
			defer m.wg.Done()
			defer close(done)
			defer atomic.AddInt32(&m.yetToStop, -1)
			if err := r.Run(runCtx); err != nil && runCtx.Err() == nil {
				m.log.WithError(err).WithField("reactor", r.Index()).Error("iomgr: reactor exited with error")
			}
		}(r)
	}
	for i, r := range reactors {
		for len(r.IOThreads()) == 0 {
			select {
			case <-exited[i]:
			case <-time.After(time.Millisecond):
				continue
			}
			break
		}
	}

	m.setState(StateSysInit)
	m.setState(StateRunning)
	if m.cfg.Notifier != nil {
		m.cfg.Notifier(true)
	}
	go func() {
		m.wg.Wait()
		m.finalize()
	}()
	return nil
}

// finalize runs exactly once, after every reactor goroutine spawned by
// Start has returned: it clears the interface, drive-interface, and
// reactor lists, moves to StateStopped, and closes doneCh so a blocked
// Stop can return. Guarded by sync.Once since it is reachable both from
// Start's completion goroutine and, in principle, a future direct call.
func (m *IOManager) finalize() {
	m.finalizeOnce.Do(func() {
		m.reactorsMu.Lock()
		m.reactors = nil
		m.reactorsMu.Unlock()

		m.ifaceMu.Lock()
		m.interfaces = nil
		m.ifaceMu.Unlock()

		m.driveMu.Lock()
		m.driveInterfaces = nil
		m.defaultDrive = nil
		m.driveMu.Unlock()

		m.setState(StateStopped)
		if m.cfg.Notifier != nil {
			m.cfg.Notifier(false)
		}
		close(m.doneCh)
	})
}

// Stop initiates shutdown: it pre-increments yetToStop by one before
// broadcasting so the last real reactor's own decrement can never race
// past zero and let a concurrent Stop caller observe a false "fully
// stopped" state; the extra count is retired immediately after broadcast,
// mirroring original_source/src/lib/iomgr.cpp's stop() sequence. It then
// blocks on doneCh so every reactor goroutine is joined, and the
// interface/drive-interface/reactor lists are emptied, before returning —
// a caller inspecting state or interfaces immediately after Stop returns
// sees StateStopped and empty lists.
func (m *IOManager) Stop() error {
	if m.State() != StateRunning {
		return ErrNotRunning
	}
	m.setState(StateStopping)
	atomic.AddInt32(&m.yetToStop, 1)
	if m.cancel != nil {
		m.cancel()
	}
	atomic.AddInt32(&m.yetToStop, -1)
	<-m.doneCh
	m.epollTimer.Stop()
	if m.polledTimer != nil {
		m.polledTimer.Stop()
	}
	return nil
}

// RegisterMsgModule installs handler under modID, replacing any prior
// registration. Reads (dispatch) share an RLock and run concurrently; writes
// (registration) take the write lock, which is expected to be rare
// relative to dispatch volume.
func (m *IOManager) RegisterMsgModule(modID int, name string, handler func(msg *Message)) {
	m.modulesMu.Lock()
	defer m.modulesMu.Unlock()
	m.modules[modID] = &moduleEntry{name: name, handler: handler}
}

// DispatchMessage routes msg to its registered module handler, or runs
// msg.Fn directly for unregistered MsgRunMethod messages, then releases
// this delivery's reference and acknowledges completion. Concrete
// reactors call this from their event loop after popping a delivered
// message off a thread's inbox. Callers of SendMsgAndWait/
// MulticastMsgAndWait rely on the automatic Ack; module handlers never
// call Ack or Free themselves.
func (m *IOManager) DispatchMessage(msg *Message) {
	defer msg.Ack()
	defer msg.Free()
	m.modulesMu.RLock()
	entry, ok := m.modules[msg.ModID]
	m.modulesMu.RUnlock()
	if !ok {
		if msg.Type == MsgRunMethod && msg.Fn != nil {
			msg.Fn()
		}
		return
	}
	entry.handler(msg)
}

// IOThreadSelf returns the calling goroutine's hosted thread, scanning
// every reactor. Reactors implementing per-goroutine identity return in
// O(1); this is a convenience wrapper for callers that don't already hold
// a reactor reference.
func (m *IOManager) IOThreadSelf() (*IOThread, bool) {
	m.reactorsMu.RLock()
	defer m.reactorsMu.RUnlock()
	for _, r := range m.reactors {
		if t, ok := r.IOThreadSelf(); ok {
			return t, ok
		}
	}
	return nil, false
}

// SendMsg delivers msg to the single logical thread at addr. The message's
// initial reference is consumed by this call regardless of outcome.
func (m *IOManager) SendMsg(addr ThreadAddr, msg *Message) bool {
	m.reactorsMu.RLock()
	defer m.reactorsMu.RUnlock()
	if addr.ReactorIdx < 0 || addr.ReactorIdx >= len(m.reactors) {
		msg.Free()
		return false
	}
	r := m.reactors[addr.ReactorIdx]
	if !r.IsIOReactor() {
		msg.Free()
		return false
	}
	ok := r.DeliverMsg(addr, msg)
	if !ok {
		msg.Free()
	}
	return ok
}

// SendMsgAndWait delivers base wrapped in a SyncMessage armed for a single
// acknowledgement, and blocks until the destination module acks it.
func (m *IOManager) SendMsgAndWait(ctx context.Context, addr ThreadAddr, base *Message) error {
	latch := NewSyncMessage(base)
	latch.Arm(1)
	if !m.SendMsg(addr, base) {
		return ErrReactorGone
	}
	done := make(chan struct{})
	go func() { latch.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// allThreads returns every hosted logical thread across every reactor,
// paired with its owning reactor (needed to distinguish least-busy pools).
func (m *IOManager) allThreads() []*IOThread {
	m.reactorsMu.RLock()
	defer m.reactorsMu.RUnlock()
	var out []*IOThread
	for _, r := range m.reactors {
		out = append(out, r.IOThreads()...)
	}
	return out
}

// MulticastMsg delivers base to every logical thread matched by regex.
// For all_* classes every match receives an independent Clone of base
// (broadcast without copy); for least_busy_* classes exactly one thread —
// the least-loaded match — receives the original, undivided message; for
// random_worker exactly one uniformly-chosen worker thread receives the
// original directly, with no clone taken at all. When zero threads match,
// base's own initial reference is released here since it was never handed
// to a recipient. Returns the number of threads the message (or a clone of
// it) was actually delivered to.
func (m *IOManager) MulticastMsg(regex ThreadRegex, base *Message) int {
	threads := m.allThreads()

	if regex == RandomWorker {
		var workers []*IOThread
		for _, t := range threads {
			if t.IsWorker() && !t.Relinquished() {
				workers = append(workers, t)
			}
		}
		if len(workers) == 0 {
			base.Free()
			return 0
		}
		pick := workers[rand.Intn(len(workers))]
		if m.SendMsg(pick.Addr, base) {
			return 1
		}
		return 0
	}

	if regex.isLeastBusy() {
		var best *IOThread
		for _, t := range threads {
			if t.Relinquished() || !regex.matches(t) {
				continue
			}
			if best == nil || t.Outstanding() < best.Outstanding() {
				best = t
			}
		}
		if best == nil {
			base.Free()
			return 0
		}
		if m.SendMsg(best.Addr, base) {
			return 1
		}
		return 0
	}

	sent := 0
	for _, t := range threads {
		if t.Relinquished() || !regex.matches(t) {
			continue
		}
		if m.SendMsg(t.Addr, base.Clone()) {
			sent++
		}
	}
	// base's own reference was never itself handed to a recipient: every
	// delivery above went out through a Clone, so release it here whether
	// or not anything matched.
	base.Free()
	return sent
}

// MulticastMsgAndWait multicasts base and blocks until every recipient
// that actually received a copy has acknowledged it, or ctx expires.
func (m *IOManager) MulticastMsgAndWait(ctx context.Context, regex ThreadRegex, base *Message) (int, error) {
	sm := NewSyncMessage(base)
	// Hold the latch open while deliveries go out, so an Ack that arrives
	// before the fan-out is known cannot complete it early.
	const pending = 1 << 30
	sm.Arm(pending)
	sent := m.MulticastMsg(regex, base)
	if atomic.AddInt32(&sm.countdown, int32(sent)-pending) <= 0 {
		sm.markDone()
	}
	if sent == 0 {
		return 0, nil
	}
	done := make(chan struct{})
	go func() { sm.Wait(); close(done) }()
	select {
	case <-done:
		return sent, nil
	case <-ctx.Done():
		return sent, ctx.Err()
	}
}

// RunOn schedules fn to execute on any thread matching regex, without
// waiting for completion.
func (m *IOManager) RunOn(regex ThreadRegex, fn func()) int {
	msg := NewMessage(MsgRunMethod, -1, ThreadAddr{})
	msg.Fn = fn
	return m.MulticastMsg(regex, msg)
}

// RunOnThread schedules fn to execute on the specific logical thread at
// addr.
func (m *IOManager) RunOnThread(addr ThreadAddr, fn func()) bool {
	msg := NewMessage(MsgRunMethod, -1, addr)
	msg.Fn = fn
	return m.SendMsg(addr, msg)
}

// dispatchTimerCookie routes a fired timer callback back onto the
// thread-class or address the timer was scoped with. cookie is either a
// ThreadAddr (single-thread scope) or a ThreadRegex (class scope).
func (m *IOManager) dispatchTimerCookie(cookie any, fn func(cookie any)) {
	switch c := cookie.(type) {
	case ThreadAddr:
		m.RunOnThread(c, func() { fn(cookie) })
	case ThreadRegex:
		m.RunOn(c, func() { fn(cookie) })
	default:
		fn(cookie)
	}
}

// ScheduleThreadTimer arms a callback delayNanos from now, to run on the
// logical thread at addr.
func (m *IOManager) ScheduleThreadTimer(addr ThreadAddr, delayNanos int64, recurring bool, fn func()) (api.Cancelable, error) {
	return m.epollTimer.Schedule(delayNanos, recurring, addr, func(any) { fn() })
}

// ScheduleGlobalTimer arms a callback delayNanos from now, broadcast to
// every thread matched by regex on each firing.
func (m *IOManager) ScheduleGlobalTimer(regex ThreadRegex, delayNanos int64, recurring bool, fn func()) (api.Cancelable, error) {
	if !regex.isGlobalScope() {
		return nil, ErrInvalidRegex
	}
	return m.epollTimer.Schedule(delayNanos, recurring, regex, func(any) { fn() })
}

// EnablePolledTimers activates the ticker-driven timer variant alongside
// the readiness-notified one, for callers running under a polled-runtime
// reactor. Both variants share the same manager-level dispatch routing.
func (m *IOManager) EnablePolledTimers(pollResolutionNanos int64) {
	if m.polledTimer != nil {
		return
	}
	m.polledTimer = NewPolledTimer(m.dispatchTimerCookie, time.Duration(pollResolutionNanos))
}
