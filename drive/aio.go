// File: drive/aio.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// AIODrive is the AIO-Drive IOInterface variant: readiness events are
// offloaded to a worker pool (adapters.ExecutorAdapter, wrapping
// internal/concurrency.Executor) rather than run inline on the reactor's
// own goroutine, simulating the latency profile of a kernel AIO
// completion queue without an actual io_uring/AIO dependency.

package drive

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-ws/adapters"
	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/control"
	"github.com/momentics/hioload-ws/iomgr"
)

// AIODrive dispatches HandleEvent calls onto a fixed worker pool so a slow
// handler cannot stall the owning reactor's inbox.
type AIODrive struct {
	name    string
	handler api.Handler
	exec    api.Executor
	log     *logrus.Logger
	metrics *control.MetricsRegistry
}

// NewAIODrive builds an AIO-Drive interface backed by workers goroutines,
// each locked to its own OS thread when numaNode is non-negative (no CPU or
// NUMA affinity is applied).
func NewAIODrive(name string, handler api.Handler, workers, numaNode int, log *logrus.Logger, metrics *control.MetricsRegistry) *AIODrive {
	chain := adapters.NewMiddlewareHandler(handler).
		Use(adapters.RecoveryMiddleware(log)).
		Use(adapters.MetricsMiddleware(metrics, name)).
		Use(adapters.LoggingMiddleware(log))
	return &AIODrive{
		name:    name,
		handler: chain,
		exec:    adapters.NewExecutorAdapter(workers, numaNode),
		log:     log,
		metrics: metrics,
	}
}

func (a *AIODrive) Name() string { return a.name }

func (a *AIODrive) OnIOThreadStart(t *iomgr.IOThread) error {
	a.log.WithFields(logrus.Fields{"interface": a.name, "thread": t.Idx}).Debug("drive: aio interface attached to thread")
	return nil
}

func (a *AIODrive) OnIOThreadStop(t *iomgr.IOThread) error {
	return nil
}

// HandleEvent submits the event to the worker pool and returns
// immediately; completion is asynchronous and reported by the handler
// itself (e.g. by sending a follow-up message back to the owning thread).
func (a *AIODrive) HandleEvent(dev *iomgr.IODevice, event int) error {
	payload := struct {
		Device *iomgr.IODevice
		Event  int
	}{Device: dev, Event: event}
	return a.exec.Submit(func() {
		if err := a.handler.Handle(payload); err != nil {
			a.log.WithError(err).WithField("interface", a.name).Warn("drive: aio handler failed")
		}
	})
}

// Close tears down the worker pool.
func (a *AIODrive) Close() {
	if closer, ok := a.exec.(interface{ Close() }); ok {
		closer.Close()
	}
}

var _ iomgr.IOInterface = (*AIODrive)(nil)
