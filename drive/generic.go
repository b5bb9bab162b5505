// File: drive/generic.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Generic is the plain IOInterface variant: readiness events are handed
// straight to a user-supplied api.Handler chain (built with
// adapters.LoggingMiddleware/RecoveryMiddleware/MetricsMiddleware, the way
// the messaging fabric's own dispatch is wrapped) with no additional
// concurrency or completion-simulation layered on top.

package drive

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-ws/adapters"
	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/control"
	"github.com/momentics/hioload-ws/iomgr"
)

// Generic implements iomgr.IOInterface by dispatching every readiness
// event directly to handler on the calling reactor's own goroutine.
type Generic struct {
	name    string
	handler api.Handler
	log     *logrus.Logger
}

// NewGeneric wraps handler with the standard logging/recovery/metrics
// middleware chain and names the resulting interface name.
func NewGeneric(name string, handler api.Handler, log *logrus.Logger, metrics *control.MetricsRegistry) *Generic {
	chain := adapters.NewMiddlewareHandler(handler).
		Use(adapters.RecoveryMiddleware(log)).
		Use(adapters.MetricsMiddleware(metrics, name)).
		Use(adapters.LoggingMiddleware(log))
	return &Generic{name: name, handler: chain, log: log}
}

func (g *Generic) Name() string { return g.name }

// OnIOThreadStart has nothing to attach for the generic variant: devices
// under this interface carry no per-thread state.
func (g *Generic) OnIOThreadStart(t *iomgr.IOThread) error {
	g.log.WithFields(logrus.Fields{"interface": g.name, "thread": t.Idx}).Debug("drive: generic interface attached to thread")
	return nil
}

func (g *Generic) OnIOThreadStop(t *iomgr.IOThread) error {
	return nil
}

// HandleEvent forwards the raw event value paired with the device to the
// wrapped handler chain.
func (g *Generic) HandleEvent(dev *iomgr.IODevice, event int) error {
	return g.handler.Handle(struct {
		Device *iomgr.IODevice
		Event  int
	}{Device: dev, Event: event})
}

var _ iomgr.IOInterface = (*Generic)(nil)
