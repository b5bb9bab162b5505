// File: drive/polled.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PolledDrive is the Polled-Drive IOInterface variant: readiness events
// run inline like Generic, but OnIOThreadStart additionally verifies the
// hosting thread belongs to a tight-loop reactor (IsTightLoopReactor),
// since this variant only makes sense paired with PolledReactor.

package drive

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-ws/adapters"
	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/control"
	"github.com/momentics/hioload-ws/iomgr"
)

// PolledDrive dispatches inline on the calling polled-thread's own
// goroutine, matching the tight-loop reactor's low-overhead expectations.
type PolledDrive struct {
	name    string
	handler api.Handler
	log     *logrus.Logger
}

// NewPolledDrive builds a Polled-Drive interface.
func NewPolledDrive(name string, handler api.Handler, log *logrus.Logger, metrics *control.MetricsRegistry) *PolledDrive {
	chain := adapters.NewMiddlewareHandler(handler).
		Use(adapters.RecoveryMiddleware(log)).
		Use(adapters.MetricsMiddleware(metrics, name))
	return &PolledDrive{name: name, handler: chain, log: log}
}

func (p *PolledDrive) Name() string { return p.name }

// OnIOThreadStart rejects attachment to a non-tight-loop reactor: this
// variant is meaningless outside a PolledReactor's busy loop.
func (p *PolledDrive) OnIOThreadStart(t *iomgr.IOThread) error {
	if t.Reactor == nil || !t.Reactor.IsTightLoopReactor() {
		return fmt.Errorf("drive: polled-drive interface %s requires a tight-loop reactor, got thread %d", p.name, t.Idx)
	}
	p.log.WithFields(logrus.Fields{"interface": p.name, "thread": t.Idx}).Debug("drive: polled interface attached to thread")
	return nil
}

func (p *PolledDrive) OnIOThreadStop(t *iomgr.IOThread) error {
	return nil
}

func (p *PolledDrive) HandleEvent(dev *iomgr.IODevice, event int) error {
	return p.handler.Handle(struct {
		Device *iomgr.IODevice
		Event  int
	}{Device: dev, Event: event})
}

var _ iomgr.IOInterface = (*PolledDrive)(nil)
