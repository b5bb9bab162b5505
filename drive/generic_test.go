package drive_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-ws/adapters"
	"github.com/momentics/hioload-ws/control"
	"github.com/momentics/hioload-ws/drive"
	"github.com/momentics/hioload-ws/iomgr"
)

type recordingHandler struct {
	calls int32
	err   error
}

func (r *recordingHandler) Handle(data any) error {
	atomic.AddInt32(&r.calls, 1)
	return r.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestGenericHandleEventInvokesChain(t *testing.T) {
	h := &recordingHandler{}
	g := drive.NewGeneric("demo", h, quietLogger(), control.NewMetricsRegistry())

	if err := g.HandleEvent(nil, 7); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if atomic.LoadInt32(&h.calls) != 1 {
		t.Fatalf("expected handler called once, got %d", h.calls)
	}
	if g.Name() != "demo" {
		t.Fatalf("unexpected name: %s", g.Name())
	}
}

func TestGenericHandleEventRecoversPanic(t *testing.T) {
	panicking := adapters.HandlerFunc(func(any) error { panic("boom") })
	g := drive.NewGeneric("panicky", panicking, quietLogger(), control.NewMetricsRegistry())

	if err := g.HandleEvent(nil, 1); err == nil {
		t.Fatal("expected recovery middleware to convert panic into an error")
	}
}

func TestGenericHandleEventPropagatesHandlerError(t *testing.T) {
	wantErr := errors.New("handler failed")
	h := &recordingHandler{err: wantErr}
	g := drive.NewGeneric("demo", h, quietLogger(), control.NewMetricsRegistry())

	if err := g.HandleEvent(nil, 1); err == nil {
		t.Fatal("expected error to propagate through the middleware chain")
	}
}

func TestGenericOnIOThreadStartAlwaysSucceeds(t *testing.T) {
	g := drive.NewGeneric("demo", &recordingHandler{}, quietLogger(), control.NewMetricsRegistry())
	thread := &iomgr.IOThread{Idx: 3}
	if err := g.OnIOThreadStart(thread); err != nil {
		t.Fatalf("OnIOThreadStart: %v", err)
	}
	if err := g.OnIOThreadStop(thread); err != nil {
		t.Fatalf("OnIOThreadStop: %v", err)
	}
}
