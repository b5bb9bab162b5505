package drive_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-ws/control"
	"github.com/momentics/hioload-ws/drive"
)

func TestAIODriveHandleEventRunsOffThreadAsynchronously(t *testing.T) {
	done := make(chan struct{}, 1)
	h := &recordingHandler{}
	a := drive.NewAIODrive("aio-demo", handlerFunc(func(data any) error {
		h.Handle(data)
		done <- struct{}{}
		return nil
	}), 2, -1, quietLogger(), control.NewMetricsRegistry())
	defer a.Close()

	if err := a.HandleEvent(nil, 1); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("aio drive never ran the handler")
	}
	if a.Name() != "aio-demo" {
		t.Fatalf("unexpected name: %s", a.Name())
	}
}

type handlerFunc func(any) error

func (f handlerFunc) Handle(data any) error { return f(data) }
