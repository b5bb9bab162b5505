package polled_test

import (
	"testing"

	"github.com/momentics/hioload-ws/polled"
)

func TestRuntimeCreateThreadRequiresInit(t *testing.T) {
	rt := polled.NewRuntime()
	if _, err := rt.CreateThread(4, 16); err == nil {
		t.Fatal("expected CreateThread to fail before Init")
	}
}

func TestRuntimeLifecycle(t *testing.T) {
	rt := polled.NewRuntime()
	if err := rt.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !rt.Initialized() {
		t.Fatal("expected Initialized() true after Init")
	}

	h, err := rt.CreateThread(4, 16)
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}

	if err := rt.SendMsg(h, func() {}); err != nil {
		t.Fatalf("send msg: %v", err)
	}
	if _, err := rt.Poll(h, 4); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if err := rt.DestroyThread(h); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := rt.DestroyThread(h); err == nil {
		t.Fatal("expected error destroying an already-destroyed handle")
	}
}

func TestRuntimeSendMsgUnknownHandle(t *testing.T) {
	rt := polled.NewRuntime()
	_ = rt.Init()
	if err := rt.SendMsg(polled.ThreadHandle(999), func() {}); err == nil {
		t.Fatal("expected error for unknown thread handle")
	}
}
