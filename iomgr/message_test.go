package iomgr_test

import (
	"testing"

	"github.com/momentics/hioload-ws/iomgr"
)

func TestMessageCloneSharesIdentity(t *testing.T) {
	m := iomgr.NewMessage(iomgr.MsgUserBase, 1, iomgr.ThreadAddr{})
	clone := m.Clone()
	if clone != m {
		t.Fatal("Clone must return the same pointer, not a copy")
	}
	if m.Refs() != 2 {
		t.Fatalf("expected refs=2 after one clone, got %d", m.Refs())
	}
	m.Free()
	if m.Refs() != 1 {
		t.Fatalf("expected refs=1 after one free, got %d", m.Refs())
	}
	clone.Free()
	if m.Refs() != 0 {
		t.Fatalf("expected refs=0 after both freed, got %d", m.Refs())
	}
}

func TestSyncMessageArmZeroFanOutCompletesImmediately(t *testing.T) {
	base := iomgr.NewMessage(iomgr.MsgUserBase, 1, iomgr.ThreadAddr{})
	sm := iomgr.NewSyncMessage(base)
	sm.Arm(0)
	done := make(chan struct{})
	go func() { sm.Wait(); close(done) }()
	select {
	case <-done:
	default:
		t.Fatal("Wait should not block when armed with zero fan-out")
	}
}

func TestSyncMessageAckCountdown(t *testing.T) {
	base := iomgr.NewMessage(iomgr.MsgUserBase, 1, iomgr.ThreadAddr{})
	sm := iomgr.NewSyncMessage(base)
	sm.Arm(2)

	done := make(chan struct{})
	go func() { sm.Wait(); close(done) }()

	sm.Ack()
	select {
	case <-done:
		t.Fatal("Wait returned before second Ack")
	default:
	}

	sm.Ack()
	<-done // must not hang
}

func TestMessageAckForwardsToSyncMessage(t *testing.T) {
	base := iomgr.NewMessage(iomgr.MsgUserBase, 1, iomgr.ThreadAddr{})
	sm := iomgr.NewSyncMessage(base)
	sm.Arm(1)

	done := make(chan struct{})
	go func() { sm.Wait(); close(done) }()

	base.Ack() // simulates DispatchMessage's automatic Ack
	<-done
}
