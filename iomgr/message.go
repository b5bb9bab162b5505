// File: iomgr/message.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Message and SyncMessage: the wire types of the messaging fabric.
// Broadcast-without-copy is implemented as a refcount bump on Clone,
// grounded on original_source/src/lib/iomgr.cpp's intrusive_ptr-based
// message refcounting; here a plain atomic int32 plays the same role.

package iomgr

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MsgType tags the recognised message kinds. User modules pick values
// starting at MsgUserBase.
type MsgType int

const (
	MsgReschedule MsgType = iota
	MsgRelinquishIOThread
	MsgRunMethod
	MsgUserBase MsgType = 1000
)

// Message is a transient, refcounted record carrying a type, sender
// module id, destination address, and an inline payload (a device handle
// plus event mask, or an opaque closure carried as Fn).
type Message struct {
	Type    MsgType
	ModID   int
	Dest    ThreadAddr
	Device  *IODevice
	Event   int
	Fn      func()
	CorrID  string // debug-only correlation id, not part of addressing

	refs int32
	sync *SyncMessage // non-nil when sent via *AndWait; Ack forwards here
}

// NewMessage allocates a message with a starting refcount of 1.
func NewMessage(msgType MsgType, modID int, dest ThreadAddr) *Message {
	return &Message{
		Type:   msgType,
		ModID:  modID,
		Dest:   dest,
		refs:   1,
		CorrID: uuid.NewString(),
	}
}

// Clone bumps the broadcast refcount and returns the same logical payload
// without copying it, so a single allocation can be delivered to many
// reactors.
func (m *Message) Clone() *Message {
	atomic.AddInt32(&m.refs, 1)
	return m
}

// withSync attaches sm as the message's completion latch, so Ack forwards
// to it. Used by NewSyncMessage; since Clone returns the same pointer for
// broadcast, every recipient of a cloned message already shares the same
// sync field.
func (m *Message) withSync(sm *SyncMessage) *Message {
	m.sync = sm
	return m
}

// Free decrements the refcount; the underlying payload is only eligible
// for reuse once it reaches zero. There is no pool recycling here (the
// manager relies on the Go GC for reclamation, unlike the C++ original's
// arena) — Free exists to preserve the exactly-once-release contract that
// the broadcast algorithm depends on.
func (m *Message) Free() {
	atomic.AddInt32(&m.refs, -1)
}

// Refs reports the current broadcast refcount, chiefly for tests
// asserting property 4 (a zero-recipient multicast fully releases m).
func (m *Message) Refs() int32 {
	return atomic.LoadInt32(&m.refs)
}

// Ack acknowledges processing of this message to its originating
// SendMsgAndWait/MulticastMsgAndWait caller, if any; a no-op for messages
// sent fire-and-forget. Called automatically by IOManager.DispatchMessage
// once per delivered message — module handlers never call it directly.
func (m *Message) Ack() {
	if m.sync != nil {
		m.sync.Ack()
	}
}

// SyncMessage couples a base Message with a one-shot completion latch:
// a countdown initialised to the fan-out count, and a wake channel closed
// when it reaches zero. Each delivery must be acknowledged exactly once;
// IOManager.DispatchMessage does this, so module handlers do not call Ack.
type SyncMessage struct {
	Base      *Message
	countdown int32
	done      chan struct{}
	closeOnce sync.Once
}

// NewSyncMessage wraps base with a latch whose countdown starts at zero;
// Arm sets the expected number of acknowledgements once the recipient
// count is known.
func NewSyncMessage(base *Message) *SyncMessage {
	s := &SyncMessage{Base: base, done: make(chan struct{})}
	base.withSync(s)
	return s
}

// Arm sets the countdown to fanOut, closing done immediately if fanOut is
// zero (a valid zero-fan-out outcome per the design notes).
func (s *SyncMessage) Arm(fanOut int) {
	atomic.StoreInt32(&s.countdown, int32(fanOut))
	if fanOut <= 0 {
		s.markDone()
	}
}

// Ack records one recipient's acknowledgement, waking Wait's caller once
// the countdown reaches zero.
func (s *SyncMessage) Ack() {
	if atomic.AddInt32(&s.countdown, -1) <= 0 {
		s.markDone()
	}
}

func (s *SyncMessage) markDone() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Wait blocks until every expected Ack has been recorded.
func (s *SyncMessage) Wait() {
	<-s.done
}
