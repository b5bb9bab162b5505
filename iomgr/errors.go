// File: iomgr/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package iomgr

import "errors"

var (
	// ErrThreadsExhausted is returned by the thread-index reserver once
	// every slot in [0, MaxIOThreads) is held.
	ErrThreadsExhausted = errors.New("iomgr: thread index pool exhausted")

	// ErrAlreadyRunning is returned by Start when the manager is already
	// past uninitialised.
	ErrAlreadyRunning = errors.New("iomgr: manager already started")

	// ErrNotRunning is returned by operations that require the manager
	// to be in the running state.
	ErrNotRunning = errors.New("iomgr: manager is not running")

	// ErrInvalidRegex is returned for a thread-class regex that does not
	// resolve to a valid global scope (e.g. a global timer scoped to a
	// non-existent class).
	ErrInvalidRegex = errors.New("iomgr: invalid thread regex")

	// ErrNoReactorFactory is returned by Start when no reactor factory has
	// been registered for the requested mode (epoll or polled).
	ErrNoReactorFactory = errors.New("iomgr: no reactor factory registered for this mode")

	// ErrReactorGone is a transient delivery failure: the addressed
	// reactor is no longer an I/O reactor, or the destination thread has
	// relinquished. Per the error-handling design this is not fatal —
	// callers observe it via a zero sent count.
	ErrReactorGone = errors.New("iomgr: destination reactor unavailable")

	// ErrNoDriveInterface is returned by RegisterDevice when a device
	// names no interface of its own and the manager has no default drive
	// interface to fall back to.
	ErrNoDriveInterface = errors.New("iomgr: no drive interface registered")
)
