// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown unifies the teardown contract for components that own
// background threads or file descriptors.
type GracefulShutdown interface {
	// Shutdown stops the component and releases its resources. Must be
	// safe to call from any goroutine and must not block on callers
	// that never respond.
	Shutdown() error
}
