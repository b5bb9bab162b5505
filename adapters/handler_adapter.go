// File: adapters/handler_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
//
// HandlerFunc glue and extensible middleware for message-module dispatch:
// every registered iomgr message handler runs through this chain so logging,
// panic recovery, and dispatch counters are uniform across modules.

package adapters

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-ws/api"
	"github.com/momentics/hioload-ws/control"
)

// HandlerFunc converts a function into an api.Handler.
type HandlerFunc func(data any) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(data any) error {
	return f(data)
}

// MiddlewareHandler wraps a base Handler and applies middleware in chain.
type MiddlewareHandler struct {
	handler    api.Handler
	middleware []func(api.Handler) api.Handler
}

// NewMiddlewareHandler creates a new MiddlewareHandler for the given base handler.
func NewMiddlewareHandler(handler api.Handler) *MiddlewareHandler {
	return &MiddlewareHandler{
		handler:    handler,
		middleware: make([]func(api.Handler) api.Handler, 0),
	}
}

// Use appends a middleware to the chain.
func (m *MiddlewareHandler) Use(mw func(api.Handler) api.Handler) *MiddlewareHandler {
	m.middleware = append(m.middleware, mw)
	return m
}

// Handle applies all middleware then calls the base handler.
func (m *MiddlewareHandler) Handle(data any) error {
	handler := m.handler
	for i := len(m.middleware) - 1; i >= 0; i-- {
		handler = m.middleware[i](handler)
	}
	return handler.Handle(data)
}

// LoggingMiddleware logs entry and errors of a message-module dispatch.
func LoggingMiddleware(log *logrus.Logger) func(api.Handler) api.Handler {
	return func(next api.Handler) api.Handler {
		return HandlerFunc(func(data any) error {
			err := next.Handle(data)
			if err != nil {
				log.WithError(err).WithField("payload_type", fmt.Sprintf("%T", data)).
					Warn("message handler returned error")
			}
			return err
		})
	}
}

// RecoveryMiddleware recovers from panics inside a message handler, converting
// them into a returned error instead of taking down the owning reactor thread.
func RecoveryMiddleware(log *logrus.Logger) func(api.Handler) api.Handler {
	return func(next api.Handler) api.Handler {
		return HandlerFunc(func(data any) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Error("message handler panicked")
					err = api.NewError(api.ErrCodeInternal, "handler panic")
				}
			}()
			return next.Handle(data)
		})
	}
}

// MetricsMiddleware increments the per-module dispatch counter on every call,
// backed by the same go-metrics registry as reactor outstanding_ops gauges.
func MetricsMiddleware(metrics *control.MetricsRegistry, moduleName string) func(api.Handler) api.Handler {
	counter := metrics.Counter("iomgr.msg_dispatched." + moduleName)
	return func(next api.Handler) api.Handler {
		return HandlerFunc(func(data any) error {
			counter.Inc(1)
			return next.Handle(data)
		})
	}
}
