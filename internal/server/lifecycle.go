// Package server runs the slot machine's long-lived components (the player
// frontend and the metrics endpoint) and tears them down together.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultStopTimeout bounds how long shutdown waits on a single service.
const DefaultStopTimeout = 10 * time.Second

// Service is a component whose Start blocks while it runs.
type Service interface {
	// Start runs the service. A nil return means the service finished on its
	// own, which ends the whole run.
	Start() error
	// Stop asks a running Start to return.
	Stop()
}

// FuncService builds a Service from two closures.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle starts services together and stops them last-added first.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration
	entries     []entry
}

type entry struct {
	name string
	svc  Service
}

type exit struct {
	name string
	err  error
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithStopTimeout bounds each service's Stop. A non-positive d keeps the
// default.
func WithStopTimeout(d time.Duration) Option {
	return func(l *Lifecycle) {
		if d > 0 {
			l.stopTimeout = d
		}
	}
}

// NewLifecycle returns an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{logger: logger, stopTimeout: DefaultStopTimeout}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add registers svc under name. Add must not be called once Run has begun.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

// Run starts every service and waits for the first of: SIGINT or SIGTERM,
// ctx ending, a service returning an error, or a service returning nil (for
// example the player typing quit). Every service is then stopped.
//
// Postcondition: Stop has been called on every service. The returned error is
// the error of the service that ended the run, if any.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exits := make(chan exit, len(l.entries))
	for _, e := range l.entries {
		l.logger.Info("starting service", zap.String("service", e.name))
		go func() {
			exits <- exit{name: e.name, err: e.svc.Start()}
		}()
	}
	l.logger.Info("services running", zap.Int("count", len(l.entries)))

	var runErr error
	select {
	case x := <-exits:
		if x.err != nil {
			runErr = fmt.Errorf("service %s: %w", x.name, x.err)
			l.logger.Error("service failed, shutting down", zap.String("service", x.name), zap.Error(x.err))
		} else {
			l.logger.Info("service finished, shutting down", zap.String("service", x.name))
		}
	case <-ctx.Done():
		l.logger.Info("shutdown requested", zap.NamedError("cause", context.Cause(ctx)))
	}

	for i := len(l.entries) - 1; i >= 0; i-- {
		l.stopOne(l.entries[i])
	}
	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(began)))
	return runErr
}

// stopOne calls e's Stop and gives up waiting after the stop timeout. A Stop
// that overruns keeps running in the background.
func (l *Lifecycle) stopOne(e entry) {
	began := time.Now()
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.svc.Stop()
	}()
	select {
	case <-done:
		l.logger.Info("service stopped", zap.String("service", e.name), zap.Duration("elapsed", time.Since(began)))
	case <-time.After(l.stopTimeout):
		l.logger.Warn("service did not stop in time", zap.String("service", e.name), zap.Duration("timeout", l.stopTimeout))
	}
}
