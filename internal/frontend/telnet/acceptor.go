package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/slot/internal/config"
)

// BusyMessage is sent to a client that connects while every seat is taken.
const BusyMessage = "The machine is busy. Please try again later."

// SessionHandler plays one player's session. It returns when the player
// leaves or ctx ends.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor seats Telnet players at the machine, at most MaxSessions at once.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger
	seats   chan struct{}

	base     context.Context
	shutdown context.CancelFunc
	sessions sync.WaitGroup
	served   chan struct{}

	mu       sync.Mutex
	listener net.Listener
}

// NewAcceptor builds an Acceptor. A MaxSessions below one is treated as one.
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	base, shutdown := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:      cfg,
		handler:  handler,
		logger:   logger,
		seats:    make(chan struct{}, max(cfg.MaxSessions, 1)),
		base:     base,
		shutdown: shutdown,
		served:   make(chan struct{}),
	}
}

// ListenAndServe binds the configured address and seats players until Stop.
//
// Postcondition: Returns nil after Stop, or the bind error.
func (a *Acceptor) ListenAndServe() error {
	var lc net.ListenConfig
	ln, err := lc.Listen(a.base, "tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	a.mu.Lock()
	if a.base.Err() != nil {
		a.mu.Unlock()
		return ln.Close()
	}
	a.listener = ln
	a.mu.Unlock()
	defer close(a.served)

	a.logger.Info("telnet acceptor listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("max_sessions", cap(a.seats)),
	)

	for {
		raw, err := ln.Accept()
		switch {
		case a.base.Err() != nil:
			if raw != nil {
				_ = raw.Close()
			}
			return nil
		case errors.Is(err, net.ErrClosed):
			return nil
		case err != nil:
			a.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		a.seat(raw)
	}
}

// seat starts a session for raw if a seat is free, otherwise turns it away.
func (a *Acceptor) seat(raw net.Conn) {
	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	select {
	case a.seats <- struct{}{}:
	default:
		a.logger.Info("machine busy, turning player away", zap.Stringer("remote_addr", raw.RemoteAddr()))
		_ = conn.WriteLine(BusyMessage)
		_ = conn.Close()
		return
	}
	a.sessions.Add(1)
	go func() {
		defer a.sessions.Done()
		defer func() { <-a.seats }()
		a.serve(conn)
	}()
}

func (a *Acceptor) serve(conn *Conn) {
	began := time.Now()
	log := a.logger.With(zap.Stringer("remote_addr", conn.RemoteAddr()))
	log.Info("player connected")
	defer conn.Close()

	if err := conn.Negotiate(); err != nil {
		log.Warn("telnet negotiation failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(a.base)
	defer cancel()
	// Closing the connection is what unblocks a pending ReadLine.
	unhook := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer unhook()

	err := a.handler.HandleSession(ctx, conn)
	if err != nil {
		log.Debug("session ended", zap.Duration("duration", time.Since(began)), zap.Error(err))
		return
	}
	log.Info("session ended cleanly", zap.Duration("duration", time.Since(began)))
}

// Stop closes the listener, ends every session and waits for them. Stop may
// be called more than once.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if a.base.Err() != nil {
		a.mu.Unlock()
		return
	}
	a.shutdown()
	ln := a.listener
	a.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
		<-a.served
	}
	a.sessions.Wait()
	a.logger.Info("telnet acceptor stopped")
}

// Addr returns the bound address, or "" before ListenAndServe has bound.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// IsRunning reports whether the acceptor is bound and not yet stopped.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listener != nil && a.base.Err() == nil
}
