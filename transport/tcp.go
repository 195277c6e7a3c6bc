package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrBusy is logged when a connection arrives while another client is served
var ErrBusy = errors.New("another client is connected")

// Listener serves LX200 clients over TCP, one at a time.
// Extra connections are closed straight away so a single client owns the
// focuser and the reply channel.
type Listener struct {
	addr    string
	factory HandlerFactory
	cfg     SessionConfig
	logger  *zap.Logger
	stats   *Stats

	mu       sync.Mutex
	listener net.Listener
	active   bool
	wg       sync.WaitGroup
}

// NewListener creates a TCP listener for addr
func NewListener(addr string, factory HandlerFactory, cfg SessionConfig, logger *zap.Logger, stats *Stats) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Listener{
		addr:    addr,
		factory: factory,
		cfg:     cfg,
		logger:  logger,
		stats:   stats,
	}
}

// Listen binds the listening socket
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}

	l.mu.Lock()
	l.listener = ln
	l.mu.Unlock()

	l.logger.Info("lx200 listener started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// Active reports whether a client is being served
func (l *Listener) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// ListenAndServe binds and serves until ctx is cancelled
func (l *Listener) ListenAndServe(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return l.Serve(ctx)
}

// Serve accepts clients until ctx is cancelled, then waits for the
// current session to end
func (l *Listener) Serve(ctx context.Context) error {
	l.mu.Lock()
	ln := l.listener
	l.mu.Unlock()
	if ln == nil {
		return errors.New("listener not started")
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-done:
		}
	}()

	defer l.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.logger.Warn("failed to accept connection", zap.Error(err))
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := l.claim(); err != nil {
			l.stats.refused.Add(1)
			l.logger.Warn("refusing connection",
				zap.String("remote", conn.RemoteAddr().String()),
				zap.Error(err))
			_ = conn.Close()
			continue
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer l.release()
			l.handleConnection(ctx, conn)
		}()
	}
}

// Close stops accepting connections
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (l *Listener) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	session := NewSession(conn, l.factory, l.cfg, l.logger, l.stats)
	remote := conn.RemoteAddr().String()

	l.logger.Info("client connected",
		zap.String("session", session.ID()),
		zap.String("remote", remote))

	if err := session.Run(ctx); err != nil {
		l.logger.Warn("session ended with error",
			zap.String("session", session.ID()),
			zap.Error(err))
		return
	}

	l.logger.Info("client disconnected",
		zap.String("session", session.ID()),
		zap.String("remote", remote))
}

func (l *Listener) claim() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return ErrBusy
	}
	l.active = true
	return nil
}

func (l *Listener) release() {
	l.mu.Lock()
	l.active = false
	l.mu.Unlock()
}
