// Package transport moves bytes between a client connection and the
// command dispatcher.
//
// A Session owns one connection (serial port or TCP socket). It reads,
// frames and hands every token to its Handler on a single goroutine, so a
// token is fully handled, reply included, before the next one is looked at.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"navyscope/protocol"
)

// Handler consumes framed tokens. *dispatch.Dispatcher satisfies it.
type Handler interface {
	Dispatch(token []byte)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(token []byte)

func (f HandlerFunc) Dispatch(token []byte) { f(token) }

// HandlerFactory builds the handler for one session around the session's
// reply writer
type HandlerFactory func(replies *ReplyWriter) Handler

// SessionConfig tunes a session
type SessionConfig struct {
	// MaxTokenLength bounds a token without terminator
	MaxTokenLength int

	// IdleTimeout is the read deadline applied to connections that support
	// one. When it expires the pending partial token is dispatched.
	// Serial ports signal idleness with zero-byte reads instead.
	IdleTimeout time.Duration

	// ReadBufferSize is the size of each read
	ReadBufferSize int
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// inputFlusher is implemented by serial ports, which may hold bytes
// received before the session started
type inputFlusher interface {
	Flush() error
}

// Session runs the read-frame-dispatch loop for one connection
type Session struct {
	id      string
	conn    io.ReadWriter
	framer  *protocol.Framer
	handler Handler
	cfg     SessionConfig
	logger  *zap.Logger
	stats   *Stats
}

// NewSession creates a session over conn
func NewSession(conn io.ReadWriter, factory HandlerFactory, cfg SessionConfig, logger *zap.Logger, stats *Stats) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = &Stats{}
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 256
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("session", id))

	return &Session{
		id:      id,
		conn:    conn,
		framer:  protocol.NewFramer(cfg.MaxTokenLength),
		handler: factory(NewReplyWriter(conn, logger, stats)),
		cfg:     cfg,
		logger:  logger,
		stats:   stats,
	}
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Run reads until the peer closes the connection or ctx is cancelled.
// Cancellation closes the connection when it is an io.Closer, which
// unblocks the pending read. A clean end of stream returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.stats.sessions.Add(1)

	done := make(chan struct{})
	defer close(done)

	if closer, ok := s.conn.(io.Closer); ok {
		go func() {
			select {
			case <-ctx.Done():
				_ = closer.Close()
			case <-done:
			}
		}()
	}

	if f, ok := s.conn.(inputFlusher); ok {
		if err := f.Flush(); err != nil {
			s.logger.Warn("failed to discard stale input", zap.Error(err))
		}
	}

	buffer := make([]byte, s.cfg.ReadBufferSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.armDeadline()

		n, err := s.conn.Read(buffer)
		if n > 0 {
			s.stats.bytesIn.Add(uint64(n))
			for _, token := range s.framer.Feed(buffer[:n]) {
				s.dispatch(token)
			}
		}

		switch {
		case err == nil:
			if n == 0 {
				s.flushIdle()
			}

		case isTimeout(err):
			s.flushIdle()

		case ctx.Err() != nil:
			return nil

		case errors.Is(err, io.EOF):
			// Deliver a trailing command the peer sent right before hanging up
			s.flushIdle()
			return nil

		default:
			return fmt.Errorf("session %s read failed: %w", s.id, err)
		}
	}
}

func (s *Session) dispatch(token []byte) {
	s.stats.tokens.Add(1)
	s.handler.Dispatch(token)
}

// flushIdle dispatches whatever partial token is buffered
func (s *Session) flushIdle() {
	if token := s.framer.Flush(); token != nil {
		s.stats.idleFlushes.Add(1)
		s.dispatch(token)
	}
}

func (s *Session) armDeadline() {
	if s.cfg.IdleTimeout <= 0 {
		return
	}
	if d, ok := s.conn.(readDeadliner); ok {
		_ = d.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
