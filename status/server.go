// Package status exposes a read-only HTTP view of the bridge:
// focuser position, transport counters and the rule table.
package status

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"navyscope/dispatch"
	"navyscope/focuser"
	"navyscope/transport"
)

// FocuserSource reports the focuser state
type FocuserSource interface {
	Status() focuser.Status
}

// Server serves the status routes
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// NewServer builds the router. stats may be shared with running sessions.
func NewServer(addr string, foc FocuserSource, stats *transport.Stats, rules []dispatch.Rule, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")
	api.GET("/focuser", func(c *gin.Context) {
		c.JSON(http.StatusOK, foc.Status())
	})
	api.GET("/transport", func(c *gin.Context) {
		c.JSON(http.StatusOK, stats.Snapshot())
	})
	api.GET("/rules", func(c *gin.Context) {
		c.JSON(http.StatusOK, rules)
	})

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server started", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("status server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return <-errCh
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("status request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
