package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"navyscope/config"
	"navyscope/dispatch"
	"navyscope/focuser"
	"navyscope/logging"
	"navyscope/serial"
	"navyscope/status"
	"navyscope/transport"
)

// serveCmd runs the bridge
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge on the configured transport",
	Long: `Opens the configured transport (serial port or TCP listener) and the
focuser backend, then handles commands until interrupted.

Example:
  navyscope serve --config navyscope.yaml
  NAVYSCOPE_TRANSPORT=tcp navyscope serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err = logging.New(cfg.Log, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	backend, err := focuser.NewBackend(cfg.Focuser)
	if err != nil {
		return err
	}
	foc := focuser.New(backend, logger.Named("focuser"))
	defer func() {
		if err := foc.Close(); err != nil {
			logger.Warn("failed to close focuser", zap.Error(err))
		}
	}()

	logger.Info("starting navyscope",
		zap.String("transport", cfg.Transport.Kind),
		zap.String("focuser", backend.Name()),
		zap.Int32("increment", cfg.Focuser.Increment))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, foc)
}

// serve runs the transport and the optional status server until ctx ends
// or one of them fails
func serve(ctx context.Context, cfg *config.Config, foc *focuser.Focuser) error {
	stats := &transport.Stats{}
	dispatchLogger := logger.Named("dispatch")
	factory := func(replies *transport.ReplyWriter) transport.Handler {
		return dispatch.New(foc, replies, cfg.Focuser.Increment, dispatch.WithLogger(dispatchLogger))
	}

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.Transport.Kind {
	case config.TransportTCP:
		sessionCfg := transport.SessionConfig{
			MaxTokenLength: cfg.Transport.MaxTokenLength,
			IdleTimeout:    time.Duration(cfg.Transport.TCP.IdleTimeoutMs) * time.Millisecond,
		}
		listener := transport.NewListener(cfg.Transport.TCP.Address, factory, sessionCfg, logger.Named("tcp"), stats)
		g.Go(func() error {
			return listener.ListenAndServe(gctx)
		})

	case config.TransportSerial:
		port, err := serial.Open(&serial.Config{
			Device:      cfg.Transport.Serial.Device,
			Baud:        cfg.Transport.Serial.Baud,
			ReadTimeout: cfg.Transport.Serial.ReadTimeoutMs,
		})
		if err != nil {
			return err
		}
		logger.Info("serial transport opened",
			zap.String("device", cfg.Transport.Serial.Device),
			zap.Int("baud", cfg.Transport.Serial.Baud))

		sessionCfg := transport.SessionConfig{MaxTokenLength: cfg.Transport.MaxTokenLength}
		session := transport.NewSession(port, factory, sessionCfg, logger.Named("serial"), stats)
		g.Go(func() error {
			defer port.Close()
			return session.Run(gctx)
		})

	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Transport.Kind)
	}

	if cfg.Status.Enabled {
		rules := dispatch.New(nil, nil, cfg.Focuser.Increment).Rules()
		srv := status.NewServer(cfg.Status.Address, foc, stats, rules, logger.Named("status"))
		g.Go(func() error {
			return srv.ListenAndServe(gctx)
		})
	}

	err := g.Wait()
	logger.Info("navyscope stopped", zap.Any("stats", stats.Snapshot()))
	return err
}
