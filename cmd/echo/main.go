package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/api"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/config"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/core"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/factory"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		logger.Fatal("Startup failed", "error", err)
	}
}

// run serves until ctx is cancelled and returns nil, or returns the error
// that kept the server from starting or running.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	// Load configuration from the command line and environment
	cfg, err := config.Load(args)
	if errors.Is(err, config.ErrHelp) {
		config.WriteHelp(stdout)
		return nil
	}
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Initialize logger
	logger.Init(stdout, cfg.Debug)

	// Bind before anything optional so the echo port never waits on it
	listener, err := core.Listen(cfg.ListenAddr())
	if err != nil {
		return err
	}
	logger.Info("listening", "port", cfg.Port)

	// Create peer resolver (optional)
	resolver, err := factory.NewResolverFactory(cfg).Create(ctx)
	if err != nil {
		listener.Close()
		return fmt.Errorf("failed to create peer resolver: %w", err)
	}

	server := &core.Server{
		Listener:          listener,
		ConnectionHandler: factory.NewHandlerFactory(cfg).Create(resolver),
	}

	var healthServer *api.HealthServer
	var healthListener net.Listener
	if cfg.HealthEnabled() {
		healthServer = api.NewHealthServer(":" + cfg.HealthServerPort)
		healthListener, err = net.Listen("tcp", healthServer.Addr())
		if err != nil {
			listener.Close()
			return fmt.Errorf("failed to start health server on port %s: %w", cfg.HealthServerPort, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx)
	})
	if healthServer != nil {
		g.Go(func() error {
			return healthServer.Run(gctx, healthListener)
		})
		healthServer.SetReady(true)
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	// Open connections are abandoned, not drained
	logger.Info("got interrupt, exiting")
	return nil
}
