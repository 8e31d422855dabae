package factory

import (
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/config"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/core"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/echo"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/logger"
)

// HandlerFactory creates the connection handler handed to core.Server
type HandlerFactory struct {
	cfg *config.Config
}

// NewHandlerFactory creates a new handler factory
func NewHandlerFactory(cfg *config.Config) *HandlerFactory {
	return &HandlerFactory{cfg: cfg}
}

// Create creates the echo handler. resolver may be nil.
func (f *HandlerFactory) Create(resolver core.PeerResolver) core.ConnectionHandler {
	logger.Info("Creating Echo Handler", "peer_discovery", f.cfg.PeerDiscovery)

	return &echo.Handler{
		Logger:   logger.Default(),
		Resolver: resolver,
	}
}
