package httpserver

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"catalogd/internal/catalog"
	"catalogd/internal/config"
)

// Server wraps Fiber app and configuration.
type Server struct {
	app *fiber.App
	cfg *config.Config
}

// New builds a Fiber server with common middlewares.
func New(cfg *config.Config, client *catalog.Client) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "catalogd",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:           time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestContext())

	RegisterRoutes(app, cfg, client)

	return &Server{app: app, cfg: cfg}
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Start runs Fiber server and handles graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := cfgAddress(s.cfg.Server.Address)
	log.Info().Str("addr", addr).Msg("listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Server.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func cfgAddress(addr string) string {
	if addr == "" {
		return ":" // default Fiber listens on 0.0.0.0
	}
	return addr
}
