package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"catalogd/internal/catalog"
	"catalogd/internal/config"
	httpserver "catalogd/internal/server/http"
	"catalogd/pkg/cfg"
	"catalogd/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run serves until ctx is cancelled and returns the process exit code. All
// cleanup happens before it returns.
func run(ctx context.Context) int {
	env := cfg.String("APP_ENV", "dev")
	configPath := cfg.String("APP_CONFIG", "")

	conf, err := config.Load(configPath)
	if err != nil {
		// logger is not configured yet; zerolog's default still prints
		log.Error().Err(err).Msg("failed to load config")
		return 1
	}

	cleanup := logger.Setup(env, conf.Log.Level)
	defer cleanup()

	if cfg.Bool("APP_LOG_CONFIG", env == "dev") {
		if pretty, err := conf.Pretty(); err == nil {
			log.Debug().Msg("effective config:\n" + pretty)
		}
	}

	client, closeStore, err := catalog.Open(ctx, conf)
	if err != nil {
		log.Error().Err(err).Msg("failed to init catalog")
		return 1
	}
	defer closeStore()

	srv := httpserver.New(conf, client)

	// Start blocks until ctx is done and shutdown finished, or the listener fails.
	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
		return 1
	}

	// give some time for in-flight logs to flush
	time.Sleep(cfg.Duration("APP_SHUTDOWN_GRACE", time.Second))
	return 0
}
