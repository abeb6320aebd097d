package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"catalogd/internal/catalog"
	"catalogd/pkg/cfg"
	"catalogd/pkg/logger"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	_ = godotenv.Load()

	// stdout carries command output, so logs go to stderr
	logger.SetupWriter(os.Stderr, cfg.String("CATALOG_LOG", "error"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdout)
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if catalog.IsNotFound(err) {
			return 3
		}
		return 1
	}
	return 0
}
