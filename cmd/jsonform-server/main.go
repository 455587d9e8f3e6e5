package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-jsonform/internal/server"
	"github.com/goliatone/go-jsonform/pkg/form"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := server.LoadConfig()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := server.Run(ctx, cfg, logger, form.WithLogger(logger)); err != nil {
		log.Fatalf("server: %v", err)
	}
}
