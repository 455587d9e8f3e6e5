package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goliatone/go-jsonform/pkg/form"
)

// cleanupInterval is how often expired sessions are swept.
const cleanupInterval = time.Minute

// Run serves the form session routes until ctx is done.
func Run(ctx context.Context, cfg Config, logger *slog.Logger, options ...form.Option) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sessions := NewManager(cfg.MaxAge, cfg.IdleTimeout, options...)
	go sessions.RunCleanup(ctx, cleanupInterval)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(sessions, cfg, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
