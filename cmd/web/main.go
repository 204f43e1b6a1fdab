package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"sitekit/internal/app"
	"sitekit/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Observability.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Observability.SentryDSN,
			Environment: os.Getenv("ENVIRONMENT"),
			Release:     app.Version,
		})
		if err != nil {
			slog.Error("sentry init failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	application, err := app.NewWithConfig(cfg)
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}
