package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	_ "golang.org/x/crypto/x509roots/fallback" // CA bundle for FROM scratch

	"github.com/Amund211/haloclient/internal/logging"
)

func main() {
	instanceID := uuid.New().String()
	logger := logging.New(os.Stderr, slog.LevelInfo).With("instanceID", instanceID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logging.AddToContext(ctx, logger)

	app := newApp(os.Stdout, newDependencies)
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error("Command failed", "error", err.Error())
		stop()
		os.Exit(1)
	}
}
