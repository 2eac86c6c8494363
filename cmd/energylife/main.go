package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/energylife/energylife/pkg/client"
	"github.com/energylife/energylife/pkg/log"
	"github.com/energylife/energylife/pkg/server"
	"github.com/energylife/energylife/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
)

func main() {
	// a local .env fills in the environment defaults for the flags below
	_ = godotenv.Load()

	// init packages
	c := client.Configured()
	s := storage.Configured()

	// init server
	srv := server.Configured(c, s)

	// parse flags
	lflag.Configure()

	level := log.SyncLevel()
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	// Run blocks until the context is canceled or the server fails
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
