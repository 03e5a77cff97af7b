package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	"github.com/nfrund/campus/internal/config"
	"github.com/nfrund/campus/internal/logging"
	"github.com/nfrund/campus/internal/server"
	"github.com/nfrund/campus/internal/storage"
)

func main() {
	logging.New()
	cfg := config.New()
	ctx := context.Background()

	conn, stores, err := server.ConnectStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	blobs, err := storage.NewDiskStore(cfg.GetStorageDir())
	if err != nil {
		slog.Error("Failed to open attachment storage", "dir", cfg.GetStorageDir(), "error", err)
		os.Exit(1)
	}

	injector := server.NewContainer(cfg, stores, blobs)
	do.ProvideValue(injector, conn)

	s := server.New(injector)
	if err := s.RegisterRoutes(ctx); err != nil {
		slog.Error("Failed to register routes", "error", err)
		os.Exit(1)
	}
	s.Start()
}
