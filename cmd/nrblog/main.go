package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bhogyaan/NRBLOG/internal/server"
	"github.com/Bhogyaan/NRBLOG/internal/store"
	"github.com/Bhogyaan/NRBLOG/pkg/config"
	"github.com/Bhogyaan/NRBLOG/pkg/logging"
)

func main() {
	logger := logging.New(logging.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger = logging.New(logging.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	client, err := store.Connect(dialCtx, cfg.Store.MongoURI)
	cancel()
	if err != nil {
		logger.Error("Failed to connect to the document store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("Store disconnect failed", slog.Any("error", err))
		}
	}()
	reader := store.NewMongoReader(client.Database(cfg.Store.Database), logger)

	app := server.NewApp(logger, ctx, cfg, reader)
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}
