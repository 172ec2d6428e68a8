package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/life-stream-dev/go-sttp-publisher/internal/config"
	"github.com/life-stream-dev/go-sttp-publisher/internal/event"
	"github.com/life-stream-dev/go-sttp-publisher/internal/logger"
	"github.com/life-stream-dev/go-sttp-publisher/internal/metadata"
	"github.com/life-stream-dev/go-sttp-publisher/internal/publisher"
)

func main() {
	cfg, err := config.ReadConfig()
	if err != nil {
		logger.FatalF("Error occured while reading config %v", err)
		return
	}
	loggerCallback := logger.Init()
	logger.Debug("Application initializing...")
	cleaner := event.NewCleaner()
	cleaner.Init(loggerCallback)

	dataset, err := metadata.ConnectMongoDataset()
	if err != nil {
		logger.FatalF("Error occured while initializing metadata store, details: %v", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	p := publisher.New(cfg, dataset)
	if err := p.Run(ctx); err != nil {
		logger.FatalF("Publisher stopped, details: %v", err)
	}
}
