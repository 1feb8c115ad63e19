package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/app/workerapp"
	"github.com/ivankudzin/giftexchange/internal/config"
	"github.com/ivankudzin/giftexchange/internal/infra/logger"
)

func main() {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		panic(err)
	}

	log, err := logger.NewWithOptions(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Service:     "giftexchange-worker",
	})
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := workerapp.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("create worker app", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("close worker app", zap.Error(err))
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Error("worker failed", zap.Error(err))
	}
}
