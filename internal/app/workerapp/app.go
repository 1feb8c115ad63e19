package workerapp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/app/engineapp"
	"github.com/ivankudzin/giftexchange/internal/config"
	"github.com/ivankudzin/giftexchange/internal/jobs/reconcile"
)

type runner interface {
	Run(ctx context.Context) (reconcile.Result, error)
}

type App struct {
	logger   *zap.Logger
	engine   *engineapp.Engine
	job      runner
	interval time.Duration
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	engine, err := engineapp.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	if engine.Dirty == nil {
		_ = engine.Close()
		return nil, fmt.Errorf("worker needs redis for the dirty collection queue")
	}
	if engine.Postgres == nil {
		_ = engine.Close()
		return nil, fmt.Errorf("worker needs postgres")
	}

	job := reconcile.New(engine.Dirty, engine.Service, cfg.Worker.BatchSize, log.Named("reconcile"))
	return &App{
		logger:   log,
		engine:   engine,
		job:      job,
		interval: cfg.Worker.ReconcileInterval,
	}, nil
}

// Run drains one batch right away and then one per tick until ctx is done.
// Batch errors are logged; the loop only stops on cancellation.
func (a *App) Run(ctx context.Context) error {
	interval := a.interval
	if interval <= 0 {
		interval = time.Minute
	}
	a.logger.Info("worker started", zap.Duration("interval", interval))

	a.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("worker stopped")
			return nil
		case <-ticker.C:
			a.runOnce(ctx)
		}
	}
}

func (a *App) runOnce(ctx context.Context) {
	if _, err := a.job.Run(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("reconcile batch failed", zap.Error(err))
	}
}

func (a *App) Close() error {
	if a.engine == nil {
		return nil
	}
	return a.engine.Close()
}
