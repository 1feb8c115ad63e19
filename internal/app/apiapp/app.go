package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/app/engineapp"
	"github.com/ivankudzin/giftexchange/internal/config"
	authsvc "github.com/ivankudzin/giftexchange/internal/services/auth"
	"github.com/ivankudzin/giftexchange/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	engine     *engineapp.Engine
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	engine, err := engineapp.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	if !jwtManager.Configured() {
		log.Warn("jwt secret is empty, admin routes will reject every request")
	}

	health := handlers.NewHealthHandler()
	health.Register("postgres", engine.PingPostgres)
	if engine.Redis != nil {
		health.Register("redis", engine.PingRedis)
	}

	router := NewRouter(Dependencies{
		Assignments: engine.Service,
		JWT:         jwtManager,
		Health:      health,
		Logger:      log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		engine:     engine,
		httpRouter: router,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if err := a.engine.Close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
