// Package engineapp builds the assignment engine and its collaborators from
// config. The API, the worker and the CLI share it.
package engineapp

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/config"
	"github.com/ivankudzin/giftexchange/internal/infra/httpclient"
	s3infra "github.com/ivankudzin/giftexchange/internal/infra/s3"
	tginfra "github.com/ivankudzin/giftexchange/internal/infra/telegram"
	pgrepo "github.com/ivankudzin/giftexchange/internal/repo/postgres"
	redrepo "github.com/ivankudzin/giftexchange/internal/repo/redis"
	"github.com/ivankudzin/giftexchange/internal/services/archive"
	"github.com/ivankudzin/giftexchange/internal/services/assignments"
	"github.com/ivankudzin/giftexchange/internal/services/notify"
)

const redisPingTimeout = 2 * time.Second

type Engine struct {
	Service  *assignments.Service
	Dirty    *redrepo.DirtyRepo
	Postgres *pgxpool.Pool
	Redis    *goredis.Client
	S3       *minio.Client

	logger *zap.Logger
}

// New never fails on an unreachable dependency: postgres, redis, telegram and
// s3 problems are logged and the engine runs degraded. Callers that cannot
// work without a dependency check the matching field.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	e := &Engine{logger: log}

	if pool, err := pgrepo.NewPool(ctx, pgrepo.PoolConfig{
		DSN:         cfg.Postgres.DSN,
		MaxConns:    cfg.Postgres.MaxConns,
		PingTimeout: cfg.Postgres.PingTimeout,
	}); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		e.Postgres = pool
	}

	deps := assignments.Dependencies{
		Pool:         e.Postgres,
		Collections:  pgrepo.NewCollectionRepo(e.Postgres),
		Assignments:  pgrepo.NewAssignmentRepo(e.Postgres),
		Signups:      pgrepo.NewSignupRepo(e.Postgres),
		Participants: pgrepo.NewParticipantRepo(e.Postgres),
		Logger:       log.Named("assignments"),
	}

	if cfg.Redis.Addr != "" {
		client := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redrepo.Ping(ctx, client, redisPingTimeout); err != nil {
			log.Warn("redis unavailable, using in-process collection locks", zap.Error(err))
			_ = client.Close()
		} else {
			e.Redis = client
			e.Dirty = redrepo.NewDirtyRepo(client)
			deps.Locker = redrepo.NewLockRepo(client)
			deps.Dirty = e.Dirty
			deps.Status = redrepo.NewRunStatusRepo(client)
		}
	}

	if cfg.Bot.Token != "" {
		bot, err := tginfra.NewBot(tginfra.Config{
			Token:    cfg.Bot.Token,
			Endpoint: cfg.Bot.Endpoint,
		}, httpclient.New(cfg.Bot.Timeout))
		if err != nil {
			log.Warn("telegram init failed, send-out will not notify", zap.Error(err))
		} else {
			log.Info("telegram bot ready", zap.String("username", bot.Username()))
			deps.Notifier = notify.NewNotifier(bot, log.Named("notify"))
		}
	}

	if cfg.Engine.ArchiveReports {
		client, err := s3infra.NewClient(s3infra.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			log.Warn("s3 init failed, run reports will not be archived", zap.Error(err))
		} else {
			if err := s3infra.EnsureBucket(ctx, client, cfg.S3.Bucket, cfg.S3.Region); err != nil {
				log.Warn("s3 bucket check failed", zap.Error(err))
			}
			e.S3 = client
			deps.Recorders = append(deps.Recorders, archive.NewArchive(client, cfg.S3.Bucket, cfg.S3.ArchivePrefix))
		}
	}

	e.Service = assignments.NewService(deps, assignments.Config{
		LockTTL:    cfg.Engine.LockTTL,
		RandomSeed: cfg.Engine.RandomSeed,
	})

	return e, nil
}

func (e *Engine) PingPostgres(ctx context.Context) error {
	if e.Postgres == nil {
		return fmt.Errorf("postgres is not configured")
	}
	return e.Postgres.Ping(ctx)
}

func (e *Engine) PingRedis(ctx context.Context) error {
	if e.Redis == nil {
		return fmt.Errorf("redis is not configured")
	}
	return redrepo.Ping(ctx, e.Redis, redisPingTimeout)
}

func (e *Engine) Close() error {
	if e.Postgres != nil {
		e.Postgres.Close()
	}
	if e.Redis != nil {
		if err := e.Redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	return nil
}
