// Package cli implements assignctl, the operator command line for the
// assignment engine.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivankudzin/giftexchange/internal/app/engineapp"
	"github.com/ivankudzin/giftexchange/internal/config"
	"github.com/ivankudzin/giftexchange/internal/domain/enums"
	"github.com/ivankudzin/giftexchange/internal/infra/logger"
	"github.com/ivankudzin/giftexchange/internal/services/assignments"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []enums.OutputFormat{enums.OutputFormatText, enums.OutputFormatJSON}

// ServiceOpener builds the engine for one command invocation. The returned
// func releases whatever the service holds.
type ServiceOpener func(ctx context.Context, cfg config.Config) (*assignments.Service, func() error, error)

// RootOptions holds global flags and the injectable collaborators.
type RootOptions struct {
	Format     string
	ConfigPath string
	Seed       uint64

	LoadConfig  func(path string) (config.Config, error)
	OpenService ServiceOpener
}

func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{
		LoadConfig:  config.Load,
		OpenService: openEngine,
	})
}

func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignctl",
		Short: "Run the gift exchange assignment engine",
		Long: `assignctl runs the gift exchange assignment engine against one collection.

Example:
  assignctl generate --collection 12
  assignctl list --collection 12 --format json
  assignctl token --user-id 1 --role owner`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := enums.ParseOutputFormat(opts.Format); !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", string(enums.OutputFormatText), "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (defaults to $APP_CONFIG or configs/config.yaml)")
	cmd.PersistentFlags().Uint64Var(&opts.Seed, "seed", 0, "fix bucket shuffling (0 keeps engine.random_seed)")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewSendOutCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func (o *RootOptions) config() (config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = config.PathFromEnv()
	}
	cfg, err := o.LoadConfig(path)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	if o.Seed != 0 {
		cfg.Engine.RandomSeed = o.Seed
	}
	return cfg, nil
}

// withService loads config, opens the engine and hands it to fn.
func (o *RootOptions) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *assignments.Service) error) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, closeFn, err := o.OpenService(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "open engine", err)
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()

	if err := fn(ctx, svc); err != nil {
		return WrapExitError(ExitFailure, cmd.Name()+" failed", err)
	}
	return nil
}

func openEngine(ctx context.Context, cfg config.Config) (*assignments.Service, func() error, error) {
	log, err := logger.NewWithOptions(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Service:     "assignctl",
	})
	if err != nil {
		return nil, nil, err
	}

	engine, err := engineapp.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if engine.Postgres == nil {
		_ = engine.Close()
		return nil, nil, fmt.Errorf("postgres is unavailable")
	}

	return engine.Service, func() error {
		_ = log.Sync()
		if err := engine.Close(); err != nil {
			log.Warn("close engine", zap.Error(err))
			return err
		}
		return nil
	}, nil
}
