package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aspire-solar/billdesk/internal/app"
	"github.com/aspire-solar/billdesk/internal/platform/db"
)

var version = "dev"

// env holds the resources a command opened. Each is created on first use.
type env struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	svc    *app.Services
}

func (e *env) load() error {
	if e.cfg != nil {
		return nil
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg
	e.logger = app.NewLogger(cfg)
	return nil
}

func (e *env) database(ctx context.Context) (*pgxpool.Pool, error) {
	if e.pool != nil {
		return e.pool, nil
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	pool, err := db.New(ctx, e.cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return pool, nil
}

// services builds the domain layer without a queue: file removal and
// rendering happen inline.
func (e *env) services(ctx context.Context) (*app.Services, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	pool, err := e.database(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := app.NewServices(app.ServiceDeps{Config: e.cfg, Logger: e.logger, Pool: pool})
	if err != nil {
		return nil, err
	}
	e.svc = svc
	return svc, nil
}

func (e *env) redisOpts() (asynq.RedisClientOpt, error) {
	if err := e.load(); err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{Addr: e.cfg.RedisAddr}, nil
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func newRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "billdeskctl",
		Short:         "Administer a billdesk installation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
	}
	root.AddCommand(
		newMigrateCommand(e),
		newSettingsCommand(e),
		newInvoiceCommand(e),
		newUserCommand(e),
		newJobsCommand(e),
	)
	return root
}
