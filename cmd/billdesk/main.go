package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/aspire-solar/billdesk/internal/app"
	"github.com/aspire-solar/billdesk/internal/attendance"
	"github.com/aspire-solar/billdesk/internal/auth"
	"github.com/aspire-solar/billdesk/internal/challans"
	"github.com/aspire-solar/billdesk/internal/clients"
	"github.com/aspire-solar/billdesk/internal/employees"
	"github.com/aspire-solar/billdesk/internal/invoice"
	"github.com/aspire-solar/billdesk/internal/ledger"
	"github.com/aspire-solar/billdesk/internal/observability"
	"github.com/aspire-solar/billdesk/internal/platform/cache"
	"github.com/aspire-solar/billdesk/internal/platform/db"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/settings"
	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/users"
	"github.com/aspire-solar/billdesk/jobs"
	"github.com/aspire-solar/billdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := jobs.NewClient(redisOpts, logger)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services, err := app.NewServices(app.ServiceDeps{
		Config:  cfg,
		Logger:  logger,
		Pool:    dbpool,
		Redis:   redisClient,
		Metrics: metrics,
		Queue:   queue,
	})
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	if _, err := services.Settings.Ensure(ctx); err != nil {
		logger.Error("ensure company settings", slog.Any("error", err))
		os.Exit(1)
	}

	router := newRouter(cfg, logger, redisClient, metrics, services, inspector)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func newRouter(cfg *app.Config, logger *slog.Logger, redisClient *redis.Client, metrics *observability.Metrics, services *app.Services, inspector jobs.QueueInspector) http.Handler {
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	guard := rbac.Middleware{Logger: logger}

	return app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		RBACMiddleware:    guard,
		Metrics:           metrics,
		AuthHandler:       auth.NewHandler(logger, services.Auth, sessionManager, csrfManager),
		UsersHandler:      users.NewHandler(logger, services.Users, guard),
		SettingsHandler:   settings.NewHandler(logger, services.Settings, guard, cfg.StorageMaxBytes),
		ClientsHandler:    clients.NewHandler(logger, services.Clients, guard),
		InvoiceHandler:    invoice.NewHandler(logger, services.Invoices, guard),
		EmployeesHandler:  employees.NewHandler(logger, services.Employees, guard, cfg.StorageMaxBytes),
		LedgerHandler:     ledger.NewHandler(logger, services.Ledger, services.Statements, guard),
		AttendanceHandler: attendance.NewHandler(logger, services.Attendance, guard),
		ChallansHandler:   challans.NewHandler(logger, services.Challans, guard, cfg.StorageMaxBytes),
		ReportHandler:     report.NewHandler(services.Gotenberg, logger),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Files:             http.FileServer(http.Dir(services.Store.Root())),
	})
}
