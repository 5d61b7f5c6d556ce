package app

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aspire-solar/billdesk/internal/attendance"
	"github.com/aspire-solar/billdesk/internal/auth"
	"github.com/aspire-solar/billdesk/internal/challans"
	"github.com/aspire-solar/billdesk/internal/clients"
	"github.com/aspire-solar/billdesk/internal/employees"
	"github.com/aspire-solar/billdesk/internal/invoice"
	"github.com/aspire-solar/billdesk/internal/invoice/export"
	"github.com/aspire-solar/billdesk/internal/ledger"
	"github.com/aspire-solar/billdesk/internal/observability"
	"github.com/aspire-solar/billdesk/internal/platform/cache"
	"github.com/aspire-solar/billdesk/internal/settings"
	"github.com/aspire-solar/billdesk/internal/storage"
	"github.com/aspire-solar/billdesk/internal/users"
	"github.com/aspire-solar/billdesk/jobs"
	"github.com/aspire-solar/billdesk/report"
)

// ServiceDeps are the shared resources the domain services are built from.
type ServiceDeps struct {
	Config  *Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
	// Queue hands file removal and PDF retries to the worker. When nil they
	// run inline.
	Queue *jobs.Client
}

// Services is the assembled domain layer shared by the server, the worker
// and billdeskctl.
type Services struct {
	Store      *storage.Local
	Remover    storage.Remover
	Gotenberg  *report.Client
	Settings   *settings.Service
	Users      *users.Service
	Auth       *auth.Service
	Clients    *clients.Service
	Invoices   *invoice.Service
	Employees  *employees.Service
	Ledger     *ledger.Service
	Statements *ledger.StatementBuilder
	Attendance *attendance.Service
	Challans   *challans.Service
}

// NewServices wires repositories, storage and renderers into services.
func NewServices(deps ServiceDeps) (*Services, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store, err := storage.NewLocal(cfg.StorageDir, cfg.StoragePublicURL, cfg.StorageMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	var remover storage.Remover = storage.NewRetryRemover(store, logger)
	var scheduler invoice.RenderScheduler
	if deps.Queue != nil {
		remover = deps.Queue
		scheduler = deps.Queue
	}

	settingsService := settings.NewService(settings.NewRepository(deps.Pool), store, remover, logger)
	if deps.Redis != nil {
		settingsService.WithCache(cache.NewJSON(deps.Redis, "billdesk", cfg.SettingsCacheTTL, logger))
	}

	usersService := users.NewService(users.NewRepository(deps.Pool), logger)
	gotenberg := report.NewClient(cfg.GotenbergURL)

	ledgerService := ledger.NewService(ledger.NewRepository(deps.Pool), deps.Metrics, logger)
	statements, err := ledger.NewStatementBuilder(ledgerService, gotenberg, settingsService)
	if err != nil {
		return nil, fmt.Errorf("ledger statements: %w", err)
	}

	renderer := export.NewGenerator(settingsService, export.NewRenderer(export.Options{Compress: cfg.InvoicePDFCompress}))

	return &Services{
		Store:     store,
		Remover:   remover,
		Gotenberg: gotenberg,
		Settings:  settingsService,
		Users:     usersService,
		Auth:      auth.NewService(usersService, auth.NewRepository(deps.Pool)),
		Clients:   clients.NewService(clients.NewRepository(deps.Pool), logger),
		Invoices: invoice.NewService(invoice.Deps{
			Repo:      invoice.NewRepository(deps.Pool),
			Renderer:  renderer,
			Store:     store,
			Remover:   remover,
			Scheduler: scheduler,
			Metrics:   deps.Metrics,
			Logger:    logger,
		}),
		Employees:  employees.NewService(employees.NewRepository(deps.Pool), store, remover, logger),
		Ledger:     ledgerService,
		Statements: statements,
		Attendance: attendance.NewService(attendance.NewRepository(deps.Pool)),
		Challans:   challans.NewService(challans.NewRepository(deps.Pool), store, remover, logger),
	}, nil
}
