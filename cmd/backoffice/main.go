package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/backoffice/internal/app"
	"github.com/odyssey-erp/backoffice/internal/auth"
	"github.com/odyssey-erp/backoffice/internal/banks"
	"github.com/odyssey-erp/backoffice/internal/documents"
	"github.com/odyssey-erp/backoffice/internal/inventory"
	"github.com/odyssey-erp/backoffice/internal/menu"
	"github.com/odyssey-erp/backoffice/internal/observability"
	"github.com/odyssey-erp/backoffice/internal/platform/cache"
	"github.com/odyssey-erp/backoffice/internal/platform/db"
	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/procurement"
	"github.com/odyssey-erp/backoffice/internal/reports"
	"github.com/odyssey-erp/backoffice/internal/sales"
	"github.com/odyssey-erp/backoffice/internal/shared"
	"github.com/odyssey-erp/backoffice/jobs"
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
	httpx.HideErrorDetails(cfg.IsProduction())

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Reports fall back to uncached reads when Redis is down.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("init token issuer", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	routerParams := app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Tokens:  tokens,
		Metrics: metrics,
	}
	guard := routerParams.Guard()

	authService := auth.NewService(auth.NewRepository(dbpool), tokens, auditLogger, cfg.EmailDomain)
	routerParams.AuthHandler = auth.NewHandler(logger, authService, guard)

	procurementService := procurement.NewService(procurement.NewRepository(dbpool), auditLogger)
	routerParams.ProcurementHandler = procurement.NewHandler(logger, procurementService)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger)
	routerParams.InventoryHandler = inventory.NewHandler(logger, inventoryService)

	menuService := menu.NewService(menu.NewRepository(dbpool), auditLogger)
	routerParams.MenuHandler = menu.NewHandler(logger, menuService)

	banksService := banks.NewService(banks.NewRepository(dbpool), auditLogger)
	routerParams.BanksHandler = banks.NewHandler(logger, banksService)

	salesService := sales.NewService(sales.NewRepository(dbpool))
	routerParams.SalesHandler = sales.NewHandler(logger, salesService)

	reportsService := reports.NewService(reports.NewRepository(dbpool), reports.NewCache(redisClient, cfg.ReportCacheTTL))
	routerParams.ReportsHandler = reports.NewHandler(logger, reportsService)

	store, err := documents.NewDiskStore(cfg.DocumentDir)
	if err != nil {
		logger.Error("init document store", slog.Any("error", err))
		os.Exit(1)
	}
	documentsService := documents.NewService(documents.NewRepository(dbpool), store, auditLogger, cfg.DocumentMaxBytes)
	routerParams.DocumentsHandler = documents.NewHandler(logger, documentsService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	routerParams.JobHandler = jobs.NewHandler(inspector, jobClient, logger)

	routerParams.HealthChecks = []app.HealthCheck{
		{Name: "postgres", Check: dbpool.Ping},
	}
	if redisClient != nil {
		routerParams.HealthChecks = append(routerParams.HealthChecks, app.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
		})
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      app.NewRouter(routerParams),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
