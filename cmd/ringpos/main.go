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

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/app"
	"github.com/ringmotos/ringpos/internal/auth"
	"github.com/ringmotos/ringpos/internal/cashdrawer"
	"github.com/ringmotos/ringpos/internal/clients"
	"github.com/ringmotos/ringpos/internal/ledger"
	"github.com/ringmotos/ringpos/internal/observability"
	"github.com/ringmotos/ringpos/internal/platform/cache"
	"github.com/ringmotos/ringpos/internal/pos"
	"github.com/ringmotos/ringpos/internal/printing"
	"github.com/ringmotos/ringpos/internal/quotes"
	"github.com/ringmotos/ringpos/internal/reports"
	"github.com/ringmotos/ringpos/internal/shared"
	"github.com/ringmotos/ringpos/jobs"
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

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "ringpos_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	api := apiclient.New(apiclient.Options{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.APITimeout,
		Logger:         logger,
		Metrics:        metrics,
		OnUnauthorized: app.ClearSessionOnUnauthorized,
	})

	authHandler := auth.NewHandler(logger, auth.NewService(api, logger), sessionManager, csrfManager)

	clientService := clients.NewService(api, clients.BalanceSign(cfg.LedgerBalanceSign), logger)
	clientsHandler := clients.NewHandler(logger, clientService)

	gateway := pos.NewHTTPGateway(api, cfg.PaymentContract)
	var notifier pos.PrintNotifier = pos.NewDirectNotifier(gateway, logger)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	if cfg.UseJobQueue {
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		notifier = jobs.NewRemitoNotifier(jobClient)
	}
	posHandler := pos.NewHandler(logger, pos.NewStore(redisClient, cfg.SessionTTL), gateway, notifier, clientService, metrics, cfg.BusinessName)

	cashHandler := cashdrawer.NewHandler(logger, cashdrawer.NewService(redisClient, api, logger))

	strategy, err := ledger.NewStrategy(cfg.LedgerPaymentMode, api)
	if err != nil {
		logger.Error("ledger payment strategy", slog.Any("error", err))
		os.Exit(1)
	}
	ledgerHandler := ledger.NewHandler(logger, ledger.NewService(api, strategy, logger))

	reportService := reports.NewService(api, reports.NewCache(redisClient, cfg.ReportsCacheTTL), logger)
	reportsHandler := reports.NewHandler(logger, reportService)

	pdfClient := printing.NewClient(cfg.GotenbergURL)
	quotesHandler := quotes.NewHandler(logger, quotes.NewBuilder(clientService, cfg.BusinessName, cfg.QuoteValidityDays), pdfClient)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Metrics:        metrics,
		AuthHandler:    authHandler,
		POSHandler:     posHandler,
		CashHandler:    cashHandler,
		ClientsHandler: clientsHandler,
		LedgerHandler:  ledgerHandler,
		ReportsHandler: reportsHandler,
		QuotesHandler:  quotesHandler,
		JobHandler:     jobHandler,
		Readiness: map[string]app.ReadinessCheck{
			"redis":     func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			"gotenberg": pdfClient.Ping,
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
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
