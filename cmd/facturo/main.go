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
	"golang.org/x/sync/errgroup"

	"github.com/facturo/facturo/internal/app"
	"github.com/facturo/facturo/internal/audit"
	"github.com/facturo/facturo/internal/auth"
	"github.com/facturo/facturo/internal/billing"
	"github.com/facturo/facturo/internal/clients"
	"github.com/facturo/facturo/internal/dashboard"
	"github.com/facturo/facturo/internal/platform/cache"
	"github.com/facturo/facturo/internal/platform/db"
	"github.com/facturo/facturo/internal/users"
	"github.com/facturo/facturo/jobs"
	"github.com/facturo/facturo/report"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	emitter := audit.NewQueueEmitter(queueClient, logger)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens, emitter)
	authHandler := auth.NewHandler(logger, authService)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardTTL)
	dashboardRepo := dashboard.NewRepository(pool)
	dashboardService := dashboard.NewService(dashboardRepo, dashboardCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	renderer, err := report.NewInvoiceRenderer(pdfClient)
	if err != nil {
		logger.Error("init invoice renderer", slog.Any("error", err))
		os.Exit(1)
	}

	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, emitter, dashboardCache)
	billingHandler := billing.NewHandler(logger, billingService, renderer)

	clientsRepo := clients.NewRepository(pool)
	clientsService := clients.NewService(clientsRepo, emitter)
	clientsHandler := clients.NewHandler(logger, clientsService)

	auditService := audit.NewService(audit.NewRepository(pool))
	auditHandler := audit.NewHandler(logger, auditService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, emitter)
	usersHandler := users.NewHandler(logger, usersService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthService:      authService,
		AuthHandler:      authHandler,
		BillingHandler:   billingHandler,
		ClientsHandler:   clientsHandler,
		DashboardHandler: dashboardHandler,
		AuditHandler:     auditHandler,
		UsersHandler:     usersHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
