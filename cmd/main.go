package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/arena-escrow/adjudication"
	"github.com/Dosada05/arena-escrow/config"
	"github.com/Dosada05/arena-escrow/db"
	"github.com/Dosada05/arena-escrow/handlers"
	"github.com/Dosada05/arena-escrow/realtime"
	"github.com/Dosada05/arena-escrow/repositories"
	api "github.com/Dosada05/arena-escrow/routes"
	"github.com/Dosada05/arena-escrow/services"
	"github.com/Dosada05/arena-escrow/storage"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageDriver),
		slog.String("fee_rate", cfg.FeeRate.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище
	var store repositories.Store
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		dbConn, err := db.Connect(ctx, db.PoolConfig{
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnectTimeout:  cfg.DBConnectTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.Migrate(ctx, dbConn, logger); err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		store = repositories.NewPostgresStore(dbConn, logger)
	default:
		logger.Warn("using in-memory storage, data is lost on restart")
		store = repositories.NewMemoryStore()
	}

	// Загрузчик доказательств (Cloudflare R2)
	var uploader storage.ProofStore
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("proof storage is not configured, screenshot upload disabled")
	}

	// WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)

	// Сервисы
	policy := services.AdjudicationPolicy{
		Timeout:       cfg.AdjudicationTimeout,
		MaxRetries:    cfg.AdjudicationMaxRetries,
		RetryDelay:    cfg.AdjudicationRetryDelay,
		MinConfidence: cfg.AdjudicationMinConfidence,
	}
	// Ссылку на доказательство строит ProofService, которому нужен готовый escrow.
	var proofService services.ProofService
	var gateway services.AdjudicationGateway = adjudication.Manual{}
	if cfg.AdjudicationURL != "" {
		gateway = adjudication.NewHTTPClient(cfg.AdjudicationURL, cfg.AdjudicationAPIKey, func(ref string) string {
			return proofService.ProofURL(ref)
		}, logger)
		logger.Info("adjudication oracle configured", slog.String("url", cfg.AdjudicationURL))
	} else {
		logger.Info("no adjudication oracle configured, all results go to human review")
	}

	escrowService := services.NewEscrowService(store, gateway, wsHub, services.EscrowConfig{
		FeeRate:             cfg.FeeRate,
		HouseAccountID:      cfg.HouseAccountID,
		AllowInProgressExit: cfg.AllowInProgressExit,
		MinStake:            cfg.MinStake,
		MaxStake:            cfg.MaxStake,
		Adjudication:        policy,
		Async:               cfg.AdjudicationAsync,
	}, logger)
	ledgerService := services.NewLedgerService(store, logger)
	registry := services.NewMatchRegistry(store, cfg.FeeRate)
	proofService = services.NewProofService(store, escrowService, uploader, logger)
	dashboardService := services.NewDashboardService(store, cfg.HouseAccountID)

	if _, err := ledgerService.EnsureAccount(ctx, cfg.HouseAccountID); err != nil {
		logger.Error("failed to open house account", slog.Any("error", err))
		os.Exit(1)
	}

	// Повторная проверка матчей, застрявших в AI_REVIEW
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		ticker := time.NewTicker(cfg.ReviewSweepInterval)
		defer ticker.Stop()
		logger.Info("review sweep started", slog.Duration("interval", cfg.ReviewSweepInterval))
		for {
			if err := escrowService.ResumePendingReviews(ctx); err != nil {
				logger.Error("review sweep failed", slog.Any("error", err))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	// Обработчики HTTP
	matchHandler := handlers.NewMatchHandler(escrowService, registry, proofService)
	reviewHandler := handlers.NewReviewHandler(escrowService, registry)
	accountHandler := handlers.NewAccountHandler(ledgerService)
	adminHandler := handlers.NewAdminHandler(ledgerService, escrowService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, registry, cfg.CORSAllowedOrigins, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{JWTSecret: cfg.JWTSecretKey, AllowedOrigins: cfg.CORSAllowedOrigins},
		matchHandler,
		reviewHandler,
		accountHandler,
		adminHandler,
		dashboardHandler,
		webSocketHandler,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AdjudicationTimeout*time.Duration(cfg.AdjudicationMaxRetries+1) + 15*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
			<-sweepDone
			escrowService.Wait()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}

	<-sweepDone
	// Фоновые проверки результата должны успеть зафиксироваться до закрытия БД.
	escrowService.Wait()
	logger.Info("application exited")
}
