package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medbill/medbill/internal/app"
	"github.com/medbill/medbill/internal/billing"
	"github.com/medbill/medbill/internal/credit"
	"github.com/medbill/medbill/internal/customers"
	"github.com/medbill/medbill/internal/medicines"
	"github.com/medbill/medbill/internal/platform/db"
	"github.com/medbill/medbill/internal/shared"
	"github.com/medbill/medbill/internal/stock"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MinConns: cfg.PGMinConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, auditLogger)
	stockHandler := stock.NewHandler(logger, stockService)

	creditRepo := credit.NewRepository(pool)
	creditService := credit.NewService(creditRepo, auditLogger)
	creditHandler := credit.NewHandler(logger, creditService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	medicinesRepo := medicines.NewRepository(pool)
	medicinesService := medicines.NewService(medicinesRepo)
	medicinesHandler := medicines.NewHandler(logger, medicinesService)

	summaryCache := billing.NewSummaryCache(redisClient, cfg.SummaryTTL)
	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(billingRepo, auditLogger, idempotencyStore, summaryCache)
	billingHandler := billing.NewHandler(logger, billingService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pool:             pool,
		BillingHandler:   billingHandler,
		StockHandler:     stockHandler,
		CreditHandler:    creditHandler,
		CustomersHandler: customersHandler,
		MedicinesHandler: medicinesHandler,
	})

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
