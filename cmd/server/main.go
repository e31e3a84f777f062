package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/api"
	"github.com/titancoder666/polymarket-tax-engine/internal/config"
	"github.com/titancoder666/polymarket-tax-engine/internal/database"
	"github.com/titancoder666/polymarket-tax-engine/internal/logging"
	"github.com/titancoder666/polymarket-tax-engine/internal/polymarket"
	"github.com/titancoder666/polymarket-tax-engine/internal/repository"
	"github.com/titancoder666/polymarket-tax-engine/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	logger.WithField("path", cfg.Database.Path).Info("Connected to database")

	// Create repositories
	historyRepo := repository.NewHistoryRepository(db)

	// Create the activity API client
	client := polymarket.NewDataClient(cfg.Polymarket.BaseURL, cfg.Polymarket.RequestTimeout)
	fetcher := polymarket.NewFetcher(client, polymarket.Options{
		PageSize:   cfg.Polymarket.PageSize,
		MaxOffset:  cfg.Polymarket.MaxOffset,
		MaxWindows: cfg.Polymarket.MaxWindows,
		PageDelay:  cfg.Polymarket.PageDelay,
	}, logger)

	// Create services
	systemService := service.NewSystemService(db)
	historyService := service.NewHistoryService(
		historyRepo,
		fetcher,
		cfg.Cache.HistoryTTL,
		cfg.Polymarket.FetchTimeout,
		logger,
	)
	taxService := service.NewTaxService(historyService, cfg.Cache.ReportTTL)

	if cfg.Refresh.Schedule != "" {
		refreshService := service.NewRefreshService(historyService, historyRepo, cfg.Refresh.Concurrency, logger)
		if err := refreshService.Start(cfg.Refresh.Schedule); err != nil {
			logger.WithError(err).Fatal("Failed to schedule wallet refresh")
		}
		defer refreshService.Stop()
	}

	// Create router
	router := api.NewRouter(systemService, taxService, historyService, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return
	}

	logger.Info("Server exited")
}
