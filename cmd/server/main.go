package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/avolkov/spreadscan/internal/api"
	"github.com/avolkov/spreadscan/internal/api/handlers"
	"github.com/avolkov/spreadscan/internal/cache"
	"github.com/avolkov/spreadscan/internal/config"
	"github.com/avolkov/spreadscan/internal/database"
	"github.com/avolkov/spreadscan/internal/exchange"
	"github.com/avolkov/spreadscan/internal/logging"
	"github.com/avolkov/spreadscan/internal/services"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	exchangeRepo := database.NewExchangeRepository(db.Pool)
	snapshotRepo := database.NewSnapshotRepository(db.Pool)
	opportunityRepo := database.NewOpportunityRepository(db.Pool)

	profiles, err := exchangeRepo.ListActiveExchanges(context.Background())
	if err != nil {
		logger.Fatalf("Failed to load exchange profiles: %v", err)
	}

	detector := services.NewDetector(services.DetectorConfig{
		ReferenceVolume: decimal.NewFromFloat(cfg.Arbitrage.ReferenceVolume),
		ValidityWindow:  cfg.ValidityWindow(),
		UseOrderBook:    cfg.Arbitrage.UseOrderBook,
		DepthLimit:      cfg.Arbitrage.DepthLimit,
	}, logger)
	monitor := services.NewHealthMonitor(exchangeRepo, cfg.HealthCheckInterval(), logger)

	registry := exchange.NewRegistry(logger)
	sources := make(map[string]services.QuoteSource)
	for i := range profiles {
		profile := profiles[i]
		adapter, err := registry.Build(&profile)
		if err != nil {
			logger.WithError(err).WithField("exchange", profile.Name).Warn("skipping exchange without adapter")
			continue
		}
		priceCache := cache.NewPriceCache(adapter, redis.Client, snapshotRepo, cfg.PriceTTL(), logger)
		detector.AddVenue(&profile, priceCache)
		monitor.AddAdapter(adapter)
		sources[profile.Name] = priceCache
	}

	scanner := services.NewScanner(detector, opportunityRepo, cfg.Arbitrage.Pairs, cfg.ScanInterval(), logger)
	if err := scanner.Start(); err != nil {
		logger.Fatalf("Failed to start scanner: %v", err)
	}
	defer scanner.Stop()

	if err := monitor.Start(); err != nil {
		logger.Fatalf("Failed to start health monitor: %v", err)
	}
	defer monitor.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, db, redis,
		handlers.NewMarketHandler(sources, logger),
		handlers.NewExchangeHandler(exchangeRepo, monitor, logger),
		handlers.NewArbitrageHandler(detector, opportunityRepo, logger),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
