package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodlog/backend/config"
	httpDelivery "github.com/foodlog/backend/internal/delivery/http"
	"github.com/foodlog/backend/internal/domain"
	"github.com/foodlog/backend/internal/infrastructure/cache"
	"github.com/foodlog/backend/internal/infrastructure/estimator"
	"github.com/foodlog/backend/internal/infrastructure/observability"
	"github.com/foodlog/backend/internal/infrastructure/openfoodfacts"
	"github.com/foodlog/backend/internal/infrastructure/repository"
	"github.com/foodlog/backend/internal/infrastructure/usda"
	"github.com/foodlog/backend/internal/usecase"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Server.Environment, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting FoodLog backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type),
		zap.String("repository", cfg.Repository.Type),
	)

	collector := observability.NewCollector("foodlog")

	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	var resultCache *usecase.ResultCache
	if cfg.Cache.Type == "memory" {
		resultCache = usecase.NewResultCache(cache.NewMemoryCache(), cfg.Cache.TTL, logger)
		logger.Info("result cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	}

	matcher := usecase.NewFavoritesMatcher(usecase.MatchConfig{
		MinConfidence:       cfg.Resolver.MinConfidence,
		EnableFuzzyMatching: cfg.Resolver.EnableFuzzyMatching,
	}, logger)
	preprocessor := usecase.NewQueryPreprocessor(logger)

	strategies := []usecase.Strategy{
		usecase.NewLocalStrategy(repo, matcher, resultCache, logger),
	}

	off := openfoodfacts.NewClient(openfoodfacts.Config{
		BaseURL:       cfg.OpenFoodFacts.BaseURL,
		WorldURL:      cfg.OpenFoodFacts.WorldURL,
		Timeout:       cfg.OpenFoodFacts.Timeout,
		UserAgent:     cfg.OpenFoodFacts.UserAgent,
		RatePerSecond: float64(cfg.RateLimit.OpenFoodFacts) / 60,
	}, logger.Named("openfoodfacts"))
	strategies = append(strategies, usecase.NewDatabaseStrategy(off, usecase.DatabaseConfig{
		Name:     "openfoodfacts",
		Timeout:  cfg.Resolver.LookupTimeout,
		Regional: true,
	}, preprocessor, resultCache, logger))

	if cfg.USDA.APIKey != "" {
		usdaClient := usda.NewClient(cfg.USDA.APIKey, cfg.USDA.BaseURL,
			usda.WithLogger(logger.Named("usda")),
			usda.WithRateLimit(float64(cfg.RateLimit.USDA)/3600, 10),
		)
		// Enable debug mode in development environment
		if cfg.Server.Environment == "development" {
			usdaClient.SetDebug(true)
		}
		strategies = append(strategies, usecase.NewDatabaseStrategy(usdaClient, usecase.DatabaseConfig{
			Name:    "usda",
			Timeout: cfg.Resolver.LookupTimeout,
			Modes:   []domain.Mode{domain.ModeText},
		}, preprocessor, resultCache, logger))
	} else {
		logger.Warn("USDA API key not configured, skipping USDA tier")
	}

	var diaryOpts []usecase.DiaryOption
	if cfg.Estimator.Enabled {
		est := estimator.NewClient(estimator.Config{
			APIKey:      cfg.Estimator.APIKey,
			BaseURL:     cfg.Estimator.BaseURL,
			Model:       cfg.Estimator.Model,
			VisionModel: cfg.Estimator.VisionModel,
			Timeout:     cfg.Estimator.Timeout,
		}, logger.Named("estimator"))
		strategies = append(strategies, usecase.NewEstimateStrategy(est, logger))
		diaryOpts = append(diaryOpts, usecase.WithImageEstimator(est))
	} else {
		logger.Warn("estimator disabled, text estimates and photo recognition are unavailable")
	}

	resolver := usecase.NewResolver(logger, collector, strategies...)
	logger.Info("lookup chain ready", zap.Strings("tiers", resolver.Strategies()))

	diary := usecase.NewDiary(repo, resolver, logger, diaryOpts...)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(diary, cfg.OpenFoodFacts.Region, logger)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, collector, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRepository returns the configured store and a function releasing it.
func openRepository(cfg *config.Config, logger *zap.Logger) (domain.Repository, func(), error) {
	if cfg.Repository.Type != "postgres" {
		return repository.NewMemoryRepository(), func() {}, nil
	}

	repo, err := repository.NewPostgresRepository(cfg.Repository.DSN, logger.Named("postgres"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres repository: %w", err)
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			logger.Warn("closing repository", zap.Error(err))
		}
	}, nil
}
