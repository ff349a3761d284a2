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
	"github.com/redis/go-redis/v9"

	"github.com/faresight/faresight-go/internal/api"
	"github.com/faresight/faresight-go/internal/api/handlers"
	"github.com/faresight/faresight-go/internal/cache"
	"github.com/faresight/faresight-go/internal/config"
	"github.com/faresight/faresight-go/internal/database"
	"github.com/faresight/faresight-go/internal/logging"
	"github.com/faresight/faresight-go/internal/services"
	"github.com/faresight/faresight-go/pkg/fareapi"
)

const serviceVersion = "1.0.0"

// fareAPIPinger adapts the aggregator client to the health handler.
type fareAPIPinger struct {
	client *fareapi.Client
}

func (p fareAPIPinger) HealthCheck(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	return err
}

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logging.NewStandardLogger(cfg.LogLevel)
	logrusLogger := logging.NewLogrusLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional; without it the cache runs on the bounded in-memory
	// store.
	var redisClient *database.RedisClient
	var store cache.Store
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisConnection(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		store = cache.NewRedisStore(redisClient.Client, "")
	} else {
		store = cache.NewMemoryStore(cfg.Cache.MaxEntries)
	}

	var cacheRedis *redis.Client
	if redisClient != nil {
		cacheRedis = redisClient.Client
	}
	analytics := services.NewCacheAnalyticsService(cacheRedis)
	analytics.StartPeriodicReporting(ctx, 5*time.Minute)

	// Connectivity probing targets the aggregator itself; an unreachable
	// aggregator is what "offline" means for this service.
	monitor := cache.NewProbeMonitor(cfg.FareAPI.ServiceURL+"/health", 30*time.Second, logrusLogger)
	monitor.Start(ctx)

	fetcher := cache.NewRetryFetcher(cfg.Retry, cfg.OfflineQueue, monitor, logrusLogger)
	fetcher.Start(ctx)
	defer fetcher.Queue().Clear()

	// Misses fall through the cache into the retry fetcher, so a single
	// history lookup gets TTL caching, backoff and offline queueing.
	responseCache := cache.NewResponseCache(store, cfg.Cache, analytics, logrusLogger).
		WithFetcher(fetcher.FetchWithRetry)

	fareClient := fareapi.NewClient(&cfg.FareAPI).WithCache(responseCache)
	defer func() {
		if err := fareClient.Close(); err != nil {
			logrusLogger.WithError(err).Warn("Error closing fare API client")
		}
	}()

	synthetic := services.NewSyntheticHistorySource()
	predictionEngine := services.NewPricePredictionEngine(cfg.Prediction, fareClient, logrusLogger).
		WithFallback(synthetic)
	segmentationEngine := services.NewUserSegmentationEngine(logrusLogger)

	resourceMonitor := services.NewResourceMonitor(appLogger)
	resourceMonitor.Start(ctx, time.Minute)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	dependencies := map[string]handlers.Pinger{
		"fare_api": fareAPIPinger{client: fareClient},
	}
	if redisClient != nil {
		dependencies["redis"] = redisClient
	}

	api.SetupRoutes(router, cfg.Server, appLogger, api.Handlers{
		Health:       handlers.NewHealthHandler(serviceVersion, dependencies, resourceMonitor),
		Prediction:   handlers.NewPredictionHandler(predictionEngine, cfg.Prediction.DaysAhead),
		Segmentation: handlers.NewSegmentationHandler(segmentationEngine),
		Cache:        handlers.NewCacheHandler(analytics, responseCache),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.LogStartup("faresight", serviceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	appLogger.LogShutdown("faresight", "signal received")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.LogShutdown("faresight", "server exited")
	os.Exit(0)
}
