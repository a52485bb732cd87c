package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/offerwall/internal/fraud"
	"github.com/richxcame/offerwall/internal/ledger"
	"github.com/richxcame/offerwall/internal/scheduler"
	"github.com/richxcame/offerwall/pkg/cache"
	"github.com/richxcame/offerwall/pkg/config"
	"github.com/richxcame/offerwall/pkg/database"
	"github.com/richxcame/offerwall/pkg/eventbus"
	"github.com/richxcame/offerwall/pkg/logger"
	"github.com/richxcame/offerwall/pkg/middleware"
	redisclient "github.com/richxcame/offerwall/pkg/redis"
	"github.com/richxcame/offerwall/pkg/resilience"
)

const serviceName = "fraudgate"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment, serviceName); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	sentryEnabled := false
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: cfg.Server.Environment,
		}); err != nil {
			logger.Warn("sentry initialization failed", zap.Error(err))
		} else {
			sentryEnabled = true
			defer sentry.Flush(2 * time.Second)
		}
	}

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to ledger database", zap.Error(err))
	}
	defer database.Close(pool)

	redisClient, err := redisclient.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	ledgerRepo := ledger.NewRepository(pool)
	var ledgerReader fraud.LedgerReader = ledgerRepo
	if cfg.Resilience.CircuitBreaker.Enabled {
		breaker := resilience.NewCircuitBreaker(resilience.Settings{
			Name:             "ledger",
			Interval:         time.Duration(cfg.Resilience.CircuitBreaker.IntervalSeconds) * time.Second,
			Timeout:          time.Duration(cfg.Resilience.CircuitBreaker.TimeoutSeconds) * time.Second,
			FailureThreshold: uint32(cfg.Resilience.CircuitBreaker.FailureThreshold),
			SuccessThreshold: uint32(cfg.Resilience.CircuitBreaker.SuccessThreshold),
		})
		ledgerReader = ledger.NewResilient(ledgerRepo, breaker)
	}

	var bus *eventbus.Bus
	if cfg.EventBus.Enabled {
		busCfg := eventbus.DefaultConfig()
		busCfg.URL = cfg.EventBus.URL
		bus, err = eventbus.New(busCfg)
		if err != nil {
			// Alerting is best effort; the gate runs without it
			logger.Warn("event bus unavailable, continuing without publishing", zap.Error(err))
			bus = nil
		} else {
			defer bus.Close()
		}
	}
	var publisher fraud.EventPublisher
	if bus != nil {
		publisher = bus
	}

	var cacheManager *cache.Manager
	if cfg.Fraud.SnapshotCacheSeconds > 0 {
		cacheManager = cache.NewManager(redisClient)
	}

	flagStore := fraud.NewFlagStore(redisClient, cfg.Fraud)
	ipTracker := fraud.NewIPTracker(redisClient, cfg.Fraud)
	service := fraud.NewService(ledgerReader, flagStore, ipTracker, cacheManager, publisher, cfg.Fraud)
	reporter := fraud.NewReporter(ledgerReader, flagStore)
	handler := fraud.NewHandler(service, reporter)

	worker := scheduler.NewReportWorker(reporter, publisher,
		time.Duration(cfg.Fraud.ReportIntervalHours)*time.Hour)
	worker.Start()
	defer worker.Stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if sentryEnabled {
		router.Use(middleware.ErrorTracking())
	}
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	if sentryEnabled {
		router.Use(middleware.ErrorReporter())
	}

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok", "redis": "ok"}
		if err := pool.Ping(ctx); err != nil {
			checks["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
		if _, err := redisClient.Exists(ctx, "health"); err != nil {
			checks["redis"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"service": serviceName, "checks": checks})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	handler.RegisterRoutes(v1)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("fraud gate listening",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
