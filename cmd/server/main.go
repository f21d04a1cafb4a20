package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/events"
	"github.com/anonto42/mindhaven/backend/internal/middleware"
	"github.com/anonto42/mindhaven/backend/internal/router"
	"github.com/anonto42/mindhaven/backend/pkg/config"
	"github.com/anonto42/mindhaven/backend/pkg/firebase"
	"github.com/anonto42/mindhaven/backend/pkg/logger"
	"github.com/anonto42/mindhaven/backend/pkg/metrics"
	"github.com/anonto42/mindhaven/backend/validators"
	"github.com/labstack/echo/v4"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize databases: %w", err)
	}
	defer db.CloseDB()

	deps := router.Deps{
		Config:    cfg,
		Log:       log,
		Postgres:  db.Postgres,
		Mongo:     db.Mongo,
		Publisher: events.NopPublisher{},
	}

	if cfg.AuthProvider == config.AuthProviderFirebase {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, log)
		if err != nil {
			return fmt.Errorf("initialize firebase: %w", err)
		}
		deps.FirebaseAuth = firebaseApp.AuthClient
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer closeWithLog(log, "Redis client", redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		deps.Redis = redisClient
		log.Info("Successfully connected to Redis")
	} else {
		log.Warn("REDIS_ADDR not set, reset rate limit is per instance")
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicBuddyEvents)
		defer closeWithLog(log, "Kafka publisher", publisher.Close)
		deps.Publisher = publisher
		log.WithField("topic", publisher.Topic).Info("Kafka publisher configured")
	} else {
		log.Warn("KAFKA_BROKERS not set, match events are not published")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(log)
	ipExtractor, err := config.IPExtractor(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("configure client ip extraction: %w", err)
	}
	e.IPExtractor = ipExtractor

	// Setup global middleware
	config.SetupMiddleware(e, log)

	// Setup routes and dependencies
	if err := router.SetupRoutes(e, deps); err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("HTTP server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.WithField("port", cfg.MetricsPort).Info("metrics server starting")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("http server shutdown")
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("metrics server shutdown")
		}
		return nil
	})

	return g.Wait()
}

func closeWithLog(log *logrus.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.WithError(err).Errorf("error closing %s", name)
	}
}
