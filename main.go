package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/gogo/fraudgpt/internal/adapter/llm"
	"github.com/xiaot623/gogo/fraudgpt/internal/config"
	"github.com/xiaot623/gogo/fraudgpt/internal/hub"
	"github.com/xiaot623/gogo/fraudgpt/internal/metrics"
	"github.com/xiaot623/gogo/fraudgpt/internal/repository"
	"github.com/xiaot623/gogo/fraudgpt/internal/service"
	handler "github.com/xiaot623/gogo/fraudgpt/internal/transport/http"
	"github.com/xiaot623/gogo/fraudgpt/policy"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := newLogger(cfg)

	log.WithFields(logrus.Fields{
		"port":     cfg.HTTPPort,
		"store":    cfg.StoreDriver,
		"provider": cfg.EngineProvider,
		"model":    cfg.EngineModel,
		"cache":    cfg.RedisURL != "",
	}).Info("Starting FraudGPT API...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	// Initialize reasoning engine client
	engine, err := llm.NewClient(llm.Options{
		Provider: cfg.EngineProvider,
		APIKey:   cfg.EngineAPIKey,
		BaseURL:  cfg.EngineBaseURL,
		Model:    cfg.EngineModel,
	}, log)
	if err != nil {
		log.Fatalf("Failed to initialize engine client: %v", err)
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Event hub
	events := hub.NewHub(log.WithField("component", "hub"))
	go events.Run(ctx)

	m := metrics.New()

	// Initialize service
	svc := service.New(db, engine, policyEngine, cfg,
		service.WithNotifier(events),
		service.WithMetrics(m),
		service.WithLogger(log),
	)

	server := handler.NewServer(svc, hub.NewServer(events, hub.DefaultServerOptions(), log), m.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Infof("API started on port %d", cfg.HTTPPort)

	<-ctx.Done()
	log.Info("Shutting down FraudGPT API...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to shutdown server gracefully")
	}

	// Turns outlive their requests; let them finish before the store closes.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.EngineTimeout+5*time.Second)
	defer cancelDrain()
	if err := svc.Drain(drainCtx); err != nil {
		log.WithError(err).Warn("In-flight turns did not finish before shutdown")
	}

	log.Info("FraudGPT API stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// openStore builds the configured store, wrapped in the Redis cache when REDIS_URL is set.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (repository.Store, error) {
	var backing repository.Store
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		backing = pg
	default:
		sqlite, err := repository.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		backing = sqlite
	}

	if cfg.RedisURL == "" {
		return backing, nil
	}
	client, err := repository.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		_ = backing.Close()
		return nil, err
	}
	return repository.NewCachedStore(backing, client, cfg.CacheTTL, log.WithField("component", "cache")), nil
}
