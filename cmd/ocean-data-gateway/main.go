package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/kthyng/ocean-data-gateway/internal/adapters"
	httpapi "github.com/kthyng/ocean-data-gateway/internal/api/http"
	"github.com/kthyng/ocean-data-gateway/internal/cache"
	"github.com/kthyng/ocean-data-gateway/internal/config"
	"github.com/kthyng/ocean-data-gateway/internal/federation"
	"github.com/kthyng/ocean-data-gateway/internal/scheduler"
	"github.com/kthyng/ocean-data-gateway/internal/vocab"
)

func main() {
	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("failed to load config", zap.Error(err))
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Source registry from configuration.
	registry := federation.NewRegistry()
	for name, baseURL := range cfg.ErddapServers {
		if err := registry.Register(adapters.NewERDDAP(name, baseURL, httpClient)); err != nil {
			zlog.Fatal("failed to register erddap source", zap.String("source", name), zap.Error(err))
		}
	}
	if cfg.AxdsEnabled {
		if err := registry.Register(adapters.NewAxds("axds", cfg.AxdsBaseURL, httpClient)); err != nil {
			zlog.Fatal("failed to register axds source", zap.Error(err))
		}
	}

	// Result cache and, for the in-memory backend, its expiry sweep.
	var resultCache federation.ResultCache
	switch cfg.CacheBackend {
	case config.BackendRedis:
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, zlog)
		if err != nil {
			zlog.Fatal("failed to connect cache backend", zap.Error(err))
		}
		defer redisCache.Close()
		resultCache = redisCache
	default:
		memCache := cache.NewMemory()
		resultCache = memCache

		sched := scheduler.New(memCache, cfg.SweepInterval, zlog)
		if err := sched.Start(); err != nil {
			zlog.Fatal("failed to start cache sweeper", zap.Error(err))
		}
		defer sched.Stop()
	}

	vocabulary := vocab.Default()

	coord := federation.NewCoordinator(registry, resultCache, vocabulary, federation.Options{
		DefaultTTL:           cfg.DefaultTTL,
		PerSourceTimeout:     cfg.PerSourceTimeout,
		ProximityToleranceKm: cfg.ProximityToleranceKm,
	}, zlog)

	app := fiber.New(fiber.Config{
		AppName:               "ocean-data-gateway",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "ocean-data-gateway",
			"sources": coord.Sources(),
		})
	})

	httpapi.RegisterRoutes(app, coord, vocabulary)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()
	zlog.Info("gateway listening", zap.String("port", cfg.Port), zap.Strings("sources", coord.Sources()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}
