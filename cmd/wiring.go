package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/okian/repute/internal/adapters/cache"
	"github.com/okian/repute/internal/adapters/classifier"
	"github.com/okian/repute/internal/adapters/repository"
	service "github.com/okian/repute/internal/app"
	"github.com/okian/repute/internal/config"
	"github.com/okian/repute/pkg/logger"
)

const cacheKeyPrefix = "repute:"

// setup loads configuration and initializes the global logger.
func setup(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.InitWith(os.Stderr, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	var dsn string
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemStore(), nil
	case config.DriverSQLite:
		dsn = cfg.SQLitePath
	case config.DriverPostgres:
		dsn = cfg.StoreDSN
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
	store, err := repository.Open(ctx, cfg.StoreDriver, dsn)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheDriver {
	case config.CacheMemory:
		return cache.NewMemory(cfg.CacheSize, cfg.CacheTTL()), nil
	case config.CacheRedis:
		r, err := cache.NewRedis(ctx, cfg.RedisAddr, cacheKeyPrefix, cfg.CacheTTL())
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache_driver %q", config.ErrInvalidConfig, cfg.CacheDriver)
	}
}

// newClassifier returns nil without an error when no API key is configured;
// the service then refuses the classifier-backed jobs.
func newClassifier(ctx context.Context, cfg *config.Config, c cache.Cache) (classifier.Classifier, error) {
	inner, err := classifier.NewOpenAI(cfg.OpenAIAPIKey,
		classifier.WithModel(cfg.OpenAIModel),
		classifier.WithTimeout(cfg.ClassifierTimeout()),
		classifier.WithMaxRetries(cfg.ClassifierMaxRetries),
	)
	if errors.Is(err, classifier.ErrMissingAPIKey) {
		logger.Get().Warn(ctx, "openai_api_key not set; intake and verification are disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return classifier.NewCached(inner, c), nil
}

// app bundles the service with the resources it does not own.
type app struct {
	cfg   *config.Config
	svc   *service.Service
	cache cache.Cache
}

func (a *app) Close() {
	log := logger.Get()
	if err := a.svc.Close(); err != nil {
		log.Error(context.Background(), "store close failed", logger.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		log.Error(context.Background(), "cache close failed", logger.Error(err))
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := setup(ctx)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	c, err := openCache(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	cls, err := newClassifier(ctx, cfg, c)
	if err != nil {
		_ = store.Close()
		_ = c.Close()
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	svc := service.New(cfg, store, cls, service.WithLogger(logger.Get()))
	return &app{cfg: cfg, svc: svc, cache: c}, nil
}
