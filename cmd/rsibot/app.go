package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"rsibot/config"
	"rsibot/internal/logger"
	"rsibot/internal/marketdata/loader"
	"rsibot/internal/marketdata/yahoo"
	"rsibot/internal/metrics"
	"rsibot/internal/model"
	"rsibot/internal/notification"
	"rsibot/internal/runner"
	"rsibot/internal/store/postgres"
	"rsibot/internal/store/redis"
	"rsibot/internal/store/sqlite"
)

// app holds the wired collaborators shared by every subcommand.
type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
	loader  *loader.Loader
	closers []func() error
}

func newApp(ctx context.Context, logLevel string, offline bool) (*app, error) {
	cfg := config.Load()
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	// Stdout carries command output only.
	logger.InitWriter(os.Stderr, "rsibot", logger.ParseLevel(logLevel))

	a := &app{
		cfg:     cfg,
		metrics: metrics.NewMetrics(),
		health:  metrics.NewHealthStatus(),
	}
	a.loader = &loader.Loader{
		Source:  yahoo.New(cfg.YahooBaseURL, cfg.HTTPTimeout),
		Metrics: a.metrics,
		Offline: offline,
	}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if store != nil {
		a.loader.Store = store
	}

	if cfg.RedisAddr != "" {
		cache, err := redis.Dial(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			// The cache is optional; runs go straight to the source.
			slog.Warn("[rsibot] redis unavailable, series cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			a.watchBreaker(cache.Breaker())
			a.health.Register("redis", cache)
			a.loader.Cache = cache
			a.closers = append(a.closers, cache.Close)
		}
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (model.BarStore, error) {
	switch a.cfg.BarStore {
	case config.StoreNone:
		return nil, nil
	case config.StorePostgres:
		if a.cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("RSIBOT_BAR_STORE=postgres requires POSTGRES_DSN")
		}
		s, err := postgres.Open(ctx, a.cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.health.Register("postgres", s)
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.StoreSQLite:
		if dir := filepath.Dir(a.cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		s, err := sqlite.Open(a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.health.Register("sqlite", s)
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown RSIBOT_BAR_STORE %q (want sqlite, postgres or none)", a.cfg.BarStore)
	}
}

// newRunner builds a runner that alerts through the webhook when one is configured.
func (a *app) newRunner() *runner.Runner {
	var n notification.Notifier = notification.NewLogNotifier()
	if a.cfg.WebhookURL != "" {
		n = notification.NewWebhookNotifier(a.cfg.WebhookURL)
	}
	return runner.New(a.loader, a.metrics).WithNotifier(n)
}

func (a *app) watchBreaker(b *redis.Breaker) {
	b.OnStateChange = func(from, to redis.BreakerState) {
		a.metrics.CacheCircuitState.Set(float64(to))
		if to == redis.BreakerOpen {
			a.metrics.CacheCircuitTrips.Inc()
		}
		slog.Warn("[redis] circuit breaker state change", "from", from.String(), "to", to.String())
	}
}

// Close releases stores and caches in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("[rsibot] close error", "error", err)
		}
	}
	a.closers = nil
}
