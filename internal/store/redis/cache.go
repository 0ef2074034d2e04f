// Package redis caches fetched price series in Redis behind a circuit breaker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rsibot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultTTL         = 15 * time.Minute
	defaultMaxFailures = 3
	defaultCoolDown    = 30 * time.Second
)

// Config configures the series cache.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration
}

// Cache implements model.SeriesCache. Every Redis call goes through the breaker.
type Cache struct {
	client  *goredis.Client
	breaker *Breaker
	ttl     time.Duration
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker returns the circuit breaker so callers can observe state changes.
func (c *Cache) Breaker() *Breaker { return c.breaker }

// New creates a cache without contacting the server.
func New(cfg Config) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
	return &Cache{
		client:  client,
		breaker: NewBreaker(defaultMaxFailures, defaultCoolDown),
		ttl:     ttl,
	}
}

// Dial creates a cache and pings the server.
func Dial(ctx context.Context, cfg Config) (*Cache, error) {
	c := New(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.client.Ping(pingCtx).Err(); err != nil {
		c.client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	slog.Info("[redis] connected series cache", "addr", cfg.Addr, "ttl", c.ttl)
	return c, nil
}

// Get returns the cached series for key. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) (model.PriceSeries, bool, error) {
	var raw []byte
	err := c.breaker.Do(func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if raw == nil {
		return nil, false, nil
	}

	var bars model.PriceSeries
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return bars, true, nil
}

// Set stores bars under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, bars model.PriceSeries) error {
	data, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}
	err = c.breaker.Do(func() error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping implements metrics.Pinger.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
