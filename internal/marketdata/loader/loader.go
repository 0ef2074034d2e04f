// Package loader resolves a bar request against the series cache, the
// upstream source and the local archive.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rsibot/internal/logger"
	"rsibot/internal/metrics"
	"rsibot/internal/model"
)

// Origin names where a loaded series came from.
type Origin string

const (
	OriginCache    Origin = "cache"
	OriginUpstream Origin = "upstream"
	OriginArchive  Origin = "archive"
)

// ErrNoBars is returned when no source holds bars for the requested window.
var ErrNoBars = errors.New("no bars for requested window")

// SourceError wraps an upstream failure that the archive could not cover.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return "market data source: " + e.Err.Error() }
func (e *SourceError) Unwrap() error { return e.Err }

// Loader composes cache → source → archive. Cache and Store are optional.
type Loader struct {
	Source  model.BarSource
	Store   model.BarStore
	Cache   model.SeriesCache
	Metrics *metrics.Metrics

	// Offline serves only from the archive.
	Offline bool
}

// Load returns a validated series for req and where it came from.
func (l *Loader) Load(ctx context.Context, req model.BarRequest) (model.PriceSeries, Origin, error) {
	log := slog.With(logger.LogWithRun(ctx)...).With("component", "loader", "key", req.Key())

	if l.Offline {
		bars, err := l.readArchive(ctx, req)
		if err != nil {
			return nil, "", err
		}
		return l.finish(bars, OriginArchive)
	}

	if bars, ok := l.fromCache(ctx, log, req); ok {
		return l.finish(bars, OriginCache)
	}

	start := time.Now()
	bars, err := l.Source.FetchBars(ctx, req)
	l.Metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if l.Store == nil {
			return nil, "", &SourceError{Err: err}
		}
		archived, aerr := l.Store.ReadBars(ctx, req)
		if aerr != nil || len(archived) == 0 {
			log.Warn("[loader] source failed and archive has no bars", "error", err, "archive_error", aerr)
			return nil, "", &SourceError{Err: err}
		}
		log.Warn("[loader] source failed, serving archived bars", "error", err, "bars", len(archived))
		return l.finish(archived, OriginArchive)
	}
	if len(bars) == 0 {
		return nil, "", fmt.Errorf("%s %s: %w", req.Symbol, req.Interval, ErrNoBars)
	}
	if err := bars.Validate(); err != nil {
		return nil, "", err
	}

	if l.Store != nil {
		if err := l.Store.SaveBars(ctx, req.Symbol, req.Interval, bars); err != nil {
			log.Warn("[loader] archive save failed", "error", err)
		}
	}
	if l.Cache != nil {
		if err := l.Cache.Set(ctx, req.Key(), bars); err != nil {
			log.Warn("[loader] cache set failed", "error", err)
		}
	}
	return l.finish(bars, OriginUpstream)
}

func (l *Loader) fromCache(ctx context.Context, log *slog.Logger, req model.BarRequest) (model.PriceSeries, bool) {
	if l.Cache == nil {
		return nil, false
	}
	bars, hit, err := l.Cache.Get(ctx, req.Key())
	if err != nil {
		log.Warn("[loader] cache get failed", "error", err)
	}
	if err != nil || !hit || len(bars) == 0 {
		l.Metrics.CacheMisses.Inc()
		return nil, false
	}
	l.Metrics.CacheHits.Inc()
	return bars, true
}

func (l *Loader) readArchive(ctx context.Context, req model.BarRequest) (model.PriceSeries, error) {
	if l.Store == nil {
		return nil, fmt.Errorf("offline mode without a bar archive: %w", ErrNoBars)
	}
	bars, err := l.Store.ReadBars(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s (archive): %w", req.Symbol, req.Interval, ErrNoBars)
	}
	return bars, nil
}

func (l *Loader) finish(bars model.PriceSeries, origin Origin) (model.PriceSeries, Origin, error) {
	if err := bars.Validate(); err != nil {
		return nil, "", err
	}
	l.Metrics.BarsLoadedTotal.WithLabelValues(string(origin)).Add(float64(len(bars)))
	return bars, origin, nil
}
