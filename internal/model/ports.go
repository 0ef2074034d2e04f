package model

import (
	"context"
	"strconv"
	"time"
)

// ── Data Port Interfaces ──
// These interfaces decouple the runner from concrete data backends
// (Yahoo, SQLite, Postgres, Redis).

// BarRequest identifies a window of bars for one symbol and sampling interval.
type BarRequest struct {
	Symbol   string    `json:"symbol"`   // e.g. "EURUSD=X"
	Interval string    `json:"interval"` // e.g. "60m"
	From     time.Time `json:"from"`     // inclusive
	To       time.Time `json:"to"`       // exclusive
}

// Key returns a stable cache key: "bars:{symbol}:{interval}:{from}:{to}".
func (r BarRequest) Key() string {
	return "bars:" + r.Symbol + ":" + r.Interval + ":" +
		strconv.FormatInt(r.From.Unix(), 10) + ":" + strconv.FormatInt(r.To.Unix(), 10)
}

// BarSource fetches bars from an upstream market data provider.
type BarSource interface {
	FetchBars(ctx context.Context, req BarRequest) (PriceSeries, error)
}

// BarStore archives fetched bars for offline replay.
type BarStore interface {
	// SaveBars upserts bars for a symbol/interval.
	SaveBars(ctx context.Context, symbol, interval string, bars PriceSeries) error

	// ReadBars returns archived bars in [req.From, req.To) ordered by TS.
	ReadBars(ctx context.Context, req BarRequest) (PriceSeries, error)

	// Close releases underlying resources.
	Close() error
}

// SeriesCache is a short-lived cache of whole fetched series.
type SeriesCache interface {
	// Get returns the cached series and true on a hit.
	Get(ctx context.Context, key string) (PriceSeries, bool, error)

	// Set stores a series under key.
	Set(ctx context.Context, key string, bars PriceSeries) error
}
