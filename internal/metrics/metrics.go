package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backtest service.
type Metrics struct {
	registry *prometheus.Registry

	// Runs
	RunsTotal      *prometheus.CounterVec // labels: status=ok|invalid|failed
	RunDuration    prometheus.Histogram
	TradesTotal    prometheus.Counter
	BarsSimulated  prometheus.Counter
	LastReturnPct  prometheus.Gauge
	ActiveWSClient prometheus.Gauge

	// Data loading
	BarsLoadedTotal *prometheus.CounterVec // labels: source=cache|upstream|archive
	FetchDuration   prometheus.Histogram
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter

	// Circuit breaker (0=closed, 1=open, 2=half-open)
	CacheCircuitState prometheus.Gauge
	CacheCircuitTrips prometheus.Counter
}

// NewMetrics registers and returns all metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsibot_runs_total",
			Help: "Backtest runs by outcome",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsibot_run_duration_seconds",
			Help:    "Wall time of a full run (load + compute + simulate)",
			Buckets: prometheus.DefBuckets,
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsibot_trades_opened_total",
			Help: "Positions opened across all runs",
		}),
		BarsSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsibot_bars_simulated_total",
			Help: "Bars stepped through the simulator",
		}),
		LastReturnPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsibot_last_total_return_pct",
			Help: "Total return of the most recent successful run",
		}),
		ActiveWSClient: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsibot_ws_clients",
			Help: "Connected dashboard WebSocket clients",
		}),

		BarsLoadedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rsibot_bars_loaded_total",
			Help: "Bars loaded by source",
		}, []string{"source"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rsibot_upstream_fetch_duration_seconds",
			Help:    "Upstream market data fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsibot_cache_hits_total",
			Help: "Series cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsibot_cache_misses_total",
			Help: "Series cache misses (including cache errors)",
		}),

		CacheCircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rsibot_cache_circuit_breaker_state",
			Help: "Redis cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CacheCircuitTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rsibot_cache_circuit_breaker_trips_total",
			Help: "Times the Redis cache circuit breaker tripped open",
		}),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.TradesTotal,
		m.BarsSimulated,
		m.LastReturnPct,
		m.ActiveWSClient,
		m.BarsLoadedTotal,
		m.FetchDuration,
		m.CacheHits,
		m.CacheMisses,
		m.CacheCircuitState,
		m.CacheCircuitTrips,
	)

	return m
}

// Registry exposes the private registry (for tests and extra collectors).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Pinger is anything with a liveness probe (Redis cache, SQL archive).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the service health.
type HealthStatus struct {
	mu sync.RWMutex

	deps map[string]Pinger

	DepsOK      map[string]bool    `json:"deps_ok"`
	LatencyMs   map[string]float64 `json:"latency_ms"`
	LastCheckAt time.Time          `json:"last_check_at"`
	StartedAt   time.Time          `json:"started_at"`
}

// NewHealthStatus returns a health status with no dependencies.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		deps:      make(map[string]Pinger),
		DepsOK:    make(map[string]bool),
		LatencyMs: make(map[string]float64),
		StartedAt: time.Now(),
	}
}

// Register adds a named dependency to probe. Unprobed deps count as healthy.
func (h *HealthStatus) Register(name string, p Pinger) {
	h.mu.Lock()
	h.deps[name] = p
	h.DepsOK[name] = true
	h.mu.Unlock()
}

// Check pings every dependency and records latency + health.
func (h *HealthStatus) Check(ctx context.Context) {
	h.mu.RLock()
	deps := make(map[string]Pinger, len(h.deps))
	for k, v := range h.deps {
		deps[k] = v
	}
	h.mu.RUnlock()

	for name, p := range deps {
		start := time.Now()
		err := p.Ping(ctx)
		latency := time.Since(start)

		h.mu.Lock()
		h.DepsOK[name] = err == nil
		h.LatencyMs[name] = float64(latency.Microseconds()) / 1000.0
		h.LastCheckAt = time.Now()
		h.mu.Unlock()
	}
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.Check(probeCtx)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// All deps are optional: a failing one only degrades the service.
	overallStatus := "healthy"
	for _, ok := range h.DepsOK {
		if !ok {
			overallStatus = "degraded"
		}
	}

	status := struct {
		Status      string             `json:"status"`
		Uptime      string             `json:"uptime"`
		DepsOK      map[string]bool    `json:"deps_ok"`
		LatencyMs   map[string]float64 `json:"latency_ms"`
		LastCheckAt string             `json:"last_check_at"`
	}{
		Status:      overallStatus,
		Uptime:      time.Since(h.StartedAt).Round(time.Second).String(),
		DepsOK:      h.DepsOK,
		LatencyMs:   h.LatencyMs,
		LastCheckAt: h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
