// Package runner executes one user-triggered backtest: validate, load bars,
// compute RSI, simulate, summarize.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rsibot/config"
	"rsibot/internal/backtest"
	"rsibot/internal/indicator"
	"rsibot/internal/logger"
	"rsibot/internal/marketdata/loader"
	"rsibot/internal/metrics"
	"rsibot/internal/model"
	"rsibot/internal/notification"
)

// BarLoader resolves a bar request to a series.
type BarLoader interface {
	Load(ctx context.Context, req model.BarRequest) (model.PriceSeries, loader.Origin, error)
}

// Report is the complete outcome of one run.
type Report struct {
	RunID        string             `json:"run_id"`
	Params       config.Params      `json:"params"`
	Origin       loader.Origin      `json:"origin"`
	Bars         int                `json:"bars"`
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	Summary      backtest.Summary   `json:"summary"`
	Trades       []model.TradeEvent `json:"trades"`
	OpenPosition *model.Position    `json:"open_position,omitempty"`
	Charts       backtest.Charts    `json:"charts"`
	DurationMs   float64            `json:"duration_ms"`
}

// Runner runs backtests. It holds no per-run state and is safe for concurrent use.
type Runner struct {
	loader   BarLoader
	metrics  *metrics.Metrics
	notifier notification.Notifier
}

// New creates a Runner.
func New(l BarLoader, m *metrics.Metrics) *Runner {
	return &Runner{loader: l, metrics: m}
}

// WithNotifier sends an alert after every completed or failed run.
func (r *Runner) WithNotifier(n notification.Notifier) *Runner {
	r.notifier = n
	return r
}

// Run executes one backtest for p. A run ID is taken from ctx or generated.
// On any error no partial report is returned.
func (r *Runner) Run(ctx context.Context, p config.Params) (*Report, error) {
	start := time.Now()
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = logger.NewRunID()
		ctx = logger.WithRunID(ctx, runID)
	}
	log := slog.With(logger.LogWithRun(ctx)...).With("component", "runner")

	if err := p.Validate(); err != nil {
		r.metrics.RunsTotal.WithLabelValues("invalid").Inc()
		log.Info("[runner] rejected params", "error", err)
		return nil, err
	}

	req, err := p.BarRequest()
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	bars, origin, err := r.loader.Load(ctx, req)
	if err != nil {
		r.fail(ctx, log, p, "load", err)
		return nil, fmt.Errorf("load bars: %w", err)
	}

	ind, err := indicator.ComputeRSI(bars.Closes(), p.RSIPeriod)
	if err != nil {
		r.fail(ctx, log, p, "indicator", err)
		return nil, fmt.Errorf("compute rsi: %w", err)
	}

	cfg := p.BacktestConfig()
	res, err := backtest.Run(bars, ind, cfg)
	if err != nil {
		r.fail(ctx, log, p, "simulate", err)
		return nil, fmt.Errorf("simulate: %w", err)
	}

	summary := backtest.Summarize(res, bars[len(bars)-1].Close)
	rep := &Report{
		RunID:   runID,
		Params:  p,
		Origin:  origin,
		Bars:    len(bars),
		From:    bars[0].TS,
		To:      bars[len(bars)-1].TS,
		Summary: summary,
		Trades:  res.Trades,
		Charts:  backtest.BuildCharts(bars, ind, res, cfg),
	}
	if res.HasOpenPosition {
		pos := res.OpenPosition
		rep.OpenPosition = &pos
	}

	elapsed := time.Since(start)
	rep.DurationMs = float64(elapsed.Microseconds()) / 1000.0

	r.metrics.RunsTotal.WithLabelValues("ok").Inc()
	r.metrics.RunDuration.Observe(elapsed.Seconds())
	r.metrics.TradesTotal.Add(float64(summary.TradeCount))
	r.metrics.BarsSimulated.Add(float64(len(bars)))
	r.metrics.LastReturnPct.Set(summary.TotalReturnPct)

	log.Info("[runner] run complete",
		"symbol", p.Symbol,
		"origin", origin,
		"bars", len(bars),
		"trades", summary.TradeCount,
		"final_capital", summary.FinalCapital,
		"return_pct", summary.TotalReturnPct,
		"took", elapsed,
	)

	r.notify(ctx, log, notification.Alert{
		Level: notification.AlertInfo,
		RunID: runID,
		Title: p.Symbol + " backtest complete",
		Message: fmt.Sprintf("%s → %s: final capital %.2f (%.2f%%), %d trades",
			p.Start, p.End, summary.FinalCapital, summary.TotalReturnPct, summary.TradeCount),
		Fields: map[string]any{
			"bars":             len(bars),
			"trades":           summary.TradeCount,
			"total_return_pct": summary.TotalReturnPct,
			"max_drawdown_pct": summary.MaxDrawdownPct,
		},
	})
	return rep, nil
}

func (r *Runner) fail(ctx context.Context, log *slog.Logger, p config.Params, stage string, err error) {
	r.metrics.RunsTotal.WithLabelValues("failed").Inc()
	log.Error("[runner] run failed", "stage", stage, "error", err)
	r.notify(ctx, log, notification.Alert{
		Level:   notification.AlertWarning,
		RunID:   logger.RunID(ctx),
		Title:   p.Symbol + " backtest failed",
		Message: stage + ": " + err.Error(),
	})
}

// notify delivers an alert. Delivery failures are logged and never fail the run.
func (r *Runner) notify(ctx context.Context, log *slog.Logger, alert notification.Alert) {
	if r.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.notifier.Send(nctx, alert); err != nil {
		log.Warn("[runner] notification failed", "error", err)
	}
}
