package runner

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"rsibot/config"
	"rsibot/internal/logger"
	"rsibot/internal/marketdata/loader"
	"rsibot/internal/metrics"
	"rsibot/internal/model"
	"rsibot/internal/notification"
)

type recordingNotifier struct {
	alerts []notification.Alert
	err    error
}

func (n *recordingNotifier) Send(ctx context.Context, a notification.Alert) error {
	n.alerts = append(n.alerts, a)
	return n.err
}

type fakeLoader struct {
	bars model.PriceSeries
	err  error
	got  model.BarRequest
}

func (f *fakeLoader) Load(ctx context.Context, req model.BarRequest) (model.PriceSeries, loader.Origin, error) {
	f.got = req
	return f.bars, loader.OriginUpstream, f.err
}

func hourly(closes ...float64) model.PriceSeries {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(model.PriceSeries, len(closes))
	for i, c := range closes {
		out[i] = model.PriceBar{TS: t0.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func testParams() config.Params {
	p := config.DefaultParams(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	p.Start = "2024-01-01"
	p.End = "2024-01-02"
	p.RSIPeriod = 5
	p.StopPips = 200
	return p
}

func assertClose(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s: got %.8f, want %.8f", label, got, want)
	}
}

// Six falling closes push RSI(5) to 0 at index 5 (entry at 1.05); the rally
// lifts it above 70 at 1.11 (index 11) for a signal exit.
func TestRun_DeclineThenRally(t *testing.T) {
	fl := &fakeLoader{bars: hourly(1.10, 1.09, 1.08, 1.07, 1.06, 1.05, 1.06, 1.07, 1.08, 1.09, 1.10, 1.11, 1.12)}
	m := metrics.NewMetrics()
	r := New(fl, m)

	ctx := logger.WithRunID(context.Background(), "run-1")
	rep, err := r.Run(ctx, testParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rep.RunID != "run-1" {
		t.Errorf("run id = %q, want run-1", rep.RunID)
	}
	if fl.got.Symbol != "EURUSD=X" || fl.got.Interval != "60m" {
		t.Errorf("unexpected request %+v", fl.got)
	}
	if rep.Bars != 13 || rep.Origin != loader.OriginUpstream {
		t.Errorf("bars=%d origin=%s", rep.Bars, rep.Origin)
	}

	if len(rep.Trades) != 2 {
		t.Fatalf("expected open+close, got %+v", rep.Trades)
	}
	open, cl := rep.Trades[0], rep.Trades[1]
	if open.Kind != model.TradeOpen || open.Index != 5 {
		t.Errorf("open = %+v", open)
	}
	assertClose(t, "units", open.Units, 5000)
	if cl.Kind != model.TradeClose || cl.Index != 11 || cl.Reason != model.ExitSignal {
		t.Errorf("close = %+v", cl)
	}
	assertClose(t, "profit", cl.Profit, 300)
	assertClose(t, "final capital", rep.Summary.FinalCapital, 10300)
	assertClose(t, "return pct", rep.Summary.TotalReturnPct, 3)
	if rep.Summary.TradeCount != 1 || rep.OpenPosition != nil {
		t.Errorf("summary = %+v open=%v", rep.Summary, rep.OpenPosition)
	}

	if len(rep.Charts.Closes) != 13 || len(rep.Charts.RSI) != 13 || len(rep.Charts.Capital) != 13 {
		t.Errorf("chart series misaligned")
	}
	if rep.Charts.RSI[4] != nil || rep.Charts.RSI[5] == nil {
		t.Error("RSI must be undefined before index 5 and defined from it")
	}

	if v := testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")); v != 1 {
		t.Errorf("runs ok = %v", v)
	}
	if v := testutil.ToFloat64(m.TradesTotal); v != 1 {
		t.Errorf("trades = %v", v)
	}
	if v := testutil.ToFloat64(m.BarsSimulated); v != 13 {
		t.Errorf("bars simulated = %v", v)
	}
	assertClose(t, "last return gauge", testutil.ToFloat64(m.LastReturnPct), 3)
}

func TestRun_GeneratesRunID(t *testing.T) {
	r := New(&fakeLoader{bars: hourly(1.1, 1.1, 1.1, 1.1, 1.1, 1.1, 1.1)}, metrics.NewMetrics())
	rep, err := r.Run(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.RunID) != 36 {
		t.Errorf("expected uuid run id, got %q", rep.RunID)
	}
	if len(rep.Trades) != 0 {
		t.Errorf("flat prices (RSI 50) must not trade, got %+v", rep.Trades)
	}
}

func TestRun_InvalidParams(t *testing.T) {
	fl := &fakeLoader{bars: hourly(1, 2, 3)}
	m := metrics.NewMetrics()
	p := testParams()
	p.RSIPeriod = 2

	_, err := New(fl, m).Run(context.Background(), p)
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fl.got.Symbol != "" {
		t.Error("loader must not be called for invalid params")
	}
	if v := testutil.ToFloat64(m.RunsTotal.WithLabelValues("invalid")); v != 1 {
		t.Errorf("runs invalid = %v", v)
	}
}

func TestRun_LoadFailure(t *testing.T) {
	m := metrics.NewMetrics()
	_, err := New(&fakeLoader{err: loader.ErrNoBars}, m).Run(context.Background(), testParams())
	if !errors.Is(err, loader.ErrNoBars) {
		t.Fatalf("expected ErrNoBars, got %v", err)
	}
	if v := testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")); v != 1 {
		t.Errorf("runs failed = %v", v)
	}
}

func TestRun_Notifies(t *testing.T) {
	n := &recordingNotifier{err: errors.New("webhook down")}
	r := New(&fakeLoader{bars: hourly(1.1, 1.1, 1.1, 1.1, 1.1, 1.1)}, metrics.NewMetrics()).WithNotifier(n)

	if _, err := r.Run(context.Background(), testParams()); err != nil {
		t.Fatalf("notification failure must not fail the run: %v", err)
	}
	if len(n.alerts) != 1 || n.alerts[0].Level != notification.AlertInfo || n.alerts[0].RunID == "" {
		t.Fatalf("alerts = %+v", n.alerts)
	}

	r = New(&fakeLoader{err: loader.ErrNoBars}, metrics.NewMetrics()).WithNotifier(n)
	r.Run(context.Background(), testParams())
	if len(n.alerts) != 2 || n.alerts[1].Level != notification.AlertWarning {
		t.Errorf("expected failure alert, got %+v", n.alerts)
	}

	p := testParams()
	p.RSIPeriod = 99
	r.Run(context.Background(), p)
	if len(n.alerts) != 2 {
		t.Error("rejected params must not notify")
	}
}
