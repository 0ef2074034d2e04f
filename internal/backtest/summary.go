package backtest

import "rsibot/internal/model"

// Summary rolls up the headline numbers shown to the user.
type Summary struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturnPct float64 `json:"total_return_pct"`
	TradeCount     int     `json:"trade_count"` // "open" events, i.e. attempted entries
	ClosedTrades   int     `json:"closed_trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	Breakeven      int     `json:"breakeven"`
	WinRatePct     float64 `json:"win_rate_pct"`
	RealizedPnL    float64 `json:"realized_pnl"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	OpenAtEnd      bool    `json:"open_at_end"`
	UnrealizedPnL  float64 `json:"unrealized_pnl"`
}

// Summarize computes the Summary of res. lastClose values an open position;
// pass the close of the final bar.
func Summarize(res *model.BacktestResult, lastClose float64) Summary {
	s := Summary{
		InitialCapital: res.InitialCapital,
		FinalCapital:   res.FinalCapital,
		TotalReturnPct: res.TotalReturn() * 100,
		TradeCount:     res.Opens(),
		OpenAtEnd:      res.HasOpenPosition,
	}

	for _, t := range res.Trades {
		if t.Kind != model.TradeClose {
			continue
		}
		s.ClosedTrades++
		s.RealizedPnL += t.Profit
		switch {
		case t.Profit > 0:
			s.Wins++
		case t.Profit < 0:
			s.Losses++
		default:
			s.Breakeven++
		}
	}
	// Breakeven closes count toward the denominator but not as wins.
	if s.ClosedTrades > 0 {
		s.WinRatePct = 100 * float64(s.Wins) / float64(s.ClosedTrades)
	}

	s.MaxDrawdownPct = maxDrawdownPct(res.Equity, res.FinalCapital)

	if res.HasOpenPosition {
		s.UnrealizedPnL = res.OpenPosition.UnrealizedPnL(lastClose)
	}
	return s
}

// maxDrawdownPct is the largest peak-to-trough fall of the equity curve,
// including the final capital, as a percentage of the peak.
func maxDrawdownPct(equity []model.EquitySnapshot, final float64) float64 {
	peak, maxDD := 0.0, 0.0
	visit := func(v float64) {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	for _, e := range equity {
		visit(e.Capital)
	}
	visit(final)
	return maxDD
}
