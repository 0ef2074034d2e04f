package backtest

import (
	"time"

	"rsibot/internal/indicator"
	"rsibot/internal/model"
)

// Charts holds the time-aligned series the dashboard plots: price with the
// RSI and its two threshold bands, and capital over time.
type Charts struct {
	Timestamps []time.Time `json:"timestamps"`
	Closes     []float64   `json:"closes"`
	RSI        []*float64  `json:"rsi"` // nil where undefined
	BuyBand    float64     `json:"buy_band"`
	SellBand   float64     `json:"sell_band"`
	Capital    []float64   `json:"capital"`
	Buys       []int       `json:"buys"`  // indexes of open events
	Sells      []int       `json:"sells"` // indexes of close events
}

// BuildCharts aligns prices, indicator and equity for plotting.
func BuildCharts(prices model.PriceSeries, ind indicator.Series, res *model.BacktestResult, cfg Config) Charts {
	c := Charts{
		Timestamps: prices.Timestamps(),
		Closes:     prices.Closes(),
		RSI:        make([]*float64, len(ind)),
		BuyBand:    cfg.BuyThreshold,
		SellBand:   cfg.SellThreshold,
		Capital:    make([]float64, len(res.Equity)),
		Buys:       []int{},
		Sells:      []int{},
	}
	for i := range ind {
		if v, ok := ind.Defined(i); ok {
			c.RSI[i] = &v
		}
	}
	for i, e := range res.Equity {
		c.Capital[i] = e.Capital
	}
	for _, t := range res.Trades {
		if t.Kind == model.TradeOpen {
			c.Buys = append(c.Buys, t.Index)
		} else {
			c.Sells = append(c.Sells, t.Index)
		}
	}
	return c
}
