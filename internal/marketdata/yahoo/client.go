// Package yahoo fetches historical OHLCV bars from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rsibot/internal/model"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client is a minimal Yahoo Finance chart API client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client. An empty base selects the public endpoint.
func New(base string, timeout time.Duration) *Client {
	if base == "" {
		base = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: base,
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 15 * time.Second}).DialContext,
				MaxIdleConns:          16,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

func (c *Client) Name() string { return "yahoo" }

// chartResponse mirrors the subset of /v8/finance/chart we consume.
// Quote columns use pointers because Yahoo emits null for missing samples.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) buildURL(req model.BarRequest) (string, error) {
	u, err := url.Parse(c.BaseURL + "/v8/finance/chart/" + url.PathEscape(req.Symbol))
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	q := u.Query()
	q.Set("period1", strconv.FormatInt(req.From.Unix(), 10))
	q.Set("period2", strconv.FormatInt(req.To.Unix(), 10))
	q.Set("interval", req.Interval)
	q.Set("includePrePost", "false")
	q.Set("events", "history")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchBars downloads bars for req. Rows with any missing OHLCV field are
// dropped, as are rows outside [From, To) or out of order.
func (c *Client) FetchBars(ctx context.Context, req model.BarRequest) (model.PriceSeries, error) {
	target, err := c.buildURL(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "rsibot/1.0")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("yahoo GET %s: %w", req.Symbol, err)
	}
	defer resp.Body.Close()

	var body chartResponse
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &body) == nil && body.Chart.Error != nil {
			return nil, fmt.Errorf("yahoo %s: status %d: %s: %s", req.Symbol, resp.StatusCode, body.Chart.Error.Code, body.Chart.Error.Description)
		}
		return nil, fmt.Errorf("yahoo %s: status %d: %s", req.Symbol, resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if body.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s", req.Symbol, body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if len(body.Chart.Result) == 0 || len(body.Chart.Result[0].Indicators.Quote) == 0 {
		return model.PriceSeries{}, nil
	}

	res := body.Chart.Result[0]
	q := res.Indicators.Quote[0]
	out := make(model.PriceSeries, 0, len(res.Timestamp))
	dropped := 0
	for i, ts := range res.Timestamp {
		o, h, l, cl, v := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i), at(q.Volume, i)
		if o == nil || h == nil || l == nil || cl == nil || v == nil {
			dropped++
			continue
		}
		t := time.Unix(ts, 0).UTC()
		if t.Before(req.From) || !t.Before(req.To) {
			dropped++
			continue
		}
		if n := len(out); n > 0 && !t.After(out[n-1].TS) {
			dropped++
			continue
		}
		out = append(out, model.PriceBar{TS: t, Open: *o, High: *h, Low: *l, Close: *cl, Volume: *v})
	}

	slog.Debug("[yahoo] fetched bars", "symbol", req.Symbol, "interval", req.Interval, "bars", len(out), "dropped", dropped)
	return out, nil
}

func at(col []*float64, i int) *float64 {
	if i >= len(col) {
		return nil
	}
	return col[i]
}
