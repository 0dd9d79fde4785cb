// Package binance fetches USDⓈ-M futures klines over REST.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quantbt/mabot/market"
)

const (
	// DefaultBaseURL is the USDⓈ-M futures REST endpoint.
	DefaultBaseURL = "https://fapi.binance.com"

	// pageLimit is the venue's maximum klines per request.
	pageLimit = 1500
)

type Client struct {
	BaseURL string
	HTTP    *http.Client

	// Pause between pages to stay under the venue's request weight.
	Throttle time.Duration
}

func NewClient() *Client {
	return &Client{
		BaseURL:  DefaultBaseURL,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Throttle: 250 * time.Millisecond,
	}
}

type KlinesOptions struct {
	Symbol   string // e.g. BTCUSDT
	Interval string // e.g. 5m, 15m, 1h
	From     time.Time
	To       time.Time // exclusive; zero means "now"

	// Progress, when set, is called after each page with the cumulative
	// count and the open time of the last candle fetched.
	Progress func(total int, last time.Time)
}

// Klines pages through the klines endpoint from From to To, advancing the
// cursor past the last open time returned, and returns the full series.
func (c *Client) Klines(ctx context.Context, opts KlinesOptions) (*market.Series, error) {
	if opts.Symbol == "" {
		return nil, fmt.Errorf("binance: missing symbol")
	}
	if opts.Interval == "" {
		return nil, fmt.Errorf("binance: missing interval")
	}
	interval, err := ParseInterval(opts.Interval)
	if err != nil {
		return nil, err
	}

	end := opts.To
	if end.IsZero() {
		end = time.Now().UTC()
	}

	var candles []market.Candle
	since := opts.From.UnixMilli()
	endMs := end.UnixMilli()

	for since < endMs {
		page, err := c.fetchPage(ctx, opts.Symbol, opts.Interval, since, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		last := page[len(page)-1].OpenTime
		for _, k := range page {
			if k.OpenTime.UnixMilli() < endMs {
				candles = append(candles, k)
			}
		}
		since = last.UnixMilli() + 1

		if opts.Progress != nil {
			opts.Progress(len(candles), last)
		}
		if len(page) < pageLimit {
			break
		}
		if c.Throttle > 0 {
			select {
			case <-time.After(c.Throttle):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return market.NewSeries(opts.Symbol, interval, candles)
}

func (c *Client) fetchPage(ctx context.Context, symbol, interval string, since, end int64) ([]market.Candle, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/fapi/v1/klines"

	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(since, 10))
	q.Set("endTime", strconv.FormatInt(end, 10))
	q.Set("limit", strconv.Itoa(pageLimit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("binance klines http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	// Each kline is a mixed array:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var raw [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	out := make([]market.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("binance: bad kline open time: %w", err)
		}
		c := market.Candle{OpenTime: time.UnixMilli(openMs).UTC()}

		fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		for i, dst := range fields {
			var s string
			if err := json.Unmarshal(row[i+1], &s); err != nil {
				return nil, fmt.Errorf("binance: bad kline field %d: %w", i+1, err)
			}
			if *dst, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("binance: bad kline price %q: %w", s, err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseInterval maps a venue interval string to a duration.
func ParseInterval(s string) (time.Duration, error) {
	switch s {
	case "1m":
		return time.Minute, nil
	case "3m":
		return 3 * time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("binance: unsupported interval %q", s)
}
