// Package marketdata implements the byte-level data collaborators spec
// §6.2 treats as given: a historical OHLCV fetcher, an RSS/news reader
// feeding the external Spec Producer, and a live tick feed consumed by
// the Orchestrator's trading loop. All three are read-only; non-goals
// forbid real order placement regardless of what this package observes.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/amirphl/hybrid-trader/internal/errs"
	"github.com/amirphl/hybrid-trader/internal/obslog"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
	"github.com/amirphl/hybrid-trader/internal/tfutils"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const defaultChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// HistoricalFetcher implements orchestrator.HistoryFetcher against a
// Yahoo-style chart endpoint (spec §6.2): a chunked HTTP GET with
// exponential backoff and jitter, grounded on the teacher's
// downloadCandlesFromPublicAPIWithRetry (internal/backtest/backtest.go)
// but generalized from the Binance klines endpoint to the
// period/interval/range query spec.md describes, and from a hand-rolled
// retry loop to golang.org/x/time/rate for outbound pacing plus
// sony/gobreaker for the circuit itself.
type HistoricalFetcher struct {
	BaseURL    string
	Interval   string // Yahoo-style interval string, e.g. "1d"
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	breaker *gobreaker.CircuitBreaker
}

// NewHistoricalFetcher builds a fetcher with the pack's conventional
// defaults: daily bars, 5 requests/sec, 3 retries, breaker trips after
// 5 consecutive failures.
func NewHistoricalFetcher() *HistoricalFetcher {
	f := &HistoricalFetcher{
		BaseURL:    defaultChartBaseURL,
		Interval:   "1d",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "marketdata-historical",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return f
}

// SetTimeframe points subsequent Fetch calls at the interval a
// compiled StrategySpec requests, via tfutils.YahooInterval. The
// Orchestrator calls this (through the optional TimeframeSetter
// interface it declares) right after compiling a Spec and before
// fetching history for it, so escalating through historyRanges always
// pulls bars at the Spec's own timeframe rather than a fixed default.
// Unknown timeframes are left as whatever Interval already holds.
func (f *HistoricalFetcher) SetTimeframe(tf sttypes.Timeframe) {
	if interval, err := tfutils.YahooInterval(tf); err == nil {
		f.Interval = interval
	}
}

// Fetch implements orchestrator.HistoryFetcher. rng is one of the Yahoo-
// style ranges the Orchestrator's history escalation tries in order:
// "3mo", "6mo", "1y", "2y" (spec §4.5 Defaults).
func (f *HistoricalFetcher) Fetch(ctx context.Context, ticker, rng string) ([]sttypes.Bar, error) {
	result, err := f.breaker.Execute(func() (any, error) {
		return f.fetchWithRetry(ctx, ticker, rng)
	})
	if err != nil {
		return nil, errs.Wrap(errs.DataFetchError, "marketdata.HistoricalFetcher.Fetch", err)
	}
	return result.([]sttypes.Bar), nil
}

func (f *HistoricalFetcher) fetchWithRetry(ctx context.Context, ticker, rng string) ([]sttypes.Bar, error) {
	reqURL := f.buildURL(ticker, rng)
	log := obslog.For("marketdata")

	var lastErr error
	delay := f.BaseDelay
	for attempt := 0; attempt < f.MaxRetries; attempt++ {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		bars, err := f.doRequest(ctx, reqURL, ticker)
		if err == nil {
			return bars, nil
		}
		lastErr = err
		log.WithError(err).WithField("attempt", attempt+1).WithField("ticker", ticker).Warn("historical fetch attempt failed")
		if attempt == f.MaxRetries-1 {
			break
		}
		jitter := time.Duration(rand.Int63n(int64(delay)/5 + 1))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
		if delay > f.MaxDelay {
			delay = f.MaxDelay
		}
	}
	return nil, fmt.Errorf("historical fetch for %s failed after %d attempts: %w", ticker, f.MaxRetries, lastErr)
}

func (f *HistoricalFetcher) buildURL(ticker, rng string) string {
	q := url.Values{}
	q.Set("interval", f.Interval)
	q.Set("range", rng)
	return fmt.Sprintf("%s/%s?%s", f.BaseURL, url.PathEscape(ticker), q.Encode())
}

// yahooChartResponse mirrors the provider's chart?... JSON shape (spec
// §6.2): timestamp[] plus parallel open/high/low/close/volume arrays.
type yahooChartResponse struct {
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
	} `json:"chart"`
}

func (f *HistoricalFetcher) doRequest(ctx context.Context, reqURL, ticker string) ([]sttypes.Bar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chart API status %d: %s", resp.StatusCode, string(body))
	}

	var parsed yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding chart response: %w", err)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart API returned no data for %s", ticker)
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]sttypes.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}
		// Bars with any null field are dropped (spec §6.2).
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		bar := sttypes.Bar{
			Ticker:      ticker,
			TimestampMs: ts * 1000,
			Open:        *quote.Open[i],
			High:        *quote.High[i],
			Low:         *quote.Low[i],
			Close:       *quote.Close[i],
			Volume:      *quote.Volume[i],
		}
		if bar.Validate() != nil {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
