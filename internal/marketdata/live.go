package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/hybrid-trader/internal/errs"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
	wallex "github.com/wallexchange/wallex-go"
)

// Tick is a single trade print from the live feed. Read-only market
// data (spec §6.2 DOMAIN); non-goals forbid real order placement, so
// LiveFeed is never wired to anything that submits orders.
type Tick struct {
	Ticker    string
	Price     float64
	Quantity  float64
	Timestamp time.Time
}

// LiveFeed polls Wallex for the most recent trade print per ticker,
// grounded on the teacher's WallexExchange.FetchLatestTick
// (internal/exchange/wallex.go), adapted to return the pipeline's own
// Tick/Bar shapes and to be wrapped by the Orchestrator's circuit
// breaker rather than carrying its own hand-rolled retry loop.
type LiveFeed struct {
	client *wallex.Client
}

func NewLiveFeed(apiKey string) *LiveFeed {
	return &LiveFeed{client: wallex.New(wallex.ClientOptions{APIKey: apiKey})}
}

// LatestTick fetches the most recent trade for ticker. Callers wanting
// a continuous feed poll this on their own cadence.
func (f *LiveFeed) LatestTick(ctx context.Context, ticker string) (Tick, error) {
	select {
	case <-ctx.Done():
		return Tick{}, ctx.Err()
	default:
	}

	trades, err := f.client.MarketTrades(ticker)
	if err != nil {
		return Tick{}, errs.Wrap(errs.DataFetchError, "marketdata.LiveFeed.LatestTick", err)
	}
	if len(trades) == 0 {
		return Tick{}, errs.New(errs.DataFetchError, "marketdata.LiveFeed.LatestTick", fmt.Sprintf("no trades for %s", ticker))
	}

	trade := trades[0]
	price, err := strconv.ParseFloat(string(trade.Price), 64)
	if err != nil {
		return Tick{}, errs.Wrap(errs.DataFetchError, "marketdata.LiveFeed.LatestTick", err)
	}
	qty, _ := strconv.ParseFloat(string(trade.Quantity), 64)

	return Tick{Ticker: ticker, Price: price, Quantity: qty, Timestamp: trade.Timestamp.UTC()}, nil
}

// LatestBar folds the most recent tick into a degenerate OHLC bar
// (open=high=low=close=price). The Orchestrator's trading loop polls
// this in TRADING mode.
func (f *LiveFeed) LatestBar(ctx context.Context, ticker string) (sttypes.Bar, error) {
	tick, err := f.LatestTick(ctx, ticker)
	if err != nil {
		return sttypes.Bar{}, err
	}
	return sttypes.Bar{
		Ticker:      ticker,
		TimestampMs: tick.Timestamp.UnixMilli(),
		Open:        tick.Price,
		High:        tick.Price,
		Low:         tick.Price,
		Close:       tick.Price,
		Volume:      tick.Quantity,
	}, nil
}
