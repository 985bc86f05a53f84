package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/amirphl/hybrid-trader/internal/events"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

const schema = `
CREATE TABLE IF NOT EXISTS specs (
	ticker TEXT PRIMARY KEY,
	raw_json JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS bars (
	ticker TEXT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	open DOUBLE PRECISION NOT NULL,
	high DOUBLE PRECISION NOT NULL,
	low DOUBLE PRECISION NOT NULL,
	close DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (ticker, timestamp_ms)
);
CREATE TABLE IF NOT EXISTS trades (
	id BIGSERIAL PRIMARY KEY,
	ticker TEXT NOT NULL,
	action TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	quantity DOUBLE PRECISION NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	pnl DOUBLE PRECISION NOT NULL,
	commission DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL,
	mae DOUBLE PRECISION NOT NULL,
	mfe DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_ticker_idx ON trades (ticker, timestamp_ms);
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	level TEXT NOT NULL,
	kind TEXT NOT NULL,
	message TEXT NOT NULL,
	fields_json JSONB
);
CREATE INDEX IF NOT EXISTS events_ts_idx ON events (ts);
`

// PostgresStorage persists Specs, bars, trades, and events, grounded on
// the teacher's db.Default (internal/db/postgres.go): same
// executeWithTransaction-per-call shape and ON CONFLICT upsert style,
// narrowed to this pipeline's four tables instead of the teacher's
// candle/order/orderbook/tick/position schema.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgres opens connStr and applies the schema (CREATE TABLE IF NOT
// EXISTS, idempotent on every startup — no separate migration step).
func NewPostgres(connStr string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("storage: opening postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: pinging postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: applying schema: %w", err)
	}
	return &PostgresStorage{db: db}, nil
}

func (p *PostgresStorage) Close() error { return p.db.Close() }

func (p *PostgresStorage) SaveSpec(ctx context.Context, raw spec.RawSpec) error {
	payload, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("storage: marshaling spec for %s: %w", raw.Ticker, err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO specs (ticker, raw_json, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ticker) DO UPDATE SET raw_json = EXCLUDED.raw_json, updated_at = now()`,
		raw.Ticker, payload)
	if err != nil {
		return fmt.Errorf("storage: saving spec for %s: %w", raw.Ticker, err)
	}
	return nil
}

func (p *PostgresStorage) LoadSpec(ctx context.Context, ticker string) (*spec.RawSpec, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT raw_json FROM specs WHERE ticker = $1`, ticker).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: loading spec for %s: %w", ticker, err)
	}
	var raw spec.RawSpec
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("storage: unmarshaling spec for %s: %w", ticker, err)
	}
	return &raw, nil
}

func (p *PostgresStorage) SaveBars(ctx context.Context, ticker string, bars []sttypes.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: beginning bars transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (ticker, timestamp_ms, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, timestamp_ms) DO UPDATE SET
			open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
			close=EXCLUDED.close, volume=EXCLUDED.volume`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("storage: preparing bars insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, b.TimestampMs, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("storage: saving bar at index %d for %s: %w", i, ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: committing bars transaction: %w", err)
	}
	return nil
}

func (p *PostgresStorage) LoadBars(ctx context.Context, ticker string, since time.Time) ([]sttypes.Bar, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT timestamp_ms, open, high, low, close, volume FROM bars
		WHERE ticker = $1 AND timestamp_ms >= $2
		ORDER BY timestamp_ms ASC`, ticker, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("storage: loading bars for %s: %w", ticker, err)
	}
	defer rows.Close()

	var bars []sttypes.Bar
	for rows.Next() {
		b := sttypes.Bar{Ticker: ticker}
		if err := rows.Scan(&b.TimestampMs, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("storage: scanning bar for %s: %w", ticker, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (p *PostgresStorage) SaveTrade(ctx context.Context, ticker string, trade sttypes.Trade) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO trades (ticker, action, price, quantity, timestamp_ms, pnl, commission, reason, mae, mfe)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ticker, string(trade.Action), trade.Price, trade.Quantity, trade.TimestampMs,
		trade.PnL, trade.Commission, string(trade.Reason), trade.MAE, trade.MFE)
	if err != nil {
		return fmt.Errorf("storage: saving trade for %s: %w", ticker, err)
	}
	return nil
}

func (p *PostgresStorage) RecentTrades(ctx context.Context, ticker string, limit int) ([]sttypes.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT action, price, quantity, timestamp_ms, pnl, commission, reason, mae, mfe
		FROM trades WHERE ticker = $1 ORDER BY timestamp_ms DESC LIMIT $2`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: loading trades for %s: %w", ticker, err)
	}
	defer rows.Close()

	var trades []sttypes.Trade
	for rows.Next() {
		t := sttypes.Trade{Ticker: ticker}
		var action, reason string
		if err := rows.Scan(&action, &t.Price, &t.Quantity, &t.TimestampMs, &t.PnL, &t.Commission, &reason, &t.MAE, &t.MFE); err != nil {
			return nil, fmt.Errorf("storage: scanning trade for %s: %w", ticker, err)
		}
		t.Action = sttypes.Action(action)
		t.Reason = sttypes.TradeReason(reason)
		trades = append(trades, t)
	}
	// Reverse to oldest-first, matching MemoryStorage's ordering contract.
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	return trades, rows.Err()
}

func (p *PostgresStorage) SaveEvent(ctx context.Context, evt events.Event) error {
	fieldsJSON, err := json.Marshal(evt.Fields)
	if err != nil {
		return fmt.Errorf("storage: marshaling event fields: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO events (id, ts, level, kind, message, fields_json)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		evt.ID, evt.Ts, string(evt.Level), string(evt.Kind), evt.Message, fieldsJSON)
	if err != nil {
		return fmt.Errorf("storage: saving event %s: %w", evt.ID, err)
	}
	return nil
}

func (p *PostgresStorage) RecentEvents(ctx context.Context, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, ts, level, kind, message, fields_json FROM events
		ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: loading events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var e events.Event
		var level, kind string
		var fieldsJSON []byte
		if err := rows.Scan(&e.ID, &e.Ts, &level, &kind, &e.Message, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("storage: scanning event: %w", err)
		}
		e.Level = events.Level(level)
		e.Kind = events.Kind(kind)
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("storage: unmarshaling event fields: %w", err)
			}
		}
		out = append(out, e)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}
