// Package config loads the Config struct driving cmd/hybridtrader:
// environment variables (optionally loaded from a .env file) take
// precedence over built-in defaults; on top of that, either a YAML file
// given with -config is applied (and every other flag is then ignored),
// or, without -config, the command-line flags are. Grounded on the teacher's
// flag+YAML+env layering (loadConfig), generalized from its
// per-symbol live-trading fields to this pipeline's
// watchlist/gate/backtest fields, and extended with .env loading via
// joho/godotenv.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the fully-resolved configuration for one run of
// cmd/hybridtrader.
type Config struct {
	// Watchlist maps ticker -> the natural-language query the Spec
	// Producer compiles into a Strategy Spec for that ticker.
	Watchlist map[string]string

	WallexAPIKey string
	DBConnStr    string
	LogLevel     string

	TelegramBotToken string
	TelegramChatID   string

	StrategyRefreshIntervalMs int64
	LiveFeedIntervalMs        int64
	MinDataPoints             int

	Gate1MinTrades            int
	Gate1MaxDrawdownPct       float64
	Gate1MinReturnPct         float64
	Gate2MaxConsecutiveLosses int

	InitialCapital float64
	CommissionRate float64
	Slippage       float64

	EventStreamCapacity int
}

// defaults mirrors spec.md §4.5's "Defaults" and §4.4's fill-model
// literal example (commission=0.001, slippage=0.0005).
func defaults() Config {
	return Config{
		Watchlist:                 map[string]string{},
		LogLevel:                  "info",
		StrategyRefreshIntervalMs: 60_000,
		LiveFeedIntervalMs:        5_000,
		MinDataPoints:             100,
		Gate1MinTrades:            3,
		Gate1MaxDrawdownPct:       20,
		Gate1MinReturnPct:         -5,
		Gate2MaxConsecutiveLosses: 3,
		InitialCapital:            100_000,
		CommissionRate:            0.001,
		Slippage:                  0.0005,
		EventStreamCapacity:       256,
	}
}

// Load resolves Config from (in increasing precedence) built-in
// defaults, a .env file, and environment variables, then applies either
// the YAML file named by -config or, when -config is absent, the other
// command-line flags. With -config, the other flags are not applied.
func Load(args []string) (Config, error) {
	_ = godotenv.Load() // .env is optional; absence is not an error

	cfg := defaults()
	cfg.WallexAPIKey = os.Getenv("WALLEX_API_KEY")
	cfg.DBConnStr = os.Getenv("DB_CONN_STR")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	fs := flag.NewFlagSet("hybridtrader", flag.ContinueOnError)
	configFile := fs.String("config", "", "path to a YAML config file")
	watchlistFlag := fs.String("watchlist", "", "comma-separated ticker:query pairs, e.g. BTCUSD:momentum breakout,ETHUSD:mean reversion")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	refreshMs := fs.Int64("refresh-interval-ms", cfg.StrategyRefreshIntervalMs, "strategy refresh loop interval in milliseconds")
	liveFeedMs := fs.Int64("live-feed-interval-ms", cfg.LiveFeedIntervalMs, "live trading loop polling interval in milliseconds")
	minDataPoints := fs.Int("min-data-points", cfg.MinDataPoints, "minimum bars required before a backtest runs")
	gate1MinTrades := fs.Int("gate1-min-trades", cfg.Gate1MinTrades, "gate #1 minimum total trades")
	gate1MaxDD := fs.Float64("gate1-max-drawdown-pct", cfg.Gate1MaxDrawdownPct, "gate #1 maximum drawdown percent")
	gate1MinReturn := fs.Float64("gate1-min-return-pct", cfg.Gate1MinReturnPct, "gate #1 minimum total return percent")
	gate2MaxLosses := fs.Int("gate2-max-consecutive-losses", cfg.Gate2MaxConsecutiveLosses, "gate #2 consecutive-loss threshold")
	initialCapital := fs.Float64("initial-capital", cfg.InitialCapital, "backtest initial capital")
	commissionRate := fs.Float64("commission-rate", cfg.CommissionRate, "backtest commission rate (fraction of notional)")
	slippage := fs.Float64("slippage", cfg.Slippage, "backtest slippage (fraction of price)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", *configFile, err)
		}
		// Unmarshal onto cfg, not a zero-value Config: cfg already carries
		// the env-loaded secrets (WALLEX_API_KEY, DB_CONN_STR, the Telegram
		// pair) and defaults(), so a YAML file that omits a field keeps
		// that field's env/default value instead of silently clearing it.
		// Fields the file does set still take priority over flags, which
		// is the whole point of passing -config.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", *configFile, err)
		}
		return cfg, nil
	}

	cfg.LogLevel = *logLevel
	cfg.StrategyRefreshIntervalMs = *refreshMs
	cfg.LiveFeedIntervalMs = *liveFeedMs
	cfg.MinDataPoints = *minDataPoints
	cfg.Gate1MinTrades = *gate1MinTrades
	cfg.Gate1MaxDrawdownPct = *gate1MaxDD
	cfg.Gate1MinReturnPct = *gate1MinReturn
	cfg.Gate2MaxConsecutiveLosses = *gate2MaxLosses
	cfg.InitialCapital = *initialCapital
	cfg.CommissionRate = *commissionRate
	cfg.Slippage = *slippage

	if *watchlistFlag != "" {
		cfg.Watchlist = parseWatchlist(*watchlistFlag)
	}

	return cfg, nil
}

// RefreshInterval is StrategyRefreshIntervalMs as a time.Duration.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.StrategyRefreshIntervalMs) * time.Millisecond
}

// LiveFeedInterval is LiveFeedIntervalMs as a time.Duration.
func (c Config) LiveFeedInterval() time.Duration {
	return time.Duration(c.LiveFeedIntervalMs) * time.Millisecond
}

func parseWatchlist(flagValue string) map[string]string {
	watchlist := make(map[string]string)
	for _, pair := range strings.Split(flagValue, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		ticker := strings.TrimSpace(parts[0])
		query := strings.TrimSpace(parts[1])
		if ticker == "" || query == "" {
			continue
		}
		watchlist[ticker] = query
	}
	return watchlist
}
