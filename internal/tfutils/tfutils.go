// Package tfutils converts sttypes.Timeframe values into the shapes
// other packages need: a time.Duration (for scheduling) and a
// historical data provider's interval query string (spec §6.2).
// Generalized from the teacher's string-keyed switch statements
// (ParseTimeframe/GetTimeframeDuration/TimeframeMinutes), narrowed to
// the closed Timeframe enum spec.md §3 defines instead of the
// teacher's open "1m".."4h" vocabulary.
package tfutils

import (
	"fmt"
	"time"

	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// Duration returns tf as a time.Duration.
func Duration(tf sttypes.Timeframe) time.Duration {
	switch tf {
	case sttypes.Timeframe1Min:
		return time.Minute
	case sttypes.Timeframe5Min:
		return 5 * time.Minute
	case sttypes.Timeframe15Min:
		return 15 * time.Minute
	case sttypes.Timeframe1Hour:
		return time.Hour
	case sttypes.Timeframe1Day:
		return 24 * time.Hour
	default:
		return 0
	}
}

// YahooInterval maps tf to the "interval" query parameter the chart
// API in internal/marketdata expects.
func YahooInterval(tf sttypes.Timeframe) (string, error) {
	switch tf {
	case sttypes.Timeframe1Min:
		return "1m", nil
	case sttypes.Timeframe5Min:
		return "5m", nil
	case sttypes.Timeframe15Min:
		return "15m", nil
	case sttypes.Timeframe1Hour:
		return "60m", nil
	case sttypes.Timeframe1Day:
		return "1d", nil
	default:
		return "", fmt.Errorf("tfutils: unsupported timeframe %q", tf)
	}
}

// Minutes returns tf's length in whole minutes, 0 for an unknown
// timeframe.
func Minutes(tf sttypes.Timeframe) int {
	return int(Duration(tf) / time.Minute)
}
