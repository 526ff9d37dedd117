package model

import "time"

// Timeframe is a candle resolution, named the way Twelve Data names its intervals.
type Timeframe string

const (
	M5  Timeframe = "5min"
	M15 Timeframe = "15min"
	H1  Timeframe = "1h"
	H4  Timeframe = "4h"
	D1  Timeframe = "1day"
)

// Duration returns the length of one candle.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case M5:
		return 5 * time.Minute
	case M15:
		return 15 * time.Minute
	case H1:
		return time.Hour
	case H4:
		return 4 * time.Hour
	case D1:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether tf is one of the supported resolutions.
func (tf Timeframe) Valid() bool {
	return tf.Duration() > 0
}

// ParseTimeframe maps an interval name to a Timeframe.
func ParseTimeframe(s string) (Timeframe, bool) {
	tf := Timeframe(s)
	return tf, tf.Valid()
}
