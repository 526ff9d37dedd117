package model

import "time"

// PoolKind classifies a liquidity pool.
type PoolKind string

const (
	EqualHighs         PoolKind = "equal_highs"
	EqualLows          PoolKind = "equal_lows"
	RelativeEqualHighs PoolKind = "relative_equal_highs"
	RelativeEqualLows  PoolKind = "relative_equal_lows"
	PeriodHigh         PoolKind = "period_high"
	PeriodLow          PoolKind = "period_low"
)

// BuySide reports whether the pool rests above price (stops of short sellers).
func (k PoolKind) BuySide() bool {
	return k == EqualHighs || k == RelativeEqualHighs || k == PeriodHigh
}

// Reaction is the price reaction expected when a pool is reached.
type Reaction string

const (
	Bullish Reaction = "bullish"
	Bearish Reaction = "bearish"
)

// LiquidityPool is a price level where resting orders are believed to cluster
type LiquidityPool struct {
	Kind                  PoolKind    `json:"kind"`
	Period                string      `json:"period,omitempty"` // range, daily, weekly for period kinds
	PriceLevel            float64     `json:"price_level"`
	Strength              float64     `json:"strength"`               // 0-1
	Touches               int         `json:"touches"`                // >= 1
	InstitutionalInterest float64     `json:"institutional_interest"` // 0-1
	OriginSession         SessionName `json:"origin_session"`
	OriginTimeframe       Timeframe   `json:"origin_timeframe"`
	ExpectedReaction      Reaction    `json:"expected_reaction"`
	InvalidationPrice     float64     `json:"invalidation_price"`
	FormedAt              time.Time   `json:"formed_at"`
}

// OrderBlock is a candle range believed to hold a large participant's prior orders.
type OrderBlock struct {
	Kind      Reaction  `json:"kind"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Timestamp time.Time `json:"timestamp"`
}
