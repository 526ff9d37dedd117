package model

import "time"

// Direction is a trading direction.
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// SignalType names the sub-result a signal was derived from.
type SignalType string

const (
	SignalOrderFlow      SignalType = "order_flow"
	SignalMarketMaker    SignalType = "market_maker"
	SignalLiquidityDraw  SignalType = "liquidity_draw"
	SignalKillzoneActive SignalType = "killzone_active"
)

// Signal is one discrete, explainable output of an analysis
type Signal struct {
	Type       SignalType `json:"type"`
	Direction  Direction  `json:"direction"`
	Confidence float64    `json:"confidence"` // 0-1
	Source     string     `json:"source"`
	Details    string     `json:"details,omitempty"`
}

// Step names an orchestrated analysis step.
type Step string

const (
	StepLiquidity   Step = "liquidity"
	StepOrderFlow   Step = "order_flow"
	StepMarketMaker Step = "market_maker"
	StepStopHunt    Step = "stop_hunt"
	StepKillzone    Step = "killzone"
)

// StepReport records which data a step ran on and how it ended.
type StepReport struct {
	Status          StepStatus `json:"status"`
	Timeframe       Timeframe  `json:"timeframe,omitempty"`
	SubstitutedFrom Timeframe  `json:"substituted_from,omitempty"`
	Candles         int        `json:"candles"`
	Rejected        int        `json:"rejected,omitempty"`
}

// AnalysisResult is the output of one orchestrated analysis. Callers treat it as read-only.
type AnalysisResult struct {
	ID                  string                            `json:"id"`
	Symbol              string                            `json:"symbol"`
	GeneratedAt         time.Time                         `json:"generated_at"`
	Status              StepStatus                        `json:"status"`
	CurrentSession      SessionName                       `json:"current_session"`
	CurrentPrice        float64                           `json:"current_price"`
	LiquidityPools      []LiquidityPool                   `json:"liquidity_pools"`
	OrderFlow           *InstitutionalOrderFlow           `json:"order_flow,omitempty"`
	MarketMakerBehavior *MarketMakerBehavior              `json:"market_maker_behavior,omitempty"`
	KillzoneMap         map[SessionName]OptimizedKillzone `json:"killzone_map,omitempty"`
	Signals             []Signal                          `json:"signals"`
	DataSufficiency     map[Step]StepReport               `json:"data_sufficiency"`
}
