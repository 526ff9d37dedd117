package model

import "time"

// Behavior is a market-maker behaviour classification.
type Behavior string

const (
	LiquidityHunt     Behavior = "liquidity_hunt"
	StopHunt          Behavior = "stop_hunt"
	FakeBreakout      Behavior = "fake_breakout"
	AccumulationPhase Behavior = "accumulation_phase"
	DistributionPhase Behavior = "distribution_phase"
	NormalTrading     Behavior = "normal_trading"
)

// MarketMakerBehavior describes the dominant manipulation pattern in recent price action
type MarketMakerBehavior struct {
	Behavior             Behavior             `json:"behavior"`
	ManipulationEvidence float64              `json:"manipulation_evidence"` // 0-1
	TargetLiquidity      *LiquidityPool       `json:"target_liquidity,omitempty"`
	ExpectedOutcome      string               `json:"expected_outcome"`
	Probability          float64              `json:"probability"` // 0-1
	Bias                 Direction            `json:"bias"`
	Scores               map[Behavior]float64 `json:"scores"`
	StopHunts            []StopHuntEvent      `json:"stop_hunts,omitempty"`
}

// StopHuntType labels the side of a stop hunt.
type StopHuntType string

const (
	BullishStopHunt StopHuntType = "bullish_stop_hunt" // sweep below lows, reversal up
	BearishStopHunt StopHuntType = "bearish_stop_hunt" // sweep above highs, reversal down
)

// Confidence is a coarse confidence bucket.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// StopHuntEvent is a spike through a stop level followed by a reversal
type StopHuntEvent struct {
	Type             StopHuntType `json:"type"`
	TargetLevel      float64      `json:"target_level"`
	LevelSource      string       `json:"level_source"` // swing or round_number
	SpikeSize        float64      `json:"spike_size"`
	ReversalSize     float64      `json:"reversal_size"`
	ReversalBarCount int          `json:"reversal_bar_count"`
	VolumeRatio      float64      `json:"volume_ratio"`
	Strength         float64      `json:"strength"` // 0-1
	Confidence       Confidence   `json:"confidence"`
	SpikeTime        time.Time    `json:"spike_time"`
	SpikeIndex       int          `json:"-"`
}
