package model

import "time"

// FlowDirection is the institutional order-flow classification.
type FlowDirection string

const (
	FlowAccumulation FlowDirection = "accumulation"
	FlowDistribution FlowDirection = "distribution"
	FlowManipulation FlowDirection = "manipulation"
	FlowMarkup       FlowDirection = "markup"
	FlowMarkdown     FlowDirection = "markdown"
	FlowNeutral      FlowDirection = "neutral"
)

// Bias maps a flow direction to a trading direction.
func (d FlowDirection) Bias() Direction {
	switch d {
	case FlowAccumulation, FlowMarkup:
		return DirectionBullish
	case FlowDistribution, FlowMarkdown:
		return DirectionBearish
	default:
		return DirectionNeutral
	}
}

// SubScores are the independent inputs of the order-flow confidence.
type SubScores struct {
	OrderBlock           float64 `json:"order_block"`
	Volume               float64 `json:"volume"`
	LiquidityInteraction float64 `json:"liquidity_interaction"`
	TimingSignature      float64 `json:"timing_signature"`
}

// InstitutionalOrderFlow is the directional flow attributed to large participants
type InstitutionalOrderFlow struct {
	Direction          FlowDirection `json:"direction"`
	Strength           float64       `json:"strength"`   // 0-1
	Confidence         float64       `json:"confidence"` // 0-1
	SupportingEvidence []string      `json:"supporting_evidence"`
	SessionContext     SessionName   `json:"session_context"`
	Timestamp          time.Time     `json:"timestamp"`
	Scores             SubScores     `json:"scores"`
}
