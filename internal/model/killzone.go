package model

// SessionName identifies a trading session window.
type SessionName string

const (
	SessionAsian     SessionName = "asian"
	SessionLondon    SessionName = "london"
	SessionNewYork   SessionName = "new_york"
	SessionOverlap   SessionName = "london_ny_overlap"
	SessionPowerHour SessionName = "power_hour"
	SessionOffHours  SessionName = "off_hours"
)

// Killzone is a fixed daily session window, times are UTC "HH:MM"
type Killzone struct {
	Name               SessionName `json:"name"`
	Start              string      `json:"start"`
	End                string      `json:"end"`
	Peak               string      `json:"peak"`
	BaselineEfficiency float64     `json:"baseline_efficiency"`
	Priority           int         `json:"-"`
}

// KillzoneAdjustments are bounded dynamic tweaks derived from session performance.
type KillzoneAdjustments struct {
	PositionSizeMultiplier   float64 `json:"position_size_multiplier"` // 0.5-1.25
	ConfidenceThresholdDelta float64 `json:"confidence_threshold_delta"`
}

// OptimizedKillzone is a killzone with scores recomputed from history
type OptimizedKillzone struct {
	Killzone
	EfficiencyScore            float64             `json:"efficiency_score"`
	HistoricalSuccessRate      float64             `json:"historical_success_rate"`
	SuccessRateSource          string              `json:"success_rate_source"` // performance, technical_proxy, none
	LiquidityEvents            int                 `json:"liquidity_events"`
	InstitutionalActivityLevel float64             `json:"institutional_activity_level"`
	Bars                       int                 `json:"bars"`
	Active                     bool                `json:"active"`
	Recommendations            []string            `json:"recommendations"`
	Adjustments                KillzoneAdjustments `json:"adjustments"`
	Status                     StepStatus          `json:"status"`
}
