package killzone

import (
	"time"

	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/creasty/defaults"
)

// Config holds the killzone optimizer thresholds
type Config struct {
	ExpansionFactor float64 `yaml:"expansion_factor" default:"1.5" validate:"gt=1"`
	LowSuccessRate  float64 `yaml:"low_success_rate" default:"0.6" validate:"gte=0,lte=1"`
	HighSuccessRate float64 `yaml:"high_success_rate" default:"0.75" validate:"gte=0,lte=1,gtefield=LowSuccessRate"`
	MinSessionBars  int     `yaml:"min_session_bars" default:"3" validate:"min=1"`
}

// DefaultConfig returns the tag defaults.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// SuccessRateStat is an externally measured win rate for one session.
type SuccessRateStat struct {
	SuccessRate float64 `json:"success_rate"`
	Samples     int     `json:"samples"`
}

// PerformanceMap holds session win rates supplied by a backtest or analytics collaborator.
type PerformanceMap map[model.SessionName]SuccessRateStat

// Optimizer recomputes session quality from historical candles
type Optimizer struct {
	cfg Config
}

// NewOptimizer creates an optimizer
func NewOptimizer(cfg Config) *Optimizer {
	return &Optimizer{cfg: cfg}
}

// Optimize scores every killzone from the session's own historical bars. A session with
// recorded performance uses it as success rate, otherwise a technical proxy built from
// range, volume and body efficiency is used. now only affects the activity boost of the
// session containing it.
func (o *Optimizer) Optimize(history []model.Candle, perf PerformanceMap, now time.Time) (map[model.SessionName]model.OptimizedKillzone, model.StepStatus) {
	if len(history) < o.cfg.MinSessionBars {
		return nil, model.StatusInsufficientData
	}

	overallRange := technical.AverageRange(history)
	overallVolume := technical.AverageVolume(history)
	nowMinute := minuteOfDay(now)

	out := make(map[model.SessionName]model.OptimizedKillzone, len(sessions))
	sufficient := 0
	for _, w := range sessions {
		var bars []model.Candle
		for _, c := range history {
			if w.contains(minuteOfDay(c.Timestamp)) {
				bars = append(bars, c)
			}
		}

		kz := model.OptimizedKillzone{
			Killzone: w.Killzone,
			Bars:     len(bars),
			Active:   !now.IsZero() && w.contains(nowMinute),
			Status:   model.StatusOK,
		}

		stat, hasPerf := perf[w.Name]
		hasPerf = hasPerf && stat.Samples > 0

		if len(bars) < o.cfg.MinSessionBars && !hasPerf {
			kz.Status = model.StatusInsufficientData
			kz.SuccessRateSource = "none"
			kz.Recommendations = []string{"insufficient session history"}
			kz.Adjustments = model.KillzoneAdjustments{PositionSizeMultiplier: 1}
			out[w.Name] = kz
			continue
		}
		sufficient++

		rangeRatio, volumeRatio := 1.0, 1.0
		if overallRange > 0 && len(bars) > 0 {
			rangeRatio = technical.AverageRange(bars) / overallRange
		}
		if overallVolume > 0 && len(bars) > 0 {
			volumeRatio = technical.AverageVolume(bars) / overallVolume
		}

		for _, c := range bars {
			if overallRange > 0 && c.Range() > o.cfg.ExpansionFactor*overallRange {
				kz.LiquidityEvents++
			}
		}

		eventRate := 0.0
		if len(bars) > 0 {
			eventRate = float64(kz.LiquidityEvents) / float64(len(bars))
		}
		activity := technical.Clamp(0.5*technical.Clamp(volumeRatio/2) + 0.5*technical.Clamp(eventRate/0.2))
		if kz.Active {
			activity = technical.Clamp(activity + 0.1*technical.Clamp(w.peakProximity(nowMinute)))
		}
		kz.InstitutionalActivityLevel = activity

		if hasPerf {
			kz.HistoricalSuccessRate = technical.Clamp(stat.SuccessRate)
			kz.SuccessRateSource = "performance"
		} else {
			proxy := 0.4*technical.Clamp(rangeRatio/2) + 0.3*technical.Clamp(volumeRatio/2) + 0.3*bodyEfficiency(bars)
			kz.HistoricalSuccessRate = technical.Clamp(proxy)
			kz.SuccessRateSource = "technical_proxy"
		}

		kz.EfficiencyScore = technical.Clamp(0.4*w.BaselineEfficiency + 0.4*kz.HistoricalSuccessRate + 0.2*activity)
		kz.Recommendations, kz.Adjustments = o.recommend(kz)
		out[w.Name] = kz
	}

	if sufficient == 0 {
		return out, model.StatusInsufficientData
	}
	return out, model.StatusOK
}

func (o *Optimizer) recommend(kz model.OptimizedKillzone) ([]string, model.KillzoneAdjustments) {
	var recs []string
	adj := model.KillzoneAdjustments{PositionSizeMultiplier: 1}

	switch {
	case kz.HistoricalSuccessRate < o.cfg.LowSuccessRate:
		recs = append(recs, "reduce position size")
		adj.PositionSizeMultiplier = 0.5 + 0.5*kz.HistoricalSuccessRate
		adj.ConfidenceThresholdDelta = 0.05
	case kz.HistoricalSuccessRate >= o.cfg.HighSuccessRate:
		recs = append(recs, "prioritize session setups")
		adj.PositionSizeMultiplier = 1 + (kz.HistoricalSuccessRate-o.cfg.HighSuccessRate)
		if adj.PositionSizeMultiplier > 1.25 {
			adj.PositionSizeMultiplier = 1.25
		}
		adj.ConfidenceThresholdDelta = -0.05
	}

	if kz.InstitutionalActivityLevel >= 0.7 {
		recs = append(recs, "watch for liquidity sweeps")
	}
	if kz.Bars > 0 && kz.LiquidityEvents == 0 {
		recs = append(recs, "avoid breakout entries")
	}
	return recs, adj
}

func bodyEfficiency(bars []model.Candle) float64 {
	var sum float64
	n := 0
	for _, c := range bars {
		if r := c.Range(); r > 0 {
			sum += c.Body() / r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
