package marketmaker

import (
	"fmt"
	"math"

	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/creasty/defaults"
)

// Config holds market-maker and stop-hunt thresholds
type Config struct {
	MinCandles              int     `yaml:"min_candles" default:"20" validate:"min=2"`
	RecentBars              int     `yaml:"recent_bars" default:"10" validate:"min=2"`
	RangeBars               int     `yaml:"range_bars" default:"20" validate:"min=2"`
	WickBars                int     `yaml:"wick_bars" default:"12" validate:"min=1"`
	SwingWindow             int     `yaml:"swing_window" default:"3" validate:"min=1"`
	RoundNumberStep         float64 `yaml:"round_number_step" default:"0.0050" validate:"gt=0"`
	RoundNumberLevels       int     `yaml:"round_number_levels" default:"2" validate:"min=0"`
	PipSize                 float64 `yaml:"pip_size" default:"0.0001" validate:"gt=0"`
	SpikeThresholdPips      float64 `yaml:"spike_threshold_pips" default:"10" validate:"gt=0"`
	ReversalMinPips         float64 `yaml:"reversal_min_pips" default:"10" validate:"gt=0"`
	Lookahead               int     `yaml:"lookahead" default:"3" validate:"min=1"`
	VolumeAvgPeriod         int     `yaml:"volume_avg_period" default:"20" validate:"min=1"`
	ATRPeriod               int     `yaml:"atr_period" default:"14" validate:"min=1"`
	ManipulationSensitivity float64 `yaml:"manipulation_sensitivity" default:"0.75" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the tag defaults.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// Input is what the behaviour detector reads. M15 may hold a substituted lower frame.
type Input struct {
	M15     []model.Candle
	M5      []model.Candle
	Pools   []model.LiquidityPool
	Session model.SessionName
}

// Result carries the dominant behaviour and the stop-hunt sub-step status
type Result struct {
	Behavior       *model.MarketMakerBehavior
	Status         model.StepStatus
	StopHuntStatus model.StepStatus
	Candles        int
	Rejected       int
}

// Detector scores manipulation behaviours and picks the dominant one
type Detector struct {
	cfg       Config
	stopHunts *StopHuntDetector
}

// NewDetector creates a market-maker behaviour detector
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg, stopHunts: NewStopHuntDetector(cfg)}
}

type scored struct {
	behavior model.Behavior
	score    float64
	bias     model.Direction
	evidence string
}

// Detect runs every behaviour scorer independently over the same frames. The maximum
// score wins; below ManipulationSensitivity the market is called normal trading.
func (d *Detector) Detect(in Input) Result {
	prep := technical.Prepare(in.M15)
	res := Result{Status: model.StatusOK, Candles: len(prep.Candles), Rejected: prep.Rejected}
	if len(prep.Candles) < d.cfg.MinCandles {
		res.Status = model.StatusInsufficientData
		res.StopHuntStatus = model.StatusInsufficientData
		return res
	}
	m15 := prep.Candles
	m5 := technical.Prepare(in.M5).Candles

	events, shStatus := d.stopHunts.Detect(m15)
	res.StopHuntStatus = shStatus

	// tie order: earlier entries win equal scores
	candidates := []scored{
		d.stopHunt(m15, events),
		d.liquidityHunt(m15, m5, in.Pools),
		d.fakeBreakout(m15),
	}
	candidates = append(candidates, d.phases(m15)...)

	best := candidates[0]
	scores := make(map[model.Behavior]float64, len(candidates))
	for _, c := range candidates {
		scores[c.behavior] = c.score
		if c.score > best.score {
			best = c
		}
	}

	target := strongestPool(in.Pools)
	mm := &model.MarketMakerBehavior{
		TargetLiquidity: target,
		Scores:          scores,
		StopHunts:       events,
	}

	targetStrength := 0.0
	if target != nil {
		targetStrength = target.Strength
	}

	if best.score < d.cfg.ManipulationSensitivity {
		mm.Behavior = model.NormalTrading
		mm.ManipulationEvidence = technical.Clamp(best.score / 2)
		mm.Bias = model.DirectionNeutral
		mm.Probability = technical.Clamp(1 - best.score)
		mm.ExpectedOutcome = "no dominant manipulation, price likely continues in its current structure"
	} else {
		mm.Behavior = best.behavior
		mm.ManipulationEvidence = technical.Clamp(best.score)
		mm.Bias = best.bias
		mm.Probability = technical.Clamp(0.6*best.score + 0.4*targetStrength)
		mm.ExpectedOutcome = outcome(best, target)
	}
	res.Behavior = mm
	return res
}

// stopHunt scores the strongest stop hunt whose spike falls in the recent bars.
func (d *Detector) stopHunt(m15 []model.Candle, events []model.StopHuntEvent) scored {
	s := scored{behavior: model.StopHunt, bias: model.DirectionNeutral}
	cutoff := len(m15) - d.cfg.RecentBars
	for _, ev := range events {
		if ev.SpikeIndex < cutoff || ev.Strength < s.score {
			continue
		}
		s.score = ev.Strength
		s.bias = model.DirectionBullish
		if ev.Type == model.BearishStopHunt {
			s.bias = model.DirectionBearish
		}
		s.evidence = fmt.Sprintf("%s through %s level %.5f, reversed in %d bars", ev.Type, ev.LevelSource, ev.TargetLevel, ev.ReversalBarCount)
	}
	return s
}

// liquidityHunt scores recent sweeps of known pools, backed by wick rejections on the
// lower frame.
func (d *Detector) liquidityHunt(m15, m5 []model.Candle, pools []model.LiquidityPool) scored {
	s := scored{behavior: model.LiquidityHunt, bias: model.DirectionNeutral}
	recent := technical.Tail(m15, d.cfg.RecentBars)

	var buySweeps, sellSweeps int
	var swept float64
	for _, p := range pools {
		hit := false
		for _, c := range recent {
			if p.Kind.BuySide() && c.High > p.PriceLevel && c.Close < p.PriceLevel {
				buySweeps++
				hit = true
			}
			if !p.Kind.BuySide() && c.Low < p.PriceLevel && c.Close > p.PriceLevel {
				sellSweeps++
				hit = true
			}
		}
		if hit {
			swept = math.Max(swept, p.Strength)
		}
	}

	wicks := 0
	for _, c := range technical.Tail(m5, d.cfg.WickBars) {
		r := c.Range()
		if r <= 0 {
			continue
		}
		upper := c.High - math.Max(c.Open, c.Close)
		lower := math.Min(c.Open, c.Close) - c.Low
		if math.Max(upper, lower) >= 0.6*r {
			wicks++
		}
	}

	sweeps := buySweeps + sellSweeps
	s.score = technical.Clamp(0.6*technical.Clamp(float64(sweeps)/2)*swept + 0.4*technical.Clamp(float64(wicks)/3))
	switch {
	case sellSweeps > buySweeps:
		s.bias = model.DirectionBullish
	case buySweeps > sellSweeps:
		s.bias = model.DirectionBearish
	}
	s.evidence = fmt.Sprintf("%d pool sweeps, %d rejection wicks", sweeps, wicks)
	return s
}

// fakeBreakout scores a recent close outside the prior range that has since returned
// inside it.
func (d *Detector) fakeBreakout(m15 []model.Candle) scored {
	s := scored{behavior: model.FakeBreakout, bias: model.DirectionNeutral}
	prior, recent := d.split(m15)
	if len(prior) == 0 {
		return s
	}
	hi, _ := technical.HighestHigh(prior)
	lo, _ := technical.LowestLow(prior)
	height := hi - lo
	last, _ := technical.Last(recent)
	if height <= 0 {
		return s
	}

	var up, down float64
	for _, c := range recent {
		up = math.Max(up, c.Close-hi)
		down = math.Max(down, lo-c.Close)
	}

	score := func(excursion, depth float64) float64 {
		return technical.Clamp(0.4 + 0.3*technical.Clamp(excursion/(0.25*height)) + 0.3*technical.Clamp(depth/(0.25*height)))
	}
	if up > 0 && last.Close < hi && up >= down {
		s.score = score(up, hi-last.Close)
		s.bias = model.DirectionBearish
		s.evidence = fmt.Sprintf("close above range high %.5f failed back inside", hi)
	} else if down > 0 && last.Close > lo {
		s.score = score(down, last.Close-lo)
		s.bias = model.DirectionBullish
		s.evidence = fmt.Sprintf("close below range low %.5f failed back inside", lo)
	}
	return s
}

// phases scores accumulation and distribution from range compression, volume build-up
// and where price sits in the range.
func (d *Detector) phases(m15 []model.Candle) []scored {
	acc := scored{behavior: model.AccumulationPhase, bias: model.DirectionBullish}
	dist := scored{behavior: model.DistributionPhase, bias: model.DirectionBearish}
	prior, recent := d.split(m15)
	if len(prior) == 0 {
		return []scored{acc, dist}
	}

	compression := 0.0
	if pr := technical.AverageRange(prior); pr > 0 {
		compression = technical.Clamp(1 - technical.AverageRange(recent)/pr)
	}
	volTrend := technical.VolumeTrendMonotonicity(recent)

	window := append(append([]model.Candle{}, prior...), recent...)
	hi, _ := technical.HighestHigh(window)
	lo, _ := technical.LowestLow(window)
	last, _ := technical.Last(recent)
	position := 0.5
	if hi > lo {
		position = (last.Close - lo) / (hi - lo)
	}

	acc.score = technical.Clamp(0.4*compression + 0.3*volTrend + 0.3*(1-position))
	dist.score = technical.Clamp(0.4*compression + 0.3*volTrend + 0.3*position)
	acc.evidence = fmt.Sprintf("range compression %.2f near range low", compression)
	dist.evidence = fmt.Sprintf("range compression %.2f near range high", compression)
	return []scored{acc, dist}
}

// split returns the RangeBars before the recent window and the recent window itself.
func (d *Detector) split(m15 []model.Candle) (prior, recent []model.Candle) {
	recent = technical.Tail(m15, d.cfg.RecentBars)
	end := len(m15) - len(recent)
	start := end - d.cfg.RangeBars
	if start < 0 {
		start = 0
	}
	return m15[start:end], recent
}

func strongestPool(pools []model.LiquidityPool) *model.LiquidityPool {
	if len(pools) == 0 {
		return nil
	}
	best := pools[0]
	for _, p := range pools[1:] {
		if p.Strength > best.Strength {
			best = p
		}
	}
	return &best
}

func outcome(s scored, target *model.LiquidityPool) string {
	msg := s.evidence
	switch s.bias {
	case model.DirectionBullish:
		msg += ", expect upside expansion"
	case model.DirectionBearish:
		msg += ", expect downside expansion"
	}
	if target != nil {
		msg += fmt.Sprintf(" toward %s liquidity at %.5f", target.Kind, target.PriceLevel)
	}
	return msg
}
