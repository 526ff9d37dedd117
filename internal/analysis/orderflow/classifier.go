package orderflow

import (
	"fmt"
	"math"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/creasty/defaults"
)

// Sub-score weights of the combined confidence.
const (
	weightOrderBlock = 0.35
	weightVolume     = 0.25
	weightLiquidity  = 0.25
	weightSignature  = 0.15
)

// Config holds order-flow classification thresholds
type Config struct {
	MinCandles          int     `yaml:"min_candles" default:"20" validate:"min=2"`
	RecentBars          int     `yaml:"recent_bars" default:"10" validate:"min=2"`
	TouchTolerance      float64 `yaml:"touch_tolerance" default:"0.0005" validate:"gte=0"`
	MinConfidence       float64 `yaml:"min_confidence" default:"0.70" validate:"gte=0,lte=1"`
	TieMargin           float64 `yaml:"tie_margin" default:"0.10" validate:"gte=0,lte=1"`
	ManipulationCeiling float64 `yaml:"manipulation_ceiling" default:"0.85" validate:"gte=0,lte=1"`
	DisplacementATR     float64 `yaml:"displacement_atr" default:"1.5" validate:"gt=0"`
	ATRPeriod           int     `yaml:"atr_period" default:"14" validate:"min=1"`
	OrderBlockLookback  int     `yaml:"order_block_lookback" default:"50" validate:"min=2"`
}

// DefaultConfig returns the tag defaults.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// Input is what the classifier reads. M15 may hold a substituted lower frame.
type Input struct {
	H1          []model.Candle
	M15         []model.Candle
	OrderBlocks []model.OrderBlock
	Pools       []model.LiquidityPool
	Session     model.SessionName
}

// Result carries the flow when one was detected. Confidence and Scores are always filled
// once enough data was present, so a below-threshold opinion stays inspectable.
type Result struct {
	Flow       *model.InstitutionalOrderFlow
	Status     model.StepStatus
	Confidence float64
	Scores     model.SubScores
	Candles    int
	Rejected   int
}

// Classifier attributes recent price action to institutional order flow
type Classifier struct {
	cfg Config
}

// NewClassifier creates an order-flow classifier
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Combine weights the four sub-scores into one confidence in [0,1].
func Combine(s model.SubScores) float64 {
	return technical.Clamp(weightOrderBlock*technical.Clamp(s.OrderBlock) +
		weightVolume*technical.Clamp(s.Volume) +
		weightLiquidity*technical.Clamp(s.LiquidityInteraction) +
		weightSignature*technical.Clamp(s.TimingSignature))
}

// sides splits a sub-metric into bullish and bearish shares. With no evidence either way
// both shares are one half.
type sides struct {
	bull, bear float64
}

func split(bull, bear float64) sides {
	if bull+bear <= 0 {
		return sides{0.5, 0.5}
	}
	return sides{bull / (bull + bear), bear / (bull + bear)}
}

// Classify scores order-block activity, volume profile, pool interactions and the session
// signature over the most recent bars and names the dominant flow.
func (c *Classifier) Classify(in Input) Result {
	h1 := technical.Prepare(in.H1)
	res := Result{Status: model.StatusOK, Candles: len(h1.Candles), Rejected: h1.Rejected}
	if len(h1.Candles) < c.cfg.MinCandles {
		res.Status = model.StatusInsufficientData
		return res
	}
	m15 := technical.Prepare(in.M15).Candles

	recent := technical.Tail(h1.Candles, c.cfg.RecentBars)
	baseline := h1.Candles[:len(h1.Candles)-len(recent)]

	var evidence []string

	// order blocks
	var obBull, obBear int
	for _, ob := range in.OrderBlocks {
		for _, bar := range recent {
			if bar.Low > ob.High+c.cfg.TouchTolerance || bar.High < ob.Low-c.cfg.TouchTolerance {
				continue
			}
			if ob.Kind == model.Bullish && bar.Close > ob.Low {
				obBull++
			}
			if ob.Kind == model.Bearish && bar.Close < ob.High {
				obBear++
			}
		}
	}
	obScore := technical.Clamp(float64(obBull+obBear) / 3)
	obSides := split(float64(obBull), float64(obBear))
	if obBull+obBear > 0 {
		evidence = append(evidence, fmt.Sprintf("order block interactions: %d bullish, %d bearish", obBull, obBear))
	}

	// volume profile
	ratio := technical.VolumeRatio(recent, baseline)
	if len(m15) >= 2*c.cfg.RecentBars && technical.HasVolume(m15) {
		m15Recent := technical.Tail(m15, c.cfg.RecentBars)
		ratio = (ratio + technical.VolumeRatio(m15Recent, m15[:len(m15)-len(m15Recent)])) / 2
	}
	volScore := technical.Clamp(ratio / 2)
	up := technical.UpVolumeShare(recent)
	volSides := sides{up, 1 - up}
	evidence = append(evidence, fmt.Sprintf("volume ratio %.2f, up-volume %.0f%%", ratio, up*100))

	// pool interactions
	var liqBull, liqBear int
	for _, p := range in.Pools {
		for _, bar := range recent {
			if bar.Low > p.PriceLevel+c.cfg.TouchTolerance || bar.High < p.PriceLevel-c.cfg.TouchTolerance {
				continue
			}
			if p.Kind.BuySide() {
				if bar.Close < p.PriceLevel {
					liqBear++
				}
			} else if bar.Close > p.PriceLevel {
				liqBull++
			}
		}
	}
	touches := liqBull + liqBear
	liqScore := technical.Clamp(float64(touches) / 5)
	liqSides := split(float64(liqBull), float64(liqBear))
	if touches > 0 {
		evidence = append(evidence, fmt.Sprintf("liquidity pool rejections: %d bullish, %d bearish", liqBull, liqBear))
	}

	// session and price action signature
	sigScore := technical.Clamp(0.4*killzone.Weight(in.Session) +
		0.3*technical.VolumeTrendMonotonicity(recent) +
		0.3*technical.BalanceScore(recent))
	bullBars, bearBars := technical.CandleBalance(recent)
	sigSides := split(float64(bullBars), float64(bearBars))
	evidence = append(evidence, fmt.Sprintf("session %s", in.Session))

	res.Scores = model.SubScores{
		OrderBlock:           obScore,
		Volume:               volScore,
		LiquidityInteraction: liqScore,
		TimingSignature:      sigScore,
	}
	res.Confidence = Combine(res.Scores)
	if res.Confidence < c.cfg.MinConfidence {
		res.Status = model.StatusBelowThreshold
		return res
	}

	bull := weightOrderBlock*obScore*obSides.bull + weightVolume*volScore*volSides.bull +
		weightLiquidity*liqScore*liqSides.bull + weightSignature*sigScore*sigSides.bull
	bear := weightOrderBlock*obScore*obSides.bear + weightVolume*volScore*volSides.bear +
		weightLiquidity*liqScore*liqSides.bear + weightSignature*sigScore*sigSides.bear

	direction := c.direction(bull, bear, res.Confidence, technical.NetChange(recent))
	last, _ := technical.Last(h1.Candles)
	res.Flow = &model.InstitutionalOrderFlow{
		Direction:          direction,
		Strength:           technical.Clamp(math.Max(bull, bear)),
		Confidence:         res.Confidence,
		SupportingEvidence: evidence,
		SessionContext:     in.Session,
		Timestamp:          last.Timestamp,
		Scores:             res.Scores,
	}
	return res
}

func (c *Classifier) direction(bull, bear, confidence, netChange float64) model.FlowDirection {
	total := bull + bear
	if total <= 0 {
		return model.FlowNeutral
	}
	if math.Abs(bull-bear) < c.cfg.TieMargin*total {
		if confidence < c.cfg.ManipulationCeiling {
			return model.FlowManipulation
		}
		if bull == bear {
			return model.FlowNeutral
		}
	}
	if bull > bear {
		if netChange > 0 {
			return model.FlowMarkup
		}
		return model.FlowAccumulation
	}
	if netChange < 0 {
		return model.FlowMarkdown
	}
	return model.FlowDistribution
}
