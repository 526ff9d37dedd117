package liquidity

import (
	"math"
	"sort"
	"time"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/creasty/defaults"
)

// Config holds liquidity pool detection thresholds
type Config struct {
	MinCandles               int     `yaml:"min_candles" default:"20" validate:"min=2"`
	MinimumTouches           int     `yaml:"minimum_touches" default:"2" validate:"min=2"`
	WindowRadius             int     `yaml:"window_radius" default:"10" validate:"min=1"`
	PivotRadius              int     `yaml:"pivot_radius" default:"2" validate:"min=1"`
	ToleranceH4              float64 `yaml:"tolerance_h4" default:"0.0005" validate:"gt=0"`
	ToleranceH1              float64 `yaml:"tolerance_h1" default:"0.0003" validate:"gt=0"`
	ToleranceM15             float64 `yaml:"tolerance_m15" default:"0.0002" validate:"gt=0"`
	PeriodLookback           int     `yaml:"period_lookback" default:"20" validate:"min=2"`
	MinInstitutionalInterest float64 `yaml:"min_institutional_interest" default:"0.30" validate:"gte=0,lte=1"`
	MaxPools                 int     `yaml:"max_pools" default:"10" validate:"min=1"`
}

// DefaultConfig returns the tag defaults.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// Tolerance returns the absolute equal-level tolerance for a timeframe.
func (c Config) Tolerance(tf model.Timeframe) float64 {
	switch tf {
	case model.H4, model.D1:
		return c.ToleranceH4
	case model.H1:
		return c.ToleranceH1
	default:
		return c.ToleranceM15
	}
}

// Frame is one timeframe's candles.
type Frame struct {
	TF      model.Timeframe
	Candles []model.Candle
}

// Result is the outcome of one detection pass.
type Result struct {
	Pools    []model.LiquidityPool
	Status   model.StepStatus
	Candles  int
	Rejected int
}

// Detector finds liquidity pools
type Detector struct {
	cfg Config
}

// NewDetector creates a liquidity pool detector
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

type candidate struct {
	pool    model.LiquidityPool
	volume  float64 // volume-at-level ratio
	recency float64
}

// Detect clusters repeated extremes of the high frame (and of the mid frame when it has
// enough bars), adds period extremes and scores every pool. The low frame only contributes
// confirming touches. currentPrice drops pools already traded through; zero disables that.
func (d *Detector) Detect(high, mid, low Frame, currentPrice float64) Result {
	hp := technical.Prepare(high.Candles)
	res := Result{Status: model.StatusOK, Candles: len(hp.Candles), Rejected: hp.Rejected}
	if len(hp.Candles) < d.cfg.MinCandles {
		res.Status = model.StatusInsufficientData
		return res
	}
	high.Candles = hp.Candles
	mid.Candles = technical.Prepare(mid.Candles).Candles
	low.Candles = technical.Prepare(low.Candles).Candles

	var clusters []candidate
	clusters = append(clusters, d.clusters(high, true)...)
	clusters = append(clusters, d.clusters(high, false)...)
	if mid.TF != high.TF && len(mid.Candles) >= d.cfg.MinCandles {
		clusters = append(clusters, d.clusters(mid, true)...)
		clusters = append(clusters, d.clusters(mid, false)...)
	}
	clusters = d.merge(clusters)

	for i := range clusters {
		clusters[i].pool.Touches += d.confirmations(clusters[i].pool, low)
	}

	pools := clusters
	for _, p := range d.periodPools(high, mid) {
		if !d.overlaps(pools, p) {
			pools = append(pools, p)
		}
	}

	out := make([]model.LiquidityPool, 0, len(pools))
	for _, c := range pools {
		p := d.score(c)
		if p.InstitutionalInterest < d.cfg.MinInstitutionalInterest {
			continue
		}
		if currentPrice > 0 && invalidated(p, currentPrice) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].PriceLevel < out[j].PriceLevel
	})
	if len(out) > d.cfg.MaxPools {
		out = out[:d.cfg.MaxPools]
	}
	res.Pools = out
	return res
}

// clusters groups pivot extremes that repeat within twice the frame tolerance inside a
// sliding window of WindowRadius bars. Each pivot seeds a cluster; any other bar in the
// window whose extreme is within tolerance of the seed joins it, so a slightly lower
// neighbour of a peak still counts as a touch.
func (d *Detector) clusters(f Frame, highs bool) []candidate {
	tol := d.cfg.Tolerance(f.TF)
	piv := pivots(f.Candles, d.cfg.PivotRadius, highs)
	isPivot := make(map[int]bool, len(piv))
	for _, p := range piv {
		isPivot[p.Index] = true
	}
	used := make([]bool, len(f.Candles))
	avgVol := technical.AverageVolume(f.Candles)
	n := len(f.Candles)

	var out []candidate
	for i, seed := range piv {
		if used[seed.Index] {
			continue
		}
		members := []technical.Swing{seed}
		for _, p := range piv[i+1:] {
			if p.Index-seed.Index > d.cfg.WindowRadius {
				break
			}
			if !used[p.Index] && math.Abs(p.Price-seed.Price) <= 2*tol {
				members = append(members, p)
			}
		}
		members = append(members, nearSeed(f.Candles, seed, d.cfg.WindowRadius, tol, highs, func(k int) bool {
			return used[k] || isPivot[k]
		})...)
		if len(members) < d.cfg.MinimumTouches {
			continue
		}
		sort.Slice(members, func(a, b int) bool { return members[a].Index < members[b].Index })

		lo, hi := math.Inf(1), math.Inf(-1)
		var vol float64
		for _, m := range members {
			used[m.Index] = true
			lo = math.Min(lo, m.Price)
			hi = math.Max(hi, m.Price)
			vol += float64(f.Candles[m.Index].Volume)
		}
		last := members[len(members)-1].Index

		kind := model.EqualLows
		level := lo
		if highs {
			kind = model.EqualHighs
			level = hi
		}
		if hi-lo > tol {
			kind = relative(kind)
		}

		volRatio := 1.0
		if avgVol > 0 {
			volRatio = vol / float64(len(members)) / avgVol
		}
		first := f.Candles[members[0].Index]
		out = append(out, candidate{
			pool: model.LiquidityPool{
				Kind:            kind,
				PriceLevel:      level,
				Touches:         len(members),
				OriginSession:   killzone.CurrentSession(first.Timestamp),
				OriginTimeframe: f.TF,
				FormedAt:        f.Candles[last].Timestamp,
			},
			volume:  volRatio,
			recency: float64(last+1) / float64(n),
		})
	}
	return out
}

// merge folds clusters on the same side whose levels sit within tolerance into the one
// with more touches.
func (d *Detector) merge(in []candidate) []candidate {
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].pool.Touches > in[j].pool.Touches
	})

	var out []candidate
	for _, c := range in {
		merged := false
		for k := range out {
			o := &out[k]
			tol := math.Max(d.cfg.Tolerance(o.pool.OriginTimeframe), d.cfg.Tolerance(c.pool.OriginTimeframe))
			if o.pool.Kind.BuySide() == c.pool.Kind.BuySide() && math.Abs(o.pool.PriceLevel-c.pool.PriceLevel) <= tol {
				o.pool.Touches += c.pool.Touches
				o.volume = math.Max(o.volume, c.volume)
				o.recency = math.Max(o.recency, c.recency)
				if c.pool.FormedAt.After(o.pool.FormedAt) {
					o.pool.FormedAt = c.pool.FormedAt
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, c)
		}
	}
	return out
}

// confirmations counts low-frame bars formed after the pool that tagged its level and
// closed back on the original side.
func (d *Detector) confirmations(p model.LiquidityPool, low Frame) int {
	tol := d.cfg.Tolerance(low.TF)
	count := 0
	for _, c := range low.Candles {
		if !c.Timestamp.After(p.FormedAt) {
			continue
		}
		if p.Kind.BuySide() {
			if c.High >= p.PriceLevel-tol && c.Close < p.PriceLevel-tol {
				count++
			}
		} else if c.Low <= p.PriceLevel+tol && c.Close > p.PriceLevel+tol {
			count++
		}
	}
	return count
}

// periodPools registers the weekly, daily and trailing-range extremes. Wider periods win
// when two land on the same level.
func (d *Detector) periodPools(high, mid Frame) []candidate {
	var out []candidate
	add := func(c candidate, ok bool) {
		if ok && !d.overlaps(out, c) {
			out = append(out, c)
		}
	}

	lastT := high.Candles[len(high.Candles)-1].Timestamp.UTC()
	prevY, prevW := lastT.AddDate(0, 0, -7).ISOWeek()
	weekly := filter(high.Candles, func(t time.Time) bool {
		y, w := t.UTC().ISOWeek()
		return y == prevY && w == prevW
	})
	daily := mid
	if len(daily.Candles) == 0 {
		daily = high
	}
	lastD := daily.Candles[len(daily.Candles)-1].Timestamp.UTC()
	prevDay := time.Date(lastD.Year(), lastD.Month(), lastD.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	days := filter(daily.Candles, func(t time.Time) bool {
		u := t.UTC()
		return u.Year() == prevDay.Year() && u.YearDay() == prevDay.YearDay()
	})
	trailing := technical.Tail(high.Candles, d.cfg.PeriodLookback)

	for _, src := range []struct {
		period  string
		tf      model.Timeframe
		candles []model.Candle
		all     []model.Candle
	}{
		{"weekly", high.TF, weekly, high.Candles},
		{"daily", daily.TF, days, daily.Candles},
		{"range", high.TF, trailing, high.Candles},
	} {
		add(d.extreme(src.period, src.tf, src.candles, src.all, true))
		add(d.extreme(src.period, src.tf, src.candles, src.all, false))
	}
	return out
}

func (d *Detector) extreme(period string, tf model.Timeframe, candles, all []model.Candle, highs bool) (candidate, bool) {
	if len(candles) == 0 {
		return candidate{}, false
	}
	tol := d.cfg.Tolerance(tf)

	var level float64
	var idx int
	kind := model.PeriodLow
	if highs {
		kind = model.PeriodHigh
		level, idx = technical.HighestHigh(candles)
	} else {
		level, idx = technical.LowestLow(candles)
	}

	touches := 0
	for _, c := range candles {
		if (highs && c.High >= level-tol) || (!highs && c.Low <= level+tol) {
			touches++
		}
	}

	bar := candles[idx]
	volRatio := 1.0
	if avg := technical.AverageVolume(all); avg > 0 {
		volRatio = float64(bar.Volume) / avg
	}
	recency := 1.0
	if pos := sort.Search(len(all), func(i int) bool { return !all[i].Timestamp.Before(bar.Timestamp) }); pos < len(all) {
		recency = float64(pos+1) / float64(len(all))
	}

	return candidate{
		pool: model.LiquidityPool{
			Kind:            kind,
			Period:          period,
			PriceLevel:      level,
			Touches:         touches,
			OriginSession:   killzone.CurrentSession(bar.Timestamp),
			OriginTimeframe: tf,
			FormedAt:        bar.Timestamp,
		},
		volume:  volRatio,
		recency: recency,
	}, true
}

// score fills strength, interest, expected reaction and invalidation.
func (d *Detector) score(c candidate) model.LiquidityPool {
	p := c.pool
	tol := d.cfg.Tolerance(p.OriginTimeframe)
	volScore := technical.Clamp(c.volume / 2)
	touchScore := math.Min(float64(p.Touches)/5, 1)

	p.InstitutionalInterest = technical.Clamp(0.35*volScore +
		0.25*killzone.Weight(p.OriginSession) +
		0.20*timeframeWeight(p.OriginTimeframe) +
		0.20*touchScore)
	p.Strength = technical.Clamp(0.5*math.Min(float64(p.Touches)/4, 1) + 0.2*technical.Clamp(c.recency) + 0.3*volScore)

	if p.Kind.BuySide() {
		p.ExpectedReaction = model.Bearish
		p.InvalidationPrice = p.PriceLevel + 2*tol
	} else {
		p.ExpectedReaction = model.Bullish
		p.InvalidationPrice = p.PriceLevel - 2*tol
	}
	return p
}

func timeframeWeight(tf model.Timeframe) float64 {
	switch tf {
	case model.D1, model.H4:
		return 1.0
	case model.H1:
		return 0.8
	case model.M15:
		return 0.6
	default:
		return 0.5
	}
}

func invalidated(p model.LiquidityPool, price float64) bool {
	if p.Kind.BuySide() {
		return price > p.InvalidationPrice
	}
	return price < p.InvalidationPrice
}

func relative(k model.PoolKind) model.PoolKind {
	if k == model.EqualHighs {
		return model.RelativeEqualHighs
	}
	return model.RelativeEqualLows
}

func (d *Detector) overlaps(pools []candidate, c candidate) bool {
	for _, p := range pools {
		if p.pool.Kind.BuySide() != c.pool.Kind.BuySide() {
			continue
		}
		tol := math.Max(d.cfg.Tolerance(p.pool.OriginTimeframe), d.cfg.Tolerance(c.pool.OriginTimeframe))
		if math.Abs(p.pool.PriceLevel-c.pool.PriceLevel) <= tol {
			return true
		}
	}
	return false
}

func filter(candles []model.Candle, keep func(time.Time) bool) []model.Candle {
	var out []model.Candle
	for _, c := range candles {
		if keep(c.Timestamp) {
			out = append(out, c)
		}
	}
	return out
}
