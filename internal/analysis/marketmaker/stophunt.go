package marketmaker

import (
	"math"
	"sort"

	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/model"
)

// stopLevel is a price where stops are assumed to rest.
type stopLevel struct {
	price  float64
	source string
	above  bool // stops of short sellers, hunted by an upward spike
	from   int  // first bar allowed to spike it
	sticky bool // a close through the level retires it
}

// StopHuntDetector finds spikes through stop levels that reverse within a few bars
type StopHuntDetector struct {
	cfg Config
}

// NewStopHuntDetector creates a stop-hunt detector
func NewStopHuntDetector(cfg Config) *StopHuntDetector {
	return &StopHuntDetector{cfg: cfg}
}

// Detect scans candles for stop hunts against swing and round-number levels. At most one
// event is kept per spike bar and direction, the strongest one.
func (d *StopHuntDetector) Detect(candles []model.Candle) ([]model.StopHuntEvent, model.StepStatus) {
	candles = technical.Prepare(candles).Candles
	if len(candles) < d.cfg.MinCandles {
		return nil, model.StatusInsufficientData
	}

	atr := technical.ATRSeries(candles, d.cfg.ATRPeriod)
	avgVol := technical.RollingAverage(technical.Volumes(candles), d.cfg.VolumeAvgPeriod)

	best := make(map[[2]int]model.StopHuntEvent)
	for _, lvl := range d.levels(candles) {
		for _, ev := range d.scan(candles, lvl, atr, avgVol) {
			side := 0
			if ev.Type == model.BullishStopHunt {
				side = 1
			}
			key := [2]int{ev.SpikeIndex, side}
			if cur, ok := best[key]; !ok || ev.Strength > cur.Strength {
				best[key] = ev
			}
		}
	}

	events := make([]model.StopHuntEvent, 0, len(best))
	for _, ev := range best {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].SpikeIndex != events[j].SpikeIndex {
			return events[i].SpikeIndex < events[j].SpikeIndex
		}
		return events[i].Type < events[j].Type
	})
	return events, model.StatusOK
}

func (d *StopHuntDetector) levels(candles []model.Candle) []stopLevel {
	var out []stopLevel
	w := d.cfg.SwingWindow
	for _, s := range technical.SwingHighs(candles, w) {
		out = append(out, stopLevel{price: s.Price, source: "swing", above: true, from: s.Index + w + 1, sticky: true})
	}
	for _, s := range technical.SwingLows(candles, w) {
		out = append(out, stopLevel{price: s.Price, source: "swing", above: false, from: s.Index + w + 1, sticky: true})
	}

	last, _ := technical.Last(candles)
	for _, p := range technical.RoundNumberLevels(last.Close, d.cfg.RoundNumberStep, d.cfg.RoundNumberLevels) {
		out = append(out,
			stopLevel{price: p, source: "round_number", above: true, from: 1},
			stopLevel{price: p, source: "round_number", above: false, from: 1},
		)
	}
	return out
}

// scan walks forward from the level's first eligible bar looking for a spike whose close
// stays on the pre-spike side, then for a reversal close within Lookahead bars.
func (d *StopHuntDetector) scan(candles []model.Candle, lvl stopLevel, atr, avgVol []float64) []model.StopHuntEvent {
	pip := d.cfg.PipSize
	minPips := technical.Pips(d.cfg.SpikeThresholdPips, pip)
	revMin := technical.Pips(d.cfg.ReversalMinPips, pip)

	// beyond reports how far a price sits past the level in the spike direction
	beyond := func(price float64) float64 {
		if lvl.above {
			return price - lvl.price
		}
		return lvl.price - price
	}

	var out []model.StopHuntEvent
	start := lvl.from
	if start < 1 {
		start = 1
	}
	for j := start; j < len(candles); j++ {
		bar := candles[j]
		if lvl.sticky && beyond(bar.Close) > 0 {
			break
		}
		if beyond(candles[j-1].Close) > 0 || beyond(bar.Close) > 0 {
			continue
		}

		spikePrice := bar.Low
		if lvl.above {
			spikePrice = bar.High
		}
		spike := beyond(spikePrice)
		threshold := math.Max(minPips, 0.5*atr[j-1])
		if spike < threshold {
			continue
		}

		for k := 1; k <= d.cfg.Lookahead && j+k < len(candles); k++ {
			c := candles[j+k].Close
			if beyond(c) > 0 {
				break
			}
			if rev := -beyond(c); rev >= revMin {
				out = append(out, d.event(candles, lvl, j, k, spike, rev, threshold, revMin, avgVol))
				break
			}
		}
	}
	return out
}

func (d *StopHuntDetector) event(candles []model.Candle, lvl stopLevel, j, k int, spike, rev, threshold, revMin float64, avgVol []float64) model.StopHuntEvent {
	volRatio := 1.0
	avg := avgVol[j-1]
	if avg <= 0 {
		avg = technical.AverageVolume(candles[:j])
	}
	if avg > 0 {
		volRatio = float64(candles[j].Volume) / avg
	}

	speed := 1 - float64(k-1)/float64(d.cfg.Lookahead)
	strength := technical.Clamp(0.30*technical.Clamp(spike/(2*threshold)) +
		0.25*technical.Clamp(rev/(2*revMin)) +
		0.25*technical.Clamp(speed) +
		0.20*technical.Clamp(volRatio/3))

	confidence := model.ConfidenceLow
	switch {
	case strength >= 0.7 && volRatio >= 1.5:
		confidence = model.ConfidenceHigh
	case strength >= 0.5:
		confidence = model.ConfidenceMedium
	}

	typ := model.BullishStopHunt
	if lvl.above {
		typ = model.BearishStopHunt
	}
	return model.StopHuntEvent{
		Type:             typ,
		TargetLevel:      lvl.price,
		LevelSource:      lvl.source,
		SpikeSize:        spike,
		ReversalSize:     rev,
		ReversalBarCount: k,
		VolumeRatio:      volRatio,
		Strength:         strength,
		Confidence:       confidence,
		SpikeTime:        candles[j].Timestamp,
		SpikeIndex:       j,
	}
}
