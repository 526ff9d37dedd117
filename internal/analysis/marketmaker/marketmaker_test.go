package marketmaker

import (
	"testing"
	"time"

	"github.com/Alias1177/SmartMoney/internal/model"
)

var base = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func generateTestCandles(n int, fn func(i int) model.Candle) []model.Candle {
	candles := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = fn(i)
	}
	return candles
}

// quiet returns a calm 15-minute bar whose high cycles between 1.0815 and 1.0819.
func quiet(i int) model.Candle {
	return model.Candle{
		Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
		Open:      1.0810,
		High:      1.0815 + 0.0001*float64(i%5),
		Low:       1.0805,
		Close:     1.0812,
		Volume:    1000,
	}
}

// stopHuntSeries has a swing high at 1.0825 (bar 12), a 20-pip spike above it at bar 22
// that closes back below, and a reversal close at bar 23.
func stopHuntSeries() []model.Candle {
	return generateTestCandles(30, func(i int) model.Candle {
		c := quiet(i)
		switch i {
		case 12:
			c.High = 1.0825
		case 22:
			c.Open, c.High, c.Low, c.Close, c.Volume = 1.0812, 1.0845, 1.0810, 1.0820, 3000
		case 23:
			c.Open, c.High, c.Low, c.Close = 1.0818, 1.0820, 1.0808, 1.0812
		}
		return c
	})
}

func TestStopHuntScenario(t *testing.T) {
	candles := stopHuntSeries()
	events, status := NewStopHuntDetector(DefaultConfig()).Detect(candles)
	if status != model.StatusOK {
		t.Fatalf("status = %s, want ok", status)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}

	ev := events[0]
	if ev.Type != model.BearishStopHunt {
		t.Errorf("type = %s, want bearish_stop_hunt", ev.Type)
	}
	if ev.TargetLevel != 1.0825 || ev.LevelSource != "swing" {
		t.Errorf("level = %v from %s, want swing 1.0825", ev.TargetLevel, ev.LevelSource)
	}
	if ev.ReversalBarCount < 1 || ev.ReversalBarCount > DefaultConfig().Lookahead {
		t.Errorf("reversal bar count = %d", ev.ReversalBarCount)
	}
	if !ev.SpikeTime.Equal(candles[22].Timestamp) {
		t.Errorf("spike time = %s, want bar 22", ev.SpikeTime)
	}
	if ev.Strength < 0 || ev.Strength > 1 {
		t.Errorf("strength %v out of range", ev.Strength)
	}
	if ev.Confidence != model.ConfidenceHigh {
		t.Errorf("confidence = %s, want high (strength %.3f, volume ratio %.2f)", ev.Confidence, ev.Strength, ev.VolumeRatio)
	}
}

func TestStopHuntBreakoutIsNotAHunt(t *testing.T) {
	candles := stopHuntSeries()
	// spike closes above the level: a genuine breakout
	candles[22].Close = 1.0840
	candles[23].Open, candles[23].High, candles[23].Close = 1.0840, 1.0850, 1.0845

	events, _ := NewStopHuntDetector(DefaultConfig()).Detect(candles)
	for _, ev := range events {
		if ev.Type == model.BearishStopHunt {
			t.Errorf("unexpected stop hunt %+v", ev)
		}
	}
}

func TestStopHuntSlowReversal(t *testing.T) {
	candles := stopHuntSeries()
	// reversal arrives four bars after the spike, outside the lookahead
	candles[23].Low, candles[23].Close = 1.0812, 1.0818
	for i := 24; i <= 25; i++ {
		candles[i].High, candles[i].Close = 1.0820, 1.0818
	}
	candles[26].Close = 1.0810

	events, _ := NewStopHuntDetector(DefaultConfig()).Detect(candles)
	if len(events) != 0 {
		t.Errorf("got %d events, want none: %+v", len(events), events)
	}
}

func TestDetectInsufficientData(t *testing.T) {
	res := NewDetector(DefaultConfig()).Detect(Input{M15: generateTestCandles(10, quiet)})
	if res.Status != model.StatusInsufficientData || res.StopHuntStatus != model.StatusInsufficientData {
		t.Errorf("status = %s / %s, want insufficient_data", res.Status, res.StopHuntStatus)
	}
	if res.Behavior != nil {
		t.Error("insufficient data must not produce a behaviour")
	}
}

func TestDetectStopHuntBehavior(t *testing.T) {
	pools := []model.LiquidityPool{
		{Kind: model.EqualLows, PriceLevel: 1.0780, Strength: 0.6, Touches: 2},
		{Kind: model.EqualHighs, PriceLevel: 1.0860, Strength: 0.9, Touches: 3},
	}
	res := NewDetector(DefaultConfig()).Detect(Input{M15: stopHuntSeries(), Pools: pools, Session: model.SessionLondon})
	if res.Status != model.StatusOK {
		t.Fatalf("status = %s", res.Status)
	}

	mm := res.Behavior
	if mm.Behavior != model.StopHunt {
		t.Fatalf("behavior = %s, want stop_hunt (scores %v)", mm.Behavior, mm.Scores)
	}
	if mm.Bias != model.DirectionBearish {
		t.Errorf("bias = %s, want bearish", mm.Bias)
	}
	if mm.TargetLiquidity == nil || mm.TargetLiquidity.PriceLevel != 1.0860 {
		t.Errorf("target = %+v, want strongest pool", mm.TargetLiquidity)
	}
	for b, s := range mm.Scores {
		if s < 0 || s > 1 {
			t.Errorf("%s score %v out of range", b, s)
		}
	}
	if mm.Probability < 0 || mm.Probability > 1 || mm.ManipulationEvidence < 0 || mm.ManipulationEvidence > 1 {
		t.Errorf("probability %v evidence %v", mm.Probability, mm.ManipulationEvidence)
	}
}

func TestDetectNormalTrading(t *testing.T) {
	res := NewDetector(DefaultConfig()).Detect(Input{M15: generateTestCandles(40, quiet)})
	if res.Status != model.StatusOK {
		t.Fatalf("status = %s", res.Status)
	}
	mm := res.Behavior
	if mm.Behavior != model.NormalTrading {
		t.Fatalf("behavior = %s, want normal_trading (scores %v)", mm.Behavior, mm.Scores)
	}
	max := 0.0
	for _, s := range mm.Scores {
		if s > max {
			max = s
		}
	}
	if mm.ManipulationEvidence != max/2 {
		t.Errorf("evidence = %v, want half of max score %v", mm.ManipulationEvidence, max)
	}
	if mm.TargetLiquidity != nil {
		t.Error("no pools supplied, target must be nil")
	}
}
