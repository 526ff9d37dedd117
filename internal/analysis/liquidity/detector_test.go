package liquidity

import (
	"math"
	"testing"
	"time"

	"github.com/Alias1177/SmartMoney/internal/model"
)

var base = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func generateTestCandles(n int, fn func(i int) model.Candle) []model.Candle {
	candles := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = fn(i)
	}
	return candles
}

// doubleTop builds a falling hourly series with two isolated peaks at bars 10 and 16.
func doubleTop(first, second float64) []model.Candle {
	return generateTestCandles(40, func(i int) model.Candle {
		h := 1.0840 - float64(i)*0.0002
		c := model.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      h - 0.0006,
			High:      h,
			Low:       h - 0.0010,
			Close:     h - 0.0004,
			Volume:    1000,
		}
		switch i {
		case 10:
			c.High = first
		case 16:
			c.High = second
		}
		return c
	})
}

func countKind(pools []model.LiquidityPool, kind model.PoolKind) (int, model.LiquidityPool) {
	n := 0
	var last model.LiquidityPool
	for _, p := range pools {
		if p.Kind == kind {
			n++
			last = p
		}
	}
	return n, last
}

func TestDetectEqualHighs(t *testing.T) {
	tests := []struct {
		name          string
		first, second float64
		kind          model.PoolKind
		level         float64
	}{
		{"highs inside tolerance", 1.0850, 1.0851, model.EqualHighs, 1.0851},
		{"highs inside cluster band only", 1.0850, 1.0855, model.RelativeEqualHighs, 1.0855},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(DefaultConfig())
			candles := doubleTop(tt.first, tt.second)
			res := d.Detect(Frame{TF: model.H1, Candles: candles}, Frame{}, Frame{}, candles[len(candles)-1].Close)

			if res.Status != model.StatusOK {
				t.Fatalf("status = %s, want ok", res.Status)
			}
			n, pool := countKind(res.Pools, tt.kind)
			if n != 1 {
				t.Fatalf("got %d %s pools, want 1: %+v", n, tt.kind, res.Pools)
			}
			if pool.Touches < 2 {
				t.Errorf("touches = %d, want >= 2", pool.Touches)
			}
			if pool.PriceLevel != tt.level {
				t.Errorf("level = %v, want %v", pool.PriceLevel, tt.level)
			}
			if pool.ExpectedReaction != model.Bearish || pool.InvalidationPrice <= pool.PriceLevel {
				t.Errorf("buy-side pool reaction %s invalidation %v", pool.ExpectedReaction, pool.InvalidationPrice)
			}
			if pool.OriginSession != model.SessionLondon {
				t.Errorf("origin session = %s, want london", pool.OriginSession)
			}
			if n, _ := countKind(res.Pools, model.EqualLows); n != 0 {
				t.Errorf("unexpected equal lows: %d", n)
			}
		})
	}
}

func TestDetectCloseNeighbourHighs(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		highs map[int]float64
		level float64
	}{
		{"adjacent, second higher", 40, map[int]float64{10: 1.0850, 11: 1.08502}, 1.08502},
		{"adjacent, second lower", 40, map[int]float64{10: 1.0850, 11: 1.08499}, 1.0850},
		{"adjacent, identical", 40, map[int]float64{10: 1.0850, 11: 1.0850}, 1.0850},
		{"one bar apart", 40, map[int]float64{10: 1.0850, 12: 1.0851}, 1.0851},
		{"retest on the last bar", 21, map[int]float64{10: 1.0850, 20: 1.0851}, 1.0851},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles := doubleTop(1.0850, 1.0851)[:tt.n]
			// flatten the second peak of the fixture
			candles[16].High = candles[16].Open + 0.0006
			for i, h := range tt.highs {
				candles[i].High = h
			}

			d := NewDetector(DefaultConfig())
			res := d.Detect(Frame{TF: model.H1, Candles: candles}, Frame{}, Frame{}, candles[len(candles)-1].Close)
			n, pool := countKind(res.Pools, model.EqualHighs)
			if n != 1 {
				t.Fatalf("got %d equal highs pools, want 1: %+v", n, res.Pools)
			}
			if pool.Touches < 2 {
				t.Errorf("touches = %d, want >= 2", pool.Touches)
			}
			if pool.PriceLevel != tt.level {
				t.Errorf("level = %v, want %v", pool.PriceLevel, tt.level)
			}
			if n, _ := countKind(res.Pools, model.RelativeEqualHighs); n != 0 {
				t.Errorf("unexpected relative equal highs: %d", n)
			}
		})
	}
}

func TestDetectInsufficientData(t *testing.T) {
	d := NewDetector(DefaultConfig())
	candles := doubleTop(1.0850, 1.0851)[:10]

	res := d.Detect(Frame{TF: model.H4, Candles: candles}, Frame{}, Frame{}, 1.08)
	if res.Status != model.StatusInsufficientData {
		t.Errorf("status = %s, want insufficient_data", res.Status)
	}
	if len(res.Pools) != 0 {
		t.Errorf("expected no pools, got %d", len(res.Pools))
	}
}

func TestDetectExcludesInvalidBars(t *testing.T) {
	d := NewDetector(DefaultConfig())
	candles := doubleTop(1.0850, 1.0851)
	candles = append(candles, model.Candle{
		Timestamp: base.Add(40 * time.Hour),
		Open:      1.08, High: math.NaN(), Low: 1.07, Close: 1.08,
	})

	res := d.Detect(Frame{TF: model.H1, Candles: candles}, Frame{}, Frame{}, 0)
	if res.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", res.Rejected)
	}
	if n, _ := countKind(res.Pools, model.EqualHighs); n != 1 {
		t.Errorf("got %d equal highs pools, want 1", n)
	}
	for _, p := range res.Pools {
		if math.IsNaN(p.PriceLevel) {
			t.Fatal("NaN level leaked into pools")
		}
	}
}

func TestDetectLowFrameConfirmations(t *testing.T) {
	d := NewDetector(DefaultConfig())
	candles := doubleTop(1.0850, 1.0851)
	low := []model.Candle{
		{Timestamp: base.Add(17*time.Hour + 15*time.Minute), Open: 1.0842, High: 1.0852, Low: 1.0838, Close: 1.0840, Volume: 300},
		{Timestamp: base.Add(17*time.Hour + 30*time.Minute), Open: 1.0840, High: 1.0850, Low: 1.0836, Close: 1.0838, Volume: 300},
		// closes above the level, not a rejection
		{Timestamp: base.Add(17*time.Hour + 45*time.Minute), Open: 1.0838, High: 1.0856, Low: 1.0836, Close: 1.0853, Volume: 300},
	}

	res := d.Detect(Frame{TF: model.H1, Candles: candles}, Frame{}, Frame{TF: model.M15, Candles: low}, 0)
	n, pool := countKind(res.Pools, model.EqualHighs)
	if n != 1 {
		t.Fatalf("got %d equal highs pools, want 1", n)
	}
	if pool.Touches != 4 {
		t.Errorf("touches = %d, want 4", pool.Touches)
	}
}

func TestDetectBounds(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDetector(cfg)
	h1 := generateTestCandles(120, func(i int) model.Candle {
		o := 1.0800 + 0.0030*math.Sin(float64(i)/3)
		c := o + 0.0004*math.Cos(float64(i))
		return model.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      o,
			High:      math.Max(o, c) + 0.0003 + 0.0001*float64(i%4),
			Low:       math.Min(o, c) - 0.0003 - 0.0001*float64(i%3),
			Close:     c,
			Volume:    uint64(800 + (i%7)*150),
		}
	})
	price := h1[len(h1)-1].Close

	res := d.Detect(Frame{TF: model.H1, Candles: h1}, Frame{}, Frame{}, price)
	if res.Status != model.StatusOK {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Pools) > cfg.MaxPools {
		t.Errorf("got %d pools, max %d", len(res.Pools), cfg.MaxPools)
	}
	for i, p := range res.Pools {
		if p.Strength < 0 || p.Strength > 1 {
			t.Errorf("pool %d strength %v out of range", i, p.Strength)
		}
		if p.InstitutionalInterest < cfg.MinInstitutionalInterest || p.InstitutionalInterest > 1 {
			t.Errorf("pool %d interest %v out of range", i, p.InstitutionalInterest)
		}
		if p.Touches < 1 {
			t.Errorf("pool %d touches %d", i, p.Touches)
		}
		if p.ExpectedReaction == model.Bearish && p.InvalidationPrice <= p.PriceLevel {
			t.Errorf("pool %d invalidation below bearish level", i)
		}
		if p.ExpectedReaction == model.Bullish && p.InvalidationPrice >= p.PriceLevel {
			t.Errorf("pool %d invalidation above bullish level", i)
		}
		if i > 0 && p.Strength > res.Pools[i-1].Strength {
			t.Errorf("pools not sorted by strength at %d", i)
		}
	}
}

func TestDetectDoesNotModifyInput(t *testing.T) {
	d := NewDetector(DefaultConfig())
	candles := doubleTop(1.0850, 1.0851)
	candles[5], candles[6] = candles[6], candles[5]
	before := candles[5]

	d.Detect(Frame{TF: model.H1, Candles: candles}, Frame{}, Frame{}, 0)
	if candles[5] != before {
		t.Error("Detect reordered the caller's slice")
	}
}
