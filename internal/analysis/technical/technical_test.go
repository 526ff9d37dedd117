package technical

import (
	"errors"
	"math"
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

func flat(i int) model.Candle {
	return model.Candle{
		Timestamp: base.Add(time.Duration(i) * time.Hour),
		Open:      1.0805,
		High:      1.0810,
		Low:       1.0800,
		Close:     1.0805,
		Volume:    1000,
	}
}

func TestPrepare(t *testing.T) {
	candles := generateTestCandles(5, flat)
	candles[1], candles[3] = candles[3], candles[1]
	candles[2].High = math.NaN()
	candles = append(candles, candles[4])

	p := Prepare(candles)
	if !p.Reordered {
		t.Error("expected reordering to be reported")
	}
	if p.Rejected != 2 || len(p.Candles) != 4 {
		t.Fatalf("kept %d, rejected %d; want 4 and 2", len(p.Candles), p.Rejected)
	}
	for i := 1; i < len(p.Candles); i++ {
		if !p.Candles[i].Timestamp.After(p.Candles[i-1].Timestamp) {
			t.Errorf("candles not strictly ascending at %d", i)
		}
	}
	for _, err := range p.Issues {
		if !errors.Is(err, model.ErrInvalidCandle) {
			t.Errorf("issue %v does not wrap ErrInvalidCandle", err)
		}
	}
	if !candles[1].Timestamp.Equal(base.Add(3 * time.Hour)) {
		t.Error("input slice was modified")
	}
}

func TestTailAndUntil(t *testing.T) {
	candles := generateTestCandles(10, flat)

	tests := []struct {
		name     string
		got      []model.Candle
		expected int
	}{
		{"tail shorter", Tail(candles, 3), 3},
		{"tail longer", Tail(candles, 20), 10},
		{"tail zero", Tail(candles, 0), 0},
		{"until middle", Until(candles, base.Add(4*time.Hour).Unix()), 5},
		{"until before", Until(candles, base.Add(-time.Hour).Unix()), 0},
		{"until after", Until(candles, base.Add(24*time.Hour).Unix()), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.got) != tt.expected {
				t.Errorf("got %d candles, want %d", len(tt.got), tt.expected)
			}
		})
	}

	if last, ok := Last(candles); !ok || !last.Timestamp.Equal(base.Add(9*time.Hour)) {
		t.Errorf("Last() = %v, %v", last.Timestamp, ok)
	}
	if _, ok := Last(nil); ok {
		t.Error("Last(nil) should report false")
	}
}

func TestATR(t *testing.T) {
	candles := generateTestCandles(30, flat)

	series := ATRSeries(candles, 14)
	if len(series) != 30 {
		t.Fatalf("series length %d", len(series))
	}
	for i, v := range series {
		if math.Abs(v-0.0010) > 1e-9 {
			t.Errorf("atr[%d] = %v, want 0.0010", i, v)
		}
	}
	if got := ATR(candles[:5], 14); math.Abs(got-0.0010) > 1e-9 {
		t.Errorf("warm-up ATR = %v", got)
	}
	if ATR(nil, 14) != 0 {
		t.Error("empty ATR should be 0")
	}
}

func TestTrueRangeGap(t *testing.T) {
	candles := generateTestCandles(2, flat)
	candles[1].Open, candles[1].High, candles[1].Low, candles[1].Close = 1.0830, 1.0835, 1.0825, 1.0830

	// gap up from 1.0805: high minus previous close dominates
	if got := TrueRange(candles, 1); math.Abs(got-0.0030) > 1e-9 {
		t.Errorf("TrueRange = %v, want 0.0030", got)
	}
}

func TestRoundNumberLevels(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		step     float64
		count    int
		expected []float64
	}{
		{"two each side", 1.0832, 0.0050, 2, []float64{1.075, 1.080, 1.085, 1.090}},
		{"one each side", 1.0832, 0.0050, 1, []float64{1.080, 1.085}},
		{"yen pair", 151.37, 0.50, 1, []float64{151.0, 151.5}},
		{"bad step", 1.0832, 0, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundNumberLevels(tt.price, tt.step, tt.count)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("level %d = %v, want %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestPips(t *testing.T) {
	if got := Pips(10, 0.0001); got != 0.001 {
		t.Errorf("Pips(10) = %v, want 0.001", got)
	}
}

func TestSwings(t *testing.T) {
	highs := []float64{1.0810, 1.0815, 1.0830, 1.0815, 1.0812, 1.0820, 1.0820, 1.0811, 1.0810}
	candles := generateTestCandles(len(highs), func(i int) model.Candle {
		c := flat(i)
		c.High = highs[i]
		c.Low = highs[i] - 0.0020
		c.Open, c.Close = c.Low+0.0005, c.Low+0.0005
		return c
	})

	sh := SwingHighs(candles, 2)
	// the 1.0820 pair is a tie and does not qualify
	if len(sh) != 1 || sh[0].Index != 2 || sh[0].Price != 1.0830 {
		t.Errorf("SwingHighs = %+v", sh)
	}

	sl := SwingLows(candles, 2)
	if len(sl) != 1 || sl[0].Index != 4 {
		t.Errorf("SwingLows = %+v", sl)
	}

	if SwingHighs(candles[:3], 2) != nil {
		t.Error("too few candles should give no swings")
	}
}

func TestVolumeHelpers(t *testing.T) {
	candles := generateTestCandles(4, func(i int) model.Candle {
		c := flat(i)
		c.Volume = uint64(1000 * (i + 1))
		if i%2 == 0 {
			c.Close = 1.0808
		}
		return c
	})

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"average volume", AverageVolume(candles), 2500},
		{"volume ratio", VolumeRatio(candles[2:], candles[:2]), 3.5 / 1.5},
		{"ratio without baseline", VolumeRatio(candles, nil), 1},
		{"up volume share", UpVolumeShare(candles), 4.0 / 10},
		{"monotonic rise", VolumeTrendMonotonicity(candles), 1},
		{"balance", BalanceScore(candles), 0},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.expected) > 1e-9 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
		}
	}

	avg := RollingAverage(Volumes(candles), 2)
	if avg[0] != 0 || avg[1] != 1500 || avg[3] != 3500 {
		t.Errorf("RollingAverage = %v", avg)
	}
	if !HasVolume(candles) || HasVolume(generateTestCandles(2, func(i int) model.Candle { return model.Candle{} })) {
		t.Error("HasVolume mismatch")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, expected float64
	}{
		{-0.5, 0},
		{0.4, 0.4},
		{1.7, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.expected {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}
