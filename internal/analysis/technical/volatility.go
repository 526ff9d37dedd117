package technical

import (
	"math"

	"github.com/Alias1177/SmartMoney/internal/model"
	talib "github.com/markcheno/go-talib"
)

// TrueRange returns the true range of candles[i] against the previous close.
func TrueRange(candles []model.Candle, i int) float64 {
	c := candles[i]
	if i == 0 {
		return c.High - c.Low
	}
	prevClose := candles[i-1].Close
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// ATRSeries returns Wilder's ATR for every bar. Bars before the first full period
// hold the running mean of true ranges seen so far.
func ATRSeries(candles []model.Candle, period int) []float64 {
	n := len(candles)
	out := make([]float64, n)
	if n == 0 || period < 1 {
		return out
	}

	// Warm-up: plain mean of the true ranges available so far
	var sum float64
	for i := 0; i < n && i <= period; i++ {
		sum += TrueRange(candles, i)
		out[i] = sum / float64(i+1)
	}

	if n <= period {
		return out
	}

	highs, lows, closes := Prices(candles)
	atr := talib.Atr(highs, lows, closes, period)
	for i := period; i < n; i++ {
		out[i] = atr[i]
	}
	return out
}

// ATR returns the latest Average True Range
func ATR(candles []model.Candle, period int) float64 {
	series := ATRSeries(candles, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// AverageRange returns the mean high-low range of candles.
func AverageRange(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candles {
		sum += c.Range()
	}
	return sum / float64(len(candles))
}

// Prices splits candles into high, low and close arrays.
func Prices(candles []model.Candle) (highs, lows, closes []float64) {
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	closes = make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}
	return highs, lows, closes
}

// HighestHigh returns the highest high and its index, -1 for an empty slice.
func HighestHigh(candles []model.Candle) (float64, int) {
	idx := -1
	best := math.Inf(-1)
	for i, c := range candles {
		if c.High > best {
			best = c.High
			idx = i
		}
	}
	return best, idx
}

// LowestLow returns the lowest low and its index, -1 for an empty slice.
func LowestLow(candles []model.Candle) (float64, int) {
	idx := -1
	best := math.Inf(1)
	for i, c := range candles {
		if c.Low < best {
			best = c.Low
			idx = i
		}
	}
	return best, idx
}
