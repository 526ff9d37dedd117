package technical

import (
	"math"

	"github.com/Alias1177/SmartMoney/internal/model"
)

// NetChange returns the close-to-close change across candles.
func NetChange(candles []model.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	return candles[len(candles)-1].Close - candles[0].Close
}

// CandleBalance counts bullish and bearish candles.
func CandleBalance(candles []model.Candle) (bullish, bearish int) {
	for _, c := range candles {
		if c.Bullish() {
			bullish++
		} else if c.Bearish() {
			bearish++
		}
	}
	return bullish, bearish
}

// BalanceScore is 1 when bullish and bearish candles are evenly split and 0 when one side
// has them all.
func BalanceScore(candles []model.Candle) float64 {
	bull, bear := CandleBalance(candles)
	if bull+bear == 0 {
		return 0
	}
	return 1 - math.Abs(float64(bull-bear))/float64(bull+bear)
}

// Clamp bounds v to [0,1]; NaN becomes 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
