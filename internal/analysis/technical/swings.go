package technical

import "github.com/Alias1177/SmartMoney/internal/model"

// Swing is a local extreme confirmed by `window` bars on each side.
type Swing struct {
	Index int
	Price float64
}

// SwingHighs finds bars whose high is strictly above the highs of the surrounding window.
func SwingHighs(candles []model.Candle, window int) []Swing {
	return swings(candles, window, func(a, b model.Candle) bool { return a.High > b.High }, func(c model.Candle) float64 { return c.High })
}

// SwingLows finds bars whose low is strictly below the lows of the surrounding window.
func SwingLows(candles []model.Candle, window int) []Swing {
	return swings(candles, window, func(a, b model.Candle) bool { return a.Low < b.Low }, func(c model.Candle) float64 { return c.Low })
}

func swings(candles []model.Candle, window int, beats func(a, b model.Candle) bool, price func(model.Candle) float64) []Swing {
	if window < 1 || len(candles) < 2*window+1 {
		return nil
	}

	var out []Swing
	for i := window; i < len(candles)-window; i++ {
		extreme := true
		for k := 1; k <= window; k++ {
			if !beats(candles[i], candles[i-k]) || !beats(candles[i], candles[i+k]) {
				extreme = false
				break
			}
		}
		if extreme {
			out = append(out, Swing{Index: i, Price: price(candles[i])})
		}
	}
	return out
}
