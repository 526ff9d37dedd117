package liquidity

import (
	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/model"
)

// pivots returns bars whose high (or low) is not exceeded by any bar within radius on
// either side. Unlike technical.SwingHighs ties qualify, so a flat double top yields two
// pivots.
func pivots(candles []model.Candle, radius int, highs bool) []technical.Swing {
	var out []technical.Swing
	for i := radius; i < len(candles)-radius; i++ {
		price := extremeOf(candles[i], highs)

		extreme := true
		for k := i - radius; k <= i+radius && extreme; k++ {
			if k == i {
				continue
			}
			if highs && candles[k].High > price {
				extreme = false
			}
			if !highs && candles[k].Low < price {
				extreme = false
			}
		}
		if extreme {
			out = append(out, technical.Swing{Index: i, Price: price})
		}
	}
	return out
}

// nearSeed returns the bars within radius of seed whose extreme sits within tol of the
// seed's price. Bars rejected by skip are left out. The series edges need no confirmation,
// so a retest in the last bars still counts.
func nearSeed(candles []model.Candle, seed technical.Swing, radius int, tol float64, highs bool, skip func(int) bool) []technical.Swing {
	lo := max(seed.Index-radius, 0)
	hi := min(seed.Index+radius, len(candles)-1)

	var out []technical.Swing
	for k := lo; k <= hi; k++ {
		if k == seed.Index || skip(k) {
			continue
		}
		price := extremeOf(candles[k], highs)
		if price-seed.Price <= tol && seed.Price-price <= tol {
			out = append(out, technical.Swing{Index: k, Price: price})
		}
	}
	return out
}

func extremeOf(c model.Candle, highs bool) float64 {
	if highs {
		return c.High
	}
	return c.Low
}
