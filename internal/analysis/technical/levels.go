package technical

import "github.com/shopspring/decimal"

// RoundNumberLevels returns the multiples of step nearest to price, `count` on each side.
// Decimal arithmetic keeps levels such as 1.0850 exact.
func RoundNumberLevels(price, step float64, count int) []float64 {
	if step <= 0 || count < 1 || price <= 0 {
		return nil
	}

	s := decimal.NewFromFloat(step)
	base := decimal.NewFromFloat(price).Div(s).Floor()

	levels := make([]float64, 0, 2*count)
	for k := -count + 1; k <= count; k++ {
		level := base.Add(decimal.NewFromInt(int64(k))).Mul(s)
		if !level.IsPositive() {
			continue
		}
		f, _ := level.Float64()
		levels = append(levels, f)
	}
	return levels
}

// Pips converts a pip count into a price distance.
func Pips(count, pipSize float64) float64 {
	d, _ := decimal.NewFromFloat(count).Mul(decimal.NewFromFloat(pipSize)).Float64()
	return d
}
