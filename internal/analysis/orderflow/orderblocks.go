package orderflow

import (
	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/model"
)

// maxBaseSearch bounds how far back from a displacement the opposite candle may sit.
const maxBaseSearch = 5

// FindOrderBlocks marks the last opposite-coloured candle before every displacement bar
// whose body is at least DisplacementATR times the prior ATR. Only the trailing
// OrderBlockLookback bars are scanned. Blocks are returned oldest first.
func FindOrderBlocks(candles []model.Candle, cfg Config) []model.OrderBlock {
	prepared := technical.Prepare(candles).Candles
	if len(prepared) < 2 {
		return nil
	}
	atr := technical.ATRSeries(prepared, cfg.ATRPeriod)

	start := len(prepared) - cfg.OrderBlockLookback
	if start < 1 {
		start = 1
	}

	var out []model.OrderBlock
	lastBase := -1
	for i := start; i < len(prepared); i++ {
		bar := prepared[i]
		if atr[i-1] <= 0 || bar.Body() < cfg.DisplacementATR*atr[i-1] {
			continue
		}

		kind := model.Bullish
		opposite := model.Candle.Bearish
		if bar.Bearish() {
			kind = model.Bearish
			opposite = model.Candle.Bullish
		}

		for k := i - 1; k >= 0 && k >= i-maxBaseSearch; k-- {
			if !opposite(prepared[k]) {
				continue
			}
			if k != lastBase {
				out = append(out, model.OrderBlock{
					Kind:      kind,
					High:      prepared[k].High,
					Low:       prepared[k].Low,
					Timestamp: prepared[k].Timestamp,
				})
				lastBase = k
			}
			break
		}
	}
	return out
}
