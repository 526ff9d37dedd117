package technical

import (
	"fmt"
	"sort"

	"github.com/Alias1177/SmartMoney/internal/model"
)

// Prepared is a cleaned candle series plus what had to be done to it.
type Prepared struct {
	Candles   []model.Candle
	Rejected  int
	Reordered bool
	Issues    []error
}

// Prepare copies candles, sorts them by timestamp and drops invalid bars and duplicate
// timestamps. The caller's slice is never modified.
func Prepare(candles []model.Candle) Prepared {
	out := Prepared{Candles: make([]model.Candle, 0, len(candles))}
	if len(candles) == 0 {
		return out
	}

	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			out.Reordered = true
			break
		}
	}

	sorted := make([]model.Candle, len(candles))
	copy(sorted, candles)
	if out.Reordered {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})
	}

	for _, c := range sorted {
		if !c.Valid() {
			out.Rejected++
			out.Issues = append(out.Issues, fmt.Errorf("%w: bad prices at %s", model.ErrInvalidCandle, c.Timestamp.Format("2006-01-02 15:04")))
			continue
		}
		if n := len(out.Candles); n > 0 && !c.Timestamp.After(out.Candles[n-1].Timestamp) {
			out.Rejected++
			out.Issues = append(out.Issues, fmt.Errorf("%w: duplicate timestamp %s", model.ErrInvalidCandle, c.Timestamp.Format("2006-01-02 15:04")))
			continue
		}
		out.Candles = append(out.Candles, c)
	}

	return out
}

// Last returns the most recent candle and false when the series is empty.
func Last(candles []model.Candle) (model.Candle, bool) {
	if len(candles) == 0 {
		return model.Candle{}, false
	}
	return candles[len(candles)-1], true
}

// Tail returns at most n trailing candles.
func Tail(candles []model.Candle, n int) []model.Candle {
	if n <= 0 {
		return nil
	}
	if len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}

// Until returns the prefix of candles with timestamps not after t.
func Until(candles []model.Candle, t int64) []model.Candle {
	idx := sort.Search(len(candles), func(i int) bool {
		return candles[i].Timestamp.Unix() > t
	})
	return candles[:idx]
}
