package technical

import (
	"github.com/Alias1177/SmartMoney/internal/model"
	talib "github.com/markcheno/go-talib"
)

// Volumes returns candle volumes as floats.
func Volumes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = float64(c.Volume)
	}
	return out
}

// HasVolume reports whether any candle carries volume data.
func HasVolume(candles []model.Candle) bool {
	for _, c := range candles {
		if c.Volume > 0 {
			return true
		}
	}
	return false
}

// RollingAverage returns the simple moving average of values; entries before the first
// full period are zero.
func RollingAverage(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return make([]float64, len(values))
	}
	return talib.Sma(values, period)
}

// AverageVolume calculates the average volume over candles
func AverageVolume(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var total uint64
	for _, c := range candles {
		total += c.Volume
	}
	return float64(total) / float64(len(candles))
}

// VolumeRatio returns recent average volume over baseline average volume. Without baseline
// volume the ratio is neutral (1).
func VolumeRatio(recent, baseline []model.Candle) float64 {
	base := AverageVolume(baseline)
	if base == 0 {
		return 1
	}
	return AverageVolume(recent) / base
}

// UpVolumeShare returns the share of volume traded on bullish candles, 0.5 without volume.
func UpVolumeShare(candles []model.Candle) float64 {
	var up, total uint64
	for _, c := range candles {
		total += c.Volume
		if c.Bullish() {
			up += c.Volume
		}
	}
	if total == 0 {
		return 0.5
	}
	return float64(up) / float64(total)
}

// VolumeTrendMonotonicity returns the fraction of consecutive bars whose volume rose.
func VolumeTrendMonotonicity(candles []model.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	rising := 0
	for i := 1; i < len(candles); i++ {
		if candles[i].Volume > candles[i-1].Volume {
			rising++
		}
	}
	return float64(rising) / float64(len(candles)-1)
}
