package backtest

import (
	"math"

	"github.com/Alias1177/SmartMoney/internal/model"
)

// calculateMetrics fills the aggregate fields of results from its trades.
func calculateMetrics(results *model.BacktestResults) {
	var totalProfit, totalLoss float64
	var consecutiveWins, consecutiveLosses int
	var equity, highWaterMark float64
	pips := make([]float64, 0, len(results.Trades))

	sessions := make(map[model.SessionName]*groupStats)
	signals := make(map[model.SignalType]*groupStats)

	for _, t := range results.Trades {
		results.TotalTrades++
		pips = append(pips, t.Pips)

		if t.WasCorrect {
			results.WinningTrades++
			totalProfit += t.Pips
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			results.LosingTrades++
			totalLoss += -t.Pips
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > results.MaxConsecutive.Wins {
			results.MaxConsecutive.Wins = consecutiveWins
		}
		if consecutiveLosses > results.MaxConsecutive.Loses {
			results.MaxConsecutive.Loses = consecutiveLosses
		}

		// Track drawdown on the pip equity curve
		equity += t.Pips
		if equity > highWaterMark {
			highWaterMark = equity
		} else if dd := highWaterMark - equity; dd > results.MaxDrawdown {
			results.MaxDrawdown = dd
		}

		group(sessions, t.Session).add(t)
		group(signals, t.Signal).add(t)
	}

	if results.TotalTrades > 0 {
		results.WinPercentage = float64(results.WinningTrades) / float64(results.TotalTrades) * 100
	}
	if results.WinningTrades > 0 {
		results.AverageGain = totalProfit / float64(results.WinningTrades)
	}
	if results.LosingTrades > 0 {
		results.AverageLoss = totalLoss / float64(results.LosingTrades)
	}

	// Profit factor
	if totalLoss > 0 {
		results.ProfitFactor = totalProfit / totalLoss
	} else {
		results.ProfitFactor = totalProfit // If no losses
	}

	// Per-trade Sharpe ratio, no annualization
	mean := calculateMean(pips)
	if sd := calculateStdDev(pips, mean); sd > 0 {
		results.SharpeRatio = mean / sd
	}

	for name, s := range sessions {
		results.SessionPerformance[name] = s.performance()
	}
	for name, s := range signals {
		results.SignalPerformance[name] = s.performance()
	}
}

type groupStats struct {
	trades, wins int
	pips         float64
}

func group[K comparable](m map[K]*groupStats, key K) *groupStats {
	s, ok := m[key]
	if !ok {
		s = &groupStats{}
		m[key] = s
	}
	return s
}

func (s *groupStats) add(t model.Trade) {
	s.trades++
	s.pips += t.Pips
	if t.WasCorrect {
		s.wins++
	}
}

func (s *groupStats) performance() model.GroupPerformance {
	if s.trades == 0 {
		return model.GroupPerformance{}
	}
	return model.GroupPerformance{
		Trades:      s.trades,
		Wins:        s.wins,
		WinRate:     float64(s.wins) / float64(s.trades),
		AveragePips: s.pips / float64(s.trades),
	}
}

// Helper functions
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}
