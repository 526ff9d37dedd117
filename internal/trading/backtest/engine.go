package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/config"
	"github.com/Alias1177/SmartMoney/internal/engine"
	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/creasty/defaults"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the walk-forward replay.
type Config struct {
	Window        int     `yaml:"window" default:"200" validate:"gte=20"`   // bars per frame handed to each analysis
	History       int     `yaml:"history" default:"720" validate:"gte=0"`   // 1h bars of killzone history
	Step          int     `yaml:"step" default:"1" validate:"gte=1"`        // 1h bars between analyses
	Horizon       int     `yaml:"horizon" default:"4" validate:"gte=1"`     // 1h bars until a trade is graded
	MinConfidence float64 `yaml:"min_confidence" default:"0.7" validate:"gte=0,lte=1"`
	PipSize       float64 `yaml:"pip_size" default:"0.0001" validate:"gt=0"`
	MinTrades     int     `yaml:"min_trades" default:"10" validate:"gte=1"` // per session, for the performance map
}

// DefaultConfig returns the default replay settings.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// Analyzer runs one analysis. *engine.Engine satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req engine.Request) (*model.AnalysisResult, error)
}

// Engine handles backtesting operations
type Engine struct {
	analyzer Analyzer
	cfg      Config
	logger   zerolog.Logger
}

// NewEngine creates a new backtesting engine
func NewEngine(a Analyzer, cfg Config) (*Engine, error) {
	if err := config.ValidateSection(cfg); err != nil {
		return nil, err
	}
	return &Engine{
		analyzer: a,
		cfg:      cfg,
		logger:   log.With().Str("component", "backtest").Logger(),
	}, nil
}

// Run replays the analysis over frames, stepping along the 1h series. Every analysis only
// sees bars that closed by the end of the current hour; each directional signal that clears
// MinConfidence becomes a trade graded Horizon hours later.
func (e *Engine) Run(ctx context.Context, symbol string, frames map[model.Timeframe][]model.Candle) (*model.BacktestResults, error) {
	prepared := make(map[model.Timeframe][]model.Candle, len(frames))
	for tf, candles := range frames {
		prepared[tf] = technical.Prepare(candles).Candles
	}

	h1 := prepared[model.H1]
	start := e.cfg.Window - 1
	last := len(h1) - 1 - e.cfg.Horizon
	if len(h1) == 0 || start > last {
		return nil, fmt.Errorf("backtest needs more than %d 1h candles, got %d: %w",
			e.cfg.Window+e.cfg.Horizon, len(h1), model.ErrInsufficientData)
	}

	results := &model.BacktestResults{
		Symbol:             symbol,
		From:               h1[start].Timestamp,
		To:                 h1[last].Timestamp,
		SessionPerformance: make(map[model.SessionName]model.GroupPerformance),
		SignalPerformance:  make(map[model.SignalType]model.GroupPerformance),
	}

	for i := start; i <= last; i += e.cfg.Step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		closedBy := h1[i].Timestamp.Add(time.Hour)
		req := engine.Request{
			Symbol:  symbol,
			Candles: make(map[model.Timeframe][]model.Candle, len(prepared)),
			History: technical.Tail(h1[:i+1], e.cfg.History),
			Now:     h1[i].Timestamp,
		}
		for tf, candles := range prepared {
			req.Candles[tf] = technical.Tail(technical.Until(candles, lastOpen(tf, closedBy)), e.cfg.Window)
		}

		res, err := e.analyzer.Analyze(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("analysis at %s: %w", h1[i].Timestamp.Format(time.RFC3339), err)
		}
		results.Steps++

		entry := h1[i].Close
		exit := h1[i+e.cfg.Horizon].Close
		for _, s := range e.tradeable(res.Signals) {
			pips := (exit - entry) / e.cfg.PipSize
			if s.Direction == model.DirectionBearish {
				pips = -pips
			}
			results.Trades = append(results.Trades, model.Trade{
				Time:       h1[i].Timestamp,
				Session:    res.CurrentSession,
				Signal:     s.Type,
				Direction:  s.Direction,
				Confidence: s.Confidence,
				EntryPrice: entry,
				ExitPrice:  exit,
				Pips:       pips,
				WasCorrect: pips > 0,
			})
		}
	}

	calculateMetrics(results)

	e.logger.Info().
		Str("symbol", symbol).
		Int("steps", results.Steps).
		Int("trades", results.TotalTrades).
		Float64("win_percentage", results.WinPercentage).
		Msg("Backtest complete")

	return results, nil
}

// lastOpen is the latest open time of a tf bar that has closed by t.
func lastOpen(tf model.Timeframe, t time.Time) int64 {
	d := tf.Duration()
	if d <= 0 {
		return t.Unix() - 1
	}
	return t.Add(-d).Unix()
}

// tradeable keeps the strongest directional signal of each type that clears MinConfidence.
// Signals arrive strongest first.
func (e *Engine) tradeable(signals []model.Signal) []model.Signal {
	seen := make(map[model.SignalType]bool)
	var out []model.Signal
	for _, s := range signals {
		if s.Direction == model.DirectionNeutral || s.Confidence < e.cfg.MinConfidence || seen[s.Type] {
			continue
		}
		seen[s.Type] = true
		out = append(out, s)
	}
	return out
}

// PerformanceMap turns per-session win rates into killzone performance input. Sessions
// with fewer than minTrades trades are left out.
func PerformanceMap(results *model.BacktestResults, minTrades int) killzone.PerformanceMap {
	perf := make(killzone.PerformanceMap)
	if results == nil {
		return perf
	}
	for name, p := range results.SessionPerformance {
		if p.Trades < minTrades {
			continue
		}
		perf[name] = killzone.SuccessRateStat{SuccessRate: p.WinRate, Samples: p.Trades}
	}
	return perf
}

// FormatResults creates a human-readable summary of backtest results
func FormatResults(results *model.BacktestResults) string {
	if results == nil {
		return "No backtest results available"
	}

	var b strings.Builder
	b.WriteString("\n===== BACKTEST RESULTS =====\n")
	b.WriteString(fmt.Sprintf("Symbol: %s (%s - %s, %d analyses)\n", results.Symbol,
		results.From.Format("2006-01-02 15:04"), results.To.Format("2006-01-02 15:04"), results.Steps))
	b.WriteString(fmt.Sprintf("Total trades: %d\n", results.TotalTrades))
	b.WriteString(fmt.Sprintf("Winning trades: %d (%.2f%%)\n", results.WinningTrades, results.WinPercentage))
	b.WriteString(fmt.Sprintf("Average gain: %.1f pips\n", results.AverageGain))
	b.WriteString(fmt.Sprintf("Average loss: %.1f pips\n", results.AverageLoss))
	b.WriteString(fmt.Sprintf("Profit factor: %.2f\n", results.ProfitFactor))
	b.WriteString(fmt.Sprintf("Maximum drawdown: %.1f pips\n", results.MaxDrawdown))
	b.WriteString(fmt.Sprintf("Max consecutive wins: %d\n", results.MaxConsecutive.Wins))
	b.WriteString(fmt.Sprintf("Max consecutive losses: %d\n", results.MaxConsecutive.Loses))

	b.WriteString("\nPerformance by session:\n")
	sessions := make([]string, 0, len(results.SessionPerformance))
	for name := range results.SessionPerformance {
		sessions = append(sessions, string(name))
	}
	sort.Strings(sessions)
	for _, name := range sessions {
		p := results.SessionPerformance[model.SessionName(name)]
		b.WriteString(fmt.Sprintf("- %s: %.2f%% of %d trades, %+.1f pips avg\n", name, p.WinRate*100, p.Trades, p.AveragePips))
	}

	b.WriteString("\nPerformance by signal:\n")
	types := make([]string, 0, len(results.SignalPerformance))
	for t := range results.SignalPerformance {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		p := results.SignalPerformance[model.SignalType(t)]
		b.WriteString(fmt.Sprintf("- %s: %.2f%% of %d trades, %+.1f pips avg\n", t, p.WinRate*100, p.Trades, p.AveragePips))
	}

	return b.String()
}
