package backtest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/config"
	"github.com/Alias1177/SmartMoney/internal/engine"
	"github.com/Alias1177/SmartMoney/internal/model"
)

var start = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func generateTestCandles(n int, fn func(i int) model.Candle) []model.Candle {
	candles := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = fn(i)
	}
	return candles
}

// rising builds n bars of tf whose close gains step every bar.
func rising(tf model.Timeframe, n int, step float64) []model.Candle {
	return generateTestCandles(n, func(i int) model.Candle {
		c := 1.0800 + step*float64(i)
		o := c - step/2
		return model.Candle{
			Timestamp: start.Add(time.Duration(i) * tf.Duration()),
			Open:      o,
			High:      c + 0.0002,
			Low:       o - 0.0002,
			Close:     c,
			Volume:    1000,
		}
	})
}

// scriptedAnalyzer emits a bullish order-flow signal every hour and a stronger bearish
// liquidity draw on even hours.
type scriptedAnalyzer struct {
	requests []engine.Request
}

func (s *scriptedAnalyzer) Analyze(ctx context.Context, req engine.Request) (*model.AnalysisResult, error) {
	s.requests = append(s.requests, req)
	res := &model.AnalysisResult{Symbol: req.Symbol, GeneratedAt: req.Now, CurrentSession: killzone.CurrentSession(req.Now)}
	if req.Now.Hour()%2 == 0 {
		res.Signals = append(res.Signals, model.Signal{Type: model.SignalLiquidityDraw, Direction: model.DirectionBearish, Confidence: 0.9})
	}
	res.Signals = append(res.Signals,
		model.Signal{Type: model.SignalKillzoneActive, Direction: model.DirectionNeutral, Confidence: 0.85},
		model.Signal{Type: model.SignalOrderFlow, Direction: model.DirectionBullish, Confidence: 0.8},
		model.Signal{Type: model.SignalOrderFlow, Direction: model.DirectionBearish, Confidence: 0.75},
		model.Signal{Type: model.SignalMarketMaker, Direction: model.DirectionBullish, Confidence: 0.5},
	)
	return res, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Window = 20
	cfg.History = 0
	cfg.Horizon = 2
	cfg.MinTrades = 1
	return cfg
}

func TestRun(t *testing.T) {
	a := &scriptedAnalyzer{}
	e, err := NewEngine(a, testConfig())
	if err != nil {
		t.Fatal(err)
	}

	frames := map[model.Timeframe][]model.Candle{
		model.H1:  rising(model.H1, 30, 0.0010),
		model.M15: rising(model.M15, 120, 0.00025),
	}
	results, err := e.Run(context.Background(), "EUR/USD", frames)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if results.Steps != 9 || len(a.requests) != 9 {
		t.Fatalf("steps = %d, requests = %d, want 9", results.Steps, len(a.requests))
	}

	// no bar after the end of the current hour leaks into the analysis
	first := a.requests[0]
	if got := first.Candles[model.H1]; len(got) != 20 || !got[19].Timestamp.Equal(first.Now) {
		t.Errorf("1h window ends at %s, want %s", got[len(got)-1].Timestamp, first.Now)
	}
	if got := first.Candles[model.M15]; len(got) != 20 || !got[19].Timestamp.Equal(first.Now.Add(45*time.Minute)) {
		t.Errorf("15min window ends at %s, want %s", got[len(got)-1].Timestamp, first.Now.Add(45*time.Minute))
	}

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"total trades", float64(results.TotalTrades), 13},
		{"winning trades", float64(results.WinningTrades), 9},
		{"losing trades", float64(results.LosingTrades), 4},
		{"win percentage", results.WinPercentage, 900.0 / 13},
		{"average gain", results.AverageGain, 20},
		{"average loss", results.AverageLoss, 20},
		{"profit factor", results.ProfitFactor, 2.25},
		{"max drawdown", results.MaxDrawdown, 20},
		{"max consecutive wins", float64(results.MaxConsecutive.Wins), 2},
		{"max consecutive losses", float64(results.MaxConsecutive.Loses), 1},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.expected) > 1e-6 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
		}
	}

	sessions := map[model.SessionName][2]int{
		model.SessionPowerHour: {1, 1},
		model.SessionNewYork:   {2, 1},
		model.SessionOffHours:  {4, 3},
		model.SessionAsian:     {6, 4},
	}
	for name, want := range sessions {
		p := results.SessionPerformance[name]
		if p.Trades != want[0] || p.Wins != want[1] {
			t.Errorf("%s: %d/%d trades won, want %d/%d", name, p.Wins, p.Trades, want[1], want[0])
		}
	}

	if p := results.SignalPerformance[model.SignalLiquidityDraw]; p.Trades != 4 || p.WinRate != 0 {
		t.Errorf("liquidity draw performance = %+v", p)
	}
	if _, ok := results.SignalPerformance[model.SignalMarketMaker]; ok {
		t.Error("signals below min confidence must not trade")
	}

	text := FormatResults(results)
	for _, want := range []string{"Total trades: 13", "- asian: 66.67% of 6 trades"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestRunSeesOnlyClosedBars(t *testing.T) {
	a := &scriptedAnalyzer{}
	e, err := NewEngine(a, testConfig())
	if err != nil {
		t.Fatal(err)
	}

	frames := map[model.Timeframe][]model.Candle{
		model.H4:  rising(model.H4, 15, 0.0020),
		model.H1:  rising(model.H1, 60, 0.0010),
		model.M15: rising(model.M15, 240, 0.00025),
	}
	if _, err := e.Run(context.Background(), "EUR/USD", frames); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(a.requests) != 39 {
		t.Fatalf("requests = %d, want 39", len(a.requests))
	}

	for _, req := range a.requests {
		closedBy := req.Now.Add(time.Hour)
		for tf, candles := range req.Candles {
			if len(candles) == 0 {
				continue
			}
			last := candles[len(candles)-1]
			if last.Timestamp.Add(tf.Duration()).After(closedBy) {
				t.Errorf("analysis at %s sees %s bar closing %s", req.Now.Format(time.RFC3339), tf, last.Timestamp.Add(tf.Duration()).Format(time.RFC3339))
			}
		}
	}

	// 19:00 and 20:00 both end on the 16:00 4h bar; 23:00 completes the 20:00 bar
	tests := []struct {
		step     int
		expected time.Time
	}{
		{0, start.Add(16 * time.Hour)},
		{1, start.Add(16 * time.Hour)},
		{3, start.Add(16 * time.Hour)},
		{4, start.Add(20 * time.Hour)},
	}
	for _, tt := range tests {
		h4 := a.requests[tt.step].Candles[model.H4]
		if len(h4) == 0 || !h4[len(h4)-1].Timestamp.Equal(tt.expected) {
			t.Errorf("step %d: last 4h bar %v, want %s", tt.step, h4, tt.expected)
		}
	}
}

func TestRunInsufficientData(t *testing.T) {
	e, _ := NewEngine(&scriptedAnalyzer{}, testConfig())

	_, err := e.Run(context.Background(), "EUR/USD", map[model.Timeframe][]model.Candle{
		model.H1: rising(model.H1, 21, 0.0010),
	})
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Window = 5

	_, err := NewEngine(&scriptedAnalyzer{}, cfg)
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "window" {
		t.Errorf("error = %v, want window config error", err)
	}
}

func TestRunCancelled(t *testing.T) {
	e, _ := NewEngine(&scriptedAnalyzer{}, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, "EUR/USD", map[model.Timeframe][]model.Candle{model.H1: rising(model.H1, 30, 0.0010)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunWithEngine(t *testing.T) {
	eng, err := engine.New(config.DefaultAnalysis())
	if err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.Window = 40
	cfg.Step = 5
	e, err := NewEngine(eng, cfg)
	if err != nil {
		t.Fatal(err)
	}

	h1 := generateTestCandles(80, func(i int) model.Candle {
		o := 1.0800 + 0.0025*math.Sin(float64(i)/4)
		c := o + 0.0003*math.Cos(float64(i)/2)
		return model.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      o,
			High:      math.Max(o, c) + 0.0004,
			Low:       math.Min(o, c) - 0.0004,
			Close:     c,
			Volume:    uint64(900 + (i%7)*50),
		}
	})

	results, err := e.Run(context.Background(), "EUR/USD", map[model.Timeframe][]model.Candle{model.H1: h1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// i = 39, 44, ..., 74
	if results.Steps != 8 {
		t.Errorf("steps = %d, want 8", results.Steps)
	}
	if results.TotalTrades != results.WinningTrades+results.LosingTrades {
		t.Errorf("trade counts inconsistent: %+v", results)
	}
}

func TestPerformanceMap(t *testing.T) {
	results := &model.BacktestResults{
		SessionPerformance: map[model.SessionName]model.GroupPerformance{
			model.SessionLondon: {Trades: 12, Wins: 9, WinRate: 0.75},
			model.SessionAsian:  {Trades: 3, Wins: 1, WinRate: 1.0 / 3},
		},
	}

	perf := PerformanceMap(results, 10)
	if len(perf) != 1 {
		t.Fatalf("performance map = %+v, want london only", perf)
	}
	if s := perf[model.SessionLondon]; s.SuccessRate != 0.75 || s.Samples != 12 {
		t.Errorf("london = %+v", s)
	}
	if len(PerformanceMap(nil, 1)) != 0 {
		t.Error("nil results should give an empty map")
	}
}
