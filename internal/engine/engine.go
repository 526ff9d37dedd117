package engine

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/analysis/liquidity"
	"github.com/Alias1177/SmartMoney/internal/analysis/marketmaker"
	"github.com/Alias1177/SmartMoney/internal/analysis/orderflow"
	"github.com/Alias1177/SmartMoney/internal/analysis/technical"
	"github.com/Alias1177/SmartMoney/internal/config"
	"github.com/Alias1177/SmartMoney/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// resultNamespace scopes deterministic result IDs.
var resultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("smartmoney/analysis-result"))

// Engine runs the full smart money analysis for one symbol at a time. It holds no
// per-call state, so one Engine may serve concurrent calls.
type Engine struct {
	cfg         config.Analysis
	liquidity   *liquidity.Detector
	orderFlow   *orderflow.Classifier
	marketMaker *marketmaker.Detector
	killzones   *killzone.Optimizer
	recorder    Recorder
	history     *History
	logger      zerolog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder sends every result to r after analysis.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithHistory keeps results in h.
func WithHistory(h *History) Option {
	return func(e *Engine) { e.history = h }
}

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l.With().Str("component", "engine").Logger() }
}

// New validates cfg and builds an engine. Invalid thresholds fail here, never mid-analysis.
func New(cfg config.Analysis, opts ...Option) (*Engine, error) {
	if err := config.ValidateAnalysis(cfg); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:         cfg,
		liquidity:   liquidity.NewDetector(cfg.Liquidity),
		orderFlow:   orderflow.NewClassifier(cfg.OrderFlow),
		marketMaker: marketmaker.NewDetector(cfg.MarketMaker),
		killzones:   killzone.NewOptimizer(cfg.Killzone),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// History returns the engine's result buffer, nil when none was configured.
func (e *Engine) History() *History {
	return e.history
}

// Request is the input of one analysis.
type Request struct {
	Symbol      string
	Candles     map[model.Timeframe][]model.Candle
	History     []model.Candle // killzone history, defaults to the 1h candles
	OrderBlocks []model.OrderBlock
	Performance killzone.PerformanceMap
	Now         time.Time // defaults to the latest candle timestamp
}

// Analyze runs every detector over the request and assembles the result. Missing or short
// frames never fail the call: they surface as step statuses in DataSufficiency.
func (e *Engine) Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frames := make(map[model.Timeframe]technical.Prepared, len(req.Candles))
	for tf, candles := range req.Candles {
		p := technical.Prepare(candles)
		frames[tf] = p
		if p.Rejected > 0 {
			e.logger.Warn().Str("symbol", req.Symbol).Str("timeframe", string(tf)).Int("rejected", p.Rejected).Msg("Dropped invalid candles")
		}
	}

	now := req.Now
	if now.IsZero() {
		now = latest(frames)
	}
	now = now.UTC()

	res := &model.AnalysisResult{
		ID:              resultID(req.Symbol, frames, req.History, req.Performance, now),
		Symbol:          req.Symbol,
		GeneratedAt:     now,
		Status:          model.StatusOK,
		CurrentSession:  model.SessionOffHours,
		LiquidityPools:  []model.LiquidityPool{},
		Signals:         []model.Signal{},
		DataSufficiency: make(map[model.Step]model.StepReport, 5),
	}
	if !now.IsZero() {
		res.CurrentSession = killzone.CurrentSession(now)
	}

	h1 := frames[model.H1]
	if len(h1.Candles) == 0 {
		for _, step := range []model.Step{model.StepLiquidity, model.StepOrderFlow, model.StepMarketMaker, model.StepStopHunt, model.StepKillzone} {
			res.DataSufficiency[step] = model.StepReport{Status: model.StatusInsufficientData, Timeframe: model.H1, Rejected: h1.Rejected}
		}
		res.Status = model.StatusInsufficientData
		e.logger.Warn().Str("symbol", req.Symbol).Msg("No 1h candles, analysis skipped")
		e.finish(ctx, res)
		return res, nil
	}

	res.CurrentPrice = currentPrice(frames)

	// liquidity pools
	high, highReport := e.pick(frames, model.H4, model.H1, e.cfg.Liquidity.MinCandles)
	mid := liquidity.Frame{}
	if high.TF == model.H4 {
		mid = liquidity.Frame{TF: model.H1, Candles: h1.Candles}
	}
	low, _ := e.pick(frames, model.M15, model.M5, 1)
	lr := e.liquidity.Detect(high, mid, low, res.CurrentPrice)
	highReport.Status = lr.Status
	res.DataSufficiency[model.StepLiquidity] = highReport
	if lr.Pools != nil {
		res.LiquidityPools = lr.Pools
	}

	// order flow
	obs := req.OrderBlocks
	if len(obs) == 0 {
		obs = orderflow.FindOrderBlocks(h1.Candles, e.cfg.OrderFlow)
	}
	secondary, secReport := e.pick(frames, model.M15, model.M5, e.cfg.OrderFlow.MinCandles)
	ofr := e.orderFlow.Classify(orderflow.Input{
		H1:          h1.Candles,
		M15:         secondary.Candles,
		OrderBlocks: obs,
		Pools:       res.LiquidityPools,
		Session:     res.CurrentSession,
	})
	res.OrderFlow = ofr.Flow
	res.DataSufficiency[model.StepOrderFlow] = model.StepReport{
		Status:          ofr.Status,
		Timeframe:       model.H1,
		SubstitutedFrom: secReport.SubstitutedFrom,
		Candles:         ofr.Candles,
		Rejected:        ofr.Rejected,
	}

	// market maker behaviour and stop hunts
	mmFrame, mmReport := e.pick(frames, model.M15, model.M5, e.cfg.MarketMaker.MinCandles)
	mmr := e.marketMaker.Detect(marketmaker.Input{
		M15:     mmFrame.Candles,
		M5:      frames[model.M5].Candles,
		Pools:   res.LiquidityPools,
		Session: res.CurrentSession,
	})
	res.MarketMakerBehavior = mmr.Behavior
	mmReport.Status = mmr.Status
	res.DataSufficiency[model.StepMarketMaker] = mmReport
	shReport := mmReport
	shReport.Status = mmr.StopHuntStatus
	res.DataSufficiency[model.StepStopHunt] = shReport

	// killzones
	history := technical.Prepare(req.History).Candles
	if len(history) == 0 {
		history = h1.Candles
	}
	kzMap, kzStatus := e.killzones.Optimize(history, req.Performance, now)
	res.KillzoneMap = kzMap
	res.DataSufficiency[model.StepKillzone] = model.StepReport{Status: kzStatus, Timeframe: model.H1, Candles: len(history)}

	res.Signals = e.signals(res)
	res.Status = overallStatus(res.DataSufficiency)

	e.logger.Debug().
		Str("symbol", req.Symbol).
		Str("session", string(res.CurrentSession)).
		Int("pools", len(res.LiquidityPools)).
		Int("signals", len(res.Signals)).
		Str("status", string(res.Status)).
		Msg("Analysis complete")

	e.finish(ctx, res)
	return res, nil
}

// pick returns the preferred frame when it holds at least min bars, else the fallback
// frame when that one does. The report records a substitution.
func (e *Engine) pick(frames map[model.Timeframe]technical.Prepared, preferred, fallback model.Timeframe, min int) (liquidity.Frame, model.StepReport) {
	p := frames[preferred]
	if len(p.Candles) < min {
		if f := frames[fallback]; len(f.Candles) >= min {
			e.logger.Debug().Str("preferred", string(preferred)).Str("fallback", string(fallback)).Msg("Substituting timeframe")
			return liquidity.Frame{TF: fallback, Candles: f.Candles},
				model.StepReport{Timeframe: fallback, SubstitutedFrom: preferred, Candles: len(f.Candles), Rejected: f.Rejected}
		}
	}
	return liquidity.Frame{TF: preferred, Candles: p.Candles},
		model.StepReport{Timeframe: preferred, Candles: len(p.Candles), Rejected: p.Rejected}
}

func (e *Engine) finish(ctx context.Context, res *model.AnalysisResult) {
	if e.history != nil {
		e.history.Add(res)
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, res); err != nil {
			e.logger.Warn().Err(err).Str("symbol", res.Symbol).Msg("Recording analysis failed")
		}
	}
}

func overallStatus(steps map[model.Step]model.StepReport) model.StepStatus {
	below := false
	for _, r := range steps {
		switch r.Status {
		case model.StatusOK:
			return model.StatusOK
		case model.StatusBelowThreshold:
			below = true
		}
	}
	if below {
		return model.StatusBelowThreshold
	}
	return model.StatusInsufficientData
}

func latest(frames map[model.Timeframe]technical.Prepared) time.Time {
	var t time.Time
	for _, p := range frames {
		if last, ok := technical.Last(p.Candles); ok && last.Timestamp.After(t) {
			t = last.Timestamp
		}
	}
	return t
}

// currentPrice is the latest close of the finest frame available.
func currentPrice(frames map[model.Timeframe]technical.Prepared) float64 {
	for _, tf := range []model.Timeframe{model.M5, model.M15, model.H1, model.H4} {
		if last, ok := technical.Last(frames[tf].Candles); ok {
			return last.Close
		}
	}
	return 0
}

// resultID hashes the symbol, the analysis time, every candle and the session performance
// input, so identical input yields the same ID and a re-polled forming bar does not.
func resultID(symbol string, frames map[model.Timeframe]technical.Prepared, history []model.Candle, perf killzone.PerformanceMap, now time.Time) string {
	tfs := make([]string, 0, len(frames))
	for tf := range frames {
		tfs = append(tfs, string(tf))
	}
	sort.Strings(tfs)

	buf := []byte(symbol)
	buf = append(buf, '@')
	buf = strconv.AppendInt(buf, now.UnixNano(), 10)
	for _, tf := range tfs {
		buf = append(buf, '|')
		buf = append(buf, tf...)
		buf = appendCandles(buf, frames[model.Timeframe(tf)].Candles)
	}
	if len(history) > 0 {
		buf = append(buf, "|history"...)
		buf = appendCandles(buf, history)
	}

	sessions := make([]string, 0, len(perf))
	for name := range perf {
		sessions = append(sessions, string(name))
	}
	sort.Strings(sessions)
	for _, name := range sessions {
		stat := perf[model.SessionName(name)]
		buf = append(buf, '|')
		buf = append(buf, name...)
		buf = append(buf, '=')
		buf = strconv.AppendFloat(buf, stat.SuccessRate, 'g', -1, 64)
		buf = append(buf, '/')
		buf = strconv.AppendInt(buf, int64(stat.Samples), 10)
	}
	return uuid.NewSHA1(resultNamespace, buf).String()
}

func appendCandles(buf []byte, candles []model.Candle) []byte {
	for _, c := range candles {
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, c.Timestamp.Unix(), 10)
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close} {
			buf = append(buf, ':')
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
		buf = append(buf, ':')
		buf = strconv.AppendUint(buf, c.Volume, 10)
	}
	return buf
}
