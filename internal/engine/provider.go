package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/config"
	"github.com/Alias1177/SmartMoney/internal/model"
)

// CandleProvider supplies oldest-first candles. It returns model.ErrInsufficientData when
// nothing is available for the request.
type CandleProvider interface {
	GetCandles(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Candle, error)
}

// FetchPlan says how many bars of each timeframe to request. History is the number of 1h
// bars handed to the killzone optimizer; when it exceeds the 1h count the 1h request is
// widened and the analysis frame trimmed back.
type FetchPlan struct {
	Counts  map[model.Timeframe]int
	History int
}

// PlanFromConfig builds a fetch plan from configured candle counts.
func PlanFromConfig(c config.CandleCounts) FetchPlan {
	return FetchPlan{
		Counts: map[model.Timeframe]int{
			model.H4:  c.H4,
			model.H1:  c.H1,
			model.M15: c.M15,
			model.M5:  c.M5,
		},
		History: c.History,
	}
}

// Fetch loads every frame of the plan. Frames the provider has no data for are left empty;
// any other provider error aborts the fetch.
func (e *Engine) Fetch(ctx context.Context, p CandleProvider, symbol string, plan FetchPlan) (Request, error) {
	req := Request{Symbol: symbol, Candles: make(map[model.Timeframe][]model.Candle, len(plan.Counts))}

	tfs := make([]model.Timeframe, 0, len(plan.Counts))
	for tf := range plan.Counts {
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool { return tfs[i].Duration() > tfs[j].Duration() })

	for _, tf := range tfs {
		count := plan.Counts[tf]
		if tf == model.H1 && plan.History > count {
			count = plan.History
		}
		candles, err := p.GetCandles(ctx, symbol, tf, count)
		if errors.Is(err, model.ErrInsufficientData) {
			e.logger.Warn().Str("symbol", symbol).Str("timeframe", string(tf)).Msg("No candles available")
			continue
		}
		if err != nil {
			return Request{}, fmt.Errorf("fetching %s %s: %w", symbol, tf, err)
		}

		if tf == model.H1 && plan.History > 0 {
			req.History = candles
			if n := plan.Counts[tf]; len(candles) > n {
				candles = candles[len(candles)-n:]
			}
		}
		req.Candles[tf] = candles
	}
	return req, nil
}

// Run fetches and analyses one symbol. A zero now means "as of the latest candle".
func (e *Engine) Run(ctx context.Context, p CandleProvider, symbol string, plan FetchPlan, perf killzone.PerformanceMap, now time.Time) (*model.AnalysisResult, error) {
	req, err := e.Fetch(ctx, p, symbol, plan)
	if err != nil {
		return nil, err
	}
	req.Performance = perf
	req.Now = now
	return e.Analyze(ctx, req)
}

// AnalyzeSymbols runs symbols concurrently with at most Workers in flight. Results keep the
// order of symbols; a failed symbol leaves a nil entry and contributes to the joined error.
func (e *Engine) AnalyzeSymbols(ctx context.Context, p CandleProvider, symbols []string, plan FetchPlan, perf killzone.PerformanceMap) ([]*model.AnalysisResult, error) {
	results := make([]*model.AnalysisResult, len(symbols))
	errs := make([]error, len(symbols))

	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = fmt.Errorf("%s: %w", symbol, ctx.Err())
				return
			}

			res, err := e.Run(ctx, p, symbol, plan, perf, time.Time{})
			if err != nil {
				e.logger.Error().Err(err).Str("symbol", symbol).Msg("Analysis failed")
				errs[i] = err
				return
			}
			results[i] = res
		}(i, symbol)
	}
	wg.Wait()

	return results, errors.Join(errs...)
}
