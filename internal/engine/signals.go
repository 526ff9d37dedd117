package engine

import (
	"fmt"
	"sort"

	"github.com/Alias1177/SmartMoney/internal/model"
)

// signals turns sub-results that cleared their own thresholds into discrete signals,
// strongest first.
func (e *Engine) signals(res *model.AnalysisResult) []model.Signal {
	out := []model.Signal{}

	if f := res.OrderFlow; f != nil {
		out = append(out, model.Signal{
			Type:       model.SignalOrderFlow,
			Direction:  f.Direction.Bias(),
			Confidence: f.Confidence,
			Source:     string(model.StepOrderFlow),
			Details:    fmt.Sprintf("%s flow during %s", f.Direction, f.SessionContext),
		})
	}

	if mm := res.MarketMakerBehavior; mm != nil && mm.Behavior != model.NormalTrading {
		out = append(out, model.Signal{
			Type:       model.SignalMarketMaker,
			Direction:  mm.Bias,
			Confidence: mm.Probability,
			Source:     string(model.StepMarketMaker),
			Details:    fmt.Sprintf("%s: %s", mm.Behavior, mm.ExpectedOutcome),
		})
	}

	for _, p := range res.LiquidityPools {
		if p.Strength < e.cfg.PoolSignalThreshold {
			continue
		}
		// price is drawn toward resting liquidity
		dir := model.DirectionBearish
		if p.PriceLevel > res.CurrentPrice {
			dir = model.DirectionBullish
		}
		out = append(out, model.Signal{
			Type:       model.SignalLiquidityDraw,
			Direction:  dir,
			Confidence: p.Strength,
			Source:     string(model.StepLiquidity),
			Details:    fmt.Sprintf("%s at %.5f (%d touches)", p.Kind, p.PriceLevel, p.Touches),
		})
	}

	if kz, ok := res.KillzoneMap[res.CurrentSession]; ok && kz.Active && kz.EfficiencyScore >= e.cfg.KillzoneSignalThreshold {
		out = append(out, model.Signal{
			Type:       model.SignalKillzoneActive,
			Direction:  model.DirectionNeutral,
			Confidence: kz.EfficiencyScore,
			Source:     string(model.StepKillzone),
			Details:    fmt.Sprintf("%s killzone active, peak %s UTC", kz.Name, kz.Peak),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
