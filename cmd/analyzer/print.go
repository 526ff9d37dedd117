package main

import (
	"fmt"
	"sort"

	"github.com/Alias1177/SmartMoney/internal/analysis/killzone"
	"github.com/Alias1177/SmartMoney/internal/model"
)

// printAnalysis outputs one analysis result
func printAnalysis(res *model.AnalysisResult) {
	fmt.Printf("\n===== %s SMART MONEY ANALYSIS =====\n", res.Symbol)
	fmt.Printf("As of: %s | Session: %s | Price: %.5f | Status: %s\n",
		res.GeneratedAt.Format("2006-01-02 15:04 MST"), res.CurrentSession, res.CurrentPrice, res.Status)

	// Liquidity pools
	fmt.Println("\nLiquidity Pools:")
	if len(res.LiquidityPools) == 0 {
		fmt.Println("- none")
	}
	for _, p := range res.LiquidityPools {
		fmt.Printf("- %.5f %s (%s, %d touches) strength %.2f, interest %.2f, expect %s, invalid beyond %.5f\n",
			p.PriceLevel, p.Kind, p.OriginTimeframe, p.Touches, p.Strength, p.InstitutionalInterest,
			p.ExpectedReaction, p.InvalidationPrice)
	}

	// Order flow
	if f := res.OrderFlow; f != nil {
		fmt.Printf("\nOrder Flow: %s | Strength: %.2f | Confidence: %.2f\n", f.Direction, f.Strength, f.Confidence)
		for _, e := range f.SupportingEvidence {
			fmt.Printf("- %s\n", e)
		}
	} else {
		fmt.Printf("\nOrder Flow: not classified (%s)\n", res.DataSufficiency[model.StepOrderFlow].Status)
	}

	// Market maker
	if mm := res.MarketMakerBehavior; mm != nil {
		fmt.Printf("\nMarket Maker: %s | Evidence: %.2f | Probability: %.2f | Bias: %s\n",
			mm.Behavior, mm.ManipulationEvidence, mm.Probability, mm.Bias)
		fmt.Printf("Expected: %s\n", mm.ExpectedOutcome)
		for _, h := range mm.StopHunts {
			fmt.Printf("- %s at %.5f (%s) %s, spike %.5f, reversal %.5f\n",
				h.Type, h.TargetLevel, h.LevelSource, h.Confidence, h.SpikeSize, h.ReversalSize)
		}
	}

	// Killzones
	if len(res.KillzoneMap) > 0 {
		fmt.Println("\nKillzones:")
		for _, s := range killzone.Sessions() {
			kz, ok := res.KillzoneMap[s.Name]
			if !ok {
				continue
			}
			active := ""
			if kz.Active {
				active = " [ACTIVE]"
			}
			fmt.Printf("- %s %s-%s%s efficiency %.2f, success %.2f (%s), size x%.2f\n",
				kz.Name, kz.Start, kz.End, active, kz.EfficiencyScore, kz.HistoricalSuccessRate,
				kz.SuccessRateSource, kz.Adjustments.PositionSizeMultiplier)
		}
	}

	// Signals
	fmt.Println("\nSignals:")
	if len(res.Signals) == 0 {
		fmt.Println("- none")
	}
	for _, s := range res.Signals {
		fmt.Printf("- %s %s %.2f: %s\n", s.Type, s.Direction, s.Confidence, s.Details)
	}

	// Data sufficiency
	steps := make([]string, 0, len(res.DataSufficiency))
	for step := range res.DataSufficiency {
		steps = append(steps, string(step))
	}
	sort.Strings(steps)
	fmt.Println("\nData:")
	for _, step := range steps {
		r := res.DataSufficiency[model.Step(step)]
		sub := ""
		if r.SubstitutedFrom != "" {
			sub = fmt.Sprintf(" (instead of %s)", r.SubstitutedFrom)
		}
		fmt.Printf("- %s: %s on %d %s bars%s\n", step, r.Status, r.Candles, r.Timeframe, sub)
	}
	fmt.Println()
}
