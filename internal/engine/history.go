package engine

import (
	"sync"

	"github.com/Alias1177/SmartMoney/internal/model"
)

// History is a bounded in-memory buffer of recent results; the oldest entry is evicted
// once it is full. Safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	size    int
	entries []*model.AnalysisResult
}

// NewHistory creates a buffer holding at most size results.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{size: size, entries: make([]*model.AnalysisResult, 0, size)}
}

// Add appends a result.
func (h *History) Add(r *model.AnalysisResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == h.size {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, r)
}

// Len returns the number of buffered results.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// LastFlows returns up to n most recent order flows, newest first.
func (h *History) LastFlows(n int) []model.InstitutionalOrderFlow {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []model.InstitutionalOrderFlow
	for i := len(h.entries) - 1; i >= 0 && len(out) < n; i-- {
		if f := h.entries[i].OrderFlow; f != nil {
			out = append(out, *f)
		}
	}
	return out
}

// LastBehaviors returns up to n most recent market-maker behaviours, newest first.
func (h *History) LastBehaviors(n int) []model.MarketMakerBehavior {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []model.MarketMakerBehavior
	for i := len(h.entries) - 1; i >= 0 && len(out) < n; i-- {
		if b := h.entries[i].MarketMakerBehavior; b != nil {
			out = append(out, *b)
		}
	}
	return out
}

// LatestPools returns the pools of the newest result for symbol.
func (h *History) LatestPools(symbol string) []model.LiquidityPool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Symbol == symbol {
			pools := make([]model.LiquidityPool, len(h.entries[i].LiquidityPools))
			copy(pools, h.entries[i].LiquidityPools)
			return pools
		}
	}
	return nil
}
