package graph

import "sync"

// UsageTracker accumulates model token consumption across builds. Model
// components report through Request.ReportUsage; the engine forwards to the
// run's tracker. Safe for concurrent use.
type UsageTracker struct {
	mu     sync.Mutex
	models map[string]*ModelUsage
}

// ModelUsage is the accumulated consumption for one model name.
type ModelUsage struct {
	Calls     int
	TokensIn  int
	TokensOut int
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{models: make(map[string]*ModelUsage)}
}

// Record adds one model call's token counts.
func (t *UsageTracker) Record(model string, tokensIn, tokensOut int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.models[model]
	if !ok {
		u = &ModelUsage{}
		t.models[model] = u
	}
	u.Calls++
	u.TokensIn += tokensIn
	u.TokensOut += tokensOut
}

// Usage returns a copy of the per-model accumulation.
func (t *UsageTracker) Usage() map[string]ModelUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]ModelUsage, len(t.models))
	for name, u := range t.models {
		out[name] = *u
	}
	return out
}

// TotalTokens returns the combined input and output token count across all
// models.
func (t *UsageTracker) TotalTokens() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, u := range t.models {
		total += u.TokensIn + u.TokensOut
	}
	return total
}
