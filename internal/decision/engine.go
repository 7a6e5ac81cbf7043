package decision

import (
	"sync"
	"time"

	"mexcbot/internal/indicator"
	"mexcbot/internal/model"
	"mexcbot/internal/pattern"
)

// historyCap bounds the retained decision history; the oldest entry is
// evicted first.
const historyCap = 100

// recentCount is how many entries the Recent accessor exposes.
const recentCount = 20

// Analysis is one full cycle's output: the decision plus every derived
// feature that fed it.
type Analysis struct {
	Decision   Decision              `json:"decision"`
	Indicators indicator.Set         `json:"indicators"`
	Levels     pattern.Levels        `json:"support_resistance"`
	Patterns   pattern.Report        `json:"patterns"`
	Structure  pattern.Structure     `json:"market_structure"`
	Volume     pattern.VolumeProfile `json:"volume_analysis"`
}

// Engine turns candle windows into decisions and keeps a bounded FIFO
// history of them. Safe for one writer (Analyze) with concurrent readers.
type Engine struct {
	mu      sync.RWMutex
	history []Decision
	now     func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Analyze computes every derived feature over the window, scores a
// decision and records it in the history. The window must be time-ordered
// oldest first.
func (e *Engine) Analyze(candles []model.Candle) Analysis {
	price := 0.0
	if len(candles) > 0 {
		price = candles[len(candles)-1].Close
	}

	a := Analysis{
		Indicators: indicator.Compute(candles),
		Levels:     pattern.DetectLevels(candles),
		Patterns:   pattern.Detect(candles),
		Structure:  pattern.DetectStructure(candles),
		Volume:     pattern.AnalyzeVolume(candles),
	}
	a.Decision = Evaluate(a.Indicators, a.Levels, a.Patterns, a.Structure, a.Volume, price)
	a.Decision.TS = e.now()

	e.record(a.Decision)
	return a
}

func (e *Engine) record(d Decision) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, d)
	if len(e.history) > historyCap {
		e.history = e.history[len(e.history)-historyCap:]
	}
}

// History returns a point-in-time copy of the full retained history,
// oldest first.
func (e *Engine) History() []Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Decision, len(e.history))
	copy(out, e.history)
	return out
}

// Recent returns the most recent decisions, oldest first, capped at 20.
func (e *Engine) Recent() []Decision {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.history)
	if n > recentCount {
		n = recentCount
	}
	out := make([]Decision, n)
	copy(out, e.history[len(e.history)-n:])
	return out
}
