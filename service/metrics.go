package service

import (
	"sync"
	"time"
)

// PhaseMetrics tracks wall-clock timings per protocol phase. All methods are
// nil-safe so roles can run without a collector attached.
type PhaseMetrics struct {
	mu sync.RWMutex

	castCount int
	castTotal time.Duration

	validateCount int
	validateTotal time.Duration

	combineCount int
	combineTotal time.Duration
}

// PhaseStats is the reported timing for one phase.
type PhaseStats struct {
	Count   int   `json:"count"`
	TotalMs int64 `json:"total_ms"`
}

// MetricsSnapshot carries the stats of all three phases.
type MetricsSnapshot struct {
	Cast     PhaseStats `json:"cast"`
	Validate PhaseStats `json:"validate"`
	Combine  PhaseStats `json:"combine"`
}

func NewPhaseMetrics() *PhaseMetrics {
	return &PhaseMetrics{}
}

func (m *PhaseMetrics) RecordCast(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.castCount++
	m.castTotal += d
}

func (m *PhaseMetrics) RecordValidate(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validateCount++
	m.validateTotal += d
}

func (m *PhaseMetrics) RecordCombine(d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combineCount++
	m.combineTotal += d
}

func (m *PhaseMetrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		Cast:     PhaseStats{Count: m.castCount, TotalMs: m.castTotal.Milliseconds()},
		Validate: PhaseStats{Count: m.validateCount, TotalMs: m.validateTotal.Milliseconds()},
		Combine:  PhaseStats{Count: m.combineCount, TotalMs: m.combineTotal.Milliseconds()},
	}
}
