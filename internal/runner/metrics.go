package runner

import (
	"sync"
	"time"

	"github.com/asynkron/patchkit/pkg/textpatch"
)

// Metrics collects counters about patch runs.
type Metrics interface {
	// RecordPatch records one patch with its total step time and outcome.
	RecordPatch(name string, duration time.Duration, success bool)
	// RecordStep records a step outcome by status.
	RecordStep(status string, duration time.Duration)
	// GetSnapshot returns the current metrics snapshot.
	GetSnapshot() MetricsSnapshot
	// Reset clears all metrics.
	Reset()
}

// MetricsSnapshot contains a point-in-time view of collected metrics.
type MetricsSnapshot struct {
	Patches   PatchMetrics
	Steps     map[string]int64 // status -> count
	StepTime  time.Duration
	LastPatch time.Time
}

// PatchMetrics tracks patch statistics.
type PatchMetrics struct {
	Total     int64
	Success   int64
	Failed    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// NoOpMetrics is a metrics collector that discards all metrics.
type NoOpMetrics struct{}

func (n *NoOpMetrics) RecordPatch(_ string, _ time.Duration, _ bool) {}
func (n *NoOpMetrics) RecordStep(_ string, _ time.Duration)          {}
func (n *NoOpMetrics) GetSnapshot() MetricsSnapshot                  { return MetricsSnapshot{} }
func (n *NoOpMetrics) Reset()                                        {}

// InMemoryMetrics is a thread-safe in-memory metrics collector.
type InMemoryMetrics struct {
	mu        sync.RWMutex
	patches   PatchMetrics
	steps     map[string]int64
	stepTime  time.Duration
	lastPatch time.Time
}

// NewInMemoryMetrics creates a new in-memory metrics collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{steps: make(map[string]int64)}
}

func (m *InMemoryMetrics) RecordPatch(_ string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.patches.Total == 0 || duration < m.patches.MinTime {
		m.patches.MinTime = duration
	}
	if duration > m.patches.MaxTime {
		m.patches.MaxTime = duration
	}
	m.patches.Total++
	if success {
		m.patches.Success++
	} else {
		m.patches.Failed++
	}
	m.patches.TotalTime += duration
	m.lastPatch = time.Now()
}

func (m *InMemoryMetrics) RecordStep(status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[status]++
	m.stepTime += duration
}

func (m *InMemoryMetrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		Patches:   m.patches,
		Steps:     make(map[string]int64, len(m.steps)),
		StepTime:  m.stepTime,
		LastPatch: m.lastPatch,
	}
	for k, v := range m.steps {
		snapshot.Steps[k] = v
	}
	return snapshot
}

func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.patches = PatchMetrics{}
	m.steps = make(map[string]int64)
	m.stepTime = 0
	m.lastPatch = time.Time{}
}

func recordReport(m Metrics, name string, report textpatch.Report, success bool) {
	var total time.Duration
	for _, step := range report.Steps {
		m.RecordStep(step.Status, step.Duration)
		total += step.Duration
	}
	m.RecordPatch(name, total, success)
}
