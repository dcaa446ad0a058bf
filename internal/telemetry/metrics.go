package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects runtime metrics
type Metrics struct {
	mu sync.RWMutex

	// Counters
	StagesStarted   int64
	StagesCompleted int64
	StagesFailed    int64
	ModelAttempts   int64
	ModelFailures   int64

	// Gauges
	ActiveStages int64

	// Histograms (simplified)
	stageDurations []time.Duration
	apiLatencies   []time.Duration

	// Exporter (optional)
	exporter MetricsExporter
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		stageDurations: make([]time.Duration, 0, 16),
		apiLatencies:   make([]time.Duration, 0, 64),
	}
}

// IncStagesStarted increments the stages started counter
func (m *Metrics) IncStagesStarted() {
	atomic.AddInt64(&m.StagesStarted, 1)
	atomic.AddInt64(&m.ActiveStages, 1)
}

// IncStagesCompleted increments the stages completed counter
func (m *Metrics) IncStagesCompleted() {
	atomic.AddInt64(&m.StagesCompleted, 1)
	atomic.AddInt64(&m.ActiveStages, -1)
}

// IncStagesFailed increments the stages failed counter
func (m *Metrics) IncStagesFailed() {
	atomic.AddInt64(&m.StagesFailed, 1)
	atomic.AddInt64(&m.ActiveStages, -1)
}

// IncModelAttempts counts one model invocation attempt.
func (m *Metrics) IncModelAttempts() {
	atomic.AddInt64(&m.ModelAttempts, 1)
}

// IncModelFailures counts one failed model invocation.
func (m *Metrics) IncModelFailures() {
	atomic.AddInt64(&m.ModelFailures, 1)
}

// RecordStageDuration records a stage duration
func (m *Metrics) RecordStageDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageDurations = append(m.stageDurations, d)
}

// RecordAPILatency records a model call latency
func (m *Metrics) RecordAPILatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiLatencies = append(m.apiLatencies, d)
}

// GetSummary returns a summary of collected metrics
func (m *Metrics) GetSummary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := map[string]interface{}{
		"stages_started":   atomic.LoadInt64(&m.StagesStarted),
		"stages_completed": atomic.LoadInt64(&m.StagesCompleted),
		"stages_failed":    atomic.LoadInt64(&m.StagesFailed),
		"model_attempts":   atomic.LoadInt64(&m.ModelAttempts),
		"model_failures":   atomic.LoadInt64(&m.ModelFailures),
		"active_stages":    atomic.LoadInt64(&m.ActiveStages),
	}

	if len(m.stageDurations) > 0 {
		summary["avg_stage_duration_ms"] = average(m.stageDurations).Milliseconds()
	}
	if len(m.apiLatencies) > 0 {
		summary["avg_api_latency_ms"] = average(m.apiLatencies).Milliseconds()
	}

	return summary
}

func average(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	atomic.StoreInt64(&m.StagesStarted, 0)
	atomic.StoreInt64(&m.StagesCompleted, 0)
	atomic.StoreInt64(&m.StagesFailed, 0)
	atomic.StoreInt64(&m.ModelAttempts, 0)
	atomic.StoreInt64(&m.ModelFailures, 0)
	atomic.StoreInt64(&m.ActiveStages, 0)

	m.stageDurations = m.stageDurations[:0]
	m.apiLatencies = m.apiLatencies[:0]
}

// SetExporter attaches a metrics exporter.
func (m *Metrics) SetExporter(e MetricsExporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exporter = e
}

// Flush hands the current summary to the exporter, if any, tagged with
// the event that ended the run.
func (m *Metrics) Flush(event string, labels map[string]string) error {
	m.mu.RLock()
	exporter := m.exporter
	m.mu.RUnlock()

	if exporter == nil {
		return nil
	}
	return exporter.Export(MetricsSnapshot{
		Timestamp: time.Now(),
		Event:     event,
		Metrics:   m.GetSummary(),
		Labels:    labels,
	})
}
