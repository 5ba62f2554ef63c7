package logx

import (
	"fmt"
	"sync"
	"time"
)

// PerformanceLogger keeps per-tick count, min/max/average duration and
// error counts for named worker-loop ticks (§4.1: ~2ms default tick,
// ~50us on hot paths). No worker and not the supervisor call it.
type PerformanceLogger struct {
	logger       *Logger
	metrics      map[string]*TickMetric
	metricsMutex sync.RWMutex
}

// TickMetric tracks timing data for one named worker-loop tick.
type TickMetric struct {
	Name          string
	Count         int64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	AvgDuration   time.Duration
	LastExecuted  time.Time
	ErrorCount    int64
	SuccessRate   float64
}

// TickContext tracks one in-flight tick measurement.
type TickContext struct {
	name      string
	startTime time.Time
	logger    *PerformanceLogger
}

// NewPerformanceLogger creates a new performance logger.
func NewPerformanceLogger(logger *Logger) *PerformanceLogger {
	return &PerformanceLogger{
		logger:  logger,
		metrics: make(map[string]*TickMetric),
	}
}

// StartTick begins timing a named worker-loop tick.
func (pl *PerformanceLogger) StartTick(name string) *TickContext {
	pl.metricsMutex.Lock()
	if _, exists := pl.metrics[name]; !exists {
		pl.metrics[name] = &TickMetric{Name: name, MinDuration: time.Hour, LastExecuted: time.Now()}
	}
	pl.metricsMutex.Unlock()

	return &TickContext{name: name, startTime: time.Now(), logger: pl}
}

// Complete records the tick's outcome and logs slow or erroring ticks.
func (tc *TickContext) Complete(err error) {
	duration := time.Since(tc.startTime)

	tc.logger.metricsMutex.Lock()
	defer tc.logger.metricsMutex.Unlock()

	m := tc.logger.metrics[tc.name]
	m.Count++
	m.TotalDuration += duration
	m.LastExecuted = time.Now()

	if duration < m.MinDuration {
		m.MinDuration = duration
	}
	if duration > m.MaxDuration {
		m.MaxDuration = duration
	}
	m.AvgDuration = m.TotalDuration / time.Duration(m.Count)

	if err != nil {
		m.ErrorCount++
	}
	m.SuccessRate = float64(m.Count-m.ErrorCount) / float64(m.Count) * 100

	if err != nil {
		tc.logger.logger.Error("worker tick failed",
			"tick", tc.name,
			"duration", duration.String(),
			"error", err.Error(),
			"success_rate", fmt.Sprintf("%.2f%%", m.SuccessRate),
		)
		return
	}

	if duration > 50*time.Millisecond {
		tc.logger.logger.Warn("worker tick exceeded budget",
			"tick", tc.name,
			"duration", duration.String(),
			"avg_duration", m.AvgDuration.String(),
		)
	}
}

// GetMetric returns a copy of the named tick's metric, or nil.
func (pl *PerformanceLogger) GetMetric(name string) *TickMetric {
	pl.metricsMutex.RLock()
	defer pl.metricsMutex.RUnlock()

	m, exists := pl.metrics[name]
	if !exists {
		return nil
	}
	cp := *m
	return &cp
}

// LogSlowTicks logs every tick whose average duration exceeds threshold.
func (pl *PerformanceLogger) LogSlowTicks(threshold time.Duration) {
	pl.metricsMutex.RLock()
	defer pl.metricsMutex.RUnlock()

	for name, m := range pl.metrics {
		if m.AvgDuration > threshold {
			pl.logger.Warn("slow worker tick detected",
				"tick", name,
				"avg_duration", m.AvgDuration.String(),
				"threshold", threshold.String(),
				"total_ticks", m.Count,
			)
		}
	}
}
