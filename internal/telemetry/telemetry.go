// Package telemetry collects in-process task run timings. The collector
// is fed by the CLI dispatcher and flushed to the log on process end.
package telemetry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TaskStats aggregates the runs of one task name.
type TaskStats struct {
	Count  int
	Errors int
	Total  time.Duration
}

// Collector accumulates task run outcomes.
type Collector struct {
	mu      sync.Mutex
	enabled bool
	stats   map[string]TaskStats
}

func NewCollector(enabled bool) *Collector {
	return &Collector{enabled: enabled, stats: map[string]TaskStats{}}
}

// RecordTaskRun adds one run outcome for a task.
func (c *Collector) RecordTaskRun(task string, d time.Duration, err error) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats[task]
	s.Count++
	s.Total += d
	if err != nil {
		s.Errors++
	}
	c.stats[task] = s
}

// Summary returns a copy of the aggregated stats.
func (c *Collector) Summary() map[string]TaskStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]TaskStats, len(c.stats))
	for k, v := range c.stats {
		out[k] = v
	}
	return out
}

// Flush logs one debug line per task.
func (c *Collector) Flush(log zerolog.Logger) {
	for task, s := range c.Summary() {
		log.Debug().
			Str("task", task).
			Int("runs", s.Count).
			Int("errors", s.Errors).
			Dur("total", s.Total).
			Msg("task telemetry")
	}
}
