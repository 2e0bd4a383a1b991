// Package monitoring tracks classification pipeline health for the API's
// stats endpoint.
package monitoring

import (
	"errors"
	"sync"
	"time"

	"github.com/sells-group/leadpulse/internal/classifier"
	"github.com/sells-group/leadpulse/internal/model"
)

// MetricsSnapshot holds a point-in-time view of pipeline health since start.
type MetricsSnapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsFailed   int     `json:"runs_failed"`
	RunsTimedOut int     `json:"runs_timed_out"`
	FailRate     float64 `json:"fail_rate"`

	CommentsClassified int `json:"comments_classified"`
	HotLeads           int `json:"hot_leads"`
	WarmLeads          int `json:"warm_leads"`
	ColdLeads          int `json:"cold_leads"`

	AvgProcessingSecs float64   `json:"avg_processing_secs"`
	CollectedAt       time.Time `json:"collected_at"`
}

// Collector accumulates classification run metrics in memory. Safe for
// concurrent use by request handlers.
type Collector struct {
	mu sync.Mutex

	runs     int
	failed   int
	timedOut int

	comments int
	counts   model.LeadCounts

	elapsedSum float64
	succeeded  int
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordSuccess tallies one completed classification run.
func (c *Collector) RecordSuccess(outcome *classifier.Outcome) {
	counts := model.CountLeads(outcome.Comments)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	c.succeeded++
	c.comments += len(outcome.Comments)
	c.counts.Hot += counts.Hot
	c.counts.Warm += counts.Warm
	c.counts.Cold += counts.Cold
	c.elapsedSum += outcome.ProcessingTime
}

// RecordFailure tallies one failed run, tracking timeouts separately.
func (c *Collector) RecordFailure(err error) {
	var timeoutErr *classifier.TimeoutError

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	c.failed++
	if errors.As(err, &timeoutErr) {
		c.timedOut++
	}
}

// Snapshot returns the accumulated metrics.
func (c *Collector) Snapshot() MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := MetricsSnapshot{
		RunsTotal:          c.runs,
		RunsFailed:         c.failed,
		RunsTimedOut:       c.timedOut,
		CommentsClassified: c.comments,
		HotLeads:           c.counts.Hot,
		WarmLeads:          c.counts.Warm,
		ColdLeads:          c.counts.Cold,
		CollectedAt:        time.Now().UTC(),
	}
	if c.runs > 0 {
		snap.FailRate = float64(c.failed) / float64(c.runs)
	}
	if c.succeeded > 0 {
		snap.AvgProcessingSecs = c.elapsedSum / float64(c.succeeded)
	}
	return snap
}
