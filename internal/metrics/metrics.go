// Package metrics exposes prometheus instrumentation for the sync
// engine. Metrics are registered lazily on first use so importing the
// package has no side effects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type syncMetrics struct {
	once sync.Once

	syncsTotal *prometheus.CounterVec // mode × outcome

	issuesEmbedded prometheus.Counter
	pullsEmbedded  prometheus.Counter
	pullsReused    prometheus.Counter
	itemsDeleted   prometheus.Counter

	embedBatchSize prometheus.Histogram
	syncDuration   prometheus.Histogram
}

var m syncMetrics

func (s *syncMetrics) init() {
	s.once.Do(func() {
		s.syncsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repovec_syncs_total",
			Help: "Sync runs by mode (backfill/incremental) and outcome (success/failure)",
		}, []string{"mode", "outcome"})

		s.issuesEmbedded = prometheus.NewCounter(prometheus.CounterOpts{Name: "repovec_issues_embedded_total", Help: "Issue embeddings computed"})
		s.pullsEmbedded = prometheus.NewCounter(prometheus.CounterOpts{Name: "repovec_pulls_embedded_total", Help: "Pull request embeddings computed"})
		s.pullsReused = prometheus.NewCounter(prometheus.CounterOpts{Name: "repovec_pulls_reused_total", Help: "Pull request embeddings reused on content hash match"})
		s.itemsDeleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "repovec_items_deleted_total", Help: "Closed or merged items removed from artifacts"})

		s.embedBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "repovec_embed_batch_size",
			Help:    "Texts per embedding batch",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		})
		s.syncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "repovec_sync_seconds",
			Help:    "Duration of one repository sync",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		})

		prometheus.MustRegister(
			s.syncsTotal,
			s.issuesEmbedded, s.pullsEmbedded, s.pullsReused, s.itemsDeleted,
			s.embedBatchSize, s.syncDuration,
		)
	})
}

// RecordSync records the outcome and duration of one sync run.
func RecordSync(mode, outcome string, elapsed time.Duration) {
	m.init()
	m.syncsTotal.WithLabelValues(mode, outcome).Inc()
	if outcome != "skipped" {
		m.syncDuration.Observe(elapsed.Seconds())
	}
}

// RecordMerge records what one merge did.
func RecordMerge(issuesEmbedded, pullsEmbedded, pullsReused, deleted int) {
	m.init()
	m.issuesEmbedded.Add(float64(issuesEmbedded))
	m.pullsEmbedded.Add(float64(pullsEmbedded))
	m.pullsReused.Add(float64(pullsReused))
	m.itemsDeleted.Add(float64(deleted))
	m.embedBatchSize.Observe(float64(issuesEmbedded + pullsEmbedded))
}
