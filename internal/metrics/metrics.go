// Package metrics exposes Prometheus metrics for the grid controller.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/five82/marina/internal/loading"
	"github.com/five82/marina/internal/save"
	"github.com/five82/marina/internal/selection"
)

// Metrics holds all Prometheus metrics for one grid controller
type Metrics struct {
	Registry *prometheus.Registry

	BusyBrackets    prometheus.Gauge
	LoadingEvents   *prometheus.CounterVec
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	CommitsTotal    *prometheus.CounterVec
	CommitDuration  prometheus.Histogram
	EditsSavedTotal prometheus.Counter
	SelectionsTotal prometheus.Counter
}

// New creates the metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		BusyBrackets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "marina",
			Subsystem: "grid",
			Name:      "busy_brackets",
			Help:      "Number of open busy brackets",
		}),
		LoadingEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marina",
			Subsystem: "grid",
			Name:      "loading_events_total",
			Help:      "Loading transition events by kind",
		}, []string{"event"}),
		FetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marina",
			Subsystem: "grid",
			Name:      "fetches_total",
			Help:      "Completed record fetches by mode and result",
		}, []string{"mode", "result"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marina",
			Subsystem: "grid",
			Name:      "fetch_duration_seconds",
			Help:      "Record fetch latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		CommitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marina",
			Subsystem: "grid",
			Name:      "commits_total",
			Help:      "Save commits by result",
		}, []string{"result"}),
		CommitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "marina",
			Subsystem: "grid",
			Name:      "commit_duration_seconds",
			Help:      "Save commit latency including the refresh after it",
			Buckets:   prometheus.DefBuckets,
		}),
		EditsSavedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "marina",
			Subsystem: "grid",
			Name:      "edits_saved_total",
			Help:      "Cell edits persisted",
		}),
		SelectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "marina",
			Subsystem: "grid",
			Name:      "selections_total",
			Help:      "Row selections broadcast",
		}),
	}
}

// WatchSignal keeps the busy gauge in step with sig. The returned func stops
// watching.
func (m *Metrics) WatchSignal(sig *loading.Signal) func() {
	return sig.Subscribe(func(ev loading.Event) {
		m.LoadingEvents.WithLabelValues(ev.String()).Inc()
		m.BusyBrackets.Set(float64(sig.Depth()))
	})
}

// FetchCompleted records one fetch.
func (m *Metrics) FetchCompleted(refresh bool, accepted bool, err error, elapsed time.Duration) {
	mode := "resolve"
	if refresh {
		mode = "refresh"
	}
	result := "ok"
	switch {
	case !accepted:
		result = "stale"
	case err != nil:
		result = "error"
	}
	m.FetchesTotal.WithLabelValues(mode, result).Inc()
	m.FetchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// CommitCompleted records one commit.
func (m *Metrics) CommitCompleted(out save.Outcome, elapsed time.Duration) {
	result := "ok"
	switch {
	case errors.Is(out.Err, save.ErrCommitInFlight):
		result = "rejected"
	case out.Err != nil:
		result = "error"
	case out.RefreshErr != nil:
		result = "refresh_error"
	}
	m.CommitsTotal.WithLabelValues(result).Inc()
	if result != "rejected" {
		m.CommitDuration.Observe(elapsed.Seconds())
	}
	if out.Err == nil {
		m.EditsSavedTotal.Add(float64(out.Saved))
	}
}

// SelectionPublished counts one selection.
func (m *Metrics) SelectionPublished(selection.Message) {
	m.SelectionsTotal.Inc()
}
