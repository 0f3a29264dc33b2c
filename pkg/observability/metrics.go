package observability

import (
	"context"

	"github.com/aretw0/curator/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "curator"

// Metrics holds the Prometheus collectors fed by engine hooks.
type Metrics struct {
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec
	Degradations  *prometheus.CounterVec
	ToolCalls     *prometheus.CounterVec
	ToolDuration  *prometheus.HistogramVec
	ResultItems   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed recommendation runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full run.",
			Buckets:   prometheus.DefBuckets,
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		Degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_degraded_total",
			Help:      "Stages that completed on a fail-open default.",
		}, []string{"stage"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Collaborator calls by tool and result.",
		}, []string{"tool", "result"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of collaborator calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		ResultItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_items",
			Help:      "Number of recommended items per successful run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.RunDuration, m.StageDuration, m.Degradations, m.ToolCalls, m.ToolDuration, m.ResultItems)
	}
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			} else {
				m.ResultItems.Observe(float64(e.Items))
			}
			m.Runs.WithLabelValues(outcome).Inc()
			m.RunDuration.Observe(e.Duration.Seconds())
		},
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) {
			m.StageDuration.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
			if e.Degraded {
				m.Degradations.WithLabelValues(string(e.Stage)).Inc()
			}
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			result := "ok"
			if e.IsError {
				result = "error"
			}
			m.ToolCalls.WithLabelValues(e.ToolName, result).Inc()
			m.ToolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
	}
}
