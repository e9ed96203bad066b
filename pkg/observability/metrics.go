// Package observability wires engine lifecycle hooks to Prometheus metrics
// and structured logging. Hosts that want metrics register a Metrics value
// and pass Metrics.Hooks() to the engine.
package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/botwalk/botwalk/pkg/domain"
)

// Metrics holds the collectors recorded by the lifecycle hooks.
type Metrics struct {
	nodeVisits   *prometheus.CounterVec
	terminals    *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	logger       *slog.Logger
}

// Option configures a Metrics value.
type Option func(*Metrics)

// WithLogger attaches a logger; each hook then also emits a structured
// log line alongside the metric.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Metrics) { m.logger = logger }
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, opts ...Option) *Metrics {
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botwalk_node_visits_total",
				Help: "Total number of node visits by kind",
			},
			[]string{"node_kind"},
		),
		terminals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botwalk_instances_finished_total",
				Help: "Instances that reached a terminal status",
			},
			[]string{"status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "botwalk_http_call_duration_seconds",
				Help: "Duration of outbound http_api calls",
			},
			[]string{"method", "is_error"},
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	reg.MustRegister(m.nodeVisits, m.terminals, m.httpDuration)
	return m
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(string(e.NodeKind)).Inc()
			if m.logger != nil {
				m.logger.Info("node_enter",
					"instance_id", e.InstanceID,
					"node_id", e.NodeID,
					"node_kind", e.NodeKind,
				)
			}
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if m.logger != nil {
				m.logger.Info("node_leave", "instance_id", e.InstanceID, "node_id", e.NodeID)
			}
		},
		OnHTTPCall: func(ctx context.Context, e *domain.HTTPCallEvent) {
			isError := "false"
			if e.IsError {
				isError = "true"
			}
			m.httpDuration.WithLabelValues(e.Method, isError).Observe(e.Duration.Seconds())
			if m.logger != nil {
				m.logger.Info("http_call",
					"instance_id", e.InstanceID,
					"node_id", e.NodeID,
					"method", e.Method,
					"url", e.URL,
					"is_error", e.IsError,
				)
			}
		},
		OnTerminal: func(ctx context.Context, e *domain.TerminalEvent) {
			m.terminals.WithLabelValues(string(e.Status)).Inc()
			if m.logger != nil {
				m.logger.Info("instance_finished",
					"instance_id", e.InstanceID,
					"status", e.Status,
					"reason", e.Reason,
				)
			}
		},
	}
}
