package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/botwalk/botwalk/pkg/domain"
)

func TestHooks_RecordMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{InstanceID: "i1", Type: domain.EventNodeEnter},
		NodeID:    "start",
		NodeKind:  domain.KindStart,
	})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{InstanceID: "i1", Type: domain.EventNodeEnter},
		NodeID:    "hello",
		NodeKind:  domain.KindText,
	})
	hooks.OnTerminal(ctx, &domain.TerminalEvent{
		EventBase: domain.EventBase{InstanceID: "i1", Type: domain.EventTerminal},
		Status:    domain.StatusCompleted,
	})
	hooks.OnHTTPCall(ctx, &domain.HTTPCallEvent{
		EventBase: domain.EventBase{InstanceID: "i1", Type: domain.EventHTTPCall},
		NodeID:    "call",
		Method:    "GET",
		Duration:  50 * time.Millisecond,
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.nodeVisits.WithLabelValues("start")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.nodeVisits.WithLabelValues("text")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.terminals.WithLabelValues("completed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}
