package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/api/v1/reservations", "2xx")
		ObserveOperation("create", "ok", time.Now())
		IncSweep("expired", 0)
		AddIndexEntries(1)
		AddIndexEntries(-1)
		IncOutbox("published")
	})
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestSweepCounter(t *testing.T) {
	before := counterValue(t, sweepTransitions.WithLabelValues("completed"))
	IncSweep("completed", 3)
	IncSweep("completed", 0)
	assert.Equal(t, before+3, counterValue(t, sweepTransitions.WithLabelValues("completed")))
}

func TestOutboxFailedGauge(t *testing.T) {
	SetOutboxFailed(4)
	var m dto.Metric
	require.NoError(t, outboxFailed.Write(&m))
	assert.Equal(t, 4.0, m.GetGauge().GetValue())
}
