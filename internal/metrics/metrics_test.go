package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Counter(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("notifications_delivered", nil, "Delivered notifications")
	r.IncrementCounter("notifications_delivered", nil, "Delivered notifications")
	r.AddToCounter("notifications_delivered", 3, nil, "Delivered notifications")

	assert.Equal(t, float64(5), r.GetCounterValue("notifications_delivered", nil))
}

func TestRegistry_CounterLabelsAreIndependent(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("notifications_dropped", map[string]string{"reason": "permanent_failure"}, "")
	r.IncrementCounter("notifications_dropped", map[string]string{"reason": "retries_exhausted"}, "")
	r.IncrementCounter("notifications_dropped", map[string]string{"reason": "retries_exhausted"}, "")

	assert.Equal(t, float64(1), r.GetCounterValue("notifications_dropped", map[string]string{"reason": "permanent_failure"}))
	assert.Equal(t, float64(2), r.GetCounterValue("notifications_dropped", map[string]string{"reason": "retries_exhausted"}))
}

func TestRegistry_Gauge(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("queue_depth", 7, nil, "Pending notifications")
	r.SetGauge("queue_depth", 4, nil, "Pending notifications")

	assert.Equal(t, float64(4), r.GetGaugeValue("queue_depth", nil))
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("b_counter", nil, "")
	r.IncrementCounter("a_counter", nil, "")
	r.SetGauge("queue_degraded", 1, nil, "")

	snap := r.GetAll()

	assert.Len(t, snap.Counters, 2)
	assert.Len(t, snap.Gauges, 1)
	assert.Equal(t, "a_counter", snap.Counters[0].Name, "snapshot is sorted by name")
	assert.GreaterOrEqual(t, snap.UptimeSeconds, float64(0))
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("c", nil, "")
	r.SetGauge("g", 1, nil, "")

	r.Reset()

	assert.Equal(t, float64(0), r.GetCounterValue("c", nil))
	assert.Equal(t, float64(0), r.GetGaugeValue("g", nil))
}

func TestGlobalHelpers(t *testing.T) {
	GetRegistry().Reset()

	IncrementCounter("global_counter", nil, "")
	SetGauge("global_gauge", 2, nil, "")

	snap := GetAllMetrics()
	assert.Len(t, snap.Counters, 1)
	assert.Len(t, snap.Gauges, 1)
}
