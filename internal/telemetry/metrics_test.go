package telemetry_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/bookship/internal/telemetry"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)

	m.RecordRequest("quote_price", "sendcloud", "success", 0.12)
	m.RecordRequest("quote_price", "sendcloud", "success", 0.08)
	m.RecordError("sendcloud", "HTTP_502")
	m.RecordFulfillment("dispatched")
	m.RecordDeadLetter("notification")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("quote_price", "sendcloud", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CarrierErrors.WithLabelValues("sendcloud", "HTTP_502")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fulfillments.WithLabelValues("dispatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeadLetters.WithLabelValues("notification")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.NewMetrics(prometheus.NewRegistry())
		telemetry.NewMetrics(prometheus.NewRegistry())
	})
}
