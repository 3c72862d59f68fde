package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fleetwatch/models"
)

func TestPerformanceMetricsEmptyInput(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	m := a.PerformanceMetrics("dev-1", nil, nil)

	assert.Equal(t, 0.0, m.UptimePct)
	assert.Equal(t, 168.0, m.MTBFHours)
	assert.Equal(t, 0.0, m.AverageVoltage)
	assert.Equal(t, now, m.LastSeen)
}

func TestPerformanceMetricsUptimeBuckets(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Three events in the same hour bucket plus one in another: two buckets.
	ignitions := []models.IgnitionEvent{
		ignitionAt("dev-1", now.Add(-10*time.Minute), nil),
		ignitionAt("dev-1", now.Add(-20*time.Minute), nil),
		ignitionAt("dev-1", now.Add(-30*time.Minute), nil),
		ignitionAt("dev-1", now.Add(-5*time.Hour), nil),
	}

	m := a.PerformanceMetrics("dev-1", ignitions, nil)

	assert.InDelta(t, 100*2.0/168, m.UptimePct, 0.001)
}

func TestPerformanceMetricsMTBF(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	single := []models.ExceptionEvent{
		exceptionAt("dev-1", now.Add(-1*time.Hour), "Connection Timeout"),
	}
	m := a.PerformanceMetrics("dev-1", nil, single)
	// Fewer than two failures: MTBF stays at the full window.
	assert.Equal(t, 168.0, m.MTBFHours)

	four := []models.ExceptionEvent{
		exceptionAt("dev-1", now.Add(-1*time.Hour), "Server Down"),
		exceptionAt("dev-1", now.Add(-2*time.Hour), "connection timeout"),
		exceptionAt("dev-1", now.Add(-3*time.Hour), "GPS Error"),
		exceptionAt("dev-1", now.Add(-4*time.Hour), "timeout waiting for ack"),
	}
	m = a.PerformanceMetrics("dev-1", nil, four)
	assert.Equal(t, 42.0, m.MTBFHours)
}

func TestPerformanceMetricsVoltageAndLastSeen(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	last := now.Add(-15 * time.Minute)
	ignitions := []models.IgnitionEvent{
		ignitionAt("dev-1", now.Add(-2*time.Hour), voltagePtr(12.0)),
		ignitionAt("dev-1", last, voltagePtr(12.4)),
	}
	exceptions := []models.ExceptionEvent{
		exceptionAt("dev-1", now.Add(-1*time.Hour), "gps error"),
	}

	m := a.PerformanceMetrics("dev-1", ignitions, exceptions)

	assert.InDelta(t, 12.2, m.AverageVoltage, 0.001)
	assert.Equal(t, last, m.LastSeen)
}
