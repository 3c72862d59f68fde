package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetwatch/models"
)

func ignitionSeries(deviceID string, now time.Time, voltages []float64) []models.IgnitionEvent {
	var events []models.IgnitionEvent
	for i, v := range voltages {
		ts := now.Add(-time.Duration(len(voltages)-i) * time.Hour)
		events = append(events, ignitionAt(deviceID, ts, voltagePtr(v)))
	}
	return events
}

func TestDetectAnomaliesVoltageDropHigh(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Mean 11.4: below the 11.5 threshold but not below 11.0.
	ignitions := ignitionSeries("dev-1", now, []float64{11.8, 11.6, 11.4, 11.2, 11.0})

	anomalies := a.DetectAnomalies("dev-1", ignitions, nil)

	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalyVoltageDrop, anomalies[0].Kind)
	assert.Equal(t, models.SeverityHigh, anomalies[0].Severity)
	assert.InDelta(t, 11.4, anomalies[0].ObservedValue, 0.001)
	assert.Equal(t, 11.5, anomalies[0].Threshold)
}

func TestDetectAnomaliesVoltageDropCritical(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	ignitions := ignitionSeries("dev-1", now, []float64{11.0, 10.8, 10.6, 10.4, 10.2})

	anomalies := a.DetectAnomalies("dev-1", ignitions, nil)

	require.Len(t, anomalies, 1)
	assert.Equal(t, models.SeverityCritical, anomalies[0].Severity)
}

func TestDetectAnomaliesHealthyVoltageSeries(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Declining but the mean (12.0) stays above threshold: no anomaly.
	ignitions := ignitionSeries("dev-1", now, []float64{12.4, 12.2, 12.0, 11.8, 11.6})

	assert.Empty(t, a.DetectAnomalies("dev-1", ignitions, nil))
}

func TestDetectAnomaliesNeedsThreeReadings(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	ignitions := ignitionSeries("dev-1", now, []float64{10.0, 10.0})

	assert.Empty(t, a.DetectAnomalies("dev-1", ignitions, nil))
}

func TestDetectAnomaliesRestartStorm(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	var exceptions []models.ExceptionEvent
	for i := 0; i < 6; i++ {
		exceptions = append(exceptions, exceptionAt("dev-1", now.Add(-time.Duration(i)*time.Minute), "device restart"))
	}

	anomalies := a.DetectAnomalies("dev-1", nil, exceptions)

	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalyFrequentRestarts, anomalies[0].Kind)
	assert.Equal(t, models.SeverityHigh, anomalies[0].Severity)
	assert.Equal(t, 6.0, anomalies[0].ObservedValue)
}

func TestDetectAnomaliesOldExceptionsDoNotCount(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Plenty of history, nothing in the trailing hour: never fires.
	var exceptions []models.ExceptionEvent
	for i := 0; i < 50; i++ {
		exceptions = append(exceptions, exceptionAt("dev-1", now.Add(-time.Duration(i+2)*time.Hour), "device restart"))
	}

	assert.Empty(t, a.DetectAnomalies("dev-1", nil, exceptions))
}
