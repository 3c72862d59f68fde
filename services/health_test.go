package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fleetwatch/models"
)

func testAnalyzer(now time.Time) *Analyzer {
	a := NewAnalyzer(10)
	a.Now = func() time.Time { return now }
	return a
}

func voltagePtr(v float64) *float64 { return &v }

func ignitionAt(deviceID string, ts time.Time, voltage *float64) models.IgnitionEvent {
	return models.IgnitionEvent{
		DeviceID:   deviceID,
		Timestamp:  ts,
		IgnitionOn: true,
		Voltage:    voltage,
	}
}

func exceptionAt(deviceID string, ts time.Time, category string) models.ExceptionEvent {
	return models.ExceptionEvent{
		DeviceID:  deviceID,
		Timestamp: ts,
		Category:  category,
	}
}

func TestHealthScoreNoEventsGoldenValue(t *testing.T) {
	a := testAnalyzer(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))

	score := a.HealthScore("dev-1", nil, nil)

	// connectivity 0, battery 12.0/12.6*100 = 95.24, error rate 100, uptime 0
	// -> 0.25*95.238 + 0.25*100 = 48.81, rounds to 49.
	assert.Equal(t, 49, score.Score)
	assert.Equal(t, 0, score.Factors.Connectivity)
	assert.Equal(t, 95, score.Factors.BatteryHealth)
	assert.Equal(t, 100, score.Factors.ErrorRate)
	assert.Equal(t, 0, score.Factors.Uptime)
}

func TestHealthScoreActiveHealthyDevice(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	var ignitions []models.IgnitionEvent
	for i := 0; i < 20; i++ {
		ignitions = append(ignitions, ignitionAt("dev-1", now.Add(-time.Duration(i)*time.Minute), voltagePtr(12.6)))
	}

	score := a.HealthScore("dev-1", ignitions, nil)

	assert.Equal(t, 100, score.Factors.Connectivity)
	assert.Equal(t, 100, score.Factors.BatteryHealth)
	assert.Equal(t, 100, score.Factors.ErrorRate)
	assert.Equal(t, 100, score.Factors.Uptime)
	assert.Equal(t, 100, score.Score)
}

func TestHealthScoreErrorRateReflectsExceptionShare(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// 3 ignitions, 1 exception: error rate 100*(1-1/4) = 75.
	ignitions := []models.IgnitionEvent{
		ignitionAt("dev-1", now.Add(-3*time.Hour), nil),
		ignitionAt("dev-1", now.Add(-2*time.Hour), nil),
		ignitionAt("dev-1", now.Add(-1*time.Hour), nil),
	}
	exceptions := []models.ExceptionEvent{
		exceptionAt("dev-1", now.Add(-90*time.Minute), "gps error"),
	}

	score := a.HealthScore("dev-1", ignitions, exceptions)

	assert.Equal(t, 75, score.Factors.ErrorRate)
}

func TestHealthScoreBatteryUsesLastTenReadings(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Ten old terrible readings followed by ten nominal ones: only the
	// nominal tail should count.
	var ignitions []models.IgnitionEvent
	for i := 0; i < 10; i++ {
		ignitions = append(ignitions, ignitionAt("dev-1", now.Add(-time.Duration(40-i)*time.Hour), voltagePtr(9.0)))
	}
	for i := 0; i < 10; i++ {
		ignitions = append(ignitions, ignitionAt("dev-1", now.Add(-time.Duration(20-i)*time.Hour), voltagePtr(12.6)))
	}

	score := a.HealthScore("dev-1", ignitions, nil)

	assert.Equal(t, 100, score.Factors.BatteryHealth)
}
