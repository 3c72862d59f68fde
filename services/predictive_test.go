package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetwatch/models"
)

func TestLeastSquaresSlope(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"steady decline", []float64{12.4, 12.2, 12.0, 11.8, 11.6}, -0.2},
		{"flat", []float64{12.0, 12.0, 12.0, 12.0, 12.0}, 0},
		{"rising", []float64{11.0, 11.5, 12.0, 12.5, 13.0}, 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, leastSquaresSlope(tc.values), 0.0001)
		})
	}
}

func TestPredictBatteryFailure(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Slope -0.2 V per reading, current 11.6 V: 5.5 hours to 10.5 V.
	ignitions := ignitionSeries("dev-1", now, []float64{12.4, 12.2, 12.0, 11.8, 11.6})

	alerts := a.PredictAlerts("dev-1", ignitions, nil)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, models.PredictBatteryFailure, alert.Kind)
	assert.InDelta(t, 5.5, alert.ETAHours, 0.001)
	// probability = clamp(100 - 5.5/72*100, 20, 95) = 92.36 -> 92
	assert.Equal(t, 92, alert.Probability)
}

func TestPredictBatteryFailureNeedsFiveReadings(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	ignitions := ignitionSeries("dev-1", now, []float64{12.4, 12.0, 11.6, 11.2})

	assert.Empty(t, a.PredictAlerts("dev-1", ignitions, nil))
}

func TestPredictBatteryFailureIgnoresMildDecline(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Slope -0.05, above the -0.1 trigger.
	ignitions := ignitionSeries("dev-1", now, []float64{12.4, 12.35, 12.3, 12.25, 12.2})

	assert.Empty(t, a.PredictAlerts("dev-1", ignitions, nil))
}

func TestPredictBatteryFailureSlowDeclineOutsideHorizon(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Slope -0.11 from a high starting voltage: (19.56-10.5)/0.11 = 82 h,
	// outside the 72-hour horizon.
	ignitions := ignitionSeries("dev-1", now, []float64{20.0, 19.89, 19.78, 19.67, 19.56})

	assert.Empty(t, a.PredictAlerts("dev-1", ignitions, nil))
}

func TestPredictConnectionDegradation(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	var exceptions []models.ExceptionEvent
	for i := 0; i < 11; i++ {
		exceptions = append(exceptions, exceptionAt("dev-1", now.Add(-time.Duration(i)*time.Hour), "connection timeout"))
	}

	alerts := a.PredictAlerts("dev-1", nil, exceptions)

	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, models.PredictConnectionDegradation, alert.Kind)
	assert.Equal(t, 24.0, alert.ETAHours)
	// probability = min(90, 11/20*100) = 55
	assert.Equal(t, 55, alert.Probability)
}

func TestPredictConnectionDegradationProbabilityCap(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	var exceptions []models.ExceptionEvent
	for i := 0; i < 30; i++ {
		exceptions = append(exceptions, exceptionAt("dev-1", now.Add(-time.Duration(i)*time.Minute), "server unreachable"))
	}

	alerts := a.PredictAlerts("dev-1", nil, exceptions)

	require.Len(t, alerts, 1)
	assert.Equal(t, 90, alerts[0].Probability)
}

func TestPredictConnectionDegradationIgnoresOldExceptions(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	var exceptions []models.ExceptionEvent
	for i := 0; i < 20; i++ {
		exceptions = append(exceptions, exceptionAt("dev-1", now.Add(-time.Duration(i+4*24)*time.Hour), "connection timeout"))
	}

	assert.Empty(t, a.PredictAlerts("dev-1", nil, exceptions))
}
