package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fleetwatch/models"
)

func TestServerHealthAllQuiet(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	ignitions := []models.IgnitionEvent{
		ignitionAt("dev-1", now.Add(-10*time.Minute), nil),
		ignitionAt("dev-2", now.Add(-20*time.Minute), nil),
	}

	health := a.ServerHealth(ignitions, nil)

	assert.Equal(t, models.ServerOnline, health.Status)
	assert.Equal(t, 100.0, health.UptimePct)
	assert.Equal(t, 2, health.TotalDevices)
	assert.Equal(t, 2, health.ConnectedDevices)
	assert.Nil(t, health.LastDowntime)
	assert.Equal(t, 0, health.DowntimeMinutesToday)
}

func TestServerHealthOfflineOnRecentServerDown(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	exceptions := []models.ExceptionEvent{
		exceptionAt("dev-1", now.Add(-30*time.Minute), "Server Down"),
	}

	health := a.ServerHealth(nil, exceptions)

	assert.Equal(t, models.ServerOffline, health.Status)
	assert.NotNil(t, health.LastDowntime)
}

func TestServerHealthDegradedOnVolume(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	// Six server exceptions in the day, none in the last hour.
	var exceptions []models.ExceptionEvent
	for i := 0; i < 6; i++ {
		exceptions = append(exceptions, exceptionAt("dev-1", now.Add(-time.Duration(i+2)*time.Hour), "connection timeout"))
	}

	health := a.ServerHealth(nil, exceptions)

	assert.Equal(t, models.ServerDegraded, health.Status)
	// Each exception charges 2 minutes: (1440-12)/1440*100.
	assert.InDelta(t, 99.1667, health.UptimePct, 0.001)
	assert.Equal(t, 12, health.DowntimeMinutesToday)
}

func TestServerHealthConnectedDevices(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	ignitions := []models.IgnitionEvent{
		ignitionAt("dev-1", now.Add(-10*time.Minute), nil),
		ignitionAt("dev-2", now.Add(-10*time.Minute), nil),
		ignitionAt("dev-3", now.Add(-10*time.Minute), nil),
	}
	exceptions := []models.ExceptionEvent{
		exceptionAt("dev-3", now.Add(-3*time.Hour), "server unavailable"),
	}

	health := a.ServerHealth(ignitions, exceptions)

	assert.Equal(t, 3, health.TotalDevices)
	assert.Equal(t, 2, health.ConnectedDevices)
}

func TestServerHealthIgnoresUnrelatedExceptions(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	var exceptions []models.ExceptionEvent
	for i := 0; i < 20; i++ {
		exceptions = append(exceptions, exceptionAt("dev-1", now.Add(-time.Duration(i)*time.Minute), "gps signal lost"))
	}

	health := a.ServerHealth(nil, exceptions)

	assert.Equal(t, models.ServerOnline, health.Status)
	assert.Equal(t, 100.0, health.UptimePct)
}
