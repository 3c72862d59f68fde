package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetwatch/models"
)

func TestBuildDashboardComposesAllSections(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	log := NewEventLog(10)
	log.AddIgnition(ignitionAt("dev-1", now.Add(-30*time.Minute), voltagePtr(12.4)))
	log.AddIgnition(ignitionAt("dev-2", now.Add(-20*time.Minute), voltagePtr(11.9)))
	log.AddException(exceptionAt("dev-1", now.Add(-15*time.Minute), "connection timeout"))
	log.AddException(exceptionAt("dev-2", now.Add(-10*time.Minute), "server down"))

	snapshot := a.BuildDashboard(log)

	assert.Equal(t, now, snapshot.GeneratedAt)

	require.Len(t, snapshot.HealthScores, 2)
	assert.Equal(t, "dev-1", snapshot.HealthScores[0].DeviceID)
	assert.Equal(t, "dev-2", snapshot.HealthScores[1].DeviceID)
	require.Len(t, snapshot.Metrics, 2)

	// dev-2's unresolved server-down exception shows up in the network views.
	require.Len(t, snapshot.Network.Incidents, 1)
	assert.Equal(t, models.IncidentOngoing, snapshot.Network.Incidents[0].Status)
	assert.Equal(t, models.NetworkStatusDegraded, snapshot.NetworkStatus.Status)
	assert.Equal(t, []string{"dev-2"}, snapshot.NetworkStatus.AffectedDevices)
	require.Len(t, snapshot.RecoveryStatuses, 2)
}

func TestBuildDashboardEmptyLog(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	a := testAnalyzer(now)

	snapshot := a.BuildDashboard(NewEventLog(10))

	assert.Empty(t, snapshot.HealthScores)
	assert.Empty(t, snapshot.Anomalies)
	assert.Empty(t, snapshot.Network.Incidents)
	assert.Equal(t, models.NetworkStatusHealthy, snapshot.NetworkStatus.Status)
	assert.Equal(t, models.ServerOnline, snapshot.ServerHealth.Status)
}
