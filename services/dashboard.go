package services

import (
	"time"

	"fleetwatch/models"
)

// DashboardSnapshot is every engine output composed into one view model for
// the UI and the periodic websocket broadcast.
type DashboardSnapshot struct {
	GeneratedAt      time.Time                         `json:"generated_at"`
	HealthScores     []models.DeviceHealthScore        `json:"health_scores"`
	Metrics          []models.DevicePerformanceMetrics `json:"metrics"`
	Anomalies        []models.Anomaly                  `json:"anomalies"`
	PredictiveAlerts []models.PredictiveAlert          `json:"predictive_alerts"`
	ServerHealth     models.ServerHealthSnapshot       `json:"server_health"`
	Geographic       []models.GeographicData           `json:"geographic"`
	Network          models.NetworkAnalysis            `json:"network"`
	NetworkStatus    models.NetworkStatus              `json:"network_status"`
	RecoveryStatuses []models.DeviceRecoveryStatus     `json:"recovery_statuses"`
}

// BuildDashboard runs the full analysis pass over the retained logs. Cost
// scales with retained volume; the event log bounds that per device.
func (a *Analyzer) BuildDashboard(log *EventLog) DashboardSnapshot {
	snapshot := DashboardSnapshot{GeneratedAt: a.Now()}

	for _, deviceID := range log.DeviceIDs() {
		ignitions := log.IgnitionsFor(deviceID)
		exceptions := log.ExceptionsFor(deviceID)

		snapshot.HealthScores = append(snapshot.HealthScores, a.HealthScore(deviceID, ignitions, exceptions))
		snapshot.Metrics = append(snapshot.Metrics, a.PerformanceMetrics(deviceID, ignitions, exceptions))
		snapshot.Anomalies = append(snapshot.Anomalies, a.DetectAnomalies(deviceID, ignitions, exceptions)...)
		snapshot.PredictiveAlerts = append(snapshot.PredictiveAlerts, a.PredictAlerts(deviceID, ignitions, exceptions)...)
	}

	allIgnitions := log.AllIgnitions()
	allExceptions := log.AllExceptions()

	snapshot.ServerHealth = a.ServerHealth(allIgnitions, allExceptions)
	snapshot.Geographic = a.GeographicSnapshot(log.DeviceIDs(), log.IgnitionsFor, log.ExceptionsFor)
	snapshot.Network = a.AnalyzeNetwork(allExceptions)
	snapshot.NetworkStatus = a.NetworkStatusNow(allExceptions)
	snapshot.RecoveryStatuses = a.DeviceRecoveryStatuses(allExceptions)

	return snapshot
}
