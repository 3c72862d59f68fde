package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fleetwatch/models"
)

const (
	voltageDropThreshold     = 11.5
	voltageCriticalThreshold = 11.0
	restartStormThreshold    = 5
)

// DetectAnomalies scans one device's recent logs for threshold-violating
// patterns. Detection is stateless: a persisting condition re-fires on every
// pass, and ids are not stable across passes.
func (a *Analyzer) DetectAnomalies(deviceID string, ignitions []models.IgnitionEvent, exceptions []models.ExceptionEvent) []models.Anomaly {
	now := a.Now()
	var anomalies []models.Anomaly

	// Voltage drop: mean of the last 5 readings, at least 3 required.
	readings := lastN(voltageReadings(ignitions), 5)
	if len(readings) >= 3 {
		avg := mean(readings)
		if avg < voltageDropThreshold {
			severity := models.SeverityHigh
			if avg < voltageCriticalThreshold {
				severity = models.SeverityCritical
			}
			anomalies = append(anomalies, models.Anomaly{
				ID:             uuid.NewString(),
				DeviceID:       deviceID,
				Kind:           models.AnomalyVoltageDrop,
				Severity:       severity,
				Description:    fmt.Sprintf("Average voltage %.2f V over last %d readings is below %.1f V", avg, len(readings), voltageDropThreshold),
				DetectedAt:     now,
				ObservedValue:  avg,
				Threshold:      voltageDropThreshold,
				Recommendation: "Inspect battery and charging circuit",
			})
		}
	}

	// Restart storm: more than 5 exceptions in the trailing hour.
	recent := countExceptionsSince(exceptions, now.Add(-1*time.Hour))
	if recent > restartStormThreshold {
		anomalies = append(anomalies, models.Anomaly{
			ID:             uuid.NewString(),
			DeviceID:       deviceID,
			Kind:           models.AnomalyFrequentRestarts,
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("%d exception events in the last hour", recent),
			DetectedAt:     now,
			ObservedValue:  float64(recent),
			Threshold:      restartStormThreshold,
			Recommendation: "Check device power supply and firmware stability",
		})
	}

	return anomalies
}
