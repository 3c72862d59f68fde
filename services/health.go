package services

import (
	"math"
	"time"

	"fleetwatch/models"
)

const (
	nominalVoltage  = 12.6
	baselineVoltage = 12.0
)

// HealthScore computes the composite 0-100 health score for one device from
// its ignition and exception events. It always returns a value, degrading to
// neutral defaults on empty input.
func (a *Analyzer) HealthScore(deviceID string, ignitions []models.IgnitionEvent, exceptions []models.ExceptionEvent) models.DeviceHealthScore {
	now := a.Now()

	// Connectivity: 10 points per event in the last hour, capped.
	recentCount := countEventsSince(ignitions, exceptions, now.Add(-1*time.Hour))
	connectivity := math.Min(100, float64(recentCount)*10)

	// Battery: average of the last 10 voltage readings against nominal.
	// No readings means no evidence of trouble, so assume the 12.0 V
	// baseline rather than failing.
	readings := lastN(voltageReadings(ignitions), 10)
	avgVoltage := baselineVoltage
	if len(readings) > 0 {
		avgVoltage = mean(readings)
	}
	batteryHealth := clamp(avgVoltage/nominalVoltage*100, 0, 100)

	// Error rate: share of events that are not exceptions. No data at all
	// counts as healthy.
	total := len(ignitions) + len(exceptions)
	errorRate := 100.0
	if total > 0 {
		errorRate = 100 * (1 - float64(len(exceptions))/float64(total))
	}

	// Uptime: 5 points per event in the last 24 hours, capped.
	dayCount := countEventsSince(ignitions, exceptions, now.Add(-24*time.Hour))
	uptime := math.Min(100, float64(dayCount)*5)

	score := 0.30*connectivity + 0.25*batteryHealth + 0.25*errorRate + 0.20*uptime

	return models.DeviceHealthScore{
		DeviceID: deviceID,
		Score:    roundInt(score),
		Factors: models.HealthFactors{
			Connectivity:  roundInt(connectivity),
			BatteryHealth: roundInt(batteryHealth),
			ErrorRate:     roundInt(errorRate),
			Uptime:        roundInt(uptime),
		},
		ComputedAt: now,
	}
}
