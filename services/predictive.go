package services

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"fleetwatch/models"
)

const (
	batteryCutoffVoltage  = 10.5
	decliningSlopeLimit   = -0.1
	failureHorizonHours   = 72
	degradationWindowDays = 3
	degradationThreshold  = 10
)

// connectionKeywords mark an exception as connectivity related for the
// degradation forecast.
var connectionKeywords = []string{"connection", "timeout", "server"}

// PredictAlerts fits trends over one device's recent series and projects
// time to failure. Ids are transient, fresh each pass.
func (a *Analyzer) PredictAlerts(deviceID string, ignitions []models.IgnitionEvent, exceptions []models.ExceptionEvent) []models.PredictiveAlert {
	now := a.Now()
	var alerts []models.PredictiveAlert

	if alert := a.predictBatteryFailure(deviceID, ignitions, now); alert != nil {
		alerts = append(alerts, *alert)
	}
	if alert := a.predictConnectionDegradation(deviceID, exceptions, now); alert != nil {
		alerts = append(alerts, *alert)
	}

	return alerts
}

func (a *Analyzer) predictBatteryFailure(deviceID string, ignitions []models.IgnitionEvent, now time.Time) *models.PredictiveAlert {
	readings := lastN(voltageReadings(ignitions), 10)
	if len(readings) < 5 {
		return nil
	}

	slope := leastSquaresSlope(readings)
	if slope >= decliningSlopeLimit {
		return nil
	}

	current := readings[len(readings)-1]
	etaHours := (current - batteryCutoffVoltage) / math.Abs(slope)
	if etaHours < 0 {
		etaHours = 0
	}
	if etaHours >= failureHorizonHours {
		return nil
	}

	probability := roundInt(clamp(100-etaHours/failureHorizonHours*100, 20, 95))

	return &models.PredictiveAlert{
		ID:             uuid.NewString(),
		DeviceID:       deviceID,
		Kind:           models.PredictBatteryFailure,
		Probability:    probability,
		ETAHours:       etaHours,
		Description:    fmt.Sprintf("Voltage declining at %.3f V per reading, projected to reach %.1f V in %.1f hours", slope, batteryCutoffVoltage, etaHours),
		Recommendation: "Schedule battery replacement",
		CreatedAt:      now,
	}
}

func (a *Analyzer) predictConnectionDegradation(deviceID string, exceptions []models.ExceptionEvent, now time.Time) *models.PredictiveAlert {
	windowStart := now.Add(-degradationWindowDays * 24 * time.Hour)
	count := 0
	for _, ev := range exceptions {
		if ev.Timestamp.Before(windowStart) {
			continue
		}
		if containsAny(ev.Category, connectionKeywords) {
			count++
		}
	}
	if count <= degradationThreshold {
		return nil
	}

	probability := roundInt(math.Min(90, float64(count)/20*100))

	return &models.PredictiveAlert{
		ID:             uuid.NewString(),
		DeviceID:       deviceID,
		Kind:           models.PredictConnectionDegradation,
		Probability:    probability,
		ETAHours:       24,
		Description:    fmt.Sprintf("%d connection-related exceptions in the last %d days", count, degradationWindowDays),
		Recommendation: "Check antenna and SIM, consider network provider diagnostics",
		CreatedAt:      now,
	}
}

// leastSquaresSlope fits an ordinary least squares line of value against
// reading index. Index spacing, not elapsed time, is the x axis; this is a
// deliberate approximation given irregular sampling intervals.
func leastSquaresSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
