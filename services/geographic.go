package services

import (
	"time"

	"fleetwatch/models"
)

// criticalKeywords escalate a device's map status regardless of count.
var criticalKeywords = []string{"server down", "critical"}

// GeographicSnapshot reduces per-device location history to the latest known
// position plus a derived status. Devices that never reported a location are
// omitted.
func (a *Analyzer) GeographicSnapshot(deviceIDs []string, ignitionsFor func(string) []models.IgnitionEvent, exceptionsFor func(string) []models.ExceptionEvent) []models.GeographicData {
	now := a.Now()
	var out []models.GeographicData

	for _, deviceID := range deviceIDs {
		ignitions := ignitionsFor(deviceID)
		exceptions := exceptionsFor(deviceID)

		// Most recent ignition event carrying a location.
		var latest *models.IgnitionEvent
		for i := range ignitions {
			ev := &ignitions[i]
			if ev.Location == nil {
				continue
			}
			if latest == nil || ev.Timestamp.After(latest.Timestamp) {
				latest = ev
			}
		}
		if latest == nil {
			continue
		}

		status := models.DeviceOnline
		recentCritical := false
		recentCount := 0
		hourStart := now.Add(-1 * time.Hour)
		for _, ev := range exceptions {
			if ev.Timestamp.Before(hourStart) {
				continue
			}
			recentCount++
			if containsAny(ev.Category, criticalKeywords) {
				recentCritical = true
			}
		}

		switch {
		case recentCritical:
			status = models.SeverityCritical
		case recentCount > 2:
			status = models.NotifyWarning
		case latest.Timestamp.Before(now.Add(-2 * time.Hour)):
			status = models.DeviceOffline
		}

		health := a.HealthScore(deviceID, ignitions, exceptions)

		out = append(out, models.GeographicData{
			DeviceID:    deviceID,
			Location:    *latest.Location,
			Timestamp:   latest.Timestamp,
			Status:      status,
			HealthScore: health.Score,
		})
	}

	return out
}
