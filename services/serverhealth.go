package services

import (
	"time"

	"fleetwatch/models"
)

// serverKeywords mark an exception as pointing at the backend rather than a
// single device.
var serverKeywords = []string{"server down", "server unavailable", "connection timeout"}

const minutesPerDay = 1440

// ServerHealth infers backend availability from the aggregate exception
// stream over the trailing 24 hours. Each matching exception is charged a
// flat two minutes of downtime.
func (a *Analyzer) ServerHealth(ignitions []models.IgnitionEvent, exceptions []models.ExceptionEvent) models.ServerHealthSnapshot {
	now := a.Now()
	dayStart := now.Add(-24 * time.Hour)
	hourStart := now.Add(-1 * time.Hour)

	serverExceptions := 0
	recentServerDown := false
	devicesWithServerExceptions := make(map[string]bool)
	var lastDowntime *time.Time

	for _, ev := range exceptions {
		if ev.Timestamp.Before(dayStart) {
			continue
		}
		if !containsAny(ev.Category, serverKeywords) {
			continue
		}
		serverExceptions++
		devicesWithServerExceptions[ev.DeviceID] = true
		if lastDowntime == nil || ev.Timestamp.After(*lastDowntime) {
			ts := ev.Timestamp
			lastDowntime = &ts
		}
		if !ev.Timestamp.Before(hourStart) && containsAny(ev.Category, []string{"server down"}) {
			recentServerDown = true
		}
	}

	status := models.ServerOnline
	switch {
	case recentServerDown:
		status = models.ServerOffline
	case serverExceptions > 5:
		status = models.ServerDegraded
	}

	uptimePct := clamp(float64(minutesPerDay-2*serverExceptions)/minutesPerDay*100, 0, 100)

	totalDevices := len(distinctDevices(ignitions, exceptions))
	connected := totalDevices - len(devicesWithServerExceptions)
	if connected < 0 {
		connected = 0
	}

	// Rough response-time estimate derived from the same exception volume;
	// there is no real probe behind this number.
	responseMs := 120 + serverExceptions*15
	if status == models.ServerOffline {
		responseMs = 0
	}

	return models.ServerHealthSnapshot{
		Status:               status,
		UptimePct:            uptimePct,
		ResponseTimeMs:       responseMs,
		ConnectedDevices:     connected,
		TotalDevices:         totalDevices,
		LastDowntime:         lastDowntime,
		DowntimeMinutesToday: 2 * serverExceptions,
	}
}

// distinctDevices collects every device id present on either stream.
func distinctDevices(ignitions []models.IgnitionEvent, exceptions []models.ExceptionEvent) map[string]bool {
	devices := make(map[string]bool)
	for _, ev := range ignitions {
		devices[ev.DeviceID] = true
	}
	for _, ev := range exceptions {
		devices[ev.DeviceID] = true
	}
	return devices
}
