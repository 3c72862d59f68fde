package services

import (
	"time"

	"fleetwatch/models"
)

const windowHours = 24 * 7

// failureKeywords mark an exception as a failure for MTBF purposes.
var failureKeywords = []string{"server down", "timeout", "error"}

// PerformanceMetrics computes uptime percentage, MTBF and voltage statistics
// for one device over the trailing 7-day window.
func (a *Analyzer) PerformanceMetrics(deviceID string, ignitions []models.IgnitionEvent, exceptions []models.ExceptionEvent) models.DevicePerformanceMetrics {
	now := a.Now()
	windowStart := now.Add(-windowHours * time.Hour)

	// Uptime: fraction of hour buckets in the window with at least one event.
	buckets := make(map[int64]bool)
	markBucket := func(ts time.Time) {
		if ts.Before(windowStart) {
			return
		}
		buckets[ts.Truncate(time.Hour).Unix()] = true
	}
	for _, ev := range ignitions {
		markBucket(ev.Timestamp)
	}
	for _, ev := range exceptions {
		markBucket(ev.Timestamp)
	}
	uptimePct := 100 * float64(len(buckets)) / windowHours

	// MTBF: window hours over failure count. Fewer than two failures means
	// the full window; the divisor never goes below one.
	failures := 0
	for _, ev := range exceptions {
		if containsAny(ev.Category, failureKeywords) {
			failures++
		}
	}
	mtbf := float64(windowHours)
	if failures >= 2 {
		mtbf = windowHours / float64(failures)
	}

	avgVoltage := mean(voltageReadings(ignitions))

	lastSeen := now
	if last := latestTimestamp(ignitions, exceptions); !last.IsZero() {
		lastSeen = last
	}

	return models.DevicePerformanceMetrics{
		DeviceID:       deviceID,
		UptimePct:      uptimePct,
		MTBFHours:      mtbf,
		AverageVoltage: avgVoltage,
		LastSeen:       lastSeen,
	}
}

// latestTimestamp returns the max timestamp across both streams, zero when
// there are no events.
func latestTimestamp(ignitions []models.IgnitionEvent, exceptions []models.ExceptionEvent) time.Time {
	var last time.Time
	for _, ev := range ignitions {
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	for _, ev := range exceptions {
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	return last
}
