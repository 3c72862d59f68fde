package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"fleetwatch/models"
)

// Analyzer derives all dashboard analytics from the raw event logs. Every
// method is a pure function of its inputs and the injected clock; the
// analyzer itself holds no per-call state.
type Analyzer struct {
	// TotalDevices is the configured fleet size used as the incident
	// impact denominator.
	TotalDevices int

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

// NewAnalyzer creates an analyzer for a fleet of the given size.
func NewAnalyzer(totalDevices int) *Analyzer {
	if totalDevices <= 0 {
		totalDevices = 10
	}
	return &Analyzer{
		TotalDevices: totalDevices,
		Now:          time.Now,
	}
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundInt rounds to the nearest integer.
func roundInt(v float64) int {
	return int(math.Round(v))
}

// containsAny reports whether s contains any of the keywords,
// case-insensitively.
func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// voltageReadings extracts the voltage series from ignition events in
// chronological order, skipping events without a reading.
func voltageReadings(events []models.IgnitionEvent) []float64 {
	sorted := make([]models.IgnitionEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var readings []float64
	for _, ev := range sorted {
		if ev.Voltage != nil {
			readings = append(readings, *ev.Voltage)
		}
	}
	return readings
}

// lastN returns the trailing n elements of values.
func lastN(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// mean returns the arithmetic mean, 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// countEventsSince counts ignition plus exception events at or after since.
func countEventsSince(ignitions []models.IgnitionEvent, exceptions []models.ExceptionEvent, since time.Time) int {
	count := 0
	for _, ev := range ignitions {
		if !ev.Timestamp.Before(since) {
			count++
		}
	}
	for _, ev := range exceptions {
		if !ev.Timestamp.Before(since) {
			count++
		}
	}
	return count
}

// countExceptionsSince counts exception events at or after since.
func countExceptionsSince(exceptions []models.ExceptionEvent, since time.Time) int {
	count := 0
	for _, ev := range exceptions {
		if !ev.Timestamp.Before(since) {
			count++
		}
	}
	return count
}
