package services

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"fleetwatch/models"
)

// incidentWindow is how far past an incident's start a new outage can land
// and still join it.
const incidentWindow = 5 * time.Minute

// networkRule classifies exception text into a network event kind. Rules are
// evaluated top to bottom, first match wins, so outage wording beats recovery
// wording beats timeout wording when a message matches more than one set.
type networkRule struct {
	kind     string
	keywords []string
}

var networkRules = []networkRule{
	{models.NetworkOutage, []string{"server down", "server unavailable", "connection failed", "network error"}},
	{models.NetworkRecovery, []string{"server up", "connection restored", "network restored", "server available", "connection established", "back online", "connectivity restored"}},
	{models.NetworkTimeout, []string{"timeout", "retry", "attempting reconnection"}},
}

// classifyNetworkEvent returns the network event kind for an exception, or
// false when the text matches no rule.
func classifyNetworkEvent(ev models.ExceptionEvent) (string, bool) {
	text := ev.Category + " " + ev.Detail
	for _, rule := range networkRules {
		if containsAny(text, rule.keywords) {
			return rule.kind, true
		}
	}
	return "", false
}

// AnalyzeNetwork classifies the exception stream into network events, groups
// them into incidents and computes fleet-wide recovery metrics. Incidents are
// derived fresh each call; nothing persists between passes.
func (a *Analyzer) AnalyzeNetwork(exceptions []models.ExceptionEvent) models.NetworkAnalysis {
	events := extractNetworkEvents(exceptions)
	incidents := a.groupIncidents(events)

	for _, inc := range incidents {
		inc.ImpactPct = a.impactPct(len(inc.AffectedDevices))
		inc.Severity = a.incidentSeverity(inc)
	}

	return models.NetworkAnalysis{
		Incidents: incidents,
		Events:    events,
		Metrics:   recoveryMetrics(incidents),
	}
}

// extractNetworkEvents classifies and time-orders the exception stream.
func extractNetworkEvents(exceptions []models.ExceptionEvent) []models.NetworkEvent {
	var events []models.NetworkEvent
	for _, ev := range exceptions {
		kind, ok := classifyNetworkEvent(ev)
		if !ok {
			continue
		}
		detail := ev.Detail
		if detail == "" {
			detail = ev.Category
		}
		events = append(events, models.NetworkEvent{
			ID:        uuid.NewString(),
			DeviceID:  ev.DeviceID,
			Timestamp: ev.Timestamp,
			Kind:      kind,
			Detail:    detail,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

// groupIncidents runs the single left-to-right grouping pass. Outages open
// or join the current incident; recoveries shrink it towards resolution;
// timeouts are recorded but drive nothing.
func (a *Analyzer) groupIncidents(events []models.NetworkEvent) []*models.NetworkIncident {
	var incidents []*models.NetworkIncident
	var current *models.NetworkIncident
	outageStart := make(map[string]time.Time)

	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case models.NetworkOutage:
			outageStart[ev.DeviceID] = ev.Timestamp

			// A resolved incident is closed for good; a later outage starts
			// a new one even inside the time window.
			if current == nil || current.Status == models.IncidentResolved ||
				ev.Timestamp.After(current.StartTime.Add(incidentWindow)) {
				current = &models.NetworkIncident{
					ID:               uuid.NewString(),
					StartTime:        ev.Timestamp,
					Status:           models.IncidentOngoing,
					AffectedDevices:  map[string]bool{ev.DeviceID: true},
					RecoveredDevices: map[string]bool{},
					RecoveryPattern:  models.RecoverySimultaneous,
				}
				incidents = append(incidents, current)
			} else {
				current.AffectedDevices[ev.DeviceID] = true
			}
			ev.IncidentID = current.ID

		case models.NetworkRecovery:
			if _, down := outageStart[ev.DeviceID]; !down {
				continue
			}
			inc := findOngoingIncident(incidents, ev.DeviceID)
			if inc == nil {
				continue
			}
			inc.RecoveredDevices[ev.DeviceID] = true
			ev.IncidentID = inc.ID
			inc.RecoveryPattern = recoveryPattern(inc)

			if len(inc.RecoveredDevices) == len(inc.AffectedDevices) {
				inc.Status = models.IncidentResolved
				end := ev.Timestamp
				inc.EndTime = &end
				minutes := roundInt(end.Sub(inc.StartTime).Minutes())
				inc.DurationMinutes = &minutes
			}
			delete(outageStart, ev.DeviceID)
		}
	}

	return incidents
}

// findOngoingIncident returns the most recent ongoing incident that includes
// the device.
func findOngoingIncident(incidents []*models.NetworkIncident, deviceID string) *models.NetworkIncident {
	for i := len(incidents) - 1; i >= 0; i-- {
		inc := incidents[i]
		if inc.Status == models.IncidentOngoing && inc.AffectedDevices[deviceID] {
			return inc
		}
	}
	return nil
}

// recoveryPattern classifies how an incident's devices came back. Full
// recovery reads as simultaneous absent finer timing analysis; so does an
// incident where nothing has recovered yet.
func recoveryPattern(inc *models.NetworkIncident) string {
	if len(inc.RecoveredDevices) == 0 || len(inc.AffectedDevices) == 0 {
		return models.RecoverySimultaneous
	}
	rate := float64(len(inc.RecoveredDevices)) / float64(len(inc.AffectedDevices))
	switch {
	case rate >= 1:
		return models.RecoverySimultaneous
	case rate > 0.8:
		return models.RecoveryGradual
	default:
		return models.RecoveryPartial
	}
}

// impactPct is the affected share of the configured fleet size, rounded and
// clamped to [0,100].
func (a *Analyzer) impactPct(affected int) int {
	pct := float64(affected) / float64(a.TotalDevices) * 100
	return roundInt(clamp(pct, 0, 100))
}

// incidentSeverity is a deterministic function of impact and duration.
// Ongoing incidents use elapsed time so far.
func (a *Analyzer) incidentSeverity(inc *models.NetworkIncident) string {
	minutes := 0
	if inc.DurationMinutes != nil {
		minutes = *inc.DurationMinutes
	} else {
		minutes = roundInt(a.Now().Sub(inc.StartTime).Minutes())
	}

	switch {
	case inc.ImpactPct > 50 || minutes > 30:
		return models.SeverityCritical
	case inc.ImpactPct > 20 || minutes > 10:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

// recoveryMetrics aggregates fleet-wide recovery statistics over the derived
// incidents.
func recoveryMetrics(incidents []*models.NetworkIncident) models.RecoveryMetrics {
	metrics := models.RecoveryMetrics{
		RecoveryPatterns: map[string]int{
			models.RecoverySimultaneous: 0,
			models.RecoveryGradual:      0,
			models.RecoveryPartial:      0,
		},
	}

	resolved := 0
	totalMinutes := 0
	longest := 0
	shortest := 0
	deviceCounts := make(map[string]int)

	for _, inc := range incidents {
		metrics.RecoveryPatterns[inc.RecoveryPattern]++
		for deviceID := range inc.AffectedDevices {
			deviceCounts[deviceID]++
		}

		if inc.Status != models.IncidentResolved || inc.DurationMinutes == nil {
			continue
		}
		resolved++
		minutes := *inc.DurationMinutes
		totalMinutes += minutes
		if minutes > longest {
			longest = minutes
		}
		if resolved == 1 || minutes < shortest {
			shortest = minutes
		}
	}

	if resolved > 0 {
		metrics.AverageRecoveryMinutes = float64(totalMinutes) / float64(resolved)
	}
	metrics.LongestRecoveryMinutes = longest
	metrics.ShortestRecoveryMinutes = shortest
	if len(incidents) > 0 {
		metrics.RecoveryRate = roundInt(float64(resolved) / float64(len(incidents)) * 100)
	}

	// Devices appearing in more than two incidents, most frequent first,
	// capped at five.
	var frequent []models.DeviceCount
	for deviceID, count := range deviceCounts {
		if count > 2 {
			frequent = append(frequent, models.DeviceCount{DeviceID: deviceID, Count: count})
		}
	}
	sort.Slice(frequent, func(i, j int) bool {
		if frequent[i].Count != frequent[j].Count {
			return frequent[i].Count > frequent[j].Count
		}
		return frequent[i].DeviceID < frequent[j].DeviceID
	})
	if len(frequent) > 5 {
		frequent = frequent[:5]
	}
	metrics.FrequentlyAffectedDevices = frequent

	return metrics
}

// NetworkStatusNow assesses fleet connectivity over the trailing 30 minutes,
// independent of incident grouping. A device is currently affected when it
// has an outage with no later recovery inside the window.
func (a *Analyzer) NetworkStatusNow(exceptions []models.ExceptionEvent) models.NetworkStatus {
	now := a.Now()
	windowStart := now.Add(-30 * time.Minute)

	lastOutage := make(map[string]time.Time)
	lastRecovery := make(map[string]time.Time)

	for _, ev := range extractNetworkEvents(exceptions) {
		if ev.Timestamp.Before(windowStart) {
			continue
		}
		switch ev.Kind {
		case models.NetworkOutage:
			if ev.Timestamp.After(lastOutage[ev.DeviceID]) {
				lastOutage[ev.DeviceID] = ev.Timestamp
			}
		case models.NetworkRecovery:
			if ev.Timestamp.After(lastRecovery[ev.DeviceID]) {
				lastRecovery[ev.DeviceID] = ev.Timestamp
			}
		}
	}

	var affected []string
	for deviceID, outageAt := range lastOutage {
		if recoveredAt, ok := lastRecovery[deviceID]; ok && recoveredAt.After(outageAt) {
			continue
		}
		affected = append(affected, deviceID)
	}
	sort.Strings(affected)

	status := models.NetworkStatusHealthy
	switch {
	case len(affected) > 3:
		status = models.NetworkStatusOutage
	case len(affected) >= 1:
		status = models.NetworkStatusDegraded
	}

	return models.NetworkStatus{
		Status:          status,
		AffectedDevices: affected,
		CheckedAt:       now,
	}
}

// DeviceRecoveryStatuses summarizes each device's outage history: current
// state from its last network event, average recovery time from
// outage/recovery pairs matched nearest-following, and a reliability share
// of the observed timespan.
func (a *Analyzer) DeviceRecoveryStatuses(exceptions []models.ExceptionEvent) []models.DeviceRecoveryStatus {
	events := extractNetworkEvents(exceptions)

	byDevice := make(map[string][]models.NetworkEvent)
	for _, ev := range events {
		byDevice[ev.DeviceID] = append(byDevice[ev.DeviceID], ev)
	}

	deviceIDs := make([]string, 0, len(byDevice))
	for id := range byDevice {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Strings(deviceIDs)

	var out []models.DeviceRecoveryStatus
	for _, deviceID := range deviceIDs {
		out = append(out, deviceRecoveryStatus(deviceID, byDevice[deviceID]))
	}
	return out
}

func deviceRecoveryStatus(deviceID string, events []models.NetworkEvent) models.DeviceRecoveryStatus {
	state := models.DeviceOnline
	switch events[len(events)-1].Kind {
	case models.NetworkOutage:
		state = models.DeviceOffline
	case models.NetworkTimeout:
		state = models.DeviceRecovering
	}

	// Pair each outage with the nearest following recovery.
	var openOutage *time.Time
	var totalDowntime time.Duration
	pairs := 0
	outages := 0
	for _, ev := range events {
		switch ev.Kind {
		case models.NetworkOutage:
			outages++
			if openOutage == nil {
				ts := ev.Timestamp
				openOutage = &ts
			}
		case models.NetworkRecovery:
			if openOutage != nil {
				totalDowntime += ev.Timestamp.Sub(*openOutage)
				pairs++
				openOutage = nil
			}
		}
	}

	avgRecovery := 0.0
	if pairs > 0 {
		avgRecovery = totalDowntime.Minutes() / float64(pairs)
	}

	reliability := 100.0
	span := events[len(events)-1].Timestamp.Sub(events[0].Timestamp)
	if span > 0 {
		reliability = clamp((span-totalDowntime).Minutes()/span.Minutes()*100, 0, 100)
	}

	return models.DeviceRecoveryStatus{
		DeviceID:               deviceID,
		State:                  state,
		AverageRecoveryMinutes: avgRecovery,
		ReliabilityPct:         reliability,
		OutageCount:            outages,
	}
}
