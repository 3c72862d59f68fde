package models

import (
	"time"
)

// Location is a GPS position attached to an ignition event.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IgnitionEvent represents a power/ignition state change reported by a device.
// Events are immutable once ingested; voltage and location are optional.
type IgnitionEvent struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	Timestamp  time.Time `json:"timestamp"`
	IgnitionOn bool      `json:"ignition_on"`
	Voltage    *float64  `json:"voltage,omitempty"`
	Location   *Location `json:"location,omitempty"`
}

// ExceptionEvent represents an error/fault condition reported by or about a device.
type ExceptionEvent struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Detail    string    `json:"detail"`
	Severity  string    `json:"severity,omitempty"`
}

// HealthFactors are the weighted sub-scores behind a device health score,
// each rounded to an integer in [0,100].
type HealthFactors struct {
	Connectivity  int `json:"connectivity"`
	BatteryHealth int `json:"battery_health"`
	ErrorRate     int `json:"error_rate"`
	Uptime        int `json:"uptime"`
}

// DeviceHealthScore is the composite 0-100 health score for one device.
// Recomputed fresh on every call, never persisted.
type DeviceHealthScore struct {
	DeviceID   string        `json:"device_id"`
	Score      int           `json:"score"`
	Factors    HealthFactors `json:"factors"`
	ComputedAt time.Time     `json:"computed_at"`
}

// DevicePerformanceMetrics holds per-device operational statistics over the
// trailing 7-day window.
type DevicePerformanceMetrics struct {
	DeviceID       string    `json:"device_id"`
	UptimePct      float64   `json:"uptime_pct"`
	MTBFHours      float64   `json:"mtbf_hours"`
	AverageVoltage float64   `json:"average_voltage"`
	LastSeen       time.Time `json:"last_seen"`
}

// Anomaly kinds.
const (
	AnomalyVoltageDrop        = "voltage_drop"
	AnomalyFrequentRestarts   = "frequent_restarts"
	AnomalyConnectionLoss     = "connection_loss"
	AnomalyBatteryDegradation = "battery_degradation"
)

// Anomaly severities, also used for incident severity.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Anomaly is a threshold-violating pattern detected in a device's recent logs.
// IDs are only unique within a single analysis pass; callers must not key on
// them across recomputations.
type Anomaly struct {
	ID             string    `json:"id"`
	DeviceID       string    `json:"device_id"`
	Kind           string    `json:"kind"`
	Severity       string    `json:"severity"`
	Description    string    `json:"description"`
	DetectedAt     time.Time `json:"detected_at"`
	ObservedValue  float64   `json:"observed_value"`
	Threshold      float64   `json:"threshold"`
	Recommendation string    `json:"recommendation"`
}

// Predictive alert kinds.
const (
	PredictBatteryFailure        = "battery_failure"
	PredictDeviceFailure         = "device_failure"
	PredictConnectionDegradation = "connection_degradation"
)

// PredictiveAlert projects a failure from a fitted trend. Same transient
// identity caveat as Anomaly.
type PredictiveAlert struct {
	ID             string    `json:"id"`
	DeviceID       string    `json:"device_id"`
	Kind           string    `json:"kind"`
	Probability    int       `json:"probability"`
	ETAHours       float64   `json:"eta_hours"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

// Server status values.
const (
	ServerOnline   = "online"
	ServerDegraded = "degraded"
	ServerOffline  = "offline"
)

// ServerHealthSnapshot is the backend availability assessment inferred from
// the aggregate exception stream.
type ServerHealthSnapshot struct {
	Status               string     `json:"status"`
	UptimePct            float64    `json:"uptime_pct"`
	ResponseTimeMs       int        `json:"response_time_ms"`
	ConnectedDevices     int        `json:"connected_devices"`
	TotalDevices         int        `json:"total_devices"`
	LastDowntime         *time.Time `json:"last_downtime,omitempty"`
	DowntimeMinutesToday int        `json:"downtime_minutes_today"`
}

// GeographicData is a device's latest known position plus derived status.
type GeographicData struct {
	DeviceID    string    `json:"device_id"`
	Location    Location  `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	HealthScore int       `json:"health_score"`
}

// Network event kinds.
const (
	NetworkOutage   = "outage"
	NetworkRecovery = "recovery"
	NetworkTimeout  = "timeout"
)

// NetworkEvent is an exception-stream entry classified as connectivity
// related. IncidentID back-references the incident it was grouped into.
type NetworkEvent struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"`
	Detail     string    `json:"detail"`
	IncidentID string    `json:"incident_id,omitempty"`
}

// Incident status values.
const (
	IncidentOngoing  = "ongoing"
	IncidentResolved = "resolved"
)

// Recovery pattern classifications.
const (
	RecoverySimultaneous = "simultaneous"
	RecoveryGradual      = "gradual"
	RecoveryPartial      = "partial"
)

// NetworkIncident is a time-bounded grouping of correlated outage events.
// RecoveredDevices is always a subset of AffectedDevices; EndTime and
// DurationMinutes are set exactly when Status is resolved.
type NetworkIncident struct {
	ID               string          `json:"id"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          *time.Time      `json:"end_time,omitempty"`
	DurationMinutes  *int            `json:"duration_minutes,omitempty"`
	Status           string          `json:"status"`
	AffectedDevices  map[string]bool `json:"affected_devices"`
	RecoveredDevices map[string]bool `json:"recovered_devices"`
	Severity         string          `json:"severity"`
	ImpactPct        int             `json:"impact_pct"`
	RecoveryPattern  string          `json:"recovery_pattern"`
}

// RecoveryMetrics are fleet-wide statistics over the derived incidents.
type RecoveryMetrics struct {
	AverageRecoveryMinutes    float64        `json:"average_recovery_minutes"`
	LongestRecoveryMinutes    int            `json:"longest_recovery_minutes"`
	ShortestRecoveryMinutes   int            `json:"shortest_recovery_minutes"`
	RecoveryRate              int            `json:"recovery_rate"`
	FrequentlyAffectedDevices []DeviceCount  `json:"frequently_affected_devices"`
	RecoveryPatterns          map[string]int `json:"recovery_patterns"`
}

// DeviceCount pairs a device with how many incidents it appeared in.
type DeviceCount struct {
	DeviceID string `json:"device_id"`
	Count    int    `json:"count"`
}

// NetworkAnalysis bundles the incident engine outputs for one pass.
type NetworkAnalysis struct {
	Incidents []*NetworkIncident `json:"incidents"`
	Events    []NetworkEvent     `json:"events"`
	Metrics   RecoveryMetrics    `json:"metrics"`
}

// Fleet network status values.
const (
	NetworkStatusHealthy  = "healthy"
	NetworkStatusDegraded = "degraded"
	NetworkStatusOutage   = "outage"
)

// NetworkStatus is the fleet connectivity assessment over the trailing
// 30 minutes.
type NetworkStatus struct {
	Status          string    `json:"status"`
	AffectedDevices []string  `json:"affected_devices"`
	CheckedAt       time.Time `json:"checked_at"`
}

// Per-device recovery states.
const (
	DeviceOnline     = "online"
	DeviceOffline    = "offline"
	DeviceRecovering = "recovering"
)

// DeviceRecoveryStatus summarizes one device's outage/recovery history.
type DeviceRecoveryStatus struct {
	DeviceID               string  `json:"device_id"`
	State                  string  `json:"state"`
	AverageRecoveryMinutes float64 `json:"average_recovery_minutes"`
	ReliabilityPct         float64 `json:"reliability_pct"`
	OutageCount            int     `json:"outage_count"`
}

// Notification kinds.
const (
	NotifyCritical = "critical"
	NotifyWarning  = "warning"
	NotifyInfo     = "info"
)

// AlertNotification is an entry in the dispatcher's bounded notification log.
type AlertNotification struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	DeviceID       string     `json:"device_id,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// DeviceAssignment maps a device to a user-editable vehicle name.
type DeviceAssignment struct {
	DeviceID    string    `json:"device_id"`
	VehicleName string    `json:"vehicle_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WebSocketMessage represents a message sent to WebSocket clients
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
