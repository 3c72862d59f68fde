package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"fleetwatch/models"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{db}, nil
}

// InsertIgnitionEvent persists an ignition event
func (db *DB) InsertIgnitionEvent(event *models.IgnitionEvent) error {
	query := `
		INSERT INTO ignition_events (id, device_id, timestamp, ignition_on, voltage, lat, lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	var lat, lon *float64
	if event.Location != nil {
		lat = &event.Location.Lat
		lon = &event.Location.Lon
	}

	_, err := db.Exec(query, event.ID, event.DeviceID, event.Timestamp,
		event.IgnitionOn, event.Voltage, lat, lon)
	if err != nil {
		return fmt.Errorf("failed to insert ignition event: %v", err)
	}

	return nil
}

// InsertExceptionEvent persists an exception event
func (db *DB) InsertExceptionEvent(event *models.ExceptionEvent) error {
	query := `
		INSERT INTO exception_events (id, device_id, timestamp, category, detail, severity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := db.Exec(query, event.ID, event.DeviceID, event.Timestamp,
		event.Category, event.Detail, event.Severity)
	if err != nil {
		return fmt.Errorf("failed to insert exception event: %v", err)
	}

	return nil
}

// GetRecentIgnitionEvents retrieves the most recent ignition events,
// optionally filtered by device. Used to warm the in-memory log on startup.
func (db *DB) GetRecentIgnitionEvents(limit int, deviceID string) ([]models.IgnitionEvent, error) {
	query := `
		SELECT id, device_id, timestamp, ignition_on, voltage, lat, lon
		FROM ignition_events
		WHERE ($2 = '' OR device_id = $2)
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := db.Query(query, limit, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignition events: %v", err)
	}
	defer rows.Close()

	var events []models.IgnitionEvent
	for rows.Next() {
		var event models.IgnitionEvent
		var lat, lon sql.NullFloat64

		err := rows.Scan(&event.ID, &event.DeviceID, &event.Timestamp,
			&event.IgnitionOn, &event.Voltage, &lat, &lon)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ignition event: %v", err)
		}

		if lat.Valid && lon.Valid {
			event.Location = &models.Location{Lat: lat.Float64, Lon: lon.Float64}
		}

		events = append(events, event)
	}

	return events, nil
}

// GetRecentExceptionEvents retrieves the most recent exception events,
// optionally filtered by device.
func (db *DB) GetRecentExceptionEvents(limit int, deviceID string) ([]models.ExceptionEvent, error) {
	query := `
		SELECT id, device_id, timestamp, category, detail, severity
		FROM exception_events
		WHERE ($2 = '' OR device_id = $2)
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := db.Query(query, limit, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exception events: %v", err)
	}
	defer rows.Close()

	var events []models.ExceptionEvent
	for rows.Next() {
		var event models.ExceptionEvent
		var severity sql.NullString

		err := rows.Scan(&event.ID, &event.DeviceID, &event.Timestamp,
			&event.Category, &event.Detail, &severity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exception event: %v", err)
		}

		if severity.Valid {
			event.Severity = severity.String
		}

		events = append(events, event)
	}

	return events, nil
}

// GetAssignments retrieves all device-to-vehicle name assignments
func (db *DB) GetAssignments() ([]models.DeviceAssignment, error) {
	query := `
		SELECT device_id, vehicle_name, updated_at
		FROM device_assignments
		ORDER BY device_id
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %v", err)
	}
	defer rows.Close()

	var assignments []models.DeviceAssignment
	for rows.Next() {
		var assignment models.DeviceAssignment
		err := rows.Scan(&assignment.DeviceID, &assignment.VehicleName, &assignment.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %v", err)
		}
		assignments = append(assignments, assignment)
	}

	return assignments, nil
}

// UpsertAssignment creates or updates a device-to-vehicle name assignment
func (db *DB) UpsertAssignment(deviceID, vehicleName string) error {
	query := `
		INSERT INTO device_assignments (device_id, vehicle_name, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (device_id)
		DO UPDATE SET vehicle_name = $2, updated_at = NOW()
	`

	_, err := db.Exec(query, deviceID, vehicleName)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %v", err)
	}

	return nil
}

// DeleteAssignment removes a device-to-vehicle name assignment
func (db *DB) DeleteAssignment(deviceID string) error {
	query := `DELETE FROM device_assignments WHERE device_id = $1`

	_, err := db.Exec(query, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %v", err)
	}

	return nil
}
