package services

import (
	"sort"
	"sync"

	"fleetwatch/models"
)

const defaultRetainPerDevice = 500

// EventLog is the in-memory retained log set the analytics run over. It
// keeps the most recent N events per device per stream; older entries are
// evicted on append. Reads return copies.
type EventLog struct {
	mu         sync.RWMutex
	capacity   int
	ignitions  map[string][]models.IgnitionEvent
	exceptions map[string][]models.ExceptionEvent
}

// NewEventLog creates an event log retaining up to capacity events per
// device per stream.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = defaultRetainPerDevice
	}
	return &EventLog{
		capacity:   capacity,
		ignitions:  make(map[string][]models.IgnitionEvent),
		exceptions: make(map[string][]models.ExceptionEvent),
	}
}

// AddIgnition appends an ignition event, evicting the oldest beyond capacity.
func (l *EventLog) AddIgnition(ev models.IgnitionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf := l.ignitions[ev.DeviceID]
	if len(buf) >= l.capacity {
		buf = buf[1:]
	}
	l.ignitions[ev.DeviceID] = append(buf, ev)
}

// AddException appends an exception event, evicting the oldest beyond capacity.
func (l *EventLog) AddException(ev models.ExceptionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf := l.exceptions[ev.DeviceID]
	if len(buf) >= l.capacity {
		buf = buf[1:]
	}
	l.exceptions[ev.DeviceID] = append(buf, ev)
}

// DeviceIDs returns every device seen on either stream, sorted.
func (l *EventLog) DeviceIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	for id := range l.ignitions {
		seen[id] = true
	}
	for id := range l.exceptions {
		seen[id] = true
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IgnitionsFor returns a copy of the retained ignition events for a device.
func (l *EventLog) IgnitionsFor(deviceID string) []models.IgnitionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	buf := l.ignitions[deviceID]
	out := make([]models.IgnitionEvent, len(buf))
	copy(out, buf)
	return out
}

// ExceptionsFor returns a copy of the retained exception events for a device.
func (l *EventLog) ExceptionsFor(deviceID string) []models.ExceptionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	buf := l.exceptions[deviceID]
	out := make([]models.ExceptionEvent, len(buf))
	copy(out, buf)
	return out
}

// AllIgnitions returns a copy of every retained ignition event.
func (l *EventLog) AllIgnitions() []models.IgnitionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.IgnitionEvent
	for _, buf := range l.ignitions {
		out = append(out, buf...)
	}
	return out
}

// AllExceptions returns a copy of every retained exception event.
func (l *EventLog) AllExceptions() []models.ExceptionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.ExceptionEvent
	for _, buf := range l.exceptions {
		out = append(out, buf...)
	}
	return out
}
