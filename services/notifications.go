package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetwatch/models"
)

const maxNotifications = 100

// NotificationService keeps the bounded, append-only notification log with
// acknowledgement state. It is constructed once and passed explicitly; the
// mutex serializes mutations against concurrent callers. Entries are not
// deduplicated: identical repeated alerts each insert a new entry.
type NotificationService struct {
	mu            sync.RWMutex
	enabled       bool
	notifications []models.AlertNotification
	subscribers   map[int]func([]models.AlertNotification)
	nextSubID     int
	now           func() time.Time
}

// NewNotificationService creates an enabled, empty notification service.
func NewNotificationService() *NotificationService {
	return &NotificationService{
		enabled:     true,
		subscribers: map[int]func([]models.AlertNotification){},
		now:         time.Now,
	}
}

// SetEnabled toggles whether Add accepts new notifications.
func (s *NotificationService) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Add prepends a notification, truncates the list to the most recent 100 and
// notifies all subscribers synchronously with the full current list. The id
// and timestamp are filled in when absent. Returns the stored notification.
func (s *NotificationService) Add(n models.AlertNotification) models.AlertNotification {
	s.mu.Lock()

	if !s.enabled {
		s.mu.Unlock()
		return n
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now()
	}

	s.notifications = append([]models.AlertNotification{n}, s.notifications...)
	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[:maxNotifications]
	}

	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, cb := range subs {
		cb(snapshot)
	}
	return n
}

// Acknowledge marks a notification as acknowledged. Unknown ids and already
// acknowledged entries are no-ops.
func (s *NotificationService) Acknowledge(id, by string) bool {
	s.mu.Lock()

	acked := false
	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if s.notifications[i].Acknowledged {
			break
		}
		at := s.now()
		s.notifications[i].Acknowledged = true
		s.notifications[i].AcknowledgedBy = by
		s.notifications[i].AcknowledgedAt = &at
		acked = true
		break
	}

	if !acked {
		s.mu.Unlock()
		return false
	}

	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, cb := range subs {
		cb(snapshot)
	}
	return true
}

// All returns a copy of the notification list, newest first.
func (s *NotificationService) All() []models.AlertNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// UnacknowledgedCount returns how many notifications are unacknowledged.
func (s *NotificationService) UnacknowledgedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if !n.Acknowledged {
			count++
		}
	}
	return count
}

// Subscribe registers a callback invoked with the full list after every
// mutation. The returned function unsubscribes it.
func (s *NotificationService) Subscribe(cb func([]models.AlertNotification)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = cb
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *NotificationService) snapshotLocked() []models.AlertNotification {
	out := make([]models.AlertNotification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *NotificationService) subscribersLocked() []func([]models.AlertNotification) {
	subs := make([]func([]models.AlertNotification), 0, len(s.subscribers))
	for _, cb := range s.subscribers {
		subs = append(subs, cb)
	}
	return subs
}
