// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/panoptic/internal/models"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
)

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// State is the shared application state all tabs read from.
type State struct {
	mu sync.RWMutex

	summary       *models.CombinedUsageSummary
	diagnoses     []models.KeyDiagnosis
	auditEvents   []models.AuditEvent
	notifications []Notification
	refreshing    bool
	diagnosing    bool
	initialLoad   bool
	lastRefresh   time.Time
}

// NewState creates the shared state.
func NewState() *State {
	return &State{initialLoad: true}
}

// Summary returns the latest combined usage summary, or nil before the
// first refresh.
func (s *State) Summary() *models.CombinedUsageSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// SetSummary stores a fresh summary and clears the initial-load flag.
func (s *State) SetSummary(summary *models.CombinedUsageSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
	s.initialLoad = false
	s.refreshing = false
	s.lastRefresh = time.Now()
}

// Diagnoses returns the latest key diagnoses.
func (s *State) Diagnoses() []models.KeyDiagnosis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diagnoses
}

// SetDiagnoses stores fresh key diagnoses.
func (s *State) SetDiagnoses(diags []models.KeyDiagnosis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnoses = diags
	s.diagnosing = false
}

// AuditEvents returns the loaded audit trail.
func (s *State) AuditEvents() []models.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auditEvents
}

// SetAuditEvents stores the loaded audit trail.
func (s *State) SetAuditEvents(events []models.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditEvents = events
}

// IsInitialLoading reports whether the first refresh is still in flight.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialLoad
}

// IsRefreshing reports whether a refresh is in flight.
func (s *State) IsRefreshing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshing
}

// SetRefreshing flags a refresh in flight.
func (s *State) SetRefreshing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = v
}

// IsDiagnosing reports whether a diagnosis run is in flight.
func (s *State) IsDiagnosing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diagnosing
}

// SetDiagnosing flags a diagnosis run in flight.
func (s *State) SetDiagnosing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnosing = v
}

// LastRefresh returns when the last refresh completed.
func (s *State) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// AddNotification appends a notification and returns its ID.
func (s *State) AddNotification(kind NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	}
	s.notifications = append(s.notifications, n)
	return n.ID
}

// Notifications returns the active notifications.
func (s *State) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications drops notifications past their duration.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if !n.IsExpired() {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
}
