package app

import (
	"time"

	"github.com/j-veylop/panoptic/internal/models"
	"github.com/j-veylop/panoptic/internal/services"
)

// TickMsg is sent periodically to trigger housekeeping.
type TickMsg struct {
	Time time.Time
}

// SubscriptionEventMsg is the callback wrapper for the service subscription.
type SubscriptionEventMsg struct {
	Channel <-chan services.Event
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.Event
}

// UsageLoadedMsg carries a fresh combined usage summary.
type UsageLoadedMsg struct {
	Summary *models.CombinedUsageSummary
}

// DiagnosisCompleteMsg carries the results of a key diagnosis run.
type DiagnosisCompleteMsg struct {
	Diagnoses []models.KeyDiagnosis
}

// AuditLoadedMsg carries loaded audit events.
type AuditLoadedMsg struct {
	Events []models.AuditEvent
	Error  error
}

// SecretSavedMsg contains the result of adding a secret.
type SecretSavedMsg struct {
	Name  string
	Error error
}

// SecretDeletedMsg contains the result of deleting a secret.
type SecretDeletedMsg struct {
	Name  string
	Error error
}

// RefreshMsg requests a usage refresh.
type RefreshMsg struct{}

// DiagnoseMsg requests a key diagnosis run.
type DiagnoseMsg struct{}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}
