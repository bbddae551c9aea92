package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/panoptic/internal/services"
)

const (
	// DefaultTickInterval is the interval between housekeeping ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second
)

// tickCmd returns a command that sends a TickMsg after the interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// subscribeToServicesCmd subscribes to manager events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// refreshUsageCmd runs a full aggregation pass.
func refreshUsageCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		mgr.Refresh(context.Background())
		return UsageLoadedMsg{Summary: mgr.LastSummary()}
	}
}

// diagnoseKeysCmd runs key diagnosis across all providers.
func diagnoseKeysCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		diags := mgr.Diagnose(context.Background())
		return DiagnosisCompleteMsg{Diagnoses: diags}
	}
}

// loadAuditCmd loads the recent audit trail.
func loadAuditCmd(mgr *services.Manager, limit int) tea.Cmd {
	return func() tea.Msg {
		events, err := mgr.Audit().Recent(limit)
		return AuditLoadedMsg{Events: events, Error: err}
	}
}

// notifyCmd emits a notification message.
func notifyCmd(kind NotificationType, message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: kind, Message: message, Duration: DefaultNotificationDuration}
	}
}

func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message)
}

func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message)
}

// clearNotificationCmd removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}
