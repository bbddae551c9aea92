package app

import (
	"testing"
	"time"

	"github.com/j-veylop/panoptic/internal/models"
)

func TestStateSummaryLifecycle(t *testing.T) {
	s := NewState()
	if !s.IsInitialLoading() {
		t.Error("fresh state should be in initial load")
	}
	if s.Summary() != nil {
		t.Error("fresh state should have no summary")
	}

	s.SetRefreshing(true)
	s.SetSummary(&models.CombinedUsageSummary{CostToday: 2.5})

	if s.IsInitialLoading() {
		t.Error("setting a summary should clear initial load")
	}
	if s.IsRefreshing() {
		t.Error("setting a summary should clear refreshing")
	}
	if s.Summary().CostToday != 2.5 {
		t.Errorf("summary cost = %f, want 2.5", s.Summary().CostToday)
	}
	if s.LastRefresh().IsZero() {
		t.Error("last refresh time should be set")
	}
}

func TestStateNotifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationError, "boom", time.Hour)
	if len(s.Notifications()) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(s.Notifications()))
	}

	s.RemoveNotification(id)
	if len(s.Notifications()) != 0 {
		t.Error("notification was not removed")
	}
}

func TestStateClearExpiredNotifications(t *testing.T) {
	s := NewState()
	s.AddNotification(NotificationInfo, "short lived", time.Nanosecond)
	s.AddNotification(NotificationInfo, "sticky", 0)

	time.Sleep(time.Millisecond)
	s.ClearExpiredNotifications()

	remaining := s.Notifications()
	if len(remaining) != 1 || remaining[0].Message != "sticky" {
		t.Errorf("expected only the sticky notification, got %+v", remaining)
	}
}

func TestTabIDString(t *testing.T) {
	cases := map[TabID]string{
		TabOverview: "Overview",
		TabProjects: "Projects",
		TabKeys:     "Keys",
		TabAudit:    "Audit",
		TabID(99):   "Unknown",
	}
	for id, want := range cases {
		if got := id.String(); got != want {
			t.Errorf("TabID(%d).String() = %q, want %q", id, got, want)
		}
	}
}
