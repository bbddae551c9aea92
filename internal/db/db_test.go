package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/panoptic/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestAuditEventRoundTrip(t *testing.T) {
	database := newTestDB(t)

	event := &models.AuditEvent{
		ID:           "evt-1",
		Kind:         "usage.aggregate",
		ResourceType: "provider",
		ResourceID:   "openai",
		Details:      map[string]string{"credentials": "2"},
	}
	if err := database.InsertAuditEvent(event); err != nil {
		t.Fatalf("InsertAuditEvent failed: %v", err)
	}

	events, err := database.RecentAuditEvents(10)
	if err != nil {
		t.Fatalf("RecentAuditEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	got := events[0]
	if got.ID != "evt-1" || got.Kind != "usage.aggregate" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.ResourceID != "openai" {
		t.Errorf("ResourceID = %q", got.ResourceID)
	}
	if got.Details["credentials"] != "2" {
		t.Errorf("Details = %v", got.Details)
	}
}

func TestRecentAuditEventsOrder(t *testing.T) {
	database := newTestDB(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		event := &models.AuditEvent{
			ID:        id,
			Kind:      "test",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := database.InsertAuditEvent(event); err != nil {
			t.Fatalf("InsertAuditEvent failed: %v", err)
		}
	}

	events, err := database.RecentAuditEvents(2)
	if err != nil {
		t.Fatalf("RecentAuditEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != "new" || events[1].ID != "mid" {
		t.Errorf("wrong order: %s, %s", events[0].ID, events[1].ID)
	}
}

func TestUsageSnapshotRoundTrip(t *testing.T) {
	database := newTestDB(t)

	snap := &models.UsageSnapshot{
		CostToday:      1.25,
		CostLast7Days:  10.50,
		CostLast30Days: 42.00,
		TotalTokens:    123456,
		TotalRequests:  789,
		ProviderCount:  3,
	}
	if err := database.InsertUsageSnapshot(snap); err != nil {
		t.Fatalf("InsertUsageSnapshot failed: %v", err)
	}
	if snap.ID == 0 {
		t.Error("snapshot ID should be set after insert")
	}

	snaps, err := database.RecentUsageSnapshots(5)
	if err != nil {
		t.Fatalf("RecentUsageSnapshots failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(snaps))
	}
	if snaps[0].CostLast30Days != 42.00 || snaps[0].TotalTokens != 123456 {
		t.Errorf("unexpected snapshot: %+v", snaps[0])
	}
}

func TestPruneAuditEvents(t *testing.T) {
	database := newTestDB(t)

	old := &models.AuditEvent{ID: "old", Kind: "test", CreatedAt: time.Now().Add(-48 * time.Hour)}
	recent := &models.AuditEvent{ID: "recent", Kind: "test"}
	for _, e := range []*models.AuditEvent{old, recent} {
		if err := database.InsertAuditEvent(e); err != nil {
			t.Fatalf("InsertAuditEvent failed: %v", err)
		}
	}

	pruned, err := database.PruneAuditEvents(24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneAuditEvents failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned %d, want 1", pruned)
	}

	events, err := database.RecentAuditEvents(10)
	if err != nil {
		t.Fatalf("RecentAuditEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "recent" {
		t.Errorf("unexpected survivors: %+v", events)
	}
}
