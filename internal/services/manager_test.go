package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/panoptic/internal/config"
	"github.com/j-veylop/panoptic/internal/models"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:    filepath.Join(dir, "panoptic.db"),
		SecretsPath:     filepath.Join(dir, "secrets.json"),
		RefreshInterval: time.Hour,
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return m
}

func TestNewManagerBuildsGraph(t *testing.T) {
	m := testManager(t)
	if m.Secrets() == nil || m.Database() == nil || m.Audit() == nil {
		t.Fatal("manager is missing a collaborator")
	}
	if m.LastSummary() != nil {
		t.Error("expected no summary before the first refresh")
	}
}

func TestManagerBroadcast(t *testing.T) {
	m := testManager(t)
	sub := m.Subscribe()

	summary := &models.CombinedUsageSummary{CostToday: 1.5}
	m.broadcast(Event{Type: EventUsageUpdated, Summary: summary})

	select {
	case event := <-sub:
		if event.Type != EventUsageUpdated || event.Summary.CostToday != 1.5 {
			t.Errorf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}
}

func TestManagerBroadcastDropsWhenFull(t *testing.T) {
	m := testManager(t)
	sub := m.Subscribe()

	// Fill the buffer past capacity; broadcast must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			m.broadcast(Event{Type: EventSecretsChanged})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
	// Drain what made it through.
	for len(sub) > 0 {
		<-sub
	}
}

func TestManagerPersistSnapshot(t *testing.T) {
	m := testManager(t)
	summary := &models.CombinedUsageSummary{
		CostToday:      0.5,
		CostLast7Days:  2.0,
		CostLast30Days: 6.0,
		Last30Days: []models.DailyUsage{
			{Date: "2024-05-02", TotalTokens: 100, Requests: 4},
			{Date: "2024-05-01", TotalTokens: 50, Requests: 2},
		},
		Providers: map[string]*models.ProviderUsageSummary{"openai": {Provider: "openai"}},
	}
	m.persistSnapshot(summary)

	snaps, err := m.Database().RecentUsageSnapshots(10)
	if err != nil {
		t.Fatalf("RecentUsageSnapshots failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	snap := snaps[0]
	if snap.TotalTokens != 150 || snap.TotalRequests != 6 {
		t.Errorf("snapshot totals = %d tokens / %d requests, want 150/6", snap.TotalTokens, snap.TotalRequests)
	}
	if snap.ProviderCount != 1 {
		t.Errorf("provider count = %d, want 1", snap.ProviderCount)
	}
}

func TestCostAlertDisabledByDefault(t *testing.T) {
	m := testManager(t)
	m.checkCostAlert(&models.CombinedUsageSummary{CostToday: 1000})
	if m.alerted {
		t.Error("alert fired with a zero threshold")
	}
}

func TestCostAlertEdgeTriggered(t *testing.T) {
	m := testManager(t)
	m.cfg.CostAlertUSD = 10

	m.checkCostAlert(&models.CombinedUsageSummary{CostToday: 5})
	if m.alerted {
		t.Error("alert fired under the threshold")
	}

	m.checkCostAlert(&models.CombinedUsageSummary{CostToday: 15})
	if !m.alerted {
		t.Error("alert did not latch over the threshold")
	}

	// Still over: stays latched, no re-fire.
	m.checkCostAlert(&models.CombinedUsageSummary{CostToday: 20})
	if !m.alerted {
		t.Error("alert unlatched while still over the threshold")
	}

	// Dropping back under re-arms the alert.
	m.checkCostAlert(&models.CombinedUsageSummary{CostToday: 1})
	if m.alerted {
		t.Error("alert did not re-arm after dropping under the threshold")
	}
}
