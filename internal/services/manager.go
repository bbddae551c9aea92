// Package services wires the secret store, database, audit sink and usage
// engine together and runs the background refresh loop the UI subscribes to.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/panoptic/internal/audit"
	"github.com/j-veylop/panoptic/internal/config"
	"github.com/j-veylop/panoptic/internal/db"
	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/models"
	"github.com/j-veylop/panoptic/internal/secrets"
	"github.com/j-veylop/panoptic/internal/usage"
)

// EventType identifies what a service event carries.
type EventType int

const (
	// EventUsageUpdated carries a fresh combined usage summary.
	EventUsageUpdated EventType = iota
	// EventDiagnosis carries key diagnosis results.
	EventDiagnosis
	// EventSecretsChanged signals the secret file changed on disk.
	EventSecretsChanged
	// EventError carries a background failure.
	EventError
)

// Event is what the manager broadcasts to subscribers.
type Event struct {
	Type      EventType
	Summary   *models.CombinedUsageSummary
	Diagnoses []models.KeyDiagnosis
	Err       error
}

// Manager owns the service graph and the refresh lifecycle.
type Manager struct {
	cfg      *config.Config
	store    *secrets.Store
	database *db.DB
	auditor  *audit.Sink
	engine   *usage.Engine

	mu          sync.RWMutex
	subscribers []chan Event
	lastSummary *models.CombinedUsageSummary
	alerted     bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager builds the full service graph from configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	store, err := secrets.New(cfg.SecretsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	auditor := audit.New(database)
	engine := usage.NewEngine(store, auditor,
		usage.NewOpenAIClient(cfg.OpenAIBaseURL),
		usage.NewAnthropicClient(cfg.AnthropicBaseURL),
		usage.NewGeminiClient(cfg.GeminiBaseURL),
	)

	return &Manager{
		cfg:      cfg,
		store:    store,
		database: database,
		auditor:  auditor,
		engine:   engine,
		done:     make(chan struct{}),
	}, nil
}

// Secrets exposes the secret store for the keys tab.
func (m *Manager) Secrets() *secrets.Store { return m.store }

// Audit exposes the audit sink for the audit tab.
func (m *Manager) Audit() *audit.Sink { return m.auditor }

// Database exposes the database for snapshot history.
func (m *Manager) Database() *db.DB { return m.database }

// Subscribe registers a new event channel. Events are delivered best
// effort; a slow subscriber drops events rather than blocking the loop.
func (m *Manager) Subscribe() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, 16)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// LastSummary returns the most recent combined summary, or nil before the
// first refresh completes.
func (m *Manager) LastSummary() *models.CombinedUsageSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSummary
}

// Start launches the background loops: an immediate refresh, the periodic
// refresh ticker and the secret change relay.
func (m *Manager) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	m.Refresh(ctx)

	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		case event, ok := <-m.store.Events():
			if !ok {
				return
			}
			m.handleSecretEvent(ctx, event)
		}
	}
}

func (m *Manager) handleSecretEvent(ctx context.Context, event secrets.Event) {
	switch event.Type {
	case secrets.EventSecretsChanged, secrets.EventSecretAdded, secrets.EventSecretDeleted:
		logger.Info("secrets changed, refreshing usage")
		m.broadcast(Event{Type: EventSecretsChanged})
		m.Refresh(ctx)
	case secrets.EventError:
		m.broadcast(Event{Type: EventError, Err: event.Error})
	}
}

// Refresh runs one aggregation pass, persists a snapshot, fires the cost
// alert when the threshold is crossed and broadcasts the result.
func (m *Manager) Refresh(ctx context.Context) {
	start := time.Now()
	summary := m.engine.AggregateAll(ctx)
	logger.Info("usage refreshed",
		"providers", len(summary.Providers),
		"projects", len(summary.Projects),
		"cost_today", summary.CostToday,
		"took", time.Since(start).Round(time.Millisecond))

	m.persistSnapshot(summary)
	m.checkCostAlert(summary)

	m.mu.Lock()
	m.lastSummary = summary
	m.mu.Unlock()

	m.broadcast(Event{Type: EventUsageUpdated, Summary: summary})
}

// Diagnose runs key diagnosis and broadcasts the flattened results.
func (m *Manager) Diagnose(ctx context.Context) []models.KeyDiagnosis {
	byProvider := m.engine.DiagnoseAll(ctx)
	var diags []models.KeyDiagnosis
	for _, tag := range models.KnownProviders() {
		diags = append(diags, byProvider[tag]...)
	}
	m.broadcast(Event{Type: EventDiagnosis, Diagnoses: diags})
	return diags
}

func (m *Manager) persistSnapshot(summary *models.CombinedUsageSummary) {
	if m.database == nil {
		return
	}
	snap := &models.UsageSnapshot{
		TakenAt:        time.Now().UTC(),
		CostToday:      summary.CostToday,
		CostLast7Days:  summary.CostLast7Days,
		CostLast30Days: summary.CostLast30Days,
		ProviderCount:  len(summary.Providers),
	}
	for _, d := range summary.Last30Days {
		snap.TotalTokens += d.TotalTokens
		snap.TotalRequests += d.Requests
	}
	if err := m.database.InsertUsageSnapshot(snap); err != nil {
		logger.Warn("failed to persist usage snapshot", "error", err)
	}
}

// checkCostAlert raises a desktop notification the first time today's cost
// crosses the configured threshold, then stays quiet until it drops back
// under.
func (m *Manager) checkCostAlert(summary *models.CombinedUsageSummary) {
	if m.cfg.CostAlertUSD <= 0 {
		return
	}

	m.mu.Lock()
	over := summary.CostToday >= m.cfg.CostAlertUSD
	fire := over && !m.alerted
	m.alerted = over
	m.mu.Unlock()

	if !fire {
		return
	}
	msg := fmt.Sprintf("Today's LLM spend is $%.2f (alert at $%.2f)", summary.CostToday, m.cfg.CostAlertUSD)
	if err := beeep.Notify("Panoptic cost alert", msg, ""); err != nil {
		logger.Warn("failed to send notification", "error", err)
	}
	m.auditor.Record("cost.alert_fired", "summary", "", map[string]string{
		"cost_today": fmt.Sprintf("%.2f", summary.CostToday),
		"threshold":  fmt.Sprintf("%.2f", m.cfg.CostAlertUSD),
	})
}

func (m *Manager) broadcast(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			logger.Debug("dropping service event, subscriber is slow", "type", event.Type)
		}
	}
}

// Close stops the background loops and releases the store and database.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	var firstErr error
	if err := m.store.Close(); err != nil {
		firstErr = err
	}
	if err := m.database.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
