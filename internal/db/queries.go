package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/j-veylop/panoptic/internal/models"
)

// InsertAuditEvent records one audit event.
func (db *DB) InsertAuditEvent(event *models.AuditEvent) error {
	var details []byte
	if len(event.Details) > 0 {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO audit_events (id, kind, resource_type, resource_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(context.Background(), query,
		event.ID,
		event.Kind,
		nullString(event.ResourceType),
		nullString(event.ResourceID),
		nullString(string(details)),
		createdAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// RecentAuditEvents returns the most recent audit events, newest first.
func (db *DB) RecentAuditEvents(limit int) ([]models.AuditEvent, error) {
	query := `
		SELECT id, kind, resource_type, resource_id, details, created_at
		FROM audit_events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.AuditEvent
	for rows.Next() {
		var event models.AuditEvent
		var resType, resID, details sql.NullString

		if err := rows.Scan(&event.ID, &event.Kind, &resType, &resID, &details, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		event.ResourceType = resType.String
		event.ResourceID = resID.String
		if details.Valid && details.String != "" {
			_ = json.Unmarshal([]byte(details.String), &event.Details)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// InsertUsageSnapshot persists a combined-totals snapshot for one run.
func (db *DB) InsertUsageSnapshot(snap *models.UsageSnapshot) error {
	takenAt := snap.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	query := `
		INSERT INTO usage_snapshots (taken_at, cost_today, cost_week, cost_month,
			total_tokens, total_requests, provider_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.ExecContext(context.Background(), query,
		takenAt.UTC().Format("2006-01-02 15:04:05"),
		snap.CostToday,
		snap.CostLast7Days,
		snap.CostLast30Days,
		snap.TotalTokens,
		snap.TotalRequests,
		snap.ProviderCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage snapshot: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		snap.ID = id
	}
	return nil
}

// RecentUsageSnapshots returns the most recent snapshots, newest first.
func (db *DB) RecentUsageSnapshots(limit int) ([]models.UsageSnapshot, error) {
	query := `
		SELECT id, taken_at, cost_today, cost_week, cost_month,
			   total_tokens, total_requests, provider_count
		FROM usage_snapshots
		ORDER BY taken_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []models.UsageSnapshot
	for rows.Next() {
		var snap models.UsageSnapshot
		if err := rows.Scan(&snap.ID, &snap.TakenAt, &snap.CostToday, &snap.CostLast7Days,
			&snap.CostLast30Days, &snap.TotalTokens, &snap.TotalRequests, &snap.ProviderCount); err != nil {
			return nil, fmt.Errorf("failed to scan usage snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// PruneAuditEvents removes audit events older than the retention window.
func (db *DB) PruneAuditEvents(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	result, err := db.ExecContext(context.Background(),
		"DELETE FROM audit_events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit events: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// nullString converts an empty string to a NULL value.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
