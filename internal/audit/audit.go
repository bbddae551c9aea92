// Package audit provides the fire-and-forget audit sink backed by the local store.
package audit

import (
	"github.com/google/uuid"

	"github.com/j-veylop/panoptic/internal/db"
	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/models"
)

// Sink writes audit events to the local database. Recording never fails
// from the caller's perspective; storage errors are logged and swallowed.
type Sink struct {
	database *db.DB
}

// New creates an audit sink over the given database.
func New(database *db.DB) *Sink {
	return &Sink{database: database}
}

// Record stores one audit event. Safe to call on a nil sink.
func (s *Sink) Record(kind, resourceType, resourceID string, details map[string]string) {
	if s == nil || s.database == nil {
		return
	}

	event := &models.AuditEvent{
		ID:           uuid.NewString(),
		Kind:         kind,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}

	if err := s.database.InsertAuditEvent(event); err != nil {
		logger.Debug("failed to record audit event", "kind", kind, "error", err)
	}
}

// Recent returns the most recent audit events, newest first.
func (s *Sink) Recent(limit int) ([]models.AuditEvent, error) {
	return s.database.RecentAuditEvents(limit)
}
