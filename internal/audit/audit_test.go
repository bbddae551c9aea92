package audit

import (
	"path/filepath"
	"testing"

	"github.com/j-veylop/panoptic/internal/db"
)

func TestSinkRecord(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	defer func() { _ = database.Close() }()

	sink := New(database)
	sink.Record("key.diagnose", "credential", "openai-admin", map[string]string{"valid": "true"})
	sink.Record("usage.aggregate", "provider", "anthropic", nil)

	events, err := sink.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.ID == "" {
			t.Error("event ID should be generated")
		}
	}
}

func TestSinkNilSafe(t *testing.T) {
	var sink *Sink
	// Must not panic
	sink.Record("noop", "", "", nil)
}
