package models

import "time"

// SecretEntry is one record as returned by the secret store. Category is a
// free-form tag ("llm", "infra", ...); Provider is an optional hint naming
// the vendor the key belongs to.
type SecretEntry struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Category string `json:"category,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Credential is a resolved API key candidate for one provider. Read-only
// once resolved.
type Credential struct {
	Name     string
	Value    string
	Provider string
}

// Redacted returns the secret value with all but a short prefix masked,
// for display and audit detail.
func (c Credential) Redacted() string {
	const keep = 8
	if len(c.Value) <= keep {
		return "********"
	}
	return c.Value[:keep] + "…"
}

// KeyKind classifies a diagnosed credential.
type KeyKind string

const (
	KeyKindAdmin    KeyKind = "admin"
	KeyKindStandard KeyKind = "standard"
	KeyKindUnknown  KeyKind = "unknown"
)

// KeyDiagnosis is the on-demand validation result for a single credential.
// Never persisted. A failed probe populates Error; Valid reflects whether
// the provider accepted the key at all.
type KeyDiagnosis struct {
	CredentialName string
	Provider       string
	Valid          bool
	Kind           KeyKind
	Organization   string
	Units          []string
	Error          string
}

// AuditEvent is one fire-and-forget audit record.
type AuditEvent struct {
	ID           string
	Kind         string
	ResourceType string
	ResourceID   string
	Details      map[string]string
	CreatedAt    time.Time
}
