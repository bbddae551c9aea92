package usage

import (
	"testing"

	"github.com/j-veylop/panoptic/internal/models"
)

func TestResolveCredentialsPolicy(t *testing.T) {
	client := &mockProvider{tag: "openai", prefixes: []string{"sk-admin-", "sk-proj-", "sk-"}}
	store := &mockStore{entries: []models.SecretEntry{
		{Name: "prod-llm", Value: "whatever", Category: "LLM"},
		{Name: "OpenAI Admin Key", Value: "whatever"},
		{Name: "misc", Value: "sk-proj-abc123"},
		{Name: "github-token", Value: "ghp_abc", Category: "vcs"},
	}}

	creds, err := ResolveCredentials(store, client)
	if err != nil {
		t.Fatalf("ResolveCredentials failed: %v", err)
	}
	if len(creds) != 3 {
		t.Fatalf("expected 3 credentials, got %d", len(creds))
	}
	for _, c := range creds {
		if c.Provider != "openai" {
			t.Errorf("credential %s has provider %q, want openai", c.Name, c.Provider)
		}
		if c.Name == "github-token" {
			t.Error("github-token should not match any rule")
		}
	}
}

func TestResolveCredentialsEmpty(t *testing.T) {
	client := &mockProvider{tag: "gemini", prefixes: []string{"AIza"}}
	store := &mockStore{entries: []models.SecretEntry{
		{Name: "db-password", Value: "hunter2", Category: "infra"},
	}}

	creds, err := ResolveCredentials(store, client)
	if err != nil {
		t.Fatalf("ResolveCredentials failed: %v", err)
	}
	if len(creds) != 0 {
		t.Fatalf("expected no credentials, got %d", len(creds))
	}
}

func TestResolveCredentialsProviderHint(t *testing.T) {
	client := &mockProvider{tag: "anthropic", prefixes: []string{"sk-ant-"}}
	store := &mockStore{entries: []models.SecretEntry{
		{Name: "tagged", Value: "sk-ant-xyz", Provider: "anthropic"},
		{Name: "other-provider", Value: "sk-ant-abc", Provider: "openai"},
	}}

	creds, err := ResolveCredentials(store, client)
	if err != nil {
		t.Fatalf("ResolveCredentials failed: %v", err)
	}
	if len(creds) != 1 || creds[0].Name != "tagged" {
		t.Fatalf("provider hint should exclude mis-tagged secrets, got %+v", creds)
	}
}
