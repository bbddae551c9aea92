package models

import "testing"

func TestTokenCountsAdd(t *testing.T) {
	a := TokenCounts{InputTokens: 100, OutputTokens: 50, Requests: 3}
	b := TokenCounts{InputTokens: 200, OutputTokens: 80, Requests: 7}

	sum := a.Add(b)
	if sum.InputTokens != 300 || sum.OutputTokens != 130 || sum.Requests != 10 {
		t.Errorf("unexpected sum: %+v", sum)
	}
}

func TestCredentialRedacted(t *testing.T) {
	c := Credential{Value: "sk-admin-1234567890abcdef"}
	got := c.Redacted()
	if got != "sk-admin…" {
		t.Errorf("Redacted() = %q", got)
	}

	short := Credential{Value: "sk"}
	if short.Redacted() != "********" {
		t.Errorf("short value should be fully masked, got %q", short.Redacted())
	}
}

func TestKnownProviders(t *testing.T) {
	providers := KnownProviders()
	if len(providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(providers))
	}
	for _, tag := range providers {
		if ProviderDisplayName(tag) == tag {
			t.Errorf("no display name for %s", tag)
		}
	}
	if ProviderDisplayName("other") != "other" {
		t.Error("unknown tags should pass through")
	}
}
