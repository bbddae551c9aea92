// Package models defines data structures and domain types.
package models

import "time"

// Provider tags for the supported LLM vendors.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// KnownProviders returns all supported provider tags in display order.
func KnownProviders() []string {
	return []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini}
}

// ProviderDisplayName returns a human-readable name for a provider tag.
func ProviderDisplayName(tag string) string {
	switch tag {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderGemini:
		return "Gemini"
	default:
		return tag
	}
}

// DateFormat is the canonical calendar-day format used throughout the
// aggregation engine. Dates are UTC-normalized.
const DateFormat = "2006-01-02"

// TokenCounts holds one day's raw token and request figures as reported by a
// provider endpoint, before cost attribution.
type TokenCounts struct {
	InputTokens  int64
	OutputTokens int64
	Requests     int64
}

// Add returns the element-wise sum of two token counts.
func (t TokenCounts) Add(o TokenCounts) TokenCounts {
	return TokenCounts{
		InputTokens:  t.InputTokens + o.InputTokens,
		OutputTokens: t.OutputTokens + o.OutputTokens,
		Requests:     t.Requests + o.Requests,
	}
}

// DailyUsage is one calendar day's aggregated usage and cost.
// TotalTokens is always InputTokens + OutputTokens.
type DailyUsage struct {
	Date         string // YYYY-MM-DD, UTC
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Requests     int64
	CostUSD      float64
}

// UnitRef identifies a provider-defined cost-attribution unit: an OpenAI
// project, an Anthropic workspace, or a synthetic per-credential bucket.
type UnitRef struct {
	ID   string
	Name string
}

// ProjectUsage aggregates usage for a single cost-attribution unit.
// Daily is ordered newest first. Instances are rebuilt on every aggregation
// run and never persisted.
type ProjectUsage struct {
	Unit           UnitRef
	Provider       string
	CredentialName string
	InputTokens    int64
	OutputTokens   int64
	TotalTokens    int64
	Requests       int64
	CostUSD        float64
	CostToday      float64
	CostLast7Days  float64
	CostLast30Days float64
	Daily          []DailyUsage
}

// ProviderUsageSummary is one provider's merged usage across all of its
// credentials. Today is the most recent day with data (nil when the provider
// reported nothing); the series are ordered newest first and contain only
// days with data. Absent dates mean no activity, not zero rows.
type ProviderUsageSummary struct {
	Provider       string
	Today          *DailyUsage
	Last7Days      []DailyUsage
	Last30Days     []DailyUsage
	CostToday      float64
	CostLast7Days  float64
	CostLast30Days float64
	Projects       []ProjectUsage
}

// CombinedUsageSummary merges all provider summaries. The per-provider
// summaries are retained for diagnostic display.
type CombinedUsageSummary struct {
	Today          *DailyUsage
	Last7Days      []DailyUsage
	Last30Days     []DailyUsage
	CostToday      float64
	CostLast7Days  float64
	CostLast30Days float64
	Projects       []ProjectUsage
	Providers      map[string]*ProviderUsageSummary
}

// UsageSnapshot is one persisted row of combined totals, recorded after each
// successful aggregation run for the local activity history.
type UsageSnapshot struct {
	ID             int64
	TakenAt        time.Time
	CostToday      float64
	CostLast7Days  float64
	CostLast30Days float64
	TotalTokens    int64
	TotalRequests  int64
	ProviderCount  int
}
