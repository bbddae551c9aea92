// Package usage implements the multi-provider usage aggregation engine:
// credential resolution, provider usage clients, per-provider aggregation
// and the cross-provider merge.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/models"
)

// maxPages caps every cursor-pagination loop so a misbehaving endpoint that
// always reports "has more" cannot stall an aggregation run.
const maxPages = 10

const defaultHTTPTimeout = 30 * time.Second

// Range is a closed-open time range [Start, End) for usage queries.
type Range struct {
	Start time.Time
	End   time.Time
}

// DefaultRange returns the last 30 calendar days up to now.
func DefaultRange(now time.Time) Range {
	end := now.UTC()
	return Range{Start: end.AddDate(0, 0, -30), End: end}
}

// SecretStore is the external credential collaborator.
type SecretStore interface {
	ListByProvider(tag string) ([]models.SecretEntry, error)
}

// AuditSink receives fire-and-forget audit records. Implementations must
// swallow their own failures.
type AuditSink interface {
	Record(kind, resourceType, resourceID string, details map[string]string)
}

// ProviderClient is implemented once per provider family. Fetch methods
// return empty maps rather than errors for "no data from this source";
// they only error when the provider rejected the request outright so the
// aggregator can log and isolate the failure.
type ProviderClient interface {
	// Tag returns the provider tag this client serves.
	Tag() string

	// KeyPrefixes returns the secret value prefixes that identify keys for
	// this provider, most specific first.
	KeyPrefixes() []string

	// ListUnits lists the provider's cost-attribution units. An empty slice
	// signals that the provider has no sub-division support.
	ListUnits(ctx context.Context, cred models.Credential) ([]models.UnitRef, error)

	// FetchDailyUsage returns date -> token counts for the range, optionally
	// filtered to the given unit IDs when the provider supports filtering.
	FetchDailyUsage(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]models.TokenCounts, error)

	// FetchDailyCost returns date -> cost in USD for the range.
	FetchDailyCost(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]float64, error)

	// Diagnose validates the credential against cheap read endpoints and
	// reports kind and accessible units. Never returns an error; failures
	// populate the diagnosis Error field.
	Diagnose(ctx context.Context, cred models.Credential) models.KeyDiagnosis
}

// getJSON issues a GET with the given headers and decodes the body into a
// generic map. Non-2xx statuses are returned as errors with a body excerpt.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request failed (status %d): %s", resp.StatusCode, excerpt(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return parsed, nil
}

func excerpt(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "…"
	}
	return string(body)
}

// probeInt tries the candidate field names in order and returns the first
// present as an integer, defaulting to zero. Provider responses rename
// fields across endpoint versions, so each semantic quantity carries an
// ordered candidate list.
func probeInt(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int64(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i
			}
		case string:
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i
			}
		}
	}
	return 0
}

// probeString tries the candidate field names in order and returns the
// first present non-empty string.
func probeString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// parseMoney converts a monetary amount in any of the shapes providers use:
// a bare number, a decimal string, or an {value, currency} object. Anything
// unparseable is 0 so one malformed bucket never aborts a fetch.
func parseMoney(v any) float64 {
	switch amount := v.(type) {
	case float64:
		return amount
	case string:
		if f, err := strconv.ParseFloat(amount, 64); err == nil {
			return f
		}
	case json.Number:
		if f, err := amount.Float64(); err == nil {
			return f
		}
	case map[string]any:
		if inner, ok := amount["value"]; ok {
			return parseMoney(inner)
		}
		if inner, ok := amount["amount"]; ok {
			return parseMoney(inner)
		}
	}
	return 0
}

// bucketList extracts the list of bucket objects from a response, probing
// the candidate container field names in order.
func bucketList(m map[string]any, keys ...string) []map[string]any {
	for _, k := range keys {
		raw, ok := m[k].([]any)
		if !ok {
			continue
		}
		buckets := make([]map[string]any, 0, len(raw))
		for _, item := range raw {
			if obj, ok := item.(map[string]any); ok {
				buckets = append(buckets, obj)
			}
		}
		return buckets
	}
	return nil
}

// bucketDate normalizes a bucket's day to YYYY-MM-DD in UTC. Buckets carry
// either unix-second timestamps or RFC3339/date strings depending on the
// provider and endpoint version.
func bucketDate(bucket map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := bucket[k]
		if !ok {
			continue
		}
		switch d := v.(type) {
		case float64:
			if d > 0 {
				return time.Unix(int64(d), 0).UTC().Format(models.DateFormat)
			}
		case string:
			if t, err := time.Parse(time.RFC3339, d); err == nil {
				return t.UTC().Format(models.DateFormat)
			}
			if _, err := time.Parse(models.DateFormat, d); err == nil {
				return d
			}
		}
	}
	return ""
}
