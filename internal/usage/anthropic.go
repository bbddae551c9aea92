package usage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/models"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicClient talks to the Anthropic admin usage and cost report APIs.
// The organization routes require an admin key (sk-ant-admin…).
type AnthropicClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAnthropicClient(baseURL string) *AnthropicClient {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &AnthropicClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (c *AnthropicClient) Tag() string { return models.ProviderAnthropic }

func (c *AnthropicClient) KeyPrefixes() []string {
	return []string{"sk-ant-admin", "sk-ant-"}
}

func (c *AnthropicClient) headers(cred models.Credential) map[string]string {
	return map[string]string{
		"x-api-key":         cred.Value,
		"anthropic-version": anthropicAPIVersion,
	}
}

// ListUnits lists organization workspaces via after_id pagination.
func (c *AnthropicClient) ListUnits(ctx context.Context, cred models.Credential) ([]models.UnitRef, error) {
	var units []models.UnitRef
	after := ""
	for page := 0; page < maxPages; page++ {
		endpoint := c.baseURL + "/v1/organizations/workspaces?limit=100"
		if after != "" {
			endpoint += "&after_id=" + url.QueryEscape(after)
		}
		resp, err := getJSON(ctx, c.httpClient, endpoint, c.headers(cred))
		if err != nil {
			return nil, fmt.Errorf("failed to list workspaces: %w", err)
		}
		for _, item := range bucketList(resp, "data") {
			id := probeString(item, "id")
			if id == "" {
				continue
			}
			name := probeString(item, "name", "display_name")
			if name == "" {
				name = id
			}
			units = append(units, models.UnitRef{ID: id, Name: name})
		}
		hasMore, _ := resp["has_more"].(bool)
		after = probeString(resp, "last_id")
		if !hasMore || after == "" {
			break
		}
	}
	return units, nil
}

// FetchDailyUsage aggregates the messages usage report into per-day token
// counts, optionally filtered to the given workspace IDs.
func (c *AnthropicClient) FetchDailyUsage(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]models.TokenCounts, error) {
	usage := make(map[string]models.TokenCounts)
	err := c.fetchBuckets(ctx, cred, "/v1/organizations/usage_report/messages", r, unitIDs, func(date string, result map[string]any) {
		usage[date] = usage[date].Add(models.TokenCounts{
			InputTokens:  probeInt(result, "uncached_input_tokens", "input_tokens"),
			OutputTokens: probeInt(result, "output_tokens"),
			Requests:     probeInt(result, "num_requests", "request_count", "requests"),
		})
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// FetchDailyCost aggregates the cost report into per-day USD. Amounts come
// back as decimal strings.
func (c *AnthropicClient) FetchDailyCost(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]float64, error) {
	costs := make(map[string]float64)
	err := c.fetchBuckets(ctx, cred, "/v1/organizations/cost_report", r, unitIDs, func(date string, result map[string]any) {
		costs[date] += parseMoney(result["amount"])
	})
	if err != nil {
		return nil, err
	}
	return costs, nil
}

func (c *AnthropicClient) fetchBuckets(ctx context.Context, cred models.Credential, path string, r Range, unitIDs []string, collect func(date string, result map[string]any)) error {
	params := url.Values{}
	params.Set("starting_at", r.Start.UTC().Format(models.DateFormat))
	params.Set("ending_at", r.End.UTC().Format(models.DateFormat))
	params.Set("bucket_width", "1d")
	params.Set("limit", "31")
	for _, id := range unitIDs {
		params.Add("workspace_ids[]", id)
	}

	page := ""
	for i := 0; i < maxPages; i++ {
		if page != "" {
			params.Set("page", page)
		}
		resp, err := getJSON(ctx, c.httpClient, c.baseURL+path+"?"+params.Encode(), c.headers(cred))
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", path, err)
		}
		for _, bucket := range bucketList(resp, "data", "buckets") {
			date := bucketDate(bucket, "starting_at", "start_time", "start")
			if date == "" {
				continue
			}
			for _, result := range bucketList(bucket, "results") {
				collect(date, result)
			}
		}
		hasMore, _ := resp["has_more"].(bool)
		page = probeString(resp, "next_page")
		if !hasMore || page == "" {
			break
		}
	}
	return nil
}

// Diagnose probes the organization identity endpoint and the workspace
// list. Only admin keys can read either, so a single success is enough to
// classify the key.
func (c *AnthropicClient) Diagnose(ctx context.Context, cred models.Credential) models.KeyDiagnosis {
	diag := models.KeyDiagnosis{
		CredentialName: cred.Name,
		Provider:       models.ProviderAnthropic,
		Kind:           models.KeyKindUnknown,
	}
	if strings.HasPrefix(cred.Value, "sk-ant-") && !strings.HasPrefix(cred.Value, "sk-ant-admin") {
		diag.Kind = models.KeyKindStandard
	}

	resp, err := getJSON(ctx, c.httpClient, c.baseURL+"/v1/organizations/me", c.headers(cred))
	if err != nil {
		diag.Error = err.Error()
	} else {
		diag.Valid = true
		diag.Kind = models.KeyKindAdmin
		diag.Organization = probeString(resp, "name", "display_name", "id")
	}

	units, err := c.ListUnits(ctx, cred)
	if err != nil {
		logger.Debug("anthropic workspace listing failed", "credential", cred.Name, "error", err)
		return diag
	}
	diag.Valid = true
	diag.Kind = models.KeyKindAdmin
	for _, u := range units {
		diag.Units = append(diag.Units, u.Name)
	}
	return diag
}
