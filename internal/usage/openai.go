package usage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/models"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIClient talks to the OpenAI organization usage and cost APIs. These
// endpoints require an admin key; standard project keys get a 401 on the
// organization routes, which Diagnose surfaces as a degraded kind.
type OpenAIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a client against the given base URL, or the
// public API when baseURL is empty.
func NewOpenAIClient(baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (c *OpenAIClient) Tag() string { return models.ProviderOpenAI }

func (c *OpenAIClient) KeyPrefixes() []string {
	return []string{"sk-admin-", "sk-proj-", "sk-"}
}

func (c *OpenAIClient) headers(cred models.Credential) map[string]string {
	return map[string]string{"Authorization": "Bearer " + cred.Value}
}

// ListUnits lists organization projects via cursor pagination.
func (c *OpenAIClient) ListUnits(ctx context.Context, cred models.Credential) ([]models.UnitRef, error) {
	var units []models.UnitRef
	after := ""
	for page := 0; page < maxPages; page++ {
		endpoint := c.baseURL + "/v1/organization/projects?limit=100"
		if after != "" {
			endpoint += "&after=" + url.QueryEscape(after)
		}
		resp, err := getJSON(ctx, c.httpClient, endpoint, c.headers(cred))
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}
		for _, item := range bucketList(resp, "data") {
			id := probeString(item, "id")
			if id == "" {
				continue
			}
			name := probeString(item, "name")
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

// FetchDailyUsage aggregates the completions usage report into per-day
// token counts, optionally filtered to the given project IDs.
func (c *OpenAIClient) FetchDailyUsage(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]models.TokenCounts, error) {
	usage := make(map[string]models.TokenCounts)
	err := c.fetchBuckets(ctx, cred, "/v1/organization/usage/completions", r, unitIDs, func(date string, result map[string]any) {
		usage[date] = usage[date].Add(models.TokenCounts{
			InputTokens:  probeInt(result, "input_tokens", "prompt_tokens", "uncached_input_tokens"),
			OutputTokens: probeInt(result, "output_tokens", "completion_tokens"),
			Requests:     probeInt(result, "num_model_requests", "request_count", "requests"),
		})
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// FetchDailyCost aggregates the organization cost report into per-day USD.
func (c *OpenAIClient) FetchDailyCost(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]float64, error) {
	costs := make(map[string]float64)
	err := c.fetchBuckets(ctx, cred, "/v1/organization/costs", r, unitIDs, func(date string, result map[string]any) {
		if amount, ok := result["amount"]; ok {
			costs[date] += parseMoney(amount)
		} else {
			costs[date] += parseMoney(result["cost"])
		}
	})
	if err != nil {
		return nil, err
	}
	return costs, nil
}

// fetchBuckets walks an organization report endpoint page by page and
// feeds every (date, result line) pair to collect.
func (c *OpenAIClient) fetchBuckets(ctx context.Context, cred models.Credential, path string, r Range, unitIDs []string, collect func(date string, result map[string]any)) error {
	params := url.Values{}
	params.Set("start_time", strconv.FormatInt(r.Start.Unix(), 10))
	params.Set("end_time", strconv.FormatInt(r.End.Unix(), 10))
	params.Set("bucket_width", "1d")
	params.Set("limit", "31")
	for _, id := range unitIDs {
		params.Add("project_ids", id)
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
			date := bucketDate(bucket, "start_time", "start")
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

// Diagnose probes both the model list and the organization project list.
// A key that reads models but not projects is a standard key; one that
// reads projects is an admin key. Both probes always run, so a key whose
// model-list probe fails still gets classified when the project listing
// answers.
func (c *OpenAIClient) Diagnose(ctx context.Context, cred models.Credential) models.KeyDiagnosis {
	diag := models.KeyDiagnosis{
		CredentialName: cred.Name,
		Provider:       models.ProviderOpenAI,
		Kind:           models.KeyKindUnknown,
	}

	if _, err := getJSON(ctx, c.httpClient, c.baseURL+"/v1/models", c.headers(cred)); err != nil {
		diag.Error = err.Error()
	} else {
		diag.Valid = true
		diag.Kind = models.KeyKindStandard
	}

	units, err := c.ListUnits(ctx, cred)
	if err != nil {
		logger.Debug("openai key lacks organization access", "credential", cred.Name, "error", err)
		return diag
	}
	diag.Valid = true
	diag.Kind = models.KeyKindAdmin
	for _, u := range units {
		diag.Units = append(diag.Units, u.Name)
	}
	return diag
}
