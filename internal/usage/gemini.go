package usage

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/j-veylop/panoptic/internal/logger"
	"github.com/j-veylop/panoptic/internal/models"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiClient covers the Gemini API. Google exposes no per-key usage or
// cost reporting endpoint for API keys, so the fetch methods walk a short
// fallback list of candidate routes and treat every failure as "no data".
// An empty result here is the expected steady state, not an error.
type GeminiClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGeminiClient(baseURL string) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

func (c *GeminiClient) Tag() string { return models.ProviderGemini }

func (c *GeminiClient) KeyPrefixes() []string {
	return []string{"AIza"}
}

// ListUnits always returns no units; Gemini API keys carry no visible
// project sub-division.
func (c *GeminiClient) ListUnits(ctx context.Context, cred models.Credential) ([]models.UnitRef, error) {
	return nil, nil
}

func (c *GeminiClient) FetchDailyUsage(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]models.TokenCounts, error) {
	usage := make(map[string]models.TokenCounts)
	for _, path := range []string{"/v1beta/usage", "/v1beta/usageMetadata"} {
		resp, err := getJSON(ctx, c.httpClient, c.baseURL+path+"?key="+url.QueryEscape(cred.Value), nil)
		if err != nil {
			logger.Debug("gemini usage endpoint unavailable", "path", path, "error", err)
			continue
		}
		for _, bucket := range bucketList(resp, "usage", "data", "buckets") {
			date := bucketDate(bucket, "date", "start_time", "startTime")
			if date == "" {
				continue
			}
			usage[date] = usage[date].Add(models.TokenCounts{
				InputTokens:  probeInt(bucket, "promptTokenCount", "input_tokens"),
				OutputTokens: probeInt(bucket, "candidatesTokenCount", "output_tokens"),
				Requests:     probeInt(bucket, "requestCount", "requests"),
			})
		}
		break
	}
	return usage, nil
}

func (c *GeminiClient) FetchDailyCost(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]float64, error) {
	costs := make(map[string]float64)
	for _, path := range []string{"/v1beta/billing/costs", "/v1beta/costs"} {
		resp, err := getJSON(ctx, c.httpClient, c.baseURL+path+"?key="+url.QueryEscape(cred.Value), nil)
		if err != nil {
			logger.Debug("gemini cost endpoint unavailable", "path", path, "error", err)
			continue
		}
		for _, bucket := range bucketList(resp, "costs", "data", "buckets") {
			date := bucketDate(bucket, "date", "start_time", "startTime")
			if date == "" {
				continue
			}
			costs[date] += parseMoney(bucket["amount"])
		}
		break
	}
	return costs, nil
}

// Diagnose validates the key against the public model listing, the one
// endpoint a plain Gemini API key is guaranteed to reach.
func (c *GeminiClient) Diagnose(ctx context.Context, cred models.Credential) models.KeyDiagnosis {
	diag := models.KeyDiagnosis{
		CredentialName: cred.Name,
		Provider:       models.ProviderGemini,
		Kind:           models.KeyKindStandard,
	}
	endpoint := c.baseURL + "/v1beta/models?key=" + url.QueryEscape(cred.Value)
	if _, err := getJSON(ctx, c.httpClient, endpoint, nil); err != nil {
		diag.Kind = models.KeyKindUnknown
		diag.Error = err.Error()
		return diag
	}
	diag.Valid = true
	return diag
}
