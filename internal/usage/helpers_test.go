package usage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/j-veylop/panoptic/internal/models"
)

// mockRoundTripper routes HTTP requests to a handler func so provider
// clients can be tested without a network.
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func mockHTTPClient(handler func(req *http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{Transport: &mockRoundTripper{handler: handler}}
}

// mockStore is an in-memory SecretStore.
type mockStore struct {
	entries []models.SecretEntry
	err     error
}

func (m *mockStore) ListByProvider(tag string) ([]models.SecretEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.SecretEntry
	for _, e := range m.entries {
		if e.Provider == "" || e.Provider == tag {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockAudit records audit calls for assertions.
type mockAudit struct {
	mu    sync.Mutex
	kinds []string
}

func (m *mockAudit) Record(kind, resourceType, resourceID string, details map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
}

// mockProvider is a canned ProviderClient for aggregator tests.
type mockProvider struct {
	tag      string
	prefixes []string
	units    []models.UnitRef
	usage    map[string]models.TokenCounts
	costs    map[string]float64
	fetchErr error
	diag     models.KeyDiagnosis
}

func (m *mockProvider) Tag() string           { return m.tag }
func (m *mockProvider) KeyPrefixes() []string { return m.prefixes }

func (m *mockProvider) ListUnits(ctx context.Context, cred models.Credential) ([]models.UnitRef, error) {
	return m.units, nil
}

func (m *mockProvider) FetchDailyUsage(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]models.TokenCounts, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make(map[string]models.TokenCounts, len(m.usage))
	for k, v := range m.usage {
		out[k] = v
	}
	return out, nil
}

func (m *mockProvider) FetchDailyCost(ctx context.Context, cred models.Credential, r Range, unitIDs []string) (map[string]float64, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make(map[string]float64, len(m.costs))
	for k, v := range m.costs {
		out[k] = v
	}
	return out, nil
}

func (m *mockProvider) Diagnose(ctx context.Context, cred models.Credential) models.KeyDiagnosis {
	d := m.diag
	d.CredentialName = cred.Name
	d.Provider = m.tag
	return d
}

var errFetch = errors.New("upstream said no")

func fixedNow() time.Time {
	return time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
}
