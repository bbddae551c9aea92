package usage

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/j-veylop/panoptic/internal/models"
)

func testCred() models.Credential {
	return models.Credential{Name: "test", Value: "sk-admin-test", Provider: "openai"}
}

func TestOpenAIListUnitsPaginated(t *testing.T) {
	client := NewOpenAIClient("")
	pages := 0
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/v1/organization/projects") {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-admin-test" {
			t.Errorf("Authorization = %q", got)
		}
		pages++
		if pages == 1 {
			return jsonResponse(200, `{"data":[{"id":"proj_1","name":"alpha"}],"has_more":true,"last_id":"proj_1"}`), nil
		}
		if req.URL.Query().Get("after") != "proj_1" {
			t.Errorf("second page missing cursor, query: %s", req.URL.RawQuery)
		}
		return jsonResponse(200, `{"data":[{"id":"proj_2","name":"beta"}],"has_more":false}`), nil
	})

	units, err := client.ListUnits(context.Background(), testCred())
	if err != nil {
		t.Fatalf("ListUnits failed: %v", err)
	}
	if len(units) != 2 || units[0].Name != "alpha" || units[1].Name != "beta" {
		t.Errorf("unexpected units: %+v", units)
	}
}

func TestOpenAIPaginationCap(t *testing.T) {
	client := NewOpenAIClient("")
	calls := 0
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		calls++
		// Always claims more pages. The cap must stop the loop.
		return jsonResponse(200, `{"data":[{"id":"p","name":"p"}],"has_more":true,"last_id":"p"}`), nil
	})

	if _, err := client.ListUnits(context.Background(), testCred()); err != nil {
		t.Fatalf("ListUnits failed: %v", err)
	}
	if calls != maxPages {
		t.Errorf("made %d requests, cap is %d", calls, maxPages)
	}
}

func TestOpenAIFetchDailyUsage(t *testing.T) {
	client := NewOpenAIClient("")
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("bucket_width") != "1d" {
			t.Errorf("bucket_width = %q, want 1d", q.Get("bucket_width"))
		}
		return jsonResponse(200, `{
			"data": [
				{"start_time": 1714521600, "results": [
					{"input_tokens": 100, "output_tokens": 40, "num_model_requests": 5},
					{"input_tokens": 10, "output_tokens": 2, "num_model_requests": 1}
				]}
			],
			"has_more": false
		}`), nil
	})

	usage, err := client.FetchDailyUsage(context.Background(), testCred(), DefaultRange(fixedNow()), nil)
	if err != nil {
		t.Fatalf("FetchDailyUsage failed: %v", err)
	}
	counts := usage["2024-05-01"]
	if counts.InputTokens != 110 || counts.OutputTokens != 42 || counts.Requests != 6 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestOpenAIFetchDailyCost(t *testing.T) {
	client := NewOpenAIClient("")
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		if !strings.Contains(req.URL.Path, "/v1/organization/costs") {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(200, `{
			"data": [
				{"start_time": 1714521600, "results": [{"amount": {"value": 1.25, "currency": "usd"}}]},
				{"start_time": 1714608000, "results": [{"amount": {"value": 0.10, "currency": "usd"}}]}
			],
			"has_more": false
		}`), nil
	})

	costs, err := client.FetchDailyCost(context.Background(), testCred(), DefaultRange(fixedNow()), nil)
	if err != nil {
		t.Fatalf("FetchDailyCost failed: %v", err)
	}
	if !approx(costs["2024-05-01"], 1.25) || !approx(costs["2024-05-02"], 0.10) {
		t.Errorf("unexpected costs: %+v", costs)
	}
}

func TestOpenAIFetchErrorStatus(t *testing.T) {
	client := NewOpenAIClient("")
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(500, `{"error":{"message":"boom"}}`), nil
	})

	if _, err := client.FetchDailyUsage(context.Background(), testCred(), DefaultRange(fixedNow()), nil); err == nil {
		t.Fatal("expected an error on 500")
	}
}

func TestOpenAIDiagnoseAdminKey(t *testing.T) {
	client := NewOpenAIClient("")
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/v1/models"):
			return jsonResponse(200, `{"data":[{"id":"gpt-4o"}]}`), nil
		case strings.Contains(req.URL.Path, "/v1/organization/projects"):
			return jsonResponse(200, `{"data":[{"id":"proj_1","name":"alpha"}],"has_more":false}`), nil
		}
		t.Fatalf("unexpected path %s", req.URL.Path)
		return nil, nil
	})

	diag := client.Diagnose(context.Background(), testCred())
	if !diag.Valid || diag.Kind != models.KeyKindAdmin {
		t.Errorf("expected valid admin key, got %+v", diag)
	}
	if len(diag.Units) != 1 || diag.Units[0] != "alpha" {
		t.Errorf("expected project names in diagnosis, got %v", diag.Units)
	}
}

func TestOpenAIDiagnoseStandardKey(t *testing.T) {
	client := NewOpenAIClient("")
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.Path, "/v1/models") {
			return jsonResponse(200, `{"data":[]}`), nil
		}
		return jsonResponse(401, `{"error":{"message":"admin key required"}}`), nil
	})

	diag := client.Diagnose(context.Background(), testCred())
	if !diag.Valid || diag.Kind != models.KeyKindStandard {
		t.Errorf("expected valid standard key, got %+v", diag)
	}
}

func TestOpenAIDiagnoseModelProbeFailureStillListsProjects(t *testing.T) {
	client := NewOpenAIClient("")
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "/v1/models"):
			return jsonResponse(500, `{"error":{"message":"internal error"}}`), nil
		case strings.Contains(req.URL.Path, "/v1/organization/projects"):
			return jsonResponse(200, `{"data":[{"id":"proj_1","name":"alpha"}],"has_more":false}`), nil
		}
		t.Fatalf("unexpected path %s", req.URL.Path)
		return nil, nil
	})

	diag := client.Diagnose(context.Background(), testCred())
	if !diag.Valid || diag.Kind != models.KeyKindAdmin {
		t.Errorf("project listing should classify the key despite the model probe failing, got %+v", diag)
	}
	if len(diag.Units) != 1 || diag.Units[0] != "alpha" {
		t.Errorf("expected project names in diagnosis, got %v", diag.Units)
	}
	if diag.Error == "" {
		t.Error("model probe failure should still be reported in the diagnosis")
	}
}

func TestOpenAIDiagnoseInvalidKey(t *testing.T) {
	client := NewOpenAIClient("")
	client.httpClient = mockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"error":{"message":"invalid api key"}}`), nil
	})

	diag := client.Diagnose(context.Background(), testCred())
	if diag.Valid || diag.Error == "" {
		t.Errorf("expected invalid diagnosis with error, got %+v", diag)
	}
}
