package usage

import (
	"encoding/json"
	"testing"
)

func TestProbeInt(t *testing.T) {
	m := map[string]any{
		"prompt_tokens": float64(120),
		"as_string":     "42",
		"as_number":     json.Number("7"),
	}
	if got := probeInt(m, "input_tokens", "prompt_tokens"); got != 120 {
		t.Errorf("probeInt fallback = %d, want 120", got)
	}
	if got := probeInt(m, "as_string"); got != 42 {
		t.Errorf("probeInt string = %d, want 42", got)
	}
	if got := probeInt(m, "as_number"); got != 7 {
		t.Errorf("probeInt json.Number = %d, want 7", got)
	}
	if got := probeInt(m, "missing"); got != 0 {
		t.Errorf("probeInt missing = %d, want 0", got)
	}
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"float", 1.25, 1.25},
		{"decimal string", "3.50", 3.50},
		{"value object", map[string]any{"value": 0.75, "currency": "usd"}, 0.75},
		{"nested amount", map[string]any{"amount": "2.00"}, 2.00},
		{"garbage", "not-a-number", 0},
		{"nil", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseMoney(tc.in); got != tc.want {
				t.Errorf("parseMoney(%v) = %f, want %f", tc.in, got, tc.want)
			}
		})
	}
}

func TestBucketDate(t *testing.T) {
	unix := map[string]any{"start_time": float64(1714521600)} // 2024-05-01 UTC
	if got := bucketDate(unix, "start_time"); got != "2024-05-01" {
		t.Errorf("unix bucket date = %q, want 2024-05-01", got)
	}
	iso := map[string]any{"starting_at": "2024-05-02"}
	if got := bucketDate(iso, "starting_at"); got != "2024-05-02" {
		t.Errorf("iso bucket date = %q, want 2024-05-02", got)
	}
	rfc := map[string]any{"start": "2024-05-03T00:00:00Z"}
	if got := bucketDate(rfc, "start"); got != "2024-05-03" {
		t.Errorf("rfc3339 bucket date = %q, want 2024-05-03", got)
	}
	if got := bucketDate(map[string]any{}, "start"); got != "" {
		t.Errorf("empty bucket date = %q, want empty", got)
	}
}
