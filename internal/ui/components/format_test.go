package components

import "testing"

func TestFormatUSD(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{0.005, "$0.0050"},
		{1.5, "$1.50"},
		{1234.567, "$1234.57"},
	}
	for _, tc := range cases {
		if got := FormatUSD(tc.in); got != tc.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{42, "42"},
		{1_500, "1.5K"},
		{2_300_000, "2.3M"},
		{7_000_000_000, "7.0B"},
	}
	for _, tc := range cases {
		if got := FormatTokens(tc.in); got != tc.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderSparklineEmpty(t *testing.T) {
	if got := RenderSparkline(nil, 10); got != "" {
		t.Errorf("empty sparkline = %q, want empty", got)
	}
}

func TestRenderBarChartScaling(t *testing.T) {
	out := RenderBarChart([]float64{4, 2}, []string{"openai", "gemini"}, 60)
	lines := splitLines(out)
	if len(lines) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(lines))
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
