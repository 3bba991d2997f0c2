package main

import (
	"strings"
	"testing"
	"time"

	"audiotool/internal/cachestore"
)

func TestFormatWatchLine(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	first := formatWatchLine(now, cachestore.Summary{Passed: 1200, Failed: 3}, nil)
	if first != "09:30:00 total=1,203 passed=1,200 failed=3" {
		t.Fatalf("unexpected first line %q", first)
	}

	prev := cachestore.Summary{Passed: 1200, Failed: 3}
	next := formatWatchLine(now, cachestore.Summary{Passed: 1210, Failed: 1}, &prev)
	if !strings.HasSuffix(next, "(+10 passed, -2 failed)") {
		t.Fatalf("unexpected delta line %q", next)
	}
}

func TestCacheHealthy(t *testing.T) {
	cases := []struct {
		summary cachestore.Summary
		want    bool
	}{
		{cachestore.Summary{}, true},
		{cachestore.Summary{Passed: 91, Failed: 9}, true},
		{cachestore.Summary{Passed: 90, Failed: 10}, false},
	}
	for _, tc := range cases {
		if got := cacheHealthy(tc.summary); got != tc.want {
			t.Fatalf("cacheHealthy(%+v) = %v, want %v", tc.summary, got, tc.want)
		}
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Database", statusWarn, "needs migration", false)
	if line != "  Database:            [WARN] needs migration" {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Database", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colorized line, got %q", colored)
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(1, 3); got != "33.3%" {
		t.Fatalf("unexpected percent %q", got)
	}
	if got := formatPercent(0, 0); got != "0.0%" {
		t.Fatalf("unexpected percent %q", got)
	}
}
