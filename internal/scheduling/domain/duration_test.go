package domain

import (
	"testing"
	"time"
)

func TestParseWorkEstimate(t *testing.T) {
	cases := []struct {
		in     string
		want   time.Duration
		parsed bool
	}{
		{"2-4 hours", 3 * time.Hour, true},
		{"1 hour", time.Hour, true},
		{"90 minutes", 90 * time.Minute, true},
		{"1.5 hrs", 90 * time.Minute, true},
		{"30-60 min", 45 * time.Minute, true},
		{"a while", DefaultJobDuration, false},
		{"", DefaultJobDuration, false},
	}
	for _, tc := range cases {
		got, ok := ParseWorkEstimate(tc.in)
		if got != tc.want || ok != tc.parsed {
			t.Fatalf("ParseWorkEstimate(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.parsed)
		}
	}
}
