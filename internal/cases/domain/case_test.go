package domain

import (
	"testing"
	"time"

	triage "dormdesk_backend/internal/triage/domain"
)

func TestClassify_FlagsWinOverKeywords(t *testing.T) {
	// The text mentions water, but a gas leak routes to HVAC.
	got := Classify("strange water-heater smell, might be gas", []string{"gas_leak"})
	if got != CategoryHVAC {
		t.Fatalf("Classify = %q, want hvac", got)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	cases := []struct {
		text string
		want Category
	}{
		{"the radiator is not working", CategoryHVAC},
		{"outlet near my desk sparks when I plug in", CategoryElectrical},
		{"bathroom faucet won't stop dripping", CategoryPlumbing},
		{"my keycard stopped opening the door", CategorySecurity},
		{"big crack in the ceiling plaster", CategoryStructural},
		{"the curtain rod fell down", CategoryGeneral},
		// Plumbing outranks structural for water damage.
		{"water stain spreading on the ceiling", CategoryPlumbing},
	}
	for _, tc := range cases {
		if got := Classify(tc.text, nil); got != tc.want {
			t.Fatalf("Classify(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestCaseNumber(t *testing.T) {
	at := time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
	got := CaseNumber(triage.UrgencyEmergency, "TANG", "301", at)
	if got != "L1-TANG-301-20260831" {
		t.Fatalf("CaseNumber = %q", got)
	}

	got = CaseNumber(triage.UrgencyNormal, "simm", "12b", at)
	if got != "L3-SIMM-12B-20260831" {
		t.Fatalf("CaseNumber = %q", got)
	}

	got = CaseNumber(triage.UrgencyLow, "BAKR", "", at)
	if got != "L4-BAKR-NA-20260831" {
		t.Fatalf("CaseNumber with empty room = %q", got)
	}
}

func TestSameIssue(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{
			"near-identical reports",
			"bathroom faucet leaking steadily",
			"the bathroom faucet is leaking",
			true,
		},
		{
			"paraphrase with shared trade words",
			"sink faucet dripping all night",
			"faucet won't stop dripping in the sink",
			true,
		},
		{
			"different issues same room",
			"bathroom faucet leaking steadily",
			"desk lamp flickers when touched",
			false,
		},
		{
			"empty summary never matches",
			"",
			"faucet leaking",
			false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SameIssue(tc.a, tc.b); got != tc.want {
				t.Fatalf("SameIssue(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestWorkEstimate_AlwaysNonEmpty(t *testing.T) {
	for _, c := range []Category{CategoryHVAC, CategoryElectrical, CategoryPlumbing, CategoryStructural, CategorySecurity, CategoryGeneral, Category("weird")} {
		if WorkEstimate(c) == "" {
			t.Fatalf("WorkEstimate(%q) empty", c)
		}
	}
}
