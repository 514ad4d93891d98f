package location

import "testing"

func TestResolve_BuildingAndRoomInOnePattern(t *testing.T) {
	r := Default()

	cases := []struct {
		message  string
		building string
		room     string
	}{
		{"leaky faucet in tang 301", "Tang Hall", "301"},
		{"I live in Maple House room 12B", "Maple House", "12B"},
		{"room 442 in simmons", "Simmons Hall", "442"},
		{"unit 207, burton-conner", "Burton-Conner House", "207"},
		{"water damage in tang hall, 301", "Tang Hall", "301"},
	}

	for _, tc := range cases {
		match := r.Resolve(tc.message)
		if match.Confidence != ConfidenceHigh {
			t.Fatalf("%q: expected high confidence, got %s", tc.message, match.Confidence)
		}
		if match.BuildingName != tc.building {
			t.Fatalf("%q: expected building %q, got %q", tc.message, tc.building, match.BuildingName)
		}
		if match.RoomNumber != tc.room {
			t.Fatalf("%q: expected room %q, got %q", tc.message, tc.room, match.RoomNumber)
		}
	}
}

func TestResolve_BuildingOnlyIsMediumConfidence(t *testing.T) {
	match := Default().Resolve("the common room in baker smells weird")

	if match.Confidence != ConfidenceMedium {
		t.Fatalf("expected medium confidence, got %s", match.Confidence)
	}
	if match.BuildingName != "Baker House" {
		t.Fatalf("expected Baker House, got %q", match.BuildingName)
	}
	if match.RoomNumber != "" {
		t.Fatalf("expected no room, got %q", match.RoomNumber)
	}
}

func TestResolve_DistantNumberIsNotARoom(t *testing.T) {
	cases := []string{
		"tang is 40 degrees inside",
		"the heat in tang hall has been off for 3 days",
	}
	for _, msg := range cases {
		match := Default().Resolve(msg)
		if match.BuildingName != "Tang Hall" {
			t.Fatalf("%q: expected Tang Hall, got %q", msg, match.BuildingName)
		}
		if match.RoomNumber != "" {
			t.Fatalf("%q: number misread as room %q", msg, match.RoomNumber)
		}
		if match.Confidence != ConfidenceMedium {
			t.Fatalf("%q: expected medium confidence, got %s", msg, match.Confidence)
		}
	}
}

func TestResolve_FuzzyFallbackIsDeterministic(t *testing.T) {
	r := NewResolver([]Building{
		{Name: "Westgate", Code: "WGAT", Aliases: []string{"westgate"}},
		{Name: "Westgate Annex", Code: "WGAN", Aliases: []string{"westgate annex"}},
	})

	// "westgat" sits inside both aliases; the longest one must win on every
	// run, not whichever the map hands out first.
	for i := 0; i < 50; i++ {
		match := r.Resolve("no hot water in westgat since this morning")
		if match.BuildingName != "Westgate Annex" {
			t.Fatalf("iteration %d: got %q", i, match.BuildingName)
		}
	}
}

func TestCanonicalize_FuzzyIsDeterministic(t *testing.T) {
	r := NewResolver([]Building{
		{Name: "Westgate", Code: "WGAT", Aliases: []string{"westgate"}},
		{Name: "Westgate Annex", Code: "WGAN", Aliases: []string{"westgate annex"}},
	})

	for i := 0; i < 50; i++ {
		b, ok := r.Canonicalize("westgat")
		if !ok || b.Name != "Westgate Annex" {
			t.Fatalf("iteration %d: got %+v ok=%v", i, b, ok)
		}
	}
}

func TestResolve_NoMatchIsLowConfidence(t *testing.T) {
	match := Default().Resolve("my lamp is broken")

	if match.Confidence != ConfidenceLow {
		t.Fatalf("expected low confidence, got %s", match.Confidence)
	}
	if match.BuildingName != "" {
		t.Fatalf("expected no building, got %q", match.BuildingName)
	}
}

func TestResolve_ShortTokensDoNotFuzzyMatch(t *testing.T) {
	// "ran" is a substring of the "random" alias but is below the fuzzy
	// length gate.
	match := Default().Resolve("water ran down the wall")

	if match.BuildingName == "Random Hall" {
		t.Fatal("short tokens must not fuzzy-match building aliases")
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	r := Default()

	inputs := []string{"tang", "Tang Hall", "TANG HALL", "simmons", "Burton-Conner House"}
	for _, in := range inputs {
		first, ok := r.Canonicalize(in)
		if !ok {
			t.Fatalf("expected %q to canonicalize", in)
		}
		second, ok := r.Canonicalize(first.Name)
		if !ok {
			t.Fatalf("canonical name %q should canonicalize to itself", first.Name)
		}
		if first.Name != second.Name || first.Code != second.Code {
			t.Fatalf("canonicalization not idempotent: %q -> %q -> %q", in, first.Name, second.Name)
		}
	}
}

func TestCanonicalize_UnknownBuildingFails(t *testing.T) {
	if _, ok := Default().Canonicalize("Atlantis Tower"); ok {
		t.Fatal("unknown buildings must not canonicalize")
	}
}

func TestNewResolver_CustomTable(t *testing.T) {
	r := NewResolver([]Building{
		{Name: "Willow Court", Code: "WILC", Aliases: []string{"willow"}},
	})

	match := r.Resolve("broken window in willow 5A")
	if match.BuildingName != "Willow Court" || match.RoomNumber != "5A" {
		t.Fatalf("unexpected match: %+v", match)
	}

	b, ok := r.Canonicalize("willow")
	if !ok || b.Code != "WILC" {
		t.Fatalf("expected WILC, got %+v ok=%v", b, ok)
	}
}
