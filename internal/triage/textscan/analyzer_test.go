package textscan

import (
	"testing"

	"dormdesk_backend/internal/triage/domain"
)

func TestAnalyze_UrgentPhrasesRaiseUrgency(t *testing.T) {
	analysis := Analyze("I need someone here immediately, this is urgent")

	if analysis.EmotionalContext != EmotionUrgent {
		t.Fatalf("expected urgent emotion, got %s", analysis.EmotionalContext)
	}
	if analysis.InferredUrgency != domain.UrgencyUrgent {
		t.Fatalf("expected urgent urgency, got %s", analysis.InferredUrgency)
	}
}

func TestAnalyze_TemperatureExtremeIsHighConfidence(t *testing.T) {
	cases := []string{
		"it is 40 degrees in my room",
		"my room is at 95 degrees",
		"the room is freezing",
		"it's boiling in here",
	}

	for _, msg := range cases {
		analysis := Analyze(msg)
		if analysis.InferredUrgency != domain.UrgencyUrgent {
			t.Fatalf("message %q should infer urgent, got %s", msg, analysis.InferredUrgency)
		}
		if len(analysis.SeverityIndicators) == 0 {
			t.Fatalf("message %q should record a severity indicator", msg)
		}
	}
}

func TestAnalyze_ComfortableTemperatureIsNotExtreme(t *testing.T) {
	analysis := Analyze("the thermostat reads 72 degrees but the radiator rattles")

	if analysis.InferredUrgency != domain.UrgencyNormal {
		t.Fatalf("72 degrees is not an extreme, got %s", analysis.InferredUrgency)
	}
}

func TestAnalyze_FrustrationDetected(t *testing.T) {
	analysis := Analyze("this is the third time I'm reporting this, still not fixed")

	if analysis.EmotionalContext != EmotionFrustrated {
		t.Fatalf("expected frustrated, got %s", analysis.EmotionalContext)
	}
	if !analysis.IsFrustrated() {
		t.Fatal("IsFrustrated should report true")
	}
	// Frustration alone does not raise urgency.
	if analysis.InferredUrgency != domain.UrgencyNormal {
		t.Fatalf("frustration should not raise urgency, got %s", analysis.InferredUrgency)
	}
}

func TestAnalyze_TimelinePreFillsSlot(t *testing.T) {
	analysis := Analyze("the faucet has been dripping since yesterday and it's getting worse")

	if analysis.InferredInfo.Timeline == "" {
		t.Fatal("expected timeline slot to be pre-filled")
	}
	if analysis.InferredInfo.Severity != "getting worse" {
		t.Fatalf("expected severity slot pre-filled with indicator, got %q", analysis.InferredInfo.Severity)
	}
}

func TestAnalyze_CalmMessage(t *testing.T) {
	analysis := Analyze("could someone check the blinds when convenient")

	if analysis.EmotionalContext != EmotionCalm {
		t.Fatalf("expected calm, got %s", analysis.EmotionalContext)
	}
	if analysis.InferredUrgency != domain.UrgencyNormal {
		t.Fatalf("expected normal urgency, got %s", analysis.InferredUrgency)
	}
	if len(analysis.TimelineIndicators) != 0 {
		t.Fatalf("expected no timeline indicators, got %v", analysis.TimelineIndicators)
	}
}

func TestAnalyze_ContactExtraction(t *testing.T) {
	analysis := Analyze("I'm Alex Kim, you can reach me at alex@school.edu or 555-0142")

	if analysis.InferredInfo.StudentName != "Alex Kim" {
		t.Fatalf("name = %q, want Alex Kim", analysis.InferredInfo.StudentName)
	}
	if analysis.InferredInfo.StudentEmail != "alex@school.edu" {
		t.Fatalf("email = %q", analysis.InferredInfo.StudentEmail)
	}
	if analysis.InferredInfo.StudentPhone != "555-0142" {
		t.Fatalf("phone = %q", analysis.InferredInfo.StudentPhone)
	}
}

func TestAnalyze_NoFalseContactMatches(t *testing.T) {
	analysis := Analyze("i'm freezing in room 301, it has been cold all week")

	if analysis.InferredInfo.StudentName != "" {
		t.Fatalf("lowercase phrase matched as name: %q", analysis.InferredInfo.StudentName)
	}
	if analysis.InferredInfo.StudentPhone != "" {
		t.Fatalf("room number matched as phone: %q", analysis.InferredInfo.StudentPhone)
	}
}

func TestAnalyze_TenDigitPhone(t *testing.T) {
	analysis := Analyze("call me at (617) 555-0142 anytime")
	if analysis.InferredInfo.StudentPhone == "" {
		t.Fatal("ten-digit phone not extracted")
	}
}
