package scoring

import (
	"strings"
	"testing"

	"dormdesk_backend/internal/triage/domain"
	"dormdesk_backend/internal/triage/textscan"
)

func fullSlots() domain.Slots {
	return domain.Slots{
		BuildingName: "Tang Hall",
		RoomNumber:   "301",
		IssueSummary: "leaking faucet",
		StudentName:  "A",
		StudentEmail: "a@x.com",
		StudentPhone: "555-1234",
	}
}

func TestEvaluate_CompleteConversationIsReady(t *testing.T) {
	result := Evaluate(Input{
		Slots:         fullSlots(),
		LatestMessage: "it's the bathroom faucet",
		HistoryLength: 4,
	})

	if result.Score < 70 {
		t.Fatalf("expected score >= 70, got %d (%s)", result.Score, result.Reasoning)
	}
	if !result.IsReady {
		t.Fatalf("expected ready, got missing=%v reasoning=%s", result.MissingElements, result.Reasoning)
	}
	if len(result.MissingElements) != 0 {
		t.Fatalf("expected no missing elements, got %v", result.MissingElements)
	}
}

func TestEvaluate_MissingPhoneBlocksRegardlessOfScore(t *testing.T) {
	slots := fullSlots()
	slots.StudentPhone = ""

	result := Evaluate(Input{
		Slots:         slots,
		LatestMessage: "the faucet in the bathroom has been leaking since yesterday, getting worse",
		Context:       textscan.Analyze("leaking since yesterday and getting worse"),
		HistoryLength: 8,
	})

	if result.IsReady {
		t.Fatalf("missing phone must block readiness, score=%d", result.Score)
	}
	if !contains(result.MissingElements, "a phone number we can reach you at") {
		t.Fatalf("expected phone in missing elements, got %v", result.MissingElements)
	}
}

func TestEvaluate_ScoreAloneNeverAuthorizes(t *testing.T) {
	// High-scoring conversation with no room number.
	slots := fullSlots()
	slots.RoomNumber = ""

	result := Evaluate(Input{
		Slots:         slots,
		LatestMessage: "the kitchen faucet won't stop dripping, water everywhere, since yesterday",
		Context:       textscan.Analyze("won't stop dripping, water everywhere, since yesterday"),
		HistoryLength: 10,
	})

	if result.IsReady {
		t.Fatal("gates must hold even when the additive score is high")
	}
	if !contains(result.MissingElements, "room number") {
		t.Fatalf("expected room number missing, got %v", result.MissingElements)
	}
}

func TestEvaluate_UrgencyFloorWithoutSignal(t *testing.T) {
	result := Evaluate(Input{
		Slots:         domain.Slots{BuildingName: "Tang Hall"},
		LatestMessage: "hello",
		HistoryLength: 1,
	})

	// building 25 + urgency floor 5 + engagement 2
	if result.Score != 32 {
		t.Fatalf("expected score 32, got %d (%s)", result.Score, result.Reasoning)
	}
}

func TestEvaluate_FrustrationRelaxesThresholdNotGates(t *testing.T) {
	slots := fullSlots()
	frustrated := textscan.Analyze("this is the third time, still not fixed")

	// Complete slots but thin engagement: score lands between 60 and 70.
	result := Evaluate(Input{
		Slots:         slots,
		LatestMessage: "faucet",
		Context:       frustrated,
		HistoryLength: 1,
	})
	if !result.IsReady {
		t.Fatalf("frustration should relax the threshold, score=%d", result.Score)
	}

	// Same frustration, but a gate fails: must stay blocked.
	slots.StudentEmail = ""
	blocked := Evaluate(Input{
		Slots:         slots,
		LatestMessage: "faucet",
		Context:       frustrated,
		HistoryLength: 1,
	})
	if blocked.IsReady {
		t.Fatal("relaxed threshold must never bypass the hard gates")
	}
}

func TestEvaluate_ManyQuestionsRelaxThreshold(t *testing.T) {
	result := Evaluate(Input{
		Slots:          fullSlots(),
		LatestMessage:  "faucet",
		HistoryLength:  1,
		QuestionsAsked: 3,
	})

	if !result.IsReady {
		t.Fatalf("three questions asked should relax the threshold, score=%d", result.Score)
	}
}

func TestFollowupMessage_ListsMissingElements(t *testing.T) {
	result := Evaluate(Input{
		Slots:         domain.Slots{BuildingName: "Tang Hall", RoomNumber: "301", IssueSummary: "leak"},
		LatestMessage: "there's a leak",
		HistoryLength: 2,
	})

	msg := result.FollowupMessage()
	if !strings.Contains(msg, "your name") || !strings.Contains(msg, "phone number") {
		t.Fatalf("followup should name the missing contact fields, got %q", msg)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
