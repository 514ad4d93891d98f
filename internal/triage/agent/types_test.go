package agent

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"dormdesk_backend/internal/triage/domain"
)

func TestParseResponse_Valid(t *testing.T) {
	raw := `{
		"message": "Which room in Tang Hall are you in?",
		"urgencyLevel": "normal",
		"safetyFlags": [],
		"nextAction": "ask_followup",
		"slots": {"buildingName": "Tang Hall"},
		"queuedQuestions": ["How long has it been leaking?"]
	}`

	resp, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse returned error: %v", err)
	}
	if resp.NextAction != domain.ActionAskFollowup {
		t.Fatalf("nextAction = %q, want ask_followup", resp.NextAction)
	}
	if resp.Slots == nil || resp.Slots.BuildingName != "Tang Hall" {
		t.Fatalf("slots not decoded: %+v", resp.Slots)
	}
	if len(resp.QueuedQuestions) != 1 {
		t.Fatalf("queuedQuestions = %v", resp.QueuedQuestions)
	}
}

func TestParseResponse_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"no message", `{"urgencyLevel":"normal","safetyFlags":[],"nextAction":"ask_followup"}`, "message"},
		{"empty message", `{"message":"","urgencyLevel":"normal","safetyFlags":[],"nextAction":"ask_followup"}`, "message"},
		{"no urgency", `{"message":"hi","safetyFlags":[],"nextAction":"ask_followup"}`, "urgencyLevel"},
		{"no flags", `{"message":"hi","urgencyLevel":"normal","nextAction":"ask_followup"}`, "safetyFlags"},
		{"no action", `{"message":"hi","urgencyLevel":"normal","safetyFlags":[]}`, "nextAction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseResponse(tc.raw)
			if err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParseResponse_UnknownEnums(t *testing.T) {
	_, err := ParseResponse(`{"message":"hi","urgencyLevel":"catastrophic","safetyFlags":[],"nextAction":"ask_followup"}`)
	if err == nil {
		t.Fatal("expected error for unknown urgency")
	}
	_, err = ParseResponse(`{"message":"hi","urgencyLevel":"normal","safetyFlags":[],"nextAction":"panic"}`)
	if err == nil {
		t.Fatal("expected error for unknown nextAction")
	}
}

func TestParseResponse_MalformedJSON(t *testing.T) {
	if _, err := ParseResponse(`{"message": "truncated`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestBuildContents_HistoryAndContext(t *testing.T) {
	conv := domain.NewConversation(uuid.New(), uuid.New())
	conv.AppendTurn(domain.Turn{Role: domain.RoleStudent, Message: "my faucet is leaking"})
	conv.AppendTurn(domain.Turn{Role: domain.RoleAgent, Message: "Which building are you in?"})

	req := TurnRequest{
		Conversation:     conv,
		Message:          "Tang Hall, room 301",
		KnownSlots:       domain.Slots{IssueSummary: "leaking faucet"},
		PendingQuestions: []string{"How long has it been leaking?"},
		ContextSummary:   "emotional context: calm",
	}

	contents := BuildContents(req)
	if len(contents) != 3 {
		t.Fatalf("len(contents) = %d, want 3", len(contents))
	}
	if contents[1].Role != "model" {
		t.Fatalf("agent turn role = %q, want model", contents[1].Role)
	}

	last := contents[len(contents)-1].Parts[0].Text
	if !strings.Contains(last, "Tang Hall, room 301") {
		t.Fatalf("last content missing student message: %q", last)
	}
	if !strings.Contains(last, "do not re-ask") || !strings.Contains(last, "issue: leaking faucet") {
		t.Fatalf("context block missing known slots: %q", last)
	}
	if !strings.Contains(last, "How long has it been leaking?") {
		t.Fatalf("context block missing queued question: %q", last)
	}
}

func TestResponseSchema_RequiredFields(t *testing.T) {
	schema := ResponseSchema()
	want := map[string]bool{"message": true, "urgencyLevel": true, "safetyFlags": true, "nextAction": true}
	if len(schema.Required) != len(want) {
		t.Fatalf("required = %v", schema.Required)
	}
	for _, f := range schema.Required {
		if !want[f] {
			t.Fatalf("unexpected required field %q", f)
		}
	}
}
