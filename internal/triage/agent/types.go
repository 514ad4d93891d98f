// Package agent is the boundary to the generation service for triage
// conversations. Everything that crosses this boundary is a fixed-schema
// value object: the orchestrator validates the response and treats any
// deviation as a processing failure. Nothing here mutates conversation
// state — model output is a proposal, never an authority.
package agent

import (
	"encoding/json"
	"fmt"

	"dormdesk_backend/internal/triage/domain"
)

// ResponseLocation is the model's proposed location reading.
type ResponseLocation struct {
	BuildingName string `json:"buildingName,omitempty"`
	RoomNumber   string `json:"roomNumber,omitempty"`
}

// MediaRequest asks the student for a photo of the issue.
type MediaRequest struct {
	Requested bool   `json:"requested"`
	Reason    string `json:"reason,omitempty"`
}

// Response is the fixed-schema structured reply from the generation service.
// Message, UrgencyLevel, SafetyFlags, and NextAction are required; the rest
// are optional proposals.
type Response struct {
	Message         string            `json:"message"`
	UrgencyLevel    domain.Urgency    `json:"urgencyLevel"`
	SafetyFlags     []string          `json:"safetyFlags"`
	NextAction      domain.NextAction `json:"nextAction"`
	Slots           *domain.Slots     `json:"slots,omitempty"`
	Location        *ResponseLocation `json:"location,omitempty"`
	QueuedQuestions []string          `json:"queuedQuestions,omitempty"`
	MediaRequest    *MediaRequest     `json:"mediaRequest,omitempty"`
	IsComplete      *bool             `json:"isComplete,omitempty"`
}

// ParseResponse decodes and validates the raw generation output. Any
// deviation from the contract — missing required fields, unknown enum
// values, malformed JSON — is an error the orchestrator recovers from with
// its fixed fallback.
func ParseResponse(raw string) (Response, error) {
	// Presence-checked shadow of the required fields.
	var probe struct {
		Message      *string            `json:"message"`
		UrgencyLevel *domain.Urgency    `json:"urgencyLevel"`
		SafetyFlags  *[]string          `json:"safetyFlags"`
		NextAction   *domain.NextAction `json:"nextAction"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return Response{}, fmt.Errorf("malformed generation response: %w", err)
	}

	switch {
	case probe.Message == nil || *probe.Message == "":
		return Response{}, fmt.Errorf("generation response missing message")
	case probe.UrgencyLevel == nil:
		return Response{}, fmt.Errorf("generation response missing urgencyLevel")
	case probe.SafetyFlags == nil:
		return Response{}, fmt.Errorf("generation response missing safetyFlags")
	case probe.NextAction == nil:
		return Response{}, fmt.Errorf("generation response missing nextAction")
	}

	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return Response{}, fmt.Errorf("malformed generation response: %w", err)
	}

	if !domain.ValidUrgency(resp.UrgencyLevel) {
		return Response{}, fmt.Errorf("generation response has unknown urgencyLevel %q", resp.UrgencyLevel)
	}
	if !domain.ValidNextAction(resp.NextAction) {
		return Response{}, fmt.Errorf("generation response has unknown nextAction %q", resp.NextAction)
	}
	if resp.SafetyFlags == nil {
		resp.SafetyFlags = []string{}
	}

	return resp, nil
}

// TurnRequest carries everything the generation service may see for one
// turn. The conversation itself is read-only context.
type TurnRequest struct {
	Conversation     *domain.Conversation
	Message          string
	KnownSlots       domain.Slots
	PendingQuestions []string
	ContextSummary   string
	LocationSummary  string
}
