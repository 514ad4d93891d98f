// Package domain holds the triage conversation model and the pure state
// transition rules applied to it. Nothing in this package talks to the
// database or the generation service; the orchestrator feeds it turn
// outputs and persists the results.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the conversation lifecycle phase.
type Phase string

const (
	PhaseGatheringInfo Phase = "gathering_info"
	PhaseFinalTriage   Phase = "final_triage"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleStudent Role = "student"
	RoleAgent   Role = "agent"
)

// NextAction is the agent's chosen follow-up action for a turn.
type NextAction string

const (
	ActionAskFollowup       NextAction = "ask_followup"
	ActionRequestMedia      NextAction = "request_media"
	ActionEscalateImmediate NextAction = "escalate_immediate"
	ActionCompleteTriage    NextAction = "complete_triage"
	ActionRecommendDIY      NextAction = "recommend_diy"
)

// ValidNextAction reports whether the value is a known action.
func ValidNextAction(a NextAction) bool {
	switch a {
	case ActionAskFollowup, ActionRequestMedia, ActionEscalateImmediate,
		ActionCompleteTriage, ActionRecommendDIY:
		return true
	}
	return false
}

// Turn is a single immutable entry in the conversation history.
type Turn struct {
	Role         Role      `json:"role"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	UrgencyLevel Urgency   `json:"urgencyLevel,omitempty"`
	SafetyFlags  []string  `json:"safetyFlags,omitempty"`
	MediaRefs    []string  `json:"mediaRefs,omitempty"`
}

// Location is the routing view of the conversation's location facts.
// Slots remain authoritative for completeness gating; Location exists for
// downstream consumers (case routing, contractor dispatch).
type Location struct {
	BuildingName        string `json:"buildingName"`
	RoomNumber          string `json:"roomNumber"`
	IsLocationConfirmed bool   `json:"isLocationConfirmed"`
}

// Conversation is one triage conversation for one reported issue.
type Conversation struct {
	ID               uuid.UUID
	StudentID        uuid.UUID
	OrganizationID   uuid.UUID
	Phase            Phase
	UrgencyLevel     Urgency
	SafetyFlags      []string
	History          []Turn
	Slots            Slots
	Location         Location
	PendingQuestions []string
	CaseID           *uuid.UUID
	IsComplete       bool
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewConversation starts a conversation in the gathering phase at normal urgency.
func NewConversation(studentID, organizationID uuid.UUID) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:             uuid.New(),
		StudentID:      studentID,
		OrganizationID: organizationID,
		Phase:          PhaseGatheringInfo,
		UrgencyLevel:   UrgencyNormal,
		SafetyFlags:    []string{},
		History:        []Turn{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AppendTurn adds a turn to the history. History is append-only; turns are
// never modified or removed once added.
func (c *Conversation) AppendTurn(turn Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	c.History = append(c.History, turn)
}

// AddSafetyFlags unions the given flags into the conversation's permanent
// flag set. Flags are strictly additive across turns.
func (c *Conversation) AddSafetyFlags(flags []string) {
	for _, f := range flags {
		if f == "" || c.HasSafetyFlag(f) {
			continue
		}
		c.SafetyFlags = append(c.SafetyFlags, f)
	}
}

// HasSafetyFlag reports whether the flag has been recorded on any turn.
func (c *Conversation) HasSafetyFlag(flag string) bool {
	for _, f := range c.SafetyFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// RaiseUrgency raises the conversation urgency if the candidate is more
// severe. Urgency is never silently downgraded once raised.
func (c *Conversation) RaiseUrgency(candidate Urgency) {
	if MoreSevere(candidate, c.UrgencyLevel) {
		c.UrgencyLevel = candidate
	}
}

// EnterFinalTriage moves the conversation into its terminal phase.
// The transition is monotonic; once in final_triage it never reverts.
func (c *Conversation) EnterFinalTriage() {
	c.Phase = PhaseFinalTriage
}

// SyncLocation refreshes the Location view from the authoritative slots.
// The location is confirmed only when both building and room are known.
func (c *Conversation) SyncLocation() {
	c.Location.BuildingName = c.Slots.BuildingName
	c.Location.RoomNumber = c.Slots.RoomNumber
	c.Location.IsLocationConfirmed = c.Slots.BuildingName != "" && c.Slots.RoomNumber != ""
}

// StudentTurns counts how many turns the student has contributed.
func (c *Conversation) StudentTurns() int {
	n := 0
	for _, t := range c.History {
		if t.Role == RoleStudent {
			n++
		}
	}
	return n
}

// AgentQuestionsAsked counts agent turns, used by the relaxed-threshold rule.
func (c *Conversation) AgentQuestionsAsked() int {
	n := 0
	for _, t := range c.History {
		if t.Role == RoleAgent {
			n++
		}
	}
	return n
}

// MarkComplete records the case linkage and completion timestamp.
// isComplete implies caseId is set and the phase is final_triage.
func (c *Conversation) MarkComplete(caseID uuid.UUID) {
	now := time.Now().UTC()
	c.CaseID = &caseID
	c.IsComplete = true
	c.CompletedAt = &now
	c.EnterFinalTriage()
}
