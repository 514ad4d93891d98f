// Package transport defines the request and response shapes for the triage
// HTTP API. Domain types never cross the wire directly.
package transport

import (
	"time"

	"github.com/google/uuid"

	"dormdesk_backend/internal/triage/domain"
	"dormdesk_backend/internal/triage/service"
)

type StartConversationRequest struct {
	StudentID      uuid.UUID `json:"studentId" validate:"required"`
	OrganizationID uuid.UUID `json:"organizationId" validate:"required"`
	Message        string    `json:"message" validate:"required,max=4000"`
	MediaRefs      []string  `json:"mediaRefs,omitempty" validate:"omitempty,max=5,dive,max=512"`
}

type ContinueConversationRequest struct {
	OrganizationID uuid.UUID `json:"organizationId" validate:"required"`
	Message        string    `json:"message" validate:"required,max=4000"`
	MediaRefs      []string  `json:"mediaRefs,omitempty" validate:"omitempty,max=5,dive,max=512"`
}

// TurnResponse is returned after processing one student message.
type TurnResponse struct {
	ConversationID  uuid.UUID  `json:"conversationId"`
	Phase           string     `json:"phase"`
	UrgencyLevel    string     `json:"urgencyLevel"`
	SafetyFlags     []string   `json:"safetyFlags"`
	AgentMessage    string     `json:"agentMessage"`
	NextAction      string     `json:"nextAction"`
	Score           int        `json:"score"`
	IsReady         bool       `json:"isReady"`
	MissingElements []string   `json:"missingElements,omitempty"`
	IsComplete      bool       `json:"isComplete"`
	CaseID          *uuid.UUID `json:"caseId,omitempty"`
	CaseNumber      string     `json:"caseNumber,omitempty"`
}

func FromTurnResult(res *service.TurnResult) TurnResponse {
	conv := res.Conversation
	return TurnResponse{
		ConversationID:  conv.ID,
		Phase:           string(conv.Phase),
		UrgencyLevel:    string(conv.UrgencyLevel),
		SafetyFlags:     conv.SafetyFlags,
		AgentMessage:    res.AgentMessage,
		NextAction:      string(res.NextAction),
		Score:           res.Score,
		IsReady:         res.IsReady,
		MissingElements: res.MissingElements,
		IsComplete:      conv.IsComplete,
		CaseID:          res.CaseID,
		CaseNumber:      res.CaseNumber,
	}
}

type TurnView struct {
	Role         string    `json:"role"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	UrgencyLevel string    `json:"urgencyLevel,omitempty"`
	SafetyFlags  []string  `json:"safetyFlags,omitempty"`
	MediaRefs    []string  `json:"mediaRefs,omitempty"`
}

type SlotsView struct {
	BuildingName   string `json:"buildingName,omitempty"`
	RoomNumber     string `json:"roomNumber,omitempty"`
	IssueSummary   string `json:"issueSummary,omitempty"`
	Timeline       string `json:"timeline,omitempty"`
	Severity       string `json:"severity,omitempty"`
	StudentName    string `json:"studentName,omitempty"`
	StudentEmail   string `json:"studentEmail,omitempty"`
	StudentPhone   string `json:"studentPhone,omitempty"`
	PhotoRequested bool   `json:"photoRequested,omitempty"`
}

type LocationView struct {
	BuildingName        string `json:"buildingName,omitempty"`
	RoomNumber          string `json:"roomNumber,omitempty"`
	IsLocationConfirmed bool   `json:"isLocationConfirmed"`
}

// ConversationResponse is the full conversation state view.
type ConversationResponse struct {
	ID               uuid.UUID    `json:"id"`
	StudentID        uuid.UUID    `json:"studentId"`
	OrganizationID   uuid.UUID    `json:"organizationId"`
	Phase            string       `json:"phase"`
	UrgencyLevel     string       `json:"urgencyLevel"`
	SafetyFlags      []string     `json:"safetyFlags"`
	History          []TurnView   `json:"history"`
	Slots            SlotsView    `json:"slots"`
	Location         LocationView `json:"location"`
	PendingQuestions []string     `json:"pendingQuestions,omitempty"`
	IsComplete       bool         `json:"isComplete"`
	CaseID           *uuid.UUID   `json:"caseId,omitempty"`
	CompletedAt      *time.Time   `json:"completedAt,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

func FromConversation(conv *domain.Conversation) ConversationResponse {
	history := make([]TurnView, 0, len(conv.History))
	for _, t := range conv.History {
		history = append(history, TurnView{
			Role:         string(t.Role),
			Message:      t.Message,
			Timestamp:    t.Timestamp,
			UrgencyLevel: string(t.UrgencyLevel),
			SafetyFlags:  t.SafetyFlags,
			MediaRefs:    t.MediaRefs,
		})
	}

	return ConversationResponse{
		ID:             conv.ID,
		StudentID:      conv.StudentID,
		OrganizationID: conv.OrganizationID,
		Phase:          string(conv.Phase),
		UrgencyLevel:   string(conv.UrgencyLevel),
		SafetyFlags:    conv.SafetyFlags,
		History:        history,
		Slots: SlotsView{
			BuildingName:   conv.Slots.BuildingName,
			RoomNumber:     conv.Slots.RoomNumber,
			IssueSummary:   conv.Slots.IssueSummary,
			Timeline:       conv.Slots.Timeline,
			Severity:       conv.Slots.Severity,
			StudentName:    conv.Slots.StudentName,
			StudentEmail:   conv.Slots.StudentEmail,
			StudentPhone:   conv.Slots.StudentPhone,
			PhotoRequested: conv.Slots.PhotoRequested,
		},
		Location: LocationView{
			BuildingName:        conv.Location.BuildingName,
			RoomNumber:          conv.Location.RoomNumber,
			IsLocationConfirmed: conv.Location.IsLocationConfirmed,
		},
		PendingQuestions: conv.PendingQuestions,
		IsComplete:       conv.IsComplete,
		CaseID:           conv.CaseID,
		CompletedAt:      conv.CompletedAt,
		CreatedAt:        conv.CreatedAt,
		UpdatedAt:        conv.UpdatedAt,
	}
}
