// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"dormdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Triage Domain Events
// =============================================================================

// ConversationEscalated is published the moment a conversation is classified
// as an emergency, before any further turns are processed.
type ConversationEscalated struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	StudentID      uuid.UUID `json:"studentId"`
	SafetyFlags    []string  `json:"safetyFlags"`
	BuildingName   string    `json:"buildingName,omitempty"`
	RoomNumber     string    `json:"roomNumber,omitempty"`
	Message        string    `json:"message"`
}

func (e ConversationEscalated) EventName() string { return "triage.conversation.escalated" }

// ConversationCompleted is published when a conversation finishes triage
// and has been linked to a case.
type ConversationCompleted struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	CaseID         uuid.UUID `json:"caseId"`
}

func (e ConversationCompleted) EventName() string { return "triage.conversation.completed" }

// =============================================================================
// Cases Domain Events
// =============================================================================

// CaseCreated is published when a new maintenance case is materialized.
type CaseCreated struct {
	BaseEvent
	CaseID         uuid.UUID `json:"caseId"`
	ConversationID uuid.UUID `json:"conversationId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	CaseNumber     string    `json:"caseNumber"`
	Category       string    `json:"category"`
	UrgencyLevel   string    `json:"urgencyLevel"`
	BuildingName   string    `json:"buildingName"`
	RoomNumber     string    `json:"roomNumber"`
	StudentName    string    `json:"studentName,omitempty"`
	StudentEmail   string    `json:"studentEmail,omitempty"`
	EstimatedWork  string    `json:"estimatedWork,omitempty"`
}

func (e CaseCreated) EventName() string { return "cases.case.created" }

// CaseLinked is published when a conversation is attached to an existing
// case instead of creating a duplicate.
type CaseLinked struct {
	BaseEvent
	CaseID         uuid.UUID `json:"caseId"`
	ConversationID uuid.UUID `json:"conversationId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	CaseNumber     string    `json:"caseNumber"`
	StudentName    string    `json:"studentName,omitempty"`
	StudentEmail   string    `json:"studentEmail,omitempty"`
}

func (e CaseLinked) EventName() string { return "cases.case.linked" }

// =============================================================================
// Scheduling Domain Events
// =============================================================================

// AppointmentRecommended is published when the optimizer produces a
// successful recommendation for a case.
type AppointmentRecommended struct {
	BaseEvent
	CaseID         uuid.UUID `json:"caseId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	CaseNumber     string    `json:"caseNumber"`
	ContractorID   uuid.UUID `json:"contractorId"`
	ContractorName string    `json:"contractorName"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	Confidence     float64   `json:"confidence"`
}

func (e AppointmentRecommended) EventName() string { return "scheduling.appointment.recommended" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// NotificationOutboxDue is published by the worker when an outbox record's
// run_at has passed and the record should be delivered.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID       uuid.UUID `json:"outboxId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
