// Package notification provides event handlers for sending notifications
// in response to domain events. The module subscribes to events and inverts
// the dependency: triage, cases, and scheduling never need to know about
// email providers or templates.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dormdesk_backend/internal/email"
	"dormdesk_backend/internal/events"
	"dormdesk_backend/internal/notification/outbox"
	"dormdesk_backend/platform/config"
	"dormdesk_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	kindEmail = "email"

	templateCaseConfirmation    = "case_confirmation"
	templateEmergencyEscalation = "emergency_escalation"
	templateAppointmentProposal = "appointment_proposal"

	maxOutboxRetryAttempts = 5
	outboxRetryBaseDelay   = 30 * time.Second
	outboxRetryMaxDelay    = 10 * time.Minute
)

type caseConfirmationPayload struct {
	ToEmail      string `json:"toEmail"`
	StudentName  string `json:"studentName,omitempty"`
	CaseNumber   string `json:"caseNumber"`
	Category     string `json:"category,omitempty"`
	Building     string `json:"building,omitempty"`
	Room         string `json:"room,omitempty"`
	WorkEstimate string `json:"workEstimate,omitempty"`
	LinkedToOpen bool   `json:"linkedToOpen,omitempty"`
}

type emergencyEscalationPayload struct {
	ToEmail     string   `json:"toEmail"`
	CaseNumber  string   `json:"caseNumber,omitempty"`
	Building    string   `json:"building,omitempty"`
	Room        string   `json:"room,omitempty"`
	Summary     string   `json:"summary"`
	SafetyFlags []string `json:"safetyFlags,omitempty"`
}

type appointmentProposalPayload struct {
	ToEmail        string `json:"toEmail"`
	CaseNumber     string `json:"caseNumber"`
	ContractorName string `json:"contractorName"`
	SlotStart      string `json:"slotStart"`
	SlotEnd        string `json:"slotEnd"`
	Confidence     string `json:"confidence"`
}

// Module routes domain events to outbox records and delivers due records.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
	outbox *outbox.Repository
}

func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		cfg:    cfg,
		log:    log,
	}
}

// SetOutbox wires the durable outbox. Without it, events are delivered
// inline on a best-effort basis.
func (m *Module) SetOutbox(repo *outbox.Repository) {
	m.outbox = repo
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ConversationEscalated{}.EventName(), m)
	bus.Subscribe(events.CaseCreated{}.EventName(), m)
	bus.Subscribe(events.CaseLinked{}.EventName(), m)
	bus.Subscribe(events.AppointmentRecommended{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ConversationEscalated:
		return m.handleConversationEscalated(ctx, e)
	case events.CaseCreated:
		return m.handleCaseCreated(ctx, e)
	case events.CaseLinked:
		return m.handleCaseLinked(ctx, e)
	case events.AppointmentRecommended:
		return m.handleAppointmentRecommended(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Debug("notification module received unhandled event", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleConversationEscalated(ctx context.Context, e events.ConversationEscalated) error {
	deskEmail := m.cfg.GetFacilitiesDeskEmail()
	if deskEmail == "" {
		m.log.Warn("facilities desk email not configured; emergency escalation not sent",
			"conversationId", e.ConversationID)
		return nil
	}

	return m.enqueue(ctx, e.OrganizationID, templateEmergencyEscalation, emergencyEscalationPayload{
		ToEmail:     deskEmail,
		Building:    e.BuildingName,
		Room:        e.RoomNumber,
		Summary:     e.Message,
		SafetyFlags: e.SafetyFlags,
	})
}

func (m *Module) handleCaseCreated(ctx context.Context, e events.CaseCreated) error {
	if e.StudentEmail == "" {
		m.log.Debug("case created without student email; confirmation skipped", "caseId", e.CaseID)
		return nil
	}

	return m.enqueue(ctx, e.OrganizationID, templateCaseConfirmation, caseConfirmationPayload{
		ToEmail:      e.StudentEmail,
		StudentName:  e.StudentName,
		CaseNumber:   e.CaseNumber,
		Category:     e.Category,
		Building:     e.BuildingName,
		Room:         e.RoomNumber,
		WorkEstimate: e.EstimatedWork,
	})
}

func (m *Module) handleCaseLinked(ctx context.Context, e events.CaseLinked) error {
	if e.StudentEmail == "" {
		m.log.Debug("case linked without student email; confirmation skipped", "caseId", e.CaseID)
		return nil
	}

	return m.enqueue(ctx, e.OrganizationID, templateCaseConfirmation, caseConfirmationPayload{
		ToEmail:      e.StudentEmail,
		StudentName:  e.StudentName,
		CaseNumber:   e.CaseNumber,
		LinkedToOpen: true,
	})
}

func (m *Module) handleAppointmentRecommended(ctx context.Context, e events.AppointmentRecommended) error {
	deskEmail := m.cfg.GetFacilitiesDeskEmail()
	if deskEmail == "" {
		return nil
	}

	return m.enqueue(ctx, e.OrganizationID, templateAppointmentProposal, appointmentProposalPayload{
		ToEmail:        deskEmail,
		CaseNumber:     e.CaseNumber,
		ContractorName: e.ContractorName,
		SlotStart:      e.StartTime.Format("Mon Jan 2 15:04"),
		SlotEnd:        e.EndTime.Format("15:04 MST"),
		Confidence:     fmt.Sprintf("%.0f%%", e.Confidence*100),
	})
}

// enqueue writes an outbox record when the outbox is wired, otherwise
// delivers inline. Inline failures are logged and dropped; notification
// side-effects never fail the publishing operation.
func (m *Module) enqueue(ctx context.Context, orgID uuid.UUID, template string, payload any) error {
	if m.outbox == nil {
		if err := m.deliver(ctx, template, mustMarshal(payload)); err != nil {
			m.log.Warn("inline notification delivery failed", "template", template, "error", err)
		}
		return nil
	}

	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		OrganizationID: orgID,
		Kind:           kindEmail,
		Template:       template,
		Payload:        payload,
	})
	if err != nil {
		m.log.Error("failed to enqueue notification", "template", template, "error", err)
		return err
	}

	m.log.Info("notification enqueued", "outboxId", id, "template", template)
	return nil
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; skipping outbox due event", "outboxId", e.OutboxID)
		return nil
	}

	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if err != nil {
		return fmt.Errorf("failed to load outbox record: %w", err)
	}
	if rec.Status == outbox.StatusSucceeded {
		return nil
	}

	if rec.Kind != kindEmail {
		_ = m.outbox.MarkFailed(ctx, rec.ID, "unsupported kind: "+rec.Kind)
		return nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if err := m.deliver(ctx, rec.Template, rec.Payload); err != nil {
		m.handleOutboxDeliveryError(ctx, rec, err)
		return err
	}

	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		return err
	}
	m.log.Info("outbox record delivered", "outboxId", rec.ID, "template", rec.Template)
	return nil
}

func (m *Module) deliver(ctx context.Context, template string, payload json.RawMessage) error {
	switch template {
	case templateCaseConfirmation:
		var p caseConfirmationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode case confirmation payload: %w", err)
		}
		return m.sender.SendCaseConfirmationEmail(ctx, p.ToEmail, email.CaseConfirmationData{
			StudentName:  p.StudentName,
			CaseNumber:   p.CaseNumber,
			Category:     p.Category,
			Building:     p.Building,
			Room:         p.Room,
			WorkEstimate: p.WorkEstimate,
			LinkedToOpen: p.LinkedToOpen,
		})
	case templateEmergencyEscalation:
		var p emergencyEscalationPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode emergency escalation payload: %w", err)
		}
		return m.sender.SendEmergencyEscalationEmail(ctx, p.ToEmail, email.EmergencyEscalationData{
			CaseNumber:  p.CaseNumber,
			Building:    p.Building,
			Room:        p.Room,
			Summary:     p.Summary,
			SafetyFlags: p.SafetyFlags,
		})
	case templateAppointmentProposal:
		var p appointmentProposalPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode appointment proposal payload: %w", err)
		}
		return m.sender.SendAppointmentProposalEmail(ctx, p.ToEmail, email.AppointmentProposalData{
			CaseNumber:     p.CaseNumber,
			ContractorName: p.ContractorName,
			SlotStart:      p.SlotStart,
			SlotEnd:        p.SlotEnd,
			Confidence:     p.Confidence,
		})
	default:
		return fmt.Errorf("unsupported notification template %q", template)
	}
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID,
			"template", rec.Template,
			"attempt", attempt,
			"error", deliveryErr,
		)
		return
	}

	retryAt := time.Now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID,
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID,
		"template", rec.Template,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func mustMarshal(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
