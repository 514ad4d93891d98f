package notification

import (
	"context"
	"testing"
	"time"

	"dormdesk_backend/internal/email"
	"dormdesk_backend/internal/events"
	"dormdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type sentMail struct {
	to       string
	template string
}

type fakeSender struct {
	email.NoopSender
	sent []sentMail
}

func (f *fakeSender) SendCaseConfirmationEmail(ctx context.Context, toEmail string, data email.CaseConfirmationData) error {
	f.sent = append(f.sent, sentMail{to: toEmail, template: "case_confirmation"})
	return nil
}

func (f *fakeSender) SendEmergencyEscalationEmail(ctx context.Context, toEmail string, data email.EmergencyEscalationData) error {
	f.sent = append(f.sent, sentMail{to: toEmail, template: "emergency_escalation"})
	return nil
}

func (f *fakeSender) SendAppointmentProposalEmail(ctx context.Context, toEmail string, data email.AppointmentProposalData) error {
	f.sent = append(f.sent, sentMail{to: toEmail, template: "appointment_proposal"})
	return nil
}

type fakeConfig struct {
	deskEmail string
}

func (f fakeConfig) GetAppBaseURL() string          { return "http://localhost:3000" }
func (f fakeConfig) GetFacilitiesDeskEmail() string { return f.deskEmail }

func newTestModule(sender email.Sender, deskEmail string) *Module {
	return New(sender, fakeConfig{deskEmail: deskEmail}, logger.New("test"))
}

func TestHandleCaseCreated_SendsConfirmationInline(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender, "desk@school.edu")

	err := m.Handle(context.Background(), events.CaseCreated{
		BaseEvent:    events.NewBaseEvent(),
		CaseID:       uuid.New(),
		CaseNumber:   "L3-TANG-301-20260831",
		StudentEmail: "alex@school.edu",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sender.sent))
	}
	if sender.sent[0].to != "alex@school.edu" || sender.sent[0].template != "case_confirmation" {
		t.Fatalf("unexpected mail: %+v", sender.sent[0])
	}
}

func TestHandleCaseCreated_NoEmailSkipped(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender, "desk@school.edu")

	err := m.Handle(context.Background(), events.CaseCreated{
		BaseEvent:  events.NewBaseEvent(),
		CaseID:     uuid.New(),
		CaseNumber: "L3-TANG-301-20260831",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no mail without a student email, got %d", len(sender.sent))
	}
}

func TestHandleConversationEscalated_GoesToDesk(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender, "desk@school.edu")

	err := m.Handle(context.Background(), events.ConversationEscalated{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: uuid.New(),
		SafetyFlags:    []string{"gas_leak"},
		Message:        "I smell gas in my room",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "desk@school.edu" {
		t.Fatalf("escalation not routed to facilities desk: %+v", sender.sent)
	}
}

func TestHandleConversationEscalated_NoDeskConfigured(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender, "")

	err := m.Handle(context.Background(), events.ConversationEscalated{
		BaseEvent: events.NewBaseEvent(),
		Message:   "sparks from the outlet",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no mail without a desk address")
	}
}

func TestHandleAppointmentRecommended(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender, "desk@school.edu")

	start := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	err := m.Handle(context.Background(), events.AppointmentRecommended{
		BaseEvent:      events.NewBaseEvent(),
		CaseID:         uuid.New(),
		CaseNumber:     "L2-TANG-301-20260831",
		ContractorName: "Premier Plumbing",
		StartTime:      start,
		EndTime:        start.Add(2 * time.Hour),
		Confidence:     0.91,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].template != "appointment_proposal" {
		t.Fatalf("unexpected mail: %+v", sender.sent)
	}
}

func TestDeliver_UnknownTemplate(t *testing.T) {
	m := newTestModule(&fakeSender{}, "desk@school.edu")
	if err := m.deliver(context.Background(), "carrier_pigeon", []byte(`{}`)); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{10, 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := computeOutboxRetryDelay(tt.attempt); got != tt.want {
			t.Fatalf("attempt %d: delay = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
