// Package email renders and delivers transactional mail for the maintenance
// platform. Delivery goes through the Sender interface so the notification
// module never depends on a concrete transport.
package email

import (
	"context"

	"dormdesk_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string
	MIMEType string
}

type Sender interface {
	SendCaseConfirmationEmail(ctx context.Context, toEmail string, data CaseConfirmationData) error
	SendEmergencyEscalationEmail(ctx context.Context, toEmail string, data EmergencyEscalationData) error
	SendAppointmentProposalEmail(ctx context.Context, toEmail string, data AppointmentProposalData) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// CaseConfirmationData feeds the case-confirmation template sent to the
// reporting student once their conversation materializes into a case.
type CaseConfirmationData struct {
	StudentName  string
	CaseNumber   string
	Category     string
	Building     string
	Room         string
	WorkEstimate string
	LinkedToOpen bool
}

// EmergencyEscalationData feeds the escalation template sent to the
// facilities desk when a conversation is flagged as an emergency.
type EmergencyEscalationData struct {
	CaseNumber  string
	Building    string
	Room        string
	Summary     string
	SafetyFlags []string
}

// AppointmentProposalData feeds the proposal template sent to the facilities
// desk when the optimizer recommends a contractor slot.
type AppointmentProposalData struct {
	CaseNumber     string
	ContractorName string
	SlotStart      string
	SlotEnd        string
	Confidence     string
}

// NoopSender is used when email delivery is disabled. All sends succeed
// without doing anything.
type NoopSender struct{}

func (NoopSender) SendCaseConfirmationEmail(ctx context.Context, toEmail string, data CaseConfirmationData) error {
	return nil
}

func (NoopSender) SendEmergencyEscalationEmail(ctx context.Context, toEmail string, data EmergencyEscalationData) error {
	return nil
}

func (NoopSender) SendAppointmentProposalEmail(ctx context.Context, toEmail string, data AppointmentProposalData) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender picks the delivery implementation from configuration.
// Returns NoopSender when email is disabled so callers never nil-check.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
