package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendCaseConfirmationEmail(ctx context.Context, toEmail string, data CaseConfirmationData) error {
	subject := fmt.Sprintf(subjectCaseConfirmationFmt, data.CaseNumber)
	heading := "Your maintenance request is in"
	if data.LinkedToOpen {
		subject = fmt.Sprintf(subjectCaseLinkedFmt, data.CaseNumber)
		heading = "Your report was added to an existing case"
	}

	html, err := renderEmailTemplate("case_confirmation.html", caseConfirmationEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: heading,
		},
		StudentName:  data.StudentName,
		CaseNumber:   data.CaseNumber,
		Category:     data.Category,
		Building:     data.Building,
		Room:         data.Room,
		WorkEstimate: data.WorkEstimate,
		LinkedToOpen: data.LinkedToOpen,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, html)
}

func (s *SMTPSender) SendEmergencyEscalationEmail(ctx context.Context, toEmail string, data EmergencyEscalationData) error {
	subject := fmt.Sprintf(subjectEmergencyEscalationFmt, data.CaseNumber)
	if data.CaseNumber == "" {
		subject = "EMERGENCY: student report requires immediate attention"
	}

	html, err := renderEmailTemplate("emergency_escalation.html", emergencyEscalationEmailData{
		baseEmailData: baseEmailData{
			Title:      subject,
			Heading:    "Emergency escalation",
			Subheading: "Dispatched from the triage intake engine",
		},
		CaseNumber:  data.CaseNumber,
		Building:    data.Building,
		Room:        data.Room,
		Summary:     data.Summary,
		SafetyFlags: formatSafetyFlags(data.SafetyFlags),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, html)
}

func (s *SMTPSender) SendAppointmentProposalEmail(ctx context.Context, toEmail string, data AppointmentProposalData) error {
	subject := fmt.Sprintf(subjectAppointmentProposalFmt, data.CaseNumber)

	html, err := renderEmailTemplate("appointment_proposal.html", appointmentProposalEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: "Appointment proposal",
		},
		CaseNumber:     data.CaseNumber,
		ContractorName: data.ContractorName,
		SlotStart:      data.SlotStart,
		SlotEnd:        data.SlotEnd,
		Confidence:     data.Confidence,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, html)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}
