package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type caseConfirmationEmailData struct {
	baseEmailData
	StudentName  string
	CaseNumber   string
	Category     string
	Building     string
	Room         string
	WorkEstimate string
	LinkedToOpen bool
}

type emergencyEscalationEmailData struct {
	baseEmailData
	CaseNumber  string
	Building    string
	Room        string
	Summary     string
	SafetyFlags string
}

type appointmentProposalEmailData struct {
	baseEmailData
	CaseNumber     string
	ContractorName string
	SlotStart      string
	SlotEnd        string
	Confidence     string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatSafetyFlags(flags []string) string {
	if len(flags) == 0 {
		return "none reported"
	}
	pretty := make([]string, len(flags))
	for i, f := range flags {
		pretty[i] = strings.ReplaceAll(f, "_", " ")
	}
	return strings.Join(pretty, ", ")
}
