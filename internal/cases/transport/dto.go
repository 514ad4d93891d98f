// Package transport defines the staff-facing case API shapes.
package transport

import (
	"time"

	"github.com/google/uuid"

	"dormdesk_backend/internal/cases/domain"
)

type CaseResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	CaseNumber     string    `json:"caseNumber"`
	Category       string    `json:"category"`
	UrgencyLevel   string    `json:"urgencyLevel"`
	Status         string    `json:"status"`
	BuildingName   string    `json:"buildingName"`
	BuildingCode   string    `json:"buildingCode"`
	RoomNumber     string    `json:"roomNumber"`
	IssueSummary   string    `json:"issueSummary"`
	Timeline       string    `json:"timeline,omitempty"`
	Severity       string    `json:"severity,omitempty"`
	StudentName    string    `json:"studentName"`
	StudentEmail   string    `json:"studentEmail"`
	StudentPhone   string    `json:"studentPhone"`
	SafetyFlags    []string  `json:"safetyFlags"`
	EstimatedWork  string    `json:"estimatedWork"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func FromCase(c *domain.Case) CaseResponse {
	return CaseResponse{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		CaseNumber:     c.CaseNumber,
		Category:       string(c.Category),
		UrgencyLevel:   string(c.UrgencyLevel),
		Status:         string(c.Status),
		BuildingName:   c.BuildingName,
		BuildingCode:   c.BuildingCode,
		RoomNumber:     c.RoomNumber,
		IssueSummary:   c.IssueSummary,
		Timeline:       c.Timeline,
		Severity:       c.Severity,
		StudentName:    c.StudentName,
		StudentEmail:   c.StudentEmail,
		StudentPhone:   c.StudentPhone,
		SafetyFlags:    c.SafetyFlags,
		EstimatedWork:  c.EstimatedWork,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func FromCases(items []*domain.Case) []CaseResponse {
	out := make([]CaseResponse, 0, len(items))
	for _, c := range items {
		out = append(out, FromCase(c))
	}
	return out
}

type UpdateStatusRequest struct {
	OrganizationID uuid.UUID `json:"organizationId" validate:"required"`
	Status         string    `json:"status" validate:"required,oneof=open scheduled in_progress resolved closed"`
}
