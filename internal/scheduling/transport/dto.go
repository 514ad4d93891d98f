// Package transport defines the scheduling API shapes.
package transport

import (
	"time"

	"github.com/google/uuid"

	"dormdesk_backend/internal/scheduling/domain"
	"dormdesk_backend/internal/scheduling/service"
)

type TimeWindow struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

type RecommendationRequest struct {
	CaseID               uuid.UUID    `json:"caseId" validate:"required"`
	OrganizationID       uuid.UUID    `json:"organizationId" validate:"required"`
	ContractorID         *uuid.UUID   `json:"contractorId,omitempty"`
	Urgency              string       `json:"urgency,omitempty" validate:"omitempty,oneof=critical high medium low"`
	EstimatedDuration    string       `json:"estimatedDuration,omitempty" validate:"omitempty,max=64"`
	RequiresTenantAccess bool         `json:"requiresTenantAccess,omitempty"`
	PreferredTimeSlots   []TimeWindow `json:"preferredTimeSlots,omitempty" validate:"omitempty,max=5,dive"`
	MustCompleteBy       *time.Time   `json:"mustCompleteBy,omitempty"`
}

type ContractorSummary struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Categories         []string  `json:"categories"`
	Rating             float64   `json:"rating"`
	IsPreferred        bool      `json:"isPreferred"`
	EmergencyAvailable bool      `json:"emergencyAvailable"`
}

type AvailabilitySlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AvailabilityResponse struct {
	Contractor ContractorSummary  `json:"contractor"`
	From       time.Time          `json:"from"`
	Until      time.Time          `json:"until"`
	Slots      []AvailabilitySlot `json:"slots"`
}

// ToAvailabilityResponse flattens the derived schedule for the wire.
func ToAvailabilityResponse(a *service.Availability) AvailabilityResponse {
	slots := make([]AvailabilitySlot, 0, len(a.Slots))
	for _, s := range a.Slots {
		slots = append(slots, AvailabilitySlot{Start: s.Start, End: s.End})
	}
	return AvailabilityResponse{
		Contractor: ContractorSummary{
			ID:                 a.Contractor.ID,
			Name:               a.Contractor.Name,
			Categories:         a.Contractor.Categories,
			Rating:             a.Contractor.Rating,
			IsPreferred:        a.Contractor.IsPreferred,
			EmergencyAvailable: a.Contractor.EmergencyAvailable,
		},
		From:  a.From,
		Until: a.Until,
		Slots: slots,
	}
}

// ToServiceRequest converts the wire request into the optimizer input.
func (r RecommendationRequest) ToServiceRequest() service.Request {
	windows := make([]domain.Window, 0, len(r.PreferredTimeSlots))
	for _, w := range r.PreferredTimeSlots {
		windows = append(windows, domain.Window{Start: w.Start, End: w.End})
	}
	return service.Request{
		CaseID:               r.CaseID,
		OrganizationID:       r.OrganizationID,
		ContractorID:         r.ContractorID,
		Urgency:              domain.Urgency(r.Urgency),
		EstimatedDuration:    r.EstimatedDuration,
		RequiresTenantAccess: r.RequiresTenantAccess,
		PreferredTimeSlots:   windows,
		MustCompleteBy:       r.MustCompleteBy,
	}
}
