// Package domain holds the scheduling model: contractors, their recurring
// availability, and the slot scoring rules. Availability slots are always
// derived on demand from rules plus bookings plus blackouts; they are never
// persisted.
package domain

import (
	"time"

	"github.com/google/uuid"

	triage "dormdesk_backend/internal/triage/domain"
)

// Urgency is the scheduling-side urgency scale.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// FromCaseUrgency maps intake urgency onto the scheduling scale.
func FromCaseUrgency(u triage.Urgency) Urgency {
	switch u {
	case triage.UrgencyEmergency:
		return UrgencyCritical
	case triage.UrgencyUrgent:
		return UrgencyHigh
	case triage.UrgencyLow:
		return UrgencyLow
	default:
		return UrgencyMedium
	}
}

func ValidUrgency(u Urgency) bool {
	switch u {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

// Contractor is a service provider the optimizer can recommend.
type Contractor struct {
	ID                 uuid.UUID
	OrganizationID     uuid.UUID
	Name               string
	Email              string
	Phone              string
	Categories         []string
	Rating             float64
	IsActive           bool
	IsPreferred        bool
	EmergencyAvailable bool
	ResponseTimeHours  float64
	DailyJobCap        int
}

// AvailabilityRule is one recurring weekly window, minutes from midnight in
// the organization's local time.
type AvailabilityRule struct {
	ID           uuid.UUID
	ContractorID uuid.UUID
	Weekday      time.Weekday
	StartMinute  int
	EndMinute    int
}

// BookingStatus tracks a booking through its lifecycle. Holds expire if
// never confirmed.
type BookingStatus string

const (
	BookingHold      BookingStatus = "hold"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
)

// Booking is committed contractor time.
type Booking struct {
	ID           uuid.UUID
	ContractorID uuid.UUID
	CaseID       *uuid.UUID
	StartTime    time.Time
	EndTime      time.Time
	Status       BookingStatus
	CreatedAt    time.Time
}

// Overlaps reports whether the booking intersects [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}

// Blackout is a date range a contractor is entirely unavailable.
type Blackout struct {
	ID           uuid.UUID
	ContractorID uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
	Reason       string
}

// Covers reports whether the day falls inside the blackout range, inclusive
// of both endpoints.
func (b Blackout) Covers(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !d.Before(b.StartDate.Truncate(24*time.Hour)) &&
		!d.After(b.EndDate.Truncate(24*time.Hour))
}

// Slot is one derived availability candidate for one contractor.
type Slot struct {
	ContractorID      uuid.UUID
	Start             time.Time
	End               time.Time
	IsAvailable       bool
	ConflictingCount  int
	WorkloadScore     float64
	ResponseTimeHours float64
}

// Priority tags the ranked recommendations.
type Priority string

const (
	PriorityPrimary     Priority = "primary"
	PriorityAlternative Priority = "alternative"
)

// WorkloadBand is the human-readable load classification.
type WorkloadBand string

const (
	WorkloadLight    WorkloadBand = "light"
	WorkloadModerate WorkloadBand = "moderate"
	WorkloadHeavy    WorkloadBand = "heavy"
)

// ClassifyWorkload buckets a 0..1 workload score.
func ClassifyWorkload(score float64) WorkloadBand {
	switch {
	case score < 0.34:
		return WorkloadLight
	case score < 0.67:
		return WorkloadModerate
	default:
		return WorkloadHeavy
	}
}

// Window is a caller-preferred time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the slot fits entirely inside the window.
func (w Window) Contains(start, end time.Time) bool {
	return !start.Before(w.Start) && !end.After(w.End)
}

// Recommendation is one ranked appointment candidate. Recommendations are
// generated fresh per request and never mutated afterwards.
type Recommendation struct {
	ContractorID     uuid.UUID     `json:"contractorId"`
	ContractorName   string        `json:"contractorName"`
	Start            time.Time     `json:"start"`
	End              time.Time     `json:"end"`
	Confidence       float64       `json:"confidence"`
	Reasoning        string        `json:"reasoning"`
	Priority         Priority      `json:"priority"`
	Workload         WorkloadBand  `json:"workload"`
	ApprovalRequired bool          `json:"approvalRequired"`
	ApprovalDeadline *time.Time    `json:"approvalDeadline,omitempty"`
}

// Result is the outcome of one scheduling request. An empty result with a
// reason is a successful answer, not an error.
type Result struct {
	Success           bool             `json:"success"`
	Recommendations   []Recommendation `json:"recommendations"`
	OptimizationScore float64          `json:"optimizationScore"`
	Reason            string           `json:"reason,omitempty"`
}
