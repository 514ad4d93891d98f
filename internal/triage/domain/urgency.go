package domain

// Urgency is the triage urgency level of a conversation or case.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyNormal    Urgency = "normal"
	UrgencyLow       Urgency = "low"
)

// Rank returns the numeric urgency rank used in case numbers:
// emergency=1, urgent=2, normal=3, low=4. Unknown values rank as normal.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyEmergency:
		return 1
	case UrgencyUrgent:
		return 2
	case UrgencyLow:
		return 4
	default:
		return 3
	}
}

// ValidUrgency reports whether the value is a known urgency level.
func ValidUrgency(u Urgency) bool {
	switch u {
	case UrgencyEmergency, UrgencyUrgent, UrgencyNormal, UrgencyLow:
		return true
	}
	return false
}

// MoreSevere reports whether a is strictly more severe than b.
func MoreSevere(a, b Urgency) bool {
	return a.Rank() < b.Rank()
}

// MaxUrgency returns the more severe of the two levels.
func MaxUrgency(a, b Urgency) Urgency {
	if MoreSevere(a, b) {
		return a
	}
	return b
}
