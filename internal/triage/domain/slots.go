package domain

// Slots is the set of named facts extracted from the conversation.
// Each slot is set-once-then-sticky: once a turn supplies a non-empty value,
// a later turn may replace it only with another explicit non-empty value.
// An absent field in a later response never blanks an earlier value.
type Slots struct {
	BuildingName   string `json:"buildingName,omitempty"`
	RoomNumber     string `json:"roomNumber,omitempty"`
	IssueSummary   string `json:"issueSummary,omitempty"`
	Timeline       string `json:"timeline,omitempty"`
	Severity       string `json:"severity,omitempty"`
	StudentName    string `json:"studentName,omitempty"`
	StudentEmail   string `json:"studentEmail,omitempty"`
	StudentPhone   string `json:"studentPhone,omitempty"`
	PhotoRequested bool   `json:"photoRequested,omitempty"`
}

// MergeSlots applies the sticky update rule: incoming non-empty values win,
// incoming empty values leave the previous value untouched. PhotoRequested
// latches once set; a later turn cannot un-request a photo.
func MergeSlots(prev, incoming Slots) Slots {
	merged := prev
	merged.BuildingName = pick(prev.BuildingName, incoming.BuildingName)
	merged.RoomNumber = pick(prev.RoomNumber, incoming.RoomNumber)
	merged.IssueSummary = pick(prev.IssueSummary, incoming.IssueSummary)
	merged.Timeline = pick(prev.Timeline, incoming.Timeline)
	merged.Severity = pick(prev.Severity, incoming.Severity)
	merged.StudentName = pick(prev.StudentName, incoming.StudentName)
	merged.StudentEmail = pick(prev.StudentEmail, incoming.StudentEmail)
	merged.StudentPhone = pick(prev.StudentPhone, incoming.StudentPhone)
	merged.PhotoRequested = prev.PhotoRequested || incoming.PhotoRequested
	return merged
}

// HasContactInfo reports whether all three contact fields are present.
// Emergency dispatch requires a callback path, so this gate applies even to
// hazard escalations.
func (s Slots) HasContactInfo() bool {
	return s.StudentName != "" && s.StudentEmail != "" && s.StudentPhone != ""
}

// HasLocation reports whether both building and room are known.
func (s Slots) HasLocation() bool {
	return s.BuildingName != "" && s.RoomNumber != ""
}

func pick(prev, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return prev
}
