package email

const (
	subjectCaseConfirmationFmt    = "Maintenance request %s received"
	subjectCaseLinkedFmt          = "Your report was added to case %s"
	subjectEmergencyEscalationFmt = "EMERGENCY: case %s requires immediate attention"
	subjectAppointmentProposalFmt = "Proposed appointment for case %s"
)
