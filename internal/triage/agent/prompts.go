package agent

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"dormdesk_backend/internal/triage/domain"
)

const systemInstruction = `You are the maintenance intake assistant for a student housing office.
A student is reporting a facilities problem. Your job is to gather everything
a work order needs, one conversational turn at a time.

Rules:
- Ask at most ONE question per turn. If you need several things, queue the
  rest in queuedQuestions and ask the most important one.
- Never re-ask for information listed under KNOWN. It is already confirmed.
- Never invent building names, room numbers, or contact details. Only record
  what the student actually said.
- If the student describes something dangerous (gas, smoke, sparks, water
  near electricity, carbon monoxide), set nextAction to escalate_immediate.
- Be warm and brief. Students are often stressed; do not lecture.
- For issues a student can safely fix alone (a tripped breaker, a flipped
  garbage disposal switch), you may suggest recommend_diy with clear steps.
- Set isComplete only when you believe location, issue description, and
  contact details are all captured. The office makes the final call.

Respond with JSON matching the provided schema. Every field you emit must be
grounded in the conversation.`

// ResponseSchema constrains generation output to the turn contract. The
// required list mirrors ParseResponse's presence checks.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"message": {Type: genai.TypeString},
			"urgencyLevel": {
				Type: genai.TypeString,
				Enum: []string{
					string(domain.UrgencyEmergency),
					string(domain.UrgencyUrgent),
					string(domain.UrgencyNormal),
					string(domain.UrgencyLow),
				},
			},
			"safetyFlags": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"nextAction": {
				Type: genai.TypeString,
				Enum: []string{
					string(domain.ActionAskFollowup),
					string(domain.ActionRequestMedia),
					string(domain.ActionEscalateImmediate),
					string(domain.ActionCompleteTriage),
					string(domain.ActionRecommendDIY),
				},
			},
			"slots": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"buildingName":   {Type: genai.TypeString},
					"roomNumber":     {Type: genai.TypeString},
					"issueSummary":   {Type: genai.TypeString},
					"timeline":       {Type: genai.TypeString},
					"severity":       {Type: genai.TypeString},
					"studentName":    {Type: genai.TypeString},
					"studentEmail":   {Type: genai.TypeString},
					"studentPhone":   {Type: genai.TypeString},
					"photoRequested": {Type: genai.TypeBoolean},
				},
			},
			"location": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"buildingName": {Type: genai.TypeString},
					"roomNumber":   {Type: genai.TypeString},
				},
			},
			"queuedQuestions": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"mediaRequest": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"requested": {Type: genai.TypeBoolean},
					"reason":    {Type: genai.TypeString},
				},
			},
			"isComplete": {Type: genai.TypeBoolean},
		},
		Required: []string{"message", "urgencyLevel", "safetyFlags", "nextAction"},
	}
}

// BuildContents converts the conversation history plus the incoming message
// into generation contents. Deterministic analysis results ride along as a
// context block on the final user turn so the model never has to re-derive
// what the code already knows.
func BuildContents(req TurnRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Conversation.History)+1)
	for _, turn := range req.Conversation.History {
		role := genai.RoleUser
		if turn.Role == domain.RoleAgent {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Message}},
		})
	}

	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: req.Message + "\n\n" + contextBlock(req)}},
	})
	return contents
}

// contextBlock renders the known state for the model: confirmed slots it
// must not re-ask, questions still queued, and what the deterministic
// analyzers observed this turn.
func contextBlock(req TurnRequest) string {
	var b strings.Builder
	b.WriteString("[CONTEXT — not part of the student's message]\n")

	known := knownLines(req.KnownSlots)
	if len(known) > 0 {
		b.WriteString("KNOWN (do not re-ask):\n")
		for _, line := range known {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	} else {
		b.WriteString("KNOWN: nothing yet\n")
	}

	if len(req.PendingQuestions) > 0 {
		b.WriteString("QUEUED QUESTIONS:\n")
		for _, q := range req.PendingQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	if req.ContextSummary != "" {
		fmt.Fprintf(&b, "OBSERVED: %s\n", req.ContextSummary)
	}
	if req.LocationSummary != "" {
		fmt.Fprintf(&b, "LOCATION: %s\n", req.LocationSummary)
	}
	return b.String()
}

func knownLines(s domain.Slots) []string {
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("building", s.BuildingName)
	add("room", s.RoomNumber)
	add("issue", s.IssueSummary)
	add("timeline", s.Timeline)
	add("severity", s.Severity)
	add("student name", s.StudentName)
	add("student email", s.StudentEmail)
	add("student phone", s.StudentPhone)
	if s.PhotoRequested {
		lines = append(lines, "photo: already requested")
	}
	return lines
}
