// Package scoring computes the completeness score and readiness gates for a
// triage conversation. The score is recomputed from scratch every turn and
// never cached: the inputs are cheap and a stale score is worse than no
// score.
//
// Readiness is two-layered on purpose. A purely additive score can reach a
// high value while still missing one irreplaceable fact (a room number, a
// callback phone). The hard gates catch exactly that failure mode: the
// score alone can never authorize completion.
package scoring

import (
	"fmt"
	"strings"

	"dormdesk_backend/internal/triage/domain"
	"dormdesk_backend/internal/triage/textscan"
	"dormdesk_backend/platform/phone"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing the weights or gates significantly.
	scoreVersion = "2026-v1"

	// Weighted score components. They sum to 100.
	buildingPoints   = 25
	roomPoints       = 15
	issuePoints      = 20
	detailPoints     = 10
	urgencyPoints    = 20
	urgencyFloor     = 5 // absence of urgency signal means "assume normal", not "block"
	engagementMax    = 10
	engagementPerTurn = 2

	// readyThreshold is the default score required alongside the gates.
	readyThreshold = 70
	// relaxedThreshold applies when the reporter is explicitly frustrated
	// or the agent has already asked several questions. Relaxation only
	// lowers the score bar; it never bypasses the hard gates.
	relaxedThreshold = 60
	// relaxAfterQuestions is the number of agent questions after which the
	// relaxed threshold kicks in.
	relaxAfterQuestions = 3

	// detailMinLength is the message length treated as "detailed".
	detailMinLength = 40
)

// issueKeywords identifies a recognizable maintenance issue in free text.
// Ordered roughly by report frequency; order does not affect scoring.
var issueKeywords = []string{
	"leak", "drip", "faucet", "toilet", "shower", "drain", "clog", "pipe",
	"heat", "heating", "radiator", "ac", "air conditioning", "thermostat",
	"light", "outlet", "power", "electric", "breaker", "bulb",
	"door", "lock", "key", "window", "blind", "screen",
	"mold", "pest", "mice", "mouse", "roach", "bug", "ant",
	"wall", "ceiling", "floor", "broken", "stuck", "not working",
	"fridge", "stove", "oven", "microwave", "washer", "dryer",
	"wifi", "internet", "smoke detector", "alarm",
}

// Result is the completeness evaluation for one turn.
type Result struct {
	Score           int
	IsReady         bool
	MissingElements []string
	Reasoning       string
}

// Input bundles everything the scorer reads. All fields are values; the
// scorer never mutates conversation state.
type Input struct {
	Slots          domain.Slots
	Location       domain.Location
	LatestMessage  string
	Context        textscan.Analysis
	HistoryLength  int
	QuestionsAsked int
}

// Evaluate computes the weighted score and the hard gates.
func Evaluate(in Input) Result {
	var score int
	var parts []string

	// Location: 25 for building, +15 for room.
	if in.Slots.BuildingName != "" {
		score += buildingPoints
	}
	if in.Slots.RoomNumber != "" {
		score += roomPoints
	}

	// Issue identification: 20 for any recognized issue, +10 for detail.
	issueIdentified := hasIssue(in)
	if issueIdentified {
		score += issuePoints
	}
	if len(strings.TrimSpace(in.LatestMessage)) >= detailMinLength ||
		len(in.Slots.IssueSummary) >= detailMinLength {
		score += detailPoints
	}

	// Urgency/severity signal: full points when any signal exists, a small
	// floor otherwise. Missing urgency means "assume normal priority".
	if hasUrgencySignal(in) {
		score += urgencyPoints
	} else {
		score += urgencyFloor
	}

	// Engagement depth: scaled by turns exchanged.
	engagement := in.HistoryLength * engagementPerTurn
	if engagement > engagementMax {
		engagement = engagementMax
	}
	score += engagement

	// Hard gates, independent of the score.
	missing := []string{}
	if in.Slots.BuildingName == "" {
		missing = append(missing, "building name")
	}
	if in.Slots.RoomNumber == "" {
		missing = append(missing, "room number")
	}
	if !issueIdentified {
		missing = append(missing, "a description of the issue")
	}
	if in.Slots.StudentName == "" {
		missing = append(missing, "your name")
	}
	if in.Slots.StudentEmail == "" {
		missing = append(missing, "an email address")
	}
	if in.Slots.StudentPhone == "" || !phone.IsPlausible(in.Slots.StudentPhone) {
		missing = append(missing, "a phone number we can reach you at")
	}
	gatesPass := len(missing) == 0

	threshold := readyThreshold
	if in.Context.IsFrustrated() || in.QuestionsAsked >= relaxAfterQuestions {
		threshold = relaxedThreshold
	}

	ready := score >= threshold && gatesPass

	if gatesPass {
		parts = append(parts, "all required facts present")
	} else {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	parts = append(parts, fmt.Sprintf("score %d/%d (model %s)", score, threshold, scoreVersion))

	return Result{
		Score:           score,
		IsReady:         ready,
		MissingElements: missing,
		Reasoning:       strings.Join(parts, "; "),
	}
}

// FollowupMessage builds the deterministic "what's still missing" question
// from the missing elements. The generation service has been observed to
// under- and over-ask, so this text is never left to it.
func (r Result) FollowupMessage() string {
	if len(r.MissingElements) == 0 {
		return "Could you share any other details about the issue?"
	}
	if len(r.MissingElements) == 1 {
		return fmt.Sprintf("Thanks — to finish filing this I still need %s.", r.MissingElements[0])
	}

	last := r.MissingElements[len(r.MissingElements)-1]
	rest := strings.Join(r.MissingElements[:len(r.MissingElements)-1], ", ")
	return fmt.Sprintf("Thanks — to finish filing this I still need %s and %s.", rest, last)
}

func hasIssue(in Input) bool {
	if strings.TrimSpace(in.Slots.IssueSummary) != "" {
		return true
	}
	lowered := strings.ToLower(in.LatestMessage)
	for _, kw := range issueKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func hasUrgencySignal(in Input) bool {
	if in.Slots.Severity != "" || in.Slots.Timeline != "" {
		return true
	}
	if len(in.Context.SeverityIndicators) > 0 || len(in.Context.TimelineIndicators) > 0 {
		return true
	}
	return in.Context.InferredUrgency == domain.UrgencyUrgent ||
		in.Context.InferredUrgency == domain.UrgencyEmergency
}
