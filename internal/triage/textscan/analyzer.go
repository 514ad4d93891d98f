// Package textscan implements deterministic emotion, urgency, and timeline
// inference over a single student message. It runs independently of the
// generation service and its output acts as a floor for urgency decisions:
// the orchestrator may raise urgency from these signals but never lowers it
// because the model disagreed.
package textscan

import (
	"regexp"
	"strconv"
	"strings"

	"dormdesk_backend/internal/triage/domain"
)

// Emotion is the inferred emotional state of the reporter.
type Emotion string

const (
	EmotionFrustrated Emotion = "frustrated"
	EmotionUrgent     Emotion = "urgent"
	EmotionCalm       Emotion = "calm"
	EmotionWorried    Emotion = "worried"
)

// Analysis is the deterministic reading of one message.
type Analysis struct {
	EmotionalContext   Emotion
	InferredUrgency    domain.Urgency
	TimelineIndicators []string
	SeverityIndicators []string
	InferredInfo       domain.Slots
}

var (
	urgentPhrases = []string{
		"asap", "immediately", "right now", "right away", "urgent",
		"emergency", "can't wait", "cannot wait", "need someone now",
	}
	frustratedPhrases = []string{
		"still not fixed", "still broken", "again", "third time", "second time",
		"ridiculous", "fed up", "sick of", "how long", "nobody came",
	}
	worriedPhrases = []string{
		"worried", "concerned", "scared", "afraid", "nervous", "not safe",
	}
	timelinePhrases = []string{
		"just now", "just started", "this morning", "this afternoon", "tonight",
		"last night", "since yesterday", "yesterday", "for days", "all week",
		"for a week", "since last week", "for weeks", "since the weekend",
		"a few hours", "all day",
	}
	severityPhrases = []string{
		"getting worse", "completely broken", "completely", "won't stop",
		"everywhere", "all over", "unbearable", "can't sleep", "can't use",
		"not working at all", "totally",
	}
	temperatureExtremes = []string{
		"freezing", "ice cold", "boiling", "sweltering", "like an oven",
		"like a sauna",
	}

	// Explicit temperature mentions, e.g. "40 degrees" or "95°".
	degreesRe = regexp.MustCompile(`(\d{1,3})\s*(?:degrees|deg\b|°)`)

	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Ten-digit numbers with optional separators, or the seven-digit campus
	// form like 555-0142. Bare room numbers never match.
	phoneRe = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]?\d{4}\b|\b\d{3}[\s.\-]\d{4}\b`)

	// Self-introductions only. Capitalization is required on the name so
	// "i'm freezing" never becomes a student name.
	nameRe = regexp.MustCompile(`(?:I'm|I am|i'm|i am|[Mm]y name is|[Tt]his is)\s+([A-Z][a-z]+(?: [A-Z][a-z]+)+)`)
)

// Analyze performs the deterministic classification. Pure function of the
// message text.
func Analyze(message string) Analysis {
	lowered := strings.ToLower(message)

	analysis := Analysis{
		EmotionalContext: EmotionCalm,
		InferredUrgency:  domain.UrgencyNormal,
	}

	switch {
	case containsAny(lowered, urgentPhrases):
		analysis.EmotionalContext = EmotionUrgent
		analysis.InferredUrgency = domain.UrgencyUrgent
	case containsAny(lowered, frustratedPhrases):
		analysis.EmotionalContext = EmotionFrustrated
	case containsAny(lowered, worriedPhrases):
		analysis.EmotionalContext = EmotionWorried
	}

	// Temperature extremes are high-confidence urgency signals regardless
	// of emotional tone.
	if hasTemperatureExtreme(lowered) {
		analysis.InferredUrgency = domain.MaxUrgency(analysis.InferredUrgency, domain.UrgencyUrgent)
		analysis.SeverityIndicators = append(analysis.SeverityIndicators, "temperature_extreme")
	}

	for _, phrase := range timelinePhrases {
		if strings.Contains(lowered, phrase) {
			analysis.TimelineIndicators = append(analysis.TimelineIndicators, phrase)
		}
	}
	for _, phrase := range severityPhrases {
		if strings.Contains(lowered, phrase) {
			analysis.SeverityIndicators = append(analysis.SeverityIndicators, phrase)
		}
	}

	// Contact details are extracted deterministically so an emergency turn
	// can capture them without a generation call.
	if m := emailRe.FindString(message); m != "" {
		analysis.InferredInfo.StudentEmail = m
	}
	if m := phoneRe.FindString(message); m != "" {
		analysis.InferredInfo.StudentPhone = m
	}
	if m := nameRe.FindStringSubmatch(message); m != nil {
		analysis.InferredInfo.StudentName = m[1]
	}

	// Pre-fill slots the generation service would otherwise have to ask for.
	if len(analysis.TimelineIndicators) > 0 {
		analysis.InferredInfo.Timeline = analysis.TimelineIndicators[0]
	}
	if len(analysis.SeverityIndicators) > 0 {
		analysis.InferredInfo.Severity = analysis.SeverityIndicators[0]
	}

	return analysis
}

// IsFrustrated reports whether the message reads as explicit frustration.
// The completeness scorer uses this to relax (never bypass) its threshold.
func (a Analysis) IsFrustrated() bool {
	return a.EmotionalContext == EmotionFrustrated
}

func hasTemperatureExtreme(lowered string) bool {
	if containsAny(lowered, temperatureExtremes) {
		return true
	}

	for _, match := range degreesRe.FindAllStringSubmatch(lowered, -1) {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		// Indoor readings below 50F or above 85F count as extreme.
		if value < 50 || value > 85 {
			return true
		}
	}
	return false
}

func containsAny(lowered string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
