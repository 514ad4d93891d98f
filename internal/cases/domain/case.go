// Package domain holds the maintenance case model: categorization, case
// numbering, and the duplicate-report rules.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	triage "dormdesk_backend/internal/triage/domain"
)

// Category is the trade bucket a case is routed to.
type Category string

const (
	CategoryHVAC       Category = "hvac"
	CategoryElectrical Category = "electrical"
	CategoryPlumbing   Category = "plumbing"
	CategoryStructural Category = "structural"
	CategorySecurity   Category = "security"
	CategoryGeneral    Category = "general"
)

// Status is the case lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Case is one maintenance work item. Multiple conversations may attach to
// the same case when students report the same issue.
type Case struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	CaseNumber     string
	Category       Category
	UrgencyLevel   triage.Urgency
	Status         Status
	BuildingName   string
	BuildingCode   string
	RoomNumber     string
	IssueSummary   string
	Timeline       string
	Severity       string
	StudentName    string
	StudentEmail   string
	StudentPhone   string
	SafetyFlags    []string
	EstimatedWork  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// flagCategories routes hazard flags ahead of keyword matching; a gas leak
// report goes to HVAC even if the text never mentions heating.
var flagCategories = []struct {
	flag     string
	category Category
}{
	{"gas_leak", CategoryHVAC},
	{"carbon_monoxide", CategoryHVAC},
	{"no_heat", CategoryHVAC},
	{"no_cooling", CategoryHVAC},
	{"electrical_water_hazard", CategoryElectrical},
	{"exposed_wiring", CategoryElectrical},
	{"fire_hazard", CategoryElectrical},
	{"flooding", CategoryPlumbing},
}

// categoryRules is evaluated in order; the first category with a keyword
// match wins. Plumbing outranks structural so "water stain on the ceiling"
// routes to the plumber who fixes the cause, not the painter.
var categoryRules = []struct {
	category Category
	keywords []string
}{
	{CategoryHVAC, []string{
		"heat", "heating", "heater", "radiator", "thermostat", "ac ",
		"air conditioning", "cooling", "ventilation", "vent", "furnace",
		"freezing", "degrees", "too cold", "too hot",
	}},
	{CategoryElectrical, []string{
		"outlet", "breaker", "power", "light", "lamp", "wiring", "wire",
		"spark", "electrical", "electric", "switch", "socket",
	}},
	{CategoryPlumbing, []string{
		"faucet", "leak", "drip", "toilet", "sink", "shower", "drain",
		"pipe", "water", "clog", "flood", "garbage disposal",
	}},
	{CategorySecurity, []string{
		"lock", "key", "keycard", "card reader", "door won't", "deadbolt",
		"broken window", "window won't",
	}},
	{CategoryStructural, []string{
		"ceiling", "wall", "floor", "crack", "mold", "tile", "door frame",
		"window frame", "plaster",
	}},
}

// defaultWorkEstimates maps a category to the contractor-facing duration
// estimate used by scheduling when a case has no explicit one.
var defaultWorkEstimates = map[Category]string{
	CategoryHVAC:       "2-4 hours",
	CategoryElectrical: "1-3 hours",
	CategoryPlumbing:   "1-2 hours",
	CategoryStructural: "2-4 hours",
	CategorySecurity:   "1-2 hours",
	CategoryGeneral:    "1-2 hours",
}

// Classify picks the category from the issue text and the recorded hazard
// flags. Flags win over keywords; keyword groups are first-match-wins.
func Classify(issueText string, safetyFlags []string) Category {
	for _, fc := range flagCategories {
		for _, f := range safetyFlags {
			if f == fc.flag {
				return fc.category
			}
		}
	}

	lowered := strings.ToLower(issueText)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}

// WorkEstimate returns the default duration estimate for a category.
func WorkEstimate(c Category) string {
	if est, ok := defaultWorkEstimates[c]; ok {
		return est
	}
	return defaultWorkEstimates[CategoryGeneral]
}

// CaseNumber builds the human-facing identifier, e.g. L1-TANG-301-20260831.
// The leading digit is the urgency rank, so staff sorting by case number
// see emergencies first.
func CaseNumber(urgency triage.Urgency, buildingCode, roomNumber string, at time.Time) string {
	unit := strings.ToUpper(strings.TrimSpace(roomNumber))
	if unit == "" {
		unit = "NA"
	}
	return fmt.Sprintf("L%d-%s-%s-%s",
		urgency.Rank(),
		strings.ToUpper(buildingCode),
		unit,
		at.UTC().Format("20060102"))
}
