package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// SlotGrid is the spacing between candidate start times.
	SlotGrid = 30 * time.Minute
	// SlotBuffer is travel and wrap-up padding required after each job
	// before the window closes.
	SlotBuffer = 15 * time.Minute
	// DefaultHorizon bounds the search when the request has no deadline.
	DefaultHorizon = 14 * 24 * time.Hour

	criticalRewardWindow = 4 * time.Hour
	highRewardWindow     = 24 * time.Hour

	maxRecommendations = 5
)

// ContractorDay bundles everything needed to expand one contractor's slots.
type ContractorDay struct {
	Contractor Contractor
	Rules      []AvailabilityRule
	Bookings   []Booking
	Blackouts  []Blackout
}

// ExpandSlots derives candidate slots for one contractor across
// [from, until]. Start times step on the grid; a slot must finish, buffer
// included, inside the day's availability window. Slots overlapping a live
// booking are marked unavailable, as is every slot on a day whose booking
// count has reached the contractor's cap.
func ExpandSlots(cd ContractorDay, from, until time.Time, jobDuration time.Duration) []Slot {
	byWeekday := make(map[time.Weekday][]AvailabilityRule)
	for _, r := range cd.Rules {
		byWeekday[r.Weekday] = append(byWeekday[r.Weekday], r)
	}

	var slots []Slot
	for day := from.Truncate(24 * time.Hour); !day.After(until); day = day.Add(24 * time.Hour) {
		rules := byWeekday[day.Weekday()]
		if len(rules) == 0 || inBlackout(cd.Blackouts, day) {
			continue
		}

		dayBookings := bookingsOn(cd.Bookings, day)
		dayLoad := len(dayBookings)
		capReached := cd.Contractor.DailyJobCap > 0 && dayLoad >= cd.Contractor.DailyJobCap
		workload := workloadScore(dayLoad, cd.Contractor.DailyJobCap)

		for _, rule := range rules {
			windowStart := day.Add(time.Duration(rule.StartMinute) * time.Minute)
			windowEnd := day.Add(time.Duration(rule.EndMinute) * time.Minute)

			for start := windowStart; !start.Add(jobDuration + SlotBuffer).After(windowEnd); start = start.Add(SlotGrid) {
				if start.Before(from) || start.After(until) {
					continue
				}
				end := start.Add(jobDuration)

				conflicts := 0
				for _, b := range dayBookings {
					if b.Overlaps(start, end) {
						conflicts++
					}
				}

				slots = append(slots, Slot{
					ContractorID:      cd.Contractor.ID,
					Start:             start,
					End:               end,
					IsAvailable:       conflicts == 0 && !capReached,
					ConflictingCount:  conflicts,
					WorkloadScore:     workload,
					ResponseTimeHours: cd.Contractor.ResponseTimeHours,
				})
			}
		}
	}
	return slots
}

func inBlackout(blackouts []Blackout, day time.Time) bool {
	for _, b := range blackouts {
		if b.Covers(day) {
			return true
		}
	}
	return false
}

func bookingsOn(bookings []Booking, day time.Time) []Booking {
	next := day.Add(24 * time.Hour)
	var out []Booking
	for _, b := range bookings {
		if b.Status == BookingCancelled || b.Status == BookingExpired {
			continue
		}
		if b.StartTime.Before(next) && !b.EndTime.Before(day) {
			out = append(out, b)
		}
	}
	return out
}

func workloadScore(dayLoad, cap int) float64 {
	if cap <= 0 {
		cap = 4
	}
	score := float64(dayLoad) / float64(cap)
	if score > 1 {
		return 1
	}
	return score
}

// ScoreSlot computes the confidence for one available slot. The result is
// clamped to [0,1]; the reasoning string names the factors that moved it.
func ScoreSlot(slot Slot, urgency Urgency, preferred []Window, now time.Time) (float64, string) {
	confidence := 1.0
	var reasons []string

	hoursOut := slot.Start.Sub(now).Hours()
	if hoursOut < 0 {
		hoursOut = 0
	}

	switch urgency {
	case UrgencyCritical:
		if hoursOut <= criticalRewardWindow.Hours() {
			reasons = append(reasons, "within critical response window")
		} else {
			decay := math.Max(0.35, 1.0-(hoursOut-criticalRewardWindow.Hours())/48.0)
			confidence *= decay
			reasons = append(reasons, fmt.Sprintf("%.0fh out for a critical request", hoursOut))
		}
	case UrgencyHigh:
		if hoursOut <= highRewardWindow.Hours() {
			reasons = append(reasons, "within 24h for an urgent request")
		} else {
			decay := math.Max(0.5, 1.0-(hoursOut-highRewardWindow.Hours())/96.0)
			confidence *= decay
		}
	}

	if slot.WorkloadScore > 0 {
		confidence -= 0.15 * slot.WorkloadScore
		if slot.WorkloadScore >= 0.67 {
			reasons = append(reasons, "contractor heavily booked that day")
		}
	}

	// Slow responders lose a little across the board.
	rt := math.Min(slot.ResponseTimeHours, 48)
	confidence *= 1.0 - rt/200.0

	if slot.ConflictingCount == 0 {
		confidence += 0.05
	} else {
		confidence -= 0.05 * float64(slot.ConflictingCount)
		reasons = append(reasons, fmt.Sprintf("%d booking conflicts", slot.ConflictingCount))
	}

	for _, w := range preferred {
		if w.Contains(slot.Start, slot.End) {
			confidence += 0.10
			reasons = append(reasons, "inside preferred window")
			break
		}
	}

	hour := slot.Start.Hour()
	if hour >= 9 && hour < 17 {
		confidence += 0.05
	}

	confidence = math.Max(0, math.Min(1, confidence))

	if len(reasons) == 0 {
		reasons = append(reasons, "open slot with no conflicts")
	}
	return confidence, strings.Join(reasons, "; ")
}

// scoredSlot pairs a slot with its confidence for ranking.
type scoredSlot struct {
	Slot       Slot
	Confidence float64
	Reasoning  string
}

// Rank scores every available slot, sorts by confidence descending (ties
// broken by earlier start), and returns the top candidates with the first
// tagged primary.
func Rank(slots []Slot, urgency Urgency, preferred []Window, now time.Time, contractors map[string]Contractor) []Recommendation {
	scored := make([]scoredSlot, 0, len(slots))
	for _, s := range slots {
		if !s.IsAvailable {
			continue
		}
		conf, why := ScoreSlot(s, urgency, preferred, now)
		scored = append(scored, scoredSlot{Slot: s, Confidence: conf, Reasoning: why})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Confidence != scored[j].Confidence {
			return scored[i].Confidence > scored[j].Confidence
		}
		return scored[i].Slot.Start.Before(scored[j].Slot.Start)
	})

	if len(scored) > maxRecommendations {
		scored = scored[:maxRecommendations]
	}

	recs := make([]Recommendation, 0, len(scored))
	for i, sc := range scored {
		priority := PriorityAlternative
		if i == 0 {
			priority = PriorityPrimary
		}

		rec := Recommendation{
			ContractorID: sc.Slot.ContractorID,
			Start:        sc.Slot.Start,
			End:          sc.Slot.End,
			Confidence:   sc.Confidence,
			Reasoning:    sc.Reasoning,
			Priority:     priority,
			Workload:     ClassifyWorkload(sc.Slot.WorkloadScore),
		}
		if c, ok := contractors[sc.Slot.ContractorID.String()]; ok {
			rec.ContractorName = c.Name
		}

		// Critical dispatch needs a staff sign-off before the hold lapses.
		if urgency == UrgencyCritical {
			rec.ApprovalRequired = true
			deadline := sc.Slot.Start.Add(-1 * time.Hour)
			if deadline.Before(now) {
				deadline = now.Add(15 * time.Minute)
			}
			rec.ApprovalDeadline = &deadline
		}
		recs = append(recs, rec)
	}
	return recs
}

// OptimizationScore aggregates result quality: primary confidence weighs
// 60%, option variety 20% (saturating at five), and a 20% bonus when a
// critical request's primary slot lands inside the critical window.
func OptimizationScore(recs []Recommendation, urgency Urgency, now time.Time) float64 {
	if len(recs) == 0 {
		return 0
	}

	primary := recs[0]
	score := 0.6 * primary.Confidence

	variety := float64(len(recs)) / float64(maxRecommendations)
	if variety > 1 {
		variety = 1
	}
	score += 0.2 * variety

	if urgency == UrgencyCritical && primary.Start.Sub(now) <= criticalRewardWindow {
		score += 0.2
	}
	return math.Min(1, score)
}
