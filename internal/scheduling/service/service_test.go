package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	casesdomain "dormdesk_backend/internal/cases/domain"
	"dormdesk_backend/internal/scheduling/domain"
	"dormdesk_backend/internal/scheduling/repository"
	triagedomain "dormdesk_backend/internal/triage/domain"
	"dormdesk_backend/platform/events"
	"dormdesk_backend/platform/logger"
)

type fakeRepo struct {
	contractors map[uuid.UUID]*domain.Contractor
	rules       map[uuid.UUID][]domain.AvailabilityRule
	bookings    map[uuid.UUID][]domain.Booking
	blackouts   map[uuid.UUID][]domain.Blackout
	expired     int64
}

func (f *fakeRepo) GetContractor(_ context.Context, id, _ uuid.UUID) (*domain.Contractor, error) {
	c, ok := f.contractors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) ListCandidates(_ context.Context, _ uuid.UUID, category string, emergencyOnly bool, _ int) ([]*domain.Contractor, error) {
	var out []*domain.Contractor
	for _, c := range f.contractors {
		if !c.IsActive {
			continue
		}
		if emergencyOnly && !c.EmergencyAvailable {
			continue
		}
		for _, cat := range c.Categories {
			if cat == category {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAvailabilityRules(_ context.Context, _ []uuid.UUID) (map[uuid.UUID][]domain.AvailabilityRule, error) {
	return f.rules, nil
}

func (f *fakeRepo) ListBookings(_ context.Context, _ []uuid.UUID, _, _ time.Time) (map[uuid.UUID][]domain.Booking, error) {
	return f.bookings, nil
}

func (f *fakeRepo) ListBlackouts(_ context.Context, _ []uuid.UUID, _, _ time.Time) (map[uuid.UUID][]domain.Blackout, error) {
	return f.blackouts, nil
}

func (f *fakeRepo) ExpireHolds(_ context.Context, _ time.Time) (int64, error) {
	return f.expired, nil
}

type fakeCases struct {
	c *casesdomain.Case
}

func (f *fakeCases) GetCase(_ context.Context, _, _ uuid.UUID) (*casesdomain.Case, error) {
	return f.c, nil
}

func newTestService(repo *fakeRepo, c *casesdomain.Case, now time.Time) *Service {
	log := logger.New("development")
	svc := New(repo, &fakeCases{c: c}, events.NewInMemoryBus(log), log)
	svc.now = func() time.Time { return now }
	return svc
}

func plumbingCase(urgency triagedomain.Urgency) *casesdomain.Case {
	return &casesdomain.Case{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		CaseNumber:     "L1-TANG-301-20260831",
		Category:       casesdomain.CategoryPlumbing,
		UrgencyLevel:   urgency,
		Status:         casesdomain.StatusOpen,
		EstimatedWork:  "1-2 hours",
	}
}

// monday 08:00 UTC, 2026-08-31.
func mondayMorning() time.Time {
	return time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
}

func allWeekRules(contractorID uuid.UUID, startHour, endHour int) []domain.AvailabilityRule {
	var rules []domain.AvailabilityRule
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		rules = append(rules, domain.AvailabilityRule{
			ID:           uuid.New(),
			ContractorID: contractorID,
			Weekday:      wd,
			StartMinute:  startHour * 60,
			EndMinute:    endHour * 60,
		})
	}
	return rules
}

func emergencyPlumber() *domain.Contractor {
	return &domain.Contractor{
		ID:                 uuid.New(),
		Name:               "Campus Plumbing Co",
		Categories:         []string{"plumbing"},
		Rating:             4.8,
		IsActive:           true,
		IsPreferred:        true,
		EmergencyAvailable: true,
		ResponseTimeHours:  2,
		DailyJobCap:        4,
	}
}

func TestRecommend_CriticalPrefersSoonestSlot(t *testing.T) {
	now := mondayMorning()
	plumber := emergencyPlumber()
	repo := &fakeRepo{
		contractors: map[uuid.UUID]*domain.Contractor{plumber.ID: plumber},
		// Open 10:00-17:00 daily: the first slot today starts two hours out.
		rules: map[uuid.UUID][]domain.AvailabilityRule{
			plumber.ID: allWeekRules(plumber.ID, 10, 17),
		},
	}
	c := plumbingCase(triagedomain.UrgencyEmergency)
	svc := newTestService(repo, c, now)

	res, err := svc.Recommend(context.Background(), Request{
		CaseID:         c.ID,
		OrganizationID: c.OrganizationID,
	})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, reason=%q", res.Reason)
	}
	if len(res.Recommendations) == 0 {
		t.Fatal("no recommendations")
	}

	primary := res.Recommendations[0]
	if primary.Priority != domain.PriorityPrimary {
		t.Fatalf("first recommendation priority = %q", primary.Priority)
	}
	if !primary.Start.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("primary start = %v, want the 2h slot", primary.Start)
	}
	if !primary.ApprovalRequired {
		t.Fatal("critical primary should require approval")
	}
	if res.OptimizationScore <= 0.6 {
		t.Fatalf("optimization score = %.3f, expected urgency bonus", res.OptimizationScore)
	}
	for _, r := range res.Recommendations[1:] {
		if r.Confidence > primary.Confidence {
			t.Fatalf("alternative %.3f outranks primary %.3f", r.Confidence, primary.Confidence)
		}
	}
}

func TestRecommend_NoContractorsForCategory(t *testing.T) {
	now := mondayMorning()
	repo := &fakeRepo{contractors: map[uuid.UUID]*domain.Contractor{}}
	c := plumbingCase(triagedomain.UrgencyNormal)
	svc := newTestService(repo, c, now)

	res, err := svc.Recommend(context.Background(), Request{CaseID: c.ID, OrganizationID: c.OrganizationID})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected unsuccessful result")
	}
	if res.Reason == "" {
		t.Fatal("unsuccessful result must carry a reason")
	}
}

func TestRecommend_CriticalExcludesNonEmergencyContractors(t *testing.T) {
	now := mondayMorning()
	plumber := emergencyPlumber()
	plumber.EmergencyAvailable = false
	repo := &fakeRepo{
		contractors: map[uuid.UUID]*domain.Contractor{plumber.ID: plumber},
		rules:       map[uuid.UUID][]domain.AvailabilityRule{plumber.ID: allWeekRules(plumber.ID, 9, 17)},
	}
	c := plumbingCase(triagedomain.UrgencyEmergency)
	svc := newTestService(repo, c, now)

	res, err := svc.Recommend(context.Background(), Request{CaseID: c.ID, OrganizationID: c.OrganizationID})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if res.Success {
		t.Fatal("critical request must not use non-emergency contractors")
	}
}

func TestRecommend_FullyBookedReturnsReason(t *testing.T) {
	now := mondayMorning()
	plumber := emergencyPlumber()
	plumber.DailyJobCap = 1
	repo := &fakeRepo{
		contractors: map[uuid.UUID]*domain.Contractor{plumber.ID: plumber},
		rules:       map[uuid.UUID][]domain.AvailabilityRule{plumber.ID: allWeekRules(plumber.ID, 9, 17)},
		bookings: map[uuid.UUID][]domain.Booking{
			plumber.ID: fullFortnight(plumber.ID, now),
		},
	}
	c := plumbingCase(triagedomain.UrgencyNormal)
	svc := newTestService(repo, c, now)

	res, err := svc.Recommend(context.Background(), Request{CaseID: c.ID, OrganizationID: c.OrganizationID})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if res.Success || len(res.Recommendations) != 0 {
		t.Fatalf("expected empty unsuccessful result, got %+v", res)
	}
	if res.Reason == "" {
		t.Fatal("reason missing")
	}
}

// fullFortnight books one job every day, which hits a daily cap of one.
func fullFortnight(contractorID uuid.UUID, from time.Time) []domain.Booking {
	var out []domain.Booking
	day := from.Truncate(24 * time.Hour)
	for i := 0; i < 16; i++ {
		start := day.Add(time.Duration(i)*24*time.Hour + 10*time.Hour)
		out = append(out, domain.Booking{
			ID:           uuid.New(),
			ContractorID: contractorID,
			StartTime:    start,
			EndTime:      start.Add(time.Hour),
			Status:       domain.BookingConfirmed,
		})
	}
	return out
}

func TestRecommend_DeadlineBoundsHorizon(t *testing.T) {
	now := mondayMorning()
	plumber := emergencyPlumber()
	// Only available on Fridays; deadline is Wednesday.
	repo := &fakeRepo{
		contractors: map[uuid.UUID]*domain.Contractor{plumber.ID: plumber},
		rules: map[uuid.UUID][]domain.AvailabilityRule{
			plumber.ID: {{
				ID:           uuid.New(),
				ContractorID: plumber.ID,
				Weekday:      time.Friday,
				StartMinute:  9 * 60,
				EndMinute:    17 * 60,
			}},
		},
	}
	c := plumbingCase(triagedomain.UrgencyNormal)
	svc := newTestService(repo, c, now)

	deadline := now.Add(48 * time.Hour)
	res, err := svc.Recommend(context.Background(), Request{
		CaseID:         c.ID,
		OrganizationID: c.OrganizationID,
		MustCompleteBy: &deadline,
	})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if res.Success {
		t.Fatal("no slot exists before the deadline; result should be unsuccessful")
	}
}

func TestContractorAvailability_ReturnsOpenSlotsOnly(t *testing.T) {
	now := mondayMorning()
	plumber := emergencyPlumber()
	booked := now.Add(26 * time.Hour)
	repo := &fakeRepo{
		contractors: map[uuid.UUID]*domain.Contractor{plumber.ID: plumber},
		rules:       map[uuid.UUID][]domain.AvailabilityRule{plumber.ID: allWeekRules(plumber.ID, 9, 17)},
		bookings: map[uuid.UUID][]domain.Booking{
			plumber.ID: {{
				ID:           uuid.New(),
				ContractorID: plumber.ID,
				StartTime:    booked,
				EndTime:      booked.Add(2 * time.Hour),
				Status:       domain.BookingConfirmed,
			}},
		},
	}
	svc := newTestService(repo, plumbingCase(triagedomain.UrgencyNormal), now)

	availability, err := svc.ContractorAvailability(context.Background(), plumber.ID, uuid.New(), 3)
	if err != nil {
		t.Fatalf("ContractorAvailability returned error: %v", err)
	}
	if availability.Contractor.ID != plumber.ID {
		t.Fatalf("contractor = %v, want %v", availability.Contractor.ID, plumber.ID)
	}
	if len(availability.Slots) == 0 {
		t.Fatal("expected open slots inside the weekly rules")
	}
	for _, slot := range availability.Slots {
		if !slot.IsAvailable {
			t.Fatalf("slot %v-%v is not available", slot.Start, slot.End)
		}
		if slot.Start.Before(booked.Add(2*time.Hour)) && booked.Before(slot.End) {
			t.Fatalf("slot %v-%v overlaps the existing booking", slot.Start, slot.End)
		}
		if slot.End.After(availability.Until) {
			t.Fatalf("slot %v ends past the window %v", slot.End, availability.Until)
		}
	}
}

func TestContractorAvailability_UnknownContractor(t *testing.T) {
	now := mondayMorning()
	repo := &fakeRepo{contractors: map[uuid.UUID]*domain.Contractor{}}
	svc := newTestService(repo, plumbingCase(triagedomain.UrgencyNormal), now)

	_, err := svc.ContractorAvailability(context.Background(), uuid.New(), uuid.New(), 7)
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestRecommend_PreferredWindowWins(t *testing.T) {
	now := mondayMorning()
	plumber := emergencyPlumber()
	// A slower responder keeps the base score under the clamp so the
	// preferred-window bonus can separate candidates.
	plumber.ResponseTimeHours = 24
	repo := &fakeRepo{
		contractors: map[uuid.UUID]*domain.Contractor{plumber.ID: plumber},
		rules:       map[uuid.UUID][]domain.AvailabilityRule{plumber.ID: allWeekRules(plumber.ID, 9, 17)},
	}
	c := plumbingCase(triagedomain.UrgencyLow)
	svc := newTestService(repo, c, now)

	// Prefer tomorrow afternoon.
	window := domain.Window{
		Start: now.Add(24 * time.Hour).Add(5 * time.Hour),
		End:   now.Add(24 * time.Hour).Add(9 * time.Hour),
	}
	res, err := svc.Recommend(context.Background(), Request{
		CaseID:             c.ID,
		OrganizationID:     c.OrganizationID,
		PreferredTimeSlots: []domain.Window{window},
	})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, reason=%q", res.Reason)
	}
	primary := res.Recommendations[0]
	if !window.Contains(primary.Start, primary.End) {
		t.Fatalf("primary %v-%v not inside preferred window", primary.Start, primary.End)
	}
}
