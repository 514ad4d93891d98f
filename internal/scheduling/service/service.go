// Package service runs the scheduling optimizer: given a case and its
// urgency, it expands contractor availability into concrete slots, scores
// them, and returns ranked appointment recommendations.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	casesdomain "dormdesk_backend/internal/cases/domain"
	"dormdesk_backend/internal/events"
	"dormdesk_backend/internal/scheduling/domain"
	"dormdesk_backend/internal/scheduling/repository"
	"dormdesk_backend/platform/apperr"
	"dormdesk_backend/platform/logger"
)

// CaseReader is the slice of the cases service the optimizer needs.
type CaseReader interface {
	GetCase(ctx context.Context, id, organizationID uuid.UUID) (*casesdomain.Case, error)
}

type Service struct {
	repo     repository.SchedulingRepository
	cases    CaseReader
	eventBus events.Bus
	log      *logger.Logger

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

func New(repo repository.SchedulingRepository, cases CaseReader, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		cases:    cases,
		eventBus: eventBus,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Request is one scheduling invocation. Urgency and duration default from
// the case when not supplied.
type Request struct {
	CaseID               uuid.UUID
	OrganizationID       uuid.UUID
	ContractorID         *uuid.UUID
	Urgency              domain.Urgency
	EstimatedDuration    string
	RequiresTenantAccess bool
	PreferredTimeSlots   []domain.Window
	MustCompleteBy       *time.Time
}

// Recommend produces ranked appointment candidates for a case. An empty
// result with a reason is a valid outcome; errors are reserved for broken
// inputs and infrastructure failures.
func (s *Service) Recommend(ctx context.Context, req Request) (*domain.Result, error) {
	c, err := s.cases.GetCase(ctx, req.CaseID, req.OrganizationID)
	if err != nil {
		return nil, err
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = domain.FromCaseUrgency(c.UrgencyLevel)
	}
	if !domain.ValidUrgency(urgency) {
		return nil, apperr.Validation("unknown urgency level")
	}

	estimate := req.EstimatedDuration
	if estimate == "" {
		estimate = c.EstimatedWork
	}
	jobDuration, parsed := ParseOrDefault(estimate)
	if !parsed {
		s.log.Warn("scheduling: unparseable work estimate, using default",
			"caseId", c.ID, "estimate", estimate)
	}

	candidates, err := s.selectCandidates(ctx, req, c, urgency)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		reason := "no active contractors cover " + string(c.Category)
		if urgency == domain.UrgencyCritical {
			reason += " with emergency availability"
		}
		return &domain.Result{Success: false, Recommendations: []domain.Recommendation{}, Reason: reason}, nil
	}

	now := s.now()
	until := now.Add(domain.DefaultHorizon)
	if req.MustCompleteBy != nil && req.MustCompleteBy.Before(until) {
		until = *req.MustCompleteBy
	}
	if !until.After(now) {
		return &domain.Result{
			Success:         false,
			Recommendations: []domain.Recommendation{},
			Reason:          "the completion deadline has already passed",
		}, nil
	}

	slots, err := s.expandAll(ctx, candidates, now, until, jobDuration)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to expand availability", err)
	}

	byID := make(map[string]domain.Contractor, len(candidates))
	for _, cand := range candidates {
		byID[cand.ID.String()] = *cand
	}

	recs := domain.Rank(slots, urgency, req.PreferredTimeSlots, now, byID)
	if len(recs) == 0 {
		return &domain.Result{
			Success:         false,
			Recommendations: []domain.Recommendation{},
			Reason:          "no open slots before the deadline; every candidate is booked, blacked out, or at capacity",
		}, nil
	}

	primary := recs[0]
	s.eventBus.Publish(ctx, events.AppointmentRecommended{
		BaseEvent:      events.NewBaseEvent(),
		CaseID:         c.ID,
		OrganizationID: c.OrganizationID,
		CaseNumber:     c.CaseNumber,
		ContractorID:   primary.ContractorID,
		ContractorName: primary.ContractorName,
		StartTime:      primary.Start,
		EndTime:        primary.End,
		Confidence:     primary.Confidence,
	})

	s.log.Info("scheduling: recommendations produced",
		"caseId", c.ID,
		"urgency", urgency,
		"options", len(recs),
		"primaryConfidence", primary.Confidence)

	return &domain.Result{
		Success:           true,
		Recommendations:   recs,
		OptimizationScore: domain.OptimizationScore(recs, urgency, now),
	}, nil
}

func (s *Service) selectCandidates(ctx context.Context, req Request, c *casesdomain.Case, urgency domain.Urgency) ([]*domain.Contractor, error) {
	if req.ContractorID != nil {
		contractor, err := s.repo.GetContractor(ctx, *req.ContractorID, req.OrganizationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperr.NotFound("contractor not found")
			}
			return nil, apperr.Wrap(apperr.KindInternal, "failed to load contractor", err)
		}
		if !contractor.IsActive {
			return nil, nil
		}
		return []*domain.Contractor{contractor}, nil
	}

	emergencyOnly := urgency == domain.UrgencyCritical
	candidates, err := s.repo.ListCandidates(ctx, req.OrganizationID, string(c.Category), emergencyOnly, 10)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to select candidates", err)
	}
	return candidates, nil
}

// expandAll runs per-contractor slot expansion in parallel and merges the
// results. Expansion is pure once the data is loaded; only the loads touch
// the database.
func (s *Service) expandAll(ctx context.Context, candidates []*domain.Contractor, from, until time.Time, jobDuration time.Duration) ([]domain.Slot, error) {
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	var (
		rules     map[uuid.UUID][]domain.AvailabilityRule
		bookings  map[uuid.UUID][]domain.Booking
		blackouts map[uuid.UUID][]domain.Blackout
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rules, err = s.repo.ListAvailabilityRules(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = s.repo.ListBookings(gctx, ids, from, until)
		return err
	})
	g.Go(func() error {
		var err error
		blackouts, err = s.repo.ListBlackouts(gctx, ids, from, until)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		slots []domain.Slot
	)
	expand, _ := errgroup.WithContext(ctx)
	for _, candidate := range candidates {
		cd := domain.ContractorDay{
			Contractor: *candidate,
			Rules:      rules[candidate.ID],
			Bookings:   bookings[candidate.ID],
			Blackouts:  blackouts[candidate.ID],
		}
		expand.Go(func() error {
			expanded := domain.ExpandSlots(cd, from, until, jobDuration)
			mu.Lock()
			slots = append(slots, expanded...)
			mu.Unlock()
			return nil
		})
	}
	if err := expand.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}

// Availability is a contractor's derived open slots over a window.
type Availability struct {
	Contractor domain.Contractor
	From       time.Time
	Until      time.Time
	Slots      []domain.Slot
}

const (
	defaultAvailabilityDays = 7
	maxAvailabilityDays     = 14
)

// ContractorAvailability expands a single contractor's open slots over the
// next days. Facilities staff use this to eyeball a schedule before asking
// for recommendations.
func (s *Service) ContractorAvailability(ctx context.Context, contractorID, organizationID uuid.UUID, days int) (*Availability, error) {
	if days <= 0 {
		days = defaultAvailabilityDays
	}
	if days > maxAvailabilityDays {
		days = maxAvailabilityDays
	}

	contractor, err := s.repo.GetContractor(ctx, contractorID, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("contractor not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load contractor", err)
	}

	from := s.now()
	until := from.Add(time.Duration(days) * 24 * time.Hour)
	slots, err := s.expandAll(ctx, []*domain.Contractor{contractor}, from, until, domain.DefaultJobDuration)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to expand availability", err)
	}

	open := slots[:0]
	for _, slot := range slots {
		if slot.IsAvailable {
			open = append(open, slot)
		}
	}

	return &Availability{
		Contractor: *contractor,
		From:       from,
		Until:      until,
		Slots:      open,
	}, nil
}

// ParseOrDefault wraps the estimate parser for callers that always need a
// duration.
func ParseOrDefault(estimate string) (time.Duration, bool) {
	return domain.ParseWorkEstimate(estimate)
}

// ExpireHolds releases stale appointment holds. Called from the worker.
func (s *Service) ExpireHolds(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.repo.ExpireHolds(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to expire holds", err)
	}
	if n > 0 {
		s.log.Info("scheduling: expired stale holds", "count", n)
	}
	return n, nil
}
