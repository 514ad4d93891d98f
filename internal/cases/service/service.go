// Package service materializes completed triage conversations into
// maintenance cases and serves the staff-facing case views.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"dormdesk_backend/internal/cases/domain"
	"dormdesk_backend/internal/cases/repository"
	"dormdesk_backend/internal/events"
	triagedomain "dormdesk_backend/internal/triage/domain"
	"dormdesk_backend/internal/triage/location"
	triagesvc "dormdesk_backend/internal/triage/service"
	"dormdesk_backend/platform/apperr"
	"dormdesk_backend/platform/logger"
)

type Service struct {
	repo     repository.CaseRepository
	resolver *location.Resolver
	eventBus events.Bus
	log      *logger.Logger
}

func New(repo repository.CaseRepository, resolver *location.Resolver, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, eventBus: eventBus, log: log}
}

// Materialize turns a triaged conversation into a case, or attaches it to
// an open case describing the same issue. Safe to call twice for the same
// conversation; the second call returns the original result.
func (s *Service) Materialize(ctx context.Context, conv *triagedomain.Conversation) (triagesvc.MaterializedCase, error) {
	if existing, err := s.repo.GetByConversation(ctx, conv.ID); err == nil {
		return triagesvc.MaterializedCase{
			CaseID:     existing.ID,
			CaseNumber: existing.CaseNumber,
			Linked:     true,
		}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return triagesvc.MaterializedCase{}, apperr.Wrap(apperr.KindInternal, "failed to check case linkage", err)
	}

	building, ok := s.resolver.Canonicalize(conv.Slots.BuildingName)
	if !ok {
		return triagesvc.MaterializedCase{}, apperr.Unroutable(
			"building " + strings.TrimSpace(conv.Slots.BuildingName) + " is not in the housing directory")
	}

	category := domain.Classify(conv.Slots.IssueSummary+" "+conv.Slots.Severity, conv.SafetyFlags)

	if mat, ok, err := s.attachToOpenCase(ctx, conv, building.Code, category); err != nil {
		return triagesvc.MaterializedCase{}, err
	} else if ok {
		return mat, nil
	}

	return s.createCase(ctx, conv, building, category)
}

// attachToOpenCase looks for an unresolved case in the same room and
// category inside the dedup window whose summary describes the same issue.
func (s *Service) attachToOpenCase(ctx context.Context, conv *triagedomain.Conversation, buildingCode string, category domain.Category) (triagesvc.MaterializedCase, bool, error) {
	since := time.Now().UTC().Add(-domain.DedupWindow)
	candidates, err := s.repo.FindRecentOpen(ctx, conv.OrganizationID, buildingCode, conv.Slots.RoomNumber, category, since)
	if err != nil {
		return triagesvc.MaterializedCase{}, false, apperr.Wrap(apperr.KindInternal, "failed to scan for duplicate cases", err)
	}

	for _, candidate := range candidates {
		if !domain.SameIssue(conv.Slots.IssueSummary, candidate.IssueSummary) {
			continue
		}

		if err := s.repo.LinkConversation(ctx, candidate.ID, conv.ID); err != nil {
			if errors.Is(err, repository.ErrAlreadyLinked) {
				break
			}
			return triagesvc.MaterializedCase{}, false, apperr.Wrap(apperr.KindInternal, "failed to link duplicate report", err)
		}

		s.log.Info("cases: duplicate report attached",
			"caseId", candidate.ID,
			"caseNumber", candidate.CaseNumber,
			"conversationId", conv.ID)

		s.eventBus.Publish(ctx, events.CaseLinked{
			BaseEvent:      events.NewBaseEvent(),
			CaseID:         candidate.ID,
			ConversationID: conv.ID,
			OrganizationID: conv.OrganizationID,
			CaseNumber:     candidate.CaseNumber,
			StudentName:    conv.Slots.StudentName,
			StudentEmail:   conv.Slots.StudentEmail,
		})

		return triagesvc.MaterializedCase{
			CaseID:     candidate.ID,
			CaseNumber: candidate.CaseNumber,
			Linked:     true,
		}, true, nil
	}
	return triagesvc.MaterializedCase{}, false, nil
}

func (s *Service) createCase(ctx context.Context, conv *triagedomain.Conversation, building location.Building, category domain.Category) (triagesvc.MaterializedCase, error) {
	now := time.Now().UTC()
	c := &domain.Case{
		ID:             uuid.New(),
		OrganizationID: conv.OrganizationID,
		CaseNumber:     domain.CaseNumber(conv.UrgencyLevel, building.Code, conv.Slots.RoomNumber, now),
		Category:       category,
		UrgencyLevel:   conv.UrgencyLevel,
		Status:         domain.StatusOpen,
		BuildingName:   building.Name,
		BuildingCode:   building.Code,
		RoomNumber:     conv.Slots.RoomNumber,
		IssueSummary:   conv.Slots.IssueSummary,
		Timeline:       conv.Slots.Timeline,
		Severity:       conv.Slots.Severity,
		StudentName:    conv.Slots.StudentName,
		StudentEmail:   conv.Slots.StudentEmail,
		StudentPhone:   conv.Slots.StudentPhone,
		SafetyFlags:    conv.SafetyFlags,
		EstimatedWork:  domain.WorkEstimate(category),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, c, conv.ID); err != nil {
		// A concurrent turn for this conversation won the race; return its case.
		if errors.Is(err, repository.ErrAlreadyLinked) {
			existing, getErr := s.repo.GetByConversation(ctx, conv.ID)
			if getErr != nil {
				return triagesvc.MaterializedCase{}, apperr.Wrap(apperr.KindInternal, "failed to load raced case", getErr)
			}
			return triagesvc.MaterializedCase{
				CaseID:     existing.ID,
				CaseNumber: existing.CaseNumber,
				Linked:     true,
			}, nil
		}
		return triagesvc.MaterializedCase{}, apperr.Wrap(apperr.KindInternal, "failed to create case", err)
	}

	s.log.Info("cases: case created",
		"caseId", c.ID,
		"caseNumber", c.CaseNumber,
		"category", c.Category,
		"urgency", c.UrgencyLevel)

	s.eventBus.Publish(ctx, events.CaseCreated{
		BaseEvent:      events.NewBaseEvent(),
		CaseID:         c.ID,
		ConversationID: conv.ID,
		OrganizationID: c.OrganizationID,
		CaseNumber:     c.CaseNumber,
		Category:       string(c.Category),
		UrgencyLevel:   string(c.UrgencyLevel),
		BuildingName:   c.BuildingName,
		RoomNumber:     c.RoomNumber,
		StudentName:    c.StudentName,
		StudentEmail:   c.StudentEmail,
		EstimatedWork:  c.EstimatedWork,
	})

	return triagesvc.MaterializedCase{CaseID: c.ID, CaseNumber: c.CaseNumber}, nil
}

// GetCase returns one case.
func (s *Service) GetCase(ctx context.Context, id, organizationID uuid.UUID) (*domain.Case, error) {
	c, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("case not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load case", err)
	}
	return c, nil
}

// ListCases returns cases for the organization, emergencies first.
func (s *Service) ListCases(ctx context.Context, organizationID uuid.UUID, filter repository.ListFilter) ([]*domain.Case, error) {
	items, err := s.repo.List(ctx, organizationID, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list cases", err)
	}
	return items, nil
}

// UpdateStatus moves a case through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id, organizationID uuid.UUID, status domain.Status) error {
	switch status {
	case domain.StatusOpen, domain.StatusScheduled, domain.StatusInProgress,
		domain.StatusResolved, domain.StatusClosed:
	default:
		return apperr.Validation("unknown case status")
	}

	if err := s.repo.UpdateStatus(ctx, id, organizationID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("case not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to update case status", err)
	}
	return nil
}
