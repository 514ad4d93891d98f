// Package service orchestrates triage conversations: one turn in, one turn
// out. Deterministic analysis always runs before generation, and its results
// always win over whatever the generation service proposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dormdesk_backend/internal/events"
	"dormdesk_backend/internal/triage/agent"
	"dormdesk_backend/internal/triage/domain"
	"dormdesk_backend/internal/triage/location"
	"dormdesk_backend/internal/triage/repository"
	"dormdesk_backend/internal/triage/safety"
	"dormdesk_backend/internal/triage/scoring"
	"dormdesk_backend/internal/triage/textscan"
	"dormdesk_backend/platform/apperr"
	"dormdesk_backend/platform/logger"
)

// Generator produces one conversational turn. The generation client in the
// agent package implements it; tests substitute a fake.
type Generator interface {
	GenerateTurn(ctx context.Context, req agent.TurnRequest) (agent.Response, error)
}

// MaterializedCase is the outcome of turning a conversation into a case.
type MaterializedCase struct {
	CaseID     uuid.UUID
	CaseNumber string
	Linked     bool
}

// CaseMaterializer creates or links the maintenance case for a completed
// conversation. Implemented by the cases service.
type CaseMaterializer interface {
	Materialize(ctx context.Context, conv *domain.Conversation) (MaterializedCase, error)
}

const (
	// ProcessingErrorFlag is added when a turn could not be fully processed.
	ProcessingErrorFlag = "processing_error"

	fallbackMessage = "I'm having trouble processing your message right now, so I've flagged " +
		"your report for immediate staff review. Someone from the facilities office will " +
		"reach out to you shortly. If this is an emergency, call 911."

	emergencyContactPrompt = "So the facilities team can reach you, please share your name, " +
		"email, and a phone number we can call back."

	emergencyLocationPrompt = "Once you are safe, please tell me which building and room " +
		"this is happening in."
)

// Service is the conversation orchestrator.
type Service struct {
	repo      repository.ConversationRepository
	generator Generator
	cases     CaseMaterializer
	resolver  *location.Resolver
	eventBus  events.Bus
	log       *logger.Logger

	// Idempotency protection: tracks conversations with a turn in flight
	activeRuns map[string]bool
	runsMu     sync.Mutex
}

func New(repo repository.ConversationRepository, generator Generator, cases CaseMaterializer, resolver *location.Resolver, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		generator:  generator,
		cases:      cases,
		resolver:   resolver,
		eventBus:   eventBus,
		log:        log,
		activeRuns: make(map[string]bool),
	}
}

// TurnResult is what one processed turn returns to the transport layer.
type TurnResult struct {
	Conversation    *domain.Conversation
	AgentMessage    string
	NextAction      domain.NextAction
	Score           int
	IsReady         bool
	MissingElements []string
	CaseID          *uuid.UUID
	CaseNumber      string
}

// StartParams opens a conversation with its first student message.
type StartParams struct {
	StudentID      uuid.UUID
	OrganizationID uuid.UUID
	Message        string
	MediaRefs      []string
}

// StartConversation creates a conversation and processes the opening message.
func (s *Service) StartConversation(ctx context.Context, params StartParams) (*TurnResult, error) {
	if strings.TrimSpace(params.Message) == "" {
		return nil, apperr.Validation("message must not be empty")
	}

	conv := domain.NewConversation(params.StudentID, params.OrganizationID)
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to start conversation", err)
	}
	return s.runTurn(ctx, conv, params.Message, params.MediaRefs)
}

// ContinueConversation processes one more student message on an open
// conversation.
func (s *Service) ContinueConversation(ctx context.Context, conversationID, organizationID uuid.UUID, message string, mediaRefs []string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("message must not be empty")
	}

	conv, err := s.loadConversation(ctx, conversationID, organizationID)
	if err != nil {
		return nil, err
	}
	if conv.IsComplete {
		return nil, apperr.Conflict("conversation is already complete").
			WithDetails(map[string]any{"caseId": conv.CaseID})
	}
	return s.runTurn(ctx, conv, message, mediaRefs)
}

// GetConversation returns the conversation state.
func (s *Service) GetConversation(ctx context.Context, conversationID, organizationID uuid.UUID) (*domain.Conversation, error) {
	return s.loadConversation(ctx, conversationID, organizationID)
}

// ListConversations returns a student's recent conversations.
func (s *Service) ListConversations(ctx context.Context, studentID, organizationID uuid.UUID, limit int) ([]*domain.Conversation, error) {
	items, err := s.repo.ListByStudent(ctx, studentID, organizationID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list conversations", err)
	}
	return items, nil
}

func (s *Service) loadConversation(ctx context.Context, id, organizationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load conversation", err)
	}
	return conv, nil
}

// markRunning attempts to mark a conversation turn as active. Returns true
// if successfully marked, false if a turn is already in flight.
func (s *Service) markRunning(conversationID uuid.UUID) bool {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	key := conversationID.String()
	if s.activeRuns[key] {
		return false
	}
	s.activeRuns[key] = true
	return true
}

func (s *Service) markComplete(conversationID uuid.UUID) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	delete(s.activeRuns, conversationID.String())
}

// runTurn is the per-turn pipeline. Exactly one turn per conversation runs
// at a time; a concurrent second message is rejected rather than queued.
func (s *Service) runTurn(ctx context.Context, conv *domain.Conversation, message string, mediaRefs []string) (*TurnResult, error) {
	if !s.markRunning(conv.ID) {
		return nil, apperr.Conflict("a turn is already being processed for this conversation")
	}
	defer s.markComplete(conv.ID)

	log := s.log.WithContext(ctx)

	conv.AppendTurn(domain.Turn{
		Role:      domain.RoleStudent,
		Message:   message,
		MediaRefs: mediaRefs,
	})

	// Hazard detection runs before anything else and never waits on the
	// generation service.
	hazard := safety.Check(message)
	if hazard.IsEmergency {
		return s.emergencyTurn(ctx, conv, message, hazard, log)
	}
	if len(hazard.Flags) > 0 {
		conv.AddSafetyFlags(hazard.Flags)
		conv.RaiseUrgency(domain.UrgencyUrgent)
	}

	var (
		analysis textscan.Analysis
		match    location.Match
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		analysis = textscan.Analyze(message)
		return nil
	})
	g.Go(func() error {
		match = s.resolver.Resolve(message)
		return nil
	})
	_ = g.Wait()
	s.applyDeterministicFindings(conv, analysis, match)

	resp, err := s.generator.GenerateTurn(ctx, agent.TurnRequest{
		Conversation:     conv,
		Message:          message,
		KnownSlots:       conv.Slots,
		PendingQuestions: conv.PendingQuestions,
		ContextSummary:   contextSummary(analysis),
		LocationSummary:  locationSummary(match),
	})
	if err != nil {
		log.GenerationFailure(conv.ID.String(), err)
		return s.failedTurn(ctx, conv, log)
	}

	s.applyGeneration(conv, hazard, resp)

	score := scoring.Evaluate(scoring.Input{
		Slots:          conv.Slots,
		Location:       conv.Location,
		LatestMessage:  message,
		Context:        analysis,
		HistoryLength:  len(conv.History),
		QuestionsAsked: conv.AgentQuestionsAsked(),
	})

	agentMessage := resp.Message
	nextAction := resp.NextAction
	wantsComplete := nextAction == domain.ActionCompleteTriage ||
		(resp.IsComplete != nil && *resp.IsComplete)
	escalated := nextAction == domain.ActionEscalateImmediate ||
		conv.UrgencyLevel == domain.UrgencyEmergency

	result := &TurnResult{
		Conversation:    conv,
		Score:           score.Score,
		IsReady:         score.IsReady,
		MissingElements: score.MissingElements,
	}

	switch {
	case escalated:
		// The model flagged a danger the keyword table does not know about.
		// Same contract as the keyword path: escalate now, file the case as
		// soon as dispatch has a callback path and a location.
		conv.RaiseUrgency(domain.UrgencyEmergency)
		nextAction = domain.ActionEscalateImmediate
		s.eventBus.Publish(ctx, events.ConversationEscalated{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: conv.ID,
			OrganizationID: conv.OrganizationID,
			StudentID:      conv.StudentID,
			SafetyFlags:    conv.SafetyFlags,
			BuildingName:   conv.Slots.BuildingName,
			RoomNumber:     conv.Slots.RoomNumber,
			Message:        message,
		})
		switch {
		case !conv.Slots.HasContactInfo():
			agentMessage = agentMessage + "\n\n" + emergencyContactPrompt
		case conv.Slots.BuildingName == "":
			agentMessage = agentMessage + "\n\n" + emergencyLocationPrompt
		default:
			if conv.Slots.IssueSummary == "" {
				conv.Slots.IssueSummary = message
			}
			mat, err := s.cases.Materialize(ctx, conv)
			if err != nil {
				log.Error("triage: escalated case materialization failed",
					"conversationId", conv.ID, "error", err)
				conv.AddSafetyFlags([]string{ProcessingErrorFlag})
			} else {
				conv.MarkComplete(mat.CaseID)
				conv.PendingQuestions = nil
				result.CaseID = &mat.CaseID
				result.CaseNumber = mat.CaseNumber
				agentMessage = agentMessage + "\n\nYour report is logged as case " +
					mat.CaseNumber + " and the on-call team has been notified."
			}
		}

	case score.IsReady && wantsComplete:
		mat, err := s.cases.Materialize(ctx, conv)
		if err != nil {
			log.Error("triage: case materialization failed",
				"conversationId", conv.ID, "error", err)
			return s.failedTurn(ctx, conv, log)
		}
		conv.MarkComplete(mat.CaseID)
		conv.PendingQuestions = nil
		nextAction = domain.ActionCompleteTriage
		agentMessage = completionMessage(conv, mat)
		result.CaseID = &mat.CaseID
		result.CaseNumber = mat.CaseNumber

	case wantsComplete:
		// The model wanted to finish but the completeness check disagrees.
		// The check wins; ask for what is still missing.
		log.Info("triage: overriding premature completion",
			"conversationId", conv.ID,
			"score", score.Score,
			"missing", score.MissingElements)
		nextAction = domain.ActionAskFollowup
		agentMessage = score.FollowupMessage()
	}

	conv.AppendTurn(domain.Turn{
		Role:         domain.RoleAgent,
		Message:      agentMessage,
		UrgencyLevel: conv.UrgencyLevel,
		SafetyFlags:  resp.SafetyFlags,
	})

	if err := s.repo.Update(ctx, conv); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to save conversation", err)
	}

	if conv.IsComplete && result.CaseID != nil {
		s.eventBus.Publish(ctx, events.ConversationCompleted{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: conv.ID,
			OrganizationID: conv.OrganizationID,
			CaseID:         *result.CaseID,
		})
	}

	log.TriageTurn(conv.ID.String(), string(conv.Phase), string(nextAction),
		string(conv.UrgencyLevel), score.Score)

	result.AgentMessage = agentMessage
	result.NextAction = nextAction
	return result, nil
}

// emergencyTurn handles a hazard match: fixed safety script, immediate
// escalation, no generation call. The conversation stays open until contact
// details and a location exist, because dispatch needs a callback path.
func (s *Service) emergencyTurn(ctx context.Context, conv *domain.Conversation, message string, hazard safety.Result, log *logger.Logger) (*TurnResult, error) {
	conv.AddSafetyFlags(hazard.Flags)
	conv.RaiseUrgency(domain.UrgencyEmergency)

	// Deterministic extraction still runs so a message like "gas smell in
	// tang 301, call me at ..." fills slots on the same turn.
	analysis := textscan.Analyze(message)
	match := s.resolver.Resolve(message)
	s.applyDeterministicFindings(conv, analysis, match)
	if conv.Slots.IssueSummary == "" {
		conv.Slots.IssueSummary = message
	}

	s.eventBus.Publish(ctx, events.ConversationEscalated{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		OrganizationID: conv.OrganizationID,
		StudentID:      conv.StudentID,
		SafetyFlags:    conv.SafetyFlags,
		BuildingName:   conv.Slots.BuildingName,
		RoomNumber:     conv.Slots.RoomNumber,
		Message:        message,
	})

	agentMessage := hazard.EmergencyMessage
	var (
		caseID     *uuid.UUID
		caseNumber string
	)

	switch {
	case !conv.Slots.HasContactInfo():
		agentMessage = agentMessage + "\n\n" + emergencyContactPrompt
	case conv.Slots.BuildingName == "":
		agentMessage = agentMessage + "\n\n" + emergencyLocationPrompt
	default:
		mat, err := s.cases.Materialize(ctx, conv)
		if err != nil {
			log.Error("triage: emergency case materialization failed",
				"conversationId", conv.ID, "error", err)
			conv.AddSafetyFlags([]string{ProcessingErrorFlag})
		} else {
			conv.MarkComplete(mat.CaseID)
			conv.PendingQuestions = nil
			caseID = &mat.CaseID
			caseNumber = mat.CaseNumber
			agentMessage = agentMessage + "\n\nYour report is logged as case " +
				mat.CaseNumber + " and the on-call team has been notified."
		}
	}

	conv.AppendTurn(domain.Turn{
		Role:         domain.RoleAgent,
		Message:      agentMessage,
		UrgencyLevel: domain.UrgencyEmergency,
		SafetyFlags:  hazard.Flags,
	})

	if err := s.repo.Update(ctx, conv); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to save conversation", err)
	}

	if caseID != nil {
		s.eventBus.Publish(ctx, events.ConversationCompleted{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: conv.ID,
			OrganizationID: conv.OrganizationID,
			CaseID:         *caseID,
		})
	}

	log.TriageTurn(conv.ID.String(), string(conv.Phase),
		string(domain.ActionEscalateImmediate), string(conv.UrgencyLevel), 0)

	return &TurnResult{
		Conversation: conv,
		AgentMessage: agentMessage,
		NextAction:   domain.ActionEscalateImmediate,
		CaseID:       caseID,
		CaseNumber:   caseNumber,
	}, nil
}

// failedTurn is the fixed recovery when generation or materialization fails
// mid-turn: flag the conversation, raise urgency, and hand off to staff.
func (s *Service) failedTurn(ctx context.Context, conv *domain.Conversation, log *logger.Logger) (*TurnResult, error) {
	conv.AddSafetyFlags([]string{ProcessingErrorFlag})
	conv.RaiseUrgency(domain.UrgencyUrgent)
	conv.AppendTurn(domain.Turn{
		Role:         domain.RoleAgent,
		Message:      fallbackMessage,
		UrgencyLevel: conv.UrgencyLevel,
		SafetyFlags:  []string{ProcessingErrorFlag},
	})

	if err := s.repo.Update(ctx, conv); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to save conversation", err)
	}

	log.TriageTurn(conv.ID.String(), string(conv.Phase),
		string(domain.ActionEscalateImmediate), string(conv.UrgencyLevel), 0)

	return &TurnResult{
		Conversation: conv,
		AgentMessage: fallbackMessage,
		NextAction:   domain.ActionEscalateImmediate,
	}, nil
}

// applyDeterministicFindings merges what the analyzers observed into
// conversation state. These values are written before generation runs, so
// the model sees them as known facts.
func (s *Service) applyDeterministicFindings(conv *domain.Conversation, analysis textscan.Analysis, match location.Match) {
	conv.Slots = domain.MergeSlots(conv.Slots, analysis.InferredInfo)
	if match.Confidence != location.ConfidenceLow {
		conv.Slots = domain.MergeSlots(conv.Slots, domain.Slots{
			BuildingName: match.BuildingName,
			RoomNumber:   match.RoomNumber,
		})
	}
	conv.RaiseUrgency(analysis.InferredUrgency)
	conv.SyncLocation()
}

// applyGeneration merges the model's proposal under the deterministic
// rules: sticky slots, additive flags, monotonic urgency.
func (s *Service) applyGeneration(conv *domain.Conversation, hazard safety.Result, resp agent.Response) {
	if resp.Slots != nil {
		conv.Slots = domain.MergeSlots(conv.Slots, *resp.Slots)
	}
	if resp.Location != nil {
		proposed := domain.Slots{RoomNumber: resp.Location.RoomNumber}
		// Only accept building names the alias table recognizes.
		if b, ok := s.resolver.Canonicalize(resp.Location.BuildingName); ok {
			proposed.BuildingName = b.Name
		}
		conv.Slots = domain.MergeSlots(conv.Slots, proposed)
	}
	if resp.MediaRequest != nil && resp.MediaRequest.Requested {
		conv.Slots.PhotoRequested = true
	}

	conv.AddSafetyFlags(resp.SafetyFlags)
	conv.AddSafetyFlags(hazard.Flags)
	conv.RaiseUrgency(resp.UrgencyLevel)
	conv.PendingQuestions = mergeQuestions(conv.PendingQuestions, resp.QueuedQuestions)
	conv.SyncLocation()
}

func mergeQuestions(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, q := range existing {
		key := strings.ToLower(strings.TrimSpace(q))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, q)
	}
	for _, q := range incoming {
		key := strings.ToLower(strings.TrimSpace(q))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, q)
	}
	return merged
}

func completionMessage(conv *domain.Conversation, mat MaterializedCase) string {
	name := conv.Slots.StudentName
	if name == "" {
		name = "there"
	}
	if mat.Linked {
		return fmt.Sprintf("Thanks %s. This looks like an issue we already have on file, "+
			"so I've added your report to case %s. The facilities team will keep you "+
			"updated at %s.", name, mat.CaseNumber, conv.Slots.StudentEmail)
	}
	return fmt.Sprintf("Thanks %s, that's everything I need. Your request is logged as "+
		"case %s and the facilities team will follow up at %s.",
		name, mat.CaseNumber, conv.Slots.StudentEmail)
}

func contextSummary(a textscan.Analysis) string {
	parts := []string{"emotional context: " + string(a.EmotionalContext)}
	if len(a.TimelineIndicators) > 0 {
		parts = append(parts, "timeline: "+strings.Join(a.TimelineIndicators, "; "))
	}
	if len(a.SeverityIndicators) > 0 {
		parts = append(parts, "severity: "+strings.Join(a.SeverityIndicators, "; "))
	}
	return strings.Join(parts, ", ")
}

func locationSummary(m location.Match) string {
	if m.Confidence == location.ConfidenceLow {
		return ""
	}
	if m.RoomNumber != "" {
		return fmt.Sprintf("%s room %s (%s confidence)", m.BuildingName, m.RoomNumber, m.Confidence)
	}
	return fmt.Sprintf("%s (%s confidence)", m.BuildingName, m.Confidence)
}
