package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"dormdesk_backend/internal/triage/agent"
	"dormdesk_backend/internal/triage/domain"
	"dormdesk_backend/internal/triage/location"
	"dormdesk_backend/internal/triage/repository"
	"dormdesk_backend/platform/apperr"
	"dormdesk_backend/platform/events"
	"dormdesk_backend/platform/logger"
)

type memRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Conversation
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[uuid.UUID]*domain.Conversation)}
}

func (m *memRepo) Create(_ context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[conv.ID] = conv
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id, _ uuid.UUID) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return conv, nil
}

func (m *memRepo) Update(_ context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[conv.ID]; !ok {
		return repository.ErrNotFound
	}
	m.items[conv.ID] = conv
	return nil
}

func (m *memRepo) ListByStudent(_ context.Context, studentID, _ uuid.UUID, _ int) ([]*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Conversation
	for _, c := range m.items {
		if c.StudentID == studentID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	resp  agent.Response
	queue []agent.Response
	err   error
	calls int
}

func (f *fakeGenerator) GenerateTurn(_ context.Context, _ agent.TurnRequest) (agent.Response, error) {
	f.calls++
	if f.err != nil {
		return agent.Response{}, f.err
	}
	if len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		return next, nil
	}
	return f.resp, nil
}

type fakeMaterializer struct {
	result MaterializedCase
	err    error
	calls  int
}

func (f *fakeMaterializer) Materialize(_ context.Context, _ *domain.Conversation) (MaterializedCase, error) {
	f.calls++
	if f.err != nil {
		return MaterializedCase{}, f.err
	}
	return f.result, nil
}

func newTestService(gen *fakeGenerator, mat *fakeMaterializer) (*Service, *memRepo) {
	log := logger.New("development")
	repo := newMemRepo()
	svc := New(repo, gen, mat, location.Default(), events.NewInMemoryBus(log), log)
	return svc, repo
}

func followupResponse() agent.Response {
	return agent.Response{
		Message:      "Which room are you in?",
		UrgencyLevel: domain.UrgencyNormal,
		SafetyFlags:  []string{},
		NextAction:   domain.ActionAskFollowup,
	}
}

func TestStartConversation_EmptyMessageRejected(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{resp: followupResponse()}, &fakeMaterializer{})
	_, err := svc.StartConversation(context.Background(), StartParams{
		StudentID:      uuid.New(),
		OrganizationID: uuid.New(),
		Message:        "   ",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGasLeak_SkipsGenerationAndEscalates(t *testing.T) {
	gen := &fakeGenerator{resp: followupResponse()}
	svc, _ := newTestService(gen, &fakeMaterializer{})

	res, err := svc.StartConversation(context.Background(), StartParams{
		StudentID:      uuid.New(),
		OrganizationID: uuid.New(),
		Message:        "I smell gas in my room",
	})
	if err != nil {
		t.Fatalf("StartConversation returned error: %v", err)
	}

	if gen.calls != 0 {
		t.Fatalf("generation was called %d times on an emergency turn", gen.calls)
	}
	if res.NextAction != domain.ActionEscalateImmediate {
		t.Fatalf("nextAction = %q, want escalate_immediate", res.NextAction)
	}
	if res.Conversation.UrgencyLevel != domain.UrgencyEmergency {
		t.Fatalf("urgency = %q, want emergency", res.Conversation.UrgencyLevel)
	}
	if !res.Conversation.HasSafetyFlag("gas_leak") {
		t.Fatalf("gas_leak flag missing: %v", res.Conversation.SafetyFlags)
	}
	if !strings.Contains(res.AgentMessage, "911") {
		t.Fatalf("emergency reply missing 911 guidance: %q", res.AgentMessage)
	}
	// No contact info yet, so no case and the conversation stays open.
	if res.CaseID != nil || res.Conversation.IsComplete {
		t.Fatal("emergency without contact info must not materialize a case")
	}
	if !strings.Contains(res.AgentMessage, "phone number") {
		t.Fatalf("emergency reply should ask for a callback number: %q", res.AgentMessage)
	}
}

func TestEmergency_MaterializesOnceContactKnown(t *testing.T) {
	gen := &fakeGenerator{resp: followupResponse()}
	caseID := uuid.New()
	mat := &fakeMaterializer{result: MaterializedCase{CaseID: caseID, CaseNumber: "L1-TANG-301-20260831"}}
	svc, _ := newTestService(gen, mat)

	ctx := context.Background()
	res, err := svc.StartConversation(ctx, StartParams{
		StudentID:      uuid.New(),
		OrganizationID: uuid.New(),
		Message:        "strong gas smell in tang hall room 301",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.CaseID != nil {
		t.Fatal("no case expected before contact info")
	}

	conv := res.Conversation
	// Second turn supplies contact details; still an emergency because the
	// message repeats the hazard wording.
	res, err = svc.ContinueConversation(ctx, conv.ID, conv.OrganizationID,
		"it still smells like gas. I'm Alex Kim, alex@school.edu, 555-0142", nil)
	if err != nil {
		t.Fatalf("continue: %v", err)
	}

	if mat.calls != 1 {
		t.Fatalf("materializer called %d times, want 1", mat.calls)
	}
	if res.CaseID == nil || *res.CaseID != caseID {
		t.Fatalf("case not linked: %+v", res)
	}
	if !res.Conversation.IsComplete {
		t.Fatal("conversation should be complete after emergency materialization")
	}
	if !strings.Contains(res.AgentMessage, "L1-TANG-301-20260831") {
		t.Fatalf("reply missing case number: %q", res.AgentMessage)
	}
}

func TestModelEscalation_MaterializesWithContact(t *testing.T) {
	// The keyword table knows nothing about collapsing ceilings; the model
	// does. Its escalate verdict must file the case once contact details and
	// a location are on record.
	gen := &fakeGenerator{resp: agent.Response{
		Message:      "That is a serious structural hazard. Please move away from the area.",
		UrgencyLevel: domain.UrgencyEmergency,
		SafetyFlags:  []string{"structural_hazard"},
		NextAction:   domain.ActionEscalateImmediate,
		Slots: &domain.Slots{
			BuildingName: "Tang Hall",
			RoomNumber:   "301",
			IssueSummary: "ceiling sagging and dropping debris, possible collapse",
			StudentName:  "Alex Kim",
			StudentEmail: "alex@school.edu",
			StudentPhone: "555-0142",
		},
	}}
	caseID := uuid.New()
	mat := &fakeMaterializer{result: MaterializedCase{CaseID: caseID, CaseNumber: "L1-TANG-301-20260831"}}
	svc, _ := newTestService(gen, mat)

	res, err := svc.StartConversation(context.Background(), StartParams{
		StudentID:      uuid.New(),
		OrganizationID: uuid.New(),
		Message: "the ceiling above my bed in tang hall 301 is sagging and pieces " +
			"keep dropping, it looks about to give way. Alex Kim, alex@school.edu, 555-0142",
	})
	if err != nil {
		t.Fatalf("StartConversation returned error: %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("generation calls = %d, want 1", gen.calls)
	}
	if mat.calls != 1 {
		t.Fatalf("materializer called %d times, want 1", mat.calls)
	}
	if res.CaseID == nil || *res.CaseID != caseID {
		t.Fatalf("case not created: %+v", res)
	}
	if res.NextAction != domain.ActionEscalateImmediate {
		t.Fatalf("nextAction = %q, want escalate_immediate", res.NextAction)
	}
	if res.Conversation.UrgencyLevel != domain.UrgencyEmergency {
		t.Fatalf("urgency = %q, want emergency", res.Conversation.UrgencyLevel)
	}
	if !res.Conversation.IsComplete {
		t.Fatal("conversation should be complete after escalation materialized")
	}
	if !strings.Contains(res.AgentMessage, "L1-TANG-301-20260831") {
		t.Fatalf("reply missing case number: %q", res.AgentMessage)
	}
}

func TestModelEscalation_MissingContactPromptsFirst(t *testing.T) {
	gen := &fakeGenerator{resp: agent.Response{
		Message:      "That is a serious structural hazard. Please move away from the area.",
		UrgencyLevel: domain.UrgencyEmergency,
		SafetyFlags:  []string{"structural_hazard"},
		NextAction:   domain.ActionEscalateImmediate,
		Slots: &domain.Slots{
			BuildingName: "Tang Hall",
			RoomNumber:   "301",
			IssueSummary: "ceiling sagging and dropping debris, possible collapse",
		},
	}}
	mat := &fakeMaterializer{result: MaterializedCase{CaseID: uuid.New(), CaseNumber: "L1-TANG-301-20260831"}}
	svc, _ := newTestService(gen, mat)

	res, err := svc.StartConversation(context.Background(), StartParams{
		StudentID:      uuid.New(),
		OrganizationID: uuid.New(),
		Message:        "the ceiling in my room in tang hall 301 is sagging badly, it could come down",
	})
	if err != nil {
		t.Fatalf("StartConversation returned error: %v", err)
	}

	if mat.calls != 0 {
		t.Fatal("materializer must wait for contact details")
	}
	if res.CaseID != nil {
		t.Fatal("no case expected before contact info")
	}
	if res.NextAction != domain.ActionEscalateImmediate {
		t.Fatalf("nextAction = %q, want escalate_immediate", res.NextAction)
	}
	if res.Conversation.IsComplete {
		t.Fatal("conversation must stay open until contact is known")
	}
	if !strings.Contains(res.AgentMessage, "name, email") {
		t.Fatalf("reply missing contact prompt: %q", res.AgentMessage)
	}
}

func TestPrematureCompletion_Overridden(t *testing.T) {
	gen := &fakeGenerator{resp: agent.Response{
		Message:      "All set, I'll file this now!",
		UrgencyLevel: domain.UrgencyNormal,
		SafetyFlags:  []string{},
		NextAction:   domain.ActionCompleteTriage,
	}}
	mat := &fakeMaterializer{result: MaterializedCase{CaseID: uuid.New(), CaseNumber: "L3-TANG-301-20260831"}}
	svc, _ := newTestService(gen, mat)

	res, err := svc.StartConversation(context.Background(), StartParams{
		StudentID:      uuid.New(),
		OrganizationID: uuid.New(),
		Message:        "my faucet is leaking in tang hall",
	})
	if err != nil {
		t.Fatalf("StartConversation returned error: %v", err)
	}

	if mat.calls != 0 {
		t.Fatal("materializer must not run when completeness gates fail")
	}
	if res.NextAction != domain.ActionAskFollowup {
		t.Fatalf("nextAction = %q, want ask_followup override", res.NextAction)
	}
	if res.Conversation.IsComplete {
		t.Fatal("conversation must not be complete")
	}
	if len(res.MissingElements) == 0 {
		t.Fatal("override should report missing elements")
	}
}

func TestReadyConversation_Materializes(t *testing.T) {
	slots := &domain.Slots{
		BuildingName: "Tang Hall",
		RoomNumber:   "301",
		IssueSummary: "bathroom faucet leaking steadily since yesterday",
		Timeline:     "since yesterday",
		StudentName:  "Alex Kim",
		StudentEmail: "alex@school.edu",
		StudentPhone: "555-0142",
	}
	gen := &fakeGenerator{queue: []agent.Response{
		{
			Message:      "Got it. Can I get your name, email, and phone number?",
			UrgencyLevel: domain.UrgencyNormal,
			SafetyFlags:  []string{},
			NextAction:   domain.ActionAskFollowup,
			Slots: &domain.Slots{
				BuildingName: "Tang Hall",
				RoomNumber:   "301",
				IssueSummary: "bathroom faucet leaking steadily",
			},
		},
		{
			Message:      "Thanks, filing this now.",
			UrgencyLevel: domain.UrgencyNormal,
			SafetyFlags:  []string{},
			NextAction:   domain.ActionCompleteTriage,
			Slots:        slots,
		},
	}}
	caseID := uuid.New()
	mat := &fakeMaterializer{result: MaterializedCase{CaseID: caseID, CaseNumber: "L3-TANG-301-20260831"}}
	svc, _ := newTestService(gen, mat)

	ctx := context.Background()
	studentID, orgID := uuid.New(), uuid.New()
	res, err := svc.StartConversation(ctx, StartParams{
		StudentID:      studentID,
		OrganizationID: orgID,
		Message:        "my faucet is leaking in tang hall room 301",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	conv := res.Conversation

	res, err = svc.ContinueConversation(ctx, conv.ID, orgID,
		"it's been dripping since yesterday. Alex Kim, alex@school.edu, 555-0142", nil)
	if err != nil {
		t.Fatalf("continue: %v", err)
	}

	if !res.IsReady {
		t.Fatalf("expected ready conversation, score=%d missing=%v", res.Score, res.MissingElements)
	}
	if res.CaseID == nil || *res.CaseID != caseID {
		t.Fatalf("case not created: %+v", res)
	}
	if res.Conversation.Phase != domain.PhaseFinalTriage {
		t.Fatalf("phase = %q, want final_triage", res.Conversation.Phase)
	}
	if !strings.Contains(res.AgentMessage, "L3-TANG-301-20260831") {
		t.Fatalf("completion reply missing case number: %q", res.AgentMessage)
	}
}

func TestGenerationFailure_FallsBackSafely(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model timeout")}
	svc, _ := newTestService(gen, &fakeMaterializer{})

	res, err := svc.StartConversation(context.Background(), StartParams{
		StudentID:      uuid.New(),
		OrganizationID: uuid.New(),
		Message:        "my window won't close",
	})
	if err != nil {
		t.Fatalf("fallback turn should not error: %v", err)
	}

	if res.NextAction != domain.ActionEscalateImmediate {
		t.Fatalf("nextAction = %q, want escalate_immediate", res.NextAction)
	}
	if !res.Conversation.HasSafetyFlag(ProcessingErrorFlag) {
		t.Fatalf("processing_error flag missing: %v", res.Conversation.SafetyFlags)
	}
	if res.Conversation.UrgencyLevel != domain.UrgencyUrgent {
		t.Fatalf("urgency = %q, want urgent", res.Conversation.UrgencyLevel)
	}
	if res.Conversation.IsComplete {
		t.Fatal("fallback must not complete the conversation")
	}
}

func TestContinue_CompletedConversationRejected(t *testing.T) {
	gen := &fakeGenerator{resp: followupResponse()}
	svc, repo := newTestService(gen, &fakeMaterializer{})

	conv := domain.NewConversation(uuid.New(), uuid.New())
	conv.MarkComplete(uuid.New())
	if err := repo.Create(context.Background(), conv); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.ContinueConversation(context.Background(), conv.ID, conv.OrganizationID, "hello?", nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestContinue_UnknownConversation(t *testing.T) {
	svc, _ := newTestService(&fakeGenerator{resp: followupResponse()}, &fakeMaterializer{})
	_, err := svc.ContinueConversation(context.Background(), uuid.New(), uuid.New(), "hi", nil)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestUrgencySticksAcrossTurns(t *testing.T) {
	gen := &fakeGenerator{resp: agent.Response{
		Message:      "Got it, how long has this been happening?",
		UrgencyLevel: domain.UrgencyLow,
		SafetyFlags:  []string{},
		NextAction:   domain.ActionAskFollowup,
	}}
	svc, _ := newTestService(gen, &fakeMaterializer{})

	ctx := context.Background()
	res, err := svc.StartConversation(ctx, StartParams{
		StudentID:      uuid.New(),
		OrganizationID: uuid.New(),
		Message:        "no heat in my room and it's freezing",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Conversation.UrgencyLevel != domain.UrgencyUrgent {
		t.Fatalf("urgency = %q, want urgent from hazard scan", res.Conversation.UrgencyLevel)
	}

	// A calm follow-up with a low-urgency model reading must not downgrade.
	res, err = svc.ContinueConversation(ctx, res.Conversation.ID, res.Conversation.OrganizationID,
		"it's a bit better now actually", nil)
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if res.Conversation.UrgencyLevel != domain.UrgencyUrgent {
		t.Fatalf("urgency downgraded to %q", res.Conversation.UrgencyLevel)
	}
}
