// Package repository persists triage conversations. Conversation history,
// slots, and pending questions are stored as JSONB so a turn is saved and
// reloaded as one row.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dormdesk_backend/internal/triage/domain"
)

var ErrNotFound = errors.New("conversation not found")

// ConversationRepository is the persistence contract the orchestrator uses.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*domain.Conversation, error)
	Update(ctx context.Context, conv *domain.Conversation) error
	ListByStudent(ctx context.Context, studentID, organizationID uuid.UUID, limit int) ([]*domain.Conversation, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, conv *domain.Conversation) error {
	history, slots, pending, location, err := marshalState(conv)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO triage_conversations (
			id, student_id, organization_id, phase, urgency_level, safety_flags,
			history, slots, location, pending_questions, case_id, is_complete,
			completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, conv.ID, conv.StudentID, conv.OrganizationID, conv.Phase, conv.UrgencyLevel,
		conv.SafetyFlags, history, slots, location, pending, conv.CaseID,
		conv.IsComplete, conv.CompletedAt, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, student_id, organization_id, phase, urgency_level, safety_flags,
			history, slots, location, pending_questions, case_id, is_complete,
			completed_at, created_at, updated_at
		FROM triage_conversations
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// Update writes the full conversation state back. The caller holds the
// per-conversation run lock, so last-write-wins is safe here.
func (r *Repository) Update(ctx context.Context, conv *domain.Conversation) error {
	history, slots, pending, location, err := marshalState(conv)
	if err != nil {
		return err
	}
	conv.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(ctx, `
		UPDATE triage_conversations SET
			phase = $1, urgency_level = $2, safety_flags = $3, history = $4,
			slots = $5, location = $6, pending_questions = $7, case_id = $8,
			is_complete = $9, completed_at = $10, updated_at = $11
		WHERE id = $12 AND organization_id = $13
	`, conv.Phase, conv.UrgencyLevel, conv.SafetyFlags, history, slots, location,
		pending, conv.CaseID, conv.IsComplete, conv.CompletedAt, conv.UpdatedAt,
		conv.ID, conv.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListByStudent(ctx context.Context, studentID, organizationID uuid.UUID, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, organization_id, phase, urgency_level, safety_flags,
			history, slots, location, pending_questions, case_id, is_complete,
			completed_at, created_at, updated_at
		FROM triage_conversations
		WHERE student_id = $1 AND organization_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, studentID, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		items = append(items, conv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// DeleteStaleBefore removes abandoned conversations that never produced a
// case and have seen no activity since the cutoff. Called from the worker's
// cleanup loop; completed conversations are kept as the audit trail.
func (r *Repository) DeleteStaleBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM triage_conversations
		WHERE is_complete = FALSE AND case_id IS NULL AND updated_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var (
		conv     domain.Conversation
		history  []byte
		slots    []byte
		location []byte
		pending  []byte
	)
	err := row.Scan(&conv.ID, &conv.StudentID, &conv.OrganizationID, &conv.Phase,
		&conv.UrgencyLevel, &conv.SafetyFlags, &history, &slots, &location,
		&pending, &conv.CaseID, &conv.IsComplete, &conv.CompletedAt,
		&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(history, &conv.History); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if err := json.Unmarshal(slots, &conv.Slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	if err := json.Unmarshal(location, &conv.Location); err != nil {
		return nil, fmt.Errorf("failed to decode location: %w", err)
	}
	if err := json.Unmarshal(pending, &conv.PendingQuestions); err != nil {
		return nil, fmt.Errorf("failed to decode pending questions: %w", err)
	}
	if conv.SafetyFlags == nil {
		conv.SafetyFlags = []string{}
	}
	return &conv, nil
}

func marshalState(conv *domain.Conversation) (history, slots, pending, location []byte, err error) {
	if history, err = json.Marshal(conv.History); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode history: %w", err)
	}
	if slots, err = json.Marshal(conv.Slots); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode slots: %w", err)
	}
	if pending, err = json.Marshal(conv.PendingQuestions); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode pending questions: %w", err)
	}
	if location, err = json.Marshal(conv.Location); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to encode location: %w", err)
	}
	return history, slots, pending, location, nil
}
