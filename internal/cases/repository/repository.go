// Package repository persists maintenance cases and their conversation
// links. The link table carries a uniqueness constraint on conversation_id,
// so a conversation can never materialize into two cases even under races.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dormdesk_backend/internal/cases/domain"
)

var (
	ErrNotFound      = errors.New("case not found")
	ErrAlreadyLinked = errors.New("conversation already linked to a case")
)

// CaseRepository is the persistence contract for the cases service.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case, conversationID uuid.UUID) error
	LinkConversation(ctx context.Context, caseID, conversationID uuid.UUID) error
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*domain.Case, error)
	GetByConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Case, error)
	FindRecentOpen(ctx context.Context, organizationID uuid.UUID, buildingCode, roomNumber string, category domain.Category, since time.Time) ([]*domain.Case, error)
	List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) ([]*domain.Case, error)
	UpdateStatus(ctx context.Context, id, organizationID uuid.UUID, status domain.Status) error
}

// ListFilter narrows the case listing.
type ListFilter struct {
	Status       string
	Category     string
	UrgencyLevel string
	BuildingCode string
	Limit        int
	Offset       int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const caseColumns = `id, organization_id, case_number, category, urgency_level, status,
	building_name, building_code, room_number, issue_summary, timeline, severity,
	student_name, student_email, student_phone, safety_flags, estimated_work,
	created_at, updated_at`

func (r *Repository) Create(ctx context.Context, c *domain.Case, conversationID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO maintenance_cases (
			id, organization_id, case_number, category, urgency_level, status,
			building_name, building_code, room_number, issue_summary, timeline,
			severity, student_name, student_email, student_phone, safety_flags,
			estimated_work, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, c.ID, c.OrganizationID, c.CaseNumber, c.Category, c.UrgencyLevel, c.Status,
		c.BuildingName, c.BuildingCode, c.RoomNumber, c.IssueSummary, c.Timeline,
		c.Severity, c.StudentName, c.StudentEmail, c.StudentPhone, c.SafetyFlags,
		c.EstimatedWork, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}

	if err := insertLink(ctx, tx, c.ID, conversationID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit case: %w", err)
	}
	return nil
}

func (r *Repository) LinkConversation(ctx context.Context, caseID, conversationID uuid.UUID) error {
	return insertLink(ctx, r.pool, caseID, conversationID)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertLink(ctx context.Context, db execer, caseID, conversationID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		INSERT INTO case_conversations (case_id, conversation_id, linked_at)
		VALUES ($1, $2, now())
	`, caseID, conversationID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyLinked
		}
		return fmt.Errorf("failed to link conversation: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*domain.Case, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+caseColumns+`
		FROM maintenance_cases
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	return scanCase(row)
}

func (r *Repository) GetByConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Case, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+caseColumns+`
		FROM maintenance_cases
		WHERE id = (
			SELECT case_id FROM case_conversations WHERE conversation_id = $1
		)
	`, conversationID)
	return scanCase(row)
}

// FindRecentOpen returns unresolved cases for the same location and category
// created inside the dedup window, newest first.
func (r *Repository) FindRecentOpen(ctx context.Context, organizationID uuid.UUID, buildingCode, roomNumber string, category domain.Category, since time.Time) ([]*domain.Case, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+caseColumns+`
		FROM maintenance_cases
		WHERE organization_id = $1
			AND building_code = $2
			AND room_number = $3
			AND category = $4
			AND status IN ('open', 'scheduled', 'in_progress')
			AND created_at >= $5
		ORDER BY created_at DESC
	`, organizationID, buildingCode, roomNumber, category, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent cases: %w", err)
	}
	defer rows.Close()
	return collectCases(rows)
}

func (r *Repository) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) ([]*domain.Case, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+caseColumns+`
		FROM maintenance_cases
		WHERE organization_id = $1
			AND ($2 = '' OR status = $2)
			AND ($3 = '' OR category = $3)
			AND ($4 = '' OR urgency_level = $4)
			AND ($5 = '' OR building_code = $5)
		ORDER BY urgency_level = 'emergency' DESC, created_at DESC
		LIMIT $6 OFFSET $7
	`, organizationID, filter.Status, filter.Category, filter.UrgencyLevel,
		filter.BuildingCode, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()
	return collectCases(rows)
}

func (r *Repository) UpdateStatus(ctx context.Context, id, organizationID uuid.UUID, status domain.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE maintenance_cases
		SET status = $1, updated_at = now()
		WHERE id = $2 AND organization_id = $3
	`, status, id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to update case status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*domain.Case, error) {
	var c domain.Case
	err := row.Scan(&c.ID, &c.OrganizationID, &c.CaseNumber, &c.Category,
		&c.UrgencyLevel, &c.Status, &c.BuildingName, &c.BuildingCode,
		&c.RoomNumber, &c.IssueSummary, &c.Timeline, &c.Severity,
		&c.StudentName, &c.StudentEmail, &c.StudentPhone, &c.SafetyFlags,
		&c.EstimatedWork, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan case: %w", err)
	}
	if c.SafetyFlags == nil {
		c.SafetyFlags = []string{}
	}
	return &c, nil
}

func collectCases(rows pgx.Rows) ([]*domain.Case, error) {
	items := make([]*domain.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
