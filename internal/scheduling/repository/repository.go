// Package repository reads the contractor scheduling data: contractors,
// recurring availability rules, bookings, and blackout ranges. The optimizer
// treats all of it as read-only input; the only write is the hold-expiry
// sweep run by the background worker.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dormdesk_backend/internal/scheduling/domain"
)

var ErrNotFound = errors.New("contractor not found")

// SchedulingRepository is the data contract for the optimizer.
type SchedulingRepository interface {
	GetContractor(ctx context.Context, id, organizationID uuid.UUID) (*domain.Contractor, error)
	ListCandidates(ctx context.Context, organizationID uuid.UUID, category string, emergencyOnly bool, limit int) ([]*domain.Contractor, error)
	ListAvailabilityRules(ctx context.Context, contractorIDs []uuid.UUID) (map[uuid.UUID][]domain.AvailabilityRule, error)
	ListBookings(ctx context.Context, contractorIDs []uuid.UUID, from, to time.Time) (map[uuid.UUID][]domain.Booking, error)
	ListBlackouts(ctx context.Context, contractorIDs []uuid.UUID, from, to time.Time) (map[uuid.UUID][]domain.Blackout, error)
	ExpireHolds(ctx context.Context, olderThan time.Time) (int64, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const contractorColumns = `id, organization_id, name, email, phone, categories, rating,
	is_active, is_preferred, emergency_available, response_time_hours, daily_job_cap`

func (r *Repository) GetContractor(ctx context.Context, id, organizationID uuid.UUID) (*domain.Contractor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contractorColumns+`
		FROM contractors
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	return scanContractor(row)
}

// ListCandidates returns active contractors serving the category, preferred
// first, then by rating. For critical requests only emergency-available
// contractors qualify.
func (r *Repository) ListCandidates(ctx context.Context, organizationID uuid.UUID, category string, emergencyOnly bool, limit int) ([]*domain.Contractor, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+contractorColumns+`
		FROM contractors
		WHERE organization_id = $1
			AND is_active = true
			AND $2 = ANY(categories)
			AND (NOT $3 OR emergency_available = true)
		ORDER BY is_preferred DESC, rating DESC
		LIMIT $4
	`, organizationID, category, emergencyOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate contractors: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Contractor, 0)
	for rows.Next() {
		c, err := scanContractor(rows)
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

func (r *Repository) ListAvailabilityRules(ctx context.Context, contractorIDs []uuid.UUID) (map[uuid.UUID][]domain.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contractor_id, weekday, start_minute, end_minute
		FROM availability_rules
		WHERE contractor_id = ANY($1)
	`, contractorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability rules: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.AvailabilityRule)
	for rows.Next() {
		var (
			rule    domain.AvailabilityRule
			weekday int
		)
		if err := rows.Scan(&rule.ID, &rule.ContractorID, &weekday, &rule.StartMinute, &rule.EndMinute); err != nil {
			return nil, fmt.Errorf("failed to scan availability rule: %w", err)
		}
		rule.Weekday = time.Weekday(weekday)
		out[rule.ContractorID] = append(out[rule.ContractorID], rule)
	}
	return out, rows.Err()
}

func (r *Repository) ListBookings(ctx context.Context, contractorIDs []uuid.UUID, from, to time.Time) (map[uuid.UUID][]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contractor_id, case_id, start_time, end_time, status, created_at
		FROM bookings
		WHERE contractor_id = ANY($1)
			AND start_time < $3
			AND end_time > $2
			AND status NOT IN ('cancelled', 'expired')
	`, contractorIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.Booking)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.ContractorID, &b.CaseID, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out[b.ContractorID] = append(out[b.ContractorID], b)
	}
	return out, rows.Err()
}

func (r *Repository) ListBlackouts(ctx context.Context, contractorIDs []uuid.UUID, from, to time.Time) (map[uuid.UUID][]domain.Blackout, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contractor_id, start_date, end_date, reason
		FROM contractor_blackouts
		WHERE contractor_id = ANY($1)
			AND start_date <= $3
			AND end_date >= $2
	`, contractorIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list blackouts: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.Blackout)
	for rows.Next() {
		var b domain.Blackout
		if err := rows.Scan(&b.ID, &b.ContractorID, &b.StartDate, &b.EndDate, &b.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan blackout: %w", err)
		}
		out[b.ContractorID] = append(out[b.ContractorID], b)
	}
	return out, rows.Err()
}

// ExpireHolds marks stale hold bookings expired and returns how many rows
// changed. Run periodically by the worker.
func (r *Repository) ExpireHolds(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET status = 'expired'
		WHERE status = 'hold' AND created_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to expire holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContractor(row rowScanner) (*domain.Contractor, error) {
	var c domain.Contractor
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Email, &c.Phone,
		&c.Categories, &c.Rating, &c.IsActive, &c.IsPreferred,
		&c.EmergencyAvailable, &c.ResponseTimeHours, &c.DailyJobCap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan contractor: %w", err)
	}
	if c.Categories == nil {
		c.Categories = []string{}
	}
	return &c, nil
}
