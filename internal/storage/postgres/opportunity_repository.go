package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

const opportunityColumns = `id, promoter_id, title, description, required_skills, starts_at, ends_at, max_volunteers, status, created_at`

type OpportunityRepository struct {
	pool *pgxpool.Pool
}

func NewOpportunityRepository(pool *pgxpool.Pool) *OpportunityRepository {
	return &OpportunityRepository{pool: pool}
}

func (r *OpportunityRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OpportunityRepository) Create(ctx context.Context, o domain.Opportunity) error {
	const stmt = `
INSERT INTO opportunities (id, promoter_id, title, description, required_skills, starts_at, ends_at, max_volunteers, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		o.ID,
		o.PromoterID,
		o.Title,
		o.Description,
		o.RequiredSkills,
		o.StartsAt,
		o.EndsAt,
		o.MaxVolunteers,
		o.Status,
		o.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create opportunity: %w", err)
	}
	return nil
}

func (r *OpportunityRepository) Get(ctx context.Context, id string) (domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1`
	return r.scanOne(r.queryRow(ctx, query, id))
}

// GetForUpdate locks the opportunity row for the rest of the
// transaction; publish and cancel serialize on it.
func (r *OpportunityRepository) GetForUpdate(ctx context.Context, id string) (domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.queryRow(ctx, query, id))
}

func (r *OpportunityRepository) UpdateStatus(ctx context.Context, id string, status domain.OpportunityStatus) error {
	const stmt = `UPDATE opportunities SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update opportunity status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOpportunityNotFound
	}
	return nil
}

func (r *OpportunityRepository) ListOpen(ctx context.Context) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE status = $1 ORDER BY starts_at`
	return r.list(ctx, query, domain.OpportunityStatusOpen)
}

func (r *OpportunityRepository) ListByPromoter(ctx context.Context, promoterID string) ([]domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE promoter_id = $1 ORDER BY created_at`
	return r.list(ctx, query, promoterID)
}

// ListToStart selects opportunities the sweeper should move to
// in_progress. IDs only: each row is then updated individually.
func (r *OpportunityRepository) ListToStart(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT id FROM opportunities
WHERE status IN ($1, $2) AND starts_at <= $3
ORDER BY starts_at`

	return r.listIDs(ctx, query, domain.OpportunityStatusOpen, domain.OpportunityStatusFull, now)
}

func (r *OpportunityRepository) ListToComplete(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT id FROM opportunities
WHERE status = $1 AND ends_at <= $2
ORDER BY ends_at`

	return r.listIDs(ctx, query, domain.OpportunityStatusInProgress, now)
}

// MarkInProgress repeats the sweep predicate in the UPDATE so a row
// already moved by a concurrent writer is simply skipped.
func (r *OpportunityRepository) MarkInProgress(ctx context.Context, id string, now time.Time) (bool, error) {
	const stmt = `
UPDATE opportunities SET status = $1
WHERE id = $2 AND status IN ($3, $4) AND starts_at <= $5`

	tag, err := r.exec(ctx, stmt,
		domain.OpportunityStatusInProgress,
		id,
		domain.OpportunityStatusOpen,
		domain.OpportunityStatusFull,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("mark in progress: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OpportunityRepository) MarkCompleted(ctx context.Context, id string, now time.Time) (bool, error) {
	const stmt = `
UPDATE opportunities SET status = $1
WHERE id = $2 AND status = $3 AND ends_at <= $4`

	tag, err := r.exec(ctx, stmt,
		domain.OpportunityStatusCompleted,
		id,
		domain.OpportunityStatusInProgress,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("mark completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OpportunityRepository) scanOne(row pgx.Row) (domain.Opportunity, error) {
	var o domain.Opportunity
	var status string
	err := row.Scan(
		&o.ID,
		&o.PromoterID,
		&o.Title,
		&o.Description,
		&o.RequiredSkills,
		&o.StartsAt,
		&o.EndsAt,
		&o.MaxVolunteers,
		&status,
		&o.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Opportunity{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Opportunity{}, domain.ErrOpportunityNotFound
		}
		return domain.Opportunity{}, fmt.Errorf("get opportunity: %w", err)
	}
	o.Status = domain.OpportunityStatus(status)
	return o, nil
}

func (r *OpportunityRepository) list(ctx context.Context, query string, args ...any) ([]domain.Opportunity, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Opportunity, 0)
	for rows.Next() {
		o, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OpportunityRepository) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunity ids: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *OpportunityRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OpportunityRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *OpportunityRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
