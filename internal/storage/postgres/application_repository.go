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

const applicationColumns = `id, opportunity_id, volunteer_id, message, status, applied_at, reviewed_at`

// ApplicationRepository backs the admission controller. It also reads
// and writes the opportunity row because approval and the open → full
// flip must share one transaction.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

func (r *ApplicationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *ApplicationRepository) Create(ctx context.Context, a domain.Application) error {
	const stmt = `
INSERT INTO applications (id, opportunity_id, volunteer_id, message, status, applied_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		a.ID,
		a.OpportunityID,
		a.VolunteerID,
		a.Message,
		a.Status,
		a.AppliedAt,
	)
	if err != nil {
		// The unique (opportunity_id, volunteer_id) index catches the
		// duplicate the pre-check raced with.
		if isUniqueViolation(err) {
			return domain.ErrAlreadyApplied
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) GetForUpdate(ctx context.Context, id string) (domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`

	a, err := r.scanOne(r.queryRow(ctx, query, id))
	if err != nil {
		return domain.Application{}, err
	}
	return a, nil
}

func (r *ApplicationRepository) FindByPair(ctx context.Context, volunteerID, opportunityID string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE volunteer_id = $1 AND opportunity_id = $2`

	a, err := r.scanOne(r.queryRow(ctx, query, volunteerID, opportunityID))
	if err != nil {
		if err == domain.ErrApplicationNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *ApplicationRepository) CountApproved(ctx context.Context, opportunityID string) (int, error) {
	const query = `SELECT COUNT(*) FROM applications WHERE opportunity_id = $1 AND status = $2`

	var count int
	if err := r.queryRow(ctx, query, opportunityID, domain.ApplicationStatusApproved).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count approved: %w", err)
	}
	return count, nil
}

// SetReviewed records the review decision; the WHERE clause on pending
// keeps a double review from overwriting the first reviewed_at.
func (r *ApplicationRepository) SetReviewed(ctx context.Context, id string, status domain.ApplicationStatus, reviewedAt time.Time) error {
	const stmt = `
UPDATE applications SET status = $2, reviewed_at = $3
WHERE id = $1 AND status = $4`

	tag, err := r.exec(ctx, stmt, id, status, reviewedAt, domain.ApplicationStatusPending)
	if err != nil {
		return fmt.Errorf("set reviewed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *ApplicationRepository) ListByOpportunity(ctx context.Context, opportunityID string) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE opportunity_id = $1 ORDER BY applied_at`
	return r.list(ctx, query, opportunityID)
}

func (r *ApplicationRepository) ListByVolunteer(ctx context.Context, volunteerID string) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE volunteer_id = $1 ORDER BY applied_at`
	return r.list(ctx, query, volunteerID)
}

func (r *ApplicationRepository) GetOpportunity(ctx context.Context, id string) (domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1`
	return r.scanOpportunity(r.queryRow(ctx, query, id))
}

// GetOpportunityForUpdate locks the opportunity row, linearizing every
// approval for that opportunity. This is what keeps two concurrent
// approvals of the last seat from both succeeding.
func (r *ApplicationRepository) GetOpportunityForUpdate(ctx context.Context, id string) (domain.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1 FOR UPDATE`
	return r.scanOpportunity(r.queryRow(ctx, query, id))
}

func (r *ApplicationRepository) UpdateOpportunityStatus(ctx context.Context, id string, status domain.OpportunityStatus) error {
	const stmt = `UPDATE opportunities SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status)
	if err != nil {
		return fmt.Errorf("update opportunity status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOpportunityNotFound
	}
	return nil
}

func (r *ApplicationRepository) UserExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.queryRow(ctx, query, id).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

func (r *ApplicationRepository) scanOne(row pgx.Row) (domain.Application, error) {
	var a domain.Application
	var status string
	err := row.Scan(
		&a.ID,
		&a.OpportunityID,
		&a.VolunteerID,
		&a.Message,
		&status,
		&a.AppliedAt,
		&a.ReviewedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Application{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Application{}, domain.ErrApplicationNotFound
		}
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}
	a.Status = domain.ApplicationStatus(status)
	return a, nil
}

func (r *ApplicationRepository) scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
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

func (r *ApplicationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Application, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Application, 0)
	for rows.Next() {
		a, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ApplicationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ApplicationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ApplicationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
