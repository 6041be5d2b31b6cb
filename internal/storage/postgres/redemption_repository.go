package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

// RedemptionRepository spans users, rewards and redemptions: the debit,
// the stock count and the insert all belong to one transaction.
type RedemptionRepository struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepository(pool *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{pool: pool}
}

func (r *RedemptionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := withTx(ctx, r.pool, fn)
	if err != nil && isSerializationFailure(err) {
		return domain.ErrConcurrencyConflict
	}
	return err
}

// GetUserForUpdate locks the user's balance row. Lock order is always
// user first, then reward.
func (r *RedemptionRepository) GetUserForUpdate(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT id, name, role, points, created_at FROM users WHERE id = $1 FOR UPDATE`

	var u domain.User
	var role string
	err := r.queryRow(ctx, query, id).Scan(&u.ID, &u.Name, &role, &u.Points, &u.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.User{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	return u, nil
}

func (r *RedemptionRepository) GetRewardForUpdate(ctx context.Context, id string) (domain.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1 FOR UPDATE`
	return scanReward(r.queryRow(ctx, query, id))
}

func (r *RedemptionRepository) CountByReward(ctx context.Context, rewardID string) (int, error) {
	const query = `SELECT COUNT(*) FROM redemptions WHERE reward_id = $1`

	var count int
	if err := r.queryRow(ctx, query, rewardID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count redemptions: %w", err)
	}
	return count, nil
}

// DebitPoints guards the subtraction in SQL on top of the service-level
// check; the points >= cost predicate and the table CHECK both keep a
// balance from ever going negative.
func (r *RedemptionRepository) DebitPoints(ctx context.Context, userID string, points int) error {
	const stmt = `UPDATE users SET points = points - $2 WHERE id = $1 AND points >= $2`

	tag, err := r.exec(ctx, stmt, userID, points)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientPoints
		}
		return fmt.Errorf("debit points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientPoints
	}
	return nil
}

func (r *RedemptionRepository) Create(ctx context.Context, redemption domain.Redemption) error {
	const stmt = `
INSERT INTO redemptions (id, user_id, reward_id, points_spent, code, redeemed_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		redemption.ID,
		redemption.UserID,
		redemption.RewardID,
		redemption.PointsSpent,
		redemption.Code,
		redemption.RedeemedAt,
	)
	if err != nil {
		// Unique code collision; astronomically rare, surfaced as a
		// retryable conflict rather than a silent oversell.
		if isUniqueViolation(err) {
			return domain.ErrConcurrencyConflict
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create redemption: %w", err)
	}
	return nil
}

func (r *RedemptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Redemption, error) {
	const query = `
SELECT id, user_id, reward_id, points_spent, code, redeemed_at
FROM redemptions
WHERE user_id = $1
ORDER BY redeemed_at`

	rows, err := r.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Redemption, 0)
	for rows.Next() {
		var redemption domain.Redemption
		if err := rows.Scan(
			&redemption.ID,
			&redemption.UserID,
			&redemption.RewardID,
			&redemption.PointsSpent,
			&redemption.Code,
			&redemption.RedeemedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, redemption)
	}
	return out, rows.Err()
}

func (r *RedemptionRepository) SumPointsSpent(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COALESCE(SUM(points_spent), 0) FROM redemptions WHERE user_id = $1`

	var total int
	if err := r.queryRow(ctx, query, userID).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum points spent: %w", err)
	}
	return total, nil
}

func (r *RedemptionRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *RedemptionRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *RedemptionRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
