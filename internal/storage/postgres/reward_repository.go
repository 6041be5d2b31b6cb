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

const rewardColumns = `id, partner_id, name, description, points_cost, quantity, active, available_from, available_until, created_at`

type RewardRepository struct {
	pool *pgxpool.Pool
}

func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

func (r *RewardRepository) Create(ctx context.Context, reward domain.Reward) error {
	const stmt = `
INSERT INTO rewards (id, partner_id, name, description, points_cost, quantity, active, available_from, available_until, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		reward.ID,
		reward.PartnerID,
		reward.Name,
		reward.Description,
		reward.PointsCost,
		reward.Quantity,
		reward.Active,
		reward.AvailableFrom,
		reward.AvailableUntil,
		reward.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reward: %w", err)
	}
	return nil
}

func (r *RewardRepository) Get(ctx context.Context, id string) (domain.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards WHERE id = $1`
	return scanReward(r.queryRow(ctx, query, id))
}

func (r *RewardRepository) Update(ctx context.Context, reward domain.Reward) error {
	const stmt = `
UPDATE rewards
SET partner_id = $2, name = $3, description = $4, points_cost = $5, quantity = $6,
    active = $7, available_from = $8, available_until = $9
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		reward.ID,
		reward.PartnerID,
		reward.Name,
		reward.Description,
		reward.PointsCost,
		reward.Quantity,
		reward.Active,
		reward.AvailableFrom,
		reward.AvailableUntil,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update reward: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRewardNotFound
	}
	return nil
}

func (r *RewardRepository) List(ctx context.Context) ([]domain.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards ORDER BY created_at`
	return r.listRewards(ctx, query)
}

func (r *RewardRepository) ListAvailable(ctx context.Context, now time.Time) ([]domain.Reward, error) {
	query := `
SELECT ` + rewardColumns + ` FROM rewards
WHERE active
  AND (available_from IS NULL OR available_from <= $1)
  AND (available_until IS NULL OR available_until >= $1)
ORDER BY created_at`

	return r.listRewards(ctx, query, now)
}

func (r *RewardRepository) listRewards(ctx context.Context, query string, args ...any) ([]domain.Reward, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Reward, 0)
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reward)
	}
	return out, rows.Err()
}

func scanReward(row pgx.Row) (domain.Reward, error) {
	var reward domain.Reward
	err := row.Scan(
		&reward.ID,
		&reward.PartnerID,
		&reward.Name,
		&reward.Description,
		&reward.PointsCost,
		&reward.Quantity,
		&reward.Active,
		&reward.AvailableFrom,
		&reward.AvailableUntil,
		&reward.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reward{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reward{}, domain.ErrRewardNotFound
		}
		return domain.Reward{}, fmt.Errorf("get reward: %w", err)
	}
	return reward, nil
}

func (r *RewardRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *RewardRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *RewardRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
