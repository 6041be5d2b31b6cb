package app

import (
	"context"

	"github.com/joserubemneto/tqs-project-sub002/internal/clock"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

type RedemptionRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUserForUpdate(ctx context.Context, id string) (domain.User, error)
	GetRewardForUpdate(ctx context.Context, id string) (domain.Reward, error)
	CountByReward(ctx context.Context, rewardID string) (int, error)
	DebitPoints(ctx context.Context, userID string, points int) error
	Create(ctx context.Context, r domain.Redemption) error
	ListByUser(ctx context.Context, userID string) ([]domain.Redemption, error)
	SumPointsSpent(ctx context.Context, userID string) (int, error)
}

// RedemptionService atomically exchanges a user's points for a reward.
// Stock is a derived count over redemptions, never a cached counter, so
// the availability check and the insert happen under the same row locks.
type RedemptionService struct {
	repo  RedemptionRepository
	clock clock.Clock
}

func NewRedemptionService(repo RedemptionRepository, clk clock.Clock) *RedemptionService {
	return &RedemptionService{
		repo:  repo,
		clock: clk,
	}
}

// Redeem debits the user and inserts the redemption in one transaction.
// Every writer locks the user row before the reward row, so concurrent
// redemptions of the last unit of stock, or of a user's last points,
// serialize and exactly one commits.
func (s *RedemptionService) Redeem(ctx context.Context, userID, rewardID string) (domain.Redemption, error) {
	if userID == "" || rewardID == "" {
		return domain.Redemption{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Redemption

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetUserForUpdate(txCtx, userID)
		if err != nil {
			return err
		}
		reward, err := s.repo.GetRewardForUpdate(txCtx, rewardID)
		if err != nil {
			return err
		}

		if !reward.AvailableAt(now) {
			return domain.ErrRewardNotAvailable
		}
		if reward.Quantity != nil {
			redeemed, err := s.repo.CountByReward(txCtx, rewardID)
			if err != nil {
				return err
			}
			if redeemed >= *reward.Quantity {
				return domain.ErrRewardNotAvailable
			}
		}
		if user.Points < reward.PointsCost {
			return domain.ErrInsufficientPoints
		}

		if err := s.repo.DebitPoints(txCtx, userID, reward.PointsCost); err != nil {
			return err
		}

		redemption := domain.Redemption{
			ID:          newID(),
			UserID:      userID,
			RewardID:    rewardID,
			PointsSpent: reward.PointsCost,
			Code:        newRedemptionCode(),
			RedeemedAt:  now,
		}
		if err := s.repo.Create(txCtx, redemption); err != nil {
			return err
		}

		result = redemption
		return nil
	})
	if err != nil {
		return domain.Redemption{}, err
	}
	return result, nil
}

func (s *RedemptionService) ListForUser(ctx context.Context, userID string) ([]domain.Redemption, error) {
	if userID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListByUser(ctx, userID)
}

// TotalPointsSpent sums points_spent over the user's redemptions; zero
// when there are none.
func (s *RedemptionService) TotalPointsSpent(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrInvalidID
	}
	return s.repo.SumPointsSpent(ctx, userID)
}
