package app

import (
	"context"
	"strings"
	"time"

	"github.com/joserubemneto/tqs-project-sub002/internal/clock"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

type RewardRepository interface {
	Create(ctx context.Context, r domain.Reward) error
	Get(ctx context.Context, id string) (domain.Reward, error)
	Update(ctx context.Context, r domain.Reward) error
	List(ctx context.Context) ([]domain.Reward, error)
	ListAvailable(ctx context.Context, now time.Time) ([]domain.Reward, error)
}

// RewardService is plain catalog administration. Redemption reads the
// reward row under lock on every call, so a deactivation here is
// effective for the very next redeem attempt.
type RewardService struct {
	repo  RewardRepository
	clock clock.Clock
}

func NewRewardService(repo RewardRepository, clk clock.Clock) *RewardService {
	return &RewardService{
		repo:  repo,
		clock: clk,
	}
}

type RewardInput struct {
	PartnerID      *string
	Name           string
	Description    string
	PointsCost     int
	Quantity       *int
	AvailableFrom  *time.Time
	AvailableUntil *time.Time
}

func (in RewardInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.ErrRewardNameRequired
	}
	if in.PointsCost <= 0 {
		return domain.ErrInvalidPointsCost
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if in.AvailableFrom != nil && in.AvailableUntil != nil && !in.AvailableUntil.After(*in.AvailableFrom) {
		return domain.ErrInvalidWindow
	}
	return nil
}

func (s *RewardService) Create(ctx context.Context, actor domain.Actor, in RewardInput) (domain.Reward, error) {
	if !actor.IsAdmin() {
		return domain.Reward{}, domain.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return domain.Reward{}, err
	}

	reward := domain.Reward{
		ID:             newID(),
		PartnerID:      in.PartnerID,
		Name:           in.Name,
		Description:    in.Description,
		PointsCost:     in.PointsCost,
		Quantity:       in.Quantity,
		Active:         true,
		AvailableFrom:  in.AvailableFrom,
		AvailableUntil: in.AvailableUntil,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.Create(ctx, reward); err != nil {
		return domain.Reward{}, err
	}
	return reward, nil
}

// Update replaces the editable fields. Existing redemptions are
// unaffected: they carry their own frozen points_spent.
func (s *RewardService) Update(ctx context.Context, actor domain.Actor, id string, in RewardInput) (domain.Reward, error) {
	if !actor.IsAdmin() {
		return domain.Reward{}, domain.ErrForbidden
	}
	if err := in.validate(); err != nil {
		return domain.Reward{}, err
	}

	reward, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Reward{}, err
	}

	reward.PartnerID = in.PartnerID
	reward.Name = in.Name
	reward.Description = in.Description
	reward.PointsCost = in.PointsCost
	reward.Quantity = in.Quantity
	reward.AvailableFrom = in.AvailableFrom
	reward.AvailableUntil = in.AvailableUntil

	if err := s.repo.Update(ctx, reward); err != nil {
		return domain.Reward{}, err
	}
	return reward, nil
}

// Deactivate soft-deletes the reward.
func (s *RewardService) Deactivate(ctx context.Context, actor domain.Actor, id string) (domain.Reward, error) {
	if !actor.IsAdmin() {
		return domain.Reward{}, domain.ErrForbidden
	}

	reward, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Reward{}, err
	}
	reward.Active = false

	if err := s.repo.Update(ctx, reward); err != nil {
		return domain.Reward{}, err
	}
	return reward, nil
}

func (s *RewardService) Get(ctx context.Context, id string) (domain.Reward, error) {
	if id == "" {
		return domain.Reward{}, domain.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *RewardService) List(ctx context.Context, actor domain.Actor) ([]domain.Reward, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.repo.List(ctx)
}

// ListAvailable is the public catalog: active rewards whose window
// covers the current time.
func (s *RewardService) ListAvailable(ctx context.Context) ([]domain.Reward, error) {
	return s.repo.ListAvailable(ctx, s.clock.Now())
}
