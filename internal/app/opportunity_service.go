package app

import (
	"context"
	"strings"
	"time"

	"github.com/joserubemneto/tqs-project-sub002/internal/clock"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

type OpportunityRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, o domain.Opportunity) error
	Get(ctx context.Context, id string) (domain.Opportunity, error)
	GetForUpdate(ctx context.Context, id string) (domain.Opportunity, error)
	UpdateStatus(ctx context.Context, id string, status domain.OpportunityStatus) error
	ListOpen(ctx context.Context) ([]domain.Opportunity, error)
	ListByPromoter(ctx context.Context, promoterID string) ([]domain.Opportunity, error)
}

// OpportunityService owns the opportunity lifecycle. Time-driven edges
// (open/full → in_progress → completed) belong to the Sweeper; this
// service handles the explicit publish and cancel transitions.
type OpportunityService struct {
	repo  OpportunityRepository
	clock clock.Clock
}

func NewOpportunityService(repo OpportunityRepository, clk clock.Clock) *OpportunityService {
	return &OpportunityService{
		repo:  repo,
		clock: clk,
	}
}

type CreateOpportunityInput struct {
	PromoterID     string
	Title          string
	Description    string
	RequiredSkills []string
	StartsAt       time.Time
	EndsAt         time.Time
	MaxVolunteers  int
}

func (s *OpportunityService) Create(ctx context.Context, in CreateOpportunityInput) (domain.Opportunity, error) {
	if in.PromoterID == "" {
		return domain.Opportunity{}, domain.ErrInvalidID
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.Opportunity{}, domain.ErrTitleRequired
	}
	if !in.EndsAt.After(in.StartsAt) {
		return domain.Opportunity{}, domain.ErrInvalidSchedule
	}
	if in.MaxVolunteers <= 0 {
		return domain.Opportunity{}, domain.ErrInvalidCapacity
	}
	skills := make([]string, 0, len(in.RequiredSkills))
	for _, skill := range in.RequiredSkills {
		skill = strings.TrimSpace(skill)
		if skill != "" {
			skills = append(skills, skill)
		}
	}
	if len(skills) == 0 {
		return domain.Opportunity{}, domain.ErrSkillsRequired
	}

	opportunity := domain.Opportunity{
		ID:             newID(),
		PromoterID:     in.PromoterID,
		Title:          in.Title,
		Description:    in.Description,
		RequiredSkills: skills,
		StartsAt:       in.StartsAt,
		EndsAt:         in.EndsAt,
		MaxVolunteers:  in.MaxVolunteers,
		Status:         domain.OpportunityStatusDraft,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.Create(ctx, opportunity); err != nil {
		return domain.Opportunity{}, err
	}
	return opportunity, nil
}

// Publish moves a draft opportunity to open, making it visible to
// volunteers. Only the owning promoter or an admin may publish.
func (s *OpportunityService) Publish(ctx context.Context, id string, actor domain.Actor) (domain.Opportunity, error) {
	var result domain.Opportunity

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		opportunity, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(opportunity) {
			return domain.ErrForbidden
		}
		if opportunity.Status != domain.OpportunityStatusDraft {
			return domain.ErrInvalidState
		}

		if err := s.repo.UpdateStatus(txCtx, id, domain.OpportunityStatusOpen); err != nil {
			return err
		}
		opportunity.Status = domain.OpportunityStatusOpen
		result = opportunity
		return nil
	})
	if err != nil {
		return domain.Opportunity{}, err
	}
	return result, nil
}

// Cancel marks an opportunity cancelled. Pending and approved
// applications are deliberately left untouched: seats are per
// opportunity, so nothing is freed elsewhere by rejecting them.
func (s *OpportunityService) Cancel(ctx context.Context, id string, actor domain.Actor) (domain.Opportunity, error) {
	var result domain.Opportunity

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		opportunity, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(opportunity) {
			return domain.ErrForbidden
		}
		if !opportunity.Cancellable() {
			return domain.ErrInvalidState
		}

		if err := s.repo.UpdateStatus(txCtx, id, domain.OpportunityStatusCancelled); err != nil {
			return err
		}
		opportunity.Status = domain.OpportunityStatusCancelled
		result = opportunity
		return nil
	})
	if err != nil {
		return domain.Opportunity{}, err
	}
	return result, nil
}

func (s *OpportunityService) Get(ctx context.Context, id string) (domain.Opportunity, error) {
	return s.repo.Get(ctx, id)
}

func (s *OpportunityService) ListOpen(ctx context.Context) ([]domain.Opportunity, error) {
	return s.repo.ListOpen(ctx)
}

func (s *OpportunityService) ListByPromoter(ctx context.Context, promoterID string) ([]domain.Opportunity, error) {
	if promoterID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListByPromoter(ctx, promoterID)
}
