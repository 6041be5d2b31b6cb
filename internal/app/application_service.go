package app

import (
	"context"
	"time"

	"github.com/joserubemneto/tqs-project-sub002/internal/clock"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

type ApplicationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, a domain.Application) error
	GetForUpdate(ctx context.Context, id string) (domain.Application, error)
	FindByPair(ctx context.Context, volunteerID, opportunityID string) (*domain.Application, error)
	CountApproved(ctx context.Context, opportunityID string) (int, error)
	SetReviewed(ctx context.Context, id string, status domain.ApplicationStatus, reviewedAt time.Time) error
	ListByOpportunity(ctx context.Context, opportunityID string) ([]domain.Application, error)
	ListByVolunteer(ctx context.Context, volunteerID string) ([]domain.Application, error)
	GetOpportunity(ctx context.Context, id string) (domain.Opportunity, error)
	GetOpportunityForUpdate(ctx context.Context, id string) (domain.Opportunity, error)
	UpdateOpportunityStatus(ctx context.Context, id string, status domain.OpportunityStatus) error
	UserExists(ctx context.Context, id string) (bool, error)
}

// ApplicationService is the admission controller: it guards the
// capacity invariant (approved applications never exceed an
// opportunity's seats) and the one-application-per-pair rule.
type ApplicationService struct {
	repo  ApplicationRepository
	clock clock.Clock
}

func NewApplicationService(repo ApplicationRepository, clk clock.Clock) *ApplicationService {
	return &ApplicationService{
		repo:  repo,
		clock: clk,
	}
}

type ApplyInput struct {
	VolunteerID   string
	OpportunityID string
	Message       string
}

// Apply files a pending application against an open opportunity. The
// capacity check here is advisory only, since pending applications
// never consume seats, but applying to an opportunity whose seats are
// all approved is rejected up front.
func (s *ApplicationService) Apply(ctx context.Context, in ApplyInput) (domain.Application, error) {
	if in.VolunteerID == "" || in.OpportunityID == "" {
		return domain.Application{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Application

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.UserExists(txCtx, in.VolunteerID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrUserNotFound
		}

		opportunity, err := s.repo.GetOpportunity(txCtx, in.OpportunityID)
		if err != nil {
			return err
		}
		if opportunity.Status != domain.OpportunityStatusOpen {
			return domain.ErrInvalidState
		}

		if existing, err := s.repo.FindByPair(txCtx, in.VolunteerID, in.OpportunityID); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrAlreadyApplied
		}

		approved, err := s.repo.CountApproved(txCtx, in.OpportunityID)
		if err != nil {
			return err
		}
		if approved >= opportunity.MaxVolunteers {
			return domain.ErrNoSpots
		}

		application := domain.Application{
			ID:            newID(),
			OpportunityID: in.OpportunityID,
			VolunteerID:   in.VolunteerID,
			Message:       in.Message,
			Status:        domain.ApplicationStatusPending,
			AppliedAt:     now,
		}

		// The unique (opportunity, volunteer) index backs the pre-check:
		// a concurrent duplicate surfaces as ErrAlreadyApplied from Create.
		if err := s.repo.Create(txCtx, application); err != nil {
			return err
		}

		result = application
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}
	return result, nil
}

// Approve grants a seat. The approved count is re-read while holding
// the opportunity row lock, so two approvals racing for the last seat
// serialize and exactly one sees capacity left. Filling the last seat
// flips the opportunity open → full inside the same transaction.
func (s *ApplicationService) Approve(ctx context.Context, applicationID string, actor domain.Actor) (domain.Application, error) {
	now := s.clock.Now()
	var result domain.Application

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		application, err := s.repo.GetForUpdate(txCtx, applicationID)
		if err != nil {
			return err
		}

		opportunity, err := s.repo.GetOpportunityForUpdate(txCtx, application.OpportunityID)
		if err != nil {
			return err
		}
		if !actor.CanManage(opportunity) {
			return domain.ErrForbidden
		}
		if application.Status != domain.ApplicationStatusPending {
			return domain.ErrInvalidState
		}

		approved, err := s.repo.CountApproved(txCtx, application.OpportunityID)
		if err != nil {
			return err
		}
		if approved >= opportunity.MaxVolunteers {
			return domain.ErrNoSpots
		}

		if err := s.repo.SetReviewed(txCtx, applicationID, domain.ApplicationStatusApproved, now); err != nil {
			return err
		}

		if approved+1 == opportunity.MaxVolunteers && opportunity.Status == domain.OpportunityStatusOpen {
			if err := s.repo.UpdateOpportunityStatus(txCtx, opportunity.ID, domain.OpportunityStatusFull); err != nil {
				return err
			}
		}

		application.Status = domain.ApplicationStatusApproved
		reviewedAt := now
		application.ReviewedAt = &reviewedAt
		result = application
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}
	return result, nil
}

// Reject reviews an application without touching capacity.
func (s *ApplicationService) Reject(ctx context.Context, applicationID string, actor domain.Actor) (domain.Application, error) {
	now := s.clock.Now()
	var result domain.Application

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		application, err := s.repo.GetForUpdate(txCtx, applicationID)
		if err != nil {
			return err
		}

		opportunity, err := s.repo.GetOpportunity(txCtx, application.OpportunityID)
		if err != nil {
			return err
		}
		if !actor.CanManage(opportunity) {
			return domain.ErrForbidden
		}
		if application.Status != domain.ApplicationStatusPending {
			return domain.ErrInvalidState
		}

		if err := s.repo.SetReviewed(txCtx, applicationID, domain.ApplicationStatusRejected, now); err != nil {
			return err
		}

		application.Status = domain.ApplicationStatusRejected
		reviewedAt := now
		application.ReviewedAt = &reviewedAt
		result = application
		return nil
	})
	if err != nil {
		return domain.Application{}, err
	}
	return result, nil
}

// ListForOpportunity returns every application for the opportunity,
// whatever its status, ordered by applied_at. Same authorization as
// approve and reject.
func (s *ApplicationService) ListForOpportunity(ctx context.Context, opportunityID string, actor domain.Actor) ([]domain.Application, error) {
	opportunity, err := s.repo.GetOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(opportunity) {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListByOpportunity(ctx, opportunityID)
}

func (s *ApplicationService) ListForVolunteer(ctx context.Context, volunteerID string) ([]domain.Application, error) {
	if volunteerID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListByVolunteer(ctx, volunteerID)
}

// GetForPair is a query, not a precondition check: a missing
// application returns nil rather than an error.
func (s *ApplicationService) GetForPair(ctx context.Context, volunteerID, opportunityID string) (*domain.Application, error) {
	if volunteerID == "" || opportunityID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.FindByPair(ctx, volunteerID, opportunityID)
}

func (s *ApplicationService) ApprovedCount(ctx context.Context, opportunityID string) (int, error) {
	if opportunityID == "" {
		return 0, domain.ErrInvalidID
	}
	return s.repo.CountApproved(ctx, opportunityID)
}
