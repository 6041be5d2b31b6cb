package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joserubemneto/tqs-project-sub002/internal/clock"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

func TestApplicationService_Apply(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	newSvc := func(opportunity domain.Opportunity, applications ...domain.Application) (*ApplicationService, *fakeAdmissionRepo) {
		repo := newFakeAdmissionRepo([]string{"vol-1", "vol-2"}, opportunity, applications...)
		return NewApplicationService(repo, clock.NewFixed(now)), repo
	}

	openOpp := domain.Opportunity{
		ID:            "opp-1",
		PromoterID:    "promoter-1",
		MaxVolunteers: 2,
		Status:        domain.OpportunityStatusOpen,
	}

	t.Run("creates pending application", func(t *testing.T) {
		svc, repo := newSvc(openOpp)

		application, err := svc.Apply(context.Background(), ApplyInput{
			VolunteerID:   "vol-1",
			OpportunityID: "opp-1",
			Message:       "happy to help",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, application.ID)
		assert.Equal(t, domain.ApplicationStatusPending, application.Status)
		assert.Equal(t, now, application.AppliedAt)
		assert.Nil(t, application.ReviewedAt)
		assert.Len(t, repo.applications, 1)
	})

	t.Run("missing volunteer", func(t *testing.T) {
		svc, _ := newSvc(openOpp)
		_, err := svc.Apply(context.Background(), ApplyInput{VolunteerID: "ghost", OpportunityID: "opp-1"})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("missing opportunity", func(t *testing.T) {
		svc, _ := newSvc(openOpp)
		_, err := svc.Apply(context.Background(), ApplyInput{VolunteerID: "vol-1", OpportunityID: "missing"})
		assert.ErrorIs(t, err, domain.ErrOpportunityNotFound)
	})

	t.Run("non-open opportunity", func(t *testing.T) {
		for _, status := range []domain.OpportunityStatus{
			domain.OpportunityStatusDraft,
			domain.OpportunityStatusFull,
			domain.OpportunityStatusInProgress,
			domain.OpportunityStatusCompleted,
			domain.OpportunityStatusCancelled,
		} {
			opp := openOpp
			opp.Status = status
			svc, _ := newSvc(opp)
			_, err := svc.Apply(context.Background(), ApplyInput{VolunteerID: "vol-1", OpportunityID: "opp-1"})
			assert.ErrorIs(t, err, domain.ErrInvalidState, "status %s", status)
		}
	})

	t.Run("second apply fails and creates no second row", func(t *testing.T) {
		svc, repo := newSvc(openOpp)

		_, err := svc.Apply(context.Background(), ApplyInput{VolunteerID: "vol-1", OpportunityID: "opp-1"})
		require.NoError(t, err)

		_, err = svc.Apply(context.Background(), ApplyInput{VolunteerID: "vol-1", OpportunityID: "opp-1"})
		assert.ErrorIs(t, err, domain.ErrAlreadyApplied)
		assert.Len(t, repo.applications, 1)
	})

	t.Run("rejected volunteer cannot reapply", func(t *testing.T) {
		reviewed := now.Add(-time.Hour)
		svc, _ := newSvc(openOpp, domain.Application{
			ID:            "app-1",
			OpportunityID: "opp-1",
			VolunteerID:   "vol-1",
			Status:        domain.ApplicationStatusRejected,
			ReviewedAt:    &reviewed,
		})
		_, err := svc.Apply(context.Background(), ApplyInput{VolunteerID: "vol-1", OpportunityID: "opp-1"})
		assert.ErrorIs(t, err, domain.ErrAlreadyApplied)
	})

	t.Run("no spots when all seats approved", func(t *testing.T) {
		opp := openOpp
		opp.MaxVolunteers = 1
		svc, _ := newSvc(opp, domain.Application{
			ID:            "app-1",
			OpportunityID: "opp-1",
			VolunteerID:   "vol-2",
			Status:        domain.ApplicationStatusApproved,
		})
		_, err := svc.Apply(context.Background(), ApplyInput{VolunteerID: "vol-1", OpportunityID: "opp-1"})
		assert.ErrorIs(t, err, domain.ErrNoSpots)
	})

	t.Run("pending applications do not consume capacity", func(t *testing.T) {
		opp := openOpp
		opp.MaxVolunteers = 1
		svc, repo := newSvc(opp, domain.Application{
			ID:            "app-1",
			OpportunityID: "opp-1",
			VolunteerID:   "vol-2",
			Status:        domain.ApplicationStatusPending,
		})
		_, err := svc.Apply(context.Background(), ApplyInput{VolunteerID: "vol-1", OpportunityID: "opp-1"})
		assert.NoError(t, err)
		assert.Len(t, repo.applications, 2)
	})
}

func TestApplicationService_Approve(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	owner := domain.Actor{ID: "promoter-1", Role: domain.RolePromoter}

	t.Run("approves pending application", func(t *testing.T) {
		repo := newFakeAdmissionRepo([]string{"vol-1"}, domain.Opportunity{
			ID:            "opp-1",
			PromoterID:    "promoter-1",
			MaxVolunteers: 3,
			Status:        domain.OpportunityStatusOpen,
		}, domain.Application{
			ID:            "app-1",
			OpportunityID: "opp-1",
			VolunteerID:   "vol-1",
			Status:        domain.ApplicationStatusPending,
		})
		svc := NewApplicationService(repo, clock.NewFixed(now))

		application, err := svc.Approve(context.Background(), "app-1", owner)
		require.NoError(t, err)

		assert.Equal(t, domain.ApplicationStatusApproved, application.Status)
		require.NotNil(t, application.ReviewedAt)
		assert.Equal(t, now, *application.ReviewedAt)
		// two seats remain, status stays open
		assert.Equal(t, domain.OpportunityStatusOpen, repo.opportunities["opp-1"].Status)
	})

	t.Run("approving the last seat flips the opportunity to full", func(t *testing.T) {
		opportunity := domain.Opportunity{
			ID:            "opp-1",
			PromoterID:    "promoter-1",
			MaxVolunteers: 10,
			Status:        domain.OpportunityStatusOpen,
		}
		seeded := make([]domain.Application, 0, 10)
		volunteers := make([]string, 0, 10)
		for i := 0; i < 9; i++ {
			id := "vol-" + string(rune('a'+i))
			volunteers = append(volunteers, id)
			seeded = append(seeded, domain.Application{
				ID:            "app-" + id,
				OpportunityID: "opp-1",
				VolunteerID:   id,
				Status:        domain.ApplicationStatusApproved,
			})
		}
		volunteers = append(volunteers, "vol-last")
		seeded = append(seeded, domain.Application{
			ID:            "app-last",
			OpportunityID: "opp-1",
			VolunteerID:   "vol-last",
			Status:        domain.ApplicationStatusPending,
		})

		repo := newFakeAdmissionRepo(volunteers, opportunity, seeded...)
		svc := NewApplicationService(repo, clock.NewFixed(now))

		application, err := svc.Approve(context.Background(), "app-last", owner)
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationStatusApproved, application.Status)
		assert.Equal(t, domain.OpportunityStatusFull, repo.opportunities["opp-1"].Status)
	})

	t.Run("no spots at capacity", func(t *testing.T) {
		repo := newFakeAdmissionRepo([]string{"vol-1", "vol-2"}, domain.Opportunity{
			ID:            "opp-1",
			PromoterID:    "promoter-1",
			MaxVolunteers: 1,
			Status:        domain.OpportunityStatusFull,
		},
			domain.Application{ID: "app-1", OpportunityID: "opp-1", VolunteerID: "vol-1", Status: domain.ApplicationStatusApproved},
			domain.Application{ID: "app-2", OpportunityID: "opp-1", VolunteerID: "vol-2", Status: domain.ApplicationStatusPending},
		)
		svc := NewApplicationService(repo, clock.NewFixed(now))

		_, err := svc.Approve(context.Background(), "app-2", owner)
		assert.ErrorIs(t, err, domain.ErrNoSpots)
		assert.Equal(t, domain.ApplicationStatusPending, repo.applications["app-2"].Status)
	})

	t.Run("only one of two concurrent approvals of the last seat succeeds", func(t *testing.T) {
		repo := newFakeAdmissionRepo([]string{"vol-1", "vol-2"}, domain.Opportunity{
			ID:            "opp-1",
			PromoterID:    "promoter-1",
			MaxVolunteers: 1,
			Status:        domain.OpportunityStatusOpen,
		},
			domain.Application{ID: "app-1", OpportunityID: "opp-1", VolunteerID: "vol-1", Status: domain.ApplicationStatusPending},
			domain.Application{ID: "app-2", OpportunityID: "opp-1", VolunteerID: "vol-2", Status: domain.ApplicationStatusPending},
		)
		svc := NewApplicationService(repo, clock.NewFixed(now))

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for _, id := range []string{"app-1", "app-2"} {
			wg.Add(1)
			go func(applicationID string) {
				defer wg.Done()
				_, err := svc.Approve(context.Background(), applicationID, owner)
				errs <- err
			}(id)
		}
		wg.Wait()
		close(errs)

		var succeeded, noSpots int
		for err := range errs {
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, domain.ErrNoSpots):
				noSpots++
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, noSpots)

		approved := 0
		for _, a := range repo.applications {
			if a.Status == domain.ApplicationStatusApproved {
				approved++
			}
		}
		assert.Equal(t, 1, approved)
		assert.Equal(t, domain.OpportunityStatusFull, repo.opportunities["opp-1"].Status)
	})

	t.Run("forbidden for other promoters", func(t *testing.T) {
		repo := newFakeAdmissionRepo([]string{"vol-1"}, domain.Opportunity{
			ID:            "opp-1",
			PromoterID:    "promoter-1",
			MaxVolunteers: 1,
			Status:        domain.OpportunityStatusOpen,
		}, domain.Application{ID: "app-1", OpportunityID: "opp-1", VolunteerID: "vol-1", Status: domain.ApplicationStatusPending})
		svc := NewApplicationService(repo, clock.NewFixed(now))

		_, err := svc.Approve(context.Background(), "app-1", domain.Actor{ID: "promoter-2", Role: domain.RolePromoter})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("already reviewed is invalid state", func(t *testing.T) {
		reviewed := now.Add(-time.Hour)
		repo := newFakeAdmissionRepo([]string{"vol-1"}, domain.Opportunity{
			ID:            "opp-1",
			PromoterID:    "promoter-1",
			MaxVolunteers: 5,
			Status:        domain.OpportunityStatusOpen,
		}, domain.Application{
			ID:            "app-1",
			OpportunityID: "opp-1",
			VolunteerID:   "vol-1",
			Status:        domain.ApplicationStatusApproved,
			ReviewedAt:    &reviewed,
		})
		svc := NewApplicationService(repo, clock.NewFixed(now))

		_, err := svc.Approve(context.Background(), "app-1", owner)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		// reviewed_at untouched by the failed second review
		assert.Equal(t, reviewed, *repo.applications["app-1"].ReviewedAt)
	})
}

func TestApplicationService_Reject(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	owner := domain.Actor{ID: "promoter-1", Role: domain.RolePromoter}

	repoWith := func(status domain.ApplicationStatus) *fakeAdmissionRepo {
		return newFakeAdmissionRepo([]string{"vol-1"}, domain.Opportunity{
			ID:            "opp-1",
			PromoterID:    "promoter-1",
			MaxVolunteers: 1,
			Status:        domain.OpportunityStatusOpen,
		}, domain.Application{ID: "app-1", OpportunityID: "opp-1", VolunteerID: "vol-1", Status: status})
	}

	t.Run("rejects pending application", func(t *testing.T) {
		repo := repoWith(domain.ApplicationStatusPending)
		svc := NewApplicationService(repo, clock.NewFixed(now))

		application, err := svc.Reject(context.Background(), "app-1", owner)
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationStatusRejected, application.Status)
		require.NotNil(t, application.ReviewedAt)
		assert.Equal(t, now, *application.ReviewedAt)
		// rejection never touches the opportunity
		assert.Equal(t, domain.OpportunityStatusOpen, repo.opportunities["opp-1"].Status)
	})

	t.Run("already reviewed is invalid state", func(t *testing.T) {
		repo := repoWith(domain.ApplicationStatusRejected)
		svc := NewApplicationService(repo, clock.NewFixed(now))

		_, err := svc.Reject(context.Background(), "app-1", owner)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestApplicationService_Queries(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	owner := domain.Actor{ID: "promoter-1", Role: domain.RolePromoter}

	repo := newFakeAdmissionRepo([]string{"vol-1", "vol-2"}, domain.Opportunity{
		ID:            "opp-1",
		PromoterID:    "promoter-1",
		MaxVolunteers: 5,
		Status:        domain.OpportunityStatusOpen,
	},
		domain.Application{ID: "app-1", OpportunityID: "opp-1", VolunteerID: "vol-1", Status: domain.ApplicationStatusApproved, AppliedAt: now.Add(-2 * time.Hour)},
		domain.Application{ID: "app-2", OpportunityID: "opp-1", VolunteerID: "vol-2", Status: domain.ApplicationStatusPending, AppliedAt: now.Add(-time.Hour)},
	)
	svc := NewApplicationService(repo, clock.NewFixed(now))

	t.Run("list for opportunity ordered by applied_at", func(t *testing.T) {
		applications, err := svc.ListForOpportunity(context.Background(), "opp-1", owner)
		require.NoError(t, err)
		require.Len(t, applications, 2)
		assert.Equal(t, "app-1", applications[0].ID)
		assert.Equal(t, "app-2", applications[1].ID)
	})

	t.Run("list for opportunity requires management rights", func(t *testing.T) {
		_, err := svc.ListForOpportunity(context.Background(), "opp-1", domain.Actor{ID: "vol-1", Role: domain.RoleVolunteer})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("get for pair returns nil when absent", func(t *testing.T) {
		application, err := svc.GetForPair(context.Background(), "vol-1", "opp-other")
		require.NoError(t, err)
		assert.Nil(t, application)
	})

	t.Run("approved count", func(t *testing.T) {
		count, err := svc.ApprovedCount(context.Background(), "opp-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

// fakeAdmissionRepo serializes WithTx with a mutex, mirroring the row
// locks the Postgres repository takes, so the race tests exercise the
// same linearization the real store provides.
type fakeAdmissionRepo struct {
	mu            sync.Mutex
	users         map[string]bool
	opportunities map[string]domain.Opportunity
	applications  map[string]domain.Application
	order         []string
}

func newFakeAdmissionRepo(volunteers []string, opportunity domain.Opportunity, applications ...domain.Application) *fakeAdmissionRepo {
	users := make(map[string]bool)
	for _, id := range volunteers {
		users[id] = true
	}
	apps := make(map[string]domain.Application)
	order := make([]string, 0, len(applications))
	for _, a := range applications {
		apps[a.ID] = a
		order = append(order, a.ID)
	}
	return &fakeAdmissionRepo{
		users:         users,
		opportunities: map[string]domain.Opportunity{opportunity.ID: opportunity},
		applications:  apps,
		order:         order,
	}
}

func (f *fakeAdmissionRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeAdmissionRepo) Create(_ context.Context, a domain.Application) error {
	for _, existing := range f.applications {
		if existing.OpportunityID == a.OpportunityID && existing.VolunteerID == a.VolunteerID {
			return domain.ErrAlreadyApplied
		}
	}
	f.applications[a.ID] = a
	f.order = append(f.order, a.ID)
	return nil
}

func (f *fakeAdmissionRepo) GetForUpdate(_ context.Context, id string) (domain.Application, error) {
	a, ok := f.applications[id]
	if !ok {
		return domain.Application{}, domain.ErrApplicationNotFound
	}
	return a, nil
}

func (f *fakeAdmissionRepo) FindByPair(_ context.Context, volunteerID, opportunityID string) (*domain.Application, error) {
	for _, a := range f.applications {
		if a.VolunteerID == volunteerID && a.OpportunityID == opportunityID {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeAdmissionRepo) CountApproved(_ context.Context, opportunityID string) (int, error) {
	count := 0
	for _, a := range f.applications {
		if a.OpportunityID == opportunityID && a.Status == domain.ApplicationStatusApproved {
			count++
		}
	}
	return count, nil
}

func (f *fakeAdmissionRepo) SetReviewed(_ context.Context, id string, status domain.ApplicationStatus, reviewedAt time.Time) error {
	a, ok := f.applications[id]
	if !ok {
		return domain.ErrApplicationNotFound
	}
	if a.Status != domain.ApplicationStatusPending {
		return domain.ErrInvalidState
	}
	a.Status = status
	a.ReviewedAt = &reviewedAt
	f.applications[id] = a
	return nil
}

func (f *fakeAdmissionRepo) ListByOpportunity(_ context.Context, opportunityID string) ([]domain.Application, error) {
	out := make([]domain.Application, 0)
	for _, id := range f.order {
		a := f.applications[id]
		if a.OpportunityID == opportunityID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAdmissionRepo) ListByVolunteer(_ context.Context, volunteerID string) ([]domain.Application, error) {
	out := make([]domain.Application, 0)
	for _, id := range f.order {
		a := f.applications[id]
		if a.VolunteerID == volunteerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAdmissionRepo) GetOpportunity(_ context.Context, id string) (domain.Opportunity, error) {
	o, ok := f.opportunities[id]
	if !ok {
		return domain.Opportunity{}, domain.ErrOpportunityNotFound
	}
	return o, nil
}

func (f *fakeAdmissionRepo) GetOpportunityForUpdate(ctx context.Context, id string) (domain.Opportunity, error) {
	return f.GetOpportunity(ctx, id)
}

func (f *fakeAdmissionRepo) UpdateOpportunityStatus(_ context.Context, id string, status domain.OpportunityStatus) error {
	o, ok := f.opportunities[id]
	if !ok {
		return domain.ErrOpportunityNotFound
	}
	o.Status = status
	f.opportunities[id] = o
	return nil
}

func (f *fakeAdmissionRepo) UserExists(_ context.Context, id string) (bool, error) {
	return f.users[id], nil
}
