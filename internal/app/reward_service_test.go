package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joserubemneto/tqs-project-sub002/internal/clock"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

func TestRewardService_Create(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	valid := RewardInput{
		Name:        "Cinema ticket",
		Description: "One standard session",
		PointsCost:  50,
	}

	t.Run("admin creates an active reward", func(t *testing.T) {
		repo := newFakeRewardRepo()
		svc := NewRewardService(repo, clock.NewFixed(now))

		reward, err := svc.Create(context.Background(), admin, valid)
		require.NoError(t, err)

		assert.NotEmpty(t, reward.ID)
		assert.True(t, reward.Active)
		assert.Equal(t, now, reward.CreatedAt)
		assert.Len(t, repo.rewards, 1)
	})

	t.Run("non-admins are forbidden", func(t *testing.T) {
		repo := newFakeRewardRepo()
		svc := NewRewardService(repo, clock.NewFixed(now))

		for _, role := range []domain.Role{domain.RoleVolunteer, domain.RolePromoter} {
			_, err := svc.Create(context.Background(), domain.Actor{ID: "u-1", Role: role}, valid)
			assert.ErrorIs(t, err, domain.ErrForbidden, "role %s", role)
		}
		assert.Empty(t, repo.rewards)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc := NewRewardService(newFakeRewardRepo(), clock.NewFixed(now))

		zero := 0
		from := now
		until := now.Add(-time.Hour)

		tests := []struct {
			name    string
			mutate  func(in *RewardInput)
			wantErr error
		}{
			{"blank name", func(in *RewardInput) { in.Name = "  " }, domain.ErrRewardNameRequired},
			{"zero cost", func(in *RewardInput) { in.PointsCost = 0 }, domain.ErrInvalidPointsCost},
			{"negative cost", func(in *RewardInput) { in.PointsCost = -5 }, domain.ErrInvalidPointsCost},
			{"zero quantity", func(in *RewardInput) { in.Quantity = &zero }, domain.ErrInvalidQuantity},
			{"window ends before it starts", func(in *RewardInput) {
				in.AvailableFrom = &from
				in.AvailableUntil = &until
			}, domain.ErrInvalidWindow},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := valid
				tt.mutate(&in)
				_, err := svc.Create(context.Background(), admin, in)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})
}

func TestRewardService_Update(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	newSvc := func() (*RewardService, *fakeRewardRepo) {
		repo := newFakeRewardRepo(domain.Reward{
			ID:         "reward-1",
			Name:       "Cinema ticket",
			PointsCost: 50,
			Active:     true,
			CreatedAt:  now.Add(-24 * time.Hour),
		})
		return NewRewardService(repo, clock.NewFixed(now)), repo
	}

	t.Run("replaces editable fields", func(t *testing.T) {
		svc, repo := newSvc()
		quantity := 5

		reward, err := svc.Update(context.Background(), admin, "reward-1", RewardInput{
			Name:       "Theatre ticket",
			PointsCost: 80,
			Quantity:   &quantity,
		})
		require.NoError(t, err)

		assert.Equal(t, "Theatre ticket", reward.Name)
		assert.Equal(t, 80, reward.PointsCost)
		assert.Equal(t, 5, *reward.Quantity)
		assert.True(t, reward.Active)
		assert.Equal(t, now.Add(-24*time.Hour), reward.CreatedAt)
		assert.Equal(t, 80, repo.rewards["reward-1"].PointsCost)
	})

	t.Run("missing reward", func(t *testing.T) {
		svc, _ := newSvc()
		_, err := svc.Update(context.Background(), admin, "missing", RewardInput{Name: "x", PointsCost: 1})
		assert.ErrorIs(t, err, domain.ErrRewardNotFound)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		svc, _ := newSvc()
		_, err := svc.Update(context.Background(), domain.Actor{ID: "p-1", Role: domain.RolePromoter}, "reward-1", RewardInput{Name: "x", PointsCost: 1})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestRewardService_Deactivate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	t.Run("soft deletes", func(t *testing.T) {
		repo := newFakeRewardRepo(domain.Reward{ID: "reward-1", Name: "Cinema ticket", PointsCost: 50, Active: true})
		svc := NewRewardService(repo, clock.NewFixed(now))

		reward, err := svc.Deactivate(context.Background(), admin, "reward-1")
		require.NoError(t, err)
		assert.False(t, reward.Active)
		assert.False(t, repo.rewards["reward-1"].Active)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		repo := newFakeRewardRepo(domain.Reward{ID: "reward-1", Active: true})
		svc := NewRewardService(repo, clock.NewFixed(now))

		_, err := svc.Deactivate(context.Background(), domain.Actor{ID: "v-1", Role: domain.RoleVolunteer}, "reward-1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.True(t, repo.rewards["reward-1"].Active)
	})
}

func TestRewardService_Listing(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	repo := newFakeRewardRepo(
		domain.Reward{ID: "active", PointsCost: 10, Active: true},
		domain.Reward{ID: "inactive", PointsCost: 10, Active: false},
		domain.Reward{ID: "windowed", PointsCost: 10, Active: true, AvailableFrom: &past, AvailableUntil: &future},
		domain.Reward{ID: "not-yet", PointsCost: 10, Active: true, AvailableFrom: &future},
		domain.Reward{ID: "expired", PointsCost: 10, Active: true, AvailableUntil: &past},
	)
	svc := NewRewardService(repo, clock.NewFixed(now))

	t.Run("available catalog filters by state and window", func(t *testing.T) {
		rewards, err := svc.ListAvailable(context.Background())
		require.NoError(t, err)

		ids := make([]string, 0, len(rewards))
		for _, r := range rewards {
			ids = append(ids, r.ID)
		}
		assert.ElementsMatch(t, []string{"active", "windowed"}, ids)
	})

	t.Run("full list is admin only", func(t *testing.T) {
		rewards, err := svc.List(context.Background(), domain.Actor{ID: "admin-1", Role: domain.RoleAdmin})
		require.NoError(t, err)
		assert.Len(t, rewards, 5)

		_, err = svc.List(context.Background(), domain.Actor{ID: "v-1", Role: domain.RoleVolunteer})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

type fakeRewardRepo struct {
	rewards map[string]domain.Reward
}

func newFakeRewardRepo(rewards ...domain.Reward) *fakeRewardRepo {
	m := make(map[string]domain.Reward)
	for _, r := range rewards {
		m[r.ID] = r
	}
	return &fakeRewardRepo{rewards: m}
}

func (f *fakeRewardRepo) Create(_ context.Context, r domain.Reward) error {
	f.rewards[r.ID] = r
	return nil
}

func (f *fakeRewardRepo) Get(_ context.Context, id string) (domain.Reward, error) {
	r, ok := f.rewards[id]
	if !ok {
		return domain.Reward{}, domain.ErrRewardNotFound
	}
	return r, nil
}

func (f *fakeRewardRepo) Update(_ context.Context, r domain.Reward) error {
	if _, ok := f.rewards[r.ID]; !ok {
		return domain.ErrRewardNotFound
	}
	f.rewards[r.ID] = r
	return nil
}

func (f *fakeRewardRepo) List(_ context.Context) ([]domain.Reward, error) {
	out := make([]domain.Reward, 0, len(f.rewards))
	for _, r := range f.rewards {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRewardRepo) ListAvailable(_ context.Context, now time.Time) ([]domain.Reward, error) {
	out := make([]domain.Reward, 0)
	for _, r := range f.rewards {
		if r.AvailableAt(now) {
			out = append(out, r)
		}
	}
	return out, nil
}
