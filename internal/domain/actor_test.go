package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorCanManage(t *testing.T) {
	t.Parallel()

	opportunity := Opportunity{ID: "opp-1", PromoterID: "promoter-1"}

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"owning promoter", Actor{ID: "promoter-1", Role: RolePromoter}, true},
		{"admin", Actor{ID: "someone-else", Role: RoleAdmin}, true},
		{"other promoter", Actor{ID: "promoter-2", Role: RolePromoter}, false},
		{"volunteer", Actor{ID: "promoter-1", Role: RoleVolunteer}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.CanManage(opportunity))
		})
	}
}
