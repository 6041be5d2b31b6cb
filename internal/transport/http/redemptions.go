package http

import (
	"context"
	"net/http"
	"time"

	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

// RedemptionHistory is the minimal interface for a user's redemption
// history endpoints.
type RedemptionHistory interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Redemption, error)
	TotalPointsSpent(ctx context.Context, userID string) (int, error)
}

// HandleUserRedemptions serves the /users/{id}/redemptions subtree:
// GET /users/{id}/redemptions
// GET /users/{id}/redemptions/total
// Users may read their own history; admins may read anyone's.
func HandleUserRedemptions(svc RedemptionHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, action := splitResourcePath(r.URL.Path, "/users/")
		if userID == "" || (action != "redemptions" && action != "redemptions/total") {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		if actor.ID != userID && !actor.IsAdmin() {
			writeError(w, http.StatusForbidden, codeForbidden, domain.ErrForbidden.Error())
			return
		}

		if action == "redemptions/total" {
			total, err := svc.TotalPointsSpent(r.Context(), userID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, totalPointsResponse{TotalPointsSpent: total})
			return
		}

		redemptions, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]redemptionResponse, 0, len(redemptions))
		for _, redemption := range redemptions {
			resp = append(resp, toRedemptionResponse(redemption))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type redemptionResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RewardID    string    `json:"reward_id"`
	PointsSpent int       `json:"points_spent"`
	Code        string    `json:"code"`
	RedeemedAt  time.Time `json:"redeemed_at"`
}

type totalPointsResponse struct {
	TotalPointsSpent int `json:"total_points_spent"`
}

func toRedemptionResponse(redemption domain.Redemption) redemptionResponse {
	return redemptionResponse{
		ID:          redemption.ID,
		UserID:      redemption.UserID,
		RewardID:    redemption.RewardID,
		PointsSpent: redemption.PointsSpent,
		Code:        redemption.Code,
		RedeemedAt:  redemption.RedeemedAt,
	}
}
