package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/joserubemneto/tqs-project-sub002/internal/app"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

// RewardCatalog is the minimal interface for reward administration and
// listing.
type RewardCatalog interface {
	Create(ctx context.Context, actor domain.Actor, in app.RewardInput) (domain.Reward, error)
	Update(ctx context.Context, actor domain.Actor, id string, in app.RewardInput) (domain.Reward, error)
	Deactivate(ctx context.Context, actor domain.Actor, id string) (domain.Reward, error)
	Get(ctx context.Context, id string) (domain.Reward, error)
	List(ctx context.Context, actor domain.Actor) ([]domain.Reward, error)
	ListAvailable(ctx context.Context) ([]domain.Reward, error)
}

// Redeemer is the minimal interface for spending points.
type Redeemer interface {
	Redeem(ctx context.Context, userID, rewardID string) (domain.Redemption, error)
}

// HandleRewards serves GET /rewards (the public catalog, or the full
// catalog for admins with ?all=true) and POST /rewards.
func HandleRewards(svc RewardCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			var rewards []domain.Reward
			var err error
			if r.URL.Query().Get("all") == "true" {
				actor, ok := requireActor(w, r)
				if !ok {
					return
				}
				rewards, err = svc.List(r.Context(), actor)
			} else {
				rewards, err = svc.ListAvailable(r.Context())
			}
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]rewardResponse, 0, len(rewards))
			for _, reward := range rewards {
				resp = append(resp, toRewardResponse(reward))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			actor, ok := requireActor(w, r)
			if !ok {
				return
			}
			req, ok := decodeRewardRequest(w, r)
			if !ok {
				return
			}
			reward, err := svc.Create(r.Context(), actor, req.toInput())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toRewardResponse(reward))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleReward serves the /rewards/{id}... subtree:
// GET  /rewards/{id}
// PUT  /rewards/{id}
// POST /rewards/{id}/deactivate
// POST /rewards/{id}/redeem
func HandleReward(svc RewardCatalog, redeemer Redeemer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, action := splitResourcePath(r.URL.Path, "/rewards/")
		if id == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "":
			switch r.Method {
			case http.MethodGet:
				reward, err := svc.Get(r.Context(), id)
				if err != nil {
					writeDomainError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, toRewardResponse(reward))
			case http.MethodPut:
				actor, ok := requireActor(w, r)
				if !ok {
					return
				}
				req, ok := decodeRewardRequest(w, r)
				if !ok {
					return
				}
				reward, err := svc.Update(r.Context(), actor, id, req.toInput())
				if err != nil {
					writeDomainError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, toRewardResponse(reward))
			default:
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			}
		case "deactivate":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			actor, ok := requireActor(w, r)
			if !ok {
				return
			}
			reward, err := svc.Deactivate(r.Context(), actor, id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toRewardResponse(reward))
		case "redeem":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			actor, ok := requireActor(w, r)
			if !ok {
				return
			}
			redemption, err := redeemer.Redeem(r.Context(), actor.ID, id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toRedemptionResponse(redemption))
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

type rewardRequest struct {
	PartnerID      *string    `json:"partner_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	PointsCost     int        `json:"points_cost"`
	Quantity       *int       `json:"quantity"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
}

func decodeRewardRequest(w http.ResponseWriter, r *http.Request) (rewardRequest, bool) {
	var req rewardRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return rewardRequest{}, false
	}
	return req, true
}

func (req rewardRequest) toInput() app.RewardInput {
	return app.RewardInput{
		PartnerID:      req.PartnerID,
		Name:           req.Name,
		Description:    req.Description,
		PointsCost:     req.PointsCost,
		Quantity:       req.Quantity,
		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
	}
}

type rewardResponse struct {
	ID             string     `json:"id"`
	PartnerID      *string    `json:"partner_id,omitempty"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	PointsCost     int        `json:"points_cost"`
	Quantity       *int       `json:"quantity,omitempty"`
	Active         bool       `json:"active"`
	AvailableFrom  *time.Time `json:"available_from,omitempty"`
	AvailableUntil *time.Time `json:"available_until,omitempty"`
}

func toRewardResponse(reward domain.Reward) rewardResponse {
	return rewardResponse{
		ID:             reward.ID,
		PartnerID:      reward.PartnerID,
		Name:           reward.Name,
		Description:    reward.Description,
		PointsCost:     reward.PointsCost,
		Quantity:       reward.Quantity,
		Active:         reward.Active,
		AvailableFrom:  reward.AvailableFrom,
		AvailableUntil: reward.AvailableUntil,
	}
}
