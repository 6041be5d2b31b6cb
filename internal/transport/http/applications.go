package http

import (
	"context"
	"net/http"
	"time"

	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

// ApplicationReviewer is the minimal interface for reviewing and
// querying applications outside the opportunity subtree.
type ApplicationReviewer interface {
	Approve(ctx context.Context, applicationID string, actor domain.Actor) (domain.Application, error)
	Reject(ctx context.Context, applicationID string, actor domain.Actor) (domain.Application, error)
	ListForVolunteer(ctx context.Context, volunteerID string) ([]domain.Application, error)
	GetForPair(ctx context.Context, volunteerID, opportunityID string) (*domain.Application, error)
}

// HandleApplications serves GET /applications. With only volunteer_id
// it lists that volunteer's applications; adding opportunity_id narrows
// to the single application for the pair, returned as an empty list
// when absent.
func HandleApplications(svc ApplicationReviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		volunteerID := r.URL.Query().Get("volunteer_id")
		opportunityID := r.URL.Query().Get("opportunity_id")
		if volunteerID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "volunteer_id is required")
			return
		}

		if opportunityID != "" {
			application, err := svc.GetForPair(r.Context(), volunteerID, opportunityID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]applicationResponse, 0, 1)
			if application != nil {
				resp = append(resp, toApplicationResponse(*application))
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		applications, err := svc.ListForVolunteer(r.Context(), volunteerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]applicationResponse, 0, len(applications))
		for _, a := range applications {
			resp = append(resp, toApplicationResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleApplicationReview serves POST /applications/{id}/approve and
// POST /applications/{id}/reject.
func HandleApplicationReview(svc ApplicationReviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, action := splitResourcePath(r.URL.Path, "/applications/")
		if id == "" || (action != "approve" && action != "reject") {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var application domain.Application
		var err error
		if action == "approve" {
			application, err = svc.Approve(r.Context(), id, actor)
		} else {
			application, err = svc.Reject(r.Context(), id, actor)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toApplicationResponse(application))
	}
}

type applicationResponse struct {
	ID            string     `json:"id"`
	OpportunityID string     `json:"opportunity_id"`
	VolunteerID   string     `json:"volunteer_id"`
	Message       string     `json:"message,omitempty"`
	Status        string     `json:"status"`
	AppliedAt     time.Time  `json:"applied_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

func toApplicationResponse(a domain.Application) applicationResponse {
	return applicationResponse{
		ID:            a.ID,
		OpportunityID: a.OpportunityID,
		VolunteerID:   a.VolunteerID,
		Message:       a.Message,
		Status:        string(a.Status),
		AppliedAt:     a.AppliedAt,
		ReviewedAt:    a.ReviewedAt,
	}
}
