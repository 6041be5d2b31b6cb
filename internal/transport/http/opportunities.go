package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joserubemneto/tqs-project-sub002/internal/app"
	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

// OpportunityManager is the minimal interface the opportunity endpoints need.
type OpportunityManager interface {
	Create(ctx context.Context, in app.CreateOpportunityInput) (domain.Opportunity, error)
	Publish(ctx context.Context, id string, actor domain.Actor) (domain.Opportunity, error)
	Cancel(ctx context.Context, id string, actor domain.Actor) (domain.Opportunity, error)
	Get(ctx context.Context, id string) (domain.Opportunity, error)
	ListOpen(ctx context.Context) ([]domain.Opportunity, error)
	ListByPromoter(ctx context.Context, promoterID string) ([]domain.Opportunity, error)
}

// ApplicationAdmitter covers the application endpoints nested under an
// opportunity.
type ApplicationAdmitter interface {
	Apply(ctx context.Context, in app.ApplyInput) (domain.Application, error)
	ListForOpportunity(ctx context.Context, opportunityID string, actor domain.Actor) ([]domain.Application, error)
}

// HandleOpportunities serves POST /opportunities and GET /opportunities;
// ?promoter_id= narrows the listing to one promoter's opportunities.
func HandleOpportunities(svc OpportunityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			var opportunities []domain.Opportunity
			var err error
			if promoterID := r.URL.Query().Get("promoter_id"); promoterID != "" {
				opportunities, err = svc.ListByPromoter(r.Context(), promoterID)
			} else {
				opportunities, err = svc.ListOpen(r.Context())
			}
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]opportunityResponse, 0, len(opportunities))
			for _, o := range opportunities {
				resp = append(resp, toOpportunityResponse(o))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			actor, ok := requireActor(w, r)
			if !ok {
				return
			}
			if actor.Role != domain.RolePromoter && actor.Role != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, codeForbidden, domain.ErrForbidden.Error())
				return
			}

			var req createOpportunityRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			opportunity, err := svc.Create(r.Context(), app.CreateOpportunityInput{
				PromoterID:     actor.ID,
				Title:          req.Title,
				Description:    req.Description,
				RequiredSkills: req.RequiredSkills,
				StartsAt:       req.StartsAt,
				EndsAt:         req.EndsAt,
				MaxVolunteers:  req.MaxVolunteers,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toOpportunityResponse(opportunity))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleOpportunity serves the /opportunities/{id}... subtree:
// GET  /opportunities/{id}
// POST /opportunities/{id}/publish
// POST /opportunities/{id}/cancel
// GET  /opportunities/{id}/applications
// POST /opportunities/{id}/applications
func HandleOpportunity(svc OpportunityManager, admissions ApplicationAdmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, action := splitResourcePath(r.URL.Path, "/opportunities/")
		if id == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			opportunity, err := svc.Get(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toOpportunityResponse(opportunity))
		case "publish", "cancel":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			actor, ok := requireActor(w, r)
			if !ok {
				return
			}

			var opportunity domain.Opportunity
			var err error
			if action == "publish" {
				opportunity, err = svc.Publish(r.Context(), id, actor)
			} else {
				opportunity, err = svc.Cancel(r.Context(), id, actor)
			}
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toOpportunityResponse(opportunity))
		case "applications":
			handleOpportunityApplications(w, r, id, admissions)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleOpportunityApplications(w http.ResponseWriter, r *http.Request, opportunityID string, admissions ApplicationAdmitter) {
	switch r.Method {
	case http.MethodGet:
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		applications, err := admissions.ListForOpportunity(r.Context(), opportunityID, actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]applicationResponse, 0, len(applications))
		for _, a := range applications {
			resp = append(resp, toApplicationResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var req applyRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		application, err := admissions.Apply(r.Context(), app.ApplyInput{
			VolunteerID:   actor.ID,
			OpportunityID: opportunityID,
			Message:       req.Message,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toApplicationResponse(application))
	default:
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	}
}

// splitResourcePath turns "/opportunities/{id}/publish" into
// ("{id}", "publish"); the action is empty for the bare resource.
func splitResourcePath(path, prefix string) (id, action string) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action
}

type createOpportunityRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RequiredSkills []string  `json:"required_skills"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	MaxVolunteers  int       `json:"max_volunteers"`
}

type applyRequest struct {
	Message string `json:"message"`
}

type opportunityResponse struct {
	ID             string    `json:"id"`
	PromoterID     string    `json:"promoter_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	RequiredSkills []string  `json:"required_skills"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	MaxVolunteers  int       `json:"max_volunteers"`
	Status         string    `json:"status"`
}

func toOpportunityResponse(o domain.Opportunity) opportunityResponse {
	return opportunityResponse{
		ID:             o.ID,
		PromoterID:     o.PromoterID,
		Title:          o.Title,
		Description:    o.Description,
		RequiredSkills: o.RequiredSkills,
		StartsAt:       o.StartsAt,
		EndsAt:         o.EndsAt,
		MaxVolunteers:  o.MaxVolunteers,
		Status:         string(o.Status),
	}
}
