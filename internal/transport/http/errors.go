package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeValidationFailed    = "validation_failed"
	codeUnauthorized        = "unauthorized"
	codeForbidden           = "forbidden"
	codeInvalidState        = "invalid_state"
	codeAlreadyApplied      = "already_applied"
	codeNoSpots             = "no_spots"
	codeRewardNotAvailable  = "reward_not_available"
	codeInsufficientPoints  = "insufficient_points"
	codeConcurrencyConflict = "conflict"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the core error taxonomy onto HTTP statuses:
// absent → 404, not allowed → 403, recoverable capacity/stock/points
// and lifecycle failures → 409, bad input → 400.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOpportunityNotFound),
		errors.Is(err, domain.ErrApplicationNotFound),
		errors.Is(err, domain.ErrRewardNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, codeInvalidState, err.Error())
	case errors.Is(err, domain.ErrAlreadyApplied):
		writeError(w, http.StatusConflict, codeAlreadyApplied, err.Error())
	case errors.Is(err, domain.ErrNoSpots):
		writeError(w, http.StatusConflict, codeNoSpots, err.Error())
	case errors.Is(err, domain.ErrRewardNotAvailable):
		writeError(w, http.StatusConflict, codeRewardNotAvailable, err.Error())
	case errors.Is(err, domain.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, codeInsufficientPoints, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, codeConcurrencyConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrTitleRequired),
		errors.Is(err, domain.ErrInvalidSchedule),
		errors.Is(err, domain.ErrInvalidCapacity),
		errors.Is(err, domain.ErrSkillsRequired),
		errors.Is(err, domain.ErrRewardNameRequired),
		errors.Is(err, domain.ErrInvalidPointsCost),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
