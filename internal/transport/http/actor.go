package http

import (
	"net/http"

	"github.com/joserubemneto/tqs-project-sub002/internal/domain"
)

// Caller identity arrives pre-authenticated from the gateway in these
// headers; the service never sees credentials.
const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

func actorFromRequest(r *http.Request) (domain.Actor, bool) {
	id := r.Header.Get(actorIDHeader)
	role := domain.Role(r.Header.Get(actorRoleHeader))
	if id == "" {
		return domain.Actor{}, false
	}
	switch role {
	case domain.RoleVolunteer, domain.RolePromoter, domain.RoleAdmin:
	default:
		return domain.Actor{}, false
	}
	return domain.Actor{ID: id, Role: role}, true
}

func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid actor identity")
	}
	return actor, ok
}
