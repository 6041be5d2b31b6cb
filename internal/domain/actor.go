package domain

type Role string

const (
	RoleVolunteer Role = "volunteer"
	RolePromoter  Role = "promoter"
	RoleAdmin     Role = "admin"
)

// Actor is the already-authenticated caller of an operation. The core
// trusts the id and role it is handed; authentication happens upstream.
type Actor struct {
	ID   string
	Role Role
}

// CanManage is the single authorization predicate for promoter-or-admin
// operations on an opportunity and its applications.
func (a Actor) CanManage(o Opportunity) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return a.Role == RolePromoter && a.ID == o.PromoterID
}

// IsAdmin gates reward administration.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
