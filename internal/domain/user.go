package domain

import "time"

// User carries the points balance. Identity issuance and profile CRUD
// live elsewhere; the core only reads users and debits points.
type User struct {
	ID        string
	Name      string
	Role      Role
	Points    int
	CreatedAt time.Time
}
