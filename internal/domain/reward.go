package domain

import "time"

// Reward is something a user can spend points on. Quantity nil means
// unlimited stock; Active false is a soft delete and takes effect
// immediately for new redemptions.
type Reward struct {
	ID             string
	PartnerID      *string
	Name           string
	Description    string
	PointsCost     int
	Quantity       *int
	Active         bool
	AvailableFrom  *time.Time
	AvailableUntil *time.Time
	CreatedAt      time.Time
}

// AvailableAt reports whether the reward's availability window covers t.
// Stock is checked separately, against the redemption count.
func (r Reward) AvailableAt(t time.Time) bool {
	if !r.Active {
		return false
	}
	if r.AvailableFrom != nil && t.Before(*r.AvailableFrom) {
		return false
	}
	if r.AvailableUntil != nil && t.After(*r.AvailableUntil) {
		return false
	}
	return true
}
