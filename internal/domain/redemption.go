package domain

import "time"

// Redemption records a user exchanging points for a reward. PointsSpent
// is copied from the reward at redemption time and never changes, even
// if the reward's cost is edited later.
type Redemption struct {
	ID          string
	UserID      string
	RewardID    string
	PointsSpent int
	Code        string
	RedeemedAt  time.Time
}
