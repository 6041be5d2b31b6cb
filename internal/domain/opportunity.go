package domain

import "time"

type OpportunityStatus string

const (
	OpportunityStatusDraft      OpportunityStatus = "draft"
	OpportunityStatusOpen       OpportunityStatus = "open"
	OpportunityStatusFull       OpportunityStatus = "full"
	OpportunityStatusInProgress OpportunityStatus = "in_progress"
	OpportunityStatusCompleted  OpportunityStatus = "completed"
	OpportunityStatusCancelled  OpportunityStatus = "cancelled"
)

// Opportunity is a volunteering event with a fixed number of seats.
// Status moves along draft → open → full → in_progress → completed,
// with cancelled reachable from draft, open and full only.
type Opportunity struct {
	ID             string
	PromoterID     string
	Title          string
	Description    string
	RequiredSkills []string
	StartsAt       time.Time
	EndsAt         time.Time
	MaxVolunteers  int
	Status         OpportunityStatus
	CreatedAt      time.Time
}

// Cancellable reports whether the opportunity may still be cancelled.
// In-progress and terminal opportunities may not.
func (o Opportunity) Cancellable() bool {
	switch o.Status {
	case OpportunityStatusDraft, OpportunityStatusOpen, OpportunityStatusFull:
		return true
	}
	return false
}
