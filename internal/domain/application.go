package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Application is a volunteer's request for a seat on an opportunity.
// At most one exists per (volunteer, opportunity) pair; it is reviewed
// exactly once and never deleted.
type Application struct {
	ID            string
	OpportunityID string
	VolunteerID   string
	Message       string
	Status        ApplicationStatus
	AppliedAt     time.Time
	// ReviewedAt is set once, when the application is approved or rejected.
	ReviewedAt *time.Time
}
