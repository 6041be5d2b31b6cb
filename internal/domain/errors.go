package domain

import "errors"

var (
	ErrOpportunityNotFound = errors.New("opportunity not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrRewardNotFound      = errors.New("reward not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidState        = errors.New("operation not valid for current state")
	ErrAlreadyApplied      = errors.New("already applied to this opportunity")
	ErrNoSpots             = errors.New("no spots left")
	ErrRewardNotAvailable  = errors.New("reward not available")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrInvalidID           = errors.New("invalid id")

	ErrTitleRequired      = errors.New("title required")
	ErrInvalidSchedule    = errors.New("end date must be after start date")
	ErrInvalidCapacity    = errors.New("max volunteers must be positive")
	ErrSkillsRequired     = errors.New("at least one required skill")
	ErrRewardNameRequired = errors.New("reward name required")
	ErrInvalidPointsCost  = errors.New("points cost must be positive")
	ErrInvalidQuantity    = errors.New("quantity must be positive when set")
	ErrInvalidWindow      = errors.New("available until must be after available from")
)
