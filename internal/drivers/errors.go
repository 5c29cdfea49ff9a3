package drivers

import "compliance-backend/internal/shared/apperr"

var (
	ErrNotFound     = apperr.New(apperr.KindNotFound, "not_found", "driver not found")
	ErrInvalidInput = apperr.Validation("validation_error", "firstName, lastName and email are required")
	ErrInvalidEmail = apperr.Validation("invalid_email", "email is not valid")
	// ErrLimitReached is the plan-limit quota error bulk import stops on.
	ErrLimitReached = apperr.New(apperr.KindQuota, "limit_reached", "driver limit reached for current plan")
)
