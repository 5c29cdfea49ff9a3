package credits

import "compliance-backend/internal/shared/apperr"

var (
	// ErrInvalidAmount is returned for non-positive debit or credit amounts.
	ErrInvalidAmount = apperr.Validation("invalid_amount", "credit amount must be positive")
	// ErrInsufficient reports a balance too small for the requested action.
	ErrInsufficient = apperr.New(apperr.KindQuota, "insufficient_credits", "insufficient credits")
)
