package handlers

// Response status values for a check-in
const (
	StatusCheckedIn        = "checked_in"
	StatusAlreadyCheckedIn = "already_checked_in"
	StatusAccountFrozen    = "account_frozen"
)

const (
	ErrInvalidRequest      = "Invalid request body"
	ErrInvalidDate         = "Invalid date, expected YYYY-MM-DD"
	ErrInvalidID           = "Invalid ID"
	ErrInternalServerError = "Internal server error"
)

// WarnAccountFrozen is shown at the desk when a charged check-in is held back
const WarnAccountFrozen = "Family account is frozen pending reconciliation. Ask a coordinator to reconcile it, then scan again."
