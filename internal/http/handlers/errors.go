package handlers

// Error codes carried in ErrorResponse.Code. Generic codes mirror the HTTP
// status; the rest name the operation that failed.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	ErrCodeInvalidSignature = "invalid_signature"
	ErrCodeListFailed       = "list_failed"
	ErrCodeTurnFailed       = "turn_failed"
	ErrCodeReminderFailed   = "reminder_failed"
)
