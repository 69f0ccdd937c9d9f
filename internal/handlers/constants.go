package handlers

const (
	maxRequestBody = 64 << 10

	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrSessionNotFound     = "Session not found"
	ErrProfileNotFound     = "Profile not found"
	ErrTooManyRequests     = "Too many requests"
	ErrServiceUnavailable  = "Service unavailable"
	ErrInternalServerError = "Internal server error"
)
