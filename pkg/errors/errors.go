package errors

import "fmt"

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	// ErrorTypeCorruptStore indicates the persisted sync database could not
	// be read or does not have the expected document shape. Fatal.
	ErrorTypeCorruptStore ErrorType = "corrupt_store"
	// ErrorTypeConfig indicates an unrecognized author reference or
	// favourite visibility. Fatal, reported before any mutation.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeRemote indicates a network or provider failure. Recoverable
	// per-author during listing, fatal for a bookmark loop or a single
	// download job.
	ErrorTypeRemote ErrorType = "remote"
	// ErrorTypeMalformedItem indicates a remote item missing required
	// metadata fields. Fatal for that item only.
	ErrorTypeMalformedItem ErrorType = "malformed_item"
	// ErrorTypeNotFound indicates a store addressing inconsistency, e.g. a
	// fetched flag written to an illust or image index that does not exist.
	// Should not occur in correct operation.
	ErrorTypeNotFound ErrorType = "not_found"
)

// Error represents a categorized pixivsync error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates an error of the given type
func New(errorType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewRemote creates a remote error carrying an HTTP status code
func NewRemote(code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeRemote,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// IsType reports whether err is an *Error of the given type
func IsType(err error, errorType ErrorType) bool {
	e, ok := err.(*Error)
	return ok && e.Type == errorType
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 400, 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
