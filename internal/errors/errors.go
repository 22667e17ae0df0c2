package errors

import "errors"

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrFunnelNotFound indicates the funnel is not in the catalog
	ErrFunnelNotFound = errors.New("funnel not found")

	// ErrEmailNotFound indicates the email is not in the catalog
	ErrEmailNotFound = errors.New("email not found")

	// ErrCommentNotFound indicates the comment was not found
	ErrCommentNotFound = errors.New("comment not found")

	// ErrReviewerRequired indicates a write without a reviewer name
	ErrReviewerRequired = errors.New("reviewer name is required")

	// ErrMailDisabled indicates test sends are not configured
	ErrMailDisabled = errors.New("test sends are not configured")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
)

// Error codes for API responses
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeReviewerRequired = "REVIEWER_REQUIRED"
	CodeMailDisabled     = "MAIL_DISABLED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrFunnelNotFound),
		errors.Is(err, ErrEmailNotFound),
		errors.Is(err, ErrCommentNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrReviewerRequired):
		return CodeReviewerRequired
	case errors.Is(err, ErrMailDisabled):
		return CodeMailDisabled
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternalError
	}
}
