package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrMessageNotFound indicates the message was not found
	ErrMessageNotFound = errors.New("message not found")

	// ErrAttachmentNotFound indicates no attachment matched the requested name
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrInvalidMessageID indicates an id without a numeric mailbox uid
	ErrInvalidMessageID = errors.New("invalid message id")

	// ErrMailboxUnavailable indicates the remote mailbox could not be reached or logged into
	ErrMailboxUnavailable = errors.New("mailbox unavailable")

	// ErrStoreFailure indicates the message store rejected a read or write
	ErrStoreFailure = errors.New("message store failure")

	// ErrMailSendFailed indicates outbound mail could not be delivered to the relay
	ErrMailSendFailed = errors.New("mail send failed")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates forbidden access
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeRateLimited    = "RATE_LIMITED"
	CodeStoreError     = "STORE_ERROR"
	CodeMailboxError   = "MAILBOX_ERROR"
	CodeMailSendFailed = "MAIL_SEND_FAILED"
	CodeInternalError  = "INTERNAL_ERROR"
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

// Validation returns an AppError carrying a human-readable validation message.
func Validation(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, CodeInvalidInput)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrAttachmentNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidMessageID)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrStoreFailure):
		return CodeStoreError
	case errors.Is(err, ErrMailboxUnavailable):
		return CodeMailboxError
	case errors.Is(err, ErrMailSendFailed):
		return CodeMailSendFailed
	default:
		return CodeInternalError
	}
}

// PublicMessage returns a message that is safe to show to API clients.
// Only AppError messages are passed through; everything else is generic.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	switch GetErrorCode(err) {
	case CodeNotFound:
		return "Resource not found"
	case CodeInvalidInput:
		return "Invalid request"
	case CodeUnauthorized:
		return "Unauthorized"
	case CodeForbidden:
		return "Forbidden"
	case CodeStoreError:
		return "Failed to save data. Please try again later."
	case CodeMailboxError:
		return "Mailbox is temporarily unavailable"
	case CodeMailSendFailed:
		return "Failed to send email"
	default:
		return "An unexpected error occurred"
	}
}
