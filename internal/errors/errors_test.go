package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAppError_CreatesErrorWithCorrectFields(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := NewAppError(baseErr, "custom message", CodeNotFound)

	assert.Equal(t, baseErr, appErr.Err)
	assert.Equal(t, "custom message", appErr.Message)
	assert.Equal(t, CodeNotFound, appErr.Code)
}

func TestAppError_Error_ReturnsMessage(t *testing.T) {
	appErr := NewAppError(errors.New("base error"), "custom message", CodeNotFound)

	assert.Equal(t, "custom message", appErr.Error())
}

func TestAppError_Error_ReturnsBaseErrorWhenNoMessage(t *testing.T) {
	appErr := NewAppError(errors.New("base error"), "", CodeNotFound)

	assert.Equal(t, "base error", appErr.Error())
}

func TestAppError_CanBeUnwrappedWithErrorsIs(t *testing.T) {
	appErr := NewAppError(ErrNotFound, "test", CodeNotFound)

	// errors.Is should work through Unwrap
	assert.True(t, errors.Is(appErr, ErrNotFound))
}

func TestValidation(t *testing.T) {
	err := Validation("Email is required")

	assert.Equal(t, "Email is required", err.Error())
	assert.True(t, IsInvalidInput(err))
	assert.Equal(t, CodeInvalidInput, GetErrorCode(err))
}

func TestWrap_WrapsErrorWithContext(t *testing.T) {
	wrapped := Wrap(errors.New("base error"), "context")

	assert.Contains(t, wrapped.Error(), "context")
	assert.Contains(t, wrapped.Error(), "base error")
}

func TestWrap_ReturnsNilForNilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
}

func TestIsNotFound_ReturnsTrueForNotFoundErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"ErrNotFound", ErrNotFound, true},
		{"ErrMessageNotFound", ErrMessageNotFound, true},
		{"ErrAttachmentNotFound", ErrAttachmentNotFound, true},
		{"wrapped", fmt.Errorf("lookup: %w", ErrAttachmentNotFound), true},
		{"ErrInvalidInput", ErrInvalidInput, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestGetErrorCode_ReturnsCorrectCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrNotFound", ErrNotFound, CodeNotFound},
		{"ErrAttachmentNotFound", ErrAttachmentNotFound, CodeNotFound},
		{"ErrInvalidInput", ErrInvalidInput, CodeInvalidInput},
		{"ErrInvalidMessageID", ErrInvalidMessageID, CodeInvalidInput},
		{"ErrUnauthorized", ErrUnauthorized, CodeUnauthorized},
		{"ErrForbidden", ErrForbidden, CodeForbidden},
		{"ErrStoreFailure", fmt.Errorf("save: %w", ErrStoreFailure), CodeStoreError},
		{"ErrMailboxUnavailable", ErrMailboxUnavailable, CodeMailboxError},
		{"ErrMailSendFailed", ErrMailSendFailed, CodeMailSendFailed},
		{"AppError code wins", NewAppError(ErrStoreFailure, "x", CodeRateLimited), CodeRateLimited},
		{"unknown error", errors.New("unknown"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCode(tt.err))
		})
	}
}

func TestPublicMessage_HidesInternalDetails(t *testing.T) {
	internal := fmt.Errorf("failed to create message: %w: pq: relation \"messages\" does not exist", ErrStoreFailure)

	msg := PublicMessage(internal)

	assert.NotContains(t, msg, "pq:")
	assert.Equal(t, "Failed to save data. Please try again later.", msg)
	assert.Equal(t, "An unexpected error occurred", PublicMessage(errors.New("panic: runtime error")))
	assert.Equal(t, "Full name is required", PublicMessage(Validation("Full name is required")))
}

func TestErrorCodes_AreCorrectValues(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", CodeNotFound)
	assert.Equal(t, "INVALID_INPUT", CodeInvalidInput)
	assert.Equal(t, "UNAUTHORIZED", CodeUnauthorized)
	assert.Equal(t, "FORBIDDEN", CodeForbidden)
	assert.Equal(t, "INTERNAL_ERROR", CodeInternalError)
}
