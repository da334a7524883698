package response

import (
	"net/http"

	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/labstack/echo/v4"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// PageResponse is the listing envelope consumed by the inbox grid.
type PageResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Count      int         `json:"count"`
	TotalCount int64       `json:"totalCount"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
}

// ContactResponse answers a contact form submission.
type ContactResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ReferenceID string `json:"referenceId,omitempty"`
}

// Success returns a successful response with data
func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage returns a successful response with a message
func SuccessWithMessage(c echo.Context, data interface{}, message string) error {
	return c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// Page returns one page of a listing. count is the number of rows in data.
func Page(c echo.Context, data interface{}, count int, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, PageResponse{
		Success:    true,
		Data:       data,
		Count:      count,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Contact returns the contact form result envelope.
func Contact(c echo.Context, status int, message, referenceID string) error {
	return c.JSON(status, ContactResponse{
		Success:     status < http.StatusBadRequest,
		Message:     message,
		ReferenceID: referenceID,
	})
}

// Error returns an error response with appropriate status code.
// Only messages meant for clients are exposed; wrapped causes stay server side.
func Error(c echo.Context, err error) error {
	code := apperrors.GetErrorCode(err)
	return c.JSON(HTTPStatus(code), ErrorResponse{
		Success: false,
		Error:   apperrors.PublicMessage(err),
		Code:    code,
	})
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    apperrors.CodeInvalidInput,
	})
}

// NotFound returns a 404 Not Found response
func NotFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    apperrors.CodeNotFound,
	})
}

// InternalError returns a 500 Internal Server Error response
func InternalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    apperrors.CodeInternalError,
	})
}

// HTTPStatus maps error codes to HTTP status codes
func HTTPStatus(code string) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.CodeMailboxError:
		return http.StatusServiceUnavailable
	case apperrors.CodeMailSendFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
