package handlers

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/TridentTech8969/ASA/internal/api/response"
	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/TridentTech8969/ASA/internal/services"
	"github.com/TridentTech8969/ASA/internal/validator"
	"github.com/labstack/echo/v4"
)

// EmailReader is the inbox query surface used by EmailHandler.
type EmailReader interface {
	List(ctx context.Context, filter models.ListFilter) ([]models.EmailSummary, int64, error)
	Get(ctx context.Context, id string) (*models.EmailDetail, error)
	MarkRead(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.EmailStats, error)
	Attachment(ctx context.Context, id, fileName string) (*services.AttachmentFile, error)
}

// EmailHandler handles inbox HTTP requests
type EmailHandler struct {
	emails EmailReader
}

// NewEmailHandler creates a new EmailHandler
func NewEmailHandler(emails EmailReader) *EmailHandler {
	return &EmailHandler{emails: emails}
}

// List handles GET /api/emails
func (h *EmailHandler) List(c echo.Context) error {
	source, err := models.ParseSource(c.QueryParam("source"))
	if err != nil {
		return response.BadRequest(c, "source must be one of all, contactform, gmail")
	}

	page, pageSize := validator.ValidatePagination(
		queryInt(c, "page"),
		queryInt(c, "pageSize"),
	)

	filter := models.ListFilter{Source: source, Page: page, PageSize: pageSize}
	items, total, err := h.emails.List(c.Request().Context(), filter)
	if err != nil {
		return response.Error(c, err)
	}
	if items == nil {
		items = []models.EmailSummary{}
	}

	return response.Page(c, items, len(items), total, page, pageSize)
}

// Get handles GET /api/emails/:id
func (h *EmailHandler) Get(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid email ID")
	}

	detail, err := h.emails.Get(c.Request().Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "Email not found")
		}
		return response.Error(c, err)
	}

	return c.JSON(http.StatusOK, detail)
}

// MarkRead handles POST /api/emails/:id/mark-read
func (h *EmailHandler) MarkRead(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid email ID")
	}

	if err := h.emails.MarkRead(c.Request().Context(), id); err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "Email not found")
		}
		return response.Error(c, err)
	}

	return response.SuccessWithMessage(c, nil, "Email marked as read")
}

// Stats handles GET /api/emails/stats
func (h *EmailHandler) Stats(c echo.Context) error {
	stats, err := h.emails.Stats(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Attachment handles GET /api/emails/:id/attachment?fileName=
func (h *EmailHandler) Attachment(c echo.Context) error {
	id, ok := messageID(c)
	if !ok {
		return response.BadRequest(c, "invalid email ID")
	}

	fileName := strings.TrimSpace(c.QueryParam("fileName"))
	if fileName == "" {
		return response.BadRequest(c, "fileName is required")
	}

	file, err := h.emails.Attachment(c.Request().Context(), id, fileName)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return response.NotFound(c, "Attachment not found")
		}
		return response.Error(c, err)
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": validator.SanitizeFilename(file.FileName),
	})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(file.Data)))

	return c.Blob(http.StatusOK, file.ContentType, file.Data)
}

// messageID returns the unescaped :id path parameter.
func messageID(c echo.Context) (string, bool) {
	id, err := url.PathUnescape(c.Param("id"))
	if err != nil {
		return "", false
	}
	id = strings.TrimSpace(id)
	return id, id != "" && len(id) <= 100
}

// queryInt parses an integer query parameter, returning 0 when absent or malformed.
func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
