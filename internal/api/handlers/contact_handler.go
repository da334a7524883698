package handlers

import (
	"context"
	"net/http"

	"github.com/TridentTech8969/ASA/internal/api/response"
	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/logger"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/labstack/echo/v4"
)

const (
	contactSuccessMessage = "Thank you for contacting us! We will get back to you soon."
	contactFailureMessage = "Sorry, there was an error sending your message. Please try again later."
)

// ContactSubmitter accepts contact form submissions.
type ContactSubmitter interface {
	Submit(ctx context.Context, form models.ContactForm) (string, error)
}

// ContactHandler handles the public contact form endpoint
type ContactHandler struct {
	contacts  ContactSubmitter
	secLogger *logger.SecurityLogger
}

// NewContactHandler creates a new ContactHandler. secLogger may be nil.
func NewContactHandler(contacts ContactSubmitter, secLogger *logger.SecurityLogger) *ContactHandler {
	return &ContactHandler{contacts: contacts, secLogger: secLogger}
}

// SendMail handles POST /Home/SendMail. The body may be form-encoded or JSON.
func (h *ContactHandler) SendMail(c echo.Context) error {
	var form models.ContactForm
	if err := c.Bind(&form); err != nil {
		h.logValidation(c, "malformed body")
		return response.Contact(c, http.StatusBadRequest, "Invalid request body", "")
	}

	referenceID, err := h.contacts.Submit(c.Request().Context(), form)
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			message := apperrors.PublicMessage(err)
			h.logValidation(c, message)
			return response.Contact(c, http.StatusBadRequest, message, "")
		}
		return response.Contact(c, http.StatusInternalServerError, contactFailureMessage, "")
	}

	return response.Contact(c, http.StatusOK, contactSuccessMessage, referenceID)
}

func (h *ContactHandler) logValidation(c echo.Context, reason string) {
	if h.secLogger != nil {
		h.secLogger.ValidationFailure(c.RealIP(), c.Request().URL.Path, reason)
	}
}
