package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/TridentTech8969/ASA/internal/api/response"
	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/logger"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// ContactHandlerTestSuite is the test suite for ContactHandler
type ContactHandlerTestSuite struct {
	suite.Suite
	echo     *echo.Echo
	contacts *MockContactSubmitter
	secLog   *bytes.Buffer
}

func (s *ContactHandlerTestSuite) SetupTest() {
	s.contacts = new(MockContactSubmitter)
	s.secLog = new(bytes.Buffer)
	sec := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(s.secLog, nil))

	handler := NewContactHandler(s.contacts, sec)
	s.echo = echo.New()
	s.echo.POST("/Home/SendMail", handler.SendMail)
}

func (s *ContactHandlerTestSuite) TearDownTest() {
	s.contacts.AssertExpectations(s.T())
}

func TestContactHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ContactHandlerTestSuite))
}

func (s *ContactHandlerTestSuite) post(contentType, body string) (*httptest.ResponseRecorder, response.ContactResponse) {
	req := httptest.NewRequest(http.MethodPost, "/Home/SendMail", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var resp response.ContactResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func (s *ContactHandlerTestSuite) TestSendMail_FormEncoded() {
	form := url.Values{}
	form.Set("FullName", "Asha Rao")
	form.Set("PhoneNumber", "+91 98765 43210")
	form.Set("Email", "asha@example.com")
	form.Set("Subject", "bulk-order")
	form.Set("Message", "We would like a quote for 200 units.")

	s.contacts.On("Submit", mock.Anything, mock.MatchedBy(func(f models.ContactForm) bool {
		return f.FullName == "Asha Rao" && f.Email == "asha@example.com" && f.Subject == "bulk-order"
	})).Return("CF-20250615-093000-7421", nil)

	rec, resp := s.post(echo.MIMEApplicationForm, form.Encode())

	s.Equal(http.StatusOK, rec.Code)
	s.True(resp.Success)
	s.Equal("CF-20250615-093000-7421", resp.ReferenceID)
	s.Equal(contactSuccessMessage, resp.Message)
}

func (s *ContactHandlerTestSuite) TestSendMail_JSON() {
	body := `{"FullName":"Asha Rao","PhoneNumber":"9876543210","Email":"asha@example.com","GSTNumber":"29ABCDE1234F1Z5","Message":"Please call me back."}`

	s.contacts.On("Submit", mock.Anything, mock.MatchedBy(func(f models.ContactForm) bool {
		return f.FullName == "Asha Rao" && f.GSTNumber == "29ABCDE1234F1Z5"
	})).Return("CF-20250615-093000-1111", nil)

	rec, resp := s.post(echo.MIMEApplicationJSON, body)

	s.Equal(http.StatusOK, rec.Code)
	s.True(resp.Success)
}

func (s *ContactHandlerTestSuite) TestSendMail_ValidationFailure() {
	s.contacts.On("Submit", mock.Anything, mock.Anything).
		Return("", apperrors.Validation("Email is required"))

	rec, resp := s.post(echo.MIMEApplicationJSON, `{"FullName":"Asha Rao"}`)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(resp.Success)
	s.Equal("Email is required", resp.Message)
	s.Empty(resp.ReferenceID)
	s.Contains(s.secLog.String(), "validation_failure")
	s.Contains(s.secLog.String(), "203.0.113.9")
}

func (s *ContactHandlerTestSuite) TestSendMail_MalformedJSON() {
	rec, resp := s.post(echo.MIMEApplicationJSON, `{"FullName":`)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(resp.Success)
	s.contacts.AssertNotCalled(s.T(), "Submit", mock.Anything, mock.Anything)
}

func (s *ContactHandlerTestSuite) TestSendMail_StoreFailureIsGeneric() {
	s.contacts.On("Submit", mock.Anything, mock.Anything).
		Return("", apperrors.NewAppError(apperrors.ErrStoreFailure, "database is locked", apperrors.CodeStoreError))

	rec, resp := s.post(echo.MIMEApplicationJSON, `{"FullName":"Asha Rao"}`)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.False(resp.Success)
	s.Equal(contactFailureMessage, resp.Message)
	s.NotContains(rec.Body.String(), "locked")
}
