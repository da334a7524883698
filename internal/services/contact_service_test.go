package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/mailer"
	"github.com/TridentTech8969/ASA/internal/metrics"
	"github.com/TridentTech8969/ASA/internal/mocks"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var referencePattern = regexp.MustCompile(`^CF-\d{8}-\d{6}-\d{4}$`)

func validForm() models.ContactForm {
	return models.ContactForm{
		FullName:    "Asha Rao",
		PhoneNumber: "+91 98765 43210",
		Email:       "asha@example.com",
		GSTNumber:   "29abcde1234f1z5",
		Company:     "Rao Traders",
		Subject:     "bulk-order",
		Message:     "We would like a quote for 200 units.",
	}
}

func kolkata(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

func TestContactService_Submit_StoresAndNotifies(t *testing.T) {
	repo, _ := newStore(t)
	mail := new(mocks.MockMailer)
	mail.On("Send", mock.Anything, mock.Anything).Return(nil)
	notifier := mocks.NewMockNotifier()
	m := metrics.NewMetrics()

	svc := NewContactService(repo, mail, notifier, m, ContactConfig{
		AdminEmail:       "admin@example.com",
		SendConfirmation: true,
		BusinessName:     "Rao Electricals",
	}, kolkata(t), testLogger)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 4, 0, 0, 0, time.UTC) }

	id, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Regexp(t, referencePattern, id)
	assert.Contains(t, id, "CF-20250615-093000-")

	stored, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.IsContactForm)
	assert.True(t, stored.Unread)
	assert.Equal(t, "Asha Rao", stored.FromName)
	assert.Equal(t, "asha@example.com", stored.FromEmail)
	assert.Equal(t, "Bulk Order", stored.Subject)
	assert.Equal(t, "15-06-2025 09:30", stored.ReceivedLocal)
	require.NotNil(t, stored.TaxID)
	assert.Equal(t, "29ABCDE1234F1Z5", *stored.TaxID)
	require.NotNil(t, stored.Phone)
	assert.Equal(t, "+91 98765 43210", *stored.Phone)
	require.NotNil(t, stored.ContactMessage)
	assert.Equal(t, []string{ContactFormLabel}, stored.Labels)

	require.Len(t, mail.Sent, 2)
	admin := mail.Sent[0]
	assert.Equal(t, "admin@example.com", admin.ToEmail)
	assert.Equal(t, "asha@example.com", admin.ReplyToEmail)
	assert.Equal(t, "New Contact Form Submission - bulk-order", admin.Subject)
	confirmation := mail.Sent[1]
	assert.Equal(t, "asha@example.com", confirmation.ToEmail)
	assert.Equal(t, "Thank you for contacting Rao Electricals", confirmation.Subject)

	broadcasts := notifier.Broadcasts()
	require.Len(t, broadcasts, 1)
	assert.Equal(t, []string{id}, summaryIDs(broadcasts[0]))
	assert.True(t, broadcasts[0][0].IsContactForm)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContactSubmissions.WithLabelValues(metrics.ResultSuccess)))
}

func TestContactService_Submit_DefaultsSubject(t *testing.T) {
	repo, _ := newStore(t)
	form := validForm()
	form.Subject = "  "

	svc := NewContactService(repo, nil, nil, nil, ContactConfig{}, nil, testLogger)
	id, err := svc.Submit(context.Background(), form)
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultContactSubject, stored.Subject)
}

func TestContactService_Submit_ValidationGate(t *testing.T) {
	repo := new(mocks.MockMessageRepository)
	mail := new(mocks.MockMailer)
	notifier := mocks.NewMockNotifier()
	m := metrics.NewMetrics()

	form := validForm()
	form.Email = ""

	svc := NewContactService(repo, mail, notifier, m, ContactConfig{AdminEmail: "admin@example.com"}, nil, testLogger)
	id, err := svc.Submit(context.Background(), form)

	assert.Empty(t, id)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Equal(t, "Email is required", apperrors.PublicMessage(err))

	repo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.Broadcasts())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContactSubmissions.WithLabelValues(metrics.ResultInvalid)))
}

func TestContactService_Submit_ReturnsFirstValidationError(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*models.ContactForm)
		want   string
	}{
		{"missing name", func(f *models.ContactForm) { f.FullName = "" }, "Full name is required"},
		{"bad phone", func(f *models.ContactForm) { f.PhoneNumber = "call me" }, "Please enter a valid phone number"},
		{"bad email", func(f *models.ContactForm) { f.Email = "not-an-email" }, "Please enter a valid email address"},
		{"bad gst", func(f *models.ContactForm) { f.GSTNumber = "12345" }, "Please enter a valid GST number"},
		{"short message", func(f *models.ContactForm) { f.Message = "hi" }, "Message must be at least 10 characters long"},
		{"name before message", func(f *models.ContactForm) {
			f.FullName = ""
			f.Message = ""
		}, "Full name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockMessageRepository)
			form := validForm()
			tt.modify(&form)

			svc := NewContactService(repo, nil, nil, nil, ContactConfig{}, nil, testLogger)
			_, err := svc.Submit(context.Background(), form)
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.PublicMessage(err))
			repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestContactService_Submit_MailFailureKeepsRecord(t *testing.T) {
	repo, _ := newStore(t)
	mail := new(mocks.MockMailer)
	mail.On("Send", mock.Anything, mock.Anything).Return(apperrors.ErrMailSendFailed)

	svc := NewContactService(repo, mail, nil, nil, ContactConfig{
		AdminEmail:       "admin@example.com",
		SendConfirmation: true,
	}, nil, testLogger)

	id, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	exists, err := repo.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, exists)
	mail.AssertNumberOfCalls(t, "Send", 2)
}

func TestContactService_Submit_StoreFailure(t *testing.T) {
	repo := new(mocks.MockMessageRepository)
	mail := new(mocks.MockMailer)
	notifier := mocks.NewMockNotifier()

	repo.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(apperrors.ErrStoreFailure)

	svc := NewContactService(repo, mail, notifier, nil, ContactConfig{AdminEmail: "admin@example.com"}, nil, testLogger)
	id, err := svc.Submit(context.Background(), validForm())

	assert.Empty(t, id)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStoreError, apperrors.GetErrorCode(err))
	assert.ErrorIs(t, err, apperrors.ErrStoreFailure)
	mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.Broadcasts())
}

func TestContactService_Submit_RetriesTakenReference(t *testing.T) {
	repo := new(mocks.MockMessageRepository)
	repo.On("Exists", mock.Anything, mock.Anything).Return(true, nil).Once()
	repo.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*models.Message")).Return(nil)

	svc := NewContactService(repo, nil, nil, nil, ContactConfig{}, nil, testLogger)
	id, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.Regexp(t, referencePattern, id)
	repo.AssertNumberOfCalls(t, "Exists", 2)
}

func TestContactService_Submit_NoMailWhenUnconfigured(t *testing.T) {
	repo, _ := newStore(t)
	mail := new(mocks.MockMailer)

	svc := NewContactService(repo, mail, nil, nil, ContactConfig{}, nil, testLogger)
	_, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)

	mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestContactService_Submit_WithNopMailer(t *testing.T) {
	repo, _ := newStore(t)

	svc := NewContactService(repo, mailer.NewNopMailer(testLogger), nil, nil,
		ContactConfig{AdminEmail: "admin@example.com"}, nil, testLogger)
	id, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
