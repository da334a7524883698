package services

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/imap"
	"github.com/TridentTech8969/ASA/internal/mailer"
	"github.com/TridentTech8969/ASA/internal/metrics"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/TridentTech8969/ASA/internal/repository"
	"github.com/TridentTech8969/ASA/internal/validator"
)

// ContactFormLabel tags messages written by the contact form.
const ContactFormLabel = "ContactForm"

// maxIDAttempts bounds the retries when a generated reference id is taken.
const maxIDAttempts = 5

// ContactConfig holds contact form notification settings
type ContactConfig struct {
	// AdminEmail receives a copy of every submission; empty disables it
	AdminEmail string
	// SendConfirmation mails a thank-you note to the submitter
	SendConfirmation bool
	// BusinessName appears in the confirmation subject
	BusinessName string
}

// ContactService accepts contact form submissions.
type ContactService struct {
	repo     repository.MessageRepository
	mailer   mailer.Mailer
	notifier Notifier
	metrics  *metrics.Metrics
	config   ContactConfig
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewContactService creates a new ContactService. notifier may be nil.
func NewContactService(
	repo repository.MessageRepository,
	m mailer.Mailer,
	notifier Notifier,
	met *metrics.Metrics,
	config ContactConfig,
	location *time.Location,
	logger *slog.Logger,
) *ContactService {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactService{
		repo:     repo,
		mailer:   m,
		notifier: notifier,
		metrics:  met,
		config:   config,
		location: location,
		logger:   logger.With(slog.String("component", "contact")),
		now:      time.Now,
	}
}

// Submit validates and stores a submission, then notifies by mail.
// It returns the reference id of the stored message. A validation failure
// writes nothing and sends nothing; a mail failure does not undo the write.
func (s *ContactService) Submit(ctx context.Context, form models.ContactForm) (string, error) {
	if fieldErr := validator.ValidateContactForm(&form); fieldErr != nil {
		s.observe(metrics.ResultInvalid)
		s.logger.Debug("contact form rejected",
			slog.String("field", fieldErr.Field),
			slog.String("reason", fieldErr.Message))
		return "", apperrors.Validation(fieldErr.Message)
	}

	now := s.now()
	id, err := s.newReferenceID(ctx, now)
	if err != nil {
		s.observe(metrics.ResultFailure)
		return "", err
	}

	msg := s.toMessage(id, &form, now)
	if err := s.repo.Upsert(ctx, msg); err != nil {
		s.observe(metrics.ResultFailure)
		s.logger.Error("failed to store contact submission",
			slog.String("reference_id", id),
			slog.Any("error", err))
		return "", apperrors.NewAppError(err,
			"Sorry, there was an error sending your message. Please try again later.",
			apperrors.CodeStoreError)
	}

	s.logger.Info("contact form submitted",
		slog.String("reference_id", id),
		slog.String("subject", form.Subject))

	s.sendNotifications(ctx, id, &form, now)

	if s.notifier != nil {
		s.notifier.BroadcastNew([]models.EmailSummary{msg.Summary()})
	}

	s.observe(metrics.ResultSuccess)
	return id, nil
}

func (s *ContactService) newReferenceID(ctx context.Context, now time.Time) (string, error) {
	local := now.In(s.location)
	var id string
	for i := 0; i < maxIDAttempts; i++ {
		id = models.NewContactFormID(local)
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", apperrors.NewAppError(apperrors.ErrStoreFailure,
		"Sorry, there was an error sending your message. Please try again later.",
		apperrors.CodeStoreError)
}

func (s *ContactService) toMessage(id string, form *models.ContactForm, now time.Time) *models.Message {
	return &models.Message{
		ID:             id,
		FromName:       form.FullName,
		FromEmail:      form.Email,
		Subject:        mailer.SubjectDisplay(form.Subject),
		TextBody:       form.Message,
		Snippet:        imap.GenerateSnippet(form.Message, ""),
		ReceivedUTC:    now.UTC(),
		ReceivedLocal:  models.FormatLocal(now, s.location),
		Unread:         true,
		Labels:         []string{ContactFormLabel},
		BodyFetched:    true,
		IsContactForm:  true,
		Phone:          optional(form.PhoneNumber),
		Company:        optional(form.Company),
		TaxID:          optional(form.GSTNumber),
		ContactMessage: optional(form.Message),
	}
}

func (s *ContactService) sendNotifications(ctx context.Context, id string, form *models.ContactForm, now time.Time) {
	if s.mailer == nil {
		return
	}
	contact := mailer.Contact{
		ReferenceID: id,
		FullName:    form.FullName,
		Email:       form.Email,
		Phone:       form.PhoneNumber,
		Company:     form.Company,
		GSTNumber:   form.GSTNumber,
		Subject:     form.Subject,
		Message:     form.Message,
		ReceivedAt:  now.In(s.location),
	}

	if s.config.AdminEmail != "" {
		s.send(ctx, id, "admin notification", func() (mailer.Mail, error) {
			return mailer.AdminNotification(s.config.AdminEmail, contact)
		})
	}
	if s.config.SendConfirmation {
		s.send(ctx, id, "confirmation", func() (mailer.Mail, error) {
			return mailer.Confirmation(s.config.BusinessName, contact)
		})
	}
}

func (s *ContactService) send(ctx context.Context, id, kind string, build func() (mailer.Mail, error)) {
	mail, err := build()
	if err == nil {
		err = s.mailer.Send(ctx, mail)
	}
	if err != nil {
		s.logger.Error("failed to send contact form mail",
			slog.String("reference_id", id),
			slog.String("kind", kind),
			slog.Any("error", err))
	}
}

func (s *ContactService) observe(result string) {
	if s.metrics != nil {
		s.metrics.ContactSubmissions.WithLabelValues(result).Inc()
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
