package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/imap"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/TridentTech8969/ASA/internal/repository"
	"github.com/TridentTech8969/ASA/internal/storage"
)

// AttachmentFile is a downloaded attachment ready to be streamed.
type AttachmentFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// EmailService serves the query side of the inbox: listing, detail,
// statistics and attachment downloads.
type EmailService struct {
	repo        repository.MessageRepository
	attachments repository.AttachmentRepository
	mailbox     MailboxReader
	cache       storage.AttachmentCache
	location    *time.Location
	logger      *slog.Logger
	now         func() time.Time
}

// NewEmailService creates a new EmailService. mailbox and cache may be nil
// when sync is disabled; mailbox-backed operations then serve stored data only.
func NewEmailService(
	repo repository.MessageRepository,
	attachments repository.AttachmentRepository,
	mailbox MailboxReader,
	cache storage.AttachmentCache,
	location *time.Location,
	logger *slog.Logger,
) *EmailService {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailService{
		repo:        repo,
		attachments: attachments,
		mailbox:     mailbox,
		cache:       cache,
		location:    location,
		logger:      logger.With(slog.String("component", "emails")),
		now:         time.Now,
	}
}

// List returns one page of summaries and the total matching count.
func (s *EmailService) List(ctx context.Context, filter models.ListFilter) ([]models.EmailSummary, int64, error) {
	return s.repo.ListPage(ctx, filter)
}

// Stats returns dashboard counters relative to the current time.
func (s *EmailService) Stats(ctx context.Context) (*models.EmailStats, error) {
	return s.repo.Stats(ctx, s.now(), s.location)
}

// MarkRead flips the unread flag off. Repeated calls succeed.
func (s *EmailService) MarkRead(ctx context.Context, id string) error {
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrMessageNotFound
		}
		return err
	}
	return nil
}

// Get returns the full message and marks it read. Mailbox messages whose
// body was never downloaded are fetched once and stored.
func (s *EmailService) Get(ctx context.Context, id string) (*models.EmailDetail, error) {
	msg, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, err
	}

	if !msg.BodyFetched && s.mailbox != nil && models.IsMailboxID(id) {
		msg = s.fetchBody(ctx, msg)
	}

	if msg.Unread {
		if err := s.repo.MarkRead(ctx, id); err != nil {
			s.logger.Warn("failed to mark message read",
				slog.String("id", id),
				slog.Any("error", err))
		} else {
			msg.Unread = false
		}
	}

	detail := msg.Detail()
	return &detail, nil
}

// fetchBody downloads the body and stores it. On failure the stored
// summary is returned so the detail view still opens.
func (s *EmailService) fetchBody(ctx context.Context, stored *models.Message) *models.Message {
	full, err := s.mailbox.FetchDetail(ctx, stored.ID)
	if err != nil {
		s.logger.Warn("failed to fetch message body",
			slog.String("id", stored.ID),
			slog.Any("error", err))
		return stored
	}
	if err := s.repo.Upsert(ctx, full); err != nil {
		s.logger.Error("failed to store message body",
			slog.String("id", stored.ID),
			slog.Any("error", err))
		full.Unread = stored.Unread && full.Unread
		full.ReceivedUTC = stored.ReceivedUTC
		full.ReceivedLocal = stored.ReceivedLocal
	}
	return full
}

// Attachment returns the named attachment, preferring the local cache.
func (s *EmailService) Attachment(ctx context.Context, id, fileName string) (*AttachmentFile, error) {
	if fileName == "" {
		return nil, apperrors.Validation("fileName is required")
	}

	att, err := s.attachments.FindByName(ctx, id, fileName)
	switch {
	case err == nil:
		if file := s.readCached(att); file != nil {
			return file, nil
		}
	case errors.Is(err, repository.ErrNotFound):
		exists, existsErr := s.repo.Exists(ctx, id)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, apperrors.ErrMessageNotFound
		}
		att = nil
	default:
		return nil, err
	}

	// Contact form submissions never carry attachments.
	if !models.IsMailboxID(id) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrAttachmentNotFound, fileName)
	}
	if s.mailbox == nil {
		return nil, apperrors.ErrMailboxUnavailable
	}

	content, err := s.mailbox.FetchAttachment(ctx, id, fileName)
	if err != nil {
		return nil, err
	}
	file := fromContent(content)
	if att != nil {
		s.writeCache(ctx, id, att, file)
	}
	return file, nil
}

func (s *EmailService) readCached(att *models.Attachment) *AttachmentFile {
	if s.cache == nil || att.CachedPath == "" {
		return nil
	}
	data, err := s.cache.Read(att.CachedPath)
	if err != nil {
		s.logger.Warn("cached attachment unreadable, refetching",
			slog.String("path", att.CachedPath),
			slog.Any("error", err))
		return nil
	}
	return &AttachmentFile{
		FileName:    att.FileName,
		ContentType: att.ContentType,
		Data:        data,
	}
}

func (s *EmailService) writeCache(ctx context.Context, id string, att *models.Attachment, file *AttachmentFile) {
	if s.cache == nil {
		return
	}
	path, err := s.cache.Save(id, file.FileName, file.Data)
	if err != nil {
		s.logger.Warn("failed to cache attachment",
			slog.String("id", id),
			slog.String("file_name", file.FileName),
			slog.Any("error", err))
		return
	}
	if err := s.attachments.SetCachedPath(ctx, att.ID, path); err != nil {
		s.logger.Warn("failed to record cached attachment",
			slog.String("id", id),
			slog.Any("error", err))
		if delErr := s.cache.Delete(path); delErr != nil {
			s.logger.Warn("failed to remove orphaned cache file",
				slog.String("path", path),
				slog.Any("error", delErr))
		}
	}
}

func fromContent(c *imap.AttachmentContent) *AttachmentFile {
	contentType := c.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &AttachmentFile{
		FileName:    c.FileName,
		ContentType: contentType,
		Data:        c.Data,
	}
}
