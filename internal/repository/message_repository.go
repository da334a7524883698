package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TridentTech8969/ASA/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository is the message store shared by the synchronizer,
// the contact form and the API.
type MessageRepository interface {
	List(ctx context.Context) ([]models.EmailSummary, error)
	ListPage(ctx context.Context, filter models.ListFilter) ([]models.EmailSummary, int64, error)
	Get(ctx context.Context, id string) (*models.Message, error)
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, message *models.Message) error
	MarkRead(ctx context.Context, id string) error
	Stats(ctx context.Context, now time.Time, loc *time.Location) (*models.EmailStats, error)
}

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

var summaryColumns = []string{
	"id", "subject", "from_name", "from_email", "received_utc", "received_local",
	"snippet", "unread", "has_attachments", "is_contact_form",
}

// List returns every message summary, newest first.
func (r *messageRepository) List(ctx context.Context) ([]models.EmailSummary, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Select(summaryColumns).
		Order("received_utc DESC, id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w: %w", ErrStoreFailure, err)
	}
	return toSummaries(messages), nil
}

// ListPage returns one page of summaries for the given source and the total
// number of matching messages.
func (r *messageRepository) ListPage(ctx context.Context, filter models.ListFilter) ([]models.EmailSummary, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Scopes(bySource(filter.Source)).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w: %w", ErrStoreFailure, err)
	}

	var messages []models.Message
	err = r.db.WithContext(ctx).
		Scopes(bySource(filter.Source)).
		Select(summaryColumns).
		Order("received_utc DESC, id DESC").
		Limit(filter.PageSize).
		Offset(filter.Offset()).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w: %w", ErrStoreFailure, err)
	}

	return toSummaries(messages), total, nil
}

// Get retrieves a message by id with its attachments
func (r *messageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		Take(&message)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w: %w", ErrStoreFailure, result.Error)
	}
	return &message, nil
}

// Exists reports whether a message with the id is stored.
func (r *messageRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w: %w", ErrStoreFailure, err)
	}
	return count > 0, nil
}

// Upsert inserts the message or merges it into the stored row with the same id.
// Merging never sets a read message back to unread, keeps the original
// received time and does not blank out bodies or contact fields.
func (r *messageRepository) Upsert(ctx context.Context, message *models.Message) error {
	if message == nil || strings.TrimSpace(message.ID) == "" {
		return ErrInvalidInput
	}
	if message.ReceivedUTC.IsZero() {
		message.ReceivedUTC = time.Now()
	}
	message.ReceivedUTC = message.ReceivedUTC.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(message)
		if result.Error != nil {
			return fmt.Errorf("failed to create message: %w: %w", ErrStoreFailure, result.Error)
		}
		if result.RowsAffected == 1 {
			return createAttachments(tx, message.ID, message.Attachments)
		}

		var existing models.Message
		err := tx.Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Where("id = ?", message.ID).
			Take(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to load message: %w: %w", ErrStoreFailure, err)
		}

		keepSizes := existing.BodyFetched && !message.BodyFetched
		mergeMessage(&existing, message)

		attachments, replace := mergeAttachments(existing.Attachments, message.Attachments, keepSizes)
		if message.Attachments == nil {
			existing.HasAttachments = existing.HasAttachments || message.HasAttachments || len(attachments) > 0
		} else {
			existing.HasAttachments = message.HasAttachments || len(attachments) > 0
		}

		if err := tx.Omit(clause.Associations).Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update message: %w: %w", ErrStoreFailure, err)
		}

		if replace {
			if err := tx.Where("message_id = ?", existing.ID).Delete(&models.Attachment{}).Error; err != nil {
				return fmt.Errorf("failed to replace attachments: %w: %w", ErrStoreFailure, err)
			}
			if err := createAttachments(tx, existing.ID, attachments); err != nil {
				return err
			}
		} else {
			for i := range attachments {
				if attachments[i] == existing.Attachments[i] {
					continue
				}
				if err := tx.Save(&attachments[i]).Error; err != nil {
					return fmt.Errorf("failed to update attachment: %w: %w", ErrStoreFailure, err)
				}
			}
		}

		existing.Attachments = attachments
		*message = existing
		return nil
	})
	if err != nil && !errors.Is(err, ErrStoreFailure) {
		return fmt.Errorf("failed to upsert message: %w: %w", ErrStoreFailure, err)
	}
	return err
}

// MarkRead clears the unread flag. Repeated calls succeed.
func (r *messageRepository) MarkRead(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("unread", false)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message as read: %w: %w", ErrStoreFailure, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type statsRow struct {
	IsContactForm bool
	Total         int64
	Unread        int64
	Today         int64
	Week          int64
}

// Stats aggregates counts by origin. Day and week boundaries (weeks start on
// Monday) are taken in loc.
func (r *messageRepository) Stats(ctx context.Context, now time.Time, loc *time.Location) (*models.EmailStats, error) {
	dayStart, weekStart := boundaries(now, loc)

	var rows []statsRow
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select(`is_contact_form,
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN unread THEN 1 ELSE 0 END), 0) AS unread,
			COALESCE(SUM(CASE WHEN received_utc >= ? THEN 1 ELSE 0 END), 0) AS today,
			COALESCE(SUM(CASE WHEN received_utc >= ? THEN 1 ELSE 0 END), 0) AS week`,
			dayStart, weekStart).
		Group("is_contact_form").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w: %w", ErrStoreFailure, err)
	}

	stats := &models.EmailStats{}
	for _, row := range rows {
		counts := models.SourceCounts{Total: row.Total, Unread: row.Unread, Today: row.Today}
		if row.IsContactForm {
			stats.ContactForms = counts
		} else {
			stats.Mailbox = counts
		}
		stats.Total += row.Total
		stats.Unread += row.Unread
		stats.Today += row.Today
		stats.ThisWeek += row.Week
	}
	return stats, nil
}

func boundaries(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	offset := (int(dayStart.Weekday()) + 6) % 7
	weekStart := dayStart.AddDate(0, 0, -offset)
	return dayStart.UTC(), weekStart.UTC()
}

func bySource(source models.Source) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch source {
		case models.SourceContactForm:
			return db.Where("is_contact_form = ?", true)
		case models.SourceMailbox:
			return db.Where("is_contact_form = ?", false)
		default:
			return db
		}
	}
}

func toSummaries(messages []models.Message) []models.EmailSummary {
	out := make([]models.EmailSummary, 0, len(messages))
	for i := range messages {
		out = append(out, messages[i].Summary())
	}
	return out
}

func createAttachments(tx *gorm.DB, messageID string, attachments []models.Attachment) error {
	for i := range attachments {
		attachments[i].ID = 0
		attachments[i].MessageID = messageID
		if err := tx.Create(&attachments[i]).Error; err != nil {
			return fmt.Errorf("failed to create attachment: %w: %w", ErrStoreFailure, err)
		}
	}
	return nil
}

func mergeMessage(existing, incoming *models.Message) {
	existing.Unread = existing.Unread && incoming.Unread
	existing.BodyFetched = existing.BodyFetched || incoming.BodyFetched
	existing.IsContactForm = existing.IsContactForm || incoming.IsContactForm

	if incoming.UID != 0 {
		existing.UID = incoming.UID
	}
	setIfNotEmpty(&existing.Folder, incoming.Folder)
	setIfNotEmpty(&existing.FromName, incoming.FromName)
	setIfNotEmpty(&existing.FromEmail, incoming.FromEmail)
	setIfNotEmpty(&existing.Subject, incoming.Subject)
	setIfNotEmpty(&existing.Snippet, incoming.Snippet)
	setIfNotEmpty(&existing.TextBody, incoming.TextBody)
	setIfNotEmpty(&existing.HTMLBody, incoming.HTMLBody)

	if incoming.Labels != nil {
		existing.Labels = incoming.Labels
	}
	if incoming.Company != nil {
		existing.Company = incoming.Company
	}
	if incoming.Phone != nil {
		existing.Phone = incoming.Phone
	}
	if incoming.TaxID != nil {
		existing.TaxID = incoming.TaxID
	}
	if incoming.ContactMessage != nil {
		existing.ContactMessage = incoming.ContactMessage
	}
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// mergeAttachments decides whether the stored attachment set must be replaced.
// A nil incoming slice means the caller did not look at attachments. When
// the file names match, stored rows are refreshed in place so cached
// downloads survive re-syncs. keepSizes preserves decoded sizes recorded by a
// body fetch against the encoded sizes a later summary reports.
func mergeAttachments(existing, incoming []models.Attachment, keepSizes bool) ([]models.Attachment, bool) {
	if incoming == nil {
		return existing, false
	}

	if sameFileNames(existing, incoming) {
		merged := make([]models.Attachment, len(existing))
		copy(merged, existing)
		for i := range merged {
			in := incoming[i]
			if in.SizeBytes > 0 && !keepSizes {
				merged[i].SizeBytes = in.SizeBytes
			}
			setIfNotEmpty(&merged[i].ContentType, in.ContentType)
			setIfNotEmpty(&merged[i].PartID, in.PartID)
		}
		return merged, false
	}

	cached := make(map[string]string, len(existing))
	for _, a := range existing {
		if a.CachedPath != "" {
			cached[strings.ToLower(a.FileName)] = a.CachedPath
		}
	}
	replaced := make([]models.Attachment, len(incoming))
	for i, a := range incoming {
		a.ID = 0
		if a.CachedPath == "" {
			a.CachedPath = cached[strings.ToLower(a.FileName)]
		}
		replaced[i] = a
	}
	return replaced, true
}

func sameFileNames(a, b []models.Attachment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i].FileName, b[i].FileName) {
			return false
		}
	}
	return true
}
