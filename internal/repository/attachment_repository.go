package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/TridentTech8969/ASA/internal/models"
	"gorm.io/gorm"
)

// AttachmentRepository defines the interface for attachment data access
type AttachmentRepository interface {
	ListByMessage(ctx context.Context, messageID string) ([]models.Attachment, error)
	FindByName(ctx context.Context, messageID, fileName string) (*models.Attachment, error)
	SetCachedPath(ctx context.Context, id uint, path string) error
}

// attachmentRepository implements AttachmentRepository using GORM
type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new AttachmentRepository instance
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

// ListByMessage retrieves all attachments for a message
func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]models.Attachment, error) {
	var attachments []models.Attachment
	result := r.db.WithContext(ctx).Where("message_id = ?", messageID).Order("id ASC").Find(&attachments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list attachments: %w: %w", ErrStoreFailure, result.Error)
	}
	return attachments, nil
}

// FindByName returns the first attachment of the message whose file name
// matches case-insensitively.
func (r *attachmentRepository) FindByName(ctx context.Context, messageID, fileName string) (*models.Attachment, error) {
	var attachment models.Attachment
	result := r.db.WithContext(ctx).
		Where("message_id = ? AND LOWER(file_name) = LOWER(?)", messageID, fileName).
		Order("id ASC").
		Take(&attachment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find attachment: %w: %w", ErrStoreFailure, result.Error)
	}
	return &attachment, nil
}

// SetCachedPath records where the downloaded content of an attachment is kept.
func (r *attachmentRepository) SetCachedPath(ctx context.Context, id uint, path string) error {
	result := r.db.WithContext(ctx).Model(&models.Attachment{}).Where("id = ?", id).Update("cached_path", path)
	if result.Error != nil {
		return fmt.Errorf("failed to update attachment: %w: %w", ErrStoreFailure, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
