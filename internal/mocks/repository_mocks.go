package mocks

import (
	"context"
	"time"

	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockMessageRepository implements repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// List returns every message summary
func (m *MockMessageRepository) List(ctx context.Context) ([]models.EmailSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EmailSummary), args.Error(1)
}

// ListPage returns one page of summaries and the total count
func (m *MockMessageRepository) ListPage(ctx context.Context, filter models.ListFilter) ([]models.EmailSummary, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.EmailSummary), args.Get(1).(int64), args.Error(2)
}

// Get retrieves a message by id
func (m *MockMessageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// Exists reports whether the id is stored
func (m *MockMessageRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// Upsert inserts or merges a message
func (m *MockMessageRepository) Upsert(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// MarkRead clears the unread flag
func (m *MockMessageRepository) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Stats aggregates dashboard counters
func (m *MockMessageRepository) Stats(ctx context.Context, now time.Time, loc *time.Location) (*models.EmailStats, error) {
	args := m.Called(ctx, now, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailStats), args.Error(1)
}

// MockAttachmentRepository implements repository.AttachmentRepository
type MockAttachmentRepository struct {
	mock.Mock
}

// ListByMessage retrieves all attachments for a message
func (m *MockAttachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]models.Attachment, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attachment), args.Error(1)
}

// FindByName finds an attachment by file name
func (m *MockAttachmentRepository) FindByName(ctx context.Context, messageID, fileName string) (*models.Attachment, error) {
	args := m.Called(ctx, messageID, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attachment), args.Error(1)
}

// SetCachedPath records the cache location of an attachment
func (m *MockAttachmentRepository) SetCachedPath(ctx context.Context, id uint, path string) error {
	args := m.Called(ctx, id, path)
	return args.Error(0)
}
