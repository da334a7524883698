package mocks

import (
	"context"

	"github.com/TridentTech8969/ASA/internal/imap"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockMailbox implements services.MailboxReader
type MockMailbox struct {
	mock.Mock
}

// FetchRecent returns the most recent messages
func (m *MockMailbox) FetchRecent(ctx context.Context, limit int, label string) ([]models.Message, error) {
	args := m.Called(ctx, limit, label)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Callers mutate the slice, so hand out a copy.
	src := args.Get(0).([]models.Message)
	out := make([]models.Message, len(src))
	copy(out, src)
	return out, args.Error(1)
}

// FetchDetail returns a message with its body
func (m *MockMailbox) FetchDetail(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// FetchAttachment returns decoded attachment content
func (m *MockMailbox) FetchAttachment(ctx context.Context, id, fileName string) (*imap.AttachmentContent, error) {
	args := m.Called(ctx, id, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*imap.AttachmentContent), args.Error(1)
}
