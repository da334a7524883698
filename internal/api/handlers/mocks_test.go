package handlers

import (
	"context"

	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/TridentTech8969/ASA/internal/services"
	"github.com/stretchr/testify/mock"
)

// MockEmailReader implements EmailReader
type MockEmailReader struct {
	mock.Mock
}

func (m *MockEmailReader) List(ctx context.Context, filter models.ListFilter) ([]models.EmailSummary, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.EmailSummary), args.Get(1).(int64), args.Error(2)
}

func (m *MockEmailReader) Get(ctx context.Context, id string) (*models.EmailDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailDetail), args.Error(1)
}

func (m *MockEmailReader) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEmailReader) Stats(ctx context.Context) (*models.EmailStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailStats), args.Error(1)
}

func (m *MockEmailReader) Attachment(ctx context.Context, id, fileName string) (*services.AttachmentFile, error) {
	args := m.Called(ctx, id, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AttachmentFile), args.Error(1)
}

// MockContactSubmitter implements ContactSubmitter
type MockContactSubmitter struct {
	mock.Mock
}

func (m *MockContactSubmitter) Submit(ctx context.Context, form models.ContactForm) (string, error) {
	args := m.Called(ctx, form)
	return args.String(0), args.Error(1)
}
