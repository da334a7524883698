package mocks

import (
	"context"
	"sync"

	"github.com/TridentTech8969/ASA/internal/mailer"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockNotifier implements services.Notifier and records every broadcast
type MockNotifier struct {
	mock.Mock
	mu         sync.Mutex
	broadcasts [][]models.EmailSummary
}

// NewMockNotifier creates a MockNotifier that accepts any broadcast
func NewMockNotifier() *MockNotifier {
	n := &MockNotifier{}
	n.On("BroadcastNew", mock.Anything).Return()
	return n
}

// BroadcastNew records the pushed summaries
func (m *MockNotifier) BroadcastNew(items []models.EmailSummary) {
	m.Called(items)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, items)
}

// Broadcasts returns every recorded broadcast
func (m *MockNotifier) Broadcasts() [][]models.EmailSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]models.EmailSummary, len(m.broadcasts))
	copy(out, m.broadcasts)
	return out
}

// MockMailer implements mailer.Mailer and records sent mails
type MockMailer struct {
	mock.Mock
	mu   sync.Mutex
	Sent []mailer.Mail
}

// Send records the mail and returns the configured error
func (m *MockMailer) Send(ctx context.Context, mail mailer.Mail) error {
	args := m.Called(ctx, mail)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, mail)
	return args.Error(0)
}
