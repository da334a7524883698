package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockAttachmentCache implements storage.AttachmentCache
type MockAttachmentCache struct {
	mock.Mock
}

// Save stores attachment bytes and returns the relative path
func (m *MockAttachmentCache) Save(messageID, fileName string, data []byte) (string, error) {
	args := m.Called(messageID, fileName, data)
	return args.String(0), args.Error(1)
}

// Read returns the cached bytes
func (m *MockAttachmentCache) Read(path string) ([]byte, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Delete removes a cached file
func (m *MockAttachmentCache) Delete(path string) error {
	args := m.Called(path)
	return args.Error(0)
}
