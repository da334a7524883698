package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger() (*SecurityLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil)), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	return logEntry
}

func TestNewSecurityLogger(t *testing.T) {
	logger := NewSecurityLogger(nil)
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.GetLogger())
}

func TestSecurityLogger_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecurityLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.RateLimitExceeded("192.168.1.1", "/api/emails")

	assert.Equal(t, "security", decode(t, &buf)["component"])
}

func TestSecurityLogger_AuthFailure_JSONFormat(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.AuthFailure("192.168.1.1", "/api/emails", "invalid_key")

	logEntry := decode(t, buf)
	assert.Equal(t, "auth_failure", logEntry["event_type"])
	assert.Equal(t, "192.168.1.1", logEntry["ip"])
	assert.Equal(t, "/api/emails", logEntry["path"])
	assert.Equal(t, "invalid_key", logEntry["reason"])
	assert.Contains(t, logEntry, "timestamp")
}

func TestSecurityLogger_RateLimitExceeded_JSONFormat(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.RateLimitExceeded("192.168.1.1", "/Home/SendMail")

	logEntry := decode(t, buf)
	assert.Equal(t, "rate_limit", logEntry["event_type"])
	assert.Equal(t, "192.168.1.1", logEntry["ip"])
	assert.Equal(t, "/Home/SendMail", logEntry["path"])
}

func TestSecurityLogger_InvalidOrigin(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.InvalidOrigin("192.168.1.1", "http://malicious.com")

	logEntry := decode(t, buf)
	assert.Equal(t, "invalid_origin", logEntry["event_type"])
	assert.Equal(t, "http://malicious.com", logEntry["origin"])
}

func TestSecurityLogger_ValidationFailure(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.ValidationFailure("10.0.0.7", "/Home/SendMail", "Email is required")

	logEntry := decode(t, buf)
	assert.Equal(t, "INFO", logEntry["level"])
	assert.Equal(t, "validation_failure", logEntry["event_type"])
	assert.Equal(t, "Email is required", logEntry["reason"])
}

func TestSecurityLogger_SensitiveDataNotLogged(t *testing.T) {
	logger, buf := newBufferedLogger()

	details := map[string]string{
		"username":  "testuser",
		"password":  "secret123",
		"api_key":   "sk-12345",
		"X-API-Key": "hdr-999",
		"token":     "jwt-token",
		"path":      "/api/emails",
	}

	logger.SecurityEvent("test_event", "192.168.1.1", details)

	output := buf.String()
	assert.NotContains(t, output, "secret123")
	assert.NotContains(t, output, "sk-12345")
	assert.NotContains(t, output, "hdr-999")
	assert.NotContains(t, output, "jwt-token")

	assert.Contains(t, output, "testuser")
	assert.Contains(t, output, "/api/emails")
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"password", true},
		{"Password", true},
		{"api_key", true},
		{"apikey", true},
		{"x-api-key", true},
		{"token", true},
		{"secret", true},
		{"authorization", true},
		{"credential", true},
		{"session", true},
		{"cookie", true},
		{"username", false},
		{"email", false},
		{"path", false},
		{"ip", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, isSensitiveKey(tt.key))
		})
	}
}

func TestSecurityLogger_TimestampPresent(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.AuthFailure("192.168.1.1", "/api/emails", "test")

	timestamp, ok := decode(t, buf)["timestamp"].(string)
	assert.True(t, ok)
	assert.NotEmpty(t, timestamp)
	assert.True(t, strings.Contains(timestamp, "T"))
}
