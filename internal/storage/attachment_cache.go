// Package storage caches downloaded attachments on local disk.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Security errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file exceeds size limit")
)

// MaxFileSize is the largest attachment kept in the cache (25 MB).
const MaxFileSize = 25 * 1024 * 1024

var unsafeDirChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// AttachmentCache stores attachment bytes so repeated downloads skip the
// mailbox. Paths returned by Save are relative to the cache root.
type AttachmentCache interface {
	Save(messageID, fileName string, data []byte) (string, error)
	Read(path string) ([]byte, error)
	Delete(path string) error
}

// localCache implements AttachmentCache using the local filesystem
type localCache struct {
	basePath string
}

// NewLocalCache creates the cache root if needed.
func NewLocalCache(basePath string) (AttachmentCache, error) {
	if basePath == "" {
		return nil, errors.New("cache path is required")
	}
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &localCache{basePath: basePath}, nil
}

// validatePath ensures path is within basePath (prevents traversal)
func (s *localCache) validatePath(path string) (string, error) {
	cleanPath := filepath.Clean(path)

	if filepath.IsAbs(cleanPath) {
		return "", ErrPathTraversal
	}
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return absPath, nil
}

// messageDir turns a message id such as "1032@INBOX" into a safe directory name.
func messageDir(messageID string) string {
	dir := unsafeDirChars.ReplaceAllString(messageID, "_")
	if dir == "" || strings.Trim(dir, "_") == "" {
		return "unknown"
	}
	return dir
}

// Save writes data under a per-message directory with a random file name
// that keeps the original extension.
func (s *localCache) Save(messageID, fileName string, data []byte) (string, error) {
	if len(data) > MaxFileSize {
		return "", ErrFileTooLarge
	}

	dir := messageDir(messageID)
	if err := os.MkdirAll(filepath.Join(s.basePath, dir), 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if unsafeDirChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	relPath := filepath.Join(dir, uuid.New().String()+ext)
	fullPath := filepath.Join(s.basePath, relPath)

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, bytes.NewReader(data)); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return relPath, nil
}

// Read returns the cached bytes at path.
func (s *localCache) Read(path string) ([]byte, error) {
	fullPath, err := s.validatePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete removes a cached file. Missing files are not an error.
func (s *localCache) Delete(path string) error {
	fullPath, err := s.validatePath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
