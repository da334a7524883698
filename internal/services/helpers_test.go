package services

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/TridentTech8969/ASA/internal/database"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/TridentTech8969/ASA/internal/repository"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.DiscardHandler)

// newStore opens a migrated SQLite store in the test's temp dir.
func newStore(t *testing.T) (repository.MessageRepository, repository.AttachmentRepository) {
	t.Helper()
	db, err := database.Connect("sqlite:"+filepath.Join(t.TempDir(), "inbox.db"), "test", testLogger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, testLogger))
	t.Cleanup(func() { _ = database.Close(db) })
	return repository.NewMessageRepository(db), repository.NewAttachmentRepository(db)
}

func mailboxMessage(uid uint32, subject string, received time.Time) models.Message {
	return models.Message{
		ID:            models.MessageID(uid, models.Folder),
		UID:           uid,
		Folder:        models.Folder,
		FromName:      "Sender",
		FromEmail:     "sender@example.com",
		Subject:       subject,
		ReceivedUTC:   received.UTC(),
		ReceivedLocal: models.FormatLocal(received, time.UTC),
		Unread:        true,
		Labels:        []string{},
	}
}

func summaryIDs(items []models.EmailSummary) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}
