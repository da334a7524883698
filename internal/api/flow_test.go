package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TridentTech8969/ASA/internal/api/middleware"
	"github.com/TridentTech8969/ASA/internal/database"
	"github.com/TridentTech8969/ASA/internal/imap"
	"github.com/TridentTech8969/ASA/internal/metrics"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/TridentTech8969/ASA/internal/repository"
	"github.com/TridentTech8969/ASA/internal/services"
	"github.com/TridentTech8969/ASA/internal/storage"
	"github.com/TridentTech8969/ASA/internal/testutil"
	"github.com/TridentTech8969/ASA/internal/websocket"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteMessage = `From: Priya Shah <priya@example.com>
To: office@example.com
Subject: Quote request
Date: Sun, 15 Jun 2025 09:30:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Please quote for the attached list.

--b1
Content-Type: text/csv; name="items.csv"
Content-Disposition: attachment; filename="items.csv"

sku,qty
A-1,20

--b1--
`

// TestMailboxToDashboardFlow drives a sync cycle against an in-process IMAP
// server and checks what the dashboard sees over HTTP and the websocket.
func TestMailboxToDashboardFlow(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)

	imapSrv := testutil.NewIMAPServer(t)
	uid := imapSrv.Append(t, quoteMessage)

	db, err := database.Connect("sqlite:"+filepath.Join(t.TempDir(), "inbox.db"), "test", log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, log))
	t.Cleanup(func() { _ = database.Close(db) })

	messages := repository.NewMessageRepository(db)
	attachments := repository.NewAttachmentRepository(db)
	cache, err := storage.NewLocalCache(t.TempDir())
	require.NoError(t, err)
	m := metrics.NewMetrics()

	hubCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	hub := websocket.NewHub(log, m)
	go hub.Run(hubCtx)

	client := imap.NewClient(imap.Config{
		Address:  imapSrv.Address,
		Username: imapSrv.Username,
		Password: imapSrv.Password,
		Timeout:  5 * time.Second,
		Location: time.UTC,
	}, log)
	syncService := services.NewSyncService(client, messages, hub, m, services.SyncConfig{}, log)

	e := NewRouter(&RouterConfig{
		DB:             db,
		Emails:         services.NewEmailService(messages, attachments, client, cache, time.UTC, log),
		Contacts:       services.NewContactService(messages, nil, hub, m, services.ContactConfig{}, time.UTC, log),
		Sync:           syncService,
		Hub:            hub,
		Metrics:        m,
		Limiter:        middleware.NewIPRateLimiter(1000, 1000),
		Logger:         log,
		AllowedOrigins: []string{"*"},
	})
	httpSrv := httptest.NewServer(e)
	t.Cleanup(httpSrv.Close)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(httpSrv.URL, "http")+"/hubs/email", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// First cycle: both INBOX messages are new and pushed in one frame.
	result, err := syncService.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.New)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var event struct {
		Type string                `json:"type"`
		Data []models.EmailSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &event))
	assert.Equal(t, "NewEmails", event.Type)
	require.Len(t, event.Data, 2)

	id := models.MessageID(uid, models.Folder)

	get := func(path string) *http.Response {
		resp, err := http.Get(httpSrv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("/api/emails")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		TotalCount int64                 `json:"totalCount"`
		Data       []models.EmailSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, int64(2), page.TotalCount)

	resp = get("/api/emails/" + id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail models.EmailDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, "Quote request", detail.Subject)
	assert.Contains(t, detail.TextBody, "Please quote")
	assert.False(t, detail.Unread)
	require.Len(t, detail.Attachments, 1)
	assert.Equal(t, "items.csv", detail.Attachments[0].FileName)

	resp = get(fmt.Sprintf("/api/emails/%s/attachment?fileName=items.csv", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "items.csv")

	resp = get(fmt.Sprintf("/api/emails/%s/attachment?fileName=missing.pdf", id))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Second cycle: nothing new, so nothing is pushed.
	result, err = syncService.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.New)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "no frame expected after a cycle without new messages")

	stored, err := messages.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, stored.Unread, "re-sync must not flip the read flag back")
}
