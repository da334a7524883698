// Package testutil provides in-process mail servers for tests.
package testutil

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// SeedUID is the uid of the message the memory backend places in INBOX.
const SeedUID uint32 = 6

// IMAPServer is an IMAP server backed by go-imap's memory backend.
// The backend has a single user "username" with password "password" and an
// INBOX holding one read message with uid SeedUID.
type IMAPServer struct {
	Address  string
	Username string
	Password string

	srv *server.Server
}

// NewIMAPServer starts a server on a random local port. It is closed when
// the test finishes.
func NewIMAPServer(t *testing.T) *IMAPServer {
	t.Helper()

	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	go func() {
		_ = s.Serve(listener)
	}()

	t.Cleanup(func() {
		_ = s.Close()
	})

	return &IMAPServer{
		Address:  listener.Addr().String(),
		Username: "username",
		Password: "password",
		srv:      s,
	}
}

func (s *IMAPServer) connect(t *testing.T) *imapclient.Client {
	t.Helper()

	c, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("failed to connect to test server: %v", err)
	}
	if err := c.Login(s.Username, s.Password); err != nil {
		_ = c.Logout()
		t.Fatalf("failed to login: %v", err)
	}
	return c
}

// Append stores a raw RFC 822 message in INBOX and returns its uid.
func (s *IMAPServer) Append(t *testing.T, raw string, flags ...string) uint32 {
	t.Helper()

	c := s.connect(t)
	defer func() { _ = c.Logout() }()

	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\n", "\r\n")

	if err := c.Append("INBOX", flags, time.Now(), strings.NewReader(raw)); err != nil {
		t.Fatalf("failed to append message: %v", err)
	}

	status, err := c.Select("INBOX", true)
	if err != nil {
		t.Fatalf("failed to select INBOX: %v", err)
	}
	return status.UidNext - 1
}

// SetFlags adds flags to the message with the given uid.
func (s *IMAPServer) SetFlags(t *testing.T, uid uint32, flags ...string) {
	t.Helper()

	c := s.connect(t)
	defer func() { _ = c.Logout() }()

	if _, err := c.Select("INBOX", false); err != nil {
		t.Fatalf("failed to select INBOX: %v", err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	values := make([]interface{}, len(flags))
	for i, f := range flags {
		values[i] = f
	}
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqSet, item, values, nil); err != nil {
		t.Fatalf("failed to store flags: %v", err)
	}
}
