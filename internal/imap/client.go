package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap/client"

	apperrors "github.com/TridentTech8969/ASA/internal/errors"
)

const inboxFolder = "INBOX"

// Config describes how to reach and log into the mailbox.
type Config struct {
	Address     string
	UseSSL      bool
	Username    string
	Password    string
	Timeout     time.Duration
	GmailLabels bool
	Location    *time.Location

	// TLSConfig overrides the TLS settings used for implicit TLS and STARTTLS.
	TLSConfig *tls.Config
}

// Client talks to the remote mailbox. Every operation opens its own
// connection, logs in, examines INBOX read-only, does its work and logs out.
// A Client is safe for concurrent use.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a mailbox client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "imap")),
	}
}

// withSession runs fn against a freshly authenticated read-only INBOX.
// The whole exchange is bounded by the configured timeout and ctx.
func (c *Client) withSession(ctx context.Context, op string, fn func(cl *client.Client) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrMailboxUnavailable, op, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Closing the socket unblocks any pending read when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	cl, err := client.New(conn)
	if err != nil {
		conn.Close()
		return c.sessionError(ctx, op, "greeting", err)
	}
	cl.ErrorLog = slog.NewLogLogger(c.logger.Handler(), slog.LevelWarn)

	defer func() {
		if logoutErr := cl.Logout(); logoutErr != nil && !errors.Is(logoutErr, client.ErrAlreadyLoggedOut) {
			c.logger.Debug("logout failed", slog.String("op", op), slog.String("error", logoutErr.Error()))
		}
		c.logger.Debug("session closed", slog.String("op", op), slog.Duration("duration", time.Since(start)))
	}()

	if !c.cfg.UseSSL {
		if err := c.upgradeToTLS(cl); err != nil {
			return c.sessionError(ctx, op, "starttls", err)
		}
	}

	if err := cl.Login(c.cfg.Username, c.cfg.Password); err != nil {
		return c.sessionError(ctx, op, "login", err)
	}

	if _, err := cl.Select(inboxFolder, true); err != nil {
		return c.sessionError(ctx, op, "examine", err)
	}

	if err := fn(cl); err != nil {
		if ctx.Err() != nil {
			return c.sessionError(ctx, op, "fetch", err)
		}
		return err
	}
	return nil
}

func (c *Client) sessionError(ctx context.Context, op, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s %s: %w", apperrors.ErrMailboxUnavailable, op, step, ctxErr)
	}
	return fmt.Errorf("%w: %s %s: %v", apperrors.ErrMailboxUnavailable, op, step, err)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	if !c.cfg.UseSSL {
		return conn, nil
	}

	tlsConn := tls.Client(conn, c.tlsConfig())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to dial with TLS: %w", err)
	}
	return tlsConn, nil
}

func (c *Client) upgradeToTLS(cl *client.Client) error {
	ok, err := cl.SupportStartTLS()
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Warn("server does not offer STARTTLS, continuing in plain text",
			slog.String("address", c.cfg.Address))
		return nil
	}
	return cl.StartTLS(c.tlsConfig())
}

func (c *Client) tlsConfig() *tls.Config {
	if c.cfg.TLSConfig != nil {
		return c.cfg.TLSConfig.Clone()
	}
	host, _, err := net.SplitHostPort(c.cfg.Address)
	if err != nil {
		host = c.cfg.Address
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}
