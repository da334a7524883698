// Package mailer sends outbound notification mail.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"

	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/metrics"
)

// Mail is one outbound message. Text and HTML are sent as alternatives.
type Mail struct {
	ToName       string
	ToEmail      string
	ReplyToName  string
	ReplyToEmail string
	Subject      string
	Text         string
	HTML         string
}

// Mailer delivers outbound mail.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// Config holds the SMTP relay settings.
type Config struct {
	Address   string
	UseTLS    bool
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Timeout   time.Duration

	// TLSConfig overrides the TLS settings for implicit TLS and STARTTLS.
	TLSConfig *tls.Config
}

// SMTPMailer composes messages with enmime and relays them through an SMTP
// server. Implicit TLS is used when UseTLS is set, otherwise STARTTLS is
// negotiated when the server offers it.
type SMTPMailer struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg Config, logger *slog.Logger, m *metrics.Metrics) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "mailer")),
		metrics: m,
	}
}

// Send composes and delivers mail. Errors wrap ErrMailSendFailed.
func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	raw, err := m.compose(mail)
	if err != nil {
		m.observe(metrics.ResultFailure)
		return fmt.Errorf("%w: compose: %v", apperrors.ErrMailSendFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	err = m.deliver(ctx, mail.ToEmail, raw)
	if err != nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %v", ctx.Err(), err)
	}

	if err != nil {
		m.observe(metrics.ResultFailure)
		m.logger.Error("failed to send mail",
			slog.String("to", mail.ToEmail),
			slog.String("subject", mail.Subject),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", apperrors.ErrMailSendFailed, err)
	}

	m.observe(metrics.ResultSuccess)
	m.logger.Info("mail sent",
		slog.String("to", mail.ToEmail),
		slog.String("subject", mail.Subject))
	return nil
}

func (m *SMTPMailer) compose(mail Mail) ([]byte, error) {
	builder := enmime.Builder().
		From(m.cfg.FromName, m.cfg.FromEmail).
		To(mail.ToName, mail.ToEmail).
		Subject(mail.Subject).
		Date(time.Now())
	if mail.ReplyToEmail != "" {
		builder = builder.ReplyTo(mail.ReplyToName, mail.ReplyToEmail)
	}
	if mail.Text != "" {
		builder = builder.Text([]byte(mail.Text))
	}
	if mail.HTML != "" {
		builder = builder.HTML([]byte(mail.HTML))
	}

	part, err := builder.Build()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *SMTPMailer) deliver(ctx context.Context, to string, raw []byte) error {
	c, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if m.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.SendMail(m.cfg.FromEmail, []string{to}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return c.Quit()
}

// connect opens a client over implicit TLS when UseTLS is set. Otherwise it
// negotiates STARTTLS and only falls back to plaintext when the server does
// not advertise the extension.
func (m *SMTPMailer) connect(ctx context.Context) (*smtp.Client, error) {
	tlsCfg := m.tlsConfig()

	conn, err := m.dialConn(ctx)
	if err != nil {
		return nil, err
	}

	if m.cfg.UseTLS {
		return m.withTimeouts(smtp.NewClient(tls.Client(conn, tlsCfg))), nil
	}

	c, tlsErr := smtp.NewClientStartTLS(conn, tlsCfg)
	if tlsErr == nil {
		return m.withTimeouts(c), nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("starttls: %w", tlsErr)
	}

	conn, err = m.dialConn(ctx)
	if err != nil {
		return nil, err
	}
	c = m.withTimeouts(smtp.NewClient(conn))
	if ok, _ := c.Extension("STARTTLS"); ok {
		_ = c.Close()
		return nil, fmt.Errorf("starttls: %w", tlsErr)
	}
	return c, nil
}

// dialConn connects within ctx and closes the connection once ctx is done,
// which unblocks any command still waiting on the server.
func (m *SMTPMailer) dialConn(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	return conn, nil
}

func (m *SMTPMailer) withTimeouts(c *smtp.Client) *smtp.Client {
	c.CommandTimeout = m.cfg.Timeout
	c.SubmissionTimeout = m.cfg.Timeout
	return c
}

func (m *SMTPMailer) tlsConfig() *tls.Config {
	if m.cfg.TLSConfig != nil {
		return m.cfg.TLSConfig.Clone()
	}
	host, _, err := net.SplitHostPort(m.cfg.Address)
	if err != nil {
		host = m.cfg.Address
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

func (m *SMTPMailer) observe(result string) {
	if m.metrics != nil {
		m.metrics.MailSends.WithLabelValues(result).Inc()
	}
}

// NopMailer drops mail. It is used when no SMTP relay is configured.
type NopMailer struct {
	logger *slog.Logger
}

// NewNopMailer creates a mailer that only logs.
func NewNopMailer(logger *slog.Logger) *NopMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NopMailer{logger: logger.With(slog.String("component", "mailer"))}
}

// Send logs the mail and returns nil.
func (n *NopMailer) Send(_ context.Context, mail Mail) error {
	n.logger.Warn("SMTP not configured, mail not sent",
		slog.String("to", mail.ToEmail),
		slog.String("subject", mail.Subject))
	return nil
}
