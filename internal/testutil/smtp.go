package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// CapturedMail is one message accepted by SMTPServer.
type CapturedMail struct {
	From string
	To   []string
	Data []byte
	// TLS reports whether the message arrived over an encrypted connection.
	TLS bool
}

// SMTPOption configures NewSMTPServer.
type SMTPOption func(*smtpOptions)

type smtpOptions struct {
	startTLS    bool
	implicitTLS bool
}

// WithSTARTTLS makes the server advertise STARTTLS with a self-signed
// certificate for 127.0.0.1 and localhost.
func WithSTARTTLS() SMTPOption {
	return func(o *smtpOptions) { o.startTLS = true }
}

// WithImplicitTLS makes the server speak TLS from the first byte.
func WithImplicitTLS() SMTPOption {
	return func(o *smtpOptions) { o.implicitTLS = true }
}

// SMTPServer accepts mail and keeps it in memory. When Username is set the
// server requires PLAIN authentication with those credentials.
type SMTPServer struct {
	Address  string
	Username string
	Password string
	// RootCAs trusts the server certificate. It is nil for plaintext servers.
	RootCAs *x509.CertPool

	mu       sync.Mutex
	messages []CapturedMail
	failData error
	srv      *smtp.Server
}

// NewSMTPServer starts a capture server on a random local port. It is closed
// when the test finishes.
func NewSMTPServer(t *testing.T, opts ...SMTPOption) *SMTPServer {
	t.Helper()

	var o smtpOptions
	for _, opt := range opts {
		opt(&o)
	}

	cs := &SMTPServer{
		Username: "test-user",
		Password: "test-pass",
	}

	s := smtp.NewServer(cs)
	s.Domain = "localhost"
	s.AllowInsecureAuth = true
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.MaxMessageBytes = 10 * 1024 * 1024
	s.MaxRecipients = 50

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	if o.startTLS || o.implicitTLS {
		cert, pool := selfSignedCert(t)
		cs.RootCAs = pool
		tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		if o.implicitTLS {
			listener = tls.NewListener(listener, tlsCfg)
		} else {
			s.TLSConfig = tlsCfg
		}
	}

	go func() {
		_ = s.Serve(listener)
	}()

	t.Cleanup(func() {
		_ = s.Close()
	})

	cs.Address = listener.Addr().String()
	cs.srv = s
	return cs
}

// ClientTLSConfig returns a client config that trusts the server certificate.
func (s *SMTPServer) ClientTLSConfig() *tls.Config {
	return &tls.Config{RootCAs: s.RootCAs, ServerName: "127.0.0.1", MinVersion: tls.VersionTLS12}
}

func selfSignedCert(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, pool
}

// Messages returns a copy of the accepted messages.
func (s *SMTPServer) Messages() []CapturedMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CapturedMail(nil), s.messages...)
}

// FailData makes every following DATA command fail with err.
func (s *SMTPServer) FailData(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failData = err
}

// NewSession implements smtp.Backend.
func (s *SMTPServer) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &captureSession{server: s, conn: c}, nil
}

type captureSession struct {
	server *SMTPServer
	conn   *smtp.Conn
	from   string
	to     []string
}

func (cs *captureSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (cs *captureSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != cs.server.Username || password != cs.server.Password {
			return errors.New("invalid credentials")
		}
		return nil
	}), nil
}

func (cs *captureSession) Mail(from string, _ *smtp.MailOptions) error {
	cs.from = from
	return nil
}

func (cs *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	cs.to = append(cs.to, to)
	return nil
}

func (cs *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	cs.server.mu.Lock()
	defer cs.server.mu.Unlock()

	if cs.server.failData != nil {
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 3, 0},
			Message:      cs.server.failData.Error(),
		}
	}

	cs.server.messages = append(cs.server.messages, CapturedMail{
		From: cs.from,
		To:   append([]string(nil), cs.to...),
		Data: data,
		TLS:  cs.encrypted(),
	})
	return nil
}

func (cs *captureSession) encrypted() bool {
	_, ok := cs.conn.Conn().(*tls.Conn)
	return ok
}

func (cs *captureSession) Reset() {
	cs.from = ""
	cs.to = nil
}

func (cs *captureSession) Logout() error {
	return nil
}
