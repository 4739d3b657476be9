// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail/smtp"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/mailsend/pkg/credential"
)

// DefaultTimeout bounds dialing and every command exchange of a session.
const DefaultTimeout = 15 * time.Second

// SMTPConfig configures the implicit-TLS SMTP transport.
type SMTPConfig struct {
	// Timeout applies to the dial and is re-armed before each command group.
	Timeout time.Duration
	// HeloName is sent with EHLO. Defaults to the local hostname.
	HeloName string
	// InsecureSkipVerify disables server certificate verification.
	InsecureSkipVerify bool
	// TLSConfig is cloned for every connection; ServerName and MinVersion are
	// always overridden. Nil uses the system roots.
	TLSConfig *tls.Config
}

// SMTPTransport connects to SMTP submission servers that speak TLS from the
// first byte (SMTPS, usually port 465). STARTTLS is never attempted.
type SMTPTransport struct {
	cfg    SMTPConfig
	logger *zap.SugaredLogger
}

var _ Transport = (*SMTPTransport)(nil)

// NewSMTPTransport creates a transport. A nil logger disables logging.
func NewSMTPTransport(cfg SMTPConfig, logger *zap.SugaredLogger) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HeloName == "" {
		cfg.HeloName = localHostname()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.InsecureSkipVerify {
		logger.Warnw("TLS certificate verification is disabled for SMTP connections")
	}
	return &SMTPTransport{cfg: cfg, logger: logger.Named("smtp")}
}

func (t *SMTPTransport) tlsConfig(host string) *tls.Config {
	var c *tls.Config
	if t.cfg.TLSConfig != nil {
		c = t.cfg.TLSConfig.Clone()
	} else {
		c = &tls.Config{}
	}
	c.ServerName = host
	c.MinVersion = tls.VersionTLS12
	if t.cfg.InsecureSkipVerify {
		c.InsecureSkipVerify = true //nolint:gosec // opt-in via configuration
	}
	return c
}

// Connect implements Transport.
func (t *SMTPTransport) Connect(ctx context.Context, host string, port int) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: t.tlsConfig(host)}
	nc, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, &ProtocolError{Err: fmt.Errorf("failed to dial %s: %w", addr, err)}
	}
	if err := nc.SetDeadline(time.Now().Add(t.cfg.Timeout)); err != nil {
		_ = nc.Close()
		return nil, &ProtocolError{Err: fmt.Errorf("failed to set connection deadline: %w", err)}
	}

	client, err := smtp.NewClient(nc, host)
	if err != nil {
		_ = nc.Close()
		return nil, classify(StageConnect, "", err)
	}
	if err := client.Hello(t.cfg.HeloName); err != nil {
		_ = client.Close()
		return nil, classify(StageConnect, "", err)
	}

	t.logger.Debugw("SMTP session established", "addr", addr, "helo", t.cfg.HeloName)

	return &smtpConn{
		client:  client,
		conn:    nc,
		host:    host,
		timeout: t.cfg.Timeout,
		logger:  t.logger,
	}, nil
}

// smtpConn is one SMTP session over an implicit-TLS connection.
type smtpConn struct {
	client  *smtp.Client
	conn    net.Conn
	host    string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

var (
	_ Conn              = (*smtpConn)(nil)
	_ gomail.SendCloser = (*smtpConn)(nil)
)

func (c *smtpConn) rearm() error {
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return &ProtocolError{Err: fmt.Errorf("failed to extend connection deadline: %w", err)}
	}
	return nil
}

func (c *smtpConn) SupportsAuth() bool {
	ok, _ := c.client.Extension("AUTH")
	return ok
}

func (c *smtpConn) Authenticate(username string, password credential.Secret) error {
	if err := c.rearm(); err != nil {
		return err
	}
	_, mechs := c.client.Extension("AUTH")
	auth, mech, err := pickAuth(mechs, username, password, c.host)
	if err != nil {
		return err
	}
	c.logger.Debugw("Authenticating", "mechanism", mech, "username", username)
	if err := c.client.Auth(auth); err != nil {
		return classify(StageAuthenticate, "", err)
	}
	return nil
}

// pickAuth chooses the strongest mechanism both sides support, preferring
// PLAIN over LOGIN over CRAM-MD5 since the session is already encrypted.
func pickAuth(advertised, username string, password credential.Secret, host string) (smtp.Auth, string, error) {
	mechs := strings.Fields(strings.ToUpper(advertised))
	has := func(name string) bool {
		for _, m := range mechs {
			if m == name {
				return true
			}
		}
		return false
	}
	switch {
	case has("PLAIN"):
		return smtp.PlainAuth("", username, password.Reveal(), host), "PLAIN", nil
	case has("LOGIN"):
		return smtp.LoginAuth(username, password.Reveal(), host), "LOGIN", nil
	case has("CRAM-MD5"):
		return smtp.CRAMMD5Auth(username, password.Reveal()), "CRAM-MD5", nil
	default:
		return nil, "", &ProtocolError{Err: fmt.Errorf("no supported AUTH mechanism among %q", advertised)}
	}
}

func (c *smtpConn) Send(from string, to []string, msg io.WriterTo) error {
	if err := c.rearm(); err != nil {
		return err
	}
	if err := c.client.Mail(from); err != nil {
		return classify(StageSend, SenderNotAccepted, err)
	}
	for _, rcpt := range to {
		if err := c.client.Rcpt(rcpt); err != nil {
			return classify(StageSend, RecipientNotAccepted, err)
		}
	}
	w, err := c.client.Data()
	if err != nil {
		return classify(StageSend, MessageNotAccepted, err)
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return &ProtocolError{Err: fmt.Errorf("failed to write message data: %w", err)}
	}
	if err := w.Close(); err != nil {
		return classify(StageSend, MessageNotAccepted, err)
	}
	return nil
}

// Close sends QUIT and falls back to dropping the socket if the server does
// not answer.
func (c *smtpConn) Close() error {
	_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	if err := c.client.Quit(); err != nil {
		_ = c.client.Close()
		return fmt.Errorf("failed to quit SMTP session: %w", err)
	}
	return nil
}

func localHostname() string {
	hn, err := os.Hostname()
	if err != nil || hn == "" {
		return "localhost"
	}
	return hn
}
