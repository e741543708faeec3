package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
)

// ErrNotConfigured is returned when SMTP settings are incomplete
var ErrNotConfigured = fmt.Errorf("%w: SMTP not configured", common.ErrConfiguration)

// implicitTLSPort is the SMTPS port; other ports upgrade with STARTTLS
const implicitTLSPort = 465

// Transport delivers composed message bytes
type Transport interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// Service sends email through SMTP
type Service struct {
	config    common.EmailConfig
	transport Transport
	logger    arbor.ILogger
	now       func() time.Time
}

// Option customises a Service
type Option func(*Service)

// WithTransport replaces the SMTP transport
func WithTransport(t Transport) Option {
	return func(s *Service) {
		s.transport = t
	}
}

// NewService creates a mailer for the configured SMTP account
func NewService(config common.EmailConfig, logger arbor.ILogger, opts ...Option) *Service {
	s := &Service{
		config: config,
		logger: logger,
		now:    time.Now,
	}
	s.transport = &smtpTransport{config: config}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsConfigured checks the minimum settings needed to send
func (s *Service) IsConfigured() bool {
	c := s.config
	return c.Host != "" && c.Username != "" && c.Password != "" && c.From != ""
}

// Send composes and delivers a message. An empty recipient falls back to
// the configured one.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if msg.To == "" {
		msg.To = s.config.Recipient
	}
	if msg.To == "" {
		return fmt.Errorf("%w: no recipient", common.ErrConfiguration)
	}

	raw, err := Compose(s.config.FromName, s.config.From, msg, s.now())
	if err != nil {
		return err
	}

	if err := s.transport.Send(ctx, s.config.From, []string{msg.To}, raw); err != nil {
		s.logger.Error().Err(err).Str("to", msg.To).Msg("Failed to send email")
		return err
	}

	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("Email sent")
	return nil
}

type smtpTransport struct {
	config common.EmailConfig
}

func (t *smtpTransport) Send(ctx context.Context, from string, to []string, msg []byte) error {
	c := t.config
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}
	tlsConfig := &tls.Config{ServerName: c.Host}

	var conn net.Conn
	var err error
	if c.UseTLS && c.Port == implicitTLSPort {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, c.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if c.UseTLS && c.Port != implicitTLSPort {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(smtp.PlainAuth("", c.Username, c.Password, c.Host)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set mail recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := client.Quit(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to quit SMTP session: %w", err)
	}
	return nil
}
