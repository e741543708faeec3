package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
)

// SourceName marks notifications that came from the mailbox poller
const SourceName = "imap"

const dialTimeout = 30 * time.Second

// ErrNotConfigured is returned when IMAP settings are incomplete
var ErrNotConfigured = fmt.Errorf("%w: IMAP not configured", common.ErrConfiguration)

// Email represents a fetched email message
type Email struct {
	UID      uint32
	From     string
	Subject  string
	HTMLBody string
	TextBody string
	Date     time.Time
}

// Notification converts the email to a pipeline notification
func (e Email) Notification() models.InboundNotification {
	return models.InboundNotification{
		Subject:  e.Subject,
		HTMLBody: e.HTMLBody,
		TextBody: e.TextBody,
		Source:   SourceName,
	}
}

// Processor handles one notification; a nil error marks the message seen
type Processor func(ctx context.Context, notification models.InboundNotification) error

// mailbox is an open, selected IMAP session
type mailbox interface {
	Unseen(ctx context.Context) ([]Email, error)
	MarkSeen(uid uint32) error
	Close() error
}

// Service polls one mailbox for report notifications
type Service struct {
	config common.IMAPConfig
	logger arbor.ILogger
	open   func(ctx context.Context) (mailbox, error)
}

// NewService creates a new IMAP service
func NewService(config common.IMAPConfig, logger arbor.ILogger) *Service {
	s := &Service{
		config: config,
		logger: logger,
	}
	s.open = s.dial
	return s
}

// IsConfigured checks if IMAP is configured with minimum required settings
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Username != "" && s.config.Password != ""
}

// Poll fetches unseen messages whose subject matches the filter and hands
// each to process. Messages are marked seen only after processing succeeds.
// Returns the number of messages processed successfully.
func (s *Service) Poll(ctx context.Context, process Processor) (int, error) {
	if !s.IsConfigured() {
		return 0, ErrNotConfigured
	}

	mb, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer mb.Close()

	emails, err := mb.Unseen(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, email := range emails {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if !MatchesSubject(email.Subject, s.config.SubjectFilter) {
			continue
		}

		s.logger.Info().
			Int64("uid", int64(email.UID)).
			Str("from", email.From).
			Str("subject", email.Subject).
			Msg("Processing mailbox message")

		if err := process(ctx, email.Notification()); err != nil {
			s.logger.Warn().Err(err).Int64("uid", int64(email.UID)).Msg("Message processing failed, leaving unseen")
			continue
		}

		if err := mb.MarkSeen(email.UID); err != nil {
			s.logger.Warn().Err(err).Int64("uid", int64(email.UID)).Msg("Failed to mark message seen")
		}
		processed++
	}

	return processed, nil
}

// MatchesSubject reports whether subject contains filter, case-insensitively.
// An empty filter matches everything.
func MatchesSubject(subject, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(subject), strings.ToLower(filter))
}

func (s *Service) dial(ctx context.Context) (mailbox, error) {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}

	var c *client.Client
	var err error
	if s.config.UseTLS {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: s.config.Host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	c.Timeout = dialTimeout

	if err := c.Login(s.config.Username, s.config.Password); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}

	name := s.config.Mailbox
	if name == "" {
		name = "INBOX"
	}
	if _, err := c.Select(name, false); err != nil {
		_ = c.Logout()
		return nil, fmt.Errorf("failed to select %s: %w", name, err)
	}

	return &imapMailbox{client: c, logger: s.logger}, nil
}

type imapMailbox struct {
	client *client.Client
	logger arbor.ILogger
}

func (m *imapMailbox) Unseen(ctx context.Context) ([]Email, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search for unseen messages: %w", err)
	}
	if len(uids) == 0 {
		m.logger.Debug().Msg("No unseen messages")
		return []Email{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	// Peek so fetching does not set \Seen
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	emails := make([]Email, 0, len(uids))
	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}

		r := msg.GetBody(section)
		if r == nil {
			m.logger.Warn().Int64("uid", int64(msg.Uid)).Msg("Message has no body section")
			continue
		}
		htmlBody, textBody, err := ParseBody(r)
		if err != nil {
			m.logger.Warn().Err(err).Int64("uid", int64(msg.Uid)).Msg("Failed to parse message body")
			continue
		}

		from := ""
		if len(msg.Envelope.From) > 0 {
			from = msg.Envelope.From[0].Address()
		}

		emails = append(emails, Email{
			UID:      msg.Uid,
			From:     from,
			Subject:  msg.Envelope.Subject,
			HTMLBody: htmlBody,
			TextBody: textBody,
			Date:     msg.Envelope.Date,
		})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return emails, ctx.Err()
}

func (m *imapMailbox) MarkSeen(uid uint32) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.client.UidStore(seqSet, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to mark message seen: %w", err)
	}
	return nil
}

func (m *imapMailbox) Close() error {
	return m.client.Logout()
}

// ParseBody extracts the first HTML and plain-text inline parts of a message
func ParseBody(r io.Reader) (htmlBody, textBody string, err error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", "", fmt.Errorf("failed to create mail reader: %w", err)
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to read next part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		switch {
		case contentType == "text/html" && htmlBody == "":
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", "", fmt.Errorf("failed to read html body: %w", err)
			}
			htmlBody = string(b)
		case (contentType == "text/plain" || contentType == "") && textBody == "":
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", "", fmt.Errorf("failed to read text body: %w", err)
			}
			textBody = string(b)
		}
	}

	return strings.TrimSpace(htmlBody), strings.TrimSpace(textBody), nil
}
