package sinks

import (
	"context"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/models"
	"github.com/ternarybob/reportrelay/internal/services/telegram"
)

// MessageSender posts a formatted chat message
type MessageSender interface {
	SendMessage(ctx context.Context, text string, disablePreview bool) (*telegram.Message, error)
}

// ChatSink posts a short report notification to Telegram
type ChatSink struct {
	sender   MessageSender
	insights int
	logger   arbor.ILogger
}

// NewChatSink creates the chat sink showing up to insights key insights
func NewChatSink(sender MessageSender, insights int, logger arbor.ILogger) *ChatSink {
	return &ChatSink{
		sender:   sender,
		insights: insights,
		logger:   logger,
	}
}

// Name implements Sink
func (s *ChatSink) Name() string {
	return models.SinkChat
}

// Deliver implements Sink
func (s *ChatSink) Deliver(ctx context.Context, report *models.CanonicalReport, refs Refs) (Receipt, error) {
	text := telegram.FormatReport(report, refs.KnowledgeBaseURL, s.insights)

	msg, err := s.sender.SendMessage(ctx, text, true)
	if err != nil {
		return Receipt{}, err
	}
	id := strconv.FormatInt(msg.MessageID, 10)
	return Receipt{Reference: id, ID: id}, nil
}

// ChatErrorNotifier reports processing failures to the chat
type ChatErrorNotifier struct {
	sender MessageSender
	logger arbor.ILogger
	now    func() time.Time
}

// NewChatErrorNotifier creates an error notifier over a chat sender
func NewChatErrorNotifier(sender MessageSender, logger arbor.ILogger) *ChatErrorNotifier {
	return &ChatErrorNotifier{
		sender: sender,
		logger: logger,
		now:    time.Now,
	}
}

// NotifyError sends the error message; failures are logged and swallowed
func (n *ChatErrorNotifier) NotifyError(ctx context.Context, errMsg, detail string) {
	defer func() {
		if r := recover(); r != nil {
			logRecovered(n.logger, "error_notifier", r)
		}
	}()

	text := telegram.FormatError(errMsg, detail, n.now())
	if _, err := n.sender.SendMessage(ctx, text, true); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to send error notification")
		return
	}
	n.logger.Debug().Str("context", detail).Msg("Error notification sent")
}
