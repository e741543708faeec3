package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/httpclient"
)

// ParseModeMarkdown selects Telegram's legacy Markdown formatting
const ParseModeMarkdown = "Markdown"

// SendMessageRequest is the body of sendMessage
type SendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// Message is the subset of a sent message returned by the API
type Message struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
}

type apiResponse struct {
	OK          bool    `json:"ok"`
	Result      Message `json:"result"`
	Description string  `json:"description"`
}

// Client posts messages to one Telegram chat through the Bot API
type Client struct {
	api    *httpclient.JSONClient
	chatID string
	token  string
	logger arbor.ILogger
}

// NewClient creates a Telegram client from configuration
func NewClient(config common.TelegramConfig, logger arbor.ILogger, opts ...httpclient.ClientOption) *Client {
	options := []httpclient.ClientOption{
		httpclient.WithTimeout(config.Timeout),
		httpclient.WithRateLimit(config.RateLimit),
		httpclient.WithLogger(logger),
	}
	options = append(options, opts...)

	baseURL := strings.TrimRight(config.BaseURL, "/") + "/bot" + config.BotToken

	return &Client{
		api:    httpclient.NewJSONClient("Telegram", baseURL, options...),
		chatID: config.ChatID,
		token:  config.BotToken,
		logger: logger,
	}
}

// SendMessage posts a Markdown message to the configured chat
func (c *Client) SendMessage(ctx context.Context, text string, disablePreview bool) (*Message, error) {
	req := SendMessageRequest{
		ChatID:                c.chatID,
		Text:                  text,
		ParseMode:             ParseModeMarkdown,
		DisableWebPagePreview: disablePreview,
	}

	var resp apiResponse
	if err := c.api.Do(ctx, http.MethodPost, "/sendMessage", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to send Telegram message: %w", c.redact(err))
	}
	if !resp.OK {
		return nil, fmt.Errorf("failed to send Telegram message: %s", resp.Description)
	}

	c.logger.Debug().Int64("message_id", resp.Result.MessageID).Msg("Telegram message sent")
	return &resp.Result, nil
}

// redact strips the bot token from err. The token is part of every request
// URL, so both API errors and transport errors (*url.Error) can carry it.
func (c *Client) redact(err error) error {
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		apiErr.Endpoint = "/sendMessage"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactToken(urlErr.URL, c.token)
	}

	if c.token != "" && strings.Contains(err.Error(), c.token) {
		return errors.New(redactToken(err.Error(), c.token))
	}
	return err
}

func redactToken(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<redacted>")
}
