package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/httpclient"
	"google.golang.org/genai"
)

// ErrMissingAPIKey is returned when the selected provider has no API key
var ErrMissingAPIKey = fmt.Errorf("%w: LLM provider API key is not configured", common.ErrConfiguration)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGroq uses an OpenAI-compatible chat completions API
	ProviderGroq ProviderType = "groq"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	Messages          []Message
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
	JSONOutput        bool // Ask the provider for a JSON object reply where supported
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// ProviderFactory routes content requests to the provider selected by model
// name or configuration. Clients are created lazily and reused.
type ProviderFactory struct {
	llmConfig    *common.LLMConfig
	groqConfig   *common.GroqConfig
	claudeConfig *common.ClaudeConfig
	geminiConfig *common.GeminiConfig
	logger       arbor.ILogger
	retry        *RetryConfig

	mu           sync.Mutex
	chatClient   *ChatClient
	geminiClient *genai.Client
	claudeClient *anthropic.Client
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(config *common.Config, logger arbor.ILogger) *ProviderFactory {
	return &ProviderFactory{
		llmConfig:    &config.LLM,
		groqConfig:   &config.Groq,
		claudeConfig: &config.Claude,
		geminiConfig: &config.Gemini,
		logger:       logger,
		retry:        NewRetryConfig(config.LLM.MaxRetries),
	}
}

// WithChatClient replaces the chat completions client (used by tests)
func (f *ProviderFactory) WithChatClient(client *ChatClient) *ProviderFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatClient = client
	return f
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" or "claude/claude-sonnet-4-20250514" -> Claude
// - "gemini-2.5-flash" or "gemini/gemini-2.5-flash" -> Gemini
// - "groq/moonshotai/kimi-k2-instruct" -> Groq
// - anything else -> default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	switch {
	case model == "":
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	case strings.HasPrefix(model, "groq/"):
		return ProviderGroq
	}

	if f.llmConfig.DefaultProvider == "" {
		return ProviderGroq
	}
	return ProviderType(f.llmConfig.DefaultProvider)
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/", "groq/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the default model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.claudeConfig.Model
	case ProviderGemini:
		return f.geminiConfig.Model
	default:
		return f.groqConfig.Model
	}
}

// GenerateContent generates content using the appropriate provider based on model
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Generating content with provider")

	switch provider {
	case ProviderClaude:
		return f.generateWithClaude(ctx, request, model)
	case ProviderGemini:
		return f.generateWithGemini(ctx, request, model)
	default:
		return f.generateWithGroq(ctx, request, model)
	}
}

// withRetry runs call until it succeeds, retries are exhausted or ctx ends
func (f *ProviderFactory) withRetry(ctx context.Context, provider ProviderType, call func() error) error {
	var err error
	for attempt := 0; attempt <= f.retry.MaxRetries; attempt++ {
		if err = call(); err == nil {
			return nil
		}

		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && !apiErr.IsRateLimited() {
			return err
		}

		if attempt == f.retry.MaxRetries {
			break
		}

		backoff := f.retry.backoffFor(attempt, err)
		f.logger.Warn().
			Str("provider", string(provider)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying LLM API call")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	if f.retry.MaxRetries > 0 {
		return fmt.Errorf("%s API call failed after %d retries: %w", provider, f.retry.MaxRetries, err)
	}
	return fmt.Errorf("%s API call failed: %w", provider, err)
}

func (f *ProviderFactory) getChatClient() (*ChatClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.chatClient != nil {
		return f.chatClient, nil
	}
	if f.groqConfig.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	f.chatClient = NewChatClient(f.groqConfig.BaseURL, f.groqConfig.APIKey, f.logger,
		httpclient.WithTimeout(f.llmConfig.Timeout),
		httpclient.WithRateLimit(f.groqConfig.RateLimit),
	)
	return f.chatClient, nil
}

func (f *ProviderFactory) generateWithGroq(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.getChatClient()
	if err != nil {
		return nil, err
	}

	messages, err := convertMessagesToChat(request.Messages, request.SystemInstruction)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	chatReq := ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxTokens,
		TopP:        1,
	}
	if request.JSONOutput {
		chatReq.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	var resp *ChatCompletionResponse
	err = f.withRetry(ctx, ProviderGroq, func() error {
		var callErr error
		resp, callErr = client.ChatCompletion(ctx, chatReq)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	text, err := resp.Text()
	if err != nil {
		return nil, err
	}

	return &ContentResponse{
		Text:     text,
		Provider: ProviderGroq,
		Model:    model,
	}, nil
}

func (f *ProviderFactory) getClaudeClient() (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeClient != nil {
		return f.claudeClient, nil
	}
	if f.claudeConfig.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := anthropic.NewClient(
		option.WithAPIKey(f.claudeConfig.APIKey),
		option.WithRequestTimeout(f.llmConfig.Timeout),
	)
	f.claudeClient = &client
	return f.claudeClient, nil
}

func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.getClaudeClient()
	if err != nil {
		return nil, err
	}

	claudeMessages, systemText, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(request.Temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	var resp *anthropic.Message
	err = f.withRetry(ctx, ProviderClaude, func() error {
		var callErr error
		resp, callErr = client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}

func (f *ProviderFactory) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}
	if f.geminiConfig.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  f.geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.getGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	contents, systemText, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(request.Temperature),
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	if request.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	var resp *genai.GenerateContentResponse
	err = f.withRetry(ctx, ProviderGemini, func() error {
		var callErr error
		resp, callErr = client.Models.GenerateContent(ctx, model, contents, config)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}
	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	return &ContentResponse{
		Text:     responseText,
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}

// Close releases provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.geminiClient = nil
	f.claudeClient = nil
	f.chatClient = nil
	return nil
}
