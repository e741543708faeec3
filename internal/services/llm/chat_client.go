package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/httpclient"
)

// ChatCompletionRequest is the payload of an OpenAI-compatible chat completion
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	TopP           float32         `json:"top_p,omitempty"`
	Stream         bool            `json:"stream"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat requests JSON-mode output
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatChoice captures a single completion alternative
type ChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// ChatCompletionResponse is the subset of the completion response we use
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ChatClient calls an OpenAI-compatible /chat/completions endpoint (Groq by default)
type ChatClient struct {
	api *httpclient.JSONClient
}

// NewChatClient creates a chat completions client authenticated with apiKey
func NewChatClient(baseURL, apiKey string, logger arbor.ILogger, opts ...httpclient.ClientOption) *ChatClient {
	options := []httpclient.ClientOption{
		httpclient.WithHeader("Authorization", "Bearer "+apiKey),
		httpclient.WithLogger(logger),
	}
	options = append(options, opts...)

	return &ChatClient{
		api: httpclient.NewJSONClient("Groq", baseURL, options...),
	}
}

// ChatCompletion executes one chat completion request
func (c *ChatClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var resp ChatCompletionResponse
	if err := c.api.Do(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Text returns the content of the first choice
func (r *ChatCompletionResponse) Text() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", fmt.Errorf("empty response from chat completions API")
	}
	text := r.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty text in chat completions response")
	}
	return text, nil
}
