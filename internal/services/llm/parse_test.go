package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/reportrelay/internal/httpclient"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantKey string
		wantErr bool
	}{
		{"plain object", `{"summary":"a"}`, "summary", false},
		{"fenced with language", "```json\n{\"summary\":\"a\"}\n```", "summary", false},
		{"fenced without language", "```\n{\"summary\":\"a\"}\n```", "summary", false},
		{"prose around object", "Here is the analysis:\n{\"summary\":\"a\"}\nThanks", "summary", false},
		{"array", `["a","b"]`, "", true},
		{"prose only", "The market went up.", "", true},
		{"broken json", `{"summary": "a"`, "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := parseReply(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, raw, tt.wantKey)
		})
	}
}

func TestMissingKeys(t *testing.T) {
	missing := missingKeys(map[string]interface{}{"summary": "x", "outlook": "y"})
	assert.Len(t, missing, len(requiredKeys)-2)
	assert.NotContains(t, missing, "summary")
}

func TestTruncate(t *testing.T) {
	s, cut := Truncate("héllo", 3)
	assert.Equal(t, "hél", s)
	assert.True(t, cut)

	s, cut = Truncate("héllo", 10)
	assert.Equal(t, "héllo", s)
	assert.False(t, cut)

	s, cut = Truncate("héllo", 0)
	assert.Equal(t, "héllo", s)
	assert.False(t, cut)
}

func TestBuildPrompt_ContentIsFinalSegment(t *testing.T) {
	prompt := BuildPrompt("REPORT BODY")
	assert.Contains(t, prompt, `"market_metrics"`)
	assert.Contains(t, prompt, "translate it to English")
	assert.Regexp(t, `Content to analyze:\nREPORT BODY$`, prompt)
}

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(&httpclient.APIError{StatusCode: 429}))
	assert.False(t, IsRateLimitError(&httpclient.APIError{StatusCode: 500}))
	assert.True(t, IsRateLimitError(errors.New("Error 429, Status: RESOURCE_EXHAUSTED")))
	assert.False(t, IsRateLimitError(errors.New("connection reset")))
}

func TestExtractRetryDelay(t *testing.T) {
	assert.Equal(t, 45*time.Second+387*time.Millisecond, ExtractRetryDelay(errors.New("Please retry in 45.387s.")).Round(time.Millisecond))
	assert.Equal(t, 7*time.Second, ExtractRetryDelay(errors.New("Rate limit reached. Please try again in 7s")))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("boom")))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewRetryConfig(3)

	assert.Equal(t, DefaultInitialBackoff, c.CalculateBackoff(0, 0))
	assert.Equal(t, 11*time.Second, c.CalculateBackoff(0, 10*time.Second))
	assert.Equal(t, DefaultMaxBackoff, c.CalculateBackoff(10, 0))
	assert.Equal(t, 0, NewRetryConfig(-1).MaxRetries)
}
