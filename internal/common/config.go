package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// ErrConfiguration is returned when a required configuration value is missing
var ErrConfiguration = errors.New("configuration error")

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Storage     StorageConfig  `toml:"storage"`
	Source      SourceConfig   `toml:"source"`
	LLM         LLMConfig      `toml:"llm"`
	Groq        GroqConfig     `toml:"groq"`
	Claude      ClaudeConfig   `toml:"claude"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Notion      NotionConfig   `toml:"notion"`
	Telegram    TelegramConfig `toml:"telegram"`
	Email       EmailConfig    `toml:"email"`
	IMAP        IMAPConfig     `toml:"imap"`
	History     HistoryConfig  `toml:"history"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	File   string   `toml:"file"`   // Relative names land in logs/ next to the binary
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig locates the run history database
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Only deletes a directory that already holds a badger database
	InMemory       bool   `toml:"in_memory"`        // History is lost on restart
}

// SourceConfig describes the paywalled report site. Selectors are tied to the
// site's markup and must be updated when the site is redesigned.
type SourceConfig struct {
	BaseURL          string        `toml:"base_url"`
	LoginPath        string        `toml:"login_path"`
	Username         string        `toml:"username"`
	Password         string        `toml:"password"`
	UsernameSelector string        `toml:"username_selector"`
	PasswordSelector string        `toml:"password_selector"`
	SubmitSelector   string        `toml:"submit_selector"`
	MarkerSelector   string        `toml:"marker_selector"`  // Visible once the report page has rendered
	ContentSelector  string        `toml:"content_selector"` // Report body container
	AllowedDomain    string        `toml:"allowed_domain"`
	PathPrefix       string        `toml:"path_prefix"`
	Keywords         []string      `toml:"keywords"` // Fallback link heuristics
	UserAgent        string        `toml:"user_agent"`
	Headless         bool          `toml:"headless"`
	LoginTimeout     time.Duration `toml:"login_timeout"`
	PageTimeout      time.Duration `toml:"page_timeout"`
	MinContentWords  int           `toml:"min_content_words"`
}

// LoginURL returns the absolute login page URL
func (s SourceConfig) LoginURL() string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(s.LoginPath, "/")
}

// HasCredentials reports whether both site credentials are set
func (s SourceConfig) HasCredentials() bool {
	return s.Username != "" && s.Password != ""
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGroq uses an OpenAI-compatible chat completions endpoint (Groq by default)
	LLMProviderGroq LLMProvider = "groq"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig contains the provider-agnostic analysis settings
type LLMConfig struct {
	DefaultProvider  LLMProvider   `toml:"default_provider" validate:"oneof=groq claude gemini"`
	Model            string        `toml:"model"` // Optional override, may carry a provider prefix ("claude/...")
	MaxContentLength int           `toml:"max_content_length" validate:"min=1"`
	Temperature      float32       `toml:"temperature"`
	MaxTokens        int           `toml:"max_tokens"`
	Timeout          time.Duration `toml:"timeout"`
	MaxRetries       int           `toml:"max_retries" validate:"min=0"`
}

// GroqConfig contains configuration for the OpenAI-compatible chat completions provider
type GroqConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	RateLimit int    `toml:"rate_limit"` // Requests per second
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// NotionConfig contains the knowledge-base sink configuration
type NotionConfig struct {
	Enabled    bool          `toml:"enabled"`
	Token      string        `toml:"token"`
	DatabaseID string        `toml:"database_id"`
	BaseURL    string        `toml:"base_url"`
	Version    string        `toml:"version"`
	Timeout    time.Duration `toml:"timeout"`
	RateLimit  int           `toml:"rate_limit"` // Requests per second (Notion allows ~3)
	Status     string        `toml:"status"`     // Status of new pages
	DoneStatus string        `toml:"done_status"`
}

// TelegramConfig contains the chat sink configuration
type TelegramConfig struct {
	Enabled   bool          `toml:"enabled"`
	BotToken  string        `toml:"bot_token"`
	ChatID    string        `toml:"chat_id"`
	BaseURL   string        `toml:"base_url"`
	Timeout   time.Duration `toml:"timeout"`
	RateLimit int           `toml:"rate_limit"`
	Insights  int           `toml:"insights"` // Number of insights in the message
}

// EmailConfig contains the SMTP relay and email sink configuration
type EmailConfig struct {
	Enabled       bool          `toml:"enabled"`
	Host          string        `toml:"smtp_host"`
	Port          int           `toml:"smtp_port"`
	Username      string        `toml:"smtp_username"`
	Password      string        `toml:"smtp_password"`
	From          string        `toml:"smtp_from"`
	FromName      string        `toml:"smtp_from_name"`
	UseTLS        bool          `toml:"smtp_use_tls"`
	Recipient     string        `toml:"recipient"`
	SubjectPrefix string        `toml:"subject_prefix"`
	AttachPDF     bool          `toml:"attach_pdf"`
	Timeout       time.Duration `toml:"timeout"`
}

// IMAPConfig contains the optional mailbox poller configuration
type IMAPConfig struct {
	Enabled       bool   `toml:"enabled"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	UseTLS        bool   `toml:"use_tls"`
	Mailbox       string `toml:"mailbox"`
	SubjectFilter string `toml:"subject_filter"`
	Schedule      string `toml:"schedule"` // Cron schedule with seconds field
}

// HistoryConfig toggles the persisted run history
type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
	Limit   int  `toml:"limit"` // Default page size for GET /runs
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 5000,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
			File:   DefaultLogFile,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Source: SourceConfig{
			BaseURL:          "https://protradingskills.com",
			LoginPath:        "/wp-login.php",
			UsernameSelector: "input#user_login",
			PasswordSelector: "input#user_pass",
			SubmitSelector:   "#wp-submit",
			MarkerSelector:   "article h2",
			ContentSelector:  "div.entry-content",
			AllowedDomain:    "protradingskills.com",
			PathPrefix:       "/analysis/",
			Keywords:         []string{"report", "market", "analysis"},
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headless:         true,
			LoginTimeout:     30 * time.Second,
			PageTimeout:      60 * time.Second,
			MinContentWords:  20,
		},
		LLM: LLMConfig{
			DefaultProvider:  LLMProviderGroq,
			MaxContentLength: 8000,
			Temperature:      0.2,
			MaxTokens:        3000,
			Timeout:          2 * time.Minute,
			MaxRetries:       0, // One model request per report
		},
		Groq: GroqConfig{
			BaseURL:   "https://api.groq.com/openai/v1",
			Model:     "moonshotai/kimi-k2-instruct",
			RateLimit: 1,
		},
		Claude: ClaudeConfig{
			Model: "claude-haiku-4-5",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Notion: NotionConfig{
			Enabled:    true,
			BaseURL:    "https://api.notion.com/v1",
			Version:    "2022-06-28",
			Timeout:    30 * time.Second,
			RateLimit:  3,
			Status:     "New",
			DoneStatus: "Processed",
		},
		Telegram: TelegramConfig{
			Enabled:   true,
			BaseURL:   "https://api.telegram.org",
			Timeout:   15 * time.Second,
			RateLimit: 1,
			Insights:  3,
		},
		Email: EmailConfig{
			Enabled:       true,
			Port:          587,
			UseTLS:        true,
			FromName:      "Report Relay",
			SubjectPrefix: "Market Report",
			AttachPDF:     true,
			Timeout:       30 * time.Second,
		},
		IMAP: IMAPConfig{
			Enabled:  false,
			Port:     993,
			UseTLS:   true,
			Mailbox:  "INBOX",
			Schedule: "0 */5 * * * *", // Every 5 minutes
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   20,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> .env -> env
// Later files override earlier files. CLI flags are applied afterwards via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// A missing .env file is not an error
	_ = godotenv.Load()

	applyEnvOverrides(config)

	return config, nil
}

// envValue returns the first non-empty environment variable from names
func envValue(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides to config.
// REPORTRELAY_* names win over the unprefixed names used by existing deployments.
func applyEnvOverrides(config *Config) {
	if env := envValue("REPORTRELAY_ENV", "GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server
	if port := envValue("REPORTRELAY_SERVER_PORT", "PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := envValue("REPORTRELAY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging
	if level := envValue("REPORTRELAY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := envValue("REPORTRELAY_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if file := envValue("REPORTRELAY_LOG_FILE"); file != "" {
		config.Logging.File = file
	}

	// Storage
	if badgerPath := envValue("REPORTRELAY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Source site
	if v := envValue("REPORTRELAY_SOURCE_USERNAME", "WEBSITE_USERNAME"); v != "" {
		config.Source.Username = v
	}
	if v := envValue("REPORTRELAY_SOURCE_PASSWORD", "WEBSITE_PASSWORD"); v != "" {
		config.Source.Password = v
	}
	if v := envValue("REPORTRELAY_SOURCE_BASE_URL"); v != "" {
		config.Source.BaseURL = v
	}
	if v := envValue("REPORTRELAY_SOURCE_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Source.Headless = b
		}
	}

	// LLM
	if v := envValue("REPORTRELAY_LLM_PROVIDER"); v != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(v))
	}
	if v := envValue("REPORTRELAY_LLM_MODEL", "AI_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := envValue("REPORTRELAY_MAX_CONTENT_LENGTH", "MAX_CONTENT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.LLM.MaxContentLength = n
		}
	}
	if v := envValue("REPORTRELAY_GROQ_API_KEY", "GROQ_API_KEY"); v != "" {
		config.Groq.APIKey = v
	}
	if v := envValue("REPORTRELAY_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := envValue("REPORTRELAY_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}

	// Notion
	if v := envValue("REPORTRELAY_NOTION_TOKEN", "NOTION_TOKEN", "NOTION_API_KEY"); v != "" {
		config.Notion.Token = v
	}
	if v := envValue("REPORTRELAY_NOTION_DATABASE_ID", "NOTION_DATABASE_ID"); v != "" {
		config.Notion.DatabaseID = v
	}

	// Telegram
	if v := envValue("REPORTRELAY_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"); v != "" {
		config.Telegram.BotToken = v
	}
	if v := envValue("REPORTRELAY_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID"); v != "" {
		config.Telegram.ChatID = v
	}

	// Email
	if v := envValue("REPORTRELAY_SMTP_HOST", "SMTP_SERVER"); v != "" {
		config.Email.Host = v
	}
	if v := envValue("REPORTRELAY_SMTP_PORT", "SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Email.Port = p
		}
	}
	if v := envValue("REPORTRELAY_SMTP_USERNAME", "EMAIL_ADDRESS"); v != "" {
		config.Email.Username = v
		if config.Email.From == "" {
			config.Email.From = v
		}
	}
	if v := envValue("REPORTRELAY_SMTP_PASSWORD", "EMAIL_PASSWORD"); v != "" {
		config.Email.Password = v
	}
	if v := envValue("REPORTRELAY_EMAIL_RECIPIENT", "RECIPIENT_EMAIL"); v != "" {
		config.Email.Recipient = v
	}

	// IMAP
	if v := envValue("REPORTRELAY_IMAP_USERNAME"); v != "" {
		config.IMAP.Username = v
	}
	if v := envValue("REPORTRELAY_IMAP_PASSWORD"); v != "" {
		config.IMAP.Password = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks field constraints and reports every missing required
// value for the enabled features in a single ErrConfiguration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c.Server); err != nil {
		return fmt.Errorf("%w: server: %v", ErrConfiguration, err)
	}
	if err := validate.Struct(c.LLM); err != nil {
		return fmt.Errorf("%w: llm: %v", ErrConfiguration, err)
	}

	var missing []string
	if !c.Source.HasCredentials() {
		missing = append(missing, "source.username/source.password (WEBSITE_USERNAME, WEBSITE_PASSWORD)")
	}
	if c.Notion.Enabled && (c.Notion.Token == "" || c.Notion.DatabaseID == "") {
		missing = append(missing, "notion.token/notion.database_id (NOTION_TOKEN, NOTION_DATABASE_ID)")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		missing = append(missing, "telegram.bot_token/telegram.chat_id (TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID)")
	}
	if c.Email.Enabled && (c.Email.Host == "" || c.Email.Username == "" || c.Email.Password == "" || c.Email.Recipient == "") {
		missing = append(missing, "email.smtp_host/smtp_username/smtp_password/recipient")
	}
	if c.IMAP.Enabled && (c.IMAP.Host == "" || c.IMAP.Username == "" || c.IMAP.Password == "") {
		missing = append(missing, "imap.host/imap.username/imap.password")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
