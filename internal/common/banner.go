package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the active sinks
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Report Relay", GetVersion())

	logger.Info().
		Str("environment", config.Environment).
		Str("source", config.Source.BaseURL).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Bool("notion", config.Notion.Enabled).
		Bool("telegram", config.Telegram.Enabled).
		Bool("email", config.Email.Enabled).
		Bool("imap_poller", config.IMAP.Enabled).
		Bool("history", config.History.Enabled).
		Msg("Report relay configuration")
}
