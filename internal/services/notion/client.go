package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/httpclient"
)

// Client is a Notion API client scoped to one database
type Client struct {
	api        *httpclient.JSONClient
	databaseID string
	logger     arbor.ILogger
}

// NewClient creates a Notion client from configuration
func NewClient(config common.NotionConfig, logger arbor.ILogger, opts ...httpclient.ClientOption) *Client {
	options := []httpclient.ClientOption{
		httpclient.WithHeader("Authorization", "Bearer "+config.Token),
		httpclient.WithHeader("Notion-Version", config.Version),
		httpclient.WithTimeout(config.Timeout),
		httpclient.WithRateLimit(config.RateLimit),
		httpclient.WithLogger(logger),
	}
	options = append(options, opts...)

	return &Client{
		api:        httpclient.NewJSONClient("Notion", config.BaseURL, options...),
		databaseID: config.DatabaseID,
		logger:     logger,
	}
}

// CreatePage creates a page in the configured database
func (c *Client) CreatePage(ctx context.Context, properties map[string]Property, children []Block) (*Page, error) {
	if len(children) > MaxChildren {
		children = children[:MaxChildren]
	}

	req := CreatePageRequest{
		Parent:     Parent{DatabaseID: c.databaseID},
		Properties: properties,
		Children:   children,
	}

	var page Page
	if err := c.api.Do(ctx, http.MethodPost, "/pages", req, &page); err != nil {
		return nil, fmt.Errorf("failed to create Notion page: %w", err)
	}

	c.logger.Info().
		Str("page_id", page.ID).
		Int("blocks", len(children)).
		Msg("Created Notion page")

	return &page, nil
}

// UpdatePageStatus sets the Status select property of a page
func (c *Client) UpdatePageStatus(ctx context.Context, pageID, status string) error {
	req := UpdatePageRequest{
		Properties: map[string]Property{
			"Status": {Select: &SelectOption{Name: status}},
		},
	}

	if err := c.api.Do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(pageID), req, nil); err != nil {
		return fmt.Errorf("failed to update Notion page status: %w", err)
	}

	c.logger.Debug().Str("page_id", pageID).Str("status", status).Msg("Updated Notion page status")
	return nil
}
