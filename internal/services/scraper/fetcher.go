// -----------------------------------------------------------------------
// Authenticated Fetcher - logs into the report site with a headless
// browser and captures the report container of one page
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reportrelay/internal/common"
	"github.com/ternarybob/reportrelay/internal/models"
)

var (
	// ErrMissingCredentials is returned when the site asks for a login and no credentials are configured
	ErrMissingCredentials = fmt.Errorf("%w: report site credentials are not configured", common.ErrConfiguration)
	// ErrLoginTimeout is returned when the post-login page never reaches network idle
	ErrLoginTimeout = errors.New("login did not complete before timeout")
	// ErrLoginRejected is returned when the login form is still shown after submitting
	ErrLoginRejected = errors.New("login rejected by report site")
)

// Fetcher retrieves report pages through an authenticated browser session.
// Every call launches and tears down its own browser.
type Fetcher struct {
	source common.SourceConfig
	logger arbor.ILogger
}

// NewFetcher creates a fetcher for the configured report source
func NewFetcher(source common.SourceConfig, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		source: source,
		logger: logger,
	}
}

// Fetch logs in if the site presents a login challenge, opens targetURL and
// captures the report container. Errors are reported in the result; the
// returned error is non-nil only alongside a failed result so callers can
// classify it with errors.Is.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (models.ScrapeResult, error) {
	started := time.Now()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			f.logger.Debug().Msgf("chromedp: "+format, args...)
		}),
	)
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		return f.fail(targetURL, fmt.Errorf("failed to start browser: %w", err))
	}

	// The main frame of a page target shares the target's ID
	nav := newNavigationWatcher(cdp.FrameID(chromedp.FromContext(browserCtx).Target.TargetID))
	chromedp.ListenTarget(browserCtx, nav.observe)

	if err := f.login(browserCtx, nav); err != nil {
		return f.fail(targetURL, err)
	}

	result, err := f.capture(browserCtx, targetURL)
	if err != nil {
		return f.fail(targetURL, err)
	}

	f.logger.Info().
		Str("url", targetURL).
		Str("title", result.Title).
		Int("html_length", len(result.HTMLContent)).
		Int("text_length", len(result.TextContent)).
		Int("images", len(result.Images)).
		Dur("duration", time.Since(started)).
		Msg("Report page fetched")

	return result, nil
}

func (f *Fetcher) fail(targetURL string, err error) (models.ScrapeResult, error) {
	f.logger.Error().Err(err).Str("url", targetURL).Msg("Report fetch failed")
	return models.FailedScrape(targetURL, errorMessage(err)), err
}

// errorMessage flattens browser timeouts to the short message the webhook reports
func errorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}

func (f *Fetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(f.source.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-extensions", true),
	}
	if f.source.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	return opts
}

// login opens the login page and submits credentials when the username
// input is present. A single attempt is made. Credentials are only required
// once a challenge is actually shown.
func (f *Fetcher) login(browserCtx context.Context, nav *navigationWatcher) error {
	ctx, cancel := context.WithTimeout(browserCtx, f.source.LoginTimeout)
	defer cancel()

	loginURL := f.source.LoginURL()

	present, err := f.hasElement(ctx, loginURL, f.source.UsernameSelector)
	if err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if !present {
		f.logger.Debug().Str("login_url", loginURL).Msg("No login challenge, session already authenticated")
		return nil
	}

	if err := f.requireCredentials(loginURL); err != nil {
		return err
	}

	f.logger.Debug().Str("login_url", loginURL).Msg("Login challenge detected, submitting credentials")

	// Let the login page settle first so its own idle event cannot be
	// mistaken for the post-submit navigation
	if err := nav.waitIdle(ctx, ""); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginTimeout, err)
	}

	if err := chromedp.Run(ctx,
		chromedp.SendKeys(f.source.UsernameSelector, f.source.Username, chromedp.ByQuery),
		chromedp.SendKeys(f.source.PasswordSelector, f.source.Password, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to fill login form: %w", err)
	}

	loginLoader := nav.loader()

	if err := chromedp.Run(ctx, chromedp.Click(f.source.SubmitSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	if err := nav.waitIdle(ctx, loginLoader); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginTimeout, err)
	}

	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(f.source.UsernameSelector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return fmt.Errorf("failed to verify login: %w", err)
	}
	if len(nodes) > 0 {
		return ErrLoginRejected
	}

	f.logger.Info().Str("login_url", loginURL).Msg("Logged in to report site")
	return nil
}

func (f *Fetcher) requireCredentials(loginURL string) error {
	if f.source.HasCredentials() {
		return nil
	}
	f.logger.Error().Str("login_url", loginURL).Msg("Login challenge shown but report site credentials are not configured")
	return ErrMissingCredentials
}

func (f *Fetcher) hasElement(ctx context.Context, pageURL, selector string) (bool, error) {
	var nodes []*cdp.Node
	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// capture navigates to the report and reads the content container
func (f *Fetcher) capture(browserCtx context.Context, targetURL string) (models.ScrapeResult, error) {
	ctx, cancel := context.WithTimeout(browserCtx, f.source.PageTimeout)
	defer cancel()

	var title, innerHTML, innerText, location string
	err := chromedp.Run(ctx,
		chromedp.Navigate(targetURL),
		chromedp.WaitVisible(f.source.MarkerSelector, chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Location(&location),
		chromedp.InnerHTML(f.source.ContentSelector, &innerHTML, chromedp.ByQuery),
		chromedp.Text(f.source.ContentSelector, &innerText, chromedp.ByQuery),
	)
	if err != nil {
		return models.ScrapeResult{}, fmt.Errorf("failed to load report page: %w", err)
	}

	if location == "" {
		location = targetURL
	}

	cleaned, images := processContainer(innerHTML, location)

	return models.ScrapeResult{
		Success:     true,
		URL:         targetURL,
		Title:       strings.TrimSpace(title),
		HTMLContent: cleaned,
		TextContent: strings.TrimSpace(innerText),
		Images:      images,
	}, nil
}
