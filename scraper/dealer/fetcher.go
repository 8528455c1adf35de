package dealer

import (
	"context"
	"fmt"
	"time"

	"carbi-scraper/config"
	"carbi-scraper/utils"

	"github.com/chromedp/chromedp"
)

// StatusError reports a non-2xx response for the main document
type StatusError struct {
	URL    string
	Status int64
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Status, e.URL)
}

// BrowserFetcher renders dealer pages in headless Chrome
type BrowserFetcher struct {
	cfg    *config.Config
	logger *utils.Logger
	pacer  *Pacer
}

// NewBrowserFetcher creates a new BrowserFetcher
func NewBrowserFetcher(cfg *config.Config, logger *utils.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		cfg:    cfg,
		logger: logger,
		pacer:  NewPacer(),
	}
}

// newContext starts a fresh browser with its own profile, so cookies and
// storage never leak from one dealer to the next
func (f *BrowserFetcher) newContext(parent context.Context, userAgent string) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1366, 900),
	)
	if f.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(f.cfg.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelCtx()
		cancelAlloc()
	}
	return ctx, cancel
}

// Fetch loads pageURL, dismisses cookie banners, scrolls to trigger lazy
// loading and returns the rendered HTML. The browser is always closed before
// Fetch returns.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	ua := RandomUserAgent(f.pacer)
	f.logger.Debug("User agent: %s", ua)

	browserCtx, cancel := f.newContext(ctx, ua)
	defer cancel()

	// start the browser on the long-lived context; a timeout context on the
	// first Run would kill the whole browser when it expires
	if err := chromedp.Run(browserCtx); err != nil {
		return "", fmt.Errorf("start browser: %w", err)
	}

	err := utils.RetryWithBackoff(browserCtx, f.cfg.NavRetries, time.Second, func(ctx context.Context) error {
		return f.navigate(ctx, pageURL)
	}, f.logger)
	if err != nil {
		return "", err
	}

	if err := f.pacer.Pause(browserCtx, f.cfg.PauseMin, f.cfg.PauseMax); err != nil {
		return "", err
	}
	dismissCookieBanner(browserCtx, f.pacer, f.logger)
	if err := naturalScroll(browserCtx, f.logger); err != nil {
		return "", err
	}
	if err := f.pacer.Pause(browserCtx, 2*time.Second, 4*time.Second); err != nil {
		return "", err
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

func (f *BrowserFetcher) navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavTimeout)
	defer cancel()

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(pageURL))
	if err != nil {
		return fmt.Errorf("navigate failed: %w", err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status > 299) {
		return &StatusError{URL: pageURL, Status: resp.Status}
	}
	if err := chromedp.Run(navCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for body: %w", err)
	}
	return nil
}
