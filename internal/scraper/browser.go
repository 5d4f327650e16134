// internal/scraper/browser.go
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserClient fetches pages through headless Chrome, for sources that
// render product data with JavaScript. It satisfies Fetcher, so the
// ingestion pipeline is agnostic to which client produced the document.
type BrowserClient struct {
	config BrowserConfig
}

// BrowserConfig configures the headless browser fetcher.
type BrowserConfig struct {
	Timeout      time.Duration
	UserAgent    string
	WaitSelector string // optional element to wait for after navigation
}

// NewBrowserClient creates a headless Chrome fetcher.
func NewBrowserClient(config BrowserConfig) *BrowserClient {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	return &BrowserClient{config: config}
}

// Fetch navigates to the URL, waits for the page (and optional selector)
// to be ready, and returns the rendered document. The rendered HTML is an
// explicit return value; no state is mutated inside navigation callbacks.
func (b *BrowserClient) Fetch(ctx context.Context, targetURL string) (*RawDocument, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(b.config.UserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, b.config.Timeout)
	defer cancelRun()

	tasks := []chromedp.Action{
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
	}
	if b.config.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(b.config.WaitSelector))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("browser navigation: %w", err)}
	}

	return &RawDocument{
		URL:        targetURL,
		StatusCode: 200,
		Body:       html,
	}, nil
}
