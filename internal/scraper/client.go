// internal/scraper/client.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient fetches pages over plain HTTP with a browser-like header set.
// A single attempt is made per URL; retries are deliberately out of scope.
type HTTPClient struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
}

// ClientConfig defines configuration options for the HTTP fetcher.
type ClientConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
	RateLimit    float64 // requests per second
	RateBurst    int
}

// NewHTTPClient creates an HTTP fetcher with the specified configuration.
func NewHTTPClient(config ClientConfig) *HTTPClient {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxRedirects == 0 {
		config.MaxRedirects = 5
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1.0
	}
	if config.RateBurst == 0 {
		config.RateBurst = 5
	}

	maxRedirects := config.MaxRedirects
	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &HTTPClient{
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		userAgent:   config.UserAgent,
	}
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetch performs a single GET against the URL. On any failure the returned
// document is nil: callers never see a partial body.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (*RawDocument, error) {
	if _, err := url.ParseRequestURI(targetURL); err != nil {
		return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	c.setRequestHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: targetURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return &RawDocument{
		URL:        targetURL,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

// setRequestHeaders applies the fixed desktop-browser header set.
func (c *HTTPClient) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en-US;q=0.9,en;q=0.8")
	// Accept-Encoding is left to the transport so gzip bodies are
	// decompressed transparently.
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Cache-Control", "max-age=0")
}
