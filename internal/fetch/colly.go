package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher fetches a single page with a fresh colly collector. It makes
// exactly one attempt per call.
type CollyFetcher struct {
	UserAgent      string
	RequestTimeout time.Duration
	MaxBodySize    int
	Transport      http.RoundTripper
}

func NewCollyFetcher(timeout time.Duration) *CollyFetcher {
	return &CollyFetcher{
		UserAgent:      DefaultUserAgent,
		RequestTimeout: timeout,
		MaxBodySize:    5 * 1024 * 1024,
		Transport:      NewSafeTransport(),
	}
}

func (f *CollyFetcher) buildCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.MaxBodySize(f.MaxBodySize),
		colly.DetectCharset(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(f.RequestTimeout)
	if f.Transport != nil {
		c.WithTransport(f.Transport)
	}
	c.SetRedirectHandler(SafeCheckRedirect)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "nl-NL,nl;q=0.9,en;q=0.8")
	})
	return c
}

func (f *CollyFetcher) Fetch(ctx context.Context, targetURL string) (*Document, error) {
	if _, err := url.Parse(targetURL); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	c := f.buildCollector()

	var result *Document
	c.OnResponse(func(r *colly.Response) {
		result = &Document{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        io.NopCloser(bytes.NewReader(r.Body)),
			FetchedAt:   time.Now(),
			Headers:     r.Headers.Clone(),
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(targetURL)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", targetURL, err)
		}
	}

	if result == nil {
		return nil, fmt.Errorf("no response received for %s", targetURL)
	}
	if result.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: targetURL, Status: result.StatusCode}
	}
	return result, nil
}
