package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultUserAgent is sent by every outbound page fetch.
const DefaultUserAgent = "Mozilla/5.0 (compatible; WamelinkProspector/1.0; +https://wamelinkwebdesign.nl)"

// Document is a fetched page. Body must be closed by the caller.
type Document struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     http.Header
}

// IsHTML reports whether the response declared an HTML content type.
func (d *Document) IsHTML() bool {
	ct := strings.ToLower(d.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// ReadAll reads at most limit bytes of the body and closes it.
func (d *Document) ReadAll(limit int64) ([]byte, error) {
	defer d.Body.Close()
	b, err := io.ReadAll(io.LimitReader(d.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.URL, err)
	}
	return b, nil
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// StatusError is returned for a non-200 response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.Status, e.URL)
}
