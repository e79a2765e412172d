package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultPageSpeedURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Audit holds the PageSpeed metrics used for scoring. Scores are 0-100, nil
// when the category was missing from the response.
type Audit struct {
	Performance   *int
	SEO           *int
	Accessibility *int
	LoadTime      *float64 // seconds, one decimal
}

type Auditor interface {
	Audit(ctx context.Context, pageURL string) (*Audit, error)
}

// PageSpeedClient runs mobile-only Lighthouse audits through PageSpeed
// Insights. The API key is optional and only raises the quota.
type PageSpeedClient struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewPageSpeedClient(apiKey string) *PageSpeedClient {
	return &PageSpeedClient{
		APIKey:  apiKey,
		BaseURL: DefaultPageSpeedURL,
		HTTP:    &http.Client{Timeout: AuditTimeout},
	}
}

type pageSpeedResponse struct {
	LighthouseResult struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]struct {
			NumericValue *float64 `json:"numericValue"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *PageSpeedClient) Audit(ctx context.Context, pageURL string) (*Audit, error) {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("strategy", "mobile")
	q.Add("category", "performance")
	q.Add("category", "seo")
	q.Add("category", "accessibility")
	if p.APIKey != "" {
		q.Set("key", p.APIKey)
	}

	base := p.BaseURL
	if base == "" {
		base = DefaultPageSpeedURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := p.HTTP
	if client == nil {
		client = &http.Client{Timeout: AuditTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pagespeed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("pagespeed status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var body pageSpeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode pagespeed response: %w", err)
	}
	if body.Error != nil {
		return nil, fmt.Errorf("pagespeed error %d: %s", body.Error.Code, body.Error.Message)
	}

	cats := body.LighthouseResult.Categories
	audit := &Audit{
		Performance:   categoryScore(cats["performance"].Score),
		SEO:           categoryScore(cats["seo"].Score),
		Accessibility: categoryScore(cats["accessibility"].Score),
	}
	if si, ok := body.LighthouseResult.Audits["speed-index"]; ok && si.NumericValue != nil {
		secs := math.Round(*si.NumericValue/100) / 10
		audit.LoadTime = &secs
	}
	return audit, nil
}

func categoryScore(v *float64) *int {
	if v == nil {
		return nil
	}
	s := int(math.Round(*v * 100))
	return &s
}

// AuditTimeout bounds one PageSpeed call.
const AuditTimeout = 30 * time.Second
