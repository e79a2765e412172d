// Package places searches the Google Places API (New) for businesses and maps
// them onto prospects.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/industry"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

const (
	DefaultBaseURL    = "https://places.googleapis.com"
	MaxResults        = 20
	searchPath        = "/v1/places:searchText"
	fieldMask         = "places.id,places.displayName,places.formattedAddress,places.nationalPhoneNumber,places.internationalPhoneNumber,places.websiteUri,places.rating,places.userRatingCount"
	maxErrorBodyBytes = 4096
)

var (
	ErrNotConfigured = errors.New("GOOGLE_PLACES_API_KEY is not configured")
	ErrEmptyQuery    = errors.New("city, industry or customQuery is required")
)

// APIError is a non-2xx answer from the Places API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("places api error (%d): %s", e.Status, e.Message)
}

type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type SearchRequest struct {
	City        string `json:"city"`
	Industry    string `json:"industry"`
	CustomQuery string `json:"customQuery"`
	MaxResults  int    `json:"maxResults"`
}

type SearchResult struct {
	Query     string            `json:"query"`
	Prospects []models.Prospect `json:"results"`
}

// BuildQuery returns the text query for req: customQuery verbatim, otherwise
// the industry's search terms followed by " in <city>".
func BuildQuery(req SearchRequest) (string, error) {
	if q := strings.TrimSpace(req.CustomQuery); q != "" {
		return q, nil
	}
	city := strings.TrimSpace(req.City)
	ind := strings.TrimSpace(req.Industry)
	if city == "" && ind == "" {
		return "", ErrEmptyQuery
	}
	if ind == "" {
		ind = industry.Other
	}
	terms := industry.SearchQuery(ind)
	if terms == "" {
		terms = ind
	}
	if city == "" {
		return terms, nil
	}
	return terms + " in " + city, nil
}

type searchTextRequest struct {
	TextQuery      string `json:"textQuery"`
	LanguageCode   string `json:"languageCode"`
	RegionCode     string `json:"regionCode"`
	MaxResultCount int    `json:"maxResultCount"`
}

type place struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress         string  `json:"formattedAddress"`
	NationalPhoneNumber      string  `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string  `json:"internationalPhoneNumber"`
	WebsiteURI               string  `json:"websiteUri"`
	Rating                   float64 `json:"rating"`
	UserRatingCount          int     `json:"userRatingCount"`
}

type searchTextResponse struct {
	Places []place `json:"places"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Search issues one text-search request. There is no retry.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	query, err := BuildQuery(req)
	if err != nil {
		return nil, err
	}
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}

	limit := req.MaxResults
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}

	payload, err := json.Marshal(searchTextRequest{
		TextQuery:      query,
		LanguageCode:   "nl",
		RegionCode:     "NL",
		MaxResultCount: limit,
	})
	if err != nil {
		return nil, err
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+searchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.APIKey)
	httpReq.Header.Set("X-Goog-FieldMask", fieldMask)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	var body searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}

	indID := ""
	if req.Industry != "" {
		indID = industry.Normalize(req.Industry)
	}
	prospects := make([]models.Prospect, 0, len(body.Places))
	for _, p := range body.Places {
		phone := p.NationalPhoneNumber
		if phone == "" {
			phone = p.InternationalPhoneNumber
		}
		prospects = append(prospects, models.Prospect{
			PlaceID:     p.ID,
			CompanyName: p.DisplayName.Text,
			Address:     p.FormattedAddress,
			City:        ParseCity(p.FormattedAddress, req.City),
			Phone:       phone,
			Website:     p.WebsiteURI,
			Rating:      p.Rating,
			ReviewCount: p.UserRatingCount,
			Industry:    indID,
		})
		if len(prospects) == limit {
			break
		}
	}

	return &SearchResult{Query: query, Prospects: prospects}, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var body apiErrorBody
	msg := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		msg = body.Error.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

var (
	dutchPostcode   = regexp.MustCompile(`^\d{4}\s?[A-Za-z]{2}(\s+|$)`)
	numericPostcode = regexp.MustCompile(`^\d{4,5}(\s+|$)`)
)

// ParseCity takes the second-to-last comma separated segment of a formatted
// address and strips a leading postal code. fallback is returned when
// nothing usable remains.
func ParseCity(address, fallback string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return fallback
	}
	seg := strings.TrimSpace(parts[len(parts)-2])
	seg = dutchPostcode.ReplaceAllString(seg, "")
	seg = numericPostcode.ReplaceAllString(seg, "")
	seg = strings.TrimSpace(seg)
	if seg == "" || strings.IndexFunc(seg, func(r rune) bool { return r >= '0' && r <= '9' }) == 0 {
		return fallback
	}
	return seg
}
