// Package emailfinder crawls a handful of well-known pages of a prospect's
// site and ranks the email addresses it finds.
package emailfinder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/fetch"
)

const (
	DefaultBatchSize   = 4
	DefaultPageTimeout = 8 * time.Second
	GoodEnoughScore    = 50
	MaxResults         = 5
	maxPageBytes       = 2 << 20
)

// CandidatePaths are visited in this order; "" is the homepage.
var CandidatePaths = []string{"", "/contact", "/contact/", "/over-ons", "/about", "/about-us", "/impressum", "/contacteer-ons"}

var ErrInvalidURL = errors.New("invalid website url")

type Candidate struct {
	Email   string `json:"email"`
	Score   int    `json:"score"`
	FoundOn string `json:"foundOn"`
}

type Result struct {
	Domain       string      `json:"domain"`
	Emails       []Candidate `json:"emails"`
	BestEmail    *string     `json:"bestEmail"`
	PagesVisited []string    `json:"pagesVisited"`
}

type Finder struct {
	Fetcher     fetch.Fetcher
	BatchSize   int
	PageTimeout time.Duration
}

func New(fetcher fetch.Fetcher) *Finder {
	return &Finder{Fetcher: fetcher, BatchSize: DefaultBatchSize, PageTimeout: DefaultPageTimeout}
}

// NormalizeSite returns the https origin of raw and its bare domain
// (lowercase, without "www.").
func NormalizeSite(raw string) (origin, domain string, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", ErrInvalidURL
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
	case strings.HasPrefix(lower, "http://"):
		s = "https://" + s[len("http://"):]
	default:
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	host := strings.ToLower(u.Host)
	domain = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return "https://" + host, domain, nil
}

type pageResult struct {
	url    string
	emails []string
}

// Find visits the candidate pages in batches and stops after the first batch
// that produced an address scoring at least GoodEnoughScore.
func (f *Finder) Find(ctx context.Context, rawURL string) (*Result, error) {
	origin, domain, err := NormalizeSite(rawURL)
	if err != nil {
		return nil, err
	}

	batch := f.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	best := make(map[string]Candidate)
	var order []string
	res := &Result{Domain: domain, PagesVisited: []string{}}

	for start := 0; start < len(CandidatePaths); start += batch {
		end := min(start+batch, len(CandidatePaths))
		pages := make([]pageResult, end-start)

		g, gctx := errgroup.WithContext(ctx)
		for i, path := range CandidatePaths[start:end] {
			pageURL := origin + path
			pages[i].url = pageURL
			g.Go(func() error {
				emails, err := f.scrape(gctx, pageURL)
				if err != nil {
					log.Printf("[emailfinder] %s: %v", pageURL, err)
					return nil
				}
				pages[i].emails = emails
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Merge in page order so ties resolve the same way every run.
		found := false
		for _, p := range pages {
			if p.emails == nil {
				continue
			}
			res.PagesVisited = append(res.PagesVisited, p.url)
			for _, e := range p.emails {
				c := Candidate{Email: e, Score: Score(e, domain), FoundOn: p.url}
				prev, seen := best[e]
				if !seen {
					order = append(order, e)
				}
				if !seen || c.Score > prev.Score {
					best[e] = c
				}
				if c.Score >= GoodEnoughScore {
					found = true
				}
			}
		}
		if found {
			break
		}
	}

	all := make([]Candidate, 0, len(order))
	for _, e := range order {
		all = append(all, best[e])
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > MaxResults {
		all = all[:MaxResults]
	}
	res.Emails = all
	if len(all) > 0 {
		b := all[0].Email
		res.BestEmail = &b
	}
	return res, nil
}

// scrape returns the allowed addresses on one page. A nil slice with a nil
// error never happens; non-HTML pages are reported as errors.
func (f *Finder) scrape(ctx context.Context, pageURL string) ([]string, error) {
	timeout := f.PageTimeout
	if timeout <= 0 {
		timeout = DefaultPageTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	doc, err := f.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if !doc.IsHTML() {
		doc.Body.Close()
		return nil, fmt.Errorf("not html: %q", doc.ContentType)
	}
	body, err := doc.ReadAll(maxPageBytes)
	if err != nil {
		return nil, err
	}

	emails := []string{}
	for _, e := range ExtractEmails(string(body)) {
		if Allowed(e) {
			emails = append(emails, e)
		}
	}
	return emails, nil
}
