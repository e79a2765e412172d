// Package scorer rates prospect websites. A low overall score means a weak
// site and therefore a strong sales opportunity.
package scorer

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/fetch"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/metrics"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

const (
	MaxURLs          = 5
	FetchTimeout     = 10 * time.Second
	maxHTMLBytes     = 3 << 20
	unreachableScore = 10
)

type Scorer struct {
	Auditor Auditor
	Fetcher fetch.Fetcher
	Now     func() time.Time
}

func New(auditor Auditor, fetcher fetch.Fetcher) *Scorer {
	return &Scorer{Auditor: auditor, Fetcher: fetcher, Now: time.Now}
}

// NormalizeURL trims the input and adds https:// when no scheme is given.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		u = "https://" + u
	}
	return u
}

// ScoreURLs scores up to MaxURLs sites concurrently and returns them sorted by
// descending prospect score. Per-site failures degrade that site's result;
// only cancellation of ctx fails the call.
func (s *Scorer) ScoreURLs(ctx context.Context, urls []string) ([]models.WebsiteScore, error) {
	var targets []string
	for _, raw := range urls {
		if u := NormalizeURL(raw); u != "" {
			targets = append(targets, u)
		}
		if len(targets) == MaxURLs {
			break
		}
	}

	results := make([]models.WebsiteScore, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxURLs)
	for i, u := range targets {
		g.Go(func() error {
			results[i] = s.ScoreURL(gctx, u)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ProspectScore > results[j].ProspectScore
	})
	return results, nil
}

// ScoreURL runs the audit and the homepage fetch for one site in parallel.
func (s *Scorer) ScoreURL(ctx context.Context, pageURL string) models.WebsiteScore {
	var (
		audit   *Audit
		html    string
		htmlErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.Auditor == nil {
			return nil
		}
		actx, cancel := context.WithTimeout(gctx, AuditTimeout)
		defer cancel()
		a, err := s.Auditor.Audit(actx, pageURL)
		if err != nil {
			log.Printf("[scorer] audit %s failed: %v", pageURL, err)
			metrics.RecordIntegrationError("pagespeed")
			return nil
		}
		audit = a
		return nil
	})
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, FetchTimeout)
		defer cancel()
		html, htmlErr = s.fetchHTML(fctx, pageURL)
		if htmlErr != nil {
			log.Printf("[scorer] fetch %s failed: %v", pageURL, htmlErr)
		}
		return nil
	})
	_ = g.Wait()

	if htmlErr != nil {
		return Unreachable(pageURL)
	}
	return s.Compute(pageURL, audit, Analyze(html))
}

func (s *Scorer) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	if s.Fetcher == nil {
		return "", fmt.Errorf("no fetcher configured")
	}
	doc, err := s.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	body, err := doc.ReadAll(maxHTMLBytes)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func isHTTPS(pageURL string) bool {
	u, err := url.Parse(pageURL)
	return err == nil && strings.EqualFold(u.Scheme, "https")
}

// Unreachable is the fixed result for a site whose homepage could not be
// loaded. Only hasHttps is derived, from the URL scheme.
func Unreachable(pageURL string) models.WebsiteScore {
	return models.WebsiteScore{
		URL:           pageURL,
		Reachable:     false,
		OverallScore:  unreachableScore,
		ProspectScore: 100 - unreachableScore,
		HasHTTPS:      isHTTPS(pageURL),
		Issues:        []string{"Website niet bereikbaar"},
		Opportunities: []string{"Volledig nieuwe website bouwen"},
	}
}

// OverallScore applies the scoring curve: start at 50, fold in performance
// and then SEO as (score+metric)/2, add the fixed bonuses, clamp and round.
func OverallScore(performance, seo *int, https, viewport, modern, structured bool) int {
	score := 50.0
	if performance != nil {
		score = (score + float64(*performance)) / 2
	}
	if seo != nil {
		score = (score + float64(*seo)) / 2
	}
	if https {
		score += 5
	}
	if viewport {
		score += 5
	}
	if modern {
		score += 10
	}
	if structured {
		score += 5
	}
	return clamp(int(math.Round(score)))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Compute builds the WebsiteScore for a reachable site.
func (s *Scorer) Compute(pageURL string, audit *Audit, sig Signals) models.WebsiteScore {
	if audit == nil {
		audit = &Audit{}
	}
	https := isHTTPS(pageURL)
	overall := OverallScore(audit.Performance, audit.SEO, https, sig.HasViewport, sig.HasModernFramework, sig.HasStructuredData)

	res := models.WebsiteScore{
		URL:                pageURL,
		Reachable:          true,
		OverallScore:       overall,
		ProspectScore:      clamp(100 - overall),
		LoadTime:           audit.LoadTime,
		MobileScore:        audit.Performance,
		SEOScore:           audit.SEO,
		AccessibilityScore: audit.Accessibility,
		HasHTTPS:           https,
		HasMobileViewport:  sig.HasViewport,
		HasModernFramework: sig.HasModernFramework,
		LegacyPlatform:     sig.LegacyPlatform,
		HasSocialMeta:      sig.HasSocialMeta,
		HasStructuredData:  sig.HasStructuredData,
		HasAnalytics:       sig.HasAnalytics,
		CopyrightYear:      sig.CopyrightYear,
		UsesJQueryOnly:     sig.UsesJQueryOnly,
		TableCount:         sig.TableCount,
	}

	now := time.Now
	if s != nil && s.Now != nil {
		now = s.Now
	}
	res.Issues, res.Opportunities = describe(res, now().Year())
	return res
}

// describe turns signals into the Dutch issue and opportunity lines shown on
// the dashboard.
func describe(r models.WebsiteScore, currentYear int) (issues, opportunities []string) {
	issues, opportunities = []string{}, []string{}
	addOpp := func(o string) {
		for _, existing := range opportunities {
			if existing == o {
				return
			}
		}
		opportunities = append(opportunities, o)
	}

	if !r.HasHTTPS {
		issues = append(issues, "Geen HTTPS (onveilige verbinding)")
		addOpp("SSL-certificaat en veilige HTTPS-verbinding")
	}
	if !r.HasMobileViewport {
		issues = append(issues, "Niet geoptimaliseerd voor mobiel")
		addOpp("Responsive website die werkt op elke telefoon")
	}
	if r.MobileScore != nil && *r.MobileScore < 50 {
		issues = append(issues, fmt.Sprintf("Lage mobiele snelheid (score %d/100)", *r.MobileScore))
		addOpp("Snellere website met betere conversie")
	}
	if r.LoadTime != nil && *r.LoadTime > 4 {
		issues = append(issues, fmt.Sprintf("Trage laadtijd (%.1f seconden)", *r.LoadTime))
		addOpp("Snellere website met betere conversie")
	}
	if r.SEOScore != nil && *r.SEOScore < 70 {
		issues = append(issues, fmt.Sprintf("Zwakke SEO-basis (score %d/100)", *r.SEOScore))
		addOpp("Beter vindbaar in Google")
	}
	if r.AccessibilityScore != nil && *r.AccessibilityScore < 70 {
		issues = append(issues, fmt.Sprintf("Matige toegankelijkheid (score %d/100)", *r.AccessibilityScore))
	}
	if r.LegacyPlatform != "" {
		issues = append(issues, "Gebouwd met "+r.LegacyPlatform)
		addOpp("Overstap naar een modern, eigen platform")
	}
	if r.UsesJQueryOnly {
		issues = append(issues, "Verouderde techniek (alleen jQuery)")
		addOpp("Overstap naar een modern, eigen platform")
	}
	if r.TableCount > 5 {
		issues = append(issues, fmt.Sprintf("Layout met tabellen (%d tabellen)", r.TableCount))
		addOpp("Overstap naar een modern, eigen platform")
	}
	if r.CopyrightYear != nil && *r.CopyrightYear < currentYear-2 {
		issues = append(issues, fmt.Sprintf("Verouderd copyright-jaartal (%d)", *r.CopyrightYear))
		addOpp("Frisse uitstraling die past bij het bedrijf van nu")
	}
	if !r.HasSocialMeta {
		issues = append(issues, "Geen social media previews (Open Graph)")
		addOpp("Mooie previews bij delen op social media")
	}
	if !r.HasStructuredData {
		issues = append(issues, "Geen gestructureerde data")
		addOpp("Lokale SEO met gestructureerde bedrijfsgegevens")
	}
	if !r.HasAnalytics {
		issues = append(issues, "Geen bezoekersstatistieken")
		addOpp("Inzicht in bezoekers met analytics")
	}
	return issues, opportunities
}
