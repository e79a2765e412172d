package scorer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Signals are the markup-level observations made on a site's homepage.
type Signals struct {
	HasViewport        bool
	HasModernFramework bool
	LegacyPlatform     string
	HasSocialMeta      bool
	HasStructuredData  bool
	HasAnalytics       bool
	CopyrightYear      *int
	UsesJQueryOnly     bool
	TableCount         int
}

type fingerprint struct {
	name string
	re   *regexp.Regexp
}

var (
	modernFrameworks = []fingerprint{
		{"Next.js", regexp.MustCompile(`__NEXT_DATA__|/_next/static/`)},
		{"Nuxt", regexp.MustCompile(`__NUXT__|/_nuxt/`)},
		{"React", regexp.MustCompile(`data-reactroot|react-dom(\.production)?(\.min)?\.js|id="root"></div>\s*<script`)},
		{"Vue", regexp.MustCompile(`data-v-[0-9a-f]{6,}|vue(\.runtime)?(\.global)?(\.prod)?(\.min)?\.js`)},
		{"Angular", regexp.MustCompile(`ng-version=|_nghost-|_ngcontent-`)},
		{"Svelte", regexp.MustCompile(`class="[^"]*svelte-[a-z0-9]+|__sveltekit`)},
		{"Gatsby", regexp.MustCompile(`id="___gatsby"`)},
		{"Astro", regexp.MustCompile(`<astro-island|data-astro-cid-`)},
		{"Remix", regexp.MustCompile(`__remixContext`)},
	}

	legacyPlatforms = []fingerprint{
		{"Wix", regexp.MustCompile(`(?i)static\.wixstatic\.com|wix-bolt|X-Wix-`)},
		{"Jimdo", regexp.MustCompile(`(?i)jimdo(cdn)?\.com|jimdo-`)},
		{"Weebly", regexp.MustCompile(`(?i)weebly\.com|editmysite\.com`)},
		{"Webnode", regexp.MustCompile(`(?i)webnode\.(com|nl)`)},
		{"Mijndomein Sitebuilder", regexp.MustCompile(`(?i)mijndomein.{0,40}sitebuilder|sitebuilder\.mijndomein`)},
		{"Microsoft FrontPage", regexp.MustCompile(`(?i)name="generator"\s+content="Microsoft FrontPage`)},
		{"Adobe Dreamweaver", regexp.MustCompile(`(?i)MM_swapImage|MM_preloadImages|Dreamweaver`)},
		{"Joomla", regexp.MustCompile(`(?i)content="Joomla!`)},
		{"Flash", regexp.MustCompile(`(?i)application/x-shockwave-flash|\.swf["']`)},
	}

	analyticsRe   = regexp.MustCompile(`(?i)googletagmanager\.com|google-analytics\.com|gtag\(|plausible\.io|matomo|piwik|static\.hotjar\.com|clarity\.ms`)
	jqueryRe      = regexp.MustCompile(`(?i)jquery([.-][0-9.]+)?(\.min)?\.js|jQuery\(`)
	copyrightRe   = regexp.MustCompile(`(?i)(?:©|&copy;|&#169;|copyright)\s*(?:\d{4}\s*[-–]\s*)?((?:19|20)\d{2})`)
	microdataRe   = regexp.MustCompile(`(?i)itemtype="https?://schema\.org/`)
	structuredSel = `script[type="application/ld+json"], [itemscope]`
)

// Analyze extracts Signals from raw HTML. Fingerprints run on the raw
// markup; structural checks use goquery.
func Analyze(html string) Signals {
	var s Signals

	for _, fp := range modernFrameworks {
		if fp.re.MatchString(html) {
			s.HasModernFramework = true
			break
		}
	}
	for _, fp := range legacyPlatforms {
		if fp.re.MatchString(html) {
			s.LegacyPlatform = fp.name
			break
		}
	}
	s.HasAnalytics = analyticsRe.MatchString(html)
	s.UsesJQueryOnly = jqueryRe.MatchString(html) && !s.HasModernFramework
	s.CopyrightYear = latestCopyrightYear(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return s
	}

	doc.Find("meta").EachWithBreak(func(_ int, m *goquery.Selection) bool {
		name, _ := m.Attr("name")
		if strings.EqualFold(strings.TrimSpace(name), "viewport") {
			s.HasViewport = true
			return false
		}
		return true
	})

	doc.Find("meta").EachWithBreak(func(_ int, m *goquery.Selection) bool {
		prop, _ := m.Attr("property")
		name, _ := m.Attr("name")
		key := strings.ToLower(prop + " " + name)
		if strings.Contains(key, "og:") || strings.Contains(key, "twitter:") {
			s.HasSocialMeta = true
			return false
		}
		return true
	})

	s.HasStructuredData = doc.Find(structuredSel).Length() > 0 || microdataRe.MatchString(html)
	s.TableCount = doc.Find("table").Length()

	return s
}

func latestCopyrightYear(html string) *int {
	var best int
	for _, m := range copyrightRe.FindAllStringSubmatch(html, -1) {
		if y, err := strconv.Atoi(m[1]); err == nil && y > best {
			best = y
		}
	}
	if best == 0 {
		return nil
	}
	return &best
}
