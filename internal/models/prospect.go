package models

// Prospect is a search result that has not been promoted to a Lead. Scoring
// fields are filled in later by the scorer and stay nil until then.
type Prospect struct {
	PlaceID     string  `json:"placeId"`
	CompanyName string  `json:"companyName"`
	Address     string  `json:"address"`
	City        string  `json:"city"`
	Phone       string  `json:"phone"`
	Website     string  `json:"website"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
	Industry    string  `json:"industry,omitempty"`

	ProspectScore     *int     `json:"prospectScore,omitempty"`
	OverallScore      *int     `json:"overallScore,omitempty"`
	LoadTime          *float64 `json:"loadTime,omitempty"`
	MobileScore       *int     `json:"mobileScore,omitempty"`
	HasHTTPS          *bool    `json:"hasHttps,omitempty"`
	HasMobileViewport *bool    `json:"hasMobileViewport,omitempty"`
	Issues            []string `json:"issues,omitempty"`
	Opportunities     []string `json:"opportunities,omitempty"`
}

// ApplyScore copies the scoring fields of s onto the prospect.
func (p *Prospect) ApplyScore(s WebsiteScore) {
	prospect, overall := s.ProspectScore, s.OverallScore
	https, viewport := s.HasHTTPS, s.HasMobileViewport
	p.ProspectScore = &prospect
	p.OverallScore = &overall
	p.LoadTime = s.LoadTime
	p.MobileScore = s.MobileScore
	p.HasHTTPS = &https
	p.HasMobileViewport = &viewport
	p.Issues = s.Issues
	p.Opportunities = s.Opportunities
}

// WebsiteScore is the scorer's verdict for one URL. ProspectScore is always
// 100 - OverallScore.
type WebsiteScore struct {
	URL                string   `json:"url"`
	Reachable          bool     `json:"reachable"`
	OverallScore       int      `json:"overallScore"`
	ProspectScore      int      `json:"prospectScore"`
	LoadTime           *float64 `json:"loadTime"`
	MobileScore        *int     `json:"mobileScore"`
	SEOScore           *int     `json:"seoScore"`
	AccessibilityScore *int     `json:"accessibilityScore"`
	HasHTTPS           bool     `json:"hasHttps"`
	HasMobileViewport  bool     `json:"hasMobileViewport"`
	HasModernFramework bool     `json:"hasModernFramework"`
	LegacyPlatform     string   `json:"legacyPlatform,omitempty"`
	HasSocialMeta      bool     `json:"hasSocialMeta"`
	HasStructuredData  bool     `json:"hasStructuredData"`
	HasAnalytics       bool     `json:"hasAnalytics"`
	CopyrightYear      *int     `json:"copyrightYear"`
	UsesJQueryOnly     bool     `json:"usesJqueryOnly"`
	TableCount         int      `json:"tableCount"`
	Issues             []string `json:"issues"`
	Opportunities      []string `json:"opportunities"`
}
