package emailfinder

import (
	"html"
	"regexp"
	"strings"
)

var (
	atPattern     = regexp.MustCompile(`(?i)\s*[\[\(\{]\s*(?:at|@|apenstaartje)\s*[\]\)\}]\s*`)
	dotPattern    = regexp.MustCompile(`(?i)\s*[\[\(\{]\s*(?:dot|punt|\.)\s*[\]\)\}]\s*`)
	spacedAt      = regexp.MustCompile(`(?i)([a-z0-9._%+-]+)\s+at\s+([a-z0-9-]+(?:\s+dot\s+[a-z0-9-]+)+)\b`)
	spacedDot     = regexp.MustCompile(`(?i)\s+dot\s+`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	assetSuffixRe = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|webp|avif|ico|bmp|css|js|mjs|map|woff2?|ttf|eot|mp4|webm|pdf)$`)
)

// Deobfuscate rewrites the common ways sites hide addresses from scrapers:
// HTML entities, "[at]" / "(dot)" style brackets and "name at domain dot nl".
func Deobfuscate(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "%40", "@")
	s = atPattern.ReplaceAllString(s, "@")
	s = dotPattern.ReplaceAllString(s, ".")
	s = spacedAt.ReplaceAllStringFunc(s, func(m string) string {
		parts := spacedAt.FindStringSubmatch(m)
		return parts[1] + "@" + spacedDot.ReplaceAllString(parts[2], ".")
	})
	return s
}

// ExtractEmails returns the lowercase, de-duplicated addresses in text after
// de-obfuscation, in order of first appearance. Filters are not applied.
func ExtractEmails(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range emailPattern.FindAllString(Deobfuscate(text), -1) {
		e := strings.Trim(strings.ToLower(m), ".-_")
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

var deniedDomains = []string{
	"example.com", "example.org", "example.net", "example.nl", "domain.com", "domein.nl",
	"email.com", "yourdomain.com", "uwdomein.nl",
	"sentry.io", "sentry-next.wixpress.com", "wixpress.com", "wix.com",
	"godaddy.com", "squarespace.com", "wordpress.com", "wordpress.org",
	"w3.org", "schema.org", "google.com", "gstatic.com", "googleapis.com",
	"cloudflare.com", "jquery.com", "bootstrapcdn.com", "jsdelivr.net",
	"mysite.com", "sitebuilder.com", "jimdo.com", "strato.de",
}

// deniedLocalPrefixes match the whole local part or the prefix followed by
// a delimiter or digit ("noreply-42", "bounce+x"), never a longer word.
var deniedLocalPrefixes = []string{
	"noreply", "no-reply", "donotreply", "do-not-reply", "postmaster", "mailer-daemon",
	"bounce", "abuse", "hostmaster", "example",
}

// Placeholder local parts from theme demos and form hints. Exact match only.
var deniedLocals = map[string]bool{
	"test": true, "user": true, "name": true, "email": true, "your": true, "jouw": true,
	"yourname": true, "uwnaam": true, "naam": true, "voorbeeld": true,
}

func hasDeniedPrefix(local string) bool {
	for _, p := range deniedLocalPrefixes {
		if !strings.HasPrefix(local, p) {
			continue
		}
		if len(local) == len(p) {
			return true
		}
		switch next := local[len(p)]; {
		case next == '-', next == '.', next == '_', next == '+':
			return true
		case next >= '0' && next <= '9':
			return true
		}
	}
	return false
}

// Allowed reports whether an extracted address may be returned at all.
func Allowed(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local, domain := email[:at], email[at+1:]

	if assetSuffixRe.MatchString(email) {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	for _, d := range deniedDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return false
		}
	}
	if deniedLocals[local] || hasDeniedPrefix(local) {
		return false
	}
	return true
}

var (
	firstLastRe    = regexp.MustCompile(`^[a-z]+\.[a-z]+$`)
	personalNameRe = regexp.MustCompile(`^[a-z]{3,12}$`)
	genericLocals  = map[string]bool{"info": true, "contact": true, "hello": true, "hallo": true}
	roleLocals     = map[string]bool{
		"admin": true, "sales": true, "office": true, "support": true, "team": true,
		"kantoor": true, "receptie": true, "administratie": true, "verkoop": true, "service": true,
	}
)

// Score ranks an address for the target site's bare domain.
func Score(email, siteDomain string) int {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return 0
	}
	local, domain := email[:at], email[at+1:]

	score := 0
	if siteDomain != "" && (domain == siteDomain ||
		strings.Contains(domain, siteDomain) || strings.Contains(siteDomain, domain)) {
		score += 50
	}

	switch {
	case firstLastRe.MatchString(local):
		score += 30
	case genericLocals[local]:
		score += 20
	case roleLocals[local]:
		score += 5
	case personalNameRe.MatchString(local):
		score += 15
	}
	return score
}
