package outreach

import (
	"regexp"
	"strings"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/industry"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z]+)\s*\}\}`)

// Render substitutes {{name}} placeholders. Unknown names are left as-is.
func Render(tpl string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// LeadVars returns the template variables for a lead. The industry is
// rendered as its lowercase label.
func LeadVars(l models.Lead) map[string]string {
	ind := l.Industry
	if i, ok := industry.Lookup(l.Industry); ok {
		ind = strings.ToLower(i.Label)
	}
	contact := strings.TrimSpace(l.ContactPerson)
	if contact == "" {
		contact = "heer/mevrouw"
	}
	return map[string]string{
		"companyName":   l.CompanyName,
		"contactPerson": contact,
		"city":          l.City,
		"industry":      ind,
	}
}

// RenderTemplate applies lead variables to a stored template.
func RenderTemplate(t models.OutreachTemplate, l models.Lead) Message {
	vars := LeadVars(l)
	msg := Message{Body: Render(t.Body, vars)}
	if t.Channel == models.ChannelEmail {
		msg.Subject = Render(t.Subject, vars)
	}
	return msg
}

// MatchTemplate picks the best stored template for channel, industry and
// language: an exact industry match wins over a generic one.
func MatchTemplate(templates []models.OutreachTemplate, channel models.Channel, industryID, language string) (models.OutreachTemplate, bool) {
	var generic *models.OutreachTemplate
	for i := range templates {
		t := templates[i]
		if t.Channel != channel || (t.Language != "" && t.Language != language) {
			continue
		}
		if t.Industry != "" && t.Industry == industryID {
			return t, true
		}
		if t.Industry == "" && generic == nil {
			generic = &templates[i]
		}
	}
	if generic != nil {
		return *generic, true
	}
	return models.OutreachTemplate{}, false
}

// DefaultTemplates is the seed set written when no templates exist yet.
func DefaultTemplates() []models.OutreachTemplate {
	return []models.OutreachTemplate{
		{
			Name:     "Kennismaking e-mail",
			Channel:  models.ChannelEmail,
			Language: "nl",
			Subject:  "Een frisse website voor {{companyName}}?",
			Body: `Beste {{contactPerson}},

Ik kwam {{companyName}} tegen tijdens mijn zoektocht naar {{industry}} in {{city}}. Jullie website heeft een paar verbeterpunten die klanten kunnen kosten, vooral op de telefoon.

Bij Wamelink Webdesign bouw ik snelle, moderne websites voor lokale ondernemers, zodat nieuwe klanten je makkelijker vinden en sneller contact opnemen.

Zal ik een gratis en vrijblijvende websitecheck voor {{companyName}} maken? Dan bespreken we de uitkomst in een kort belletje van 15 minuten.

Met vriendelijke groet,
Wamelink Webdesign`,
		},
		{
			Name:     "Introduction email",
			Channel:  models.ChannelEmail,
			Language: "en",
			Subject:  "A faster website for {{companyName}}?",
			Body: `Hi {{contactPerson}},

I came across {{companyName}} while looking at {{industry}} businesses in {{city}}. Your website has a few issues that may be costing you customers, especially on mobile.

At Wamelink Webdesign I build fast, modern websites for local businesses so new customers find you and get in touch.

Shall I put together a free website check for {{companyName}}? We can go through it in a quick 15 minute call.

Kind regards,
Wamelink Webdesign`,
		},
		{
			Name:     "LinkedIn connectie",
			Channel:  models.ChannelLinkedIn,
			Language: "nl",
			Body:     "Hoi {{contactPerson}}, ik zag {{companyName}} in {{city}} voorbijkomen. Ik help {{industry}} aan een website die wél klanten oplevert. Zin in een gratis websitecheck? Dan stuur ik hem deze week.",
		},
		{
			Name:     "WhatsApp kort",
			Channel:  models.ChannelWhatsApp,
			Language: "nl",
			Body:     "Hoi! Ik ben van Wamelink Webdesign. Ik zag dat de website van {{companyName}} beter kan op mobiel. Mag ik je een gratis check sturen?",
		},
		{
			Name:     "Belscript",
			Channel:  models.ChannelPhone,
			Language: "nl",
			Body: `Goedemiddag, u spreekt met Wamelink Webdesign. Spreek ik met {{contactPerson}} van {{companyName}}?
Ik bel kort omdat ik de website van {{companyName}} heb bekeken en een paar snelle verbeterpunten zag.
Zou u openstaan voor een gratis websitecheck? Dan plan ik graag een kort gesprek van 15 minuten in deze week.`,
		},
		{
			Name:     "Bouw: projecten in beeld",
			Channel:  models.ChannelEmail,
			Industry: "bouw",
			Language: "nl",
			Subject:  "Uw projecten verdienen een betere etalage",
			Body: `Beste {{contactPerson}},

Als aannemer in {{city}} wordt {{companyName}} vooral op vakmanschap beoordeeld. Een website met een duidelijke projectenpagina laat dat direct zien en levert meer offerteaanvragen op.

Ik maak graag een gratis voorstel voor {{companyName}}. Past een kort belletje deze week?

Met vriendelijke groet,
Wamelink Webdesign`,
		},
	}
}
