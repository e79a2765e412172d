package outreach

import (
	"log"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

// Fallback renders the built-in default template for the request's channel
// and language, so the dashboard always has something to edit when
// generation fails. An invalid request is logged and rendered with defaults.
func Fallback(req Request) Message {
	if err := req.Normalize(); err != nil {
		log.Printf("[outreach] fallback for invalid request: %v", err)
	}
	lang := req.Language
	if lang != "en" {
		lang = "nl"
	}

	defaults := DefaultTemplates()
	if t, ok := MatchTemplate(defaults, req.Channel, req.Lead.Industry, lang); ok {
		return RenderTemplate(t, req.Lead)
	}
	// No English variant for this channel: fall back to Dutch, then email.
	if t, ok := MatchTemplate(defaults, req.Channel, req.Lead.Industry, "nl"); ok {
		return RenderTemplate(t, req.Lead)
	}
	t, _ := MatchTemplate(defaults, models.ChannelEmail, "", "nl")
	return RenderTemplate(t, req.Lead)
}
