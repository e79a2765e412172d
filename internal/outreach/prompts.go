package outreach

import (
	"fmt"
	"strings"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/industry"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

const systemPrompt = `Je bent de outreach-schrijver van Wamelink Webdesign, een klein webdesignbureau dat snelle, moderne websites bouwt voor lokale ondernemers.
Je schrijft korte, persoonlijke berichten aan bedrijven die een betere website kunnen gebruiken.

Vaste regels:
- Noem altijd de bedrijfsnaam van de ontvanger.
- Sluit altijd af met een concrete call-to-action (bijvoorbeeld een kort belletje of een gratis websitecheck).
- Geen overdreven verkooptaal, geen uitroeptekens achter elkaar, geen emoji.
- Verzin geen feiten over het bedrijf die niet in de gegevens staan.
- Antwoord uitsluitend met een JSON-object zonder uitleg of markdown: {"subject": "...", "body": "..."}.`

var channelRules = map[models.Channel]string{
	models.ChannelEmail:    "Kanaal: e-mail. Onderwerpregel van maximaal 60 tekens. Body van 80 tot 150 woorden, met aanhef en afsluiting.",
	models.ChannelLinkedIn: "Kanaal: LinkedIn-bericht. Maximaal 80 woorden. Geen onderwerp: laat \"subject\" leeg.",
	models.ChannelPhone:    "Kanaal: telefoon. Schrijf een kort belscript van maximaal 120 woorden met opening, reden van bellen en afspraakvoorstel. Geen onderwerp: laat \"subject\" leeg.",
	models.ChannelWhatsApp: "Kanaal: WhatsApp. Maximaal 60 woorden, informeel van opzet. Geen onderwerp: laat \"subject\" leeg.",
}

var toneRules = map[Tone]string{
	ToneFormal:   "Toon: formeel en zakelijk. Gebruik u/uw.",
	ToneFriendly: "Toon: vriendelijk en toegankelijk. Gebruik je/jouw.",
	ToneDirect:   "Toon: direct en to the point. Korte zinnen, meteen ter zake.",
}

var languageRules = map[string]string{
	"nl": "Schrijf het bericht in het Nederlands.",
	"en": "Write the message in English.",
}

// BuildPrompt assembles the system and user prompt for req.
func BuildPrompt(req Request) (system, user string) {
	lead := req.Lead

	var b strings.Builder
	b.WriteString("Schrijf een outreach-bericht voor dit bedrijf.\n\n")
	b.WriteString("Bedrijfsgegevens:\n")
	fmt.Fprintf(&b, "- Bedrijfsnaam: %s\n", lead.CompanyName)
	if lead.ContactPerson != "" {
		fmt.Fprintf(&b, "- Contactpersoon: %s\n", lead.ContactPerson)
	}
	if lead.Industry != "" {
		label := lead.Industry
		if ind, ok := industry.Lookup(lead.Industry); ok {
			label = ind.Label
		}
		fmt.Fprintf(&b, "- Branche: %s\n", label)
	}
	if lead.City != "" {
		fmt.Fprintf(&b, "- Plaats: %s\n", lead.City)
	}
	if lead.Website != "" {
		fmt.Fprintf(&b, "- Website: %s\n", lead.Website)
	} else {
		b.WriteString("- Website: heeft nog geen website\n")
	}
	if lead.Notes != "" {
		fmt.Fprintf(&b, "- Notities: %s\n", strings.TrimSpace(lead.Notes))
	}

	b.WriteString("\nInstructies:\n")
	b.WriteString("- " + channelRules[req.Channel] + "\n")
	b.WriteString("- " + toneRules[req.Tone] + "\n")
	b.WriteString("- " + languageRules[req.Language] + "\n")
	if fp := strings.TrimSpace(req.FocusPoint); fp != "" {
		fmt.Fprintf(&b, "- Leg de nadruk op: %s\n", fp)
	}
	fmt.Fprintf(&b, "- Noem %q letterlijk in het bericht.\n", lead.CompanyName)
	b.WriteString("- Eindig met een concrete call-to-action.\n")
	b.WriteString("\nGeef alleen het JSON-object terug.")

	return systemPrompt, b.String()
}
