// Package outreach writes first-contact messages for leads, with an LLM or
// from templates.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/ai"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

type Tone string

const (
	ToneFormal   Tone = "formal"
	ToneFriendly Tone = "friendly"
	ToneDirect   Tone = "direct"
)

var (
	ErrInvalidRequest  = errors.New("invalid generate request")
	ErrInvalidResponse = errors.New("model returned an unusable message")
)

type Request struct {
	Lead       models.Lead    `json:"lead"`
	Channel    models.Channel `json:"channel"`
	Tone       Tone           `json:"tone"`
	Language   string         `json:"language"`
	FocusPoint string         `json:"focusPoint"`
}

type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Normalize fills defaults (email, friendly, nl) and validates the request.
// Normalize fills in defaults and then validates. Defaults are applied even
// when validation fails.
func (r *Request) Normalize() error {
	if r.Channel == "" {
		r.Channel = models.ChannelEmail
	}
	if r.Tone == "" {
		r.Tone = ToneFriendly
	}
	if r.Language == "" {
		r.Language = "nl"
	}

	if strings.TrimSpace(r.Lead.CompanyName) == "" {
		return fmt.Errorf("%w: lead.companyName is required", ErrInvalidRequest)
	}
	if _, err := models.ParseChannel(string(r.Channel)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	switch r.Tone {
	case ToneFormal, ToneFriendly, ToneDirect:
	default:
		return fmt.Errorf("%w: unknown tone %q", ErrInvalidRequest, r.Tone)
	}
	if r.Language != "nl" && r.Language != "en" {
		return fmt.Errorf("%w: unknown language %q", ErrInvalidRequest, r.Language)
	}
	return nil
}

type Generator struct {
	LLM ai.Completer
}

func NewGenerator(llm ai.Completer) *Generator {
	return &Generator{LLM: llm}
}

// Generate asks the model for a message. The caller decides what to do on
// error; Fallback gives a usable message for the same request.
func (g *Generator) Generate(ctx context.Context, req Request) (Message, error) {
	if err := req.Normalize(); err != nil {
		return Message{}, err
	}
	if g.LLM == nil {
		return Message{}, ai.ErrNotConfigured
	}

	system, user := BuildPrompt(req)
	raw, err := g.LLM.Complete(ctx, ai.Prompt{System: system, User: user, MaxTokens: 1024, JSON: true})
	if err != nil {
		return Message{}, err
	}

	var msg Message
	if err := ai.DecodeReply(raw, &msg); err != nil {
		log.Printf("[outreach] unparseable %s response: %v", g.LLM.Name(), err)
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Body = strings.TrimSpace(msg.Body)
	if msg.Body == "" {
		return Message{}, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}
	if req.Channel != models.ChannelEmail {
		msg.Subject = ""
	}
	return msg, nil
}
