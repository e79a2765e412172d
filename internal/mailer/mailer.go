// Package mailer delivers outreach email through the connected Gmail
// mailbox, falling back to Resend when Gmail is unavailable.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/metrics"
)

const (
	ProviderGmail  = "gmail"
	ProviderResend = "resend"
)

var (
	ErrGmailNotConnected = errors.New("gmail is not connected")
	ErrNotConfigured     = errors.New("mail provider is not configured")
	ErrInvalidEmail      = errors.New("invalid email")
)

// APIError is a non-2xx answer from a mail provider.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Status, e.Message)
}

// SendError is returned when every provider failed.
type SendError struct {
	Gmail  error
	Resend error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("email could not be sent (gmail: %v; resend: %v)", e.Gmail, e.Resend)
}

func (e *SendError) Unwrap() []error {
	return []error{e.Gmail, e.Resend}
}

// Email is a plain-text outreach mail; providers derive the HTML part.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	ReplyTo string `json:"replyTo,omitempty"`
}

func (e Email) Validate() error {
	if strings.TrimSpace(e.To) == "" || strings.TrimSpace(e.Subject) == "" || strings.TrimSpace(e.Body) == "" {
		return fmt.Errorf("%w: to, subject and body are required", ErrInvalidEmail)
	}
	if _, err := mail.ParseAddress(e.To); err != nil {
		return fmt.Errorf("%w: bad recipient %q", ErrInvalidEmail, e.To)
	}
	if e.ReplyTo != "" {
		if _, err := mail.ParseAddress(e.ReplyTo); err != nil {
			return fmt.Errorf("%w: bad reply-to %q", ErrInvalidEmail, e.ReplyTo)
		}
	}
	return nil
}

type Result struct {
	MessageID string `json:"messageId"`
	Provider  string `json:"provider"`
}

type Provider interface {
	Send(ctx context.Context, e Email) (Result, error)
}

// Sender tries Gmail first and Resend second. Either may be nil.
type Sender struct {
	Gmail  Provider
	Resend Provider
}

func NewSender(gmail, resend Provider) *Sender {
	return &Sender{Gmail: gmail, Resend: resend}
}

func (s *Sender) Send(ctx context.Context, e Email) (Result, error) {
	if err := e.Validate(); err != nil {
		return Result{}, err
	}

	gmailErr := ErrGmailNotConnected
	if s.Gmail != nil {
		res, err := s.Gmail.Send(ctx, e)
		if err == nil {
			metrics.RecordEmailSent(ProviderGmail)
			return res, nil
		}
		gmailErr = err
		if !errors.Is(err, ErrGmailNotConnected) {
			metrics.RecordIntegrationError(ProviderGmail)
		}
		log.Printf("[mailer] gmail send to %s failed, falling back to resend: %v", e.To, err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	resendErr := ErrNotConfigured
	if s.Resend != nil {
		res, err := s.Resend.Send(ctx, e)
		if err == nil {
			metrics.RecordEmailSent(ProviderResend)
			return res, nil
		}
		resendErr = err
		metrics.RecordIntegrationError(ProviderResend)
		log.Printf("[mailer] resend send to %s failed: %v", e.To, err)
	}

	return Result{}, &SendError{Gmail: gmailErr, Resend: resendErr}
}
