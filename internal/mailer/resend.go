package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultResendURL = "https://api.resend.com"

// ResendClient sends through the Resend transactional API with a fixed
// sender identity.
type ResendClient struct {
	APIKey  string
	From    string
	ReplyTo string
	BaseURL string
	HTTP    *http.Client
}

func NewResendClient(apiKey, from, replyTo string) *ResendClient {
	return &ResendClient{
		APIKey:  apiKey,
		From:    from,
		ReplyTo: replyTo,
		BaseURL: DefaultResendURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func (r *ResendClient) Send(ctx context.Context, e Email) (Result, error) {
	if r.APIKey == "" {
		return Result{}, ErrNotConfigured
	}
	replyTo := e.ReplyTo
	if replyTo == "" {
		replyTo = r.ReplyTo
	}

	payload, err := json.Marshal(resendRequest{
		From:    r.From,
		To:      []string{e.To},
		Subject: e.Subject,
		Text:    e.Body,
		HTML:    textToHTML(e.Body),
		ReplyTo: replyTo,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(r.BaseURL, "/")+"/emails", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, readAPIError(ProviderResend, resp)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("failed to decode resend response: %w", err)
	}
	return Result{MessageID: out.ID, Provider: ProviderResend}, nil
}

// readAPIError pulls a message out of the usual {"message"} or
// {"error":{"message"}} bodies.
func readAPIError(provider string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))

	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		var nested struct {
			Message string `json:"message"`
		}
		switch {
		case len(body.Error) > 0 && json.Unmarshal(body.Error, &nested) == nil && nested.Message != "":
			msg = nested.Message
		case body.Message != "":
			msg = body.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Provider: provider, Status: resp.StatusCode, Message: msg}
}
