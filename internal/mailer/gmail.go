package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"gopkg.in/gomail.v2"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/db"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

const (
	DefaultGmailURL    = "https://gmail.googleapis.com"
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	// RefreshWindow is how close to expiry a token is refreshed before use.
	RefreshWindow = 5 * time.Minute
)

var GmailScopes = []string{
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.settings.basic",
	"https://www.googleapis.com/auth/userinfo.email",
}

// TokenStore persists the single connected mailbox token.
// GetGmailToken returns db.ErrNotFound when nothing is connected.
type TokenStore interface {
	GetGmailToken(ctx context.Context) (models.GmailToken, error)
	SaveGmailToken(ctx context.Context, tok models.GmailToken) error
	DeleteGmailToken(ctx context.Context) error
}

func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     endpoints.Google,
		Scopes:       GmailScopes,
	}
}

// GmailClient sends mail as the connected Google account.
type GmailClient struct {
	OAuth       *oauth2.Config
	Tokens      TokenStore
	BaseURL     string
	UserInfoURL string
	HTTP        *http.Client
	Now         func() time.Time
}

func NewGmailClient(cfg *oauth2.Config, tokens TokenStore) *GmailClient {
	return &GmailClient{
		OAuth:       cfg,
		Tokens:      tokens,
		BaseURL:     DefaultGmailURL,
		UserInfoURL: DefaultUserInfoURL,
		HTTP:        &http.Client{Timeout: 20 * time.Second},
		Now:         time.Now,
	}
}

func (g *GmailClient) httpClient() *http.Client {
	if g.HTTP != nil {
		return g.HTTP
	}
	return http.DefaultClient
}

// oauthContext makes the oauth2 package use our HTTP client for token calls.
func (g *GmailClient) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient())
}

// AuthURL is the consent screen URL. Offline access with forced consent so
// Google hands out a refresh token.
func (g *GmailClient) AuthURL(state string) (string, error) {
	if g.OAuth == nil || g.OAuth.ClientID == "" {
		return "", ErrNotConfigured
	}
	return g.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for tokens, looks up the mailbox
// address and persists the record.
func (g *GmailClient) Exchange(ctx context.Context, code string) (models.GmailToken, error) {
	if g.OAuth == nil || g.OAuth.ClientID == "" {
		return models.GmailToken{}, ErrNotConfigured
	}
	tok, err := g.OAuth.Exchange(g.oauthContext(ctx), code)
	if err != nil {
		return models.GmailToken{}, fmt.Errorf("oauth code exchange: %w", err)
	}

	email, err := g.userEmail(ctx, tok.AccessToken)
	if err != nil {
		log.Printf("[mailer] could not read connected gmail address: %v", err)
	}

	rec := models.GmailToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Email:        email,
	}
	if err := g.Tokens.SaveGmailToken(ctx, rec); err != nil {
		return models.GmailToken{}, fmt.Errorf("save gmail token: %w", err)
	}
	return rec, nil
}

func (g *GmailClient) Disconnect(ctx context.Context) error {
	return g.Tokens.DeleteGmailToken(ctx)
}

type GmailStatus struct {
	Connected bool       `json:"connected"`
	Email     string     `json:"email,omitempty"`
	Expiry    *time.Time `json:"expiry,omitempty"`
}

func (g *GmailClient) Status(ctx context.Context) (GmailStatus, error) {
	rec, err := g.Tokens.GetGmailToken(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return GmailStatus{}, nil
	}
	if err != nil {
		return GmailStatus{}, err
	}
	st := GmailStatus{Connected: true, Email: rec.Email}
	if !rec.Expiry.IsZero() {
		exp := rec.Expiry
		st.Expiry = &exp
	}
	return st, nil
}

// accessToken returns a usable bearer token, refreshing and persisting it
// first when it expires within RefreshWindow.
func (g *GmailClient) accessToken(ctx context.Context) (models.GmailToken, error) {
	rec, err := g.Tokens.GetGmailToken(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return rec, ErrGmailNotConnected
	}
	if err != nil {
		return rec, fmt.Errorf("load gmail token: %w", err)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	fresh := rec.AccessToken != "" && (rec.Expiry.IsZero() || rec.Expiry.After(now().Add(RefreshWindow)))
	if fresh {
		return rec, nil
	}
	if rec.RefreshToken == "" {
		return rec, fmt.Errorf("%w: token expired and no refresh token stored", ErrGmailNotConnected)
	}
	if g.OAuth == nil || g.OAuth.ClientID == "" {
		return rec, ErrNotConfigured
	}

	// Without an access token the source always hits the token endpoint.
	tok, err := g.OAuth.TokenSource(g.oauthContext(ctx), &oauth2.Token{RefreshToken: rec.RefreshToken}).Token()
	if err != nil {
		return rec, fmt.Errorf("refresh gmail token: %w", err)
	}
	rec.AccessToken = tok.AccessToken
	rec.TokenType = tok.TokenType
	rec.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		rec.RefreshToken = tok.RefreshToken
	}
	if err := g.Tokens.SaveGmailToken(ctx, rec); err != nil {
		return rec, fmt.Errorf("persist refreshed gmail token: %w", err)
	}
	return rec, nil
}

func (g *GmailClient) Send(ctx context.Context, e Email) (Result, error) {
	rec, err := g.accessToken(ctx)
	if err != nil {
		return Result{}, err
	}

	signature, err := g.signature(ctx, rec.AccessToken)
	if err != nil {
		log.Printf("[mailer] gmail signature lookup failed, sending without: %v", err)
	}

	raw, err := buildMIME(rec.Email, e, signature)
	if err != nil {
		return Result{}, err
	}

	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString(raw),
	})
	if err != nil {
		return Result{}, err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := g.call(ctx, http.MethodPost, strings.TrimRight(g.BaseURL, "/")+"/gmail/v1/users/me/messages/send", rec.AccessToken, payload, &out); err != nil {
		return Result{}, err
	}
	return Result{MessageID: out.ID, Provider: ProviderGmail}, nil
}

// signature returns the default send-as signature HTML, or "".
func (g *GmailClient) signature(ctx context.Context, accessToken string) (string, error) {
	var out struct {
		SendAs []struct {
			SendAsEmail string `json:"sendAsEmail"`
			IsDefault   bool   `json:"isDefault"`
			Signature   string `json:"signature"`
		} `json:"sendAs"`
	}
	if err := g.call(ctx, http.MethodGet, strings.TrimRight(g.BaseURL, "/")+"/gmail/v1/users/me/settings/sendAs", accessToken, nil, &out); err != nil {
		return "", err
	}
	for _, sa := range out.SendAs {
		if sa.IsDefault {
			return sa.Signature, nil
		}
	}
	return "", nil
}

func (g *GmailClient) userEmail(ctx context.Context, accessToken string) (string, error) {
	var out struct {
		Email string `json:"email"`
	}
	if err := g.call(ctx, http.MethodGet, g.UserInfoURL, accessToken, nil, &out); err != nil {
		return "", err
	}
	return out.Email, nil
}

func (g *GmailClient) call(ctx context.Context, method, url, accessToken string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("gmail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(ProviderGmail, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gmail response: %w", err)
	}
	return nil
}

var (
	signaturePolicy = bluemonday.UGCPolicy()
	stripPolicy     = bluemonday.StrictPolicy()
)

// buildMIME renders a multipart/alternative message with base64 bodies and
// a base64 encoded UTF-8 subject. The signature follows a horizontal rule.
func buildMIME(from string, e Email, signatureHTML string) ([]byte, error) {
	plain := e.Body
	htmlBody := textToHTML(e.Body)

	if sig := strings.TrimSpace(signaturePolicy.Sanitize(signatureHTML)); sig != "" {
		htmlBody += "<br><hr>" + sig
		plainSig := strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</div>", "</div>\n", "</p>", "</p>\n").Replace(sig))))
		if plainSig != "" {
			plain += "\n\n--\n" + plainSig
		}
	}

	m := gomail.NewMessage(gomail.SetCharset("UTF-8"), gomail.SetEncoding(gomail.Base64))
	if from != "" {
		m.SetHeader("From", from)
	}
	m.SetHeader("To", e.To)
	if e.ReplyTo != "" {
		m.SetHeader("Reply-To", e.ReplyTo)
	}
	m.SetHeader("Subject", "=?UTF-8?B?"+base64.StdEncoding.EncodeToString([]byte(e.Subject))+"?=")
	m.SetBody("text/plain", plain)
	m.AddAlternative("text/html", htmlBody)

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("build mime message: %w", err)
	}
	return buf.Bytes(), nil
}

// textToHTML escapes a plain-text body and keeps its line breaks.
func textToHTML(s string) string {
	escaped := html.EscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return "<div>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</div>"
}
