package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/db"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

var testEmail = Email{
	To:      "info@bakkerjansen.nl",
	Subject: "Een frisse website voor Bakker Jansen? ✨",
	Body:    "Beste Piet,\n\nZullen we even bellen?",
}

type fakeGoogle struct {
	srv       *httptest.Server
	refreshes atomic.Int32
	sent      atomic.Int32
	lastRaw   string
	lastAuth  string
	failSend  bool
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	f := &fakeGoogle{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.refreshes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("grant_type") == "authorization_code" {
			_, _ = io.WriteString(w, `{"access_token":"exchanged","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`)
			return
		}
		assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
		_, _ = io.WriteString(w, `{"access_token":"refreshed","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/gmail/v1/users/me/settings/sendAs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"sendAs":[{"sendAsEmail":"alias@x.nl","isDefault":false,"signature":"nope"},{"sendAsEmail":"jeroen@wamelinkwebdesign.nl","isDefault":true,"signature":"<div>Jeroen Wamelink<br>Wamelink Webdesign</div><script>alert(1)</script>"}]}`)
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		if f.failSend {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"Insufficient Permission"}}`)
			return
		}
		var body struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.lastRaw = body.Raw
		f.sent.Add(1)
		_, _ = io.WriteString(w, `{"id":"gmail-123"}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"email":"jeroen@wamelinkwebdesign.nl"}`)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) client(store TokenStore, now time.Time) *GmailClient {
	cfg := NewOAuthConfig("client-id", "secret", "http://localhost/api/gmail/callback")
	cfg.Endpoint = oauth2.Endpoint{AuthURL: f.srv.URL + "/auth", TokenURL: f.srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	g := NewGmailClient(cfg, store)
	g.BaseURL = f.srv.URL
	g.UserInfoURL = f.srv.URL + "/userinfo"
	g.HTTP = f.srv.Client()
	g.Now = func() time.Time { return now }
	return g
}

func newTokenStore(t *testing.T, tok *models.GmailToken) *db.Store {
	s := db.NewStore(db.NewMemoryKV())
	if tok != nil {
		require.NoError(t, s.SaveGmailToken(context.Background(), *tok))
	}
	return s
}

func TestGmailNotConnected(t *testing.T) {
	f := newFakeGoogle(t)
	g := f.client(newTokenStore(t, nil), time.Now())

	_, err := g.Send(context.Background(), testEmail)
	assert.ErrorIs(t, err, ErrGmailNotConnected)
	assert.Zero(t, f.sent.Load())
}

func TestGmailSendsWithFreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFakeGoogle(t)
	store := newTokenStore(t, &models.GmailToken{AccessToken: "valid", RefreshToken: "refresh-1", Expiry: now.Add(time.Hour), Email: "jeroen@wamelinkwebdesign.nl"})
	g := f.client(store, now)

	res, err := g.Send(context.Background(), testEmail)
	require.NoError(t, err)
	assert.Equal(t, Result{MessageID: "gmail-123", Provider: ProviderGmail}, res)
	assert.Equal(t, "Bearer valid", f.lastAuth)
	assert.Zero(t, f.refreshes.Load())

	raw, err := base64.URLEncoding.DecodeString(f.lastRaw)
	require.NoError(t, err)
	mime := string(raw)
	assert.Contains(t, mime, "Subject: =?UTF-8?B?"+base64.StdEncoding.EncodeToString([]byte(testEmail.Subject))+"?=")
	assert.Contains(t, mime, "multipart/alternative")
	assert.Contains(t, mime, "Content-Transfer-Encoding: base64")
	assert.Contains(t, mime, "To: info@bakkerjansen.nl")
	assert.NotContains(t, mime, "Zullen we even bellen?")
}

func TestGmailRefreshesNearExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFakeGoogle(t)
	store := newTokenStore(t, &models.GmailToken{AccessToken: "stale", RefreshToken: "refresh-1", Expiry: now.Add(4 * time.Minute), Email: "jeroen@wamelinkwebdesign.nl"})
	g := f.client(store, now)

	_, err := g.Send(context.Background(), testEmail)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.refreshes.Load())
	assert.Equal(t, "Bearer refreshed", f.lastAuth)

	saved, err := store.GetGmailToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
	assert.Equal(t, "jeroen@wamelinkwebdesign.nl", saved.Email)
}

func TestGmailExchangeAndStatus(t *testing.T) {
	f := newFakeGoogle(t)
	store := newTokenStore(t, nil)
	g := f.client(store, time.Now())
	ctx := context.Background()

	st, err := g.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Connected)

	u, err := g.AuthURL("signed-state")
	require.NoError(t, err)
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "state=signed-state")
	assert.Contains(t, u, "gmail.send")

	rec, err := g.Exchange(ctx, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "exchanged", rec.AccessToken)
	assert.Equal(t, "jeroen@wamelinkwebdesign.nl", rec.Email)

	st, err = g.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, "jeroen@wamelinkwebdesign.nl", st.Email)

	require.NoError(t, g.Disconnect(ctx))
	st, err = g.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Connected)
}

func TestBuildMIMEAppendsSanitizedSignature(t *testing.T) {
	raw, err := buildMIME("jeroen@wamelinkwebdesign.nl", testEmail, `<div>Jeroen<br>Wamelink &amp; Co</div><script>x()</script>`)
	require.NoError(t, err)

	parts := decodeBase64Parts(t, string(raw))
	require.Len(t, parts, 2)
	plain, htmlPart := parts[0], parts[1]

	assert.Contains(t, plain, "Zullen we even bellen?\n\n--\nJeroen\nWamelink & Co")
	assert.Contains(t, htmlPart, "<hr>")
	assert.Contains(t, htmlPart, "Beste Piet,<br><br>Zullen")
	assert.NotContains(t, htmlPart, "script")
}

// decodeBase64Parts pulls the base64 bodies out of a multipart message.
func decodeBase64Parts(t *testing.T, mime string) []string {
	var out []string
	for _, section := range strings.Split(mime, "--")[1:] {
		idx := strings.Index(section, "\r\n\r\n")
		if idx < 0 || !strings.Contains(section[:idx], "base64") {
			continue
		}
		body := strings.ReplaceAll(strings.TrimSpace(section[idx+4:]), "\r\n", "")
		dec, err := base64.StdEncoding.DecodeString(body)
		require.NoError(t, err)
		out = append(out, string(dec))
	}
	return out
}

func TestResendSend(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"id":"resend-9"}`)
	}))
	defer srv.Close()

	rc := NewResendClient("re_test", "Wamelink Webdesign <outreach@wamelinkwebdesign.nl>", "info@wamelinkwebdesign.nl")
	rc.BaseURL = srv.URL

	res, err := rc.Send(context.Background(), testEmail)
	require.NoError(t, err)
	assert.Equal(t, Result{MessageID: "resend-9", Provider: ProviderResend}, res)
	assert.Equal(t, []string{"info@bakkerjansen.nl"}, got.To)
	assert.Equal(t, "info@wamelinkwebdesign.nl", got.ReplyTo)
	assert.Equal(t, testEmail.Body, got.Text)

	_, err = NewResendClient("", "", "").Send(context.Background(), testEmail)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type stubProvider struct {
	res   Result
	err   error
	calls int
}

func (s *stubProvider) Send(ctx context.Context, e Email) (Result, error) {
	s.calls++
	return s.res, s.err
}

func TestSenderFallsBackToResend(t *testing.T) {
	gmail := &stubProvider{err: &APIError{Provider: ProviderGmail, Status: 403, Message: "Insufficient Permission"}}
	resend := &stubProvider{res: Result{MessageID: "r1", Provider: ProviderResend}}

	res, err := NewSender(gmail, resend).Send(context.Background(), testEmail)
	require.NoError(t, err)
	assert.Equal(t, ProviderResend, res.Provider)
	assert.Equal(t, 1, gmail.calls)
	assert.Equal(t, 1, resend.calls)
}

func TestSenderPrefersGmail(t *testing.T) {
	gmail := &stubProvider{res: Result{MessageID: "g1", Provider: ProviderGmail}}
	resend := &stubProvider{}

	res, err := NewSender(gmail, resend).Send(context.Background(), testEmail)
	require.NoError(t, err)
	assert.Equal(t, ProviderGmail, res.Provider)
	assert.Zero(t, resend.calls)
}

func TestSenderTotalFailure(t *testing.T) {
	gmail := &stubProvider{err: ErrGmailNotConnected}
	resend := &stubProvider{err: &APIError{Provider: ProviderResend, Status: 422, Message: "invalid from"}}

	_, err := NewSender(gmail, resend).Send(context.Background(), testEmail)
	var se *SendError
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, se.Gmail, ErrGmailNotConnected)

	var apiErr *APIError
	require.True(t, errors.As(se.Resend, &apiErr))
	assert.Equal(t, 422, apiErr.Status)

	_, err = NewSender(nil, nil).Send(context.Background(), testEmail)
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, se.Resend, ErrNotConfigured)
}

func TestSenderValidates(t *testing.T) {
	s := NewSender(&stubProvider{}, &stubProvider{})
	for _, e := range []Email{
		{Subject: "x", Body: "y"},
		{To: "not-an-address", Subject: "x", Body: "y"},
		{To: "a@b.nl", Body: "y"},
		{To: "a@b.nl", Subject: "x", Body: "y", ReplyTo: "nope"},
	} {
		_, err := s.Send(context.Background(), e)
		assert.ErrorIs(t, err, ErrInvalidEmail)
	}
}

func TestGmailUpstreamErrorIsTyped(t *testing.T) {
	now := time.Now()
	f := newFakeGoogle(t)
	f.failSend = true
	store := newTokenStore(t, &models.GmailToken{AccessToken: "valid", RefreshToken: "refresh-1", Expiry: now.Add(time.Hour)})

	_, err := f.client(store, now).Send(context.Background(), testEmail)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Insufficient Permission", apiErr.Message)
}
