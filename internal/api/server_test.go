package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/ai"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/auth"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/db"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/emailfinder"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/mailer"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/outreach"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/places"
)

type stubPlaces struct {
	prospects []models.Prospect
	err       error
}

func (s *stubPlaces) Search(_ context.Context, req places.SearchRequest) (*places.SearchResult, error) {
	q, err := places.BuildQuery(req)
	if err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return &places.SearchResult{Query: q, Prospects: append([]models.Prospect(nil), s.prospects...)}, nil
}

type stubScorer struct {
	calls [][]string
}

func (s *stubScorer) ScoreURLs(_ context.Context, urls []string) ([]models.WebsiteScore, error) {
	s.calls = append(s.calls, urls)
	out := make([]models.WebsiteScore, len(urls))
	for i, u := range urls {
		out[i] = models.WebsiteScore{URL: u, Reachable: true, OverallScore: 30, ProspectScore: 70}
	}
	return out, nil
}

type stubFinder struct {
	best string
}

func (s *stubFinder) Find(_ context.Context, rawURL string) (*emailfinder.Result, error) {
	if !strings.Contains(rawURL, ".") {
		return nil, emailfinder.ErrInvalidURL
	}
	best := s.best
	return &emailfinder.Result{
		Domain:       "bakkerjansen.nl",
		Emails:       []emailfinder.Candidate{{Email: best, Score: 100}},
		BestEmail:    &best,
		PagesVisited: []string{"https://bakkerjansen.nl", "https://bakkerjansen.nl/contact"},
	}, nil
}

type stubGenerator struct {
	msg outreach.Message
	err error
}

func (s *stubGenerator) Generate(context.Context, outreach.Request) (outreach.Message, error) {
	return s.msg, s.err
}

type stubMailer struct {
	sent []mailer.Email
	err  error
}

func (s *stubMailer) Send(_ context.Context, e mailer.Email) (mailer.Result, error) {
	if s.err != nil {
		return mailer.Result{}, s.err
	}
	s.sent = append(s.sent, e)
	return mailer.Result{MessageID: "msg-1", Provider: mailer.ProviderResend}, nil
}

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	if deps.Store == nil {
		deps.Store = db.NewStore(db.NewMemoryKV(), db.WithTemplateSeed(outreach.DefaultTemplates()))
	}
	if deps.Auth == nil {
		svc, err := auth.NewService(auth.Options{Secret: "test-secret", Disabled: true})
		require.NoError(t, err)
		deps.Auth = svc
	}
	return NewServer(deps)
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestWrongMethodReturnsJSONError(t *testing.T) {
	s := newTestServer(t, Deps{})
	rec, body := do(t, s, http.MethodGet, "/api/search-prospects", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestSearchProspects(t *testing.T) {
	sc := &stubScorer{}
	s := newTestServer(t, Deps{
		Places: &stubPlaces{prospects: []models.Prospect{
			{PlaceID: "p1", CompanyName: "Bakker Jansen", Website: "bakkerjansen.nl"},
			{PlaceID: "p2", CompanyName: "Zonder Site"},
		}},
		Scorer: sc,
	})

	rec, body := do(t, s, http.MethodPost, "/api/search-prospects", `{"city":"Utrecht","industry":"horeca","scoreWebsites":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])
	assert.Contains(t, body["query"], "Utrecht")

	results := body["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, float64(70), first["prospectScore"])
	assert.NotContains(t, results[1].(map[string]any), "prospectScore")
	require.Len(t, sc.calls, 1)
	assert.Equal(t, []string{"https://bakkerjansen.nl"}, sc.calls[0])
}

func TestSearchProspectsErrors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		s := newTestServer(t, Deps{Places: &stubPlaces{}})
		rec, body := do(t, s, http.MethodPost, "/api/search-prospects", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, places.ErrEmptyQuery.Error(), body["error"])
	})

	t.Run("missing fields win over missing key", func(t *testing.T) {
		s := newTestServer(t, Deps{})
		rec, body := do(t, s, http.MethodPost, "/api/search-prospects", `{"city":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, places.ErrEmptyQuery.Error(), body["error"])
	})

	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, Deps{})
		rec, body := do(t, s, http.MethodPost, "/api/search-prospects", `{"city":"Utrecht"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, body["error"], "GOOGLE_PLACES_API_KEY")
	})

	t.Run("upstream status relayed", func(t *testing.T) {
		s := newTestServer(t, Deps{Places: &stubPlaces{err: &places.APIError{Status: 429, Message: "quota"}}})
		rec, body := do(t, s, http.MethodPost, "/api/search-prospects", `{"city":"Utrecht"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "quota", body["error"])
	})
}

func TestPromoteTwiceKeepsOneLead(t *testing.T) {
	s := newTestServer(t, Deps{})
	payload := `{"prospect":{"placeId":"p1","companyName":"Bakker Jansen","city":"Utrecht"},"industry":"horeca"}`

	rec, body := do(t, s, http.MethodPost, "/api/leads/promote", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "new", body["status"])

	rec, body = do(t, s, http.MethodPost, "/api/leads/promote", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, body["error"])

	leads, err := s.Store.ListLeads(context.Background())
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestLeadCRUD(t *testing.T) {
	s := newTestServer(t, Deps{})

	rec, body := do(t, s, http.MethodPost, "/api/leads", `{"companyName":"Kapsalon Mooi","city":"Zwolle","industry":"beauty"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := body["id"].(string)

	rec, body = do(t, s, http.MethodPatch, "/api/leads/"+id, `{"notes":"Bellen na 14u","nextFollowUp":"2026-05-01T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bellen na 14u", body["notes"])
	assert.Equal(t, "2026-05-01T10:00:00Z", body["nextFollowUp"])

	rec, _ = do(t, s, http.MethodPatch, "/api/leads/"+id, `{"status":"sleeping"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, s, http.MethodPatch, "/api/leads/"+id+"/status", `{"status":"meeting"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "meeting", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/api/leads?city=zwolle", nil)
	lrec := httptest.NewRecorder()
	s.Echo.ServeHTTP(lrec, req)
	require.Equal(t, http.StatusOK, lrec.Code)
	var leads []models.Lead
	require.NoError(t, json.Unmarshal(lrec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "Kapsalon Mooi", leads[0].CompanyName)

	rec, _ = do(t, s, http.MethodDelete, "/api/leads/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = do(t, s, http.MethodGet, "/api/leads/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", body["error"])
}

func TestGenerateMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, Deps{Generator: &stubGenerator{msg: outreach.Message{Subject: "Hallo", Body: "Beste Piet"}}})
		rec, body := do(t, s, http.MethodPost, "/api/generate-message", `{"lead":{"companyName":"Bakker Jansen"}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Hallo", body["subject"])
		assert.Equal(t, "Beste Piet", body["body"])
	})

	t.Run("upstream failure returns fallback", func(t *testing.T) {
		s := newTestServer(t, Deps{Generator: &stubGenerator{err: &ai.APIError{Status: 529, Message: "overloaded"}}})
		rec, body := do(t, s, http.MethodPost, "/api/generate-message", `{"lead":{"companyName":"Bakker Jansen"},"channel":"email"}`)
		assert.Equal(t, 529, rec.Code)
		assert.NotEmpty(t, body["error"])
		fb := body["fallback"].(map[string]any)
		assert.Contains(t, fb["body"], "Bakker Jansen")
	})

	t.Run("missing company", func(t *testing.T) {
		s := newTestServer(t, Deps{Generator: &stubGenerator{}})
		rec, _ := do(t, s, http.MethodPost, "/api/generate-message", `{"lead":{}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown lead id", func(t *testing.T) {
		s := newTestServer(t, Deps{Generator: &stubGenerator{}})
		rec, _ := do(t, s, http.MethodPost, "/api/generate-message", `{"leadId":"nope"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSendEmailRecordsMessage(t *testing.T) {
	m := &stubMailer{}
	s := newTestServer(t, Deps{Mailer: m})
	ctx := context.Background()
	lead, err := s.Store.CreateLead(ctx, models.Lead{CompanyName: "Bakker Jansen"})
	require.NoError(t, err)

	rec, body := do(t, s, http.MethodPost, "/api/send-email",
		`{"to":"piet@bakkerjansen.nl","subject":"Nieuwe website","body":"Beste Piet","leadId":"`+lead.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "msg-1", body["messageId"])
	assert.Equal(t, mailer.ProviderResend, body["provider"])
	require.Len(t, m.sent, 1)

	got, err := s.Store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, models.MessageSent, got.Messages[0].Status)
	assert.Equal(t, mailer.ProviderResend, got.Messages[0].Provider)
	assert.Equal(t, models.StatusContacted, got.Status)
}

func TestSendEmailFailures(t *testing.T) {
	t.Run("invalid address", func(t *testing.T) {
		s := newTestServer(t, Deps{Mailer: &stubMailer{}})
		rec, _ := do(t, s, http.MethodPost, "/api/send-email", `{"to":"geen-adres","subject":"x","body":"y"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("both providers down", func(t *testing.T) {
		s := newTestServer(t, Deps{Mailer: &stubMailer{err: &mailer.SendError{
			Gmail:  mailer.ErrGmailNotConnected,
			Resend: errors.New("resend: 500"),
		}}})
		rec, body := do(t, s, http.MethodPost, "/api/send-email", `{"to":"piet@bakkerjansen.nl","subject":"x","body":"y"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, mailer.ErrGmailNotConnected.Error(), body["gmail"])
		assert.Equal(t, "resend: 500", body["resend"])
	})
}

func TestFindEmailFillsLead(t *testing.T) {
	s := newTestServer(t, Deps{Finder: &stubFinder{best: "info@bakkerjansen.nl"}})
	ctx := context.Background()
	lead, err := s.Store.CreateLead(ctx, models.Lead{CompanyName: "Bakker Jansen"})
	require.NoError(t, err)

	rec, body := do(t, s, http.MethodPost, "/api/find-email", `{"url":"bakkerjansen.nl","leadId":"`+lead.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "info@bakkerjansen.nl", body["bestEmail"])

	got, err := s.Store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "info@bakkerjansen.nl", got.Email)

	rec, _ = do(t, s, http.MethodPost, "/api/find-email", `{"url":"localhost"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportCSV(t *testing.T) {
	s := newTestServer(t, Deps{})
	csv := "Bedrijfsnaam;Stad;E-mail\nBakker Jansen;Utrecht;info@bakkerjansen.nl\n;Zwolle;\nBakker Jansen;Utrecht;\n"
	payload, err := json.Marshal(map[string]string{"csvText": csv})
	require.NoError(t, err)

	rec, body := do(t, s, http.MethodPost, "/api/import-csv", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["totalRows"])
	assert.Equal(t, float64(1), body["importedCount"])
	assert.Equal(t, float64(2), body["skippedCount"])

	rec, _ = do(t, s, http.MethodPost, "/api/import-csv", `{"csvText":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTemplatesSeededAndRendered(t *testing.T) {
	s := newTestServer(t, Deps{})
	ctx := context.Background()
	templates, err := s.Store.ListTemplates(ctx)
	require.NoError(t, err)
	var tpl models.OutreachTemplate
	for _, candidate := range templates {
		if candidate.Channel == models.ChannelEmail && candidate.Language == "nl" && candidate.Industry == "" {
			tpl = candidate
		}
	}
	require.NotEmpty(t, tpl.ID)

	lead, err := s.Store.CreateLead(ctx, models.Lead{CompanyName: "Bakker Jansen", City: "Utrecht"})
	require.NoError(t, err)

	rec, body := do(t, s, http.MethodPost, "/api/templates/"+tpl.ID+"/render", `{"leadId":"`+lead.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["body"], "Bakker Jansen")
	assert.NotContains(t, body["body"], "{{companyName}}")
}

func TestDueFollowUps(t *testing.T) {
	s := newTestServer(t, Deps{})
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	past := now.Add(-time.Hour)
	_, err := s.Store.CreateLead(context.Background(), models.Lead{CompanyName: "Due", NextFollowUp: &past})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/leads/due", nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var leads []models.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "Due", leads[0].CompanyName)
}

func TestAuthRequired(t *testing.T) {
	svc, err := auth.NewService(auth.Options{Secret: "test-secret", Password: "geheim"})
	require.NoError(t, err)
	s := newTestServer(t, Deps{Auth: svc})

	rec, body := do(t, s, http.MethodGet, "/api/leads", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, body["error"])

	rec, _ = do(t, s, http.MethodPost, "/api/auth/login", `{"password":"fout"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = do(t, s, http.MethodPost, "/api/auth/login", `{"password":"geheim"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := body["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var session map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "owner", session["subject"])
	assert.Equal(t, false, session["authDisabled"])

	rec, _ = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGmailEndpointsWithoutOAuth(t *testing.T) {
	s := newTestServer(t, Deps{})

	rec, body := do(t, s, http.MethodGet, "/api/gmail/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["connected"])

	rec, body = do(t, s, http.MethodGet, "/api/gmail/connect", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "GOOGLE_CLIENT_ID")
}

func TestSessionWithAuthDisabled(t *testing.T) {
	s := newTestServer(t, Deps{})
	rec, body := do(t, s, http.MethodGet, "/api/auth/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner", body["subject"])
	assert.Equal(t, true, body["authDisabled"])
}
