package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T, opts Options) *Service {
	s, err := NewService(opts)
	require.NoError(t, err)
	return s
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("geheim"), bcrypt.MinCost)
	require.NoError(t, err)
	s := newService(t, Options{Secret: "test-secret", PasswordHash: string(hash)})

	_, err = s.Login(context.Background(), LoginRequest{Password: "fout"})
	assert.ErrorIs(t, err, ErrInvalidCreds)

	resp, err := s.Login(context.Background(), LoginRequest{Password: "geheim"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), resp.ExpiresAt, 5*time.Second)

	claims, err := s.parse(resp.Token, sessionAudience)
	require.NoError(t, err)
	assert.Equal(t, "owner", claims.Subject)
}

func TestLoginWithoutPassword(t *testing.T) {
	s := newService(t, Options{Secret: "x"})
	_, err := s.Login(context.Background(), LoginRequest{Password: "anything"})
	assert.ErrorIs(t, err, ErrNoPassword)

	plain := newService(t, Options{Secret: "x", Password: "dev"})
	_, err = plain.Login(context.Background(), LoginRequest{Password: "dev"})
	assert.NoError(t, err)
}

func TestState(t *testing.T) {
	s := newService(t, Options{Secret: "test-secret"})
	state, err := s.IssueState()
	require.NoError(t, err)
	assert.NoError(t, s.VerifyState(state))

	assert.ErrorIs(t, s.VerifyState("garbage"), ErrInvalidState)

	other := newService(t, Options{Secret: "other-secret"})
	assert.ErrorIs(t, other.VerifyState(state), ErrInvalidState)

	s.now = func() time.Time { return time.Now().Add(StateTTL + time.Minute) }
	assert.ErrorIs(t, s.VerifyState(state), ErrInvalidState)
}

func TestStateIsNotASessionToken(t *testing.T) {
	s := newService(t, Options{Secret: "test-secret"})
	state, err := s.IssueState()
	require.NoError(t, err)

	rec := serve(s, "Bearer "+state)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func serve(s *Service, authHeader string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/api/leads", func(c echo.Context) error {
		sub, err := SubjectFromContext(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, sub)
	}, s.Middleware)

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	s := newService(t, Options{Secret: "test-secret", Password: "geheim"})
	resp, err := s.Login(context.Background(), LoginRequest{Password: "geheim"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, serve(s, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, "Bearer abc").Code)

	rec := serve(s, "Bearer "+resp.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner", rec.Body.String())

	disabled := newService(t, Options{Disabled: true})
	rec = serve(disabled, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
