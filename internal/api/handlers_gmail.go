package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/mailer"
)

const errGmailNotConfigured = "Gmail OAuth is not configured (GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, GOOGLE_REDIRECT_URL)"

func (s *Server) handleGmailStatus(c echo.Context) error {
	if s.Gmail == nil {
		return c.JSON(http.StatusOK, map[string]any{"configured": false, "connected": false})
	}
	st, err := s.Gmail.Status(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"configured": true,
		"connected":  st.Connected,
		"email":      st.Email,
		"expiry":     st.Expiry,
	})
}

func (s *Server) handleGmailConnect(c echo.Context) error {
	if s.Gmail == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": errGmailNotConfigured})
	}
	state, err := s.Auth.IssueState()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	u, err := s.Gmail.AuthURL(state)
	if err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": errGmailNotConfigured})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"url": u})
}

// handleGmailCallback is the OAuth redirect target. It is public; the signed
// state parameter ties it to a connect request from the dashboard.
func (s *Server) handleGmailCallback(c echo.Context) error {
	if s.Gmail == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": errGmailNotConfigured})
	}
	if e := c.QueryParam("error"); e != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Google returned: " + e})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "code is required"})
	}
	if err := s.Auth.VerifyState(c.QueryParam("state")); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	tok, err := s.Gmail.Exchange(c.Request().Context(), code)
	if err != nil {
		log.Printf("[api] gmail code exchange failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"email":   tok.Email,
	})
}

func (s *Server) handleGmailDisconnect(c echo.Context) error {
	if s.Gmail == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": errGmailNotConfigured})
	}
	if err := s.Gmail.Disconnect(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
