package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/auth"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/db"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/emailfinder"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/mailer"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/metrics"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/outreach"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/places"
)

type ProspectSearcher interface {
	Search(ctx context.Context, req places.SearchRequest) (*places.SearchResult, error)
}

type WebsiteScorer interface {
	ScoreURLs(ctx context.Context, urls []string) ([]models.WebsiteScore, error)
}

type EmailFinder interface {
	Find(ctx context.Context, url string) (*emailfinder.Result, error)
}

type MessageGenerator interface {
	Generate(ctx context.Context, req outreach.Request) (outreach.Message, error)
}

type MailSender interface {
	Send(ctx context.Context, e mailer.Email) (mailer.Result, error)
}

type GmailConnector interface {
	AuthURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (models.GmailToken, error)
	Status(ctx context.Context) (mailer.GmailStatus, error)
	Disconnect(ctx context.Context) error
}

// Deps are the collaborators the handlers call. Gmail may be nil when the
// OAuth client is not configured.
type Deps struct {
	Store       *db.Store
	Auth        *auth.Service
	Places      ProspectSearcher
	Scorer      WebsiteScorer
	Finder      EmailFinder
	Generator   MessageGenerator
	Mailer      MailSender
	Gmail       GmailConnector
	CORSOrigins []string
}

type Server struct {
	Deps
	Echo *echo.Echo
	now  func() time.Time
}

func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s := &Server{Deps: deps, Echo: e, now: time.Now}
	e.HTTPErrorHandler = s.handleError

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	s.Echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public
	s.Echo.POST("/api/auth/login", s.handleLogin)
	s.Echo.GET("/api/gmail/callback", s.handleGmailCallback)

	// Auth is attached per route: group middleware turns 405s into 404s.
	api := s.Echo.Group("/api")
	protect := s.Auth.Middleware

	api.GET("/auth/session", s.handleSession, protect)

	// Pipeline
	api.POST("/search-prospects", s.handleSearchProspects, protect)
	api.POST("/score-websites", s.handleScoreWebsites, protect)
	api.POST("/find-email", s.handleFindEmail, protect)
	api.POST("/generate-message", s.handleGenerateMessage, protect)
	api.POST("/send-email", s.handleSendEmail, protect)
	api.POST("/import-csv", s.handleImportCSV, protect)
	api.GET("/industries", s.handleListIndustries, protect)

	// Leads
	api.GET("/leads", s.handleListLeads, protect)
	api.POST("/leads", s.handleCreateLead, protect)
	api.POST("/leads/promote", s.handlePromoteProspect, protect)
	api.GET("/leads/due", s.handleDueFollowUps, protect)
	api.GET("/leads/:id", s.handleGetLead, protect)
	api.PATCH("/leads/:id", s.handleUpdateLead, protect)
	api.DELETE("/leads/:id", s.handleDeleteLead, protect)
	api.PATCH("/leads/:id/status", s.handleSetLeadStatus, protect)
	api.POST("/leads/:id/messages", s.handleAppendMessage, protect)

	// Templates
	api.GET("/templates", s.handleListTemplates, protect)
	api.POST("/templates", s.handleCreateTemplate, protect)
	api.PUT("/templates/:id", s.handleUpdateTemplate, protect)
	api.DELETE("/templates/:id", s.handleDeleteTemplate, protect)
	api.POST("/templates/:id/render", s.handleRenderTemplate, protect)

	// Campaigns
	api.GET("/campaigns", s.handleListCampaigns, protect)
	api.POST("/campaigns", s.handleCreateCampaign, protect)
	api.DELETE("/campaigns/:id", s.handleDeleteCampaign, protect)

	// Gmail
	api.GET("/gmail/status", s.handleGmailStatus, protect)
	api.GET("/gmail/connect", s.handleGmailConnect, protect)
	api.DELETE("/gmail", s.handleGmailDisconnect, protect)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

// handleError renders every error as {"error": message}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal Server Error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
		if he.Internal != nil {
			log.Printf("[api] %s %s: %v", c.Request().Method, c.Path(), he.Internal)
		}
	} else {
		log.Printf("[api] %s %s: %v", c.Request().Method, c.Path(), err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, map[string]string{"error": msg})
	}
	if err != nil {
		log.Printf("[api] failed to write error response: %v", err)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "password is required"})
	}

	resp, err := s.Auth.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCreds) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// handleSession lets the dashboard check a stored token before using it.
func (s *Server) handleSession(c echo.Context) error {
	sub, err := auth.SubjectFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"subject":      sub,
		"authDisabled": s.Auth.Disabled(),
	})
}

// storeError maps store sentinels to a status code.
func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	case errors.Is(err, db.ErrDuplicateLead):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, db.ErrInvalidLead):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	log.Printf("[api] store error: %v", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
}

// upstreamStatus relays a third-party status code, mapping anything that
// is not an error status to 502.
func upstreamStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusBadGateway
}
