package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/ai"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/csvimport"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/emailfinder"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/industry"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/mailer"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/outreach"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/places"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/scorer"
)

type searchRequest struct {
	places.SearchRequest
	// ScoreWebsites also scores the first results that have a website.
	ScoreWebsites bool `json:"scoreWebsites"`
}

func (s *Server) handleSearchProspects(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if _, err := places.BuildQuery(req.SearchRequest); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if s.Places == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": places.ErrNotConfigured.Error()})
	}

	ctx := c.Request().Context()
	res, err := s.Places.Search(ctx, req.SearchRequest)
	if err != nil {
		var apiErr *places.APIError
		switch {
		case errors.Is(err, places.ErrEmptyQuery):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, places.ErrNotConfigured):
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		case errors.As(err, &apiErr):
			return c.JSON(upstreamStatus(apiErr.Status), map[string]string{"error": apiErr.Message})
		}
		log.Printf("[api] prospect search failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if req.ScoreWebsites && s.Scorer != nil {
		s.scoreProspects(c, res.Prospects)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"query":   res.Query,
		"results": res.Prospects,
		"count":   len(res.Prospects),
	})
}

// scoreProspects scores up to scorer.MaxURLs prospects that have a website
// and copies the scores onto them. Failures leave the prospect unscored.
func (s *Server) scoreProspects(c echo.Context, prospects []models.Prospect) {
	byURL := map[string][]int{}
	var urls []string
	for i, p := range prospects {
		u := scorer.NormalizeURL(p.Website)
		if u == "" {
			continue
		}
		if _, seen := byURL[u]; !seen {
			if len(urls) == scorer.MaxURLs {
				continue
			}
			urls = append(urls, u)
		}
		byURL[u] = append(byURL[u], i)
	}
	if len(urls) == 0 {
		return
	}

	scores, err := s.Scorer.ScoreURLs(c.Request().Context(), urls)
	if err != nil {
		log.Printf("[api] scoring search results failed: %v", err)
		return
	}
	for _, sc := range scores {
		for _, i := range byURL[sc.URL] {
			prospects[i].ApplyScore(sc)
		}
	}
}

type scoreRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) handleScoreWebsites(c echo.Context) error {
	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	var urls []string
	for _, u := range req.URLs {
		if strings.TrimSpace(u) != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "urls is required"})
	}

	if s.Scorer == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "website scorer is not configured"})
	}

	scores, err := s.Scorer.ScoreURLs(c.Request().Context(), urls)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"scores":  scores,
	})
}

type findEmailRequest struct {
	URL string `json:"url"`
	// LeadID, when set, stores the best address on a lead without one.
	LeadID string `json:"leadId"`
}

func (s *Server) handleFindEmail(c echo.Context) error {
	var req findEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.URL) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}

	if s.Finder == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "email finder is not configured"})
	}

	ctx := c.Request().Context()
	res, err := s.Finder.Find(ctx, req.URL)
	if err != nil {
		if errors.Is(err, emailfinder.ErrInvalidURL) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if req.LeadID != "" && res.BestEmail != nil {
		best := *res.BestEmail
		_, err := s.Store.UpdateLead(ctx, req.LeadID, func(l *models.Lead) error {
			if l.Email == "" {
				l.Email = best
			}
			return nil
		})
		if err != nil {
			log.Printf("[api] storing found email on lead %s: %v", req.LeadID, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"domain":       res.Domain,
		"emails":       res.Emails,
		"bestEmail":    res.BestEmail,
		"pagesVisited": res.PagesVisited,
	})
}

type generateRequest struct {
	outreach.Request
	LeadID string `json:"leadId"`
}

func (s *Server) handleGenerateMessage(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	ctx := c.Request().Context()
	if req.LeadID != "" {
		lead, err := s.Store.GetLead(ctx, req.LeadID)
		if err != nil {
			return storeError(c, err)
		}
		req.Lead = lead
	}

	if err := req.Request.Normalize(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	var (
		msg outreach.Message
		err error
	)
	if s.Generator == nil {
		err = ai.ErrNotConfigured
	} else {
		msg, err = s.Generator.Generate(ctx, req.Request)
	}
	if err != nil {
		status := http.StatusInternalServerError
		var apiErr *ai.APIError
		switch {
		case errors.As(err, &apiErr):
			status = upstreamStatus(apiErr.Status)
		case errors.Is(err, outreach.ErrInvalidResponse):
			status = http.StatusBadGateway
		}
		log.Printf("[api] message generation for %q failed: %v", req.Lead.CompanyName, err)
		return c.JSON(status, map[string]any{
			"error":    err.Error(),
			"fallback": outreach.Fallback(req.Request),
		})
	}
	return c.JSON(http.StatusOK, msg)
}

type sendEmailRequest struct {
	mailer.Email
	LeadID string `json:"leadId"`
}

func (s *Server) handleSendEmail(c echo.Context) error {
	var req sendEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := req.Email.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if s.Mailer == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": mailer.ErrNotConfigured.Error()})
	}

	ctx := c.Request().Context()
	res, err := s.Mailer.Send(ctx, req.Email)
	if err != nil {
		var sendErr *mailer.SendError
		if errors.As(err, &sendErr) {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error":  "Email could not be sent",
				"gmail":  sendErr.Gmail.Error(),
				"resend": sendErr.Resend.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if req.LeadID != "" {
		_, err := s.Store.AppendMessage(ctx, req.LeadID, models.OutreachMessage{
			Channel:  models.ChannelEmail,
			Subject:  req.Subject,
			Body:     req.Body,
			Status:   models.MessageSent,
			Provider: res.Provider,
		})
		if err != nil {
			log.Printf("[api] recording sent email on lead %s: %v", req.LeadID, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"messageId": res.MessageID,
		"provider":  res.Provider,
	})
}

type importRequest struct {
	CSVText string `json:"csvText"`
}

func (s *Server) handleImportCSV(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.CSVText) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "csvText is required"})
	}

	res, err := csvimport.Import(c.Request().Context(), s.Store, req.CSVText)
	if err != nil {
		if errors.Is(err, csvimport.ErrNoColumns) || errors.Is(err, csvimport.ErrEmpty) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		*csvimport.Result
	}{true, res})
}

func (s *Server) handleListIndustries(c echo.Context) error {
	return c.JSON(http.StatusOK, industry.All())
}
