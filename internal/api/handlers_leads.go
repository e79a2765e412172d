package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/industry"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/outreach"
)

// --- leads ---

func (s *Server) handleListLeads(c echo.Context) error {
	leads, err := s.Store.ListLeads(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}

	status := c.QueryParam("status")
	ind := c.QueryParam("industry")
	city := strings.ToLower(strings.TrimSpace(c.QueryParam("city")))
	if status == "" && ind == "" && city == "" {
		return c.JSON(http.StatusOK, leads)
	}

	filtered := []models.Lead{}
	for _, l := range leads {
		if status != "" && string(l.Status) != status {
			continue
		}
		if ind != "" && l.Industry != ind {
			continue
		}
		if city != "" && strings.ToLower(l.City) != city {
			continue
		}
		filtered = append(filtered, l)
	}
	return c.JSON(http.StatusOK, filtered)
}

func (s *Server) handleGetLead(c echo.Context) error {
	lead, err := s.Store.GetLead(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

func (s *Server) handleCreateLead(c echo.Context) error {
	var lead models.Lead
	if err := c.Bind(&lead); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if lead.Status != "" {
		if _, err := models.ParseLeadStatus(string(lead.Status)); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}
	lead.ID = ""

	created, err := s.Store.CreateLead(c.Request().Context(), lead)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// leadPatch carries the editable lead fields. Absent fields are left alone;
// nextFollowUp may be null to clear it.
type leadPatch struct {
	CompanyName   *string         `json:"companyName"`
	ContactPerson *string         `json:"contactPerson"`
	Email         *string         `json:"email"`
	Phone         *string         `json:"phone"`
	Website       *string         `json:"website"`
	Industry      *string         `json:"industry"`
	City          *string         `json:"city"`
	Status        *string         `json:"status"`
	Notes         *string         `json:"notes"`
	NextFollowUp  json.RawMessage `json:"nextFollowUp"`
}

func (p leadPatch) apply(l *models.Lead) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&l.CompanyName, p.CompanyName)
	set(&l.ContactPerson, p.ContactPerson)
	set(&l.Email, p.Email)
	set(&l.Phone, p.Phone)
	set(&l.Website, p.Website)
	set(&l.Industry, p.Industry)
	set(&l.City, p.City)
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	if p.Status != nil {
		st, err := models.ParseLeadStatus(*p.Status)
		if err != nil {
			return err
		}
		l.Status = st
	}
	if len(p.NextFollowUp) > 0 {
		var t *time.Time
		if err := json.Unmarshal(p.NextFollowUp, &t); err != nil {
			return err
		}
		if t != nil {
			utc := t.UTC()
			t = &utc
		}
		l.NextFollowUp = t
	}
	return nil
}

func (s *Server) handleUpdateLead(c echo.Context) error {
	var patch leadPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	// Validate before touching the store so a bad value is a 400.
	var probe models.Lead
	if err := patch.apply(&probe); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	lead, err := s.Store.UpdateLead(c.Request().Context(), c.Param("id"), patch.apply)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(c echo.Context) error {
	if err := s.Store.DeleteLead(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetLeadStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	st, err := models.ParseLeadStatus(req.Status)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	lead, err := s.Store.SetLeadStatus(c.Request().Context(), c.Param("id"), st)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

type messageRequest struct {
	Channel string `json:"channel"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Status  string `json:"status"`
}

// handleAppendMessage records a message the user sent outside the system
// (LinkedIn, phone, WhatsApp) or saves a draft. Defaults to sent.
func (s *Server) handleAppendMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	ch, err := models.ParseChannel(req.Channel)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if strings.TrimSpace(req.Body) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "body is required"})
	}
	status := models.MessageSent
	switch models.MessageStatus(req.Status) {
	case "", models.MessageSent:
	case models.MessageDraft:
		status = models.MessageDraft
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "status must be draft or sent"})
	}

	lead, err := s.Store.AppendMessage(c.Request().Context(), c.Param("id"), models.OutreachMessage{
		Channel: ch,
		Subject: req.Subject,
		Body:    req.Body,
		Status:  status,
	})
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, lead)
}

type promoteRequest struct {
	Prospect models.Prospect `json:"prospect"`
	Industry string          `json:"industry"`
}

func (s *Server) handlePromoteProspect(c echo.Context) error {
	var req promoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(req.Prospect.CompanyName) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prospect.companyName is required"})
	}

	lead, err := s.Store.PromoteProspect(c.Request().Context(), req.Prospect, req.Industry)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, lead)
}

func (s *Server) handleDueFollowUps(c echo.Context) error {
	due, err := s.Store.DueFollowUps(c.Request().Context(), s.now())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, due)
}

// --- templates ---

func (s *Server) handleListTemplates(c echo.Context) error {
	templates, err := s.Store.ListTemplates(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, templates)
}

func validateTemplate(t *models.OutreachTemplate) string {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" || strings.TrimSpace(t.Body) == "" {
		return "name and body are required"
	}
	if _, err := models.ParseChannel(string(t.Channel)); err != nil {
		return err.Error()
	}
	if t.Language == "" {
		t.Language = "nl"
	}
	if t.Language != "nl" && t.Language != "en" {
		return "language must be nl or en"
	}
	if t.Industry != "" && !industry.Valid(t.Industry) {
		return "unknown industry " + t.Industry
	}
	if t.Channel != models.ChannelEmail {
		t.Subject = ""
	}
	return ""
}

func (s *Server) handleCreateTemplate(c echo.Context) error {
	var t models.OutreachTemplate
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if msg := validateTemplate(&t); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	t.ID = ""

	saved, err := s.Store.SaveTemplate(c.Request().Context(), t)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleUpdateTemplate(c echo.Context) error {
	var t models.OutreachTemplate
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if msg := validateTemplate(&t); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	t.ID = c.Param("id")

	saved, err := s.Store.SaveTemplate(c.Request().Context(), t)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) handleDeleteTemplate(c echo.Context) error {
	if err := s.Store.DeleteTemplate(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type renderRequest struct {
	LeadID string       `json:"leadId"`
	Lead   *models.Lead `json:"lead"`
}

func (s *Server) handleRenderTemplate(c echo.Context) error {
	var req renderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	ctx := c.Request().Context()
	var lead models.Lead
	switch {
	case req.LeadID != "":
		l, err := s.Store.GetLead(ctx, req.LeadID)
		if err != nil {
			return storeError(c, err)
		}
		lead = l
	case req.Lead != nil:
		lead = *req.Lead
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "leadId or lead is required"})
	}

	tpl, err := s.Store.GetTemplate(ctx, c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, outreach.RenderTemplate(tpl, lead))
}

// --- campaigns ---

func (s *Server) handleListCampaigns(c echo.Context) error {
	campaigns, err := s.Store.ListCampaigns(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, campaigns)
}

func (s *Server) handleCreateCampaign(c echo.Context) error {
	var camp models.Campaign
	if err := c.Bind(&camp); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	camp.Name = strings.TrimSpace(camp.Name)
	if camp.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}
	if camp.Industry != "" {
		camp.Industry = industry.Normalize(camp.Industry)
	}
	camp.ID = ""

	saved, err := s.Store.SaveCampaign(c.Request().Context(), camp)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleDeleteCampaign(c echo.Context) error {
	err := s.Store.DeleteCampaign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
