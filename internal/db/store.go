package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/industry"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

// Fixed keys, one flat JSON array per collection.
const (
	KeyLeads      = "wamelink_leads"
	KeyTemplates  = "wamelink_outreach_templates"
	KeyCampaigns  = "wamelink_campaigns"
	KeyGmailToken = "wamelink_gmail_token"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateLead     = errors.New("lead with this company already exists")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidLead       = errors.New("lead requires a company name")
)

type Store struct {
	kv            KV
	now           func() time.Time
	seedTemplates []models.OutreachTemplate
}

type StoreOption func(*Store)

// WithTemplateSeed sets the templates written on first load when none exist.
func WithTemplateSeed(templates []models.OutreachTemplate) StoreOption {
	return func(s *Store) { s.seedTemplates = templates }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(kv KV, opts ...StoreOption) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func loadList[T any](ctx context.Context, kv KV, key string) ([]T, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeList[T](raw, key)
}

func decodeList[T any](raw []byte, key string) ([]T, error) {
	out := []T{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// updateList runs fn against the decoded list under a single KV.Update.
func updateList[T any](ctx context.Context, kv KV, key string, fn func([]T) ([]T, error)) error {
	return kv.Update(ctx, key, func(current []byte) ([]byte, error) {
		list, err := decodeList[T](current, key)
		if err != nil {
			return nil, err
		}
		next, err := fn(list)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []T{}
		}
		return json.Marshal(next)
	})
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// isDuplicate applies the promotion rule: same trimmed case-insensitive
// company name, or the same non-empty place id.
func isDuplicate(existing []models.Lead, companyName, placeID string) bool {
	key := nameKey(companyName)
	for _, l := range existing {
		if nameKey(l.CompanyName) == key {
			return true
		}
		if placeID != "" && l.PlaceID == placeID {
			return true
		}
	}
	return false
}

func (s *Store) prepareLead(l models.Lead) (models.Lead, error) {
	l.CompanyName = strings.TrimSpace(l.CompanyName)
	if l.CompanyName == "" {
		return l, ErrInvalidLead
	}
	now := s.timestamp()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = models.StatusNew
	}
	l.Industry = industry.Normalize(l.Industry)
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	} else {
		l.CreatedAt = l.CreatedAt.UTC()
	}
	l.UpdatedAt = now
	if l.Messages == nil {
		l.Messages = []models.OutreachMessage{}
	}
	for i := range l.Messages {
		if l.Messages[i].ID == "" {
			l.Messages[i].ID = uuid.NewString()
		}
	}
	return l, nil
}

// --- leads ---

func (s *Store) ListLeads(ctx context.Context) ([]models.Lead, error) {
	return loadList[models.Lead](ctx, s.kv, KeyLeads)
}

func (s *Store) GetLead(ctx context.Context, id string) (models.Lead, error) {
	leads, err := s.ListLeads(ctx)
	if err != nil {
		return models.Lead{}, err
	}
	for _, l := range leads {
		if l.ID == id {
			return l, nil
		}
	}
	return models.Lead{}, ErrNotFound
}

// CreateLead stores a manually entered lead. Manual entry is not deduplicated.
func (s *Store) CreateLead(ctx context.Context, lead models.Lead) (models.Lead, error) {
	lead, err := s.prepareLead(lead)
	if err != nil {
		return models.Lead{}, err
	}
	err = updateList(ctx, s.kv, KeyLeads, func(leads []models.Lead) ([]models.Lead, error) {
		return append(leads, lead), nil
	})
	if err != nil {
		return models.Lead{}, err
	}
	return lead, nil
}

// UpdateLead applies fn to the stored lead atomically. ID, CreatedAt and
// Messages are owned by the store and cannot be changed through fn.
func (s *Store) UpdateLead(ctx context.Context, id string, fn func(*models.Lead) error) (models.Lead, error) {
	var updated models.Lead
	err := updateList(ctx, s.kv, KeyLeads, func(leads []models.Lead) ([]models.Lead, error) {
		for i := range leads {
			if leads[i].ID != id {
				continue
			}
			l := leads[i]
			if err := fn(&l); err != nil {
				return nil, err
			}
			l.ID = leads[i].ID
			l.CreatedAt = leads[i].CreatedAt
			l.Messages = leads[i].Messages
			l.CompanyName = strings.TrimSpace(l.CompanyName)
			if l.CompanyName == "" {
				return nil, ErrInvalidLead
			}
			if l.Status != leads[i].Status && !models.CanTransition(leads[i].Status, l.Status) {
				return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, leads[i].Status, l.Status)
			}
			l.Industry = industry.Normalize(l.Industry)
			l.UpdatedAt = s.timestamp()
			leads[i] = l
			updated = l
			return leads, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return models.Lead{}, err
	}
	return updated, nil
}

func (s *Store) SetLeadStatus(ctx context.Context, id string, status models.LeadStatus) (models.Lead, error) {
	return s.UpdateLead(ctx, id, func(l *models.Lead) error {
		if !models.CanTransition(l.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.Status, status)
		}
		l.Status = status
		return nil
	})
}

// AppendMessage adds msg to the lead's history. A sent message stamps
// lastContactedAt and moves a new lead to contacted.
func (s *Store) AppendMessage(ctx context.Context, id string, msg models.OutreachMessage) (models.Lead, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Status == "" {
		msg.Status = models.MessageDraft
	}
	now := s.timestamp()
	if msg.Status == models.MessageSent && msg.SentAt == nil {
		msg.SentAt = &now
	}

	var updated models.Lead
	err := updateList(ctx, s.kv, KeyLeads, func(leads []models.Lead) ([]models.Lead, error) {
		for i := range leads {
			if leads[i].ID != id {
				continue
			}
			l := &leads[i]
			l.Messages = append(l.Messages, msg)
			if msg.Status == models.MessageSent {
				sent := msg.SentAt.UTC()
				l.LastContactedAt = &sent
				if l.Status == models.StatusNew {
					l.Status = models.StatusContacted
				}
			}
			l.UpdatedAt = now
			updated = *l
			return leads, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return models.Lead{}, err
	}
	return updated, nil
}

func (s *Store) DeleteLead(ctx context.Context, id string) error {
	return updateList(ctx, s.kv, KeyLeads, func(leads []models.Lead) ([]models.Lead, error) {
		for i := range leads {
			if leads[i].ID == id {
				return append(leads[:i], leads[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

// ImportLeads appends leads whose company name is not already present (in
// the store or earlier in the batch). It returns the stored leads and the
// number skipped as duplicates.
func (s *Store) ImportLeads(ctx context.Context, in []models.Lead) ([]models.Lead, int, error) {
	prepared := make([]models.Lead, 0, len(in))
	for _, l := range in {
		p, err := s.prepareLead(l)
		if err != nil {
			return nil, 0, err
		}
		prepared = append(prepared, p)
	}

	var imported []models.Lead
	var skipped int
	err := updateList(ctx, s.kv, KeyLeads, func(leads []models.Lead) ([]models.Lead, error) {
		imported, skipped = nil, 0
		for _, l := range prepared {
			if isDuplicate(leads, l.CompanyName, l.PlaceID) {
				skipped++
				continue
			}
			leads = append(leads, l)
			imported = append(imported, l)
		}
		return leads, nil
	})
	if err != nil {
		return nil, 0, err
	}
	if imported == nil {
		imported = []models.Lead{}
	}
	return imported, skipped, nil
}

// PromoteProspect turns a search result into a new lead. The duplicate check
// and the append run in one atomic update.
func (s *Store) PromoteProspect(ctx context.Context, p models.Prospect, industryID string) (models.Lead, error) {
	if industryID == "" {
		industryID = p.Industry
	}
	var notes []string
	if p.Address != "" {
		notes = append(notes, "Adres: "+p.Address)
	}
	if p.ProspectScore != nil {
		notes = append(notes, fmt.Sprintf("Prospect score: %d", *p.ProspectScore))
	}
	for _, issue := range p.Issues {
		notes = append(notes, "- "+issue)
	}

	lead, err := s.prepareLead(models.Lead{
		CompanyName: p.CompanyName,
		Phone:       p.Phone,
		Website:     p.Website,
		Industry:    industryID,
		City:        p.City,
		PlaceID:     p.PlaceID,
		Notes:       strings.Join(notes, "\n"),
	})
	if err != nil {
		return models.Lead{}, err
	}

	err = updateList(ctx, s.kv, KeyLeads, func(leads []models.Lead) ([]models.Lead, error) {
		if isDuplicate(leads, lead.CompanyName, lead.PlaceID) {
			return nil, ErrDuplicateLead
		}
		return append(leads, lead), nil
	})
	if err != nil {
		return models.Lead{}, err
	}
	return lead, nil
}

// DueFollowUps returns open leads whose next follow-up is at or before now,
// earliest first.
func (s *Store) DueFollowUps(ctx context.Context, now time.Time) ([]models.Lead, error) {
	leads, err := s.ListLeads(ctx)
	if err != nil {
		return nil, err
	}
	due := []models.Lead{}
	for _, l := range leads {
		if l.FollowUpDue(now) {
			due = append(due, l)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].NextFollowUp.Before(*due[j].NextFollowUp)
	})
	return due, nil
}

// --- templates ---

// ListTemplates returns the stored templates, writing the seed set first if
// the collection is empty.
func (s *Store) ListTemplates(ctx context.Context) ([]models.OutreachTemplate, error) {
	templates, err := loadList[models.OutreachTemplate](ctx, s.kv, KeyTemplates)
	if err != nil {
		return nil, err
	}
	if len(templates) > 0 || len(s.seedTemplates) == 0 {
		return templates, nil
	}

	err = updateList(ctx, s.kv, KeyTemplates, func(current []models.OutreachTemplate) ([]models.OutreachTemplate, error) {
		if len(current) > 0 {
			templates = current
			return current, nil
		}
		now := s.timestamp()
		templates = make([]models.OutreachTemplate, 0, len(s.seedTemplates))
		for _, t := range s.seedTemplates {
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			t.CreatedAt, t.UpdatedAt = now, now
			templates = append(templates, t)
		}
		return templates, nil
	})
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (models.OutreachTemplate, error) {
	templates, err := s.ListTemplates(ctx)
	if err != nil {
		return models.OutreachTemplate{}, err
	}
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return models.OutreachTemplate{}, ErrNotFound
}

// SaveTemplate inserts a template without an ID or replaces the stored one.
func (s *Store) SaveTemplate(ctx context.Context, t models.OutreachTemplate) (models.OutreachTemplate, error) {
	now := s.timestamp()
	t.UpdatedAt = now
	err := updateList(ctx, s.kv, KeyTemplates, func(list []models.OutreachTemplate) ([]models.OutreachTemplate, error) {
		if t.ID != "" {
			for i := range list {
				if list[i].ID == t.ID {
					t.CreatedAt = list[i].CreatedAt
					list[i] = t
					return list, nil
				}
			}
			return nil, ErrNotFound
		}
		t.ID = uuid.NewString()
		t.CreatedAt = now
		return append(list, t), nil
	})
	if err != nil {
		return models.OutreachTemplate{}, err
	}
	return t, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	return updateList(ctx, s.kv, KeyTemplates, func(list []models.OutreachTemplate) ([]models.OutreachTemplate, error) {
		for i := range list {
			if list[i].ID == id {
				return append(list[:i], list[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

// --- campaigns ---

func (s *Store) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	return loadList[models.Campaign](ctx, s.kv, KeyCampaigns)
}

func (s *Store) SaveCampaign(ctx context.Context, c models.Campaign) (models.Campaign, error) {
	if c.LeadIDs == nil {
		c.LeadIDs = []string{}
	}
	err := updateList(ctx, s.kv, KeyCampaigns, func(list []models.Campaign) ([]models.Campaign, error) {
		if c.ID != "" {
			for i := range list {
				if list[i].ID == c.ID {
					c.CreatedAt = list[i].CreatedAt
					list[i] = c
					return list, nil
				}
			}
			return nil, ErrNotFound
		}
		c.ID = uuid.NewString()
		c.CreatedAt = s.timestamp()
		return append(list, c), nil
	})
	if err != nil {
		return models.Campaign{}, err
	}
	return c, nil
}

func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	return updateList(ctx, s.kv, KeyCampaigns, func(list []models.Campaign) ([]models.Campaign, error) {
		for i := range list {
			if list[i].ID == id {
				return append(list[:i], list[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
}

// --- gmail token ---

func (s *Store) GetGmailToken(ctx context.Context) (models.GmailToken, error) {
	raw, err := s.kv.Get(ctx, KeyGmailToken)
	if err != nil {
		return models.GmailToken{}, err
	}
	var tok *models.GmailToken
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tok); err != nil {
			return models.GmailToken{}, fmt.Errorf("decode gmail token: %w", err)
		}
	}
	if tok == nil || tok.RefreshToken == "" && tok.AccessToken == "" {
		return models.GmailToken{}, ErrNotFound
	}
	return *tok, nil
}

func (s *Store) SaveGmailToken(ctx context.Context, tok models.GmailToken) error {
	tok.Expiry = tok.Expiry.UTC()
	return s.kv.Update(ctx, KeyGmailToken, func(current []byte) ([]byte, error) {
		// Google only returns a refresh token on first consent; keep the old one.
		if tok.RefreshToken == "" && len(current) > 0 {
			var prev *models.GmailToken
			if err := json.Unmarshal(current, &prev); err == nil && prev != nil {
				tok.RefreshToken = prev.RefreshToken
				if tok.Email == "" {
					tok.Email = prev.Email
				}
			}
		}
		return json.Marshal(tok)
	})
}

func (s *Store) DeleteGmailToken(ctx context.Context) error {
	return s.kv.Update(ctx, KeyGmailToken, func([]byte) ([]byte, error) {
		return []byte("null"), nil
	})
}
