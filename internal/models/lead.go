package models

import (
	"fmt"
	"time"
)

// LeadStatus is the pipeline state of a lead.
type LeadStatus string

const (
	StatusNew       LeadStatus = "new"
	StatusContacted LeadStatus = "contacted"
	StatusReplied   LeadStatus = "replied"
	StatusMeeting   LeadStatus = "meeting"
	StatusProposal  LeadStatus = "proposal"
	StatusWon       LeadStatus = "won"
	StatusLost      LeadStatus = "lost"
)

// ParseLeadStatus converts a raw string to a LeadStatus, returning an error for
// unknown values.
func ParseLeadStatus(s string) (LeadStatus, error) {
	st := LeadStatus(s)
	switch st {
	case StatusNew, StatusContacted, StatusReplied, StatusMeeting, StatusProposal, StatusWon, StatusLost:
		return st, nil
	}
	return "", fmt.Errorf("unknown lead status %q", s)
}

// IsTerminal reports whether no further status change is allowed.
func (s LeadStatus) IsTerminal() bool {
	return s == StatusWon || s == StatusLost
}

// CanTransition reports whether a lead may move from one status to another.
// Open statuses can move anywhere (the dashboard uses a free dropdown); won and
// lost are final.
func CanTransition(from, to LeadStatus) bool {
	if from == to {
		return true
	}
	if from == "" {
		return true
	}
	return !from.IsTerminal()
}

// Channel is the medium of an outreach message.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelLinkedIn Channel = "linkedin"
	ChannelPhone    Channel = "phone"
	ChannelWhatsApp Channel = "whatsapp"
)

func ParseChannel(s string) (Channel, error) {
	ch := Channel(s)
	switch ch {
	case ChannelEmail, ChannelLinkedIn, ChannelPhone, ChannelWhatsApp:
		return ch, nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// MessageStatus tracks an outreach message. Only draft and sent are set by
// this service; opened and replied are reserved for a future tracking hook.
type MessageStatus string

const (
	MessageDraft   MessageStatus = "draft"
	MessageSent    MessageStatus = "sent"
	MessageOpened  MessageStatus = "opened"
	MessageReplied MessageStatus = "replied"
)

// OutreachMessage is owned by its lead and never edited once sent.
type OutreachMessage struct {
	ID       string        `json:"id"`
	Channel  Channel       `json:"channel"`
	Subject  string        `json:"subject,omitempty"`
	Body     string        `json:"body"`
	SentAt   *time.Time    `json:"sentAt"`
	Status   MessageStatus `json:"status"`
	Provider string        `json:"provider,omitempty"`
}

// Lead is a prospect business tracked through the sales pipeline.
type Lead struct {
	ID              string            `json:"id"`
	CompanyName     string            `json:"companyName"`
	ContactPerson   string            `json:"contactPerson"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Website         string            `json:"website"`
	Industry        string            `json:"industry"`
	City            string            `json:"city"`
	Status          LeadStatus        `json:"status"`
	Notes           string            `json:"notes"`
	PlaceID         string            `json:"placeId,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	LastContactedAt *time.Time        `json:"lastContactedAt"`
	NextFollowUp    *time.Time        `json:"nextFollowUp"`
	Messages        []OutreachMessage `json:"messages"`
}

// FollowUpDue reports whether the lead has an open follow-up at or before now.
func (l Lead) FollowUpDue(now time.Time) bool {
	if l.NextFollowUp == nil || l.Status.IsTerminal() {
		return false
	}
	return !l.NextFollowUp.After(now)
}

// Campaign groups leads for a batch of outreach.
type Campaign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Industry    string    `json:"industry"`
	City        string    `json:"city"`
	LeadIDs     []string  `json:"leadIds"`
	CreatedAt   time.Time `json:"createdAt"`
}
