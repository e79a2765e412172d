package models

import "time"

// OutreachTemplate is a reusable message skeleton with {{variable}}
// placeholders. An empty Industry matches every industry.
type OutreachTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Channel   Channel   `json:"channel"`
	Industry  string    `json:"industry"`
	Language  string    `json:"language"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GmailToken is the persisted OAuth record for the connected mailbox.
type GmailToken struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	Expiry       time.Time `json:"expiry"`
	Email        string    `json:"email"`
}
