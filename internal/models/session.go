package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultStep is the step a brand new conversation starts in.
const DefaultStep = "welcome"

// WhatsAppSession is the durable row for a conversation, one per phone number
type WhatsAppSession struct {
	ID          uint      `gorm:"primaryKey"`
	PhoneNumber string    `gorm:"uniqueIndex;size:32;not null"`
	CurrentStep string    `gorm:"size:64;not null"`
	LastMessage string    `gorm:"type:text"`
	Data        string    `gorm:"type:text;not null"` // JSON encoded SessionData
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (WhatsAppSession) TableName() string {
	return "whatsapp_sessions"
}

// Session is the conversation state handed to the engine and mirrored into the cache
type Session struct {
	Phone       string      `json:"phone"`
	CurrentStep string      `json:"currentStep"`
	LastMessage string      `json:"lastMessage"`
	Data        SessionData `json:"data"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewSession returns a default session for a phone that has never written before
func NewSession(phone string, now time.Time) *Session {
	return &Session{
		Phone:       phone,
		CurrentStep: DefaultStep,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy so callers can mutate without touching cached values
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Data = s.Data.Clone()
	return &out
}

// ToSession decodes the row into a Session
func (r WhatsAppSession) ToSession() (*Session, error) {
	var data SessionData
	if r.Data != "" {
		if err := json.Unmarshal([]byte(r.Data), &data); err != nil {
			return nil, fmt.Errorf("decode session data for %s: %w", r.PhoneNumber, err)
		}
	}
	return &Session{
		Phone:       r.PhoneNumber,
		CurrentStep: r.CurrentStep,
		LastMessage: r.LastMessage,
		Data:        data,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

// EncodeData serializes session data for the text column
func EncodeData(data SessionData) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode session data: %w", err)
	}
	return string(raw), nil
}
