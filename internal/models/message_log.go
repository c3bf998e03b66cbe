package models

import "time"

// Message directions
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Message type tags recorded on the log
const (
	MessageTypeText         = "text"
	MessageTypeButtons      = "buttons"
	MessageTypeList         = "list"
	MessageTypeOptionList   = "option_list"
	MessageTypeNotification = "notification"
)

// MessageLog is an append-only audit record of a message sent or received
type MessageLog struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	Phone       string    `json:"phone" gorm:"index;size:32;not null"`
	Message     string    `json:"message" gorm:"type:text"`
	Direction   string    `json:"direction" gorm:"size:16;not null"`
	MessageType string    `json:"message_type" gorm:"size:32"`
	Metadata    string    `json:"metadata,omitempty" gorm:"type:text"` // JSON, optional
	CreatedAt   time.Time `json:"created_at" gorm:"index;not null"`
}
