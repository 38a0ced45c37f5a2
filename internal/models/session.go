package models

import (
	"time"

	"gorm.io/gorm"
)

// ConversationSession persists a ConversationState row per user.
type ConversationSession struct {
	gorm.Model
	UserID    string `json:"user_id" gorm:"uniqueIndex"`
	Phase     string `json:"phase"`
	LastInput string `json:"last_input"`
	Context   string `json:"context"` // JSON encoded ConversationState
	LastSeen  time.Time
}
