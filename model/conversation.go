package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationTurn represents one persisted message of a conversation,
// used as last-resort retrieval context when all other sources fail
type ConversationTurn struct {
	ID        int       `json:"id,omitempty"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
