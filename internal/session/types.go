package session

import (
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TitleMaxLength bounds session titles; longer titles are truncated.
const TitleMaxLength = 100

// Session is one conversation.
type Session struct {
	ID           uuid.UUID
	Title        string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is one message within a session.
type Message struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	Role           string
	Content        string
	SequenceNumber int
	CreatedAt      time.Time
}
