package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event. ID and CreatedAt are
// assigned by the store, never by a client clock.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	SenderRole     Role
	DisplayName    string // optional override, used for staff
	Body           string
	Language       string // ISO 639-1 code detected at send time, may be empty
	CreatedAt      time.Time
}
