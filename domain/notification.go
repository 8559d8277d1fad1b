package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind tags a notification so the receiving UI can tell
// chat-origin notifications apart from system-origin ones. The engine
// only ever produces NotificationChat; system broadcasts may use any of
// the fixed kinds below or a free-form custom tag.
type NotificationKind string

const (
	NotificationChat      NotificationKind = "chat"
	NotificationOrder     NotificationKind = "order"
	NotificationPromotion NotificationKind = "promotion"
	NotificationSystem    NotificationKind = "system"
)

// Notification belongs to exactly one recipient. The only mutation it
// ever sees is the one-way unread -> read transition.
type Notification struct {
	ID          uuid.UUID
	RecipientID string
	Kind        NotificationKind
	Title       string
	Body        string
	Link        string // optional deep link back to the triggering entity
	Read        bool
	CreatedAt   time.Time
}
