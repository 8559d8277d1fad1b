package domain

import "github.com/google/uuid"

// SendMessageCommand carries everything a caller supplies when posting
// into a conversation. Identity and timestamp are store-assigned.
type SendMessageCommand struct {
	ConversationID uuid.UUID `validate:"required"`
	SenderID       string    `validate:"required"`
	SenderRole     Role      `validate:"required"`
	DisplayName    string
	Body           string `validate:"required,max=4000"`
}

// BroadcastCommand is the system-notification path used by the
// back-office "send to users" feature. It bypasses conversation
// participant lookup entirely.
type BroadcastCommand struct {
	Recipients []string         `validate:"required,min=1,dive,required"`
	Kind       NotificationKind `validate:"required"`
	Title      string           `validate:"required"`
	Body       string           `validate:"required"`
	Link       string
}
