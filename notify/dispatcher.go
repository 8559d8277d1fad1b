// Package notify fans a triggering event out into one notification row
// per eligible recipient. Dispatch is best-effort: each recipient write
// is awaited independently, a failed write is reported and never
// retried, and nothing ever rolls back the message that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"shopdesk/contract"
	"shopdesk/domain"
)

const chatTitle = "New chat message"

type Dispatcher struct {
	notifications contract.NotificationStore
	participants  contract.ParticipantStore
	log           *slog.Logger
}

func NewDispatcher(notifications contract.NotificationStore,
	participants contract.ParticipantStore, log *slog.Logger) *Dispatcher {
	return &Dispatcher{notifications: notifications, participants: participants, log: log}
}

// MessageSent writes one chat-kind notification per conversation
// participant except the sender, as of send time. The returned error
// summarizes partial failures; callers treat the whole call as
// fire-and-forget.
func (d *Dispatcher) MessageSent(_ context.Context, message domain.Message) error {
	participants, err := d.participants.ListByConversation(message.ConversationID)
	if err != nil {
		return fmt.Errorf("participant lookup: %w", err)
	}

	recipients := lo.Reject(participants, func(p domain.Participant, _ int) bool {
		return p.MemberID == message.SenderID
	})

	failed := 0
	for _, recipient := range recipients {
		notification := domain.Notification{
			RecipientID: recipient.MemberID,
			Kind:        domain.NotificationChat,
			Title:       chatTitle,
			Body:        message.Body,
			Link:        conversationLink(message.ConversationID),
		}
		if _, err := d.notifications.Insert(notification); err != nil {
			d.log.Warn("Notification write failed",
				"recipient", recipient.MemberID, "message", message.ID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d notification writes failed", failed, len(recipients))
	}
	return nil
}

// Broadcast is the system path used by the back-office "send to users"
// feature: an explicit recipient list and a caller-supplied kind, title
// and body, bypassing conversation-participant lookup entirely.
func (d *Dispatcher) Broadcast(_ context.Context, cmd domain.BroadcastCommand) error {
	if err := domain.ValidateBroadcast(cmd); err != nil {
		return err
	}

	failed := 0
	for _, recipientID := range cmd.Recipients {
		notification := domain.Notification{
			RecipientID: recipientID,
			Kind:        cmd.Kind,
			Title:       cmd.Title,
			Body:        cmd.Body,
			Link:        cmd.Link,
		}
		if _, err := d.notifications.Insert(notification); err != nil {
			d.log.Warn("Broadcast write failed", "recipient", recipientID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d broadcast writes failed", failed, len(cmd.Recipients))
	}
	return nil
}

// MarkRead acknowledges a notification. Idempotent.
func (d *Dispatcher) MarkRead(recipientID string, id uuid.UUID) error {
	return d.notifications.MarkRead(recipientID, id)
}

// Inbox returns a recipient's notifications in creation order.
func (d *Dispatcher) Inbox(recipientID string) ([]domain.Notification, error) {
	return d.notifications.ListByRecipient(recipientID)
}

func conversationLink(conversationID uuid.UUID) string {
	return "/conversations/" + conversationID.String()
}
