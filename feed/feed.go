// Package feed maintains a live, ordered, per-conversation message log.
// One Feed is one viewer session: attaching loads full history and opens
// a push subscription, sending persists through the store and becomes
// visible only when the subscription echoes the row back.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"shopdesk/contract"
	"shopdesk/domain"
	"shopdesk/errors"
	"shopdesk/moderation"
)

// Notifier is the dispatcher capability the feed triggers after a
// successful send. Fire-and-forget from the feed's perspective.
type Notifier interface {
	MessageSent(ctx context.Context, message domain.Message) error
}

type Feed struct {
	conversationID uuid.UUID
	messages       contract.MessageStore
	notifier       Notifier
	moderator      *moderation.Moderator
	log            *slog.Logger
	timeline       *Timeline

	mu       sync.Mutex
	cancel   context.CancelFunc
	detached bool
}

func New(conversationID uuid.UUID, messages contract.MessageStore,
	notifier Notifier, moderator *moderation.Moderator, log *slog.Logger) *Feed {
	return &Feed{
		conversationID: conversationID,
		messages:       messages,
		notifier:       notifier,
		moderator:      moderator,
		log:            log,
		timeline:       NewTimeline(),
	}
}

// Attach opens the live subscription, waits until it is registered,
// then loads the full history ascending. That order leaves no window
// where a concurrent insert escapes both: rows committed before
// registration show up in the history scan, rows committed after are
// pushed, and the identity-keyed timeline absorbs the overlap. When
// the history read fails the caller gets an empty history plus the
// error and keeps receiving live rows. A Feed is one session: a second
// Attach is rejected.
func (f *Feed) Attach(ctx context.Context, sink contract.MessageSink) ([]domain.Message, error) {
	f.mu.Lock()
	if f.detached {
		f.mu.Unlock()
		return nil, errors.ErrFeedDetached
	}
	if f.cancel != nil {
		f.mu.Unlock()
		return nil, errors.ErrFeedAttached
	}
	subCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	ready := make(chan struct{})
	go func() {
		subErr := f.messages.Subscribe(subCtx, f.conversationID, ready, func(message domain.Message) {
			if !f.timeline.Append(message) {
				// Re-delivery of a known identity, e.g. a row the
				// history scan already returned.
				return
			}
			if err := sink.Deliver(subCtx, message); err != nil {
				f.log.Warn("Sink delivery failed", "message", message.ID, "error", err)
			}
		})
		if subErr != nil && subCtx.Err() == nil {
			f.log.Error("Live subscription ended", "conversation", f.conversationID, "error", subErr)
		}
	}()

	select {
	case <-ready:
	case <-subCtx.Done():
		return nil, subCtx.Err()
	}

	history, err := f.messages.History(f.conversationID)
	if err != nil {
		f.log.Warn("History load failed, live subscription still active",
			"conversation", f.conversationID, "error", err)
		history = nil
	}
	for _, message := range history {
		f.timeline.Append(message)
	}
	return history, err
}

// Detach releases the subscription. No messages are accepted afterward;
// an in-flight Send completes.
func (f *Feed) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detached = true
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// Send validates, moderates, persists, then triggers notification
// fan-out. The message is not appended locally: the store is the single
// source of truth for ordering and the subscription echo makes it
// visible, at the cost of perceived latency. A store failure surfaces
// to the caller with no retry and no queued message.
func (f *Feed) Send(ctx context.Context, cmd domain.SendMessageCommand) error {
	f.mu.Lock()
	if f.detached {
		f.mu.Unlock()
		return errors.ErrFeedDetached
	}
	f.mu.Unlock()

	cmd.ConversationID = f.conversationID
	if err := domain.ValidateSend(cmd); err != nil {
		return err
	}

	body := cmd.Body
	if f.moderator != nil {
		body = f.moderator.Censor(body)
	}

	message := domain.Message{
		ConversationID: f.conversationID,
		SenderID:       cmd.SenderID,
		SenderRole:     cmd.SenderRole,
		DisplayName:    cmd.DisplayName,
		Body:           body,
		Language:       detectLanguage(body),
	}
	stored, err := f.messages.StoreMessage(message)
	if err != nil {
		return fmt.Errorf("message not persisted: %w", err)
	}

	// Notification dispatch is not transactional with the message write.
	// Failures are reported, never retried, and never roll the message back.
	if err := f.notifier.MessageSent(ctx, stored); err != nil {
		f.log.Warn("Notification dispatch incomplete", "message", stored.ID, "error", err)
	}
	return nil
}

// History is the current timeline snapshot of this attachment.
func (f *Feed) History() []domain.Message {
	return f.timeline.Messages()
}

func (f *Feed) ConversationID() uuid.UUID {
	return f.conversationID
}

func detectLanguage(body string) string {
	info := whatlanggo.Detect(body)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
