//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"shopdesk/domain"
)

// ConversationStore is the conversations table of the row store.
// Conversations are insert-only; the engine never updates them in place.
type ConversationStore interface {
	Insert(conversation domain.Conversation) error
	GetByID(id uuid.UUID) (domain.Conversation, error)
	// GetByOwner resolves the direct-with-staff-group conversation owned
	// by a customer. Returns ErrConversationNotFound when none exists.
	GetByOwner(ownerID string) (domain.Conversation, error)
	// ListDirect returns every direct-with-staff-group conversation,
	// used to re-sync materialized staff participants.
	ListDirect() ([]domain.Conversation, error)
}

// ParticipantStore is the conversation_participants table.
type ParticipantStore interface {
	Insert(participant domain.Participant) error
	ListByConversation(conversationID uuid.UUID) ([]domain.Participant, error)
	// ConversationsByMember returns the conversation identities where the
	// member participates with exactly this role.
	ConversationsByMember(memberID string, role domain.Role) ([]uuid.UUID, error)
	DeleteByConversation(conversationID uuid.UUID) error
}

// MessageStore is the messages table plus the push-subscription
// primitive. Store assigns identity and timestamp on insert.
type MessageStore interface {
	StoreMessage(message domain.Message) (domain.Message, error)
	// History returns all messages of a conversation ordered by creation
	// time ascending. Full history, no pagination boundary.
	History(conversationID uuid.UUID) ([]domain.Message, error)
	// Subscribe delivers newly inserted messages of one conversation in
	// arrival order until ctx is canceled. Blocks for the whole
	// subscription lifetime. When ready is non-nil it is closed once the
	// subscription is active; rows committed after that point are
	// guaranteed to be delivered.
	Subscribe(ctx context.Context, conversationID uuid.UUID, ready chan<- struct{}, fn func(domain.Message)) error
	// SubscribeAll is the store-wide variant feeding the search indexer.
	SubscribeAll(ctx context.Context, ready chan<- struct{}, fn func(domain.Message)) error
}

// NotificationStore is the notifications table.
type NotificationStore interface {
	Insert(notification domain.Notification) (domain.Notification, error)
	ListByRecipient(recipientID string) ([]domain.Notification, error)
	// MarkRead flips the unread -> read flag. Idempotent: marking an
	// already-read notification is a no-op, not an error.
	MarkRead(recipientID string, id uuid.UUID) error
}

// MessageSink receives live message deliveries for one attached viewer.
type MessageSink interface {
	Deliver(ctx context.Context, message domain.Message) error
}

// StaffDirectory is supplied by the surrounding application; the engine
// consults it when materializing staff participants of a customer
// conversation.
type StaffDirectory interface {
	ActiveStaff() ([]string, error)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
