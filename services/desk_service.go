//go:generate go run go.uber.org/mock/mockgen -source=desk_service.go -destination=../mocks/mock_desk_service.go -package=mocks
package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"shopdesk/contract"
	"shopdesk/domain"
	"shopdesk/feed"
	"shopdesk/moderation"
	"shopdesk/notify"
	"shopdesk/resolver"
	"shopdesk/search"
)

// IDeskService is the surface the storefront and back-office UIs call.
type IDeskService interface {
	ResolveOrCreate(selfID string, selfRole domain.Role, otherID string, otherRole domain.Role, kind domain.Kind) (domain.Conversation, error)
	OpenFeed(conversationID uuid.UUID) *feed.Feed
	Broadcast(ctx context.Context, cmd domain.BroadcastCommand) error
	Notifications(recipientID string) ([]domain.Notification, error)
	MarkRead(recipientID string, id uuid.UUID) error
	SyncStaffParticipants() error
	Search(ctx context.Context, rawQuery string) ([]search.Hit, error)
}

type DeskService struct {
	resolver   *resolver.Resolver
	messages   contract.MessageStore
	dispatcher *notify.Dispatcher
	moderator  *moderation.Moderator
	index      *search.MessageIndex
	log        *slog.Logger
}

func NewDeskService(r *resolver.Resolver, messages contract.MessageStore,
	dispatcher *notify.Dispatcher, moderator *moderation.Moderator,
	index *search.MessageIndex, log *slog.Logger) *DeskService {
	return &DeskService{
		resolver:   r,
		messages:   messages,
		dispatcher: dispatcher,
		moderator:  moderator,
		index:      index,
		log:        log,
	}
}

func (s *DeskService) ResolveOrCreate(selfID string, selfRole domain.Role,
	otherID string, otherRole domain.Role, kind domain.Kind) (domain.Conversation, error) {
	return s.resolver.ResolveOrCreate(selfID, selfRole, otherID, otherRole, kind)
}

// OpenFeed hands out a fresh viewer session for a conversation. Each
// session carries its own subscription, so a sender's other sessions
// see the echo too.
func (s *DeskService) OpenFeed(conversationID uuid.UUID) *feed.Feed {
	return feed.New(conversationID, s.messages, s.dispatcher, s.moderator, s.log)
}

func (s *DeskService) Broadcast(ctx context.Context, cmd domain.BroadcastCommand) error {
	return s.dispatcher.Broadcast(ctx, cmd)
}

func (s *DeskService) Notifications(recipientID string) ([]domain.Notification, error) {
	return s.dispatcher.Inbox(recipientID)
}

func (s *DeskService) MarkRead(recipientID string, id uuid.UUID) error {
	return s.dispatcher.MarkRead(recipientID, id)
}

func (s *DeskService) SyncStaffParticipants() error {
	return s.resolver.SyncStaffParticipants()
}

func (s *DeskService) Search(ctx context.Context, rawQuery string) ([]search.Hit, error) {
	return s.index.Search(ctx, search.ParseQuery(rawQuery))
}
