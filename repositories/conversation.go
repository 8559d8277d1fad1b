//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"shopdesk/domain"
	"shopdesk/errors"
)

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

type conversationRow struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	OwnerID   string `json:"owner_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Insert persists a conversation under "conv:{id}". Direct conversations
// additionally get an "owner:{customer}:{id}" index entry so resolution
// keyed by the customer identity alone is a single prefix seek.
func (c ConversationRepository) Insert(conversation domain.Conversation) error {
	bytes, err := encodeRow(fromConversation(conversation))
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(conversationKey(conversation.ID)), bytes); err != nil {
			return err
		}
		if conversation.Kind == domain.KindDirectWithStaffGroup {
			ownerKey := fmt.Sprintf("owner:%s:%s", conversation.OwnerID, conversation.ID)
			return txn.Set([]byte(ownerKey), []byte(conversation.ID.String()))
		}
		return nil
	})
}

func (c ConversationRepository) GetByID(id uuid.UUID) (domain.Conversation, error) {
	var row conversationRow
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(conversationKey(id)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decodeRow(val, &row)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Conversation{}, fmt.Errorf("conversation %s: %w", id, errors.ErrConversationNotFound)
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(row)
}

// GetByOwner returns the conversation owned by a customer. When stale
// duplicates exist the first index entry wins, deterministically, since
// badger iterates keys in lexicographic order.
func (c ConversationRepository) GetByOwner(ownerID string) (domain.Conversation, error) {
	var rawID string
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("owner:%s:", ownerID))
		it.Seek(prefix)
		if !it.ValidForPrefix(prefix) {
			return errors.ErrConversationNotFound
		}
		return it.Item().Value(func(val []byte) error {
			rawID = string(val)
			return nil
		})
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("owner %s: %w", ownerID, err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return c.GetByID(id)
}

func (c ConversationRepository) ListDirect() ([]domain.Conversation, error) {
	var ids []uuid.UUID
	err := c.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte("owner:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			rawID := key[strings.LastIndex(key, ":")+1:]
			id, err := uuid.Parse(rawID)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var conversations []domain.Conversation
	for _, id := range ids {
		conversation, err := c.GetByID(id)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

func conversationKey(id uuid.UUID) string {
	return "conv:" + id.String()
}

func fromConversation(conversation domain.Conversation) conversationRow {
	return conversationRow{
		ID:        conversation.ID.String(),
		Kind:      string(conversation.Kind),
		OwnerID:   conversation.OwnerID,
		CreatedAt: conversation.CreatedAt.UnixNano(),
	}
}

func toConversation(row conversationRow) (domain.Conversation, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{
		ID:        id,
		Kind:      domain.Kind(row.Kind),
		OwnerID:   row.OwnerID,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}, nil
}
