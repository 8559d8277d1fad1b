//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"

	"shopdesk/domain"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type messageRow struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	SenderRole     string `json:"sender_role"`
	DisplayName    string `json:"display_name,omitempty"`
	Body           string `json:"body"`
	Language       string `json:"language,omitempty"`
	At             int64  `json:"at"`
}

// StoreMessage assigns identity and timestamp, then persists the row.
// The key is formatted as "msg:{conversation_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.Message) (domain.Message, error) {
	message.ID = uuid.New()
	message.CreatedAt = time.Now().UTC()

	bytes, err := encodeRow(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(messageKey(message)), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// History retrieves all messages of a conversation using a prefix scan.
// Thanks to the padded timestamp in the key, messages come back already
// sorted by creation time ascending.
func (m MessageRepository) History(conversationID uuid.UUID) ([]domain.Message, error) {
	var rows []messageRow
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix(conversationID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var row messageRow
				if err := decodeRow(val, &row); err != nil {
					return err
				}
				rows = append(rows, row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	for _, row := range rows {
		message, err := toMessage(row)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// Subscribe delivers committed message inserts matching the
// conversation prefix, in commit order, until ctx is canceled. Badger
// guarantees per-prefix ordering, which is exactly the
// in-order-per-conversation contract the feed relies on. ready, when
// non-nil, is closed once the subscription is registered.
func (m MessageRepository) Subscribe(ctx context.Context, conversationID uuid.UUID, ready chan<- struct{}, fn func(domain.Message)) error {
	return m.subscribe(ctx, messagePrefix(conversationID), ready, fn)
}

// SubscribeAll watches the whole messages keyspace. No cross-conversation
// ordering is guaranteed or needed; the search indexer is its only consumer.
func (m MessageRepository) SubscribeAll(ctx context.Context, ready chan<- struct{}, fn func(domain.Message)) error {
	return m.subscribe(ctx, "msg:", ready, fn)
}

// markerPrefix holds throwaway keys written only to detect that a
// subscription is registered. Never scanned by History.
const markerPrefix = "submark:"

func (m MessageRepository) subscribe(ctx context.Context, prefix string, ready chan<- struct{}, fn func(domain.Message)) error {
	marker := markerPrefix + uuid.New().String()
	registered := make(chan struct{})
	var once sync.Once

	cb := func(kvs *badger.KVList) error {
		for _, kv := range kvs.Kv {
			if strings.HasPrefix(string(kv.Key), markerPrefix) {
				once.Do(func() { close(registered) })
				continue
			}
			if len(kv.Value) == 0 {
				continue
			}
			var row messageRow
			if err := decodeRow(kv.Value, &row); err != nil {
				m.log.Warn("Dropping undecodable message event", "key", string(kv.Key), "error", err)
				continue
			}
			message, err := toMessage(row)
			if err != nil {
				m.log.Warn("Dropping malformed message event", "key", string(kv.Key), "error", err)
				continue
			}
			fn(message)
		}
		return nil
	}

	// Registration happens inside db.Subscribe before it blocks, so the
	// callback observing a marker write proves every later commit will
	// be delivered. The marker is rewritten until observed: the first
	// write may land before registration.
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			err := m.db.Update(func(txn *badger.Txn) error {
				return txn.Set([]byte(marker), nil)
			})
			if err != nil {
				m.log.Warn("Subscription marker write failed", "error", err)
			}
			select {
			case <-registered:
				_ = m.db.Update(func(txn *badger.Txn) error {
					return txn.Delete([]byte(marker))
				})
				if ready != nil {
					close(ready)
				}
				return
			case <-ctx.Done():
				_ = m.db.Update(func(txn *badger.Txn) error {
					return txn.Delete([]byte(marker))
				})
				return
			case <-ticker.C:
			}
		}
	}()

	err := m.db.Subscribe(ctx, cb, []pb.Match{
		{Prefix: []byte(prefix)},
		{Prefix: []byte(marker)},
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

func messageKey(message domain.Message) string {
	return fmt.Sprintf("%s%019d:%s",
		messagePrefix(message.ConversationID),
		message.CreatedAt.UnixNano(),
		message.ID,
	)
}

func messagePrefix(conversationID uuid.UUID) string {
	return fmt.Sprintf("msg:%s:", conversationID)
}

func fromMessage(message domain.Message) messageRow {
	return messageRow{
		ID:             message.ID.String(),
		ConversationID: message.ConversationID.String(),
		SenderID:       message.SenderID,
		SenderRole:     string(message.SenderRole),
		DisplayName:    message.DisplayName,
		Body:           message.Body,
		Language:       message.Language,
		At:             message.CreatedAt.UnixNano(),
	}
}

func toMessage(row messageRow) (domain.Message, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Message{}, err
	}
	conversationID, err := uuid.Parse(row.ConversationID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       row.SenderID,
		SenderRole:     domain.Role(row.SenderRole),
		DisplayName:    row.DisplayName,
		Body:           row.Body,
		Language:       row.Language,
		CreatedAt:      time.Unix(0, row.At).UTC(),
	}, nil
}
