//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification_repository.go -package=mocks
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

type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

type notificationRow struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Link        string `json:"link,omitempty"`
	Read        bool   `json:"read"`
	At          int64  `json:"at"`
}

// Insert assigns identity and timestamp and persists the row under
// "notif:{recipient}:{timestamp_padded}:{uuid}", so a recipient's
// notifications read back in creation order.
func (n NotificationRepository) Insert(notification domain.Notification) (domain.Notification, error) {
	notification.ID = uuid.New()
	notification.CreatedAt = time.Now().UTC()
	notification.Read = false

	bytes, err := encodeRow(fromNotification(notification))
	if err != nil {
		return domain.Notification{}, err
	}
	err = n.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(notificationKey(notification)), bytes)
	})
	if err != nil {
		return domain.Notification{}, err
	}
	return notification, nil
}

func (n NotificationRepository) ListByRecipient(recipientID string) ([]domain.Notification, error) {
	var rows []notificationRow
	err := n.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(notificationPrefix(recipientID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var row notificationRow
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

	var notifications []domain.Notification
	for _, row := range rows {
		notification, err := toNotification(row)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

// MarkRead flips the read flag in a single read-modify-write
// transaction. The notification key embeds the identity, so locating it
// is a prefix scan bounded to one recipient.
func (n NotificationRepository) MarkRead(recipientID string, id uuid.UUID) error {
	suffix := ":" + id.String()
	return n.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)

		prefix := []byte(notificationPrefix(recipientID))
		var key []byte
		var row notificationRow
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if !strings.HasSuffix(string(item.Key()), suffix) {
				continue
			}
			key = item.KeyCopy(nil)
			err := item.Value(func(val []byte) error {
				return decodeRow(val, &row)
			})
			if err != nil {
				it.Close()
				return err
			}
			break
		}
		it.Close()

		if key == nil {
			return fmt.Errorf("notification %s for %s: %w", id, recipientID, errors.ErrNotificationNotFound)
		}
		if row.Read {
			// Already read: one-way transition, nothing to do.
			return nil
		}
		row.Read = true
		bytes, err := encodeRow(row)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

func notificationKey(notification domain.Notification) string {
	return fmt.Sprintf("%s%019d:%s",
		notificationPrefix(notification.RecipientID),
		notification.CreatedAt.UnixNano(),
		notification.ID,
	)
}

func notificationPrefix(recipientID string) string {
	return fmt.Sprintf("notif:%s:", recipientID)
}

func fromNotification(notification domain.Notification) notificationRow {
	return notificationRow{
		ID:          notification.ID.String(),
		RecipientID: notification.RecipientID,
		Kind:        string(notification.Kind),
		Title:       notification.Title,
		Body:        notification.Body,
		Link:        notification.Link,
		Read:        notification.Read,
		At:          notification.CreatedAt.UnixNano(),
	}
}

func toNotification(row notificationRow) (domain.Notification, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Notification{}, err
	}
	return domain.Notification{
		ID:          id,
		RecipientID: row.RecipientID,
		Kind:        domain.NotificationKind(row.Kind),
		Title:       row.Title,
		Body:        row.Body,
		Link:        row.Link,
		Read:        row.Read,
		CreatedAt:   time.Unix(0, row.At).UTC(),
	}, nil
}
