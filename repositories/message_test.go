package repositories

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"shopdesk/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Store_Assigns_Identity_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	stored, err := repository.StoreMessage(domain.Message{
		ConversationID: uuid.New(),
		SenderID:       "alice",
		SenderRole:     domain.RoleCustomer,
		Body:           "where is my parcel",
	})
	req.NoError(err)
	req.NotEqual(uuid.Nil, stored.ID)
	req.False(stored.CreatedAt.IsZero())
}

func Test_History_Is_Ordered_By_Creation_Time(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	conversationID := uuid.New()

	bodies := []string{"first", "second", "third"}
	for _, body := range bodies {
		_, err := repository.StoreMessage(domain.Message{
			ConversationID: conversationID,
			SenderID:       "alice",
			SenderRole:     domain.RoleCustomer,
			Body:           body,
		})
		req.NoError(err)
	}

	history, err := repository.History(conversationID)
	req.NoError(err)
	req.Len(history, len(bodies))
	for i, message := range history {
		req.Equal(bodies[i], message.Body)
		if i > 0 {
			req.False(message.CreatedAt.Before(history[i-1].CreatedAt))
		}
	}
}

func Test_History_Is_Scoped_To_One_Conversation(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	mine := uuid.New()
	theirs := uuid.New()

	_, err := repository.StoreMessage(domain.Message{
		ConversationID: mine, SenderID: "alice", SenderRole: domain.RoleCustomer, Body: "mine",
	})
	req.NoError(err)
	_, err = repository.StoreMessage(domain.Message{
		ConversationID: theirs, SenderID: "bob", SenderRole: domain.RoleStaff, Body: "theirs",
	})
	req.NoError(err)

	history, err := repository.History(mine)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("mine", history[0].Body)
}

func Test_Subscribe_Delivers_Inserts_In_Arrival_Order(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	conversationID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []string
	ready := make(chan struct{})
	go func() {
		_ = repository.Subscribe(ctx, conversationID, ready, func(message domain.Message) {
			mu.Lock()
			received = append(received, message.Body)
			mu.Unlock()
		})
	}()
	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("subscription never became ready")
	}

	bodies := []string{"one", "two", "three"}
	for _, body := range bodies {
		_, err := repository.StoreMessage(domain.Message{
			ConversationID: conversationID,
			SenderID:       "alice",
			SenderRole:     domain.RoleCustomer,
			Body:           body,
		})
		req.NoError(err)
	}
	// An insert in another conversation must not leak into this feed.
	_, err := repository.StoreMessage(domain.Message{
		ConversationID: uuid.New(), SenderID: "eve", SenderRole: domain.RoleStaff, Body: "noise",
	})
	req.NoError(err)

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == len(bodies)
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	req.Equal(bodies, received)
}
