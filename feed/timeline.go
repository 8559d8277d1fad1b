package feed

import (
	"sync"

	"github.com/google/uuid"

	"shopdesk/domain"
)

// Timeline is the in-memory ordered log of one attached feed. Entries
// are keyed by message identity: the subscription is at-least-once, so
// re-deliveries of an already-present identity are dropped and each
// message appears exactly once.
type Timeline struct {
	mu       sync.Mutex
	seen     map[uuid.UUID]struct{}
	messages []domain.Message
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[uuid.UUID]struct{})}
}

// Append records a message in arrival order. Returns false when the
// identity was already present.
func (t *Timeline) Append(message domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[message.ID]; ok {
		return false
	}
	t.seen[message.ID] = struct{}{}
	t.messages = append(t.messages, message)
	return true
}

// Messages returns a snapshot of the log.
func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
