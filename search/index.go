// Package search maintains a full-text index over message bodies for
// the back-office. It sits entirely outside the send path: an indexer
// worker feeds it from the store-wide message subscription.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"

	"shopdesk/domain"
)

type Hit struct {
	MessageID      string
	ConversationID string
	SenderID       string
	Body           string
}

type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index upserts one message document. Messages are immutable, so an
// at-least-once feed simply overwrites the same document.
func (m *MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField("conversation", message.ConversationID.String()).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue()).
		AddField(bluge.NewTextField("body", message.Body).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.CreatedAt))
	return m.writer.Update(doc.ID(), doc)
}

// Search runs a parsed query against the index and returns the top hits.
func (m *MessageIndex) Search(ctx context.Context, query *Query) ([]Hit, error) {
	reader, err := m.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			m.log.Warn("Index reader close failed", "error", err)
		}
	}()

	match := bluge.NewMatchQuery(query.Terms).SetField("body")
	var blugeQuery bluge.Query = match
	if query.Conversation != "" {
		blugeQuery = bluge.NewBooleanQuery().
			AddMust(match).
			AddMust(bluge.NewTermQuery(query.Conversation).SetField("conversation"))
	}

	request := bluge.NewTopNSearch(query.Limit, blugeQuery)
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		next, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		var hit Hit
		err = next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "conversation":
				hit.ConversationID = string(value)
			case "sender":
				hit.SenderID = string(value)
			case "body":
				hit.Body = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
