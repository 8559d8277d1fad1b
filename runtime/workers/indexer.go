package workers

import (
	"context"
	"log/slog"

	"shopdesk/contract"
	"shopdesk/domain"
	"shopdesk/search"
)

// IndexerWorker feeds the search index from the store-wide message
// subscription. Index writes are idempotent upserts, so it tolerates
// the subscription's at-least-once delivery without bookkeeping.
type IndexerWorker struct {
	messages contract.MessageStore
	index    *search.MessageIndex
	log      *slog.Logger
}

func NewIndexerWorker(messages contract.MessageStore, index *search.MessageIndex, log *slog.Logger) *IndexerWorker {
	return &IndexerWorker{messages: messages, index: index, log: log}
}

func (w *IndexerWorker) Run(ctx context.Context) error {
	w.log.Info("Starting message indexer")
	return w.messages.SubscribeAll(ctx, nil, func(message domain.Message) {
		if err := w.index.Index(message); err != nil {
			w.log.Warn("Message indexing failed", "message", message.ID, "error", err)
		}
	})
}
