// Package ingest reacts to each "batch ready" stream notification:
// fetch the corresponding documents from the intermediate batch store and
// upsert them into the articles index.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aman-news/searchcore/internal/store"
)

// BatchDoc is one article document fetched from the intermediate
// key/value store, already shaped like the articles index document body by
// the upstream analyzer; the coordinator only needs the article id to key
// the bulk upsert.
type BatchDoc struct {
	ArticleID string
	Document  interface{}
}

// BatchStore is the intermediate store collaborator: `get_batch(ids) ->
// list<doc>`.
type BatchStore interface {
	GetBatch(ctx context.Context, ids []string) ([]BatchDoc, error)
}

// Coordinator drives one notification's fetch-and-upsert cycle.
type Coordinator struct {
	store  store.DocumentStore
	batch  BatchStore
	logger *slog.Logger
}

// New builds a Coordinator writing into doc via batch.
func New(doc store.DocumentStore, batch BatchStore, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: doc, batch: batch, logger: logger}
}

// HandleNotification is the streamconsumer.Handler: payload is the stream
// message's opaque `done` field. Whether it carries a single id, a list,
// or a batch id is the intermediate store's concern; the payload is parsed
// permissively and handed to GetBatch as-is.
//
// An empty fetch is logged and the call returns nil so the message is
// still acknowledged. A BatchStore error
// propagates so the stream consumer leaves the message pending for
// redelivery.
func (c *Coordinator) HandleNotification(ctx context.Context, payload string) error {
	ids := parsePayloadIDs(payload)

	docs, err := c.batch.GetBatch(ctx, ids)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		c.logger.Info("ingest notification fetched no documents, nothing to do", "ids", ids)
		return nil
	}

	actions := make([]store.BulkAction, len(docs))
	for i, d := range docs {
		actions[i] = store.BulkAction{ID: d.ArticleID, Document: d.Document}
	}

	results, err := c.store.BulkWrite(ctx, store.IndexArticles, actions)
	if err != nil {
		return err
	}
	for r := range results {
		if r.Err != nil {
			// Non-fatal per-document failure: logged and skipped, the
			// batch overall still succeeds.
			c.logger.Error("bulk ingest action failed, skipping document", "article_id", r.ID, "error", r.Err)
		}
	}
	return nil
}

// parsePayloadIDs treats payload as an opaque id-or-id-list: a JSON array
// of ids, a single JSON string id, or (failing both) the raw payload text
// itself taken as one id or batch id.
func parsePayloadIDs(payload string) []string {
	var ids []string
	if err := json.Unmarshal([]byte(payload), &ids); err == nil {
		return ids
	}
	var single string
	if err := json.Unmarshal([]byte(payload), &single); err == nil {
		return []string{single}
	}
	return []string{payload}
}
