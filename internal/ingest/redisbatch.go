package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBatchStore is the production BatchStore: the analyzer leaves each
// article's denormalised index document as a JSON value at
// <prefix><article_id>, and the notification stream carries the ids.
type RedisBatchStore struct {
	client *redis.Client
	prefix string
}

// NewRedisBatchStore builds a RedisBatchStore reading keys under prefix.
func NewRedisBatchStore(client *redis.Client, prefix string) *RedisBatchStore {
	return &RedisBatchStore{client: client, prefix: prefix}
}

// GetBatch fetches the documents for ids in one MGET round trip. Missing
// keys are skipped: a notification can outlive its batch when the
// intermediate store has trimmed it, and an empty result is the caller's
// "nothing to do" signal, not an error.
func (s *RedisBatchStore) GetBatch(ctx context.Context, ids []string) ([]BatchDoc, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.prefix + id
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching batch from intermediate store: %w", err)
	}

	docs := make([]BatchDoc, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok || raw == "" {
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decoding batch document %q: %w", ids[i], err)
		}
		docs = append(docs, BatchDoc{ArticleID: ids[i], Document: doc})
	}
	return docs, nil
}
