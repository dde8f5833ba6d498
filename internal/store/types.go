// Package store is the document store adapter: a thin
// abstraction over a search backend exposing search, bulk upsert, and
// idempotent index assertion, plus two concrete implementations: ESStore
// for production (github.com/elastic/go-elasticsearch/v8) and MemStore for
// tests/dev (github.com/blevesearch/bleve/v2 + github.com/coder/hnsw).
package store

import (
	"context"
	"encoding/json"
)

// Kind distinguishes a lexical query descriptor from a kNN one.
type Kind string

const (
	KindLexical Kind = "lexical"
	KindKNN     Kind = "knn"
)

// Descriptor is the backend-agnostic request built by the query compiler
// and consumed by a DocumentStore. Exactly one of Body (lexical) or
// the kNN fields is meaningful, selected by Kind.
type Descriptor struct {
	Kind Kind

	// Lexical: a bool query tree as {must,should,filter,minimum_should_match}.
	Body map[string]interface{}

	// kNN.
	VectorField   string
	QueryVector   []float32
	NumCandidates int
	K             int
	KNNFilter     map[string]interface{}

	Sort          []map[string]interface{}
	TrackScores   bool
	From          int
	Size          int
	SourceInclude []string
	SourceExclude []string
}

// Hit is one backend search result: the document id, its score, and its
// raw, still-encoded `_source`. The result mapper decodes Source lazily
// per entity.
type Hit struct {
	ID     string
	Score  float64
	Source json.RawMessage
}

// HitID implements fusion.Hit.
func (h Hit) HitID() string { return h.ID }

// SearchResult is the outcome of one store.Search call.
type SearchResult struct {
	Hits  []Hit
	Total int
}

// BulkAction is one upsert targeting an index, keyed by document id.
type BulkAction struct {
	ID       string
	Document interface{}
}

// BulkResult reports the per-action outcome of a BulkWrite call. A
// per-document failure does not fail the batch; callers log Err and
// continue.
type BulkResult struct {
	ID  string
	Err error
}

// Mapping is an opaque, backend-specific index mapping body passed through
// to AssertIndex.
type Mapping map[string]interface{}

// DocumentStore is the interface the adapter exposes to the rest of the system.
type DocumentStore interface {
	// Search executes one query descriptor against index and returns its
	// hits and total hit count.
	Search(ctx context.Context, index string, d Descriptor) (SearchResult, error)

	// BulkWrite upserts actions into index, streaming one BulkResult per
	// action. The channel is closed when the batch completes.
	BulkWrite(ctx context.Context, index string, actions []BulkAction) (<-chan BulkResult, error)

	// AssertIndex creates index with mapping if absent. It is idempotent:
	// an "already exists" condition from the backend is a no-op; any other
	// error is fatal during startup.
	AssertIndex(ctx context.Context, index string, mapping Mapping) error

	// Close drains the underlying client.
	Close() error
}

// Index names, per the backend document shape contract.
const (
	IndexArticles     = "articles"
	IndexTopics       = "topics"
	IndexTopicBatches = "topic_batches"
	IndexCategories   = "categories"
)
