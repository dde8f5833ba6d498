package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-news/searchcore/internal/store"
)

type stubBatchStore struct {
	docs []BatchDoc
	err  error
	got  []string
}

func (s *stubBatchStore) GetBatch(ctx context.Context, ids []string) ([]BatchDoc, error) {
	s.got = ids
	return s.docs, s.err
}

func newIndexedMemStore(t *testing.T) *store.MemStore {
	t.Helper()
	ms := store.NewMemStore()
	require.NoError(t, ms.AssertIndex(context.Background(), store.IndexArticles, store.ArticlesMapping()))
	return ms
}

func TestParsePayloadIDs(t *testing.T) {
	assert.Equal(t, []string{"a1", "a2"}, parsePayloadIDs(`["a1","a2"]`))
	assert.Equal(t, []string{"batch-7"}, parsePayloadIDs(`"batch-7"`))
	assert.Equal(t, []string{"batch-7"}, parsePayloadIDs(`batch-7`))
}

func TestHandleNotification_EmptyFetchReturnsNilAndLogs(t *testing.T) {
	ms := newIndexedMemStore(t)
	bs := &stubBatchStore{}
	c := New(ms, bs, nil)

	err := c.HandleNotification(context.Background(), `["a1"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, bs.got)
}

func TestHandleNotification_UpsertsByArticleID(t *testing.T) {
	ms := newIndexedMemStore(t)
	bs := &stubBatchStore{docs: []BatchDoc{
		{ArticleID: "a1", Document: map[string]interface{}{"article": map[string]interface{}{"title": []string{"hello"}}}},
	}}
	c := New(ms, bs, nil)

	err := c.HandleNotification(context.Background(), `["a1"]`)
	require.NoError(t, err)

	res, err := ms.Search(context.Background(), store.IndexArticles, store.Descriptor{Kind: store.KindLexical, Body: map[string]interface{}{"bool": map[string]interface{}{}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "a1", res.Hits[0].ID)
}

func TestHandleNotification_BatchStoreErrorPropagates(t *testing.T) {
	ms := newIndexedMemStore(t)
	bs := &stubBatchStore{err: assert.AnError}
	c := New(ms, bs, nil)

	err := c.HandleNotification(context.Background(), `["a1"]`)
	assert.Error(t, err)
}

func TestHandleNotification_Idempotent(t *testing.T) {
	ms := newIndexedMemStore(t)
	bs := &stubBatchStore{docs: []BatchDoc{
		{ArticleID: "a1", Document: map[string]interface{}{"article": map[string]interface{}{"title": []string{"v1"}}}},
	}}
	c := New(ms, bs, nil)
	require.NoError(t, c.HandleNotification(context.Background(), `["a1"]`))

	bs.docs[0].Document = map[string]interface{}{"article": map[string]interface{}{"title": []string{"v2"}}}
	require.NoError(t, c.HandleNotification(context.Background(), `["a1"]`))

	res, err := ms.Search(context.Background(), store.IndexArticles, store.Descriptor{Kind: store.KindLexical, Body: map[string]interface{}{"bool": map[string]interface{}{}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}
