package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-news/searchcore/internal/projection"
	"github.com/aman-news/searchcore/internal/searchservice"
	"github.com/aman-news/searchcore/internal/store"
)

type stubEncoder struct{}

func (stubEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestServer(t *testing.T) (*Server, *store.MemStore) {
	t.Helper()

	ms := store.NewMemStore()
	require.NoError(t, ms.AssertIndex(context.Background(), store.IndexArticles, store.ArticlesMapping()))

	schema := projection.Build()
	svc := searchservice.New(ms, schema, stubEncoder{})
	srv := New(svc, schema, ServerConfig{Host: "127.0.0.1", Port: 0}, slog.Default())
	return srv, ms
}

func seedArticles(t *testing.T, ms *store.MemStore, docs map[string]map[string]interface{}) {
	t.Helper()
	actions := make([]store.BulkAction, 0, len(docs))
	for id, doc := range docs {
		actions = append(actions, store.BulkAction{ID: id, Document: doc})
	}
	ch, err := ms.BulkWrite(context.Background(), store.IndexArticles, actions)
	require.NoError(t, err)
	for r := range ch {
		require.NoError(t, r.Err)
	}
}

func doGet(t *testing.T, srv *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSearchArticles_TextOnly(t *testing.T) {
	srv, ms := newTestServer(t)
	seedArticles(t, ms, map[string]map[string]interface{}{
		"A": {
			"article": map[string]interface{}{
				"title":        []string{"climate summit"},
				"paragraphs":   []string{"climate climate climate negotiations continue"},
				"publish_date": "2026-01-02T00:00:00Z",
			},
		},
		"B": {
			"article": map[string]interface{}{
				"title":        []string{"finance news"},
				"paragraphs":   []string{"markets react to climate policy"},
				"publish_date": "2026-01-01T00:00:00Z",
			},
		},
	})

	rec := doGet(t, srv, "/api/v1/search/articles?query=climate&page=0&page_size=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total   int                      `json:"total"`
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Results, 2)

	for _, r := range body.Results {
		_, hasEmbeddings := r["embeddings"]
		assert.False(t, hasEmbeddings, "embeddings must never be returned")
	}
}

func TestSearchArticles_SemanticRejectsPagination(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/v1/search/articles?search_type=semantic&query=x&page=1")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Detail []struct {
			Msg string `json:"msg"`
		} `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Detail)
	assert.Equal(t, "'page' must be 0 for 'semantic' or 'combined' search.", body.Detail[0].Msg)
}

func TestSearchArticles_SemanticRejectsBlankQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/v1/search/articles?search_type=semantic&query=%20%20")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSearchArticles_ProjectionMask(t *testing.T) {
	srv, ms := newTestServer(t)
	seedArticles(t, ms, map[string]map[string]interface{}{
		"A": {
			"article": map[string]interface{}{
				"url":          "https://news.example.com/a",
				"title":        []string{"masked title"},
				"paragraphs":   []string{"first", "second"},
				"publish_date": "2026-01-01T00:00:00Z",
			},
		},
	})

	rec := doGet(t, srv, "/api/v1/search/articles?return_attributes=id&return_attributes=title")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)

	r := body.Results[0]
	assert.Equal(t, "A", r["id"])
	assert.Equal(t, "masked title", r["title"])
	_, hasURL := r["url"]
	assert.False(t, hasURL, "url was not requested")
	_, hasParagraphs := r["paragraphs"]
	assert.False(t, hasParagraphs, "paragraphs were not requested")
}

func TestSearchArticles_UnknownReturnAttributeRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/v1/search/articles?return_attributes=embeddings")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSearchArticles_BadPageSizeRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/api/v1/search/articles?page_size=31")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doGet(t, srv, "/api/v1/search/articles?page_size=0")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doGet(t, srv, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSearchCategories_Empty(t *testing.T) {
	srv, ms := newTestServer(t)
	require.NoError(t, ms.AssertIndex(context.Background(), store.IndexCategories, store.CategoriesMapping()))

	rec := doGet(t, srv, "/api/v1/search/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Total)
}
