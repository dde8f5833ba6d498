// Package searchservice orchestrates a single request's
// compile -> fan-out -> fuse -> map flow. The combined-search fan-out
// runs the lexical and kNN halves concurrently under
// golang.org/x/sync/errgroup and fuses the two hit lists afterwards.
package searchservice

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aman-news/searchcore/internal/domain"
	"github.com/aman-news/searchcore/internal/fusion"
	"github.com/aman-news/searchcore/internal/projection"
	"github.com/aman-news/searchcore/internal/query"
	"github.com/aman-news/searchcore/internal/querycompiler"
	"github.com/aman-news/searchcore/internal/resultmapper"
	"github.com/aman-news/searchcore/internal/store"
)

// Encoder computes the dense-vector embedding of a query string. It is the
// opaque "encode: text -> vector<f32,D>" collaborator; production wires
// it to internal/embed, tests to a deterministic stub.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// Observer receives one callback per completed search, for local
// telemetry. endpoint names the search surface; searchType is the article
// strategy that ran, empty for the single-strategy endpoints. A nil
// observer is valid and costs nothing.
type Observer interface {
	ObserveSearch(endpoint, searchType, queryText string, resultCount int, elapsed time.Duration)
}

// Service coordinates one request end to end. It holds no per-request
// mutable state; the schema is built once at startup and the store client
// is safe for concurrent use.
type Service struct {
	store    store.DocumentStore
	schema   *projection.Schema
	encoder  Encoder
	observer Observer
}

// New builds a Service over doc, schema and encoder (the
// embeddings collaborator).
func New(doc store.DocumentStore, schema *projection.Schema, encoder Encoder) *Service {
	return &Service{store: doc, schema: schema, encoder: encoder}
}

// SetObserver attaches a search observer. Call before serving traffic.
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

func (s *Service) observe(endpoint, searchType, queryText string, resultCount int, started time.Time) {
	if s.observer != nil {
		s.observer.ObserveSearch(endpoint, searchType, queryText, resultCount, time.Since(started))
	}
}

// SearchArticles dispatches an ArticleQuery per its search_type and
// maps the resulting hits to outbound DTOs.
func (s *Service) SearchArticles(ctx context.Context, q *query.ArticleQuery) (domain.ArticleResults, error) {
	started := time.Now()

	var res domain.ArticleResults
	var err error
	switch q.SearchType {
	case query.SearchSemantic:
		res, err = s.searchSemantic(ctx, q)
	case query.SearchCombined:
		res, err = s.searchCombined(ctx, q)
	default:
		res, err = s.searchText(ctx, q)
	}
	if err != nil {
		return domain.ArticleResults{}, err
	}
	s.observe("articles", string(q.SearchType), q.Query, len(res.Results), started)
	return res, nil
}

func (s *Service) searchText(ctx context.Context, q *query.ArticleQuery) (domain.ArticleResults, error) {
	d := querycompiler.CompileArticleLexical(q, s.schema.Articles)
	res, err := s.store.Search(ctx, store.IndexArticles, d)
	if err != nil {
		return domain.ArticleResults{}, err
	}
	results, err := mapArticleHits(res.Hits, q)
	if err != nil {
		return domain.ArticleResults{}, err
	}
	return domain.ArticleResults{Total: res.Total, Results: results}, nil
}

func (s *Service) searchSemantic(ctx context.Context, q *query.ArticleQuery) (domain.ArticleResults, error) {
	vec, err := s.encoder.Encode(ctx, q.Query)
	if err != nil {
		return domain.ArticleResults{}, err
	}
	d := querycompiler.CompileArticleKNN(q, vec, s.schema.Articles)
	res, err := s.store.Search(ctx, store.IndexArticles, d)
	if err != nil {
		return domain.ArticleResults{}, err
	}
	results, err := mapArticleHits(res.Hits, q)
	if err != nil {
		return domain.ArticleResults{}, err
	}
	return domain.ArticleResults{Total: res.Total, Results: results}, nil
}

// searchCombined runs the lexical and kNN halves concurrently, awaiting
// both before fusing; this fan-out is the only intra-request concurrency.
// If the calling context is cancelled, errgroup.WithContext cancels the
// sibling half too.
func (s *Service) searchCombined(ctx context.Context, q *query.ArticleQuery) (domain.ArticleResults, error) {
	vec, err := s.encoder.Encode(ctx, q.Query)
	if err != nil {
		return domain.ArticleResults{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	var lexResult, knnResult store.SearchResult

	g.Go(func() error {
		d := querycompiler.CompileArticleLexical(q, s.schema.Articles)
		r, err := s.store.Search(gctx, store.IndexArticles, d)
		if err != nil {
			return err
		}
		lexResult = r
		return nil
	})
	g.Go(func() error {
		d := querycompiler.CompileArticleKNN(q, vec, s.schema.Articles)
		r, err := s.store.Search(gctx, store.IndexArticles, d)
		if err != nil {
			return err
		}
		knnResult = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.ArticleResults{}, err
	}

	// If either side returned zero total hits, return the other unchanged.
	if lexResult.Total == 0 {
		results, err := mapArticleHits(knnResult.Hits, q)
		if err != nil {
			return domain.ArticleResults{}, err
		}
		return domain.ArticleResults{Total: knnResult.Total, Results: results}, nil
	}
	if knnResult.Total == 0 {
		results, err := mapArticleHits(lexResult.Hits, q)
		if err != nil {
			return domain.ArticleResults{}, err
		}
		return domain.ArticleResults{Total: lexResult.Total, Results: results}, nil
	}

	fused := fusion.Fuse(toFusionHits(lexResult.Hits), toFusionHits(knnResult.Hits), fusion.DefaultK)
	if len(fused) > q.PageSize {
		fused = fused[:q.PageSize]
	}
	hits := make([]store.Hit, len(fused))
	for i, h := range fused {
		hits[i] = h.(store.Hit)
	}

	results, err := mapArticleHits(hits, q)
	if err != nil {
		return domain.ArticleResults{}, err
	}
	total := lexResult.Total
	if knnResult.Total > total {
		total = knnResult.Total
	}
	return domain.ArticleResults{Total: total, Results: results}, nil
}

func toFusionHits(hits []store.Hit) []fusion.Hit {
	out := make([]fusion.Hit, len(hits))
	for i, h := range hits {
		out[i] = h
	}
	return out
}

func mapArticleHits(hits []store.Hit, q *query.ArticleQuery) ([]domain.ArticleResult, error) {
	out := make([]domain.ArticleResult, 0, len(hits))
	for _, h := range hits {
		a, err := resultmapper.MapArticleHit(h)
		if err != nil {
			return nil, err
		}
		out = append(out, resultmapper.ToArticleResult(a, q.ReturnAttributes, q.HasReturnAttrs))
	}
	return out, nil
}

// SearchTopics dispatches a single store call for a TopicQuery.
func (s *Service) SearchTopics(ctx context.Context, q *query.TopicQuery) (domain.TopicResults, error) {
	started := time.Now()
	d := querycompiler.CompileTopic(q, s.schema.Topics)
	res, err := s.store.Search(ctx, store.IndexTopics, d)
	if err != nil {
		return domain.TopicResults{}, err
	}
	out := make([]domain.TopicResult, 0, len(res.Hits))
	for _, h := range res.Hits {
		t, err := resultmapper.MapTopicHit(h)
		if err != nil {
			return domain.TopicResults{}, err
		}
		out = append(out, resultmapper.ToTopicResult(t, q.ReturnAttributes, q.HasReturnAttrs))
	}
	s.observe("topics", "", q.Topic, len(out), started)
	return domain.TopicResults{Total: res.Total, Results: out}, nil
}

// SearchTopicBatches dispatches a single store call for a TopicBatchQuery.
func (s *Service) SearchTopicBatches(ctx context.Context, q *query.TopicBatchQuery) (domain.TopicBatchResults, error) {
	started := time.Now()
	d := querycompiler.CompileTopicBatch(q, s.schema.TopicBatches)
	res, err := s.store.Search(ctx, store.IndexTopicBatches, d)
	if err != nil {
		return domain.TopicBatchResults{}, err
	}
	out := make([]domain.TopicBatchResult, 0, len(res.Hits))
	for _, h := range res.Hits {
		b, err := resultmapper.MapTopicBatchHit(h)
		if err != nil {
			return domain.TopicBatchResults{}, err
		}
		out = append(out, resultmapper.ToTopicBatchResult(b, q.ReturnAttributes, q.HasReturnAttrs))
	}
	s.observe("topic_batches", "", "", len(out), started)
	return domain.TopicBatchResults{Total: res.Total, Results: out}, nil
}

// SearchCategories dispatches a single store call for a CategoryQuery.
func (s *Service) SearchCategories(ctx context.Context, q *query.CategoryQuery) (domain.CategoryResults, error) {
	started := time.Now()
	d := querycompiler.CompileCategory(q, s.schema.Categories)
	res, err := s.store.Search(ctx, store.IndexCategories, d)
	if err != nil {
		return domain.CategoryResults{}, err
	}
	out := make([]domain.CategoryResult, 0, len(res.Hits))
	for _, h := range res.Hits {
		c, err := resultmapper.MapCategoryHit(h)
		if err != nil {
			return domain.CategoryResults{}, err
		}
		out = append(out, resultmapper.ToCategoryResult(c, q.ReturnAttributes, q.HasReturnAttrs))
	}
	s.observe("categories", "", q.Name, len(out), started)
	return domain.CategoryResults{Total: res.Total, Results: out}, nil
}
