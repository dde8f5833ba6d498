package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleEvent(searchType SearchType, q string, results int, latency time.Duration) QueryEvent {
	return QueryEvent{
		Endpoint:    EndpointArticles,
		SearchType:  searchType,
		Query:       q,
		ResultCount: results,
		Latency:     latency,
		Timestamp:   time.Now(),
	}
}

// ============================================================================
// Latency Buckets
// ============================================================================

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{5 * time.Millisecond, BucketLt25},
		{24 * time.Millisecond, BucketLt25},
		{25 * time.Millisecond, BucketLt100},
		{99 * time.Millisecond, BucketLt100},
		{100 * time.Millisecond, BucketLt250},
		{250 * time.Millisecond, BucketLt1000},
		{999 * time.Millisecond, BucketLt1000},
		{1 * time.Second, BucketSlow},
		{10 * time.Second, BucketSlow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.d), "bucket for %v", tt.d)
	}
}

// ============================================================================
// Circular Buffer
// ============================================================================

func TestCircularBuffer_FIFOOrder(t *testing.T) {
	b := NewCircularBuffer[int](3)
	b.Add(1)
	b.Add(2)
	b.Add(3)
	assert.Equal(t, []int{1, 2, 3}, b.Items())

	b.Add(4) // evicts 1
	assert.Equal(t, []int{2, 3, 4}, b.Items())
	assert.Equal(t, 3, b.Size())
}

func TestCircularBuffer_Clear(t *testing.T) {
	b := NewCircularBuffer[string](2)
	b.Add("a")
	b.Clear()
	assert.Empty(t, b.Items())
	assert.Equal(t, 0, b.Size())
}

// ============================================================================
// Term Extraction
// ============================================================================

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"climate", "summit"}, ExtractTerms("Climate Summit"))
	assert.Equal(t, []string{"war"}, ExtractTerms("war in EU")) // short words dropped
	assert.Nil(t, ExtractTerms("  "))
	assert.Nil(t, ExtractTerms("a an of"))
}

// ============================================================================
// Request counts by endpoint and search type
// ============================================================================

func TestRecord_CountsByEndpointAndSearchType(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(articleEvent(SearchTypeText, "climate", 3, 10*time.Millisecond))
	m.Record(articleEvent(SearchTypeText, "election", 2, 10*time.Millisecond))
	m.Record(articleEvent(SearchTypeCombined, "floods", 5, 40*time.Millisecond))
	m.Record(QueryEvent{Endpoint: EndpointTopics, Query: "energy", ResultCount: 1, Latency: 5 * time.Millisecond})
	m.Record(QueryEvent{Endpoint: EndpointCategories, ResultCount: 9, Latency: 2 * time.Millisecond})

	s := m.Snapshot()
	assert.Equal(t, int64(5), s.TotalQueries)
	assert.Equal(t, int64(2), s.RequestCounts[StatKey{EndpointArticles, SearchTypeText}])
	assert.Equal(t, int64(1), s.RequestCounts[StatKey{EndpointArticles, SearchTypeCombined}])
	assert.Equal(t, int64(1), s.RequestCounts[StatKey{EndpointTopics, SearchTypeNone}])
	assert.Equal(t, int64(1), s.RequestCounts[StatKey{EndpointCategories, SearchTypeNone}])
	assert.InDelta(t, 0.6, s.ArticleShare(), 0.001)
}

func TestStatKeyString(t *testing.T) {
	assert.Equal(t, "articles/combined", StatKey{EndpointArticles, SearchTypeCombined}.String())
	assert.Equal(t, "topics", StatKey{EndpointTopics, SearchTypeNone}.String())
}

// ============================================================================
// Per-endpoint latency histograms
// ============================================================================

func TestRecord_LatencyIsPerEndpoint(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(articleEvent(SearchTypeCombined, "floods", 5, 400*time.Millisecond))
	m.Record(QueryEvent{Endpoint: EndpointCategories, ResultCount: 9, Latency: 3 * time.Millisecond})

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.LatencyDistribution[EndpointArticles][BucketLt1000])
	assert.Equal(t, int64(1), s.LatencyDistribution[EndpointCategories][BucketLt25])
	assert.Zero(t, s.LatencyDistribution[EndpointArticles][BucketLt25],
		"the categories hit must not leak into the articles histogram")
}

// ============================================================================
// Zero-result tracking
// ============================================================================

func TestRecord_ZeroResultLabelledByEndpoint(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(articleEvent(SearchTypeText, "nothingburger", 0, 10*time.Millisecond))
	m.Record(QueryEvent{Endpoint: EndpointTopics, Query: "ghost topic", ResultCount: 0, Latency: time.Millisecond})
	m.Record(articleEvent(SearchTypeText, "climate", 4, 10*time.Millisecond))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.ZeroResultCount)
	require.Len(t, s.ZeroResultQueries, 2)
	assert.Equal(t, EndpointArticles, s.ZeroResultQueries[0].Endpoint)
	assert.Equal(t, "nothingburger", s.ZeroResultQueries[0].Query)
	assert.Equal(t, EndpointTopics, s.ZeroResultQueries[1].Endpoint)
	assert.InDelta(t, 66.6, s.ZeroResultPercentage(), 0.1)
}

// ============================================================================
// Article-only term and repeat mining
// ============================================================================

func TestRecord_TermsOnlyFromArticleFreeText(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(articleEvent(SearchTypeText, "climate policy", 3, time.Millisecond))
	m.Record(QueryEvent{Endpoint: EndpointTopics, Query: "climate", ResultCount: 1, Latency: time.Millisecond})
	m.Record(QueryEvent{Endpoint: EndpointCategories, Query: "politics", ResultCount: 1, Latency: time.Millisecond})

	s := m.Snapshot()
	require.Len(t, s.TopTerms, 2)
	terms := map[string]int64{}
	for _, tc := range s.TopTerms {
		terms[tc.Term] = tc.Count
	}
	assert.Equal(t, int64(1), terms["climate"], "topic name match must not count as an article term")
	assert.Equal(t, int64(1), terms["policy"])
	assert.NotContains(t, terms, "politics")
}

func TestRecord_ExactRepeatTracking(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(articleEvent(SearchTypeText, "climate summit", 3, time.Millisecond))
	m.Record(articleEvent(SearchTypeSemantic, "Climate Summit", 2, time.Millisecond)) // normalized repeat
	m.Record(articleEvent(SearchTypeText, "fresh query", 1, time.Millisecond))

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.ExactRepeatCount)
	assert.Equal(t, int64(2), s.UniqueQueryCount)
	assert.InDelta(t, 1.0/3.0, s.ExactRepeatRate, 0.001)
	assert.Contains(t, s.RepetitionSummary(), "unique=2")
}

func TestRecord_FilterOnlyArticleQueryNotMined(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	// A pure filter+sort article query carries no free text.
	m.Record(articleEvent(SearchTypeText, "   ", 7, time.Millisecond))

	s := m.Snapshot()
	assert.Empty(t, s.TopTerms)
	assert.Zero(t, s.UniqueQueryCount)
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestRecord_AfterCloseIsNoop(t *testing.T) {
	m := NewQueryMetrics(nil)
	require.NoError(t, m.Close())

	m.Record(articleEvent(SearchTypeText, "late", 1, time.Millisecond))
	assert.Zero(t, m.Snapshot().TotalQueries)
}

func TestClose_Idempotent(t *testing.T) {
	m := NewQueryMetrics(nil)
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

func TestRecord_ConcurrentAccess(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Record(articleEvent(SearchTypeText, "concurrent", 1, time.Millisecond))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), m.Snapshot().TotalQueries)
}

// ============================================================================
// Flush to a fake store
// ============================================================================

type fakeMetricsStore struct {
	requestCounts map[StatKey]int64
	termCounts    map[string]int64
	latencies     map[Endpoint]map[LatencyBucket]int64
}

func newFakeMetricsStore() *fakeMetricsStore {
	return &fakeMetricsStore{
		requestCounts: map[StatKey]int64{},
		termCounts:    map[string]int64{},
		latencies:     map[Endpoint]map[LatencyBucket]int64{},
	}
}

func (f *fakeMetricsStore) SaveRequestCounts(date string, counts map[StatKey]int64) error {
	for k, v := range counts {
		f.requestCounts[k] += v
	}
	return nil
}

func (f *fakeMetricsStore) GetRequestCounts(from, to string) (map[StatKey]int64, error) {
	return f.requestCounts, nil
}

func (f *fakeMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	for k, v := range terms {
		f.termCounts[k] += v
	}
	return nil
}

func (f *fakeMetricsStore) GetTopTerms(limit int) ([]TermCount, error) { return nil, nil }

func (f *fakeMetricsStore) AddZeroResultQuery(endpoint Endpoint, query string, ts time.Time) error {
	return nil
}

func (f *fakeMetricsStore) GetZeroResultQueries(limit int) ([]ZeroResultQuery, error) {
	return nil, nil
}

func (f *fakeMetricsStore) SaveLatencyCounts(date string, counts map[Endpoint]map[LatencyBucket]int64) error {
	for ep, hist := range counts {
		if f.latencies[ep] == nil {
			f.latencies[ep] = map[LatencyBucket]int64{}
		}
		for b, v := range hist {
			f.latencies[ep][b] += v
		}
	}
	return nil
}

func (f *fakeMetricsStore) GetLatencyCounts(from, to string) (map[Endpoint]map[LatencyBucket]int64, error) {
	return f.latencies, nil
}

func (f *fakeMetricsStore) Close() error { return nil }

func TestFlush_PersistsAggregates(t *testing.T) {
	store := newFakeMetricsStore()
	m := NewQueryMetricsWithConfig(store, QueryMetricsConfig{FlushInterval: 0})

	m.Record(articleEvent(SearchTypeCombined, "climate", 2, 50*time.Millisecond))
	m.Record(QueryEvent{Endpoint: EndpointTopics, ResultCount: 1, Latency: 5 * time.Millisecond})

	require.NoError(t, m.Flush())

	assert.Equal(t, int64(1), store.requestCounts[StatKey{EndpointArticles, SearchTypeCombined}])
	assert.Equal(t, int64(1), store.requestCounts[StatKey{EndpointTopics, SearchTypeNone}])
	assert.Equal(t, int64(1), store.termCounts["climate"])
	assert.Equal(t, int64(1), store.latencies[EndpointArticles][BucketLt100])
	assert.Equal(t, int64(1), store.latencies[EndpointTopics][BucketLt25])
}
