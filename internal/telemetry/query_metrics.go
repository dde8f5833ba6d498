// Package telemetry provides query-pattern telemetry for the search API.
// All telemetry data is stored locally - no external reporting.
//
// Observations are keyed by the API's own taxonomy: which endpoint was hit
// (articles, topics, topic-batches, categories) and, for articles, which
// search type ran (text, semantic, combined). Free-text term and
// repetition tracking applies to article queries only; the topic/category
// name matches are too low-cardinality to be worth mining.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Endpoint identifies which search surface an observation came from.
type Endpoint string

const (
	EndpointArticles     Endpoint = "articles"
	EndpointTopics       Endpoint = "topics"
	EndpointTopicBatches Endpoint = "topic_batches"
	EndpointCategories   Endpoint = "categories"
)

// SearchType is the article search strategy that served the request.
// Empty for the non-article endpoints, which have a single strategy.
type SearchType string

const (
	SearchTypeText     SearchType = "text"
	SearchTypeSemantic SearchType = "semantic"
	SearchTypeCombined SearchType = "combined"
	SearchTypeNone     SearchType = ""
)

// StatKey is the (endpoint, search_type) pair request counts aggregate on.
type StatKey struct {
	Endpoint   Endpoint
	SearchType SearchType
}

func (k StatKey) String() string {
	if k.SearchType == SearchTypeNone {
		return string(k.Endpoint)
	}
	return string(k.Endpoint) + "/" + string(k.SearchType)
}

// LatencyBucket is a histogram bucket. The boundaries assume every search
// crosses the network to the document store: sub-25ms is a warm hit,
// anything past a second means the store is struggling or a combined
// fan-out stalled on its slower half.
type LatencyBucket string

const (
	BucketLt25   LatencyBucket = "lt25"   // <25ms
	BucketLt100  LatencyBucket = "lt100"  // 25-100ms
	BucketLt250  LatencyBucket = "lt250"  // 100-250ms
	BucketLt1000 LatencyBucket = "lt1000" // 250ms-1s
	BucketSlow   LatencyBucket = "slow"   // >=1s
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 25:
		return BucketLt25
	case ms < 100:
		return BucketLt100
	case ms < 250:
		return BucketLt250
	case ms < 1000:
		return BucketLt1000
	default:
		return BucketSlow
	}
}

// QueryEvent represents a single served search for telemetry recording.
type QueryEvent struct {
	Endpoint    Endpoint
	SearchType  SearchType
	Query       string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// hasFreeText reports whether the event carries article free text worth
// mining for terms and repeats.
func (e QueryEvent) hasFreeText() bool {
	return e.Endpoint == EndpointArticles && strings.TrimSpace(e.Query) != ""
}

// ZeroResultQuery is one entry of the zero-result ring buffer: the query
// that found nothing, and where it was asked.
type ZeroResultQuery struct {
	Endpoint Endpoint
	Query    string
	Time     time.Time
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // Next write position
	size     int // Current number of items
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in the buffer in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear removes all items from the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

// ExtractTerms extracts searchable terms from an article free-text query.
// Terms are lowercased and filtered to minimum length 3.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	words := strings.Fields(query)
	var terms []string
	for _, w := range words {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}

	if len(terms) == 0 {
		return nil
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryMetricsSnapshot is an immutable snapshot of query metrics.
type QueryMetricsSnapshot struct {
	RequestCounts       map[StatKey]int64                    `json:"request_counts"`
	TopTerms            []TermCount                          `json:"top_terms"`
	ZeroResultQueries   []ZeroResultQuery                    `json:"zero_result_queries"`
	LatencyDistribution map[Endpoint]map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                                `json:"total_queries"`
	ZeroResultCount     int64                                `json:"zero_result_count"`
	Since               time.Time                            `json:"since"`

	// Repetition metrics over article free-text queries.
	ExactRepeatCount int64   `json:"exact_repeat_count"`
	ExactRepeatRate  float64 `json:"exact_repeat_rate"`
	UniqueQueryCount int64   `json:"unique_query_count"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// ArticleShare returns the fraction of all requests that hit the articles
// endpoint, the API's primary surface.
func (s *QueryMetricsSnapshot) ArticleShare() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	var articles int64
	for k, v := range s.RequestCounts {
		if k.Endpoint == EndpointArticles {
			articles += v
		}
	}
	return float64(articles) / float64(s.TotalQueries)
}

// RepetitionSummary returns a human-readable summary of repetition metrics.
func (s *QueryMetricsSnapshot) RepetitionSummary() string {
	if s.TotalQueries == 0 {
		return "No queries recorded"
	}
	return fmt.Sprintf("exact=%.1f%%, unique=%d", s.ExactRepeatRate*100, s.UniqueQueryCount)
}

// QueryMetricsStore defines persistence operations for query metrics.
type QueryMetricsStore interface {
	// SaveRequestCounts upserts daily (endpoint, search_type) counts.
	SaveRequestCounts(date string, counts map[StatKey]int64) error

	// GetRequestCounts retrieves counts for a date range.
	GetRequestCounts(from, to string) (map[StatKey]int64, error)

	// UpsertTermCounts updates article-query term frequency counts.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms retrieves the top N terms by frequency.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroResultQuery records a query that found nothing.
	AddZeroResultQuery(endpoint Endpoint, query string, timestamp time.Time) error

	// GetZeroResultQueries retrieves recent zero-result queries.
	GetZeroResultQueries(limit int) ([]ZeroResultQuery, error)

	// SaveLatencyCounts upserts daily per-endpoint latency histograms.
	SaveLatencyCounts(date string, counts map[Endpoint]map[LatencyBucket]int64) error

	// GetLatencyCounts retrieves per-endpoint latency distributions for a
	// date range.
	GetLatencyCounts(from, to string) (map[Endpoint]map[LatencyBucket]int64, error)

	// Close releases resources.
	Close() error
}

// QueryMetricsConfig configures the query metrics collector.
type QueryMetricsConfig struct {
	TopTermsCapacity    int           // Max terms to track (default: 100)
	ZeroResultsCapacity int           // Max zero-result queries to track (default: 100)
	FlushInterval       time.Duration // How often to flush to store (default: 60s, 0 = no auto-flush)

	// RecentQueriesCapacity bounds the LRU used for exact-repeat
	// detection over article free text (default: 500).
	RecentQueriesCapacity int
}

// DefaultQueryMetricsConfig returns sensible defaults.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		FlushInterval:         60 * time.Second,
		RecentQueriesCapacity: 500,
	}
}

// QueryMetrics collects query telemetry for search tuning.
// Thread-safe for concurrent access.
type QueryMetrics struct {
	mu sync.RWMutex

	// In-memory aggregates
	requestCounts   map[StatKey]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[ZeroResultQuery]
	latencies       map[Endpoint]map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	startTime       time.Time

	// Exact-repeat tracking over article free text
	recentQueries    *lru.Cache[string, struct{}]
	exactRepeatCount int64

	// Persistence
	store       QueryMetricsStore
	config      QueryMetricsConfig
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

// NewQueryMetrics creates a new metrics collector with default configuration.
// If store is nil, metrics are only kept in memory.
func NewQueryMetrics(store QueryMetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a new metrics collector with custom configuration.
func NewQueryMetricsWithConfig(store QueryMetricsStore, cfg QueryMetricsConfig) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recentQueries, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		requestCounts: make(map[StatKey]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[ZeroResultQuery](cfg.ZeroResultsCapacity),
		latencies:     make(map[Endpoint]map[LatencyBucket]int64),
		startTime:     time.Now(),
		recentQueries: recentQueries,
		store:         store,
		config:        cfg,
		stopCh:        make(chan struct{}),
	}

	// Start auto-flush if configured
	if cfg.FlushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}

	return m
}

// flushLoop periodically flushes metrics to storage.
func (m *QueryMetrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record captures metrics from one served search.
// This method is thread-safe and non-blocking.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	key := StatKey{Endpoint: event.Endpoint, SearchType: event.SearchType}
	m.requestCounts[key]++
	m.totalQueries++

	// Latency histograms are per endpoint: an articles combined search and
	// a categories lookup have very different budgets, mixing them hides
	// both.
	bucket := LatencyToBucket(event.Latency)
	if m.latencies[event.Endpoint] == nil {
		m.latencies[event.Endpoint] = make(map[LatencyBucket]int64)
	}
	m.latencies[event.Endpoint][bucket]++

	if event.IsZeroResult() {
		m.zeroResults.Add(ZeroResultQuery{
			Endpoint: event.Endpoint,
			Query:    event.Query,
			Time:     event.Timestamp,
		})
		m.zeroResultCount++
	}

	// Term and repeat mining only applies to article free text.
	if !event.hasFreeText() {
		return
	}

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	queryHash := hashQuery(event.Query)
	if _, exists := m.recentQueries.Get(queryHash); exists {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(queryHash, struct{}{})
}

// hashQuery creates a normalized hash of the query for repetition detection.
func hashQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:16]) // Use first 16 bytes for shorter key
}

// Snapshot returns current metrics for reporting.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[StatKey]int64, len(m.requestCounts))
	for k, v := range m.requestCounts {
		counts[k] = v
	}

	// Get top terms sorted by count
	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	for i := 0; i < len(topTerms); i++ {
		for j := i + 1; j < len(topTerms); j++ {
			if topTerms[j].Count > topTerms[i].Count {
				topTerms[i], topTerms[j] = topTerms[j], topTerms[i]
			}
		}
	}

	latencies := make(map[Endpoint]map[LatencyBucket]int64, len(m.latencies))
	for endpoint, hist := range m.latencies {
		cp := make(map[LatencyBucket]int64, len(hist))
		for bucket, v := range hist {
			cp[bucket] = v
		}
		latencies[endpoint] = cp
	}

	var exactRepeatRate float64
	if m.totalQueries > 0 {
		exactRepeatRate = float64(m.exactRepeatCount) / float64(m.totalQueries)
	}

	return &QueryMetricsSnapshot{
		RequestCounts:       counts,
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		Since:               m.startTime,
		ExactRepeatCount:    m.exactRepeatCount,
		ExactRepeatRate:     exactRepeatRate,
		UniqueQueryCount:    int64(m.recentQueries.Len()),
	}
}

// Flush persists in-memory metrics to the store.
// Safe to call even if no store is configured.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	snapshot := m.Snapshot()

	today := time.Now().Format("2006-01-02")

	if err := m.store.SaveRequestCounts(today, snapshot.RequestCounts); err != nil {
		return err
	}

	termCounts := make(map[string]int64)
	for _, tc := range snapshot.TopTerms {
		termCounts[tc.Term] = tc.Count
	}
	if err := m.store.UpsertTermCounts(termCounts); err != nil {
		return err
	}

	if err := m.store.SaveLatencyCounts(today, snapshot.LatencyDistribution); err != nil {
		return err
	}

	return nil
}

// Close flushes and releases resources.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}

	return m.Flush()
}
