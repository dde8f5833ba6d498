package telemetry

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	db, err := Open(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func TestSQLiteMetricsStore_SaveRequestCounts(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	counts := map[StatKey]int64{
		{EndpointArticles, SearchTypeText}:     10,
		{EndpointArticles, SearchTypeCombined}: 5,
		{EndpointTopics, SearchTypeNone}:       3,
	}

	err = store.SaveRequestCounts("2026-01-06", counts)
	require.NoError(t, err)

	result, err := store.GetRequestCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)

	assert.Equal(t, int64(10), result[StatKey{EndpointArticles, SearchTypeText}])
	assert.Equal(t, int64(5), result[StatKey{EndpointArticles, SearchTypeCombined}])
	assert.Equal(t, int64(3), result[StatKey{EndpointTopics, SearchTypeNone}])
}

func TestSQLiteMetricsStore_SaveRequestCounts_Incremental(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	key := StatKey{EndpointArticles, SearchTypeSemantic}

	err = store.SaveRequestCounts("2026-01-06", map[StatKey]int64{key: 10})
	require.NoError(t, err)

	err = store.SaveRequestCounts("2026-01-06", map[StatKey]int64{key: 5})
	require.NoError(t, err)

	result, err := store.GetRequestCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)

	assert.Equal(t, int64(15), result[key])
}

func TestSQLiteMetricsStore_SearchTypesDoNotCollide(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	err = store.SaveRequestCounts("2026-01-06", map[StatKey]int64{
		{EndpointArticles, SearchTypeText}:     7,
		{EndpointArticles, SearchTypeSemantic}: 2,
	})
	require.NoError(t, err)

	result, err := store.GetRequestCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)

	assert.Equal(t, int64(7), result[StatKey{EndpointArticles, SearchTypeText}])
	assert.Equal(t, int64(2), result[StatKey{EndpointArticles, SearchTypeSemantic}])
}

func TestSQLiteMetricsStore_UpsertTermCounts(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	terms := map[string]int64{
		"climate":  10,
		"election": 5,
		"energy":   3,
	}

	err = store.UpsertTermCounts(terms)
	require.NoError(t, err)

	result, err := store.GetTopTerms(10)
	require.NoError(t, err)

	assert.Len(t, result, 3)
	assert.Equal(t, "climate", result[0].Term)
	assert.Equal(t, int64(10), result[0].Count)
}

func TestSQLiteMetricsStore_UpsertTermCounts_Incremental(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	err = store.UpsertTermCounts(map[string]int64{"climate": 10})
	require.NoError(t, err)

	err = store.UpsertTermCounts(map[string]int64{"climate": 5})
	require.NoError(t, err)

	result, err := store.GetTopTerms(1)
	require.NoError(t, err)

	assert.Equal(t, int64(15), result[0].Count)
}

func TestSQLiteMetricsStore_GetTopTerms_Limit(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	terms := map[string]int64{
		"a": 1, "b": 2, "c": 3, "d": 4, "e": 5,
	}
	err = store.UpsertTermCounts(terms)
	require.NoError(t, err)

	result, err := store.GetTopTerms(3)
	require.NoError(t, err)

	assert.Len(t, result, 3)
	// Should be sorted by count descending
	assert.Equal(t, "e", result[0].Term)
	assert.Equal(t, "d", result[1].Term)
	assert.Equal(t, "c", result[2].Term)
}

func TestSQLiteMetricsStore_ZeroResultQueries(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	now := time.Now()

	err = store.AddZeroResultQuery(EndpointArticles, "articles about nothing", now)
	require.NoError(t, err)

	err = store.AddZeroResultQuery(EndpointTopics, "unindexed topic", now.Add(time.Minute))
	require.NoError(t, err)

	result, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)

	assert.Len(t, result, 2)
	// Should be most recent first
	assert.Equal(t, "unindexed topic", result[0].Query)
	assert.Equal(t, EndpointTopics, result[0].Endpoint)
	assert.Equal(t, "articles about nothing", result[1].Query)
	assert.Equal(t, EndpointArticles, result[1].Endpoint)
}

func TestSQLiteMetricsStore_ZeroResultQueries_CircularBuffer(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	now := time.Now()

	// Add 105 queries - should trim to 100
	for i := 0; i < 105; i++ {
		err = store.AddZeroResultQuery(EndpointArticles, "query"+string(rune('A'+i%26)), now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	result, err := store.GetZeroResultQueries(200) // Ask for more than exists
	require.NoError(t, err)

	assert.Len(t, result, 100)
}

func TestSQLiteMetricsStore_LatencyCounts(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	counts := map[Endpoint]map[LatencyBucket]int64{
		EndpointArticles: {
			BucketLt25:   100,
			BucketLt100:  50,
			BucketLt1000: 10,
		},
		EndpointCategories: {
			BucketLt25: 40,
		},
	}

	err = store.SaveLatencyCounts("2026-01-06", counts)
	require.NoError(t, err)

	result, err := store.GetLatencyCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)

	assert.Equal(t, int64(100), result[EndpointArticles][BucketLt25])
	assert.Equal(t, int64(50), result[EndpointArticles][BucketLt100])
	assert.Equal(t, int64(10), result[EndpointArticles][BucketLt1000])
	assert.Equal(t, int64(40), result[EndpointCategories][BucketLt25])
}

func TestSQLiteMetricsStore_LatencyCounts_Incremental(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	err = store.SaveLatencyCounts("2026-01-06", map[Endpoint]map[LatencyBucket]int64{
		EndpointArticles: {BucketLt25: 10},
	})
	require.NoError(t, err)

	err = store.SaveLatencyCounts("2026-01-06", map[Endpoint]map[LatencyBucket]int64{
		EndpointArticles: {BucketLt25: 5},
	})
	require.NoError(t, err)

	result, err := store.GetLatencyCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)

	assert.Equal(t, int64(15), result[EndpointArticles][BucketLt25])
}

func TestSQLiteMetricsStore_DateRange(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	key := StatKey{EndpointArticles, SearchTypeSemantic}

	err = store.SaveRequestCounts("2026-01-05", map[StatKey]int64{key: 10})
	require.NoError(t, err)

	err = store.SaveRequestCounts("2026-01-06", map[StatKey]int64{key: 20})
	require.NoError(t, err)

	err = store.SaveRequestCounts("2026-01-07", map[StatKey]int64{key: 30})
	require.NoError(t, err)

	// Query range
	result, err := store.GetRequestCounts("2026-01-05", "2026-01-06")
	require.NoError(t, err)

	assert.Equal(t, int64(30), result[key]) // 10 + 20
}

func TestNewSQLiteMetricsStore_NilDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(nil)
	assert.Error(t, err)
}

func TestSQLiteMetricsStore_EmptyTerms(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)

	// Empty map should be no-op
	err = store.UpsertTermCounts(map[string]int64{})
	require.NoError(t, err)
}
