package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteMetricsStore implements QueryMetricsStore using SQLite.
type SQLiteMetricsStore struct {
	db *sql.DB
}

// NewSQLiteMetricsStore creates a new SQLite-backed metrics store.
// It expects the telemetry tables to already exist (see InitTelemetrySchema).
func NewSQLiteMetricsStore(db *sql.DB) (*SQLiteMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// Open opens (creating if necessary) the telemetry database at path and
// ensures its schema. The driver is pure Go, so the binary stays CGO-free.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}
	if err := InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// InitTelemetrySchema creates the telemetry tables if they don't exist.
func InitTelemetrySchema(db *sql.DB) error {
	schema := `
	-- Request counts per endpoint and article search type (aggregated daily)
	CREATE TABLE IF NOT EXISTS request_stats (
		date TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		search_type TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, endpoint, search_type)
	);

	-- Top article-query terms (with frequency count)
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Zero-result queries, labelled by endpoint (ring of the last 100)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint TEXT NOT NULL,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Latency histogram per endpoint (buckets: <25ms, 25-100ms, 100-250ms,
	-- 250ms-1s, >=1s)
	CREATE TABLE IF NOT EXISTS request_latency_stats (
		date TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, endpoint, bucket)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// SaveRequestCounts upserts daily (endpoint, search_type) counts.
func (s *SQLiteMetricsStore) SaveRequestCounts(date string, counts map[StatKey]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO request_stats (date, endpoint, search_type, count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, endpoint, search_type) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for key, count := range counts {
		if _, err := stmt.Exec(date, string(key.Endpoint), string(key.SearchType), count); err != nil {
			return fmt.Errorf("insert request count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetRequestCounts retrieves counts for a date range.
func (s *SQLiteMetricsStore) GetRequestCounts(from, to string) (map[StatKey]int64, error) {
	rows, err := s.db.Query(`
		SELECT endpoint, search_type, SUM(count) as total
		FROM request_stats
		WHERE date >= ? AND date <= ?
		GROUP BY endpoint, search_type
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query request counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[StatKey]int64)
	for rows.Next() {
		var endpoint, searchType string
		var count int64
		if err := rows.Scan(&endpoint, &searchType, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[StatKey{Endpoint: Endpoint(endpoint), SearchType: SearchType(searchType)}] = count
	}
	return counts, rows.Err()
}

// UpsertTermCounts updates term frequency counts.
func (s *SQLiteMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for term, count := range terms {
		if _, err := stmt.Exec(term, count); err != nil {
			return fmt.Errorf("upsert term count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetTopTerms retrieves the top N terms by frequency.
func (s *SQLiteMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// AddZeroResultQuery records a query that found nothing.
// Automatically maintains a maximum of 100 entries (FIFO).
func (s *SQLiteMetricsStore) AddZeroResultQuery(endpoint Endpoint, query string, timestamp time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO zero_result_queries (endpoint, query, timestamp)
		VALUES (?, ?, ?)
	`, string(endpoint), query, timestamp)
	if err != nil {
		return fmt.Errorf("insert zero-result query: %w", err)
	}

	// Trim to 100 entries (delete oldest)
	_, err = s.db.Exec(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM zero_result_queries
			ORDER BY id DESC
			LIMIT 100
		)
	`)
	if err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}

	return nil
}

// GetZeroResultQueries retrieves recent zero-result queries.
func (s *SQLiteMetricsStore) GetZeroResultQueries(limit int) ([]ZeroResultQuery, error) {
	rows, err := s.db.Query(`
		SELECT endpoint, query, timestamp
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []ZeroResultQuery
	for rows.Next() {
		var q ZeroResultQuery
		var endpoint string
		if err := rows.Scan(&endpoint, &q.Query, &q.Time); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		q.Endpoint = Endpoint(endpoint)
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// SaveLatencyCounts upserts daily per-endpoint latency histograms.
func (s *SQLiteMetricsStore) SaveLatencyCounts(date string, counts map[Endpoint]map[LatencyBucket]int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO request_latency_stats (date, endpoint, bucket, count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, endpoint, bucket) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for endpoint, hist := range counts {
		for bucket, count := range hist {
			if _, err := stmt.Exec(date, string(endpoint), string(bucket), count); err != nil {
				return fmt.Errorf("insert latency count: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetLatencyCounts retrieves per-endpoint latency distributions for a date
// range.
func (s *SQLiteMetricsStore) GetLatencyCounts(from, to string) (map[Endpoint]map[LatencyBucket]int64, error) {
	rows, err := s.db.Query(`
		SELECT endpoint, bucket, SUM(count) as total
		FROM request_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY endpoint, bucket
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Endpoint]map[LatencyBucket]int64)
	for rows.Next() {
		var endpoint, bucket string
		var count int64
		if err := rows.Scan(&endpoint, &bucket, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ep := Endpoint(endpoint)
		if counts[ep] == nil {
			counts[ep] = make(map[LatencyBucket]int64)
		}
		counts[ep][LatencyBucket(bucket)] = count
	}
	return counts, rows.Err()
}

// Close releases resources. The underlying db is owned by the caller and
// is not closed here.
func (s *SQLiteMetricsStore) Close() error {
	return nil
}
