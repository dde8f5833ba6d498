// Package query holds the inbound query objects parsed from HTTP request
// parameters and the validation invariants
// enforced at the boundary, before internal/querycompiler ever sees
// them.
package query

import (
	"strings"
	"time"
)

// SearchType selects the article search strategy.
type SearchType string

const (
	SearchText     SearchType = "text"
	SearchSemantic SearchType = "semantic"
	SearchCombined SearchType = "combined"
)

// SortDir is the direction of a sort_field.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// minDate is the default lower date bound when the caller omits
// date_min; an omitted date_max defaults to the current time.
var minDate = time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)

// MinDate returns the default lower date bound, 1000-01-01T00:00:00Z.
func MinDate() time.Time { return minDate }

// ArticleQuery is the inbound query object for the articles search.
type ArticleQuery struct {
	IDs []string

	Query string

	SourceFilter     string
	AuthorFilter     string
	CategoryNames    string
	TopicNamesFilter string

	CategoryIDs []string
	TopicIDs    []string

	DateMin    time.Time
	DateMax    time.Time
	HasDateMin bool
	HasDateMax bool

	Page     int
	PageSize int

	SortField string
	SortDir   SortDir
	HasSort   bool

	SearchType SearchType

	ReturnAttributes []string
	HasReturnAttrs   bool
}

// TopicQuery is the inbound query object for topic search.
type TopicQuery struct {
	IDs      []string
	BatchIDs []string

	Topic string

	CountMin    int
	CountMax    int
	HasCountMin bool
	HasCountMax bool

	DateMin    time.Time
	DateMax    time.Time
	HasDateMin bool
	HasDateMax bool

	Page     int
	PageSize int

	SortField string
	SortDir   SortDir
	HasSort   bool

	ReturnAttributes []string
	HasReturnAttrs   bool
}

// TopicBatchQuery is the inbound query object for topic-batch search.
type TopicBatchQuery struct {
	IDs []string

	DateMin    time.Time
	DateMax    time.Time
	HasDateMin bool
	HasDateMax bool

	Page     int
	PageSize int

	SortField string
	SortDir   SortDir
	HasSort   bool

	ReturnAttributes []string
	HasReturnAttrs   bool
}

// CategoryQuery is the inbound query object for category search.
type CategoryQuery struct {
	IDs  []string
	Name string

	Page     int
	PageSize int

	ReturnAttributes []string
	HasReturnAttrs   bool
}

// isEmptyOrBlank reports whether s has no non-whitespace content.
func isEmptyOrBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
