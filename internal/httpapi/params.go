// Package httpapi is the HTTP boundary: it parses query parameters
// into the inbound query objects of internal/query, validates them,
// dispatches to internal/searchservice, and renders the response
// envelopes. Routing and middleware are built on go-chi/chi and
// go-chi/cors.
package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aman-news/searchcore/internal/query"
)

// parseTime parses an RFC3339 query parameter, returning ok=false when
// absent or empty.
func parseTime(v url.Values, key string) (time.Time, bool, error) {
	raw := v.Get(key)
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}

func parseIntDefault(v url.Values, key string, def int) (int, error) {
	raw := v.Get(key)
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func parseOptionalInt(v url.Values, key string) (int, bool, error) {
	raw := v.Get(key)
	if strings.TrimSpace(raw) == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// parseArticleQuery builds an ArticleQuery from request query parameters.
// Array parameters are repeated query params; an absent array means
// unfiltered / return all.
func parseArticleQuery(r *http.Request) (*query.ArticleQuery, error) {
	v := r.URL.Query()
	q := &query.ArticleQuery{
		IDs:              v["ids"],
		Query:            v.Get("query"),
		SourceFilter:     v.Get("source"),
		AuthorFilter:     v.Get("author"),
		CategoryNames:    v.Get("category_names"),
		TopicNamesFilter: v.Get("topic_names"),
		CategoryIDs:      v["category_ids"],
		TopicIDs:         v["topic_ids"],
		ReturnAttributes: v["return_attributes"],
	}
	q.HasReturnAttrs = len(v["return_attributes"]) > 0

	if st := v.Get("search_type"); st != "" {
		q.SearchType = query.SearchType(st)
	} else {
		q.SearchType = query.SearchText
	}

	var err error
	if q.Page, err = parseIntDefault(v, "page", 0); err != nil {
		return nil, err
	}
	if q.PageSize, err = parseIntDefault(v, "page_size", 10); err != nil {
		return nil, err
	}
	if sf := v.Get("sort_field"); sf != "" {
		q.SortField = sf
		q.HasSort = true
		q.SortDir = query.SortDesc
		if sd := v.Get("sort_dir"); sd != "" {
			q.SortDir = query.SortDir(sd)
		}
	}
	if q.DateMin, q.HasDateMin, err = parseTime(v, "date_min"); err != nil {
		return nil, err
	}
	if q.DateMax, q.HasDateMax, err = parseTime(v, "date_max"); err != nil {
		return nil, err
	}
	return q, nil
}

func parseTopicQuery(r *http.Request) (*query.TopicQuery, error) {
	v := r.URL.Query()
	q := &query.TopicQuery{
		IDs:              v["ids"],
		BatchIDs:         v["batch_ids"],
		Topic:            v.Get("topic"),
		ReturnAttributes: v["return_attributes"],
	}
	q.HasReturnAttrs = len(v["return_attributes"]) > 0

	var err error
	if q.Page, err = parseIntDefault(v, "page", 0); err != nil {
		return nil, err
	}
	if q.PageSize, err = parseIntDefault(v, "page_size", 10); err != nil {
		return nil, err
	}
	if q.CountMin, q.HasCountMin, err = parseOptionalInt(v, "count_min"); err != nil {
		return nil, err
	}
	if q.CountMax, q.HasCountMax, err = parseOptionalInt(v, "count_max"); err != nil {
		return nil, err
	}
	if sf := v.Get("sort_field"); sf != "" {
		q.SortField = sf
		q.HasSort = true
		q.SortDir = query.SortDesc
		if sd := v.Get("sort_dir"); sd != "" {
			q.SortDir = query.SortDir(sd)
		}
	}
	if q.DateMin, q.HasDateMin, err = parseTime(v, "date_min"); err != nil {
		return nil, err
	}
	if q.DateMax, q.HasDateMax, err = parseTime(v, "date_max"); err != nil {
		return nil, err
	}
	return q, nil
}

func parseTopicBatchQuery(r *http.Request) (*query.TopicBatchQuery, error) {
	v := r.URL.Query()
	q := &query.TopicBatchQuery{
		IDs:              v["ids"],
		ReturnAttributes: v["return_attributes"],
	}
	q.HasReturnAttrs = len(v["return_attributes"]) > 0

	var err error
	if q.Page, err = parseIntDefault(v, "page", 0); err != nil {
		return nil, err
	}
	if q.PageSize, err = parseIntDefault(v, "page_size", 10); err != nil {
		return nil, err
	}
	if sf := v.Get("sort_field"); sf != "" {
		q.SortField = sf
		q.HasSort = true
		q.SortDir = query.SortDesc
		if sd := v.Get("sort_dir"); sd != "" {
			q.SortDir = query.SortDir(sd)
		}
	}
	if q.DateMin, q.HasDateMin, err = parseTime(v, "date_min"); err != nil {
		return nil, err
	}
	if q.DateMax, q.HasDateMax, err = parseTime(v, "date_max"); err != nil {
		return nil, err
	}
	return q, nil
}

func parseCategoryQuery(r *http.Request) (*query.CategoryQuery, error) {
	v := r.URL.Query()
	q := &query.CategoryQuery{
		IDs:              v["ids"],
		Name:             v.Get("name"),
		ReturnAttributes: v["return_attributes"],
	}
	q.HasReturnAttrs = len(v["return_attributes"]) > 0

	var err error
	if q.Page, err = parseIntDefault(v, "page", 0); err != nil {
		return nil, err
	}
	if q.PageSize, err = parseIntDefault(v, "page_size", 10); err != nil {
		return nil, err
	}
	return q, nil
}
