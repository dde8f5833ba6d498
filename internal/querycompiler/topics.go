package querycompiler

import (
	"github.com/aman-news/searchcore/internal/projection"
	"github.com/aman-news/searchcore/internal/query"
	"github.com/aman-news/searchcore/internal/store"
)

// CompileTopic builds the lexical-only Descriptor for a TopicQuery.
func CompileTopic(q *query.TopicQuery, schema *projection.EntitySchema) store.Descriptor {
	var must []map[string]interface{}
	if !isBlank(q.Topic) {
		must = append(must, map[string]interface{}{"match": map[string]interface{}{"topic": q.Topic}})
	}

	filter := []map[string]interface{}{
		{"range": map[string]interface{}{"batch_query.publish_date.start": map[string]interface{}{
			"gte": q.DateMin.UTC().Format(rfc3339),
			"lte": q.DateMax.UTC().Format(rfc3339),
		}}},
		{"range": map[string]interface{}{"batch_query.publish_date.end": map[string]interface{}{
			"gte": q.DateMin.UTC().Format(rfc3339),
			"lte": q.DateMax.UTC().Format(rfc3339),
		}}},
	}
	if len(q.IDs) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"_id": toAny(q.IDs)}})
	}
	if len(q.BatchIDs) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"batch_id": toAny(q.BatchIDs)}})
	}
	if q.HasCountMin || q.HasCountMax {
		bounds := map[string]interface{}{}
		if q.HasCountMin {
			bounds["gte"] = q.CountMin
		}
		if q.HasCountMax {
			bounds["lte"] = q.CountMax
		}
		filter = append(filter, map[string]interface{}{"range": map[string]interface{}{"count": bounds}})
	}

	body := map[string]interface{}{"bool": boolBody(must, nil, filter, 0)}

	d := store.Descriptor{
		Kind:        store.KindLexical,
		Body:        body,
		Sort:        topicSort(q),
		TrackScores: true,
		From:        q.Page * q.PageSize,
		Size:        q.PageSize,
	}
	if q.HasReturnAttrs {
		d.SourceInclude = schema.SourceIncludes(q.ReturnAttributes)
	}
	return d
}

// topicSort builds the sort block: the user's sort replaces the whole
// default ordering, it is never merged with it. Appending the default
// secondary behind a user sort on the same field would emit a
// self-contradicting duplicate clause.
func topicSort(q *query.TopicQuery) []map[string]interface{} {
	if q.HasSort {
		return []map[string]interface{}{
			{q.SortField: string(q.SortDir)},
			{"_score": "desc"},
		}
	}
	return []map[string]interface{}{
		{"batch_query.publish_date.end": "desc"},
		{"count": "desc"},
		{"_score": "desc"},
	}
}

// CompileTopicBatch builds the Descriptor for a TopicBatchQuery.
func CompileTopicBatch(q *query.TopicBatchQuery, schema *projection.EntitySchema) store.Descriptor {
	filter := []map[string]interface{}{
		{"range": map[string]interface{}{"query.publish_date.start": map[string]interface{}{
			"gte": q.DateMin.UTC().Format(rfc3339),
			"lte": q.DateMax.UTC().Format(rfc3339),
		}}},
		{"range": map[string]interface{}{"query.publish_date.end": map[string]interface{}{
			"gte": q.DateMin.UTC().Format(rfc3339),
			"lte": q.DateMax.UTC().Format(rfc3339),
		}}},
	}
	if len(q.IDs) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"_id": toAny(q.IDs)}})
	}

	body := map[string]interface{}{"bool": boolBody(nil, nil, filter, 0)}

	d := store.Descriptor{
		Kind:        store.KindLexical,
		Body:        body,
		Sort:        topicBatchSort(q),
		TrackScores: true,
		From:        q.Page * q.PageSize,
		Size:        q.PageSize,
	}
	if q.HasReturnAttrs {
		d.SourceInclude = schema.SourceIncludes(q.ReturnAttributes)
	}
	return d
}

// topicBatchSort follows the same replace-not-extend rule as topicSort.
func topicBatchSort(q *query.TopicBatchQuery) []map[string]interface{} {
	if q.HasSort {
		return []map[string]interface{}{
			{q.SortField: string(q.SortDir)},
			{"_score": "desc"},
		}
	}
	return []map[string]interface{}{
		{"query.publish_date.end": "desc"},
		{"article_count": "desc"},
		{"_score": "desc"},
	}
}

// CompileCategory builds the Descriptor for a CategoryQuery: unsorted
// beyond score, optional `match name` should-clause.
func CompileCategory(q *query.CategoryQuery, schema *projection.EntitySchema) store.Descriptor {
	var should []map[string]interface{}
	if !isBlank(q.Name) {
		should = append(should, map[string]interface{}{"match": map[string]interface{}{"name": q.Name}})
	}
	minShouldMatch := 0
	if len(should) > 0 {
		minShouldMatch = 1
	}

	var filter []map[string]interface{}
	if len(q.IDs) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"_id": toAny(q.IDs)}})
	}

	body := map[string]interface{}{"bool": boolBody(nil, should, filter, minShouldMatch)}

	d := store.Descriptor{
		Kind:        store.KindLexical,
		Body:        body,
		TrackScores: true,
		From:        q.Page * q.PageSize,
		Size:        q.PageSize,
	}
	if q.HasReturnAttrs {
		d.SourceInclude = schema.SourceIncludes(q.ReturnAttributes)
	}
	return d
}
