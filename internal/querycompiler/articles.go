// Package querycompiler turns a validated query object into the
// backend-agnostic store.Descriptor the document store executes.
// Query trees are built as plain map[string]interface{} bool queries;
// the shapes are small enough that a typed query-builder would add more
// ceremony than safety.
package querycompiler

import (
	"github.com/aman-news/searchcore/internal/projection"
	"github.com/aman-news/searchcore/internal/query"
	"github.com/aman-news/searchcore/internal/store"
)

// knnNumCandidates and knnK are the fixed kNN parameters.
const (
	knnNumCandidates = 50
	knnK             = 10
)

// CompileArticleLexical builds the lexical Descriptor for an ArticleQuery.
func CompileArticleLexical(q *query.ArticleQuery, schema *projection.EntitySchema) store.Descriptor {
	should := articleShouldClauses(q)
	must := articleMustClauses(q)
	filter := articleFilterClauses(q)

	minShouldMatch := 0
	if len(should) > 0 {
		minShouldMatch = 1
	}

	body := map[string]interface{}{
		"bool": boolBody(must, should, filter, minShouldMatch),
	}

	d := store.Descriptor{
		Kind:          store.KindLexical,
		Body:          body,
		Sort:          articleSort(q),
		TrackScores:   true,
		From:          q.Page * q.PageSize,
		Size:          q.PageSize,
		SourceExclude: []string{"analyzer.embeddings"},
	}
	if q.HasReturnAttrs {
		d.SourceInclude = schema.SourceIncludes(q.ReturnAttributes)
	}
	return d
}

// CompileArticleKNN builds the kNN Descriptor for an ArticleQuery, given a
// pre-computed query vector (encode() happens in the search service).
func CompileArticleKNN(q *query.ArticleQuery, vector []float32, schema *projection.EntitySchema) store.Descriptor {
	filter := articleFilterClauses(q)
	// All filter-like predicates, including the otherwise must/should
	// fields, are pre-filters on the kNN side; none contribute to score.
	for _, c := range articleMustClauses(q) {
		filter = append(filter, c)
	}

	knnFilter := map[string]interface{}{
		"bool": boolBody(filter, nil, nil, 0),
	}

	d := store.Descriptor{
		Kind:          store.KindKNN,
		VectorField:   "analyzer.embeddings",
		QueryVector:   vector,
		NumCandidates: knnNumCandidates,
		K:             knnK,
		KNNFilter:     knnFilter,
		SourceExclude: []string{"analyzer.embeddings"},
	}
	if q.HasReturnAttrs {
		d.SourceInclude = schema.SourceIncludes(q.ReturnAttributes)
	}
	return d
}

func articleShouldClauses(q *query.ArticleQuery) []map[string]interface{} {
	if isBlank(q.Query) {
		return nil
	}
	return []map[string]interface{}{
		{"match": map[string]interface{}{"article.paragraphs": q.Query}},
		{"match": map[string]interface{}{"article.title": map[string]interface{}{"query": q.Query, "boost": 2}}},
	}
}

func articleMustClauses(q *query.ArticleQuery) []map[string]interface{} {
	var must []map[string]interface{}
	if !isBlank(q.SourceFilter) {
		must = append(must, map[string]interface{}{"match": map[string]interface{}{"article.source": q.SourceFilter}})
	}
	if !isBlank(q.AuthorFilter) {
		must = append(must, map[string]interface{}{"match": map[string]interface{}{"article.author": q.AuthorFilter}})
	}
	if !isBlank(q.CategoryNames) {
		must = append(must, map[string]interface{}{"match": map[string]interface{}{"article.categories.names": q.CategoryNames}})
	}
	if !isBlank(q.TopicNamesFilter) {
		must = append(must, map[string]interface{}{"match": map[string]interface{}{"topics.topic_names": q.TopicNamesFilter}})
	}
	return must
}

func articleFilterClauses(q *query.ArticleQuery) []map[string]interface{} {
	filter := []map[string]interface{}{
		{"range": map[string]interface{}{"article.publish_date": map[string]interface{}{
			"gte": q.DateMin.UTC().Format(rfc3339),
			"lte": q.DateMax.UTC().Format(rfc3339),
		}}},
	}
	if len(q.IDs) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"_id": toAny(q.IDs)}})
	}
	if len(q.CategoryIDs) > 0 {
		filter = append(filter, map[string]interface{}{"match": map[string]interface{}{"article.categories.ids": q.CategoryIDs}})
	}
	if len(q.TopicIDs) > 0 {
		filter = append(filter, map[string]interface{}{"terms": map[string]interface{}{"topics.topic_ids": toAny(q.TopicIDs)}})
	}
	return filter
}

func articleSort(q *query.ArticleQuery) []map[string]interface{} {
	var primary map[string]interface{}
	if q.HasSort {
		primary = map[string]interface{}{"article.publish_date": string(q.SortDir)}
	} else {
		primary = map[string]interface{}{"article.publish_date": "desc"}
	}
	return []map[string]interface{}{primary, {"_score": "desc"}}
}
