// Package projection computes the projection schema: at startup, reflect over the outbound
// DTOs to compute each entity's attribute set, then pair that set with two
// hand-authored tables (request_path -> backend_path(s), and
// request_sort_key -> backend_sort_key). The invariant enforced at init is
// that the request_path table's domain equals the reflected attribute set;
// a mismatch is a programming error and panics at process start rather
// than surfacing as a runtime 500 later. The sort table is not checked.
package projection

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/aman-news/searchcore/internal/domain"
)

// BackendPaths is the projection target of one request attribute: either a
// single backend path or a list of them (e.g. "categories" requires both
// article.categories and analyzer.category_ids to be fetched).
type BackendPaths []string

// EntitySchema is the computed+authored schema for one outbound entity.
type EntitySchema struct {
	attrPaths     map[string]bool
	requestToBack map[string]BackendPaths
	sortToBack    map[string]string
}

// HasAttr reports whether path is a valid return_attributes entry.
func (s *EntitySchema) HasAttr(path string) bool {
	return s.attrPaths[path]
}

// BackendPathsFor returns the backend paths a request attribute expands to.
func (s *EntitySchema) BackendPathsFor(path string) (BackendPaths, bool) {
	bp, ok := s.requestToBack[path]
	return bp, ok
}

// SourceIncludes expands a return_attributes list into the flat list of
// backend _source paths to request, always true for the id sentinel since
// it is present on every hit regardless of projection.
func (s *EntitySchema) SourceIncludes(requested []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range requested {
		for _, bp := range s.requestToBack[r] {
			if bp == idSentinel {
				continue
			}
			if !seen[bp] {
				seen[bp] = true
				out = append(out, bp)
			}
		}
	}
	sort.Strings(out)
	return out
}

// BackendSortKey maps a validated sort_field to its backend sort key.
func (s *EntitySchema) BackendSortKey(field string) (string, bool) {
	k, ok := s.sortToBack[field]
	return k, ok
}

// idSentinel is the distinguished backend path standing in for the id key:
// it is always present on a hit regardless of the projection mask, so
// mapping it through source_includes would be a no-op.
const idSentinel = "_id"

// Schema bundles the four entity schemas computed and validated at startup.
type Schema struct {
	Articles     *EntitySchema
	Topics       *EntitySchema
	TopicBatches *EntitySchema
	Categories   *EntitySchema
}

// Build reflects the DTOs, pairs them with the authored backend tables, and
// panics if a request-path table's domain diverges from the reflected
// attribute set.
// Called once at process start.
func Build() *Schema {
	s := &Schema{
		Articles:     buildArticleSchema(),
		Topics:       buildTopicSchema(),
		TopicBatches: buildTopicBatchSchema(),
		Categories:   buildCategorySchema(),
	}
	return s
}

// attrPathsOf reflects the top-level json tags of a DTO struct into a set
// of leaf paths. Struct- and slice-of-struct-valued fields (e.g.
// "categories", "topics") are treated as opaque leaves: clients request
// them wholesale, never a sub-field.
func attrPathsOf(v interface{}) map[string]bool {
	t := reflect.TypeOf(v)
	out := map[string]bool{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		out[name] = true
	}
	return out
}

// newEntitySchema validates that reqToBack's domain equals attrPaths, then
// assembles the schema; sortToBack is stored as given, unchecked.
// It panics on mismatch at process start.
func newEntitySchema(entity string, attrPaths map[string]bool, reqToBack map[string]BackendPaths, sortToBack map[string]string) *EntitySchema {
	// id is always a valid request attribute via the sentinel, even though
	// it is not itself an omitempty leaf in the DTO (it has no ",omitempty"
	// tag, since it is mandatory) -- still part of attrPaths via reflection.
	for path := range reqToBack {
		if !attrPaths[path] {
			panic(fmt.Sprintf("projection: %s: backend table has path %q not in reflected attr set", entity, path))
		}
	}
	for path := range attrPaths {
		if _, ok := reqToBack[path]; !ok {
			panic(fmt.Sprintf("projection: %s: reflected attr %q has no backend mapping", entity, path))
		}
	}
	return &EntitySchema{attrPaths: attrPaths, requestToBack: reqToBack, sortToBack: sortToBack}
}

func buildArticleSchema() *EntitySchema {
	attrs := attrPathsOf(domain.ArticleResult{})
	back := map[string]BackendPaths{
		"id":                  {idSentinel},
		"url":                 {"article.url"},
		"source":              {"article.source"},
		"publish_date":        {"article.publish_date"},
		"image":               {"article.image"},
		"author":              {"article.author"},
		"title":               {"article.title"},
		"paragraphs":          {"article.paragraphs"},
		"categories":          {"article.categories.ids", "article.categories.names"},
		"analyzed_categories": {"article.categories.ids", "article.categories.names", "analyzer.category_ids"},
		"entities":            {"analyzer.entities"},
		"topics":              {"topics.topic_ids", "topics.topic_names"},
	}
	sortable := map[string]string{
		"publish_date": "article.publish_date",
	}
	return newEntitySchema("articles", attrs, back, sortable)
}

func buildTopicSchema() *EntitySchema {
	attrs := attrPathsOf(domain.TopicResult{})
	back := map[string]BackendPaths{
		"id":                      {idSentinel},
		"batch_id":                {"batch_id"},
		"batch_query":             {"batch_query"},
		"create_time":             {"create_time"},
		"topic":                   {"topic"},
		"count":                   {"count"},
		"representative_articles": {"representative_articles"},
	}
	sortable := map[string]string{
		"batch_query.publish_date.end": "batch_query.publish_date.end",
		"count":                        "count",
	}
	return newEntitySchema("topics", attrs, back, sortable)
}

func buildTopicBatchSchema() *EntitySchema {
	attrs := attrPathsOf(domain.TopicBatchResult{})
	back := map[string]BackendPaths{
		"id":            {idSentinel},
		"query":         {"query"},
		"article_count": {"article_count"},
		"topic_count":   {"topic_count"},
		"create_time":   {"create_time"},
	}
	sortable := map[string]string{
		"query.publish_date.end": "query.publish_date.end",
		"article_count":          "article_count",
	}
	return newEntitySchema("topic_batches", attrs, back, sortable)
}

func buildCategorySchema() *EntitySchema {
	attrs := attrPathsOf(domain.CategoryResult{})
	back := map[string]BackendPaths{
		"id":   {idSentinel},
		"name": {"name"},
	}
	return newEntitySchema("categories", attrs, back, map[string]string{})
}
