package query

import (
	"fmt"
	"time"

	"github.com/aman-news/searchcore/internal/apperrors"
	"github.com/aman-news/searchcore/internal/projection"
)

// Sortable-field allow-lists.
// Articles expose only publish_date; earlier revisions exposed more but
// the final revision narrows this deliberately.
var (
	articleSortable    = map[string]bool{"publish_date": true}
	topicSortable      = map[string]bool{"batch_query.publish_date.end": true, "count": true}
	topicBatchSortable = map[string]bool{"query.publish_date.end": true, "article_count": true}
	categorySortable   = map[string]bool{}
)

const (
	articlePageSizeMax  = 30
	categoryPageSizeMax = 50
	topicPageSizeMax    = 30
)

// ValidateArticleQuery enforces the boundary invariants for an ArticleQuery.
func ValidateArticleQuery(q *ArticleQuery, schema *projection.Schema) error {
	var fields []apperrors.FieldError

	switch q.SearchType {
	case SearchText, SearchSemantic, SearchCombined:
	case "":
		q.SearchType = SearchText
	default:
		fields = append(fields, apperrors.FieldError{
			Msg: fmt.Sprintf("search_type must be one of text, semantic, combined, got %q", q.SearchType),
			Loc: "search_type",
		})
	}

	if q.SearchType == SearchSemantic || q.SearchType == SearchCombined {
		if isEmptyOrBlank(q.Query) {
			fields = append(fields, apperrors.FieldError{
				Msg: "query must be non-empty for semantic or combined search",
				Loc: "query",
			})
		}
		if q.Page != 0 {
			fields = append(fields, apperrors.FieldError{
				Msg: "'page' must be 0 for 'semantic' or 'combined' search.",
				Loc: "page",
			})
		}
	}

	if q.PageSize < 1 || q.PageSize > articlePageSizeMax {
		fields = append(fields, apperrors.FieldError{
			Msg: fmt.Sprintf("page_size must be in [1,%d]", articlePageSizeMax),
			Loc: "page_size",
		})
	}
	if q.Page < 0 {
		fields = append(fields, apperrors.FieldError{Msg: "page must be >= 0", Loc: "page"})
	}

	if q.HasSort && !articleSortable[q.SortField] {
		fields = append(fields, apperrors.FieldError{
			Msg: fmt.Sprintf("sort_field %q is not sortable for articles", q.SortField),
			Loc: "sort_field",
		})
	}

	if q.HasReturnAttrs {
		for _, a := range q.ReturnAttributes {
			if !schema.Articles.HasAttr(a) {
				fields = append(fields, apperrors.FieldError{
					Msg:   fmt.Sprintf("return_attributes entry %q is not a valid article attribute", a),
					Loc:   "return_attributes",
					Input: a,
				})
			}
		}
	}

	applyDateDefaults(&q.DateMin, &q.DateMax, q.HasDateMin, q.HasDateMax)
	if q.DateMin.After(q.DateMax) {
		fields = append(fields, apperrors.FieldError{Msg: "date_min must be <= date_max", Loc: "date_min"})
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

// ValidateTopicQuery enforces the boundary invariants for a TopicQuery.
func ValidateTopicQuery(q *TopicQuery, schema *projection.Schema) error {
	var fields []apperrors.FieldError

	if q.PageSize < 1 || q.PageSize > topicPageSizeMax {
		fields = append(fields, apperrors.FieldError{
			Msg: fmt.Sprintf("page_size must be in [1,%d]", topicPageSizeMax),
			Loc: "page_size",
		})
	}
	if q.Page < 0 {
		fields = append(fields, apperrors.FieldError{Msg: "page must be >= 0", Loc: "page"})
	}
	if q.HasSort && !topicSortable[q.SortField] {
		fields = append(fields, apperrors.FieldError{
			Msg: fmt.Sprintf("sort_field %q is not sortable for topics", q.SortField),
			Loc: "sort_field",
		})
	}
	if q.HasReturnAttrs {
		for _, a := range q.ReturnAttributes {
			if !schema.Topics.HasAttr(a) {
				fields = append(fields, apperrors.FieldError{
					Msg:   fmt.Sprintf("return_attributes entry %q is not a valid topic attribute", a),
					Loc:   "return_attributes",
					Input: a,
				})
			}
		}
	}
	applyDateDefaults(&q.DateMin, &q.DateMax, q.HasDateMin, q.HasDateMax)
	if q.DateMin.After(q.DateMax) {
		fields = append(fields, apperrors.FieldError{Msg: "date_min must be <= date_max", Loc: "date_min"})
	}
	if q.HasCountMin && q.HasCountMax && q.CountMin > q.CountMax {
		fields = append(fields, apperrors.FieldError{Msg: "count_min must be <= count_max", Loc: "count_min"})
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

// ValidateTopicBatchQuery enforces the boundary invariants for a TopicBatchQuery.
func ValidateTopicBatchQuery(q *TopicBatchQuery, schema *projection.Schema) error {
	var fields []apperrors.FieldError

	if q.PageSize < 1 || q.PageSize > topicPageSizeMax {
		fields = append(fields, apperrors.FieldError{
			Msg: fmt.Sprintf("page_size must be in [1,%d]", topicPageSizeMax),
			Loc: "page_size",
		})
	}
	if q.Page < 0 {
		fields = append(fields, apperrors.FieldError{Msg: "page must be >= 0", Loc: "page"})
	}
	if q.HasSort && !topicBatchSortable[q.SortField] {
		fields = append(fields, apperrors.FieldError{
			Msg: fmt.Sprintf("sort_field %q is not sortable for topic batches", q.SortField),
			Loc: "sort_field",
		})
	}
	if q.HasReturnAttrs {
		for _, a := range q.ReturnAttributes {
			if !schema.TopicBatches.HasAttr(a) {
				fields = append(fields, apperrors.FieldError{
					Msg:   fmt.Sprintf("return_attributes entry %q is not a valid topic-batch attribute", a),
					Loc:   "return_attributes",
					Input: a,
				})
			}
		}
	}
	applyDateDefaults(&q.DateMin, &q.DateMax, q.HasDateMin, q.HasDateMax)
	if q.DateMin.After(q.DateMax) {
		fields = append(fields, apperrors.FieldError{Msg: "date_min must be <= date_max", Loc: "date_min"})
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

// ValidateCategoryQuery enforces the boundary invariants for a CategoryQuery.
func ValidateCategoryQuery(q *CategoryQuery, schema *projection.Schema) error {
	var fields []apperrors.FieldError

	if q.PageSize < 1 || q.PageSize > categoryPageSizeMax {
		fields = append(fields, apperrors.FieldError{
			Msg: fmt.Sprintf("page_size must be in [1,%d]", categoryPageSizeMax),
			Loc: "page_size",
		})
	}
	if q.Page < 0 {
		fields = append(fields, apperrors.FieldError{Msg: "page must be >= 0", Loc: "page"})
	}
	if q.HasReturnAttrs {
		for _, a := range q.ReturnAttributes {
			if !schema.Categories.HasAttr(a) {
				fields = append(fields, apperrors.FieldError{
					Msg:   fmt.Sprintf("return_attributes entry %q is not a valid category attribute", a),
					Loc:   "return_attributes",
					Input: a,
				})
			}
		}
	}

	if len(fields) > 0 {
		return apperrors.Validation(fields...)
	}
	return nil
}

func applyDateDefaults(min, max *time.Time, hasMin, hasMax bool) {
	if !hasMin {
		*min = MinDate()
	}
	if !hasMax {
		*max = time.Now().UTC()
	}
}
