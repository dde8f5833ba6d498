// Package resultmapper decodes backend hit documents into
// the domain entities and then narrowing them into the outbound DTOs,
// applying the null-suppression and return_attributes projection
// rules along the way. Defensive JSON extraction (missing groups
// or leaves default to absent rather than erroring) follows the style of
// the pack's own Elasticsearch response parsers, which decode into
// anonymous structs and tolerate absent fields rather than demanding a
// strict schema.
package resultmapper

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/aman-news/searchcore/internal/apperrors"
	"github.com/aman-news/searchcore/internal/domain"
	"github.com/aman-news/searchcore/internal/store"
)

// articleDoc mirrors the articles index document shape: three
// top-level groups, each field defaulting to its Go zero value when the
// backend omitted it (either because it was never written, or because a
// source_includes projection excluded it).
type articleDoc struct {
	Article struct {
		URL         string     `json:"url"`
		Source      string     `json:"source"`
		PublishDate *time.Time `json:"publish_date"`
		Image       string     `json:"image"`
		Author      []string   `json:"author"`
		Title       []string   `json:"title"`
		Paragraphs  []string   `json:"paragraphs"`
		Categories  struct {
			IDs   []string `json:"ids"`
			Names []string `json:"names"`
		} `json:"categories"`
	} `json:"article"`
	Analyzer struct {
		CategoryIDs []string  `json:"category_ids"`
		Embeddings  []float32 `json:"embeddings"`
		Entities    []string  `json:"entities"`
	} `json:"analyzer"`
	Topics struct {
		TopicIDs   []string `json:"topic_ids"`
		TopicNames []string `json:"topic_names"`
	} `json:"topics"`
}

// MapArticleHit decodes one backend hit into a domain.Article.
// A hit with no id is a StoreContractError; everything else in the
// document is read defensively.
func MapArticleHit(h store.Hit) (domain.Article, error) {
	if h.ID == "" {
		return domain.Article{}, apperrors.StoreContract("hit missing _id", nil)
	}

	var doc articleDoc
	if len(h.Source) > 0 {
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return domain.Article{}, apperrors.StoreContract("decoding article hit source", err)
		}
	}

	a := domain.Article{
		ID:         h.ID,
		URL:        doc.Article.URL,
		Source:     doc.Article.Source,
		Image:      doc.Article.Image,
		Author:     doc.Article.Author,
		Title:      doc.Article.Title,
		Paragraphs: doc.Article.Paragraphs,
		Embeddings: doc.Analyzer.Embeddings,
		Entities:   doc.Analyzer.Entities,
	}
	if doc.Article.PublishDate != nil {
		a.PublishDate = *doc.Article.PublishDate
		a.HasPublishDate = true
	}

	a.Categories = zipCategories(doc.Article.Categories.IDs, doc.Article.Categories.Names)
	a.AnalyzedCategories = analyzedSubset(a.Categories, doc.Analyzer.CategoryIDs)
	a.Topics = zipTopics(doc.Topics.TopicIDs, doc.Topics.TopicNames)

	return a, nil
}

// zipCategories pairs article.categories.ids with
// article.categories.names. If the lists are of mismatched length, pairs
// are formed up to the
// shorter length; this should not happen against a well-formed document but
// is not itself a contract violation worth failing the request over.
func zipCategories(ids, names []string) []domain.Category {
	if len(ids) == 0 {
		return nil
	}
	n := len(ids)
	if len(names) < n {
		n = len(names)
	}
	out := make([]domain.Category, n)
	for i := 0; i < n; i++ {
		out[i] = domain.Category{ID: ids[i], Name: names[i]}
	}
	return out
}

// analyzedSubset derives analyzed_categories as the subset of categories
// whose id is in analyzerCategoryIDs. Absent when either side is
// absent.
func analyzedSubset(categories []domain.Category, analyzerCategoryIDs []string) []domain.Category {
	if len(categories) == 0 || len(analyzerCategoryIDs) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(analyzerCategoryIDs))
	for _, id := range analyzerCategoryIDs {
		allowed[id] = true
	}
	var out []domain.Category
	for _, c := range categories {
		if allowed[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// zipTopics pairs topics.topic_ids with topics.topic_names; absent
// if either side is absent or both lists are empty.
func zipTopics(ids, names []string) []domain.ArticleTopic {
	if len(ids) == 0 || len(names) == 0 {
		return nil
	}
	n := len(ids)
	if len(names) < n {
		n = len(names)
	}
	out := make([]domain.ArticleTopic, n)
	for i := 0; i < n; i++ {
		out[i] = domain.ArticleTopic{ID: ids[i], TopicName: names[i]}
	}
	return out
}

// joinLines implements the author/title join-law: a stored multi-value
// list is exposed as a single string joined by "\n".
func joinLines(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return strings.Join(ss, "\n")
}

// articleParagraphPreview truncates paragraphs to the first three entries
// on the reader-facing DTO path.
func articleParagraphPreview(paragraphs []string) []string {
	if len(paragraphs) <= 3 {
		return paragraphs
	}
	return paragraphs[:3]
}
