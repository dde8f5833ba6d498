package domain

import "time"

// The *Result types are the outbound DTOs served by the HTTP surface.
// Every optional field uses `omitempty` (scalars, slices) or a pointer
// (nested objects, and timestamps where the zero value is a legitimate
// value rather than "absent") so that json.Marshal suppresses anything the
// result mapper did not populate. The client sees only fields that were
// populated.
//
// The projection schema reflects over the json tags of these structs once at
// startup to compute each entity's attr_paths set; see internal/projection.

// CategoryResult is both the shape returned by /search/categories and the
// nested shape used inside ArticleResult.Categories /
// ArticleResult.AnalyzedCategories.
type CategoryResult struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ArticleTopicResult labels which topic an article belongs to.
type ArticleTopicResult struct {
	ID        string `json:"id"`
	TopicName string `json:"topic_name,omitempty"`
}

// TopicArticleResult is the Article projection embedded in a TopicResult's
// RepresentativeArticles.
type TopicArticleResult struct {
	ID          string     `json:"id"`
	URL         string     `json:"url,omitempty"`
	Image       string     `json:"image,omitempty"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Author      string     `json:"author,omitempty"`
	Title       string     `json:"title,omitempty"`
}

// ArticleResult is the outbound shape of an Article.
type ArticleResult struct {
	ID                 string               `json:"id"`
	URL                string               `json:"url,omitempty"`
	Source             string               `json:"source,omitempty"`
	PublishDate        *time.Time           `json:"publish_date,omitempty"`
	Image              string               `json:"image,omitempty"`
	Author             string               `json:"author,omitempty"`
	Title              string               `json:"title,omitempty"`
	Paragraphs         []string             `json:"paragraphs,omitempty"`
	Categories         []CategoryResult     `json:"categories,omitempty"`
	AnalyzedCategories []CategoryResult     `json:"analyzed_categories,omitempty"`
	Entities           []string             `json:"entities,omitempty"`
	Topics             []ArticleTopicResult `json:"topics,omitempty"`
}

// DateRangeResult mirrors DateRange for outbound serialization.
type DateRangeResult struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TopicArticleQueryResult is the outbound shape of a TopicArticleQuery.
type TopicArticleQueryResult struct {
	PublishDate DateRangeResult `json:"publish_date"`
}

// TopicResult is the outbound shape of a Topic.
type TopicResult struct {
	ID                     string                   `json:"id"`
	BatchID                string                   `json:"batch_id,omitempty"`
	BatchQuery             *TopicArticleQueryResult `json:"batch_query,omitempty"`
	CreateTime             *time.Time               `json:"create_time,omitempty"`
	Topic                  string                   `json:"topic,omitempty"`
	Count                  *int                     `json:"count,omitempty"`
	RepresentativeArticles []TopicArticleResult     `json:"representative_articles,omitempty"`
}

// TopicBatchResult is the outbound shape of a TopicBatch. Every field
// beyond id is maskable via return_attributes, so each is a pointer
// suppressed when not requested.
type TopicBatchResult struct {
	ID           string                   `json:"id"`
	Query        *TopicArticleQueryResult `json:"query,omitempty"`
	ArticleCount *int                     `json:"article_count,omitempty"`
	TopicCount   *int                     `json:"topic_count,omitempty"`
	CreateTime   *time.Time               `json:"create_time,omitempty"`
}

// ArticleResults is the response envelope for the articles endpoint.
type ArticleResults struct {
	Total   int             `json:"total"`
	Results []ArticleResult `json:"results"`
}

// TopicResults is the envelope for the topics endpoint.
type TopicResults struct {
	Total   int           `json:"total"`
	Results []TopicResult `json:"results"`
}

// TopicBatchResults is the envelope for the topic-batches endpoint.
type TopicBatchResults struct {
	Total   int                `json:"total"`
	Results []TopicBatchResult `json:"results"`
}

// CategoryResults is the envelope for the categories endpoint.
type CategoryResults struct {
	Total   int              `json:"total"`
	Results []CategoryResult `json:"results"`
}
