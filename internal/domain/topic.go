package domain

import "time"

// DateRange is an inclusive [Start, End] window, used both as the query
// shape for topic batches (TopicArticleQuery) and wherever a topic's
// window needs to be compared against a caller's date filter.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// TopicArticleQuery is the query a topic batch was produced from:
// `{publish_date: {start, end}}` with start <= end.
type TopicArticleQuery struct {
	PublishDate DateRange
}

// TopicArticle is the projection of an Article attached to a Topic as one
// of its representative articles.
type TopicArticle struct {
	ID          string
	URL         string
	Image       string
	HasImage    bool
	PublishDate time.Time
	Author      []string
	Title       []string
}

// Topic is a cluster of articles produced by one topic-modelling run.
// Invariant: every entry of RepresentativeArticles has a PublishDate that
// falls inside BatchQuery.PublishDate.
type Topic struct {
	ID                     string
	BatchID                string
	HasBatchID             bool
	BatchQuery             TopicArticleQuery
	HasBatchQuery          bool
	CreateTime             time.Time
	HasCreateTime          bool
	TopicName              string
	HasTopicName           bool
	Count                  int
	HasCount               bool
	RepresentativeArticles []TopicArticle
}

// TopicBatch is a snapshot of one topic-discovery run: the query window it
// covered, and the counts of articles/topics it produced.
type TopicBatch struct {
	ID           string
	Query        TopicArticleQuery
	ArticleCount int
	TopicCount   int
	CreateTime   time.Time
}
