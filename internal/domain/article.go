// Package domain holds the core entities: Article,
// Category, Topic, TopicBatch and their supporting value types. These are
// the shapes the result mapper produces from backend hits, before
// they are narrowed into outbound DTOs.
package domain

import "time"

// Category identifies a news category by a stable id and display name.
type Category struct {
	ID   string
	Name string
}

// ArticleTopic is the projection of a Topic attached to an Article: just
// enough to label which topic an article was clustered into.
type ArticleTopic struct {
	ID        string
	TopicName string
}

// Article is the richest entity in the system. Every field past ID is
// optional; the result mapper leaves a field at its zero value when
// the backend document has no value for it, and the DTO layer suppresses
// zero-valued optional fields on the way out.
type Article struct {
	ID             string
	URL            string
	Source         string
	PublishDate    time.Time
	HasPublishDate bool
	Image          string
	Author         []string
	Title          []string
	Paragraphs     []string

	// Categories is the full reconstructed set (article.categories.{ids,names}
	// zipped). AnalyzedCategories is the subset the analyzer itself assigned
	// (analyzer.category_ids). Invariant: AnalyzedCategories ⊆ Categories (by id).
	Categories         []Category
	AnalyzedCategories []Category

	// Embeddings is never populated on the outbound path (source_excludes
	// always drops analyzer.embeddings) but the type carries it for
	// symmetry with the ingest path, where it is written.
	Embeddings []float32

	Entities []string
	Topics   []ArticleTopic
}
