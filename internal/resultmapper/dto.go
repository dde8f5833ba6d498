package resultmapper

import (
	"github.com/aman-news/searchcore/internal/domain"
)

// attrSet is a small helper over a return_attributes list: present()
// reports whether attr should be emitted, true unconditionally when no
// mask was requested.
type attrSet struct {
	all  bool
	want map[string]bool
}

func newAttrSet(requested []string, has bool) attrSet {
	if !has {
		return attrSet{all: true}
	}
	want := make(map[string]bool, len(requested))
	for _, a := range requested {
		want[a] = true
	}
	return attrSet{want: want}
}

func (s attrSet) present(attr string) bool {
	return s.all || s.want[attr]
}

// ToArticleResult narrows a domain.Article into its outbound DTO,
// applying the return_attributes projection mask: "id" is
// always present regardless of the mask (the sentinel backend path is
// present on every hit); every other field is emitted only when it was
// requested (or no mask was given) and the mapper actually populated it.
func ToArticleResult(a domain.Article, requested []string, hasMask bool) domain.ArticleResult {
	attrs := newAttrSet(requested, hasMask)

	out := domain.ArticleResult{ID: a.ID}
	if attrs.present("url") {
		out.URL = a.URL
	}
	if attrs.present("source") {
		out.Source = a.Source
	}
	if attrs.present("publish_date") && a.HasPublishDate {
		t := a.PublishDate
		out.PublishDate = &t
	}
	if attrs.present("image") {
		out.Image = a.Image
	}
	if attrs.present("author") {
		out.Author = joinLines(a.Author)
	}
	if attrs.present("title") {
		out.Title = joinLines(a.Title)
	}
	if attrs.present("paragraphs") {
		out.Paragraphs = articleParagraphPreview(a.Paragraphs)
	}
	if attrs.present("categories") {
		out.Categories = toCategoryResults(a.Categories)
	}
	if attrs.present("analyzed_categories") {
		out.AnalyzedCategories = toCategoryResults(a.AnalyzedCategories)
	}
	if attrs.present("entities") {
		out.Entities = a.Entities
	}
	if attrs.present("topics") {
		out.Topics = toArticleTopicResults(a.Topics)
	}
	return out
}

func toCategoryResults(cs []domain.Category) []domain.CategoryResult {
	if len(cs) == 0 {
		return nil
	}
	out := make([]domain.CategoryResult, len(cs))
	for i, c := range cs {
		out[i] = domain.CategoryResult{ID: c.ID, Name: c.Name}
	}
	return out
}

func toArticleTopicResults(ts []domain.ArticleTopic) []domain.ArticleTopicResult {
	if len(ts) == 0 {
		return nil
	}
	out := make([]domain.ArticleTopicResult, len(ts))
	for i, t := range ts {
		out[i] = domain.ArticleTopicResult{ID: t.ID, TopicName: t.TopicName}
	}
	return out
}

func toTopicArticleResults(ts []domain.TopicArticle) []domain.TopicArticleResult {
	if len(ts) == 0 {
		return nil
	}
	out := make([]domain.TopicArticleResult, len(ts))
	for i, t := range ts {
		r := domain.TopicArticleResult{
			ID:     t.ID,
			URL:    t.URL,
			Author: joinLines(t.Author),
			Title:  joinLines(t.Title),
		}
		if t.HasImage {
			r.Image = t.Image
		}
		if !t.PublishDate.IsZero() {
			pd := t.PublishDate
			r.PublishDate = &pd
		}
		out[i] = r
	}
	return out
}

// ToTopicResult narrows a domain.Topic into its outbound DTO.
func ToTopicResult(t domain.Topic, requested []string, hasMask bool) domain.TopicResult {
	attrs := newAttrSet(requested, hasMask)

	out := domain.TopicResult{ID: t.ID}
	if attrs.present("batch_id") && t.HasBatchID {
		out.BatchID = t.BatchID
	}
	if attrs.present("batch_query") && t.HasBatchQuery {
		out.BatchQuery = &domain.TopicArticleQueryResult{
			PublishDate: domain.DateRangeResult{
				Start: t.BatchQuery.PublishDate.Start,
				End:   t.BatchQuery.PublishDate.End,
			},
		}
	}
	if attrs.present("create_time") && t.HasCreateTime {
		ct := t.CreateTime
		out.CreateTime = &ct
	}
	if attrs.present("topic") && t.HasTopicName {
		out.Topic = t.TopicName
	}
	if attrs.present("count") && t.HasCount {
		c := t.Count
		out.Count = &c
	}
	if attrs.present("representative_articles") {
		out.RepresentativeArticles = toTopicArticleResults(t.RepresentativeArticles)
	}
	return out
}

// ToTopicBatchResult narrows a domain.TopicBatch into its outbound DTO,
// applying the return_attributes mask the same way the other entities do:
// id is always present, everything else only when requested.
func ToTopicBatchResult(b domain.TopicBatch, requested []string, hasMask bool) domain.TopicBatchResult {
	attrs := newAttrSet(requested, hasMask)

	out := domain.TopicBatchResult{ID: b.ID}
	if attrs.present("query") {
		out.Query = &domain.TopicArticleQueryResult{
			PublishDate: domain.DateRangeResult{
				Start: b.Query.PublishDate.Start,
				End:   b.Query.PublishDate.End,
			},
		}
	}
	if attrs.present("article_count") {
		ac := b.ArticleCount
		out.ArticleCount = &ac
	}
	if attrs.present("topic_count") {
		tc := b.TopicCount
		out.TopicCount = &tc
	}
	if attrs.present("create_time") {
		ct := b.CreateTime
		out.CreateTime = &ct
	}
	return out
}

// ToCategoryResult narrows a domain.Category into its outbound DTO.
func ToCategoryResult(c domain.Category, requested []string, hasMask bool) domain.CategoryResult {
	attrs := newAttrSet(requested, hasMask)
	out := domain.CategoryResult{ID: c.ID}
	if attrs.present("name") {
		out.Name = c.Name
	}
	return out
}
