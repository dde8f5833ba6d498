package resultmapper

import (
	"encoding/json"
	"time"

	"github.com/aman-news/searchcore/internal/apperrors"
	"github.com/aman-news/searchcore/internal/domain"
	"github.com/aman-news/searchcore/internal/store"
)

type dateRangeDoc struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type topicArticleDoc struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Image       string     `json:"image"`
	PublishDate *time.Time `json:"publish_date"`
	Author      []string   `json:"author"`
	Title       []string   `json:"title"`
}

type topicDoc struct {
	BatchID    string `json:"batch_id"`
	BatchQuery *struct {
		PublishDate dateRangeDoc `json:"publish_date"`
	} `json:"batch_query"`
	CreateTime             *time.Time        `json:"create_time"`
	Topic                  string            `json:"topic"`
	Count                  *int              `json:"count"`
	RepresentativeArticles []topicArticleDoc `json:"representative_articles"`
}

// MapTopicHit decodes one backend hit into a domain.Topic.
func MapTopicHit(h store.Hit) (domain.Topic, error) {
	if h.ID == "" {
		return domain.Topic{}, apperrors.StoreContract("hit missing _id", nil)
	}

	var doc topicDoc
	if len(h.Source) > 0 {
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return domain.Topic{}, apperrors.StoreContract("decoding topic hit source", err)
		}
	}

	t := domain.Topic{ID: h.ID}
	if doc.BatchID != "" {
		t.BatchID = doc.BatchID
		t.HasBatchID = true
	}
	if doc.BatchQuery != nil {
		t.BatchQuery = domain.TopicArticleQuery{
			PublishDate: domain.DateRange{
				Start: doc.BatchQuery.PublishDate.Start,
				End:   doc.BatchQuery.PublishDate.End,
			},
		}
		t.HasBatchQuery = true
	}
	if doc.CreateTime != nil {
		t.CreateTime = *doc.CreateTime
		t.HasCreateTime = true
	}
	if doc.Topic != "" {
		t.TopicName = doc.Topic
		t.HasTopicName = true
	}
	if doc.Count != nil {
		t.Count = *doc.Count
		t.HasCount = true
	}
	for _, ra := range doc.RepresentativeArticles {
		out := domain.TopicArticle{
			ID:     ra.ID,
			URL:    ra.URL,
			Image:  ra.Image,
			Author: ra.Author,
			Title:  ra.Title,
		}
		if ra.Image != "" {
			out.HasImage = true
		}
		if ra.PublishDate != nil {
			out.PublishDate = *ra.PublishDate
		}
		t.RepresentativeArticles = append(t.RepresentativeArticles, out)
	}

	return t, nil
}

type topicBatchDoc struct {
	Query struct {
		PublishDate dateRangeDoc `json:"publish_date"`
	} `json:"query"`
	ArticleCount int       `json:"article_count"`
	TopicCount   int       `json:"topic_count"`
	CreateTime   time.Time `json:"create_time"`
}

// MapTopicBatchHit decodes one backend hit into a domain.TopicBatch.
func MapTopicBatchHit(h store.Hit) (domain.TopicBatch, error) {
	if h.ID == "" {
		return domain.TopicBatch{}, apperrors.StoreContract("hit missing _id", nil)
	}

	var doc topicBatchDoc
	if len(h.Source) > 0 {
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return domain.TopicBatch{}, apperrors.StoreContract("decoding topic-batch hit source", err)
		}
	}

	return domain.TopicBatch{
		ID: h.ID,
		Query: domain.TopicArticleQuery{
			PublishDate: domain.DateRange{
				Start: doc.Query.PublishDate.Start,
				End:   doc.Query.PublishDate.End,
			},
		},
		ArticleCount: doc.ArticleCount,
		TopicCount:   doc.TopicCount,
		CreateTime:   doc.CreateTime,
	}, nil
}

type categoryDoc struct {
	Name string `json:"name"`
}

// MapCategoryHit decodes one backend hit into a domain.Category.
func MapCategoryHit(h store.Hit) (domain.Category, error) {
	if h.ID == "" {
		return domain.Category{}, apperrors.StoreContract("hit missing _id", nil)
	}
	var doc categoryDoc
	if len(h.Source) > 0 {
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return domain.Category{}, apperrors.StoreContract("decoding category hit source", err)
		}
	}
	return domain.Category{ID: h.ID, Name: doc.Name}, nil
}
