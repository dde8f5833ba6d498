package store

// EmbeddingDimensions is the fixed dense-vector width of the articles
// index.
const EmbeddingDimensions = 384

// ArticlesMapping is the articles index mapping: three top-level
// groups article/analyzer/topics, a dense_vector embeddings field, and
// keyword sub-fields on article.source / article.categories.names for
// exact-term aggregation.
func ArticlesMapping() Mapping {
	return Mapping{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"article": map[string]interface{}{
					"properties": map[string]interface{}{
						"id":           map[string]interface{}{"type": "keyword"},
						"url":          map[string]interface{}{"type": "keyword"},
						"source":       keywordSubfieldText(),
						"publish_date": map[string]interface{}{"type": "date"},
						"image":        map[string]interface{}{"type": "text", "index": false},
						"author":       map[string]interface{}{"type": "text"},
						"title":        map[string]interface{}{"type": "text"},
						"paragraphs":   map[string]interface{}{"type": "text"},
						"categories": map[string]interface{}{
							"properties": map[string]interface{}{
								"ids":   map[string]interface{}{"type": "keyword"},
								"names": keywordSubfieldText(),
							},
						},
					},
				},
				"analyzer": map[string]interface{}{
					"properties": map[string]interface{}{
						"category_ids": map[string]interface{}{"type": "keyword", "index": false},
						"entities":     map[string]interface{}{"type": "keyword"},
						"embeddings": map[string]interface{}{
							"type":       "dense_vector",
							"dims":       EmbeddingDimensions,
							"index":      true,
							"similarity": "cosine",
						},
					},
				},
				"topics": map[string]interface{}{
					"properties": map[string]interface{}{
						"topic_ids":   map[string]interface{}{"type": "keyword"},
						"topic_names": map[string]interface{}{"type": "keyword"},
					},
				},
			},
		},
	}
}

// TopicsMapping is the topics index mapping.
func TopicsMapping() Mapping {
	return Mapping{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"batch_id": map[string]interface{}{"type": "keyword"},
				"batch_query": map[string]interface{}{
					"properties": map[string]interface{}{
						"publish_date": map[string]interface{}{
							"properties": map[string]interface{}{
								"start": map[string]interface{}{"type": "date"},
								"end":   map[string]interface{}{"type": "date"},
							},
						},
					},
				},
				"create_time": map[string]interface{}{"type": "date"},
				"topic":       map[string]interface{}{"type": "text"},
				"count":       map[string]interface{}{"type": "integer"},
				"representative_articles": map[string]interface{}{
					"type": "nested",
					"properties": map[string]interface{}{
						"id":           map[string]interface{}{"type": "keyword"},
						"url":          map[string]interface{}{"type": "keyword"},
						"image":        map[string]interface{}{"type": "text", "index": false},
						"publish_date": map[string]interface{}{"type": "date"},
						"author":       map[string]interface{}{"type": "text"},
						"title":        map[string]interface{}{"type": "text"},
					},
				},
			},
		},
	}
}

// TopicBatchesMapping is the topic_batches index mapping.
func TopicBatchesMapping() Mapping {
	return Mapping{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"properties": map[string]interface{}{
						"publish_date": map[string]interface{}{
							"properties": map[string]interface{}{
								"start": map[string]interface{}{"type": "date"},
								"end":   map[string]interface{}{"type": "date"},
							},
						},
					},
				},
				"article_count": map[string]interface{}{"type": "integer"},
				"topic_count":   map[string]interface{}{"type": "integer"},
				"create_time":   map[string]interface{}{"type": "date"},
			},
		},
	}
}

// CategoriesMapping is the categories index mapping.
func CategoriesMapping() Mapping {
	return Mapping{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"name": keywordSubfieldText(),
			},
		},
	}
}

func keywordSubfieldText() map[string]interface{} {
	return map[string]interface{}{
		"type": "text",
		"fields": map[string]interface{}{
			"keyword": map[string]interface{}{
				"type":         "keyword",
				"ignore_above": 256,
			},
		},
	}
}
