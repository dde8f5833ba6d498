package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/aman-news/searchcore/internal/apperrors"
)

// ESConfig carries the connection parameters configuration supplies:
// endpoint, user, password, CA bundle, TLS-verification toggle.
type ESConfig struct {
	Addresses   []string
	Username    string
	Password    string
	CACertPath  string
	TLSInsecure bool
}

// ESStore is the production DocumentStore, backed by a long-lived,
// connection-pooled client.
type ESStore struct {
	es *elasticsearch.Client
}

// NewESStore builds an ESStore from cfg.
func NewESStore(cfg ESConfig) (*ESStore, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	if cfg.CACertPath != "" || cfg.TLSInsecure {
		tlsCfg := &tls.Config{InsecureSkipVerify: cfg.TLSInsecure} //nolint:gosec // operator opt-in only
		if cfg.CACertPath != "" {
			pem, err := os.ReadFile(cfg.CACertPath)
			if err != nil {
				return nil, apperrors.Startup("reading elasticsearch CA bundle", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, apperrors.Startup("parsing elasticsearch CA bundle", nil)
			}
			tlsCfg.RootCAs = pool
		}
		esCfg.Transport = &http.Transport{TLSClientConfig: tlsCfg}
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, apperrors.Startup("creating elasticsearch client", err)
	}
	return &ESStore{es: es}, nil
}

func (s *ESStore) Search(ctx context.Context, index string, d Descriptor) (SearchResult, error) {
	body := buildRequestBody(d)
	data, err := json.Marshal(body)
	if err != nil {
		return SearchResult{}, apperrors.StoreContract("marshaling search descriptor", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return SearchResult{}, apperrors.StoreTransient(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return SearchResult{}, classifyESError(res)
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return SearchResult{}, apperrors.StoreContract("decoding search response", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if h.ID == "" {
			return SearchResult{}, apperrors.StoreContract("hit missing _id", nil)
		}
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Source: h.Source})
	}

	return SearchResult{Hits: hits, Total: parsed.Hits.Total.Value}, nil
}

func (s *ESStore) BulkWrite(ctx context.Context, index string, actions []BulkAction) (<-chan BulkResult, error) {
	out := make(chan BulkResult, len(actions))
	if len(actions) == 0 {
		close(out)
		return out, nil
	}

	var buf bytes.Buffer
	for _, a := range actions {
		meta := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": index,
				"_id":    a.ID,
			},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return nil, apperrors.StoreContract("marshaling bulk action metadata", err)
		}
		docLine, err := json.Marshal(a.Document)
		if err != nil {
			return nil, apperrors.StoreContract("marshaling bulk document", err)
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	res, err := s.es.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithIndex(index),
	)
	if err != nil {
		close(out)
		return out, apperrors.StoreTransient(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		close(out)
		return out, classifyESError(res)
	}

	var parsed esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		close(out)
		return out, apperrors.StoreContract("decoding bulk response", err)
	}

	go func() {
		defer close(out)
		for i, item := range parsed.Items {
			r := item.Index
			if i >= len(actions) {
				break
			}
			var itemErr error
			if r.Status >= 300 {
				itemErr = fmt.Errorf("bulk action for %q failed: status %d: %s", r.ID, r.Status, r.Error.Reason)
			}
			out <- BulkResult{ID: actions[i].ID, Err: itemErr}
		}
	}()

	return out, nil
}

func (s *ESStore) AssertIndex(ctx context.Context, index string, mapping Mapping) error {
	existsRes, err := s.es.Indices.Exists([]string{index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return apperrors.Startup(fmt.Sprintf("checking index %q existence", index), err)
	}
	defer existsRes.Body.Close()
	if existsRes.StatusCode == http.StatusOK {
		return nil
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return apperrors.Startup("marshaling index mapping", err)
	}

	createRes, err := s.es.Indices.Create(
		index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return apperrors.Startup(fmt.Sprintf("creating index %q", index), err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		if strings.Contains(createRes.String(), "resource_already_exists_exception") {
			return nil
		}
		return apperrors.Startup(fmt.Sprintf("creating index %q: %s", index, createRes.String()), nil)
	}
	return nil
}

func (s *ESStore) Close() error {
	return nil
}

func classifyESError(res *esapi.Response) error {
	msg := res.String()
	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return apperrors.StoreTransient(fmt.Errorf("elasticsearch error (status %d): %s", res.StatusCode, msg))
	}
	return apperrors.StoreContract(fmt.Sprintf("elasticsearch error (status %d): %s", res.StatusCode, msg), nil)
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Items []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// buildRequestBody turns a Descriptor into the ES request body
// {kind, body, sort, from, size, source_includes, source_excludes}
// descriptor, rendered as the JSON tree the _search API expects).
func buildRequestBody(d Descriptor) map[string]interface{} {
	out := map[string]interface{}{}

	switch d.Kind {
	case KindKNN:
		knn := map[string]interface{}{
			"field":          d.VectorField,
			"query_vector":   d.QueryVector,
			"num_candidates": d.NumCandidates,
			"k":              d.K,
		}
		if len(d.KNNFilter) > 0 {
			knn["filter"] = d.KNNFilter
		}
		out["knn"] = knn
	default:
		out["query"] = d.Body
		out["from"] = d.From
		out["size"] = d.Size
	}

	if len(d.Sort) > 0 {
		out["sort"] = d.Sort
	}
	if d.TrackScores {
		out["track_scores"] = true
	}
	if len(d.SourceInclude) > 0 || len(d.SourceExclude) > 0 {
		src := map[string]interface{}{}
		if len(d.SourceInclude) > 0 {
			src["includes"] = d.SourceInclude
		}
		if len(d.SourceExclude) > 0 {
			src["excludes"] = d.SourceExclude
		}
		out["_source"] = src
	}
	return out
}
