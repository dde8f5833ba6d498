package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/coder/hnsw"

	"github.com/aman-news/searchcore/internal/apperrors"
)

// MemStore is the dev/test DocumentStore: a bleve.Index per backend index
// for lexical scoring, paired with a coder/hnsw graph for kNN, both
// in-memory. Filter/terms/range clauses in a Descriptor's bool tree are
// evaluated directly against the decoded document rather than translated
// into bleve query objects, since bleve has no native filter-context
// concept matching Elasticsearch's; this keeps bleve doing what it is
// good at (free-text relevance scoring) while filters stay exact.
type MemStore struct {
	mu      sync.RWMutex
	indices map[string]*memIndex
}

type memIndex struct {
	bl   bleve.Index
	docs map[string]json.RawMessage

	vec     *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewMemStore creates an empty MemStore. Indices are created lazily by
// AssertIndex.
func NewMemStore() *MemStore {
	return &MemStore{indices: make(map[string]*memIndex)}
}

func (s *MemStore) AssertIndex(ctx context.Context, index string, mapping Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[index]; ok {
		return nil // idempotent: already exists
	}

	bl, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return apperrors.Startup(fmt.Sprintf("creating in-memory bleve index %q", index), err)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance

	s.indices[index] = &memIndex{
		bl:     bl,
		docs:   make(map[string]json.RawMessage),
		vec:    graph,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
	return nil
}

func (s *MemStore) BulkWrite(ctx context.Context, index string, actions []BulkAction) (<-chan BulkResult, error) {
	out := make(chan BulkResult, len(actions))
	s.mu.Lock()
	idx, ok := s.indices[index]
	s.mu.Unlock()
	if !ok {
		close(out)
		return out, apperrors.StoreContract(fmt.Sprintf("index %q not asserted", index), nil)
	}

	go func() {
		defer close(out)
		for _, a := range actions {
			if err := idx.upsert(a.ID, a.Document); err != nil {
				out <- BulkResult{ID: a.ID, Err: err}
				continue
			}
			out <- BulkResult{ID: a.ID}
		}
	}()
	return out, nil
}

func (idx *memIndex) upsert(id string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document %q: %w", id, err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decoding document %q: %w", id, err)
	}

	idx.docs[id] = raw
	if err := idx.bl.Index(id, map[string]interface{}{"text": flattenText(decoded)}); err != nil {
		return fmt.Errorf("bleve-indexing document %q: %w", id, err)
	}

	if vecAny, ok := lookupPath(decoded, "analyzer.embeddings"); ok {
		if vec, ok := toFloat32Slice(vecAny); ok && len(vec) > 0 {
			key, exists := idx.idMap[id]
			if !exists {
				key = idx.nextKey
				idx.nextKey++
			} else {
				delete(idx.keyMap, key)
			}
			idx.vec.Add(hnsw.MakeNode(key, vec))
			idx.idMap[id] = key
			idx.keyMap[key] = id
		}
	}
	return nil
}

func (s *MemStore) Search(ctx context.Context, index string, d Descriptor) (SearchResult, error) {
	s.mu.RLock()
	idx, ok := s.indices[index]
	s.mu.RUnlock()
	if !ok {
		return SearchResult{}, apperrors.StoreContract(fmt.Sprintf("index %q not asserted", index), nil)
	}

	if d.Kind == KindKNN {
		return idx.searchKNN(d)
	}
	return idx.searchLexical(d)
}

func (idx *memIndex) searchKNN(d Descriptor) (SearchResult, error) {
	k := d.K
	if k == 0 {
		k = 10
	}
	nodes := idx.vec.Search(d.QueryVector, k)

	idFilter, hasIDFilter := extractIDFilter(d.KNNFilter)

	var hits []Hit
	for _, n := range nodes {
		id, ok := idx.keyMap[n.Key]
		if !ok {
			continue
		}
		if hasIDFilter && !stringInSlice(idFilter, id) {
			continue
		}
		doc, ok := idx.docs[id]
		if !ok {
			continue
		}
		decoded := mustDecode(doc)
		if !evalBoolTree(d.KNNFilter, decoded) {
			continue
		}
		dist := idx.vec.Distance(d.QueryVector, n.Value)
		hits = append(hits, Hit{ID: id, Score: 1.0 - float64(dist)/2.0, Source: doc})
	}
	return SearchResult{Hits: hits, Total: len(hits)}, nil
}

func (idx *memIndex) searchLexical(d Descriptor) (SearchResult, error) {
	candidates := idx.docs
	scores := map[string]float64{}

	if q := extractFreeText(d.Body); q != "" {
		req := bleve.NewSearchRequest(bleve.NewMatchQuery(q))
		req.Fields = []string{"text"}
		req.Size = len(idx.docs)
		res, err := idx.bl.Search(req)
		if err != nil {
			return SearchResult{}, apperrors.StoreTransient(err)
		}
		matched := make(map[string]json.RawMessage, len(res.Hits))
		for _, h := range res.Hits {
			scores[h.ID] = h.Score
			if doc, ok := idx.docs[h.ID]; ok {
				matched[h.ID] = doc
			}
		}
		candidates = matched
	}

	idFilter, hasIDFilter := extractIDFilter(d.Body)

	var ordered []string
	for id := range candidates {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	var hits []Hit
	for _, id := range ordered {
		if hasIDFilter && !stringInSlice(idFilter, id) {
			continue
		}
		doc := candidates[id]
		decoded := mustDecode(doc)
		if !evalBoolTree(d.Body, decoded) {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: scores[id], Source: doc})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	total := len(hits)
	from, size := d.From, d.Size
	if size == 0 {
		size = total
	}
	if from > len(hits) {
		hits = nil
	} else {
		end := from + size
		if end > len(hits) {
			end = len(hits)
		}
		hits = hits[from:end]
	}

	return SearchResult{Hits: hits, Total: total}, nil
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idx := range s.indices {
		_ = idx.bl.Close()
	}
	return nil
}

func mustDecode(raw json.RawMessage) map[string]interface{} {
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	return m
}

// flattenText concatenates every string leaf of a decoded document into one
// space-joined blob for bleve to score against; this is a best-effort
// stand-in for Elasticsearch's per-field `should`/`must` text matches.
func flattenText(v interface{}) string {
	var sb strings.Builder
	var walk func(interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case string:
			sb.WriteString(t)
			sb.WriteByte(' ')
		case []interface{}:
			for _, e := range t {
				walk(e)
			}
		case map[string]interface{}:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(v)
	return sb.String()
}

func toFloat32Slice(v interface{}) ([]float32, bool) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]float32, len(arr))
	for i, e := range arr {
		f, ok := e.(float64)
		if !ok {
			return nil, false
		}
		out[i] = float32(f)
	}
	return out, true
}

func stringInSlice(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func lookupPath(doc map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = doc
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
