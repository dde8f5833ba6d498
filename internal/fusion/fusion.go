// Package fusion implements the Reciprocal Rank Fusion reader that
// combines a lexical hit list and a kNN hit list into one ranked list:
// two equally-weighted lists, no missing-rank penalty, no score
// normalization, first-list-wins on id collision.
package fusion

import "sort"

// DefaultK is the RRF smoothing constant.
const DefaultK = 60

// Hit is anything the fuser can rank: a backend search hit identified by
// its document id. Concrete hit types live in internal/store.
type Hit interface {
	HitID() string
}

// entry tracks one document's accumulated RRF score and its position of
// first appearance in L1, for the tie-break rule.
type entry struct {
	hit        Hit
	score      float64
	firstInL1  int // index in l1, or -1 if not present
	l1Position int // insertion order across both lists, for stable sort
}

// Fuse combines l1 (lexical) and l2 (kNN) using Reciprocal Rank Fusion with
// constant k. For a hit at zero-based index i in a list, its contribution
// is 1/(k+i+1); a document's fused score is the sum over the lists it
// appears in. The result is sorted by fused score descending; ties break
// by stability with respect to first appearance in l1.
//
// On id collision between l1 and l2, the l1 hit object is kept, since
// lexical metadata is generally richer.
func Fuse(l1, l2 []Hit, k int) []Hit {
	if k <= 0 {
		k = DefaultK
	}
	if len(l1) == 0 && len(l2) == 0 {
		return []Hit{}
	}

	byID := make(map[string]*entry, len(l1)+len(l2))
	var order []string

	for i, h := range l1 {
		id := h.HitID()
		e, ok := byID[id]
		if !ok {
			e = &entry{hit: h, firstInL1: i, l1Position: i}
			byID[id] = e
			order = append(order, id)
		}
		e.score += 1.0 / float64(k+i+1)
	}

	for i, h := range l2 {
		id := h.HitID()
		e, ok := byID[id]
		if !ok {
			e = &entry{hit: h, firstInL1: -1, l1Position: len(l1) + i}
			byID[id] = e
			order = append(order, id)
		}
		e.score += 1.0 / float64(k+i+1)
	}

	entries := make([]*entry, len(order))
	for i, id := range order {
		entries[i] = byID[id]
	}

	sort.SliceStable(entries, func(a, b int) bool {
		ea, eb := entries[a], entries[b]
		if ea.score != eb.score {
			return ea.score > eb.score
		}
		return ea.l1Position < eb.l1Position
	})

	out := make([]Hit, len(entries))
	for i, e := range entries {
		out[i] = e.hit
	}
	return out
}
