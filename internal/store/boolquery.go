package store

import (
	"strings"
	"time"
)

// evalBoolTree evaluates the {bool:{must,should,filter,minimum_should_match}}
// tree the query compiler builds, directly against a decoded document,
// standing in for what Elasticsearch's query engine would do server-side.
// Clause kinds understood: match, range, terms, exists. An empty/nil tree
// matches everything.
func evalBoolTree(tree map[string]interface{}, doc map[string]interface{}) bool {
	if len(tree) == 0 {
		return true
	}
	b, ok := tree["bool"].(map[string]interface{})
	if !ok {
		return true
	}

	for _, c := range clauseList(b["must"]) {
		if !evalClause(c, doc) {
			return false
		}
	}
	for _, c := range clauseList(b["filter"]) {
		if !evalClause(c, doc) {
			return false
		}
	}

	should := clauseList(b["should"])
	if len(should) > 0 {
		minShould := 1
		if v, ok := b["minimum_should_match"].(int); ok {
			minShould = v
		}
		matched := 0
		for _, c := range should {
			if evalClause(c, doc) {
				matched++
			}
		}
		if matched < minShould {
			return false
		}
	}
	return true
}

func clauseList(v interface{}) []map[string]interface{} {
	arr, ok := v.([]map[string]interface{})
	if ok {
		return arr
	}
	anyArr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(anyArr))
	for _, e := range anyArr {
		if m, ok := e.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func evalClause(clause map[string]interface{}, doc map[string]interface{}) bool {
	if m, ok := clause["match"].(map[string]interface{}); ok {
		for field, val := range m {
			if field == "_id" {
				continue
			}
			v, ok := lookupPath(doc, field)
			if !ok {
				return false
			}
			if !containsText(v, val) {
				return false
			}
		}
		return true
	}
	if m, ok := clause["terms"].(map[string]interface{}); ok {
		for field, want := range m {
			wantList, _ := toStringSlice(want)
			if field == "_id" {
				continue // "_id" terms filters are applied by the caller via hit id
			}
			v, ok := lookupPath(doc, field)
			if !ok {
				return false
			}
			if !intersects(v, wantList) {
				return false
			}
		}
		return true
	}
	if m, ok := clause["range"].(map[string]interface{}); ok {
		for field, boundsAny := range m {
			bounds, ok := boundsAny.(map[string]interface{})
			if !ok {
				continue
			}
			v, ok := lookupPath(doc, field)
			if !ok {
				return false
			}
			t, ok := parseTime(v)
			if !ok {
				return false
			}
			if gte, ok := bounds["gte"]; ok {
				if gteT, ok := parseTime(gte); ok && t.Before(gteT) {
					return false
				}
			}
			if lte, ok := bounds["lte"]; ok {
				if lteT, ok := parseTime(lte); ok && t.After(lteT) {
					return false
				}
			}
		}
		return true
	}
	if m, ok := clause["exists"].(map[string]interface{}); ok {
		field, _ := m["field"].(string)
		_, ok := lookupPath(doc, field)
		return ok
	}
	return true
}

func containsText(have interface{}, want interface{}) bool {
	// A match clause value is either the bare query text or the expanded
	// {query, boost, ...} object form.
	if m, ok := want.(map[string]interface{}); ok {
		want = m["query"]
	}
	wantStr, ok := want.(string)
	if !ok {
		return false
	}
	wantStr = strings.ToLower(wantStr)
	switch t := have.(type) {
	case string:
		return strings.Contains(strings.ToLower(t), wantStr)
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.Contains(strings.ToLower(s), wantStr) {
				return true
			}
		}
	}
	return false
}

func toStringSlice(v interface{}) ([]string, bool) {
	arr, ok := v.([]interface{})
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, true
		}
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func intersects(have interface{}, want []string) bool {
	wantSet := make(map[string]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	switch t := have.(type) {
	case string:
		return wantSet[t]
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok && wantSet[s] {
				return true
			}
		}
	}
	return false
}

func parseTime(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// extractIDFilter looks for a `terms {_id: [...]}` clause (the ids filter
// compiled from an ArticleQuery.IDs-style field) and returns the
// requested id set, if any.
func extractIDFilter(tree map[string]interface{}) ([]string, bool) {
	b, ok := tree["bool"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	for _, key := range []string{"filter", "must"} {
		for _, c := range clauseList(b[key]) {
			if m, ok := c["terms"].(map[string]interface{}); ok {
				if ids, ok := m["_id"]; ok {
					ss, _ := toStringSlice(ids)
					return ss, true
				}
			}
		}
	}
	return nil, false
}

// extractFreeText pulls the query text of the first `match` clause on
// article.paragraphs or article.title out of a bool tree's `should` or
// `must` list, for driving bleve's lexical scoring pass.
func extractFreeText(tree map[string]interface{}) string {
	b, ok := tree["bool"].(map[string]interface{})
	if !ok {
		return ""
	}
	for _, key := range []string{"should", "must"} {
		for _, c := range clauseList(b[key]) {
			if m, ok := c["match"].(map[string]interface{}); ok {
				for field, val := range m {
					if field == "article.paragraphs" || field == "article.title" {
						if obj, ok := val.(map[string]interface{}); ok {
							val = obj["query"]
						}
						if s, ok := val.(string); ok {
							return s
						}
					}
				}
			}
		}
	}
	return ""
}
