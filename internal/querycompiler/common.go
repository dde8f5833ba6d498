package querycompiler

import "strings"

const rfc3339 = "2006-01-02T15:04:05Z07:00"

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// boolBody assembles a {must,should,filter,minimum_should_match} tree,
// omitting empty clause lists.
func boolBody(must, should, filter []map[string]interface{}, minShouldMatch int) map[string]interface{} {
	out := map[string]interface{}{}
	if len(must) > 0 {
		out["must"] = toAnyClauses(must)
	}
	if len(should) > 0 {
		out["should"] = toAnyClauses(should)
		out["minimum_should_match"] = minShouldMatch
	}
	if len(filter) > 0 {
		out["filter"] = toAnyClauses(filter)
	}
	return out
}

func toAnyClauses(cs []map[string]interface{}) []interface{} {
	out := make([]interface{}, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}
