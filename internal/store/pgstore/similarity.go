package pgstore

import "strings"

// textSimilarity is the Jaccard-over-tokens fallback used when a record
// has no embedding (or the query itself has none), mirroring
// memstore.textSimilarity so both backends honor the same spec.md §4.4
// step 5 degradation contract: cosine when both sides have vectors, text
// Jaccard otherwise.
func textSimilarity(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter, union := 0, len(tb)
	for tok := range ta {
		if tb[tok] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenize(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[strings.Trim(f, ".,!?;:\"'()")] = true
	}
	return out
}
