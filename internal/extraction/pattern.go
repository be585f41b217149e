// Package extraction implements the Extraction Provider capability (C2):
// candidate-belief extraction, statement similarity, conflict detection,
// category inference, and confidence scoring, per spec.md §4.2.
package extraction

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ant-engram/belief-memory-engine/internal/domain"
)

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

var negationCues = []string{
	"don't", "do not", "doesn't", "does not", "didn't", "did not",
	"not ", "never", "no longer", "stopped", "can't", "cannot", "won't",
	"refuse to", "dislike", "hate",
}

var preferenceCues = []string{"prefer", "like", "love", "enjoy", "want", "wish", "favorite", "rather"}
var decisionCues = []string{"decided", "will ", "going to", "chose", "choose", "plan to"}
var constraintCues = []string{"must", "required", "have to", "need to", "mandatory", "always", "never"}

// PatternClient is a deterministic, rule-based ExtractionClient that never
// depends on a network call. Per spec.md §4.2 ("When an AI-backed
// implementation is unhealthy, a pattern-based fallback covering the same
// signature must be available"), this is that fallback, and doubles as the
// default "mock" provider.
type PatternClient struct{}

// NewPatternClient constructs a PatternClient.
func NewPatternClient() *PatternClient { return &PatternClient{} }

func (c *PatternClient) ExtractBeliefs(ctx context.Context, content string, agentID domain.AgentID, categoryHint domain.CategoryLabel) ([]domain.ExtractedBelief, error) {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil, nil
	}

	out := make([]domain.ExtractedBelief, 0, len(sentences))
	for _, s := range sentences {
		cat := categoryHint
		if cat.Primary == "" {
			cat = patternCategory(s)
		}
		out = append(out, domain.ExtractedBelief{
			Statement:  s,
			Category:   cat,
			Confidence: patternConfidence(s),
			Positive:   !hasAny(strings.ToLower(s), negationCues),
			Tags:       extractTags(s),
			Reasoning:  "pattern-based extraction: cue-word heuristic",
		})
	}
	return out, nil
}

func (c *PatternClient) Similarity(ctx context.Context, s1, s2 string) (float64, error) {
	return jaccard(tokenize(s1), tokenize(s2)), nil
}

func (c *PatternClient) AreConflicting(ctx context.Context, s1, s2 string, cat1, cat2 domain.CategoryLabel) (bool, error) {
	if cat1.Primary != "" && cat2.Primary != "" && cat1.Primary != cat2.Primary {
		return false, nil
	}
	p1 := !hasAny(strings.ToLower(s1), negationCues)
	p2 := !hasAny(strings.ToLower(s2), negationCues)
	if p1 == p2 {
		return false, nil
	}
	sim := jaccard(tokenize(s1), tokenize(s2))
	return sim >= 0.4, nil
}

func (c *PatternClient) ExtractCategory(ctx context.Context, statement string) (domain.CategoryLabel, error) {
	return patternCategory(statement), nil
}

func (c *PatternClient) CalculateConfidence(ctx context.Context, content, statement string, categoryHint domain.CategoryLabel) (float64, string, error) {
	lc := strings.ToLower(content)
	ls := strings.ToLower(statement)
	if strings.Contains(lc, ls) {
		return 0.8, "statement appears verbatim in source content", nil
	}
	sim := jaccard(tokenize(content), tokenize(statement))
	conf := 0.4 + 0.4*sim
	if conf > 0.95 {
		conf = 0.95
	}
	return conf, "confidence scaled from token overlap with source content (overlap=" + strconv.FormatFloat(sim, 'f', 2, 64) + ")", nil
}

// IsHealthy is always true: the pattern client has no external dependency
// to fail.
func (c *PatternClient) IsHealthy(ctx context.Context) bool { return true }

func splitSentences(content string) []string {
	parts := sentenceSplit.Split(content, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func patternCategory(s string) domain.CategoryLabel {
	ls := strings.ToLower(s)
	switch {
	case hasAny(ls, preferenceCues):
		return domain.CategoryLabel{Primary: "preference", Confidence: 0.6}
	case hasAny(ls, constraintCues):
		return domain.CategoryLabel{Primary: "constraint", Confidence: 0.6}
	case hasAny(ls, decisionCues):
		return domain.CategoryLabel{Primary: "decision", Confidence: 0.6}
	default:
		return domain.CategoryLabel{Primary: "fact", Confidence: 0.5}
	}
}

func patternConfidence(s string) float64 {
	ls := strings.ToLower(s)
	switch {
	case hasAny(ls, preferenceCues), hasAny(ls, constraintCues):
		return 0.7
	case hasAny(ls, decisionCues):
		return 0.65
	default:
		return 0.5
	}
}

func hasAny(s string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	toks := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		toks[f] = struct{}{}
	}
	return toks
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	urlRe   = regexp.MustCompile(`https?://[^\s]+`)
	dateRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\-. ]{7,}\d\b`)
)

// extractTags extracts emails/URLs/dates/phone numbers via regex, the
// mechanical half of Categorization Engine tag extraction (spec.md §4.7).
func extractTags(content string) []string {
	var tags []string
	tags = append(tags, emailRe.FindAllString(content, -1)...)
	tags = append(tags, urlRe.FindAllString(content, -1)...)
	tags = append(tags, dateRe.FindAllString(content, -1)...)
	tags = append(tags, phoneRe.FindAllString(content, -1)...)
	return tags
}
