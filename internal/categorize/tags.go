package categorize

import "regexp"

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	urlRe   = regexp.MustCompile(`https?://[^\s]+`)
	dateRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\-. ]{7,}\d\b`)
)

// extractTags is the mechanical half of categorization tag extraction
// (spec.md §4.7): regex matches for emails/URLs/dates/phone numbers.
// Semantic tags from the extraction provider are merged in by Categorize.
func extractTags(content string) []string {
	var tags []string
	tags = append(tags, emailRe.FindAllString(content, -1)...)
	tags = append(tags, urlRe.FindAllString(content, -1)...)
	tags = append(tags, dateRe.FindAllString(content, -1)...)
	tags = append(tags, phoneRe.FindAllString(content, -1)...)
	return tags
}
