package pdfpipe

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	manyNewlinesRe = regexp.MustCompile(`\n{3,}`)
	manySpacesRe   = regexp.MustCompile(`[ \t]{2,}`)
)

// cleanText normalizes Unicode (NFKC) and collapses superfluous whitespace:
// runs of 3+ newlines become a blank line, runs of 2+ horizontal whitespace
// become a single space.
func cleanText(text string) string {
	text = norm.NFKC.String(text)
	text = manyNewlinesRe.ReplaceAllString(text, "\n\n")
	text = manySpacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// joinBlocks joins non-empty trimmed text blocks with newlines.
func joinBlocks(blocks []string) string {
	var parts []string
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b != "" {
			parts = append(parts, b)
		}
	}
	return strings.Join(parts, "\n")
}
