package pdfpipe

import (
	"strings"
	"unicode"
)

// ExtractionQuality captures metrics about the merged extraction output,
// letting downstream consumers judge whether the text is trustworthy.
type ExtractionQuality struct {
	PageCount      int     `json:"page_count"`
	CharsPerPage   float64 `json:"chars_per_page"`
	PrintableRatio float64 `json:"printable_ratio"`
	WordlikeRatio  float64 `json:"wordlike_ratio"`
	ImageCount     int     `json:"image_count"`
}

// Suspect returns true when the output looks like garbage extraction
// (mostly unprintable runes or token soup) rather than real text.
func (q *ExtractionQuality) Suspect() bool {
	return q.PrintableRatio < 0.85 || (q.CharsPerPage > 0 && q.WordlikeRatio < 0.5)
}

func measureQuality(pages int, text string, imageCount int) *ExtractionQuality {
	q := &ExtractionQuality{
		PageCount:      pages,
		PrintableRatio: printableRatio(text),
		WordlikeRatio:  wordlikeRatio(text),
		ImageCount:     imageCount,
	}
	if pages > 0 {
		q.CharsPerPage = float64(len([]rune(text))) / float64(pages)
	}
	return q
}

// printableRatio returns the ratio of printable characters in text.
// Counts Private Use Area runes, U+FFFD and stray control chars as garbage.
func printableRatio(text string) float64 {
	if text == "" {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if garbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func garbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// wordlikeRatio returns the ratio of tokens with a plausible word length
// (2-15 runes) to total tokens.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := len([]rune(f))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
