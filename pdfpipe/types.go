// Package pdfpipe converts PDF documents to Markdown plus extracted images.
//
// The pipeline splits a document into size-bounded page ranges, extracts each
// range in parallel (with OCR fallback for scanned pages), and merges the
// per-range fragments into one deterministic Markdown document. Output is
// written into a caller-provided directory laid out for archiving:
//
//	<outDir>/content_markdown.md
//	<outDir>/images_pdf/c<chunk>_p<page>_i<idx>.<ext>
//
// Usage:
//
//	pipe := pdfpipe.New(pdfpipe.Config{})
//	res, err := pipe.Process(ctx, data, true, outDir)
package pdfpipe

import "fmt"

// ImageDirName is the directory (relative to the output root) that receives
// extracted page images. Markdown references images as ImageDirName/<file>.
const ImageDirName = "images_pdf"

// MarkdownFileName is the merged Markdown file written into the output root.
const MarkdownFileName = "content_markdown.md"

// PageRange is a half-open [Start, End) interval of zero-based page indices.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Pages returns the number of pages covered by the range.
func (r PageRange) Pages() int { return r.End - r.Start }

func (r PageRange) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// ImageFile is one extracted image written to the image directory.
type ImageFile struct {
	// Name is the bare filename (c<chunk>_p<page>_i<idx>.<ext>).
	Name string `json:"name"`
	// Page is the 1-based page number the image was embedded on.
	Page int `json:"page"`
}

// ChunkResult is the output of extracting one page range. Immutable once
// produced; consumed only by the ordered merge.
type ChunkResult struct {
	Index    int
	Range    PageRange
	Markdown string
	Images   []ImageFile
	OCRPages int
}

// Result is the merged output of one conversion.
type Result struct {
	// Markdown is the full merged document, also written to
	// <outDir>/content_markdown.md.
	Markdown string `json:"-"`

	Pages    int         `json:"pages"`
	Chunks   int         `json:"chunks"`
	OCRPages int         `json:"ocr_pages"`
	Images   []ImageFile `json:"images"`

	// Quality carries extraction quality metrics over the merged text.
	Quality *ExtractionQuality `json:"quality,omitempty"`
}
