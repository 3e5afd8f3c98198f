package pdfpipe

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoPages is returned when a document opens cleanly but has zero pages.
var ErrNoPages = errors.New("pdf has no pages")

// Document is an opened handle on an uploaded PDF. The handle itself is
// read-only after Open: concurrent workers never share mutable state, each
// derives its own sub-document from the raw bytes.
type Document struct {
	raw       []byte
	pageCount int
}

// OpenDocument parses and validates raw PDF bytes.
func OpenDocument(data []byte) (*Document, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	if ctx.PageCount == 0 {
		return nil, ErrNoPages
	}
	return &Document{raw: data, pageCount: ctx.PageCount}, nil
}

// PageCount returns the total number of pages.
func (d *Document) PageCount() int { return d.pageCount }

// SubDocument serializes a new PDF containing exactly the pages of r.
// Each call works on an independent reader over the raw bytes, so it is safe
// to call from concurrent workers.
func (d *Document) SubDocument(r PageRange) ([]byte, error) {
	if r.Start < 0 || r.End <= r.Start || r.End > d.pageCount {
		return nil, fmt.Errorf("invalid page range %s for %d pages", r, d.pageCount)
	}
	var buf bytes.Buffer
	sel := []string{fmt.Sprintf("%d-%d", r.Start+1, r.End)}
	if err := api.Trim(bytes.NewReader(d.raw), &buf, sel, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("trim %s: %w", r, err)
	}
	return buf.Bytes(), nil
}

// RangeSize measures the serialized byte size of the sub-document covering r.
// This is the trial serialization the splitter relies on: the sub-document is
// materialized only to be measured, then discarded.
func (d *Document) RangeSize(r PageRange) (int64, error) {
	sub, err := d.SubDocument(r)
	if err != nil {
		return 0, err
	}
	return int64(len(sub)), nil
}
