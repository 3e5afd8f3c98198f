package pdfpipe

// rangeSizer is the single document primitive the splitter needs: measure the
// serialized byte size of a page range.
type rangeSizer interface {
	RangeSize(r PageRange) (int64, error)
}

// stepRanges partitions [0, totalPages) into fixed-step ranges.
func stepRanges(totalPages, step int) []PageRange {
	var out []PageRange
	for i := 0; i < totalPages; i += step {
		end := i + step
		if end > totalPages {
			end = totalPages
		}
		out = append(out, PageRange{Start: i, End: end})
	}
	return out
}

// SplitRanges computes the chunk ranges Process would use for doc, without
// extracting anything.
func (p *Pipeline) SplitRanges(doc *Document, chunkable bool) []PageRange {
	return p.splitRanges(doc, doc.PageCount(), chunkable)
}

// splitRanges computes the final ordered chunk ranges for a document.
//
// With chunkable disabled the result is exactly the coarse fixed-step
// partition. Small documents (at or under the MinPages floor) are never
// partitioned at all and come back as a single whole-document range. Anything
// larger starts from the coarse partition and refines each range by measured
// size.
//
// The result is contiguous and exhaustive: the union of the returned ranges
// covers [0, totalPages) with no gaps or overlaps, ordered by start index.
func (p *Pipeline) splitRanges(sizer rangeSizer, totalPages int, chunkable bool) []PageRange {
	coarse := stepRanges(totalPages, p.cfg.FirstPassStep)
	if !chunkable {
		return coarse
	}
	if totalPages <= p.cfg.MinPages {
		return []PageRange{{Start: 0, End: totalPages}}
	}
	var out []PageRange
	for _, r := range coarse {
		p.splitBySize(sizer, r, &out)
	}
	return out
}

// splitBySize recursively refines r, appending accepted ranges to out in
// ascending start order. Each recursion strictly shrinks the range and the
// one-page floor is a hard terminal, so the recursion always ends and never
// yields an empty range.
func (p *Pipeline) splitBySize(sizer rangeSizer, r PageRange, out *[]PageRange) {
	if r.Pages() <= p.cfg.MinPages {
		*out = append(*out, r)
		return
	}

	size, err := sizer.RangeSize(r)
	if err != nil {
		// Measurement failure must not fail the request: accept the
		// range unsplit and let extraction deal with it.
		p.logger.Warn("trial serialization failed, accepting range unsplit",
			"range", r.String(), "error", err)
		*out = append(*out, r)
		return
	}

	// The threshold is a looser accept bound than the target: both land in
	// the same branch so that marginally-large ranges are not oversplit.
	if size <= p.cfg.ChunkTarget || size <= p.cfg.ChunkThreshold {
		*out = append(*out, r)
		return
	}

	// Quarter the range, minimum step of one page.
	step := r.Pages() / 4
	if step < 1 {
		step = 1
	}
	for i := r.Start; i < r.End; i += step {
		end := i + step
		if end > r.End {
			end = r.End
		}
		p.splitBySize(sizer, PageRange{Start: i, End: end}, out)
	}
}
