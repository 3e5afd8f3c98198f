package pdfpipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Process converts raw PDF bytes to Markdown plus extracted images, writing
// <outDir>/content_markdown.md and <outDir>/images_pdf/. outDir must exist.
//
// Processing either completes for every page range or fails as a whole: on
// context cancellation or any chunk-level failure no partial result is
// returned. Assembly order is the ascending range order computed up front,
// never worker completion order.
func (p *Pipeline) Process(ctx context.Context, data []byte, chunkable bool, outDir string) (*Result, error) {
	doc, err := OpenDocument(data)
	if err != nil {
		return nil, err
	}

	ranges := p.SplitRanges(doc, chunkable)
	if len(ranges) == 0 {
		return nil, fmt.Errorf("splitter produced no ranges for %d pages", doc.PageCount())
	}
	p.logger.Debug("chunk ranges computed", "pages", doc.PageCount(), "chunks", len(ranges), "chunkable", chunkable)

	imgDir := filepath.Join(outDir, ImageDirName)
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	results, err := p.runChunks(ctx, ranges, func(ctx context.Context, idx int, rng PageRange) (*ChunkResult, error) {
		sub, err := doc.SubDocument(rng)
		if err != nil {
			return nil, err
		}
		return p.extractChunk(ctx, idx, rng, sub, imgDir)
	})
	if err != nil {
		return nil, err
	}

	return p.merge(doc.PageCount(), results, outDir)
}

// chunkFn extracts one range. Factored out of Process so the fan-out/fan-in
// machinery is testable with synthetic workers.
type chunkFn func(ctx context.Context, idx int, rng PageRange) (*ChunkResult, error)

// runChunks fans out one worker per range onto a bounded pool and fans the
// results back in, indexed by range position. The only synchronization point
// is the final barrier; no worker observes another worker's progress.
func (p *Pipeline) runChunks(ctx context.Context, ranges []PageRange, fn chunkFn) ([]*ChunkResult, error) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)
	results := make([]*ChunkResult, len(ranges))
	errs := make([]error, len(ranges))

	for i, rng := range ranges {
		wg.Add(1)
		go func(i int, rng PageRange) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			res, err := fn(ctx, i, rng)
			if err != nil {
				errs[i] = fmt.Errorf("chunk %d %s: %w", i, rng, err)
				return
			}
			results[i] = res
		}(i, rng)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	// Every slot must be filled: a missing chunk would leave a gap in the
	// page coverage, which is fatal rather than silently tolerated.
	for i, res := range results {
		if res == nil {
			return nil, fmt.Errorf("chunk %d produced no result", i)
		}
	}
	return results, nil
}

// merge concatenates chunk fragments in range order and writes the Markdown
// file. results must already be ordered by range position.
func (p *Pipeline) merge(pages int, results []*ChunkResult, outDir string) (*Result, error) {
	fragments := make([]string, len(results))
	out := &Result{Pages: pages, Chunks: len(results)}
	for i, cr := range results {
		fragments[i] = cr.Markdown
		out.OCRPages += cr.OCRPages
		out.Images = append(out.Images, cr.Images...)
	}
	out.Markdown = strings.Join(fragments, "\n\n")
	out.Quality = measureQuality(pages, out.Markdown, len(out.Images))

	mdPath := filepath.Join(outDir, MarkdownFileName)
	if err := os.WriteFile(mdPath, []byte(out.Markdown), 0644); err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}
	return out, nil
}
