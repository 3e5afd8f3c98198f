package pdfpipe

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractChunk turns one page range into a self-contained Markdown fragment
// plus image files written under imgDir. It operates on its own sub-document
// copy (sub) and owns the c<idx>_* slice of the image namespace, so no
// locking is needed against other workers.
//
// Per-page failures degrade to an empty page and never abort the chunk.
func (p *Pipeline) extractChunk(ctx context.Context, idx int, rng PageRange, sub []byte, imgDir string) (*ChunkResult, error) {
	fz, err := fitz.NewFromMemory(sub)
	if err != nil {
		return nil, fmt.Errorf("open chunk %d: %w", idx, err)
	}
	defer fz.Close()

	// Separate pdfcpu context for embedded image streams; go-fitz only
	// renders and extracts text.
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(sub), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", idx, err)
	}

	res := &ChunkResult{Index: idx, Range: rng}
	parts := []string{fmt.Sprintf("# Chunk %d-%d", rng.Start+1, rng.End)}

	for i := 0; i < rng.Pages(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := rng.Start + i + 1 // 1-based absolute page number

		text, usedOCR := p.pageText(ctx, fz, i, page)

		images := p.pageImages(pctx, i, page, idx, imgDir)
		res.Images = append(res.Images, images...)
		if usedOCR {
			res.OCRPages++
		}

		if text == "" && len(images) == 0 {
			continue
		}

		header := fmt.Sprintf("## Page %d", page)
		if usedOCR {
			header += " (OCR)"
		}
		parts = append(parts, header)
		if text != "" {
			parts = append(parts, text)
		}
		for _, img := range images {
			parts = append(parts, fmt.Sprintf("![p%d](%s/%s)", page, ImageDirName, img.Name))
		}
	}

	res.Markdown = strings.Join(parts, "\n\n")
	return res, nil
}

// pageText extracts the text of sub-document page i (absolute page number
// page), falling back to OCR when the page has no extractable text layer.
// The second return value reports whether the text is OCR-derived.
func (p *Pipeline) pageText(ctx context.Context, fz *fitz.Document, i, page int) (string, bool) {
	raw, err := fz.Text(i)
	if err != nil {
		p.logger.Warn("page text extraction failed", "page", page, "error", err)
		raw = ""
	}
	text := cleanText(joinBlocks(strings.Split(raw, "\n\n")))
	if text != "" {
		return text, false
	}

	// No text layer: render at the configured resolution and recognize.
	img, err := fz.ImageDPI(i, float64(p.cfg.OCRResolution))
	if err != nil {
		p.logger.Warn("page render failed, skipping OCR", "page", page, "error", err)
		return "", false
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		p.logger.Warn("page encode failed, skipping OCR", "page", page, "error", err)
		return "", false
	}
	recognized, err := p.cfg.OCR.Recognize(ctx, buf.Bytes(), p.cfg.OCRLanguages, p.cfg.OCRResolution)
	if err != nil {
		p.logger.Warn("ocr failed, page degrades to empty", "page", page, "error", err)
		return "", false
	}
	return cleanText(recognized), true
}

// pageImages writes every embedded raster image of sub-document page i into
// imgDir under collision-free names and returns their records. Image
// extraction failures are logged and skipped, never fatal.
func (p *Pipeline) pageImages(pctx *model.Context, i, page, chunk int, imgDir string) []ImageFile {
	found, err := pdfcpu.ExtractPageImages(pctx, i+1, false)
	if err != nil {
		p.logger.Warn("image extraction failed", "page", page, "error", err)
		return nil
	}
	if len(found) == 0 {
		return nil
	}

	// Deterministic per-page image order: ascending object number.
	objNrs := make([]int, 0, len(found))
	for nr := range found {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	var out []ImageFile
	imgIdx := 0
	for _, nr := range objNrs {
		img := found[nr]
		data, err := io.ReadAll(img)
		if err != nil {
			p.logger.Warn("image read failed", "page", page, "obj", nr, "error", err)
			continue
		}
		imgIdx++
		name := fmt.Sprintf("c%d_p%d_i%d.%s", chunk, page, imgIdx, img.FileType)
		if err := os.WriteFile(filepath.Join(imgDir, name), data, 0644); err != nil {
			p.logger.Warn("image write failed", "file", name, "error", err)
			imgIdx--
			continue
		}
		out = append(out, ImageFile{Name: name, Page: page})
	}
	return out
}
