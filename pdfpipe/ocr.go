package pdfpipe

import (
	"context"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"
)

// OCREngine recognizes text in an encoded page image. Implementations must be
// safe for concurrent use; the pipeline calls Recognize from multiple workers.
type OCREngine interface {
	// Recognize returns the text found in a PNG-encoded page image.
	// langs is the candidate language set, dpi the render resolution.
	Recognize(ctx context.Context, png []byte, langs []string, dpi int) (string, error)
}

// TesseractEngine is the default OCREngine, backed by gosseract. A fresh
// client is created per call, so the engine is safe to share across workers.
type TesseractEngine struct{}

// Recognize runs Tesseract over a PNG-encoded page image.
func (e *TesseractEngine) Recognize(ctx context.Context, png []byte, langs []string, dpi int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(dpi)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
