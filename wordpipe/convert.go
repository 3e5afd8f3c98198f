// Package wordpipe converts Word documents (.doc, .docx) to Markdown by
// delegating to pandoc, extracting embedded media into an images_word/
// directory and packaging the result as a single ZIP.
package wordpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/mdpress/pdfpipe"
)

// ImageDirName is the archive directory holding extracted Word media.
const ImageDirName = "images_word"

var ErrUnsupported = errors.New("wordpipe: unsupported file type")

type Config struct {
	// PandocPath overrides the pandoc binary location. Empty means $PATH.
	PandocPath string
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.PandocPath == "" {
		c.PandocPath = "pandoc"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

type Converter struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Converter {
	cfg.defaults()
	return &Converter{cfg: cfg, logger: cfg.Logger}
}

// IsWordFile reports whether filename carries a Word document extension.
func IsWordFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".doc", ".docx":
		return true
	}
	return false
}

// Convert runs pandoc on the document and returns the ZIP archive bytes:
// output/content_markdown.md plus output/images_word/<media>.
func (c *Converter) Convert(ctx context.Context, filename string, data []byte) ([]byte, error) {
	if !IsWordFile(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(filename))
	}

	tmp, err := os.MkdirTemp("", "wordpipe-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	docPath := filepath.Join(tmp, "document"+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(docPath, data, 0600); err != nil {
		return nil, err
	}

	outDir := filepath.Join(tmp, "output")
	imgDir := filepath.Join(outDir, ImageDirName)
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		return nil, err
	}

	md, err := c.runPandoc(ctx, docPath, outDir)
	if err != nil {
		return nil, err
	}

	moved, err := collectMedia(outDir, imgDir)
	if err != nil {
		return nil, err
	}
	if moved > 0 {
		// pandoc may emit the absolute extract-media path in links.
		md = strings.ReplaceAll(md, "]("+outDir+"/", "](")
		md = rewriteMediaLinks(md)
	}
	c.logger.Debug("word conversion done", "file", filename, "media", moved)

	if err := os.WriteFile(filepath.Join(outDir, pdfpipe.MarkdownFileName), []byte(md), 0644); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdfpipe.BuildArchive(&buf, outDir); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Converter) runPandoc(ctx context.Context, docPath, outDir string) (string, error) {
	cmd := exec.CommandContext(ctx, c.cfg.PandocPath, docPath,
		"--to", "markdown",
		"--extract-media", outDir,
		"--wrap=none",
		"--markdown-headings=atx")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("pandoc: %s", msg)
	}
	return stdout.String(), nil
}

// collectMedia moves pandoc's media/ tree into imgDir, keeping relative
// paths so same-named files from different subdirectories never collide,
// then removes the emptied media directory. Returns the number of files
// moved.
func collectMedia(outDir, imgDir string) (int, error) {
	mediaDir := filepath.Join(outDir, "media")
	if _, err := os.Stat(mediaDir); err != nil {
		return 0, nil
	}

	moved := 0
	err := filepath.WalkDir(mediaDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(mediaDir, p)
		if err != nil {
			return err
		}
		dst := filepath.Join(imgDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		if err := os.Rename(p, dst); err != nil {
			return err
		}
		moved++
		return nil
	})
	if err != nil {
		return moved, fmt.Errorf("collect media: %w", err)
	}
	os.RemoveAll(mediaDir)
	return moved, nil
}

// rewriteMediaLinks repoints pandoc's media/ image references at the
// images_word/ directory the archive actually carries.
func rewriteMediaLinks(md string) string {
	return strings.ReplaceAll(md, "](media/", "]("+ImageDirName+"/")
}
