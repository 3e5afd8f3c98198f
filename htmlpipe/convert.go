// Package htmlpipe converts HTML documents to Markdown: title extraction,
// sanitization, then CommonMark conversion. The output uses the same single
// ZIP contract as the PDF and Word pipelines, without an image directory.
package htmlpipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/mdpress/pdfpipe"
)

var (
	ErrUnsupported = errors.New("htmlpipe: unsupported file type")
	ErrNoContent   = errors.New("htmlpipe: no convertible content")
)

type Config struct {
	Logger *slog.Logger
}

type Converter struct {
	policy *bluemonday.Policy
	md     *converter.Converter
	logger *slog.Logger
}

func New(cfg Config) *Converter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Converter{
		policy: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: cfg.Logger,
	}
}

// IsHTMLFile reports whether filename carries an HTML extension.
func IsHTMLFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Convert turns an HTML document into the ZIP archive bytes with
// output/content_markdown.md as the single member.
func (c *Converter) Convert(ctx context.Context, filename string, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsHTMLFile(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(filename))
	}

	md, err := c.Markdown(data)
	if err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "htmlpipe-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	if err := os.WriteFile(filepath.Join(tmp, pdfpipe.MarkdownFileName), []byte(md), 0644); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdfpipe.BuildArchive(&buf, tmp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Markdown converts raw HTML to sanitized Markdown. When the document has a
// <title> and the converted body does not start with a heading, the title
// becomes the top-level heading.
func (c *Converter) Markdown(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	title := findTitle(doc)

	// Render the body only so head metadata never leaks into the output.
	content := data
	if body := findNode(doc, atom.Body); body != nil {
		var b bytes.Buffer
		if err := html.Render(&b, body); err == nil {
			content = b.Bytes()
		}
	}

	clean := c.policy.SanitizeBytes(content)
	md, err := c.md.ConvertString(string(clean))
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	md = strings.TrimSpace(md)
	if md == "" && title == "" {
		return "", ErrNoContent
	}
	if title != "" && !strings.HasPrefix(md, "#") {
		md = strings.TrimSpace("# " + title + "\n\n" + md)
	}
	return md, nil
}

func findTitle(n *html.Node) string {
	if t := findNode(n, atom.Title); t != nil && t.FirstChild != nil {
		return strings.TrimSpace(t.FirstChild.Data)
	}
	return ""
}

func findNode(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, a); found != nil {
			return found
		}
	}
	return nil
}
