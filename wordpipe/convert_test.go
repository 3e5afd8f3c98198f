package wordpipe

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsWordFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.docx", true},
		{"legacy.doc", true},
		{"REPORT.DOCX", true},
		{"notes.pdf", false},
		{"archive.docx.zip", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsWordFile(tt.name); got != tt.want {
			t.Errorf("IsWordFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestConvert_RejectsNonWord(t *testing.T) {
	c := New(Config{Logger: testLogger()})
	_, err := c.Convert(context.Background(), "notes.txt", []byte("hi"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestRewriteMediaLinks(t *testing.T) {
	in := "text ![alt](media/image1.png) and ![x](media/sub.png) but [doc](media.docx)"
	got := rewriteMediaLinks(in)
	if strings.Contains(got, "](media/") {
		t.Errorf("media link survived: %s", got)
	}
	if !strings.Contains(got, "](images_word/image1.png)") {
		t.Errorf("link not repointed: %s", got)
	}
	if !strings.Contains(got, "[doc](media.docx)") {
		t.Errorf("unrelated link mangled: %s", got)
	}
}

func TestCollectMedia_PreservesSubdirectories(t *testing.T) {
	outDir := t.TempDir()
	imgDir := filepath.Join(outDir, ImageDirName)
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Two files sharing a base name in different subdirectories must both
	// survive the move.
	files := map[string]string{
		"media/a/image1.png": "first",
		"media/b/image1.png": "second",
		"media/image2.png":   "top",
	}
	for rel, content := range files {
		p := filepath.Join(outDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	moved, err := collectMedia(outDir, imgDir)
	if err != nil {
		t.Fatal(err)
	}
	if moved != 3 {
		t.Fatalf("moved = %d, want 3", moved)
	}

	for rel, want := range map[string]string{
		"a/image1.png": "first",
		"b/image1.png": "second",
		"image2.png":   "top",
	} {
		got, err := os.ReadFile(filepath.Join(imgDir, filepath.FromSlash(rel)))
		if err != nil {
			t.Errorf("%s: %v", rel, err)
			continue
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", rel, got, want)
		}
	}

	if _, err := os.Stat(filepath.Join(outDir, "media")); !os.IsNotExist(err) {
		t.Errorf("media directory not removed: %v", err)
	}
}

func TestConvert_Docx(t *testing.T) {
	if _, err := exec.LookPath("pandoc"); err != nil {
		t.Skip("pandoc not installed")
	}

	c := New(Config{Logger: testLogger()})
	out, err := c.Convert(context.Background(), "sample.docx", buildMinimalDocx(t))
	if err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatal(err)
	}
	var md []byte
	for _, f := range zr.File {
		if f.Name == "output/content_markdown.md" {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			md, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatal(err)
			}
		}
	}
	if md == nil {
		t.Fatal("archive has no output/content_markdown.md")
	}
	if !strings.Contains(string(md), "Hello from the test document") {
		t.Errorf("markdown content: %s", md)
	}
}

// buildMinimalDocx assembles the smallest .docx pandoc accepts: the OOXML
// content types, the package relationship and a one-paragraph document part.
func buildMinimalDocx(t *testing.T) []byte {
	t.Helper()
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>Hello from the test document</w:t></w:r></w:p></w:body>
</w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
