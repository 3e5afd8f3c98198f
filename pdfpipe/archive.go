package pdfpipe

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ArchiveRoot is the directory prefix every archive member lives under.
const ArchiveRoot = "output"

// BuildArchive writes the conversion output tree rooted at dir as a single
// ZIP to w. Every member is placed under ArchiveRoot, so the archive unpacks
// to output/content_markdown.md plus output/images_pdf/…. Member order
// follows the lexical directory walk and is deterministic.
func BuildArchive(w io.Writer, dir string) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		member, err := zw.Create(path.Join(ArchiveRoot, filepath.ToSlash(rel)))
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(member, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("build archive: %w", err)
	}
	return zw.Close()
}
