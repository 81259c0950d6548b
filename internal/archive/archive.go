// Package archive expands uploaded ZIP archives into documents and packs
// organized directory trees back into ZIP bytes.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"fjacquet/fiscal-organizer/internal/fiscalerror"
	"fjacquet/fiscal-organizer/internal/models"

	"github.com/klauspost/compress/zip"
)

// MaxEntrySize caps a single decompressed entry.
const MaxEntrySize int64 = 512 << 20

// fixedModTime keeps the produced archives byte-stable across runs.
var fixedModTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Expand returns the non-directory entries of a ZIP document in listing
// order. Entry names are reduced to their base name and each document
// records the archive it came from.
func Expand(doc models.Document) ([]models.Document, error) {
	data := doc.Bytes()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &fiscalerror.ArchiveExpansionError{Name: doc.Name, Err: err}
	}

	docs := make([]models.Document, 0, len(reader.File))
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := models.BaseName(f.Name)
		if name == "" {
			continue
		}

		content, err := readEntry(f)
		if err != nil {
			return nil, &fiscalerror.ArchiveExpansionError{
				Name: doc.Name,
				Err:  fmt.Errorf("entry %s: %w", f.Name, err),
			}
		}
		docs = append(docs, models.NewDocument(name, content).WithSource(doc.Name))
	}
	return docs, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > MaxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", MaxEntrySize)
	}
	return content, nil
}

// ZipDirectory packs every regular file below dir. Entry names are the
// forward-slash paths relative to dir, written in lexical order.
func ZipDirectory(dir string) ([]byte, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, path := range paths {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize %s: %w", path, err)
		}
		content, err := os.ReadFile(path) // #nosec G304 -- paths come from our own walk
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := writeEntry(w, filepath.ToSlash(rel), content); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Entry is one file to be packed by ZipEntries.
type Entry struct {
	Path    string
	Content []byte
}

// ZipEntries packs in-memory entries in the given order.
func ZipEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		if err := writeEntry(w, e.Path, e.Content); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ZipDocuments packs documents flat, under their names.
func ZipDocuments(docs []models.Document) ([]byte, error) {
	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, Entry{Path: d.Name, Content: d.Bytes()})
	}
	return ZipEntries(entries)
}

func writeEntry(w *zip.Writer, name string, content []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: fixedModTime,
	}
	header.SetMode(models.PermissionReportFile)
	fw, err := w.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := fw.Write(content); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// List returns the entry names of a ZIP payload in listing order.
func List(data []byte) ([]string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	return names, nil
}
