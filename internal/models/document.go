package models

import (
	"path"
	"path/filepath"
	"strings"
)

// Document is a single uploaded item. Regardless of where the bytes came
// from (CLI path, HTTP upload, archive entry) it is always a name plus content.
type Document struct {
	// Name is the original base filename including its extension.
	Name string
	// Source describes where the document came from, e.g. "upload" or "lote.zip".
	// It is informational only and never affects classification.
	Source string

	data    []byte
	readErr error
}

// NewDocument creates a Document. The name is reduced to its base component
// so archive entries and client-supplied paths cannot escape the output tree.
func NewDocument(name string, data []byte) Document {
	return Document{Name: BaseName(name), data: data}
}

// NewUnreadableDocument stands in for a file whose content could not be
// loaded. It is reported as unreadable instead of aborting the run.
func NewUnreadableDocument(name string, err error) Document {
	return Document{Name: BaseName(name), readErr: err}
}

// ReadErr returns the error that prevented the content from being loaded.
func (d Document) ReadErr() error {
	return d.readErr
}

// BaseName strips any directory component using both slash styles.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return base
}

// Bytes returns the raw content. Callers must not modify the returned slice.
func (d Document) Bytes() []byte {
	return d.data
}

// Size returns the content length in bytes.
func (d Document) Size() int {
	return len(d.data)
}

// IsEmpty reports whether the document has no content.
func (d Document) IsEmpty() bool {
	return len(d.data) == 0
}

// Ext returns the lowercased extension, including the dot.
func (d Document) Ext() string {
	return strings.ToLower(filepath.Ext(d.Name))
}

// LowerName returns the lowercased filename used by keyword matching.
func (d Document) LowerName() string {
	return strings.ToLower(d.Name)
}

// IsArchive reports whether the document is a ZIP archive by extension.
func (d Document) IsArchive() bool {
	return d.Ext() == ExtZIP
}

// WithSource returns a copy of d tagged with the given source.
func (d Document) WithSource(source string) Document {
	d.Source = source
	return d
}
