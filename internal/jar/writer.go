package jar

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// Writer writes a jar. Each name may be written once; the manifest, when
// present, must come before any other file entry.
type Writer struct {
	zw         *zip.Writer
	seen       map[string]bool
	wroteFiles bool
	count      int
}

// NewWriter writes a jar to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), seen: make(map[string]bool)}
}

// Write adds one entry. Directories (names ending in "/") are stored without
// data.
func (w *Writer) Write(name string, data []byte, modified time.Time) error {
	if w.seen[name] {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}
	dir := len(name) > 0 && name[len(name)-1] == '/'
	if name == ManifestName && w.wroteFiles {
		return fmt.Errorf("manifest must be written before other entries")
	}
	w.seen[name] = true

	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified}
	if dir {
		header.Method = zip.Store
	}
	out, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", name, err)
	}
	if !dir {
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("failed to write entry %s: %w", name, err)
		}
		w.wroteFiles = true
	}
	w.count++
	return nil
}

// Count returns the number of entries written.
func (w *Writer) Count() int { return w.count }

// Close finishes the archive. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}
