// Package jar reads and writes jar containers and verifies remapped output
// against its input.
package jar

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ManifestName is the path of the manifest inside a jar.
const ManifestName = "META-INF/MANIFEST.MF"

var (
	// ErrDuplicateEntry indicates an entry name written or found twice.
	ErrDuplicateEntry = errors.New("duplicate jar entry")

	// ErrEntryNotFound indicates a missing entry.
	ErrEntryNotFound = errors.New("jar entry not found")
)

// Entry describes one entry of an open jar.
type Entry struct {
	Name     string
	Modified time.Time
	Size     uint64
}

// IsClass reports whether the entry holds a class file.
func (e Entry) IsClass() bool {
	return strings.HasSuffix(e.Name, ".class")
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// File is an open jar. Reads are safe for concurrent use.
type File struct {
	path   string
	zr     *zip.ReadCloser
	byName map[string]*zip.File
}

// Open opens the jar at path.
func Open(path string) (*File, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar %s: %w", path, err)
	}
	f := &File{path: path, zr: zr, byName: make(map[string]*zip.File, len(zr.File))}
	for _, zf := range zr.File {
		// The first of duplicate names wins, as with java.util.jar.
		if _, ok := f.byName[zf.Name]; !ok {
			f.byName[zf.Name] = zf
		}
	}
	return f, nil
}

// Path returns the path the jar was opened from.
func (f *File) Path() string { return f.path }

// Entries lists the entries in archive order.
func (f *File) Entries() []Entry {
	entries := make([]Entry, 0, len(f.zr.File))
	for _, zf := range f.zr.File {
		entries = append(entries, Entry{Name: zf.Name, Modified: zf.Modified, Size: zf.UncompressedSize64})
	}
	return entries
}

// Has reports whether the jar contains name.
func (f *File) Has(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Read returns the contents of an entry. A CRC mismatch is an error.
func (f *File) Read(name string) ([]byte, error) {
	zf, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, name, f.path)
	}
	return readZipFile(zf)
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", zf.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", zf.Name, err)
	}
	return data, nil
}

// ClassBytes returns the class named by an internal name, making the jar an
// inheritance.ClassProvider.
func (f *File) ClassBytes(name string) ([]byte, bool, error) {
	if !f.Has(name + ".class") {
		return nil, false, nil
	}
	data, err := f.Read(name + ".class")
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Manifest parses the jar's manifest. It returns nil when there is none.
func (f *File) Manifest() (*Manifest, error) {
	if !f.Has(ManifestName) {
		return nil, nil
	}
	data, err := f.Read(ManifestName)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// Close releases the underlying file.
func (f *File) Close() error {
	return f.zr.Close()
}
