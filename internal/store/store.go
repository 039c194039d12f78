// Package store turns raw bytes into mapping sets. Load detects the format by
// magic header: a zip container holding mappings/mappings.tiny, or a bare tiny
// v2 stream.
package store

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mvp-joe/project-remapper/internal/mapping"
	"github.com/mvp-joe/project-remapper/internal/tiny"
)

// MappingsEntry is the conventional location of the mapping stream inside a
// container.
const MappingsEntry = "mappings/mappings.tiny"

var zipMagic = []byte("PK\x03\x04")

// ErrFormat is matched by every FormatError.
var ErrFormat = errors.New("unrecognized mapping format")

// FormatError reports bytes that are not a recognised mapping stream, a
// container without a mapping entry, or a stream that is truncated or
// malformed.
type FormatError struct {
	Source string // display name, may be empty
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "invalid mappings"
	if e.Source != "" {
		msg += " " + e.Source
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// LoadOptions selects the namespace pair to project. Zero values mean the
// first and last namespace of the stream.
type LoadOptions struct {
	From mapping.Namespace
	To   mapping.Namespace
}

// Load parses data with default options.
func Load(data []byte) (*mapping.MappingSet, error) {
	return LoadWith(data, LoadOptions{})
}

// LoadWith parses data and projects the requested namespace pair.
func LoadWith(data []byte, opts LoadOptions) (*mapping.MappingSet, error) {
	doc, err := LoadDocument(data)
	if err != nil {
		return nil, err
	}

	from, to := opts.From, opts.To
	if from == "" {
		from = doc.Namespaces[0]
	}
	if to == "" {
		to = doc.Namespaces[len(doc.Namespaces)-1]
	}

	set, err := doc.MappingSet(from, to)
	if err != nil {
		return nil, &FormatError{Reason: "namespace not declared", Err: err}
	}
	return set, nil
}

// LoadDocument detects the format and parses the complete tiny document,
// keeping every namespace.
func LoadDocument(data []byte) (*tiny.Document, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		inner, err := extract(data)
		if err != nil {
			return nil, err
		}
		return parseTiny(inner)
	case bytes.HasPrefix(data, []byte(tiny.Header)):
		return parseTiny(data)
	default:
		return nil, &FormatError{Reason: "neither a zip container nor a tiny v2 stream"}
	}
}

func extract(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &FormatError{Reason: "corrupt container", Err: err}
	}

	for _, f := range zr.File {
		if f.Name != MappingsEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &FormatError{Reason: "cannot open " + MappingsEntry, Err: err}
		}
		defer rc.Close()

		inner, err := io.ReadAll(rc)
		if err != nil {
			return nil, &FormatError{Reason: "truncated " + MappingsEntry, Err: err}
		}
		return inner, nil
	}
	return nil, &FormatError{Reason: fmt.Sprintf("container has no %s entry", MappingsEntry)}
}

func parseTiny(data []byte) (*tiny.Document, error) {
	if !bytes.HasPrefix(data, []byte(tiny.Header)) {
		return nil, &FormatError{Reason: "mapping entry is not a tiny v2 stream"}
	}
	doc, err := tiny.ParseBytes(data)
	if err != nil {
		return nil, &FormatError{Reason: "malformed tiny v2 stream", Err: err}
	}
	return doc, nil
}
