package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source supplies raw mapping bytes together with a cache identity.
type Source interface {
	// Name is a human readable name, e.g. the file name without extension.
	Name() string
	// Identity changes whenever the content may have changed.
	Identity() (string, error)
	Open() ([]byte, error)
}

// FileSource reads mappings from a file. Its identity is the absolute path
// plus size and modification time.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s FileSource) Identity() (string, error) {
	abs, err := filepath.Abs(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", s.Path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("failed to stat mappings: %w", err)
	}
	return fmt.Sprintf("file:%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano()), nil
}

func (s FileSource) Open() ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}
	return data, nil
}

// AbsPath returns the absolute path used in the identity.
func (s FileSource) AbsPath() string {
	abs, err := filepath.Abs(s.Path)
	if err != nil {
		return s.Path
	}
	return abs
}

// BytesSource serves mappings held in memory.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s BytesSource) Name() string { return s.Label }

func (s BytesSource) Identity() (string, error) {
	sum := sha256.Sum256(s.Data)
	return "bytes:" + s.Label + ":" + hex.EncodeToString(sum[:8]), nil
}

func (s BytesSource) Open() ([]byte, error) { return s.Data, nil }
