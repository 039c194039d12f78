package jar

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// ErrManifest indicates a manifest that does not follow the jar manifest
// syntax.
var ErrManifest = errors.New("malformed manifest")

// Attribute is one "Key: Value" pair.
type Attribute struct {
	Key   string
	Value string
}

// Section is the main section or a per-entry section of a manifest.
// Attribute keys are case-insensitive.
type Section struct {
	Attributes []Attribute
}

// Get returns the value of key.
func (s *Section) Get(key string) (string, bool) {
	for _, a := range s.Attributes {
		if strings.EqualFold(a.Key, key) {
			return a.Value, true
		}
	}
	return "", false
}

// Set replaces the value of key, appending it when absent.
func (s *Section) Set(key, value string) {
	for i, a := range s.Attributes {
		if strings.EqualFold(a.Key, key) {
			s.Attributes[i].Value = value
			return
		}
	}
	s.Attributes = append(s.Attributes, Attribute{Key: key, Value: value})
}

// Name returns the Name attribute of a per-entry section.
func (s *Section) Name() string {
	name, _ := s.Get("Name")
	return name
}

// Digests returns the "<algorithm>-Digest" attributes keyed by algorithm.
func (s *Section) Digests() []Attribute {
	var out []Attribute
	for _, a := range s.Attributes {
		if len(a.Key) > len("-Digest") && strings.EqualFold(a.Key[len(a.Key)-len("-Digest"):], "-Digest") {
			out = append(out, Attribute{Key: a.Key[:len(a.Key)-len("-Digest")], Value: a.Value})
		}
	}
	return out
}

// Manifest is a parsed META-INF/MANIFEST.MF.
type Manifest struct {
	Main     Section
	Sections []*Section
}

// Section returns the per-entry section for name.
func (m *Manifest) Section(name string) (*Section, bool) {
	for _, s := range m.Sections {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// ParseManifest parses manifest bytes. Continuation lines start with a
// single space; sections are separated by blank lines.
func ParseManifest(data []byte) (*Manifest, error) {
	text := strings.ReplaceAll(strings.ReplaceAll(string(data), "\r\n", "\n"), "\r", "\n")

	m := &Manifest{}
	current := &m.Main
	inMain := true
	for i, line := range strings.Split(text, "\n") {
		switch {
		case line == "":
			if !inMain && len(current.Attributes) == 0 {
				continue
			}
			inMain = false
			current = &Section{}
			m.Sections = append(m.Sections, current)
		case line[0] == ' ':
			if len(current.Attributes) == 0 {
				return nil, fmt.Errorf("%w: line %d: continuation without attribute", ErrManifest, i+1)
			}
			current.Attributes[len(current.Attributes)-1].Value += line[1:]
		default:
			key, value, ok := strings.Cut(line, ": ")
			if !ok || key == "" {
				return nil, fmt.Errorf("%w: line %d: expected \"Key: Value\"", ErrManifest, i+1)
			}
			current.Attributes = append(current.Attributes, Attribute{Key: key, Value: value})
		}
	}

	sections := m.Sections[:0]
	for _, s := range m.Sections {
		if len(s.Attributes) == 0 {
			continue
		}
		if s.Name() == "" {
			return nil, fmt.Errorf("%w: section without Name", ErrManifest)
		}
		sections = append(sections, s)
	}
	m.Sections = sections
	return m, nil
}

// Bytes serialises the manifest with CRLF line endings, wrapping lines at
// 72 bytes.
func (m *Manifest) Bytes() []byte {
	var b bytes.Buffer
	writeSection(&b, &m.Main)
	b.WriteString("\r\n")
	for _, s := range m.Sections {
		writeSection(&b, s)
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

func writeSection(b *bytes.Buffer, s *Section) {
	for _, a := range s.Attributes {
		line := a.Key + ": " + a.Value
		limit := 72
		for len(line) > limit {
			b.WriteString(line[:limit])
			b.WriteString("\r\n ")
			line = line[limit:]
			limit = 71
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}
}

// Digest computes the manifest digest of data for an algorithm name such as
// "SHA-256" or "SHA1". ok is false for unsupported algorithms.
func Digest(algorithm string, data []byte) (digest string, ok bool) {
	var h hash.Hash
	switch strings.ToUpper(strings.ReplaceAll(algorithm, "-", "")) {
	case "SHA256":
		h = sha256.New()
	case "SHA384":
		h = sha512.New384()
	case "SHA512":
		h = sha512.New()
	case "SHA1":
		h = sha1.New()
	case "MD5":
		h = md5.New()
	default:
		return "", false
	}
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), true
}

// MainClass returns the Main-Class of the main section as an internal name.
func (m *Manifest) MainClass() (string, bool) {
	v, ok := m.Main.Get("Main-Class")
	if !ok || v == "" {
		return "", false
	}
	return strings.ReplaceAll(strings.TrimSpace(v), ".", "/"), true
}
