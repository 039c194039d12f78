package jar

import (
	"archive/zip"
	"errors"
	"fmt"
	"strings"
)

// ErrVerification is matched by every VerificationError.
var ErrVerification = errors.New("jar verification failed")

// VerificationError lists every problem found in an output jar.
type VerificationError struct {
	Path     string
	Problems []string
}

func (e *VerificationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "verification of %s failed:", e.Path)
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p)
	}
	return b.String()
}

func (e *VerificationError) Is(target error) bool {
	return target == ErrVerification
}

// Verify checks output as a remapped copy of input:
//   - entry names are unique and every entry passes its CRC check
//   - the manifest parses
//   - Main-Class and per-entry sections resolve if they resolved in input
//   - every "*-Digest" attribute matches its entry's bytes
func Verify(input, output string) error {
	in, err := Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	zr, err := zip.OpenReader(output)
	if err != nil {
		return &VerificationError{Path: output, Problems: []string{fmt.Sprintf("cannot open: %v", err)}}
	}
	defer zr.Close()

	v := &verifier{out: make(map[string][]byte, len(zr.File))}
	for _, zf := range zr.File {
		if _, dup := v.out[zf.Name]; dup {
			v.problem("duplicate entry %s", zf.Name)
			continue
		}
		data, err := readZipFile(zf)
		if err != nil {
			v.problem("%v", err)
		}
		v.out[zf.Name] = data
	}

	if data, ok := v.out[ManifestName]; ok {
		manifest, err := ParseManifest(data)
		if err != nil {
			v.problem("manifest: %v", err)
		} else {
			v.manifest(in, manifest)
		}
	}

	if len(v.problems) > 0 {
		return &VerificationError{Path: output, Problems: v.problems}
	}
	return nil
}

type verifier struct {
	out      map[string][]byte
	problems []string
}

func (v *verifier) problem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *verifier) manifest(in *File, m *Manifest) {
	// The input manifest is only needed to excuse references that were
	// already dangling.
	inManifest, err := in.Manifest()
	if err != nil {
		inManifest = nil
	}

	if mainClass, ok := m.MainClass(); ok {
		if _, found := v.out[mainClass+".class"]; !found && inputMainClassResolves(in, inManifest) {
			v.problem("Main-Class %s does not resolve", mainClass)
		}
	}

	for _, s := range m.Sections {
		name := s.Name()
		data, found := v.out[name]
		if !found {
			if in.Has(name) {
				v.problem("manifest section %s has no entry", name)
			}
			continue
		}
		for _, d := range s.Digests() {
			want, ok := Digest(d.Key, data)
			if ok && want != d.Value {
				v.problem("%s-Digest of %s does not match", d.Key, name)
			}
		}
	}
}

func inputMainClassResolves(in *File, m *Manifest) bool {
	if m == nil {
		return false
	}
	mainClass, ok := m.MainClass()
	return ok && in.Has(mainClass+".class")
}
