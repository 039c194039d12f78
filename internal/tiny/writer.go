package tiny

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/project-remapper/internal/mapping"
)

// Write serialises s as a two-namespace tiny v2 document. The
// escaped-names property is emitted when any name needs escaping.
func Write(w io.Writer, s *mapping.MappingSet) error {
	bw := bufio.NewWriter(w)
	escaped := needsEscaping(s)

	fmt.Fprintf(bw, "%s\t%s\t%s\n", Header, s.From(), s.To())
	if escaped {
		fmt.Fprintf(bw, "\t%s\n", EscapedNamesProperty)
	}

	name := func(n string) string {
		if escaped {
			return escape(n)
		}
		return n
	}

	for _, c := range s.Classes() {
		fmt.Fprintf(bw, "c\t%s\t%s\n", name(c.From), name(c.To))
		writeComment(bw, 1, c.Comment)
		for _, f := range c.Fields() {
			fmt.Fprintf(bw, "\tf\t%s\t%s\t%s\n", name(f.Desc), name(f.From), name(f.To))
			writeComment(bw, 2, f.Comment)
		}
		for _, m := range c.Methods() {
			fmt.Fprintf(bw, "\tm\t%s\t%s\t%s\n", name(m.Desc), name(m.From), name(m.To))
			writeComment(bw, 2, m.Comment)
			for _, p := range m.Params() {
				fmt.Fprintf(bw, "\t\tp\t%d\t%s\t%s\n", p.Index, name(p.From), name(p.To))
				writeComment(bw, 3, p.Comment)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write tiny mappings: %w", err)
	}
	return nil
}

func writeComment(w *bufio.Writer, depth int, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(w, "%sc\t%s\n", strings.Repeat("\t", depth), escape(text))
}

func needsEscaping(s *mapping.MappingSet) bool {
	for _, e := range s.Entries() {
		if strings.ContainsAny(e.Name+e.To+e.Desc, "\\\n\r\t\x00") {
			return true
		}
	}
	return false
}

var escaper = strings.NewReplacer(
	"\\", `\\`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\x00", `\0`,
)

func escape(s string) string {
	return escaper.Replace(s)
}

func unescape(s string) (string, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '0':
			b.WriteByte(0)
		default:
			return "", fmt.Errorf("invalid escape \\%c in %q", s[i], s)
		}
	}
	return b.String(), nil
}
