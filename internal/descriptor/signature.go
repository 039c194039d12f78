package descriptor

import (
	"fmt"
	"strings"
)

// MapSignature rewrites the class names referenced by a generic signature
// (class, method or field signature). Inner class segments ("Outer<T>.Inner")
// are remapped through their binary name ("Outer$Inner").
func MapSignature(sig string, mapClass ClassMapper) (string, error) {
	if strings.IndexByte(sig, 'L') < 0 {
		return sig, nil
	}

	p := &sigParser{s: sig, mapClass: mapClass}
	p.out.Grow(len(sig))

	if p.peek() == '<' {
		if err := p.typeParameters(); err != nil {
			return "", err
		}
	}

	if p.peek() == '(' {
		if err := p.methodRest(); err != nil {
			return "", err
		}
	} else {
		for p.pos < len(p.s) {
			if err := p.referenceType(); err != nil {
				return "", err
			}
		}
	}

	if p.pos != len(p.s) {
		return "", p.errorf("trailing data")
	}
	return p.out.String(), nil
}

type sigParser struct {
	s        string
	pos      int
	out      strings.Builder
	mapClass ClassMapper
}

func (p *sigParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *sigParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: signature %q at %d: %s", ErrMalformed, p.s, p.pos, fmt.Sprintf(format, args...))
}

func (p *sigParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.out.WriteByte(c)
	p.pos++
	return nil
}

// identifier copies characters up to (not including) any of stop.
func (p *sigParser) identifier(stop string) string {
	start := p.pos
	for p.pos < len(p.s) && strings.IndexByte(stop, p.s[p.pos]) < 0 {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *sigParser) typeParameters() error {
	if err := p.expect('<'); err != nil {
		return err
	}
	for p.peek() != '>' {
		if p.pos >= len(p.s) {
			return p.errorf("unterminated type parameters")
		}
		name := p.identifier(":>")
		if name == "" {
			return p.errorf("empty type parameter name")
		}
		p.out.WriteString(name)
		if err := p.expect(':'); err != nil {
			return err
		}
		// Class bound may be empty ("T::Ljava/lang/Comparable;").
		if c := p.peek(); c == 'L' || c == 'T' || c == '[' {
			if err := p.referenceType(); err != nil {
				return err
			}
		}
		for p.peek() == ':' {
			p.out.WriteByte(':')
			p.pos++
			if err := p.referenceType(); err != nil {
				return err
			}
		}
	}
	return p.expect('>')
}

func (p *sigParser) methodRest() error {
	if err := p.expect('('); err != nil {
		return err
	}
	for p.peek() != ')' {
		if p.pos >= len(p.s) {
			return p.errorf("unterminated parameters")
		}
		if err := p.javaType(); err != nil {
			return err
		}
	}
	p.out.WriteByte(')')
	p.pos++

	if p.peek() == 'V' {
		p.out.WriteByte('V')
		p.pos++
	} else if err := p.javaType(); err != nil {
		return err
	}

	for p.peek() == '^' {
		p.out.WriteByte('^')
		p.pos++
		if err := p.referenceType(); err != nil {
			return err
		}
	}
	return nil
}

func (p *sigParser) javaType() error {
	switch p.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		p.out.WriteByte(p.s[p.pos])
		p.pos++
		return nil
	default:
		return p.referenceType()
	}
}

func (p *sigParser) referenceType() error {
	switch p.peek() {
	case 'L':
		return p.classType()
	case 'T':
		name := p.identifier(";")
		p.out.WriteString(name)
		return p.expect(';')
	case '[':
		p.out.WriteByte('[')
		p.pos++
		return p.javaType()
	default:
		return p.errorf("expected reference type")
	}
}

func (p *sigParser) classType() error {
	p.out.WriteByte('L')
	p.pos++

	binary := p.identifier("<.;")
	if binary == "" {
		return p.errorf("empty class name")
	}
	p.out.WriteString(p.mapClass(binary))

	if p.peek() == '<' {
		if err := p.typeArguments(); err != nil {
			return err
		}
	}

	for p.peek() == '.' {
		p.pos++
		simple := p.identifier("<.;")
		if simple == "" {
			return p.errorf("empty inner class name")
		}
		inner := binary + "$" + simple
		p.out.WriteByte('.')
		p.out.WriteString(SimpleName(p.mapClass(binary), p.mapClass(inner)))
		binary = inner

		if p.peek() == '<' {
			if err := p.typeArguments(); err != nil {
				return err
			}
		}
	}

	return p.expect(';')
}

func (p *sigParser) typeArguments() error {
	if err := p.expect('<'); err != nil {
		return err
	}
	for p.peek() != '>' {
		switch p.peek() {
		case 0:
			return p.errorf("unterminated type arguments")
		case '*':
			p.out.WriteByte('*')
			p.pos++
		case '+', '-':
			p.out.WriteByte(p.s[p.pos])
			p.pos++
			if err := p.referenceType(); err != nil {
				return err
			}
		default:
			if err := p.referenceType(); err != nil {
				return err
			}
		}
	}
	return p.expect('>')
}

// SimpleName derives an inner class's simple name from the mapped outer and
// inner binary names.
func SimpleName(mappedOuter, mappedInner string) string {
	if strings.HasPrefix(mappedInner, mappedOuter+"$") {
		return mappedInner[len(mappedOuter)+1:]
	}
	return mappedInner[max(strings.LastIndexByte(mappedInner, '$'), strings.LastIndexByte(mappedInner, '/'))+1:]
}
