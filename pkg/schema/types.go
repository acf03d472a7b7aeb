package schema

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// TypeExpr is a parsed type expression such as `u8`, `string(4)`,
// `array<u16, 3>` or `map<string, vec<Trader>>`.
type TypeExpr struct {
	Name string
	// Size is the fixed length given in parentheses, or -1.
	Size int
	// Params are the type parameters inside angle brackets.
	Params []*TypeExpr
	// Count is the trailing integer parameter of array<T, N>, or -1.
	Count int
}

func (e *TypeExpr) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	if e.Size >= 0 {
		b.WriteString("(" + strconv.Itoa(e.Size) + ")")
	}
	if len(e.Params) > 0 || e.Count >= 0 {
		parts := make([]string, 0, len(e.Params)+1)
		for _, p := range e.Params {
			parts = append(parts, p.String())
		}
		if e.Count >= 0 {
			parts = append(parts, strconv.Itoa(e.Count))
		}
		b.WriteString("<" + strings.Join(parts, ", ") + ">")
	}
	return b.String()
}

// ParseType parses a type expression.
func ParseType(src string) (*TypeExpr, error) {
	p := &parser{src: src}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Mark(errors.Wrapf(errors.Newf(format, args...), "type %q at %d", p.src, p.pos), ErrInvalidSchema)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) number() (int, bool) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, false
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		p.pos = start
		return 0, false
	}
	return n, true
}

func (p *parser) expr() (*TypeExpr, error) {
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected a type name")
	}
	if name[0] >= '0' && name[0] <= '9' {
		return nil, p.errorf("type name %q starts with a digit", name)
	}
	e := &TypeExpr{Name: name, Size: -1, Count: -1}
	if p.peek() == '(' {
		p.pos++
		n, ok := p.number()
		if !ok {
			return nil, p.errorf("expected a length")
		}
		e.Size = n
		if err := p.expect(')'); err != nil {
			return nil, err
		}
	}
	if p.peek() != '<' {
		return e, nil
	}
	p.pos++
	for {
		if e.Count >= 0 {
			return nil, p.errorf("count must be the last parameter")
		}
		if n, ok := p.number(); ok {
			e.Count = n
		} else {
			param, err := p.expr()
			if err != nil {
				return nil, err
			}
			e.Params = append(e.Params, param)
		}
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return e, nil
		default:
			return nil, p.errorf("expected ',' or '>'")
		}
	}
}
