package types

import (
	"fmt"
	"strings"
)

// ParseType parses a descriptor produced by Type.Key.
func ParseType(s string) (Type, error) {
	p := &parser{in: s}
	t, err := p.parse()
	if err != nil {
		return Unknown(), err
	}
	if p.pos != len(p.in) {
		return Unknown(), fmt.Errorf("types: trailing input at %d in %q", p.pos, s)
	}
	return t, nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) parse() (Type, error) {
	name := p.ident()
	switch name {
	case "unknown":
		return Unknown(), nil
	case "null":
		return Null(), nil
	case "bool":
		return Bool(), nil
	case "i64":
		return I64(), nil
	case "f64":
		return F64(), nil
	case "str":
		return Str(), nil
	case "any":
		return Any(), nil
	case "opt":
		elem, err := p.group1()
		if err != nil {
			return Unknown(), err
		}
		return Option(elem), nil
	case "list":
		elem, err := p.group1()
		if err != nil {
			return Unknown(), err
		}
		return List(elem), nil
	case "map":
		if err := p.expect('('); err != nil {
			return Unknown(), err
		}
		key, err := p.parse()
		if err != nil {
			return Unknown(), err
		}
		if err := p.expect(','); err != nil {
			return Unknown(), err
		}
		val, err := p.parse()
		if err != nil {
			return Unknown(), err
		}
		if err := p.expect(')'); err != nil {
			return Unknown(), err
		}
		return Map(key, val), nil
	case "tup":
		if err := p.expect('('); err != nil {
			return Unknown(), err
		}
		var params []Type
		if !p.peek(')') {
			for {
				el, err := p.parse()
				if err != nil {
					return Unknown(), err
				}
				params = append(params, el)
				if !p.peek(',') {
					break
				}
				p.pos++
			}
		}
		if err := p.expect(')'); err != nil {
			return Unknown(), err
		}
		return Tuple(params...), nil
	default:
		return Unknown(), fmt.Errorf("types: unknown descriptor %q at %d", name, p.pos)
	}
}

func (p *parser) group1() (Type, error) {
	if err := p.expect('('); err != nil {
		return Unknown(), err
	}
	elem, err := p.parse()
	if err != nil {
		return Unknown(), err
	}
	if err := p.expect(')'); err != nil {
		return Unknown(), err
	}
	return elem, nil
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		if c == '(' || c == ')' || c == ',' {
			break
		}
		p.pos++
	}
	return strings.TrimSpace(p.in[start:p.pos])
}

func (p *parser) expect(c byte) error {
	if p.pos >= len(p.in) || p.in[p.pos] != c {
		return fmt.Errorf("types: expected %q at %d in %q", string(c), p.pos, p.in)
	}
	p.pos++
	return nil
}

func (p *parser) peek(c byte) bool {
	return p.pos < len(p.in) && p.in[p.pos] == c
}
