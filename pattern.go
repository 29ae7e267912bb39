package ijstack

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Pattern is an output path template with named fields in brace syntax,
// e.g. "img_z{z:04d}_c{c:01d}_t{t:04d}.tiff". Supported specs are an
// optional zero flag, a width and a 'd' or 's' verb. "{{" and "}}" are
// literal braces.
type Pattern struct {
	src   string
	parts []patternPart
}

type patternPart struct {
	literal string
	field   string
	zero    bool
	width   int
	verb    byte
}

// ParsePattern compiles a pattern.
func ParsePattern(s string) (*Pattern, error) {
	p := &Pattern{src: s}
	var lit strings.Builder

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '{' && i+1 < len(s) && s[i+1] == '{':
			lit.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(s) && s[i+1] == '}':
			lit.WriteByte('}')
			i++
		case ch == '}':
			return nil, fmt.Errorf("%w: single '}' at %d in %q", ErrPattern, i, s)
		case ch == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at %d in %q", ErrPattern, i, s)
			}
			part, err := parseField(s[i+1 : i+end])
			if err != nil {
				return nil, fmt.Errorf("%w: %v in %q", ErrPattern, err, s)
			}
			if lit.Len() > 0 {
				p.parts = append(p.parts, patternPart{literal: lit.String()})
				lit.Reset()
			}
			p.parts = append(p.parts, part)
			i += end
		default:
			lit.WriteByte(ch)
		}
	}
	if lit.Len() > 0 {
		p.parts = append(p.parts, patternPart{literal: lit.String()})
	}
	return p, nil
}

func parseField(f string) (patternPart, error) {
	name, spec, _ := strings.Cut(f, ":")
	if name == "" {
		return patternPart{}, fmt.Errorf("empty field name")
	}
	part := patternPart{field: name}
	if spec == "" {
		return part, nil
	}

	switch last := spec[len(spec)-1]; last {
	case 'd', 's':
		part.verb = last
		spec = spec[:len(spec)-1]
	}
	if strings.HasPrefix(spec, "0") && len(spec) > 1 {
		part.zero = true
		spec = spec[1:]
	}
	if spec != "" {
		w, err := strconv.Atoi(spec)
		if err != nil || w < 0 {
			return patternPart{}, fmt.Errorf("bad format spec %q for field %q", f, name)
		}
		part.width = w
	}
	return part, nil
}

// Fields returns the field names referenced by the pattern.
func (p *Pattern) Fields() []string {
	var out []string
	for _, part := range p.parts {
		if part.field != "" {
			out = append(out, part.field)
		}
	}
	return out
}

func (p *Pattern) String() string { return p.src }

// Format renders the pattern. Values must be integers or strings.
func (p *Pattern) Format(values map[string]any) (string, error) {
	var b strings.Builder
	for _, part := range p.parts {
		if part.field == "" {
			b.WriteString(part.literal)
			continue
		}
		v, ok := values[part.field]
		if !ok {
			return "", fmt.Errorf("%w: unknown field %q in %q", ErrPattern, part.field, p.src)
		}

		var s string
		switch tv := v.(type) {
		case int:
			if part.verb == 's' {
				return "", fmt.Errorf("%w: field %q is an integer", ErrPattern, part.field)
			}
			s = strconv.Itoa(tv)
		case string:
			if part.verb == 'd' {
				return "", fmt.Errorf("%w: field %q is not an integer", ErrPattern, part.field)
			}
			s = tv
		default:
			return "", fmt.Errorf("%w: unsupported value %T for field %q", ErrPattern, v, part.field)
		}

		pad := part.width - utf8.RuneCountInString(s)
		if _, text := v.(string); text && pad > 0 {
			// Strings are left-aligned.
			fill := " "
			if part.zero {
				fill = "0"
			}
			s += strings.Repeat(fill, pad)
		} else if pad > 0 {
			if part.zero {
				neg := strings.HasPrefix(s, "-")
				if neg {
					s = s[1:]
				}
				s = strings.Repeat("0", pad) + s
				if neg {
					s = "-" + s
				}
			} else {
				s = strings.Repeat(" ", pad) + s
			}
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// FormatPattern parses and renders a pattern in one step.
func FormatPattern(pattern string, values map[string]any) (string, error) {
	p, err := ParsePattern(pattern)
	if err != nil {
		return "", err
	}
	return p.Format(values)
}
