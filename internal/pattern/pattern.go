// Package pattern defines the three local structures used as graph features
// (single edges, 2-paths and triangles), their canonical forms, and the
// matcher that decides whether a graph contains one.
package pattern

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the shape of a pattern.
type Kind uint8

const (
	KindEdge Kind = iota + 1
	KindPath2
	KindTriangle
)

// String returns the tag used in feature files.
func (k Kind) String() string {
	switch k {
	case KindEdge:
		return "EDGE"
	case KindPath2:
		return "PATH2"
	case KindTriangle:
		return "TRI"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Arity returns the number of integer fields a pattern of this kind carries.
func (k Kind) Arity() int {
	switch k {
	case KindEdge:
		return 3
	case KindPath2:
		return 5
	case KindTriangle:
		return 6
	default:
		return 0
	}
}

// ParseKind parses a feature-file tag.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "EDGE":
		return KindEdge, nil
	case "PATH2":
		return KindPath2, nil
	case "TRI":
		return KindTriangle, nil
	default:
		return 0, fmt.Errorf("%w: unknown tag %q", ErrMalformedFeature, s)
	}
}

// Pattern is a comparable value describing one local structure by labels
// only. It never carries node ids, so it can be used as a map key.
//
// Field layout by kind:
//
//	EDGE   labelA edge labelB
//	PATH2  labelLeft edgeLeft labelCenter edgeRight labelRight
//	TRI    label1 edge12 label2 edge13 label3 edge23
type Pattern struct {
	kind   Kind
	fields [6]int
}

// New builds a pattern from a kind and exactly Arity() fields. The fields are
// taken as given; use the Canonical* constructors to normalize occurrences.
func New(kind Kind, fields ...int) (Pattern, error) {
	arity := kind.Arity()
	if arity == 0 {
		return Pattern{}, fmt.Errorf("%w: unknown kind %d", ErrMalformedFeature, kind)
	}
	if len(fields) != arity {
		return Pattern{}, fmt.Errorf("%w: %s takes %d fields, got %d", ErrMalformedFeature, kind, arity, len(fields))
	}
	p := Pattern{kind: kind}
	copy(p.fields[:], fields)
	return p, nil
}

// MustNew is like New but panics on error. Intended for tests and constants.
func MustNew(kind Kind, fields ...int) Pattern {
	p, err := New(kind, fields...)
	if err != nil {
		panic(err)
	}
	return p
}

// Kind returns the pattern shape.
func (p Pattern) Kind() Kind {
	return p.kind
}

// Fields returns a copy of the pattern's integer fields.
func (p Pattern) Fields() []int {
	out := make([]int, p.kind.Arity())
	copy(out, p.fields[:])
	return out
}

// IsZero reports whether p is the zero Pattern.
func (p Pattern) IsZero() bool {
	return p.kind == 0
}

// String renders the pattern in feature-file form, e.g. "EDGE 1 9 2".
func (p Pattern) String() string {
	var sb strings.Builder
	sb.WriteString(p.kind.String())
	for _, f := range p.fields[:p.kind.Arity()] {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(f))
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Pattern) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return nil, fmt.Errorf("%w: zero pattern", ErrMalformedFeature)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pattern) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse parses one feature-file line.
func Parse(line string) (Pattern, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Pattern{}, fmt.Errorf("%w: empty line", ErrMalformedFeature)
	}
	kind, err := ParseKind(tokens[0])
	if err != nil {
		return Pattern{}, err
	}
	fields := make([]int, len(tokens)-1)
	for i, tok := range tokens[1:] {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: non-integer field %q", ErrMalformedFeature, tok)
		}
		fields[i] = n
	}
	return New(kind, fields...)
}

// Compare orders patterns by kind, then field by field.
func Compare(a, b Pattern) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	for i := range a.fields {
		if c := cmp.Compare(a.fields[i], b.fields[i]); c != 0 {
			return c
		}
	}
	return 0
}
