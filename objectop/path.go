package objectop

import (
	"strings"

	"github.com/agentflare-ai/go-jsonpointer"
)

// Path is an ordered sequence of one or more string segments identifying
// a property within a tree-shaped document. Paths are values: once
// constructed they are never mutated, only cloned or compared.
type Path []string

// NewPath builds a Path from individual segments.
func NewPath(segments ...string) Path {
	p := make(Path, len(segments))
	copy(p, segments)
	return p
}

// Equal reports whether p and other name the same property, segment by
// segment.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of p.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Empty reports whether p has no segments.
func (p Path) Empty() bool {
	return len(p) == 0
}

// String renders p as a dotted segment list, for logs and error text.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Pointer renders p as an RFC 6901 JSON Pointer string, built on the
// same jsonpointer package the pack's jsonpatch implementation uses to
// tokenize and stringify pointers.
func (p Path) Pointer() string {
	return jsonpointer.Pointer(p).String()
}

// ParsePointer parses an RFC 6901 JSON Pointer string into a Path.
func ParsePointer(s string) (Path, error) {
	tokens, err := jsonpointer.New(s)
	if err != nil {
		return nil, err
	}
	return Path(tokens), nil
}
