// Package textop implements operational transformation over a linear
// character sequence: insertion and deletion of runes at an offset. This
// is the leaf OT consumed by objectop's Update variant when the
// property being edited is a string (spec.md refers to this layer as
// "assumed", unchanged from the external OT literature); it is grounded
// on the insert/delete transform rules used throughout the reference OT
// implementations in this corpus (apex-build's collaboration.ot,
// yeheyan's backend/pkg/ot).
package textop

import (
	"encoding/json"

	"github.com/homveloper/otdoc/oterr"
)

// Kind discriminates the single edit an Op carries.
type Kind string

const (
	KindNOP    Kind = "nop"
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
)

// Op is a single text edit: insert Text at Pos, or delete Removed
// (recorded verbatim, not just a count) starting at Pos. Recording the
// deleted substring rather than a bare length is what lets Invert take
// no arguments and no document context, the same way objectop.Delete
// records its prior val for invertibility. A zero-value Op is the NOP.
type Op struct {
	Kind    Kind   `json:"kind"`
	Pos     int    `json:"pos"`
	Text    string `json:"text,omitempty"`    // insert payload
	Removed string `json:"removed,omitempty"` // delete payload
}

// NOP returns the identity operation.
func NOP() Op { return Op{Kind: KindNOP} }

// Insert returns an operation that inserts text at pos.
func Insert(pos int, text string) Op {
	if text == "" {
		return NOP()
	}
	return Op{Kind: KindInsert, Pos: pos, Text: text}
}

// Delete returns an operation that deletes removed, which must equal the
// runes currently present at [pos, pos+len(removed)) in the document the
// op is generated against.
func Delete(pos int, removed string) Op {
	if removed == "" {
		return NOP()
	}
	return Op{Kind: KindDelete, Pos: pos, Removed: removed}
}

func (o Op) length() int {
	switch o.Kind {
	case KindInsert:
		return len([]rune(o.Text))
	case KindDelete:
		return len([]rune(o.Removed))
	default:
		return 0
	}
}

// IsNOP reports whether the op is the identity.
func (o Op) IsNOP() bool {
	return o.Kind == "" || o.Kind == KindNOP
}

// Clone returns an independent copy of o. Op has no shared mutable
// state, so this is a value copy; it exists to satisfy the leaf-OT
// surface objectop dispatches against.
func (o Op) Clone() Op { return o }

// Apply applies o to s and returns the resulting string.
func (o Op) Apply(s string) (string, error) {
	runes := []rune(s)
	switch o.Kind {
	case "", KindNOP:
		return s, nil
	case KindInsert:
		if o.Pos < 0 || o.Pos > len(runes) {
			return "", &oterr.AdapterError{Op: "text.insert", Path: "", Err: oterr.ErrPathNotFound}
		}
		out := make([]rune, 0, len(runes)+o.length())
		out = append(out, runes[:o.Pos]...)
		out = append(out, []rune(o.Text)...)
		out = append(out, runes[o.Pos:]...)
		return string(out), nil
	case KindDelete:
		end := o.Pos + o.length()
		if o.Pos < 0 || end > len(runes) {
			return "", &oterr.AdapterError{Op: "text.delete", Path: "", Err: oterr.ErrPathNotFound}
		}
		out := make([]rune, 0, len(runes)-o.length())
		out = append(out, runes[:o.Pos]...)
		out = append(out, runes[end:]...)
		return string(out), nil
	default:
		return "", &oterr.MalformedOp{Reason: "unknown textop kind: " + string(o.Kind)}
	}
}

// Invert returns the operation that undoes o when applied immediately
// after it.
func (o Op) Invert() Op {
	switch o.Kind {
	case "", KindNOP:
		return NOP()
	case KindInsert:
		return Delete(o.Pos, o.Text)
	case KindDelete:
		return Insert(o.Pos, o.Removed)
	default:
		return NOP()
	}
}

// Compose merges a followed by b into a single op when they are
// adjacent edits of the same kind (an insert continuing where a's insert
// ends, or a delete at the same position as a's delete); ok is false
// otherwise, and the caller then applies a then b in sequence instead of
// composing.
func Compose(a, b Op) (merged Op, ok bool) {
	if a.IsNOP() {
		return b, true
	}
	if b.IsNOP() {
		return a, true
	}
	if a.Kind == KindInsert && b.Kind == KindInsert && a.Pos+a.length() == b.Pos {
		return Insert(a.Pos, a.Text+b.Text), true
	}
	if a.Kind == KindDelete && b.Kind == KindDelete && a.Pos == b.Pos {
		return Delete(a.Pos, a.Removed+b.Removed), true
	}
	return Op{}, false
}

// TransformOptions mirrors objectop.TransformOptions for the leaf level.
type TransformOptions struct {
	Inplace bool
}

// Transform transforms a and b, two concurrent edits against the same
// base string, and returns (a', b') such that applying a' after b equals
// applying b' after a (TP1). Ties (equal-position inserts) favor a,
// deterministically: a keeps its position and b shifts past it. This
// mirrors the tie-break used by the OT reference implementations in the
// corpus (apex-build's transformInsert, yeheyan's transformInsertInsert).
func Transform(a, b Op, _ TransformOptions) (Op, Op, error) {
	if a.IsNOP() {
		return NOP(), b, nil
	}
	if b.IsNOP() {
		return a, NOP(), nil
	}

	switch a.Kind {
	case KindInsert:
		switch b.Kind {
		case KindInsert:
			return transformInsertInsert(a, b)
		case KindDelete:
			aPrime, bPrime := transformInsertDelete(a, b)
			return aPrime, bPrime, nil
		}
	case KindDelete:
		switch b.Kind {
		case KindInsert:
			bPrime, aPrime := transformInsertDelete(b, a)
			return aPrime, bPrime, nil
		case KindDelete:
			return transformDeleteDelete(a, b)
		}
	}
	return Op{}, Op{}, &oterr.MalformedOp{Reason: "unreachable textop transform dispatch"}
}

func transformInsertInsert(a, b Op) (Op, Op, error) {
	switch {
	case a.Pos < b.Pos:
		return a, Insert(b.Pos+a.length(), b.Text), nil
	case a.Pos > b.Pos:
		return Insert(a.Pos+b.length(), a.Text), b, nil
	default:
		// equal position: a wins priority, b shifts past it.
		return a, Insert(b.Pos+a.length(), b.Text), nil
	}
}

// transformInsertDelete transforms an insert against a delete, both
// against the same base. Returns (insert', delete').
func transformInsertDelete(ins, del Op) (Op, Op) {
	insLen := ins.length()
	delLen := del.length()
	switch {
	case ins.Pos <= del.Pos:
		return ins, Delete(del.Pos+insLen, del.Removed)
	case ins.Pos >= del.Pos+delLen:
		return Insert(ins.Pos-delLen, ins.Text), del
	default:
		// insert lands inside the deleted range: pin it to the delete's
		// start so the inserted text survives at a stable position.
		return Insert(del.Pos, ins.Text), del
	}
}

func transformDeleteDelete(a, b Op) (Op, Op, error) {
	aLen, bLen := a.length(), b.length()
	aStart, aEnd := a.Pos, a.Pos+aLen
	bStart, bEnd := b.Pos, b.Pos+bLen

	switch {
	case aEnd <= bStart:
		return a, Delete(bStart-aLen, b.Removed), nil
	case bEnd <= aStart:
		return Delete(aStart-bLen, a.Removed), b, nil
	}

	// overlapping ranges: each keeps only the portion of its own removed
	// text that the other delete did not also remove, measured in rune
	// offsets relative to its own Removed string.
	overlapStart := maxInt(aStart, bStart)
	overlapEnd := minInt(aEnd, bEnd)
	overlap := overlapEnd - overlapStart

	aRunes := []rune(a.Removed)
	bRunes := []rune(b.Removed)

	aKeepStart := maxInt(0, bStart-aStart)
	aKeep := append(append([]rune{}, aRunes[:aKeepStart]...), aRunes[minInt(len(aRunes), aKeepStart+overlap):]...)

	bKeepStart := maxInt(0, aStart-bStart)
	bKeep := append(append([]rune{}, bRunes[:bKeepStart]...), bRunes[minInt(len(bRunes), bKeepStart+overlap):]...)

	pos := minInt(aStart, bStart)
	return Delete(pos, string(aKeep)), Delete(pos, string(bKeep)), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// MarshalJSON implements json.Marshaler.
func (o Op) MarshalJSON() ([]byte, error) {
	type alias Op
	return json.Marshal(alias(o))
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Op) UnmarshalJSON(data []byte) error {
	type alias Op
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = Op(a)
	return nil
}
