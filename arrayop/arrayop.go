// Package arrayop implements operational transformation over an ordered
// sequence of JSON values: insertion and deletion of elements at an
// index. It mirrors textop's structure and transform rules (insert vs
// insert, insert vs delete, delete vs delete), generalized from runes to
// slice elements, grounded the same way textop is on the reference OT
// implementations in this corpus.
package arrayop

import (
	"encoding/json"

	"github.com/brunoga/deep"

	"github.com/homveloper/otdoc/oterr"
)

// Kind discriminates the single edit an Op carries.
type Kind string

const (
	KindNOP    Kind = "nop"
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
)

// Op is a single array edit: insert Values at Index, or delete Removed
// (the values removed, recorded verbatim for invertibility) starting at
// Index. A zero-value Op is the NOP.
type Op struct {
	Kind    Kind  `json:"kind"`
	Index   int   `json:"index"`
	Values  []any `json:"values,omitempty"`
	Removed []any `json:"removed,omitempty"`
}

// NOP returns the identity operation.
func NOP() Op { return Op{Kind: KindNOP} }

// Insert returns an operation that inserts values at index.
func Insert(index int, values ...any) Op {
	if len(values) == 0 {
		return NOP()
	}
	return Op{Kind: KindInsert, Index: index, Values: values}
}

// Delete returns an operation that deletes removed, which must equal the
// elements currently present at [index, index+len(removed)) in the array
// the op is generated against.
func Delete(index int, removed ...any) Op {
	if len(removed) == 0 {
		return NOP()
	}
	return Op{Kind: KindDelete, Index: index, Removed: removed}
}

func (o Op) length() int {
	switch o.Kind {
	case KindInsert:
		return len(o.Values)
	case KindDelete:
		return len(o.Removed)
	default:
		return 0
	}
}

// IsNOP reports whether the op is the identity.
func (o Op) IsNOP() bool {
	return o.Kind == "" || o.Kind == KindNOP
}

// Clone returns a deep copy of o: Values/Removed may hold nested
// JSON-shaped structures, so a value copy of the slice header would
// still alias the underlying elements.
func (o Op) Clone() Op {
	out := Op{Kind: o.Kind, Index: o.Index}
	if o.Values != nil {
		out.Values = deep.MustCopy(o.Values)
	}
	if o.Removed != nil {
		out.Removed = deep.MustCopy(o.Removed)
	}
	return out
}

// Apply applies o to arr and returns the resulting slice.
func (o Op) Apply(arr []any) ([]any, error) {
	switch o.Kind {
	case "", KindNOP:
		return arr, nil
	case KindInsert:
		if o.Index < 0 || o.Index > len(arr) {
			return nil, &oterr.AdapterError{Op: "array.insert", Path: "", Err: oterr.ErrPathNotFound}
		}
		out := make([]any, 0, len(arr)+len(o.Values))
		out = append(out, arr[:o.Index]...)
		out = append(out, o.Values...)
		out = append(out, arr[o.Index:]...)
		return out, nil
	case KindDelete:
		end := o.Index + len(o.Removed)
		if o.Index < 0 || end > len(arr) {
			return nil, &oterr.AdapterError{Op: "array.delete", Path: "", Err: oterr.ErrPathNotFound}
		}
		out := make([]any, 0, len(arr)-len(o.Removed))
		out = append(out, arr[:o.Index]...)
		out = append(out, arr[end:]...)
		return out, nil
	default:
		return nil, &oterr.MalformedOp{Reason: "unknown arrayop kind: " + string(o.Kind)}
	}
}

// Invert returns the operation that undoes o when applied immediately
// after it.
func (o Op) Invert() Op {
	switch o.Kind {
	case "", KindNOP:
		return NOP()
	case KindInsert:
		return Delete(o.Index, o.Values...)
	case KindDelete:
		return Insert(o.Index, o.Removed...)
	default:
		return NOP()
	}
}

// Compose merges a followed by b into a single op when they are
// adjacent edits of the same kind; ok is false otherwise.
func Compose(a, b Op) (merged Op, ok bool) {
	if a.IsNOP() {
		return b, true
	}
	if b.IsNOP() {
		return a, true
	}
	if a.Kind == KindInsert && b.Kind == KindInsert && a.Index+a.length() == b.Index {
		return Insert(a.Index, append(append([]any{}, a.Values...), b.Values...)...), true
	}
	if a.Kind == KindDelete && b.Kind == KindDelete && a.Index == b.Index {
		return Delete(a.Index, append(append([]any{}, a.Removed...), b.Removed...)...), true
	}
	return Op{}, false
}

// TransformOptions mirrors objectop.TransformOptions for the leaf level.
type TransformOptions struct {
	Inplace bool
}

// Transform transforms a and b, two concurrent edits against the same
// base array, and returns (a', b') satisfying TP1. Ties (equal-index
// inserts) favor a, deterministically, matching textop.Transform.
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
	return Op{}, Op{}, &oterr.MalformedOp{Reason: "unreachable arrayop transform dispatch"}
}

func transformInsertInsert(a, b Op) (Op, Op, error) {
	switch {
	case a.Index < b.Index:
		return a, Insert(b.Index+a.length(), b.Values...), nil
	case a.Index > b.Index:
		return Insert(a.Index+b.length(), a.Values...), b, nil
	default:
		return a, Insert(b.Index+a.length(), b.Values...), nil
	}
}

func transformInsertDelete(ins, del Op) (Op, Op) {
	insLen := ins.length()
	delLen := del.length()
	switch {
	case ins.Index <= del.Index:
		return ins, Delete(del.Index+insLen, del.Removed...)
	case ins.Index >= del.Index+delLen:
		return Insert(ins.Index-delLen, ins.Values...), del
	default:
		return Insert(del.Index, ins.Values...), del
	}
}

func transformDeleteDelete(a, b Op) (Op, Op, error) {
	aLen, bLen := a.length(), b.length()
	aStart, aEnd := a.Index, a.Index+aLen
	bStart, bEnd := b.Index, b.Index+bLen

	switch {
	case aEnd <= bStart:
		return a, Delete(bStart-aLen, b.Removed...), nil
	case bEnd <= aStart:
		return Delete(aStart-bLen, a.Removed...), b, nil
	}

	overlapStart := maxInt(aStart, bStart)
	overlapEnd := minInt(aEnd, bEnd)
	overlap := overlapEnd - overlapStart

	aKeepStart := maxInt(0, bStart-aStart)
	aKeep := append(append([]any{}, a.Removed[:aKeepStart]...), a.Removed[minInt(len(a.Removed), aKeepStart+overlap):]...)

	bKeepStart := maxInt(0, aStart-bStart)
	bKeep := append(append([]any{}, b.Removed[:bKeepStart]...), b.Removed[minInt(len(b.Removed), bKeepStart+overlap):]...)

	pos := minInt(aStart, bStart)
	return Delete(pos, aKeep...), Delete(pos, bKeep...), nil
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
