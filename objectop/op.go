// Package objectop implements the structural document-operation algebra:
// Create, Delete, Update (wrapping a textop.Op or arrayop.Op), Set and
// NOP, all addressed by a hierarchical Path. It provides apply, invert,
// clone, JSON (de)serialization and a pairwise transform satisfying TP1.
//
// Grounded on luvjson/crdtpatch's Operation/Patch shape (a closed set of
// operation kinds dispatched with MakeOperation, JSON-tagged with an
// "op"/"type" discriminant, errors as typed values from a shared errors
// package) and on the reference OT engines in this corpus for the
// transform rules themselves.
package objectop

import (
	"encoding/json"

	"github.com/brunoga/deep"
	"github.com/pkg/errors"

	"github.com/homveloper/otdoc/arrayop"
	"github.com/homveloper/otdoc/oterr"
	"github.com/homveloper/otdoc/textop"
)

// Kind discriminates the five ObjectOp shapes.
type Kind string

const (
	KindNOP    Kind = "NOP"
	KindCreate Kind = "create"
	KindDelete Kind = "delete"
	KindUpdate Kind = "update"
	KindSet    Kind = "set"
)

// PropertyType names the leaf OT variant an Update op's diff carries.
type PropertyType string

const (
	PropertyString PropertyType = "string"
	PropertyArray  PropertyType = "array"
)

// Op is one of the five ObjectOp shapes. The zero Op is the NOP.
type Op struct {
	Kind         Kind
	Path         Path
	Val          any
	Original     any
	hasOriginal  bool
	PropertyType PropertyType
	TextDiff     *textop.Op
	ArrayDiff    *arrayop.Op
}

// NOP returns the identity operation.
func NOP() Op { return Op{Kind: KindNOP} }

// NewCreate builds a Create op. path must be non-empty and val non-nil,
// per spec.md section 3's construction invariants.
func NewCreate(path Path, val any) (Op, error) {
	if path.Empty() {
		return Op{}, &oterr.MalformedOp{Reason: "create requires a non-empty path"}
	}
	if val == nil {
		return Op{}, &oterr.MalformedOp{Reason: "create requires a non-null val"}
	}
	return Op{Kind: KindCreate, Path: path.Clone(), Val: cloneValue(val)}, nil
}

// NewDelete builds a Delete op. val is the prior value being removed,
// required for invertibility.
func NewDelete(path Path, val any) (Op, error) {
	if path.Empty() {
		return Op{}, &oterr.MalformedOp{Reason: "delete requires a non-empty path"}
	}
	if val == nil {
		return Op{}, &oterr.MalformedOp{Reason: "delete requires a non-null val"}
	}
	return Op{Kind: KindDelete, Path: path.Clone(), Val: cloneValue(val)}, nil
}

// NewUpdateText builds an Update op wrapping a textop.Op diff.
func NewUpdateText(path Path, diff textop.Op) (Op, error) {
	if path.Empty() {
		return Op{}, &oterr.MalformedOp{Reason: "update requires a non-empty path"}
	}
	d := diff.Clone()
	return Op{Kind: KindUpdate, Path: path.Clone(), PropertyType: PropertyString, TextDiff: &d}, nil
}

// NewUpdateArray builds an Update op wrapping an arrayop.Op diff.
func NewUpdateArray(path Path, diff arrayop.Op) (Op, error) {
	if path.Empty() {
		return Op{}, &oterr.MalformedOp{Reason: "update requires a non-empty path"}
	}
	d := diff.Clone()
	return Op{Kind: KindUpdate, Path: path.Clone(), PropertyType: PropertyArray, ArrayDiff: &d}, nil
}

// NewSet builds a Set op. val is the new value; hasOriginal/original
// describe the value being replaced (absent meaning "was unset").
func NewSet(path Path, val any, original any, hasOriginal bool) (Op, error) {
	if path.Empty() {
		return Op{}, &oterr.MalformedOp{Reason: "set requires a non-empty path"}
	}
	o := Op{Kind: KindSet, Path: path.Clone(), Val: cloneValue(val), hasOriginal: hasOriginal}
	if hasOriginal {
		o.Original = cloneValue(original)
	}
	return o, nil
}

// HasOriginal reports whether a Set op's Original field is present.
func (o Op) HasOriginal() bool { return o.hasOriginal }

// IsNOP reports whether o is the identity operation.
func (o Op) IsNOP() bool {
	return o.Kind == "" || o.Kind == KindNOP
}

// Validate re-checks the construction invariants from spec.md section 3;
// it is used by UnmarshalJSON, which builds an Op outside the
// constructors above.
func (o Op) Validate() error {
	switch o.Kind {
	case "":
		return &oterr.MalformedOp{Reason: "missing op type"}
	case KindNOP:
		return nil
	case KindCreate, KindDelete:
		if o.Path.Empty() {
			return &oterr.MalformedOp{Reason: string(o.Kind) + " requires a non-empty path"}
		}
		if o.Val == nil {
			return &oterr.MalformedOp{Reason: string(o.Kind) + " requires a non-null val"}
		}
		return nil
	case KindUpdate:
		if o.Path.Empty() {
			return &oterr.MalformedOp{Reason: "update requires a non-empty path"}
		}
		switch o.PropertyType {
		case PropertyString:
			if o.TextDiff == nil {
				return &oterr.MalformedOp{Reason: "update of propertyType string requires a TextDiff"}
			}
		case PropertyArray:
			if o.ArrayDiff == nil {
				return &oterr.MalformedOp{Reason: "update of propertyType array requires an ArrayDiff"}
			}
		default:
			return &oterr.MalformedOp{Reason: "update requires a known propertyType"}
		}
		return nil
	case KindSet:
		if o.Path.Empty() {
			return &oterr.MalformedOp{Reason: "set requires a non-empty path"}
		}
		return nil
	default:
		return &oterr.MalformedOp{Reason: "unknown op type: " + string(o.Kind)}
	}
}

// Clone performs a deep copy of Val, Original and diff.
func (o Op) Clone() Op {
	out := o
	out.Path = o.Path.Clone()
	if o.Val != nil {
		out.Val = cloneValue(o.Val)
	}
	if o.hasOriginal {
		out.Original = cloneValue(o.Original)
	}
	if o.TextDiff != nil {
		d := o.TextDiff.Clone()
		out.TextDiff = &d
	}
	if o.ArrayDiff != nil {
		d := o.ArrayDiff.Clone()
		out.ArrayDiff = &d
	}
	return out
}

// cloneValue deep-copies an opaque JSON-shaped value using brunoga/deep;
// nil is its own fixed point.
func cloneValue(v any) any {
	if v == nil {
		return nil
	}
	return deep.MustCopy(v)
}

// Document is the adapter the core consumes from the document model
// (spec.md section 6). The adapter owns schema checks; the core treats
// it as opaque.
type Document interface {
	// Get returns the value at path, and whether it is present.
	Get(path Path) (any, bool)
	// Set writes val at path, creating intermediate structure as needed.
	Set(path Path, val any)
	// Delete removes the value at path. mode is always "strict": it is
	// an AdapterError for path to be absent.
	Delete(path Path, mode string) error
}

// Apply applies o to doc.
func (o Op) Apply(doc Document) error {
	switch o.Kind {
	case "", KindNOP:
		return nil
	case KindCreate:
		doc.Set(o.Path, cloneValue(o.Val))
		return nil
	case KindDelete:
		if err := doc.Delete(o.Path, "strict"); err != nil {
			return errors.Wrapf(err, "delete at %s", o.Path)
		}
		return nil
	case KindUpdate:
		oldVal, _ := doc.Get(o.Path)
		newVal, err := o.applyDiff(oldVal)
		if err != nil {
			return errors.Wrapf(err, "update at %s", o.Path)
		}
		doc.Set(o.Path, newVal)
		return nil
	case KindSet:
		doc.Set(o.Path, cloneValue(o.Val))
		return nil
	default:
		return &oterr.MalformedOp{Reason: "unknown op type: " + string(o.Kind)}
	}
}

// applyDiff applies the Update op's leaf diff to old and returns the new
// value, dispatching on PropertyType.
func (o Op) applyDiff(old any) (any, error) {
	switch o.PropertyType {
	case PropertyString:
		s, _ := old.(string)
		return o.TextDiff.Apply(s)
	case PropertyArray:
		arr, _ := old.([]any)
		return o.ArrayDiff.Apply(arr)
	default:
		return nil, &oterr.MalformedOp{Reason: "update op has unknown propertyType"}
	}
}

// Invert produces an op that, applied immediately after o, restores the
// prior state.
func (o Op) Invert() (Op, error) {
	switch o.Kind {
	case "", KindNOP:
		return NOP(), nil
	case KindCreate:
		return Op{Kind: KindDelete, Path: o.Path.Clone(), Val: cloneValue(o.Val)}, nil
	case KindDelete:
		return Op{Kind: KindCreate, Path: o.Path.Clone(), Val: cloneValue(o.Val)}, nil
	case KindUpdate:
		out := Op{Kind: KindUpdate, Path: o.Path.Clone(), PropertyType: o.PropertyType}
		switch o.PropertyType {
		case PropertyString:
			inv := o.TextDiff.Invert()
			out.TextDiff = &inv
		case PropertyArray:
			inv := o.ArrayDiff.Invert()
			out.ArrayDiff = &inv
		default:
			return Op{}, &oterr.MalformedOp{Reason: "update op has unknown propertyType"}
		}
		return out, nil
	case KindSet:
		out := Op{Kind: KindSet, Path: o.Path.Clone(), Val: cloneValue(o.Original), hasOriginal: true, Original: cloneValue(o.Val)}
		if !o.hasOriginal {
			// original was absent (the property was unset); inverting
			// must restore that absence, which Set cannot itself
			// express as a value, so we record it via a nil val and
			// leave Original set to the value being undone.
			out.Val = nil
		}
		return out, nil
	default:
		return Op{}, &oterr.MalformedOp{Reason: "unknown op type: " + string(o.Kind)}
	}
}

// jsonOp is the canonical wire form from spec.md section 6. Path is
// rendered as an RFC 6901 JSON Pointer rather than a raw segment array,
// the same wire shape agentflare-ai's jsonpatch example uses for its own
// "path" fields.
type jsonOp struct {
	Type         Kind            `json:"type"`
	Path         string          `json:"path,omitempty"`
	Val          json.RawMessage `json:"val,omitempty"`
	Original     json.RawMessage `json:"original,omitempty"`
	HasOriginal  bool            `json:"hasOriginal,omitempty"`
	PropertyType PropertyType    `json:"propertyType,omitempty"`
	Diff         json.RawMessage `json:"diff,omitempty"`
}

// MarshalJSON implements json.Marshaler, producing the canonical form
// from spec.md section 6.
func (o Op) MarshalJSON() ([]byte, error) {
	jo := jsonOp{Type: o.Kind, PropertyType: o.PropertyType, HasOriginal: o.hasOriginal}
	if !o.Path.Empty() {
		jo.Path = o.Path.Pointer()
	}
	if o.Kind == KindNOP || o.Kind == "" {
		jo.Type = KindNOP
		return json.Marshal(jo)
	}
	var err error
	if o.Val != nil || o.Kind == KindCreate || o.Kind == KindDelete || o.Kind == KindSet {
		if jo.Val, err = json.Marshal(o.Val); err != nil {
			return nil, err
		}
	}
	if o.hasOriginal {
		if jo.Original, err = json.Marshal(o.Original); err != nil {
			return nil, err
		}
	}
	switch o.PropertyType {
	case PropertyString:
		if o.TextDiff != nil {
			if jo.Diff, err = json.Marshal(o.TextDiff); err != nil {
				return nil, err
			}
		}
	case PropertyArray:
		if o.ArrayDiff != nil {
			if jo.Diff, err = json.Marshal(o.ArrayDiff); err != nil {
				return nil, err
			}
		}
	}
	return json.Marshal(jo)
}

// UnmarshalJSON implements json.Unmarshaler, reconstructing the leaf
// diff by dispatch on PropertyType.
func (o *Op) UnmarshalJSON(data []byte) error {
	var jo jsonOp
	if err := json.Unmarshal(data, &jo); err != nil {
		return err
	}

	var path Path
	if jo.Path != "" {
		p, err := ParsePointer(jo.Path)
		if err != nil {
			return errors.Wrapf(err, "op path %q", jo.Path)
		}
		path = p
	}
	out := Op{Kind: jo.Type, Path: path, PropertyType: jo.PropertyType, hasOriginal: jo.HasOriginal}

	if len(jo.Val) > 0 {
		if err := json.Unmarshal(jo.Val, &out.Val); err != nil {
			return err
		}
	}
	if jo.HasOriginal && len(jo.Original) > 0 {
		if err := json.Unmarshal(jo.Original, &out.Original); err != nil {
			return err
		}
	}
	if len(jo.Diff) > 0 {
		switch jo.PropertyType {
		case PropertyString:
			var d textop.Op
			if err := json.Unmarshal(jo.Diff, &d); err != nil {
				return err
			}
			out.TextDiff = &d
		case PropertyArray:
			var d arrayop.Op
			if err := json.Unmarshal(jo.Diff, &d); err != nil {
				return err
			}
			out.ArrayDiff = &d
		default:
			return &oterr.MalformedOp{Reason: "op has diff but unknown propertyType"}
		}
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*o = out
	return nil
}
