package objectop

import (
	"encoding/json"

	"github.com/brunoga/deep"
)

// Change is a DocumentChange: an ordered batch of ops applied atomically,
// plus arbitrary caller metadata (author, client id, timestamp) carried
// opaquely through the hub and session layers.
type Change struct {
	Ops  []Op
	Meta map[string]any
}

// NewChange builds a Change from ops, cloning each so the caller's slice
// may be reused or mutated afterward.
func NewChange(ops []Op, meta map[string]any) Change {
	c := Change{Ops: make([]Op, len(ops)), Meta: nil}
	for i, o := range ops {
		c.Ops[i] = o.Clone()
	}
	if meta != nil {
		c.Meta = deep.MustCopy(meta)
	}
	return c
}

// Clone returns an independent deep copy of c.
func (c Change) Clone() Change {
	return NewChange(c.Ops, c.Meta)
}

// Apply applies every op in c to doc, in order, stopping at the first
// error.
func (c Change) Apply(doc Document) error {
	for i := range c.Ops {
		if err := c.Ops[i].Apply(doc); err != nil {
			return err
		}
	}
	return nil
}

// Invert returns the change that undoes c when applied immediately
// after it: the per-op inverses in reverse order.
func (c Change) Invert() (Change, error) {
	inv := Change{Ops: make([]Op, len(c.Ops)), Meta: c.Meta}
	for i, o := range c.Ops {
		io, err := o.Invert()
		if err != nil {
			return Change{}, err
		}
		inv.Ops[len(c.Ops)-1-i] = io
	}
	return inv, nil
}

// jsonChange is the wire form: {"ops": [...], "meta": {...}}.
type jsonChange struct {
	Ops  []Op           `json:"ops"`
	Meta map[string]any `json:"meta,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Change) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonChange{Ops: c.Ops, Meta: c.Meta})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Change) UnmarshalJSON(data []byte) error {
	var jc jsonChange
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}
	c.Ops = jc.Ops
	c.Meta = jc.Meta
	return nil
}

// TransformChange transforms two concurrent changes a and b, both
// generated against the same base document version, by transforming
// every (ai, bj) op pair pairwise: each op in a is transformed against
// every op in b in turn (and vice versa), accumulating the adjustments.
// This is the standard batch generalization of the single-op Transform
// and preserves TP1 as long as every pairwise Transform call does.
func TransformChange(a, b Change, opts TransformOptions) (Change, Change, error) {
	aOps := make([]Op, len(a.Ops))
	copy(aOps, a.Ops)
	bOps := make([]Op, len(b.Ops))
	copy(bOps, b.Ops)

	for i := range aOps {
		for j := range bOps {
			aPrime, bPrime, err := Transform(aOps[i], bOps[j], opts)
			if err != nil {
				return Change{}, Change{}, err
			}
			aOps[i] = aPrime
			bOps[j] = bPrime
		}
	}

	return Change{Ops: aOps, Meta: a.Meta}, Change{Ops: bOps, Meta: b.Meta}, nil
}
