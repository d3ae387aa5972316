// Package docadapter provides an in-memory tree document that implements
// objectop.Document: a root value built out of map[string]any and
// []any, walked segment by segment the way crdtedit.PathResolver walks
// a CRDT node tree, substituting plain Go maps/slices for CRDT nodes
// since this adapter owns no convergent merge semantics of its own — all
// of that lives in objectop.
//
// This is the one component in the module with no ecosystem library to
// reach for: walking and mutating a map[string]any/[]any tree by a
// string-segment path is exactly the shape of Go's encoding/json output,
// and every pack library that manipulates such a tree (agentflare-ai's
// go-jsonpointer, go-jsonpatch) only resolves and formats paths; neither
// owns a settable/creatable tree walker, so the walk itself is
// implemented directly against the standard library here.
package docadapter

import (
	"fmt"

	"github.com/homveloper/otdoc/objectop"
	"github.com/homveloper/otdoc/oterr"
)

// Document is an in-memory tree rooted at a single value. The zero
// Document has a nil root: Get of any non-empty path reports absent, and
// the first Set replaces the nil root with an empty object.
type Document struct {
	root any
}

// New returns a Document rooted at root. A nil root is treated as an
// empty object.
func New(root any) *Document {
	if root == nil {
		root = map[string]any{}
	}
	return &Document{root: root}
}

// Root returns the document's root value.
func (d *Document) Root() any { return d.root }

// Get implements objectop.Document.
func (d *Document) Get(path objectop.Path) (any, bool) {
	if path.Empty() {
		return d.root, true
	}
	cur := d.root
	for _, seg := range path {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Set implements objectop.Document, creating intermediate objects as
// needed for every segment but the last.
func (d *Document) Set(path objectop.Path, val any) {
	if path.Empty() {
		d.root = val
		return
	}
	parent := d.ensureParent(path)
	setChild(parent, path[len(path)-1], val)
}

// Delete implements objectop.Document. mode is always "strict" in this
// module: deleting an absent path is an *oterr.AdapterError.
func (d *Document) Delete(path objectop.Path, mode string) error {
	if path.Empty() {
		return &oterr.AdapterError{Op: "document.delete", Path: path.String(), Err: oterr.ErrPathNotFound}
	}
	parent, ok := d.Get(path[:len(path)-1])
	if !ok {
		return &oterr.AdapterError{Op: "document.delete", Path: path.String(), Err: oterr.ErrPathNotFound}
	}
	last := path[len(path)-1]
	switch p := parent.(type) {
	case map[string]any:
		if _, exists := p[last]; !exists {
			return &oterr.AdapterError{Op: "document.delete", Path: path.String(), Err: oterr.ErrPathNotFound}
		}
		delete(p, last)
		return nil
	case []any:
		idx, err := arrayIndex(last, len(p))
		if err != nil {
			return &oterr.AdapterError{Op: "document.delete", Path: path.String(), Err: err}
		}
		parentPath := path[:len(path)-1]
		out := append(append([]any{}, p[:idx]...), p[idx+1:]...)
		if len(parentPath) == 0 {
			d.root = out
		} else {
			grandparent, _ := d.Get(parentPath[:len(parentPath)-1])
			setChild(grandparent, parentPath[len(parentPath)-1], out)
		}
		return nil
	default:
		return &oterr.AdapterError{Op: "document.delete", Path: path.String(), Err: oterr.ErrPathNotFound}
	}
}

// ensureParent walks path[:len(path)-1], creating empty objects for any
// absent intermediate segment, and returns the node the final segment
// should be set on.
func (d *Document) ensureParent(path objectop.Path) any {
	if len(path) == 1 {
		if d.root == nil {
			d.root = map[string]any{}
		}
		return d.root
	}
	cur := d.root
	if cur == nil {
		cur = map[string]any{}
		d.root = cur
	}
	for _, seg := range path[:len(path)-1] {
		next, ok := step(cur, seg)
		if !ok || next == nil {
			created := map[string]any{}
			setChild(cur, seg, created)
			next = created
		}
		cur = next
	}
	return cur
}

// step reads one path segment off node, reporting whether it resolved.
func step(node any, seg string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[seg]
		return v, ok
	case []any:
		idx, err := arrayIndex(seg, len(n))
		if err != nil {
			return nil, false
		}
		return n[idx], true
	default:
		return nil, false
	}
}

// setChild writes val at seg on node, which must be a map[string]any or
// []any (the caller is responsible for having created it with ensureParent).
func setChild(node any, seg string, val any) {
	switch n := node.(type) {
	case map[string]any:
		n[seg] = val
	case []any:
		idx, err := arrayIndex(seg, len(n))
		if err == nil {
			n[idx] = val
		}
	}
}

func arrayIndex(seg string, length int) (int, error) {
	var idx int
	if _, err := fmt.Sscanf(seg, "%d", &idx); err != nil {
		return 0, fmt.Errorf("segment %q is not an array index", seg)
	}
	if idx < 0 || idx >= length {
		return 0, fmt.Errorf("array index %d out of bounds (len %d)", idx, length)
	}
	return idx, nil
}
