// Package oterr defines the error taxonomy shared by the OT core: the
// leaf op packages, the object op algebra, the hub coordinator and the
// session state machine all raise one of these types rather than a bare
// error, so a caller can branch with errors.As.
package oterr

import "fmt"

// MalformedOp is a construction-time invariant violation: missing type,
// path, val or diff, an unknown op type, or a diff whose leaf variant
// does not match the declared propertyType. Fatal to the op being built;
// no mutation is ever performed.
type MalformedOp struct {
	Reason string
}

func (e *MalformedOp) Error() string {
	return fmt.Sprintf("malformed op: %s", e.Reason)
}

// Conflict is raised by Transform when TransformOptions.NoConflict is set
// and both operands are non-NOP ops on the same path. It is non-fatal;
// the caller decides whether to surface or resolve it.
type Conflict struct {
	Path  string
	KindA string
	KindB string
}

func (e *Conflict) Error() string {
	return fmt.Sprintf("conflict at %q between %s and %s", e.Path, e.KindA, e.KindB)
}

// IllegalTransform is a structural impossibility between two ops that
// claim to originate from the same base state on the same path (e.g.
// concurrent Create+Create, Create+anything, Update+Set). Fatal to the
// commit that produced it; the hub rejects the commit and closes the
// offending session.
type IllegalTransform struct {
	Path   string
	KindA  string
	KindB  string
	Reason string
}

func (e *IllegalTransform) Error() string {
	return fmt.Sprintf("illegal transform at %q between %s and %s: %s", e.Path, e.KindA, e.KindB, e.Reason)
}

// InvalidVersion is raised when a session claims a base version ahead of
// the hub's current version. Fatal to the session.
type InvalidVersion struct {
	ClientVersion int64
	HubVersion    int64
}

func (e *InvalidVersion) Error() string {
	return fmt.Sprintf("invalid version: client claims %d, hub is at %d", e.ClientVersion, e.HubVersion)
}

// AdapterError surfaces a document-adapter failure verbatim (e.g. a
// strict delete of an absent path). Fatal to the apply that raised it.
type AdapterError struct {
	Op   string
	Path string
	Err  error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter error during %s at %q: %s", e.Op, e.Path, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// ErrPathNotFound is the sentinel wrapped by AdapterError when a strict
// delete or a required get targets an absent path.
var ErrPathNotFound = fmt.Errorf("path not found")
