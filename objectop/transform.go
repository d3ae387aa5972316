package objectop

import (
	"github.com/homveloper/otdoc/arrayop"
	"github.com/homveloper/otdoc/oterr"
	"github.com/homveloper/otdoc/textop"
)

// TransformOptions controls Transform's behavior at the object level and
// is threaded down into the leaf-level textop/arrayop Transform calls.
type TransformOptions struct {
	// Inplace is forwarded to the leaf transforms; it carries no extra
	// meaning at the object level.
	Inplace bool
	// NoConflict makes Transform return an *oterr.Conflict instead of
	// silently resolving whenever both operands are non-NOP ops on the
	// same path. Off by default: the resolution rules below are applied.
	NoConflict bool
}

// Transform transforms two concurrent ops a and b, both generated
// against the same base document state, and returns (a', b') such that
// applying a' after b equals applying b' after a (TP1).
//
// Ops on different paths always commute unchanged. Ops on the same path
// dispatch on the (Kind, Kind) pair:
//
//	NOP,  *       -> (NOP, b)            trivial identity
//	*,    NOP      -> (a, NOP)            trivial identity
//	Create, Create -> error               two concurrent creates of the
//	                                       same property can never both
//	                                       have seen an absent path
//	Create, *      -> error               Create requires the path to
//	                                       have been absent; a concurrent
//	                                       op on the same path contradicts
//	                                       that
//	Delete, Delete -> (NOP, NOP)          both removed it; only one needs to
//	Delete, Update -> rule D-U            delete-first: the delete survives,
//	                                       adjusted to remove the updated
//	                                       value; the update becomes NOP
//	Delete, Set    -> rule D-S            set-wins: the delete becomes NOP,
//	                                       the set survives with no
//	                                       recorded Original
//	Update, Update -> rule U-U            delegates to the leaf transform
//	Update, Set    -> error               Set requires a known prior value
//	                                       shape; a concurrent structural
//	                                       edit contradicts that
//	Set,  Set      -> rule S-S            b wins: a becomes NOP, b survives
//	                                       with its Original corrected to a's
//	                                       Val
//
// The mirror-image pairs (Update,Delete / Set,Delete / Set,Update) reuse
// the same helpers with operands swapped.
func Transform(a, b Op, opts TransformOptions) (Op, Op, error) {
	if a.IsNOP() {
		return NOP(), b, nil
	}
	if b.IsNOP() {
		return a, NOP(), nil
	}
	if !a.Path.Equal(b.Path) {
		return a, b, nil
	}

	if opts.NoConflict {
		return Op{}, Op{}, &oterr.Conflict{Path: a.Path.String(), KindA: string(a.Kind), KindB: string(b.Kind)}
	}

	switch a.Kind {
	case KindCreate:
		return Op{}, Op{}, illegalCreate(a, b)
	case KindDelete:
		switch b.Kind {
		case KindCreate:
			return Op{}, Op{}, illegalCreate(b, a)
		case KindDelete:
			return NOP(), NOP(), nil
		case KindUpdate:
			aPrime, bPrime, err := deleteUpdate(a, b)
			return aPrime, bPrime, err
		case KindSet:
			aPrime, bPrime := deleteSet(a, b)
			return aPrime, bPrime, nil
		}
	case KindUpdate:
		switch b.Kind {
		case KindCreate:
			return Op{}, Op{}, illegalCreate(b, a)
		case KindDelete:
			bPrime, aPrime, err := deleteUpdate(b, a)
			return aPrime, bPrime, err
		case KindUpdate:
			return updateUpdate(a, b, opts)
		case KindSet:
			return Op{}, Op{}, &oterr.IllegalTransform{
				Path: a.Path.String(), KindA: string(a.Kind), KindB: string(b.Kind),
				Reason: "update and set cannot both originate from the same base value",
			}
		}
	case KindSet:
		switch b.Kind {
		case KindCreate:
			return Op{}, Op{}, illegalCreate(b, a)
		case KindDelete:
			bPrime, aPrime := deleteSet(b, a)
			return aPrime, bPrime, nil
		case KindUpdate:
			return Op{}, Op{}, &oterr.IllegalTransform{
				Path: a.Path.String(), KindA: string(a.Kind), KindB: string(b.Kind),
				Reason: "update and set cannot both originate from the same base value",
			}
		case KindSet:
			aPrime, bPrime := setSet(a, b)
			return aPrime, bPrime, nil
		}
	}
	return Op{}, Op{}, &oterr.MalformedOp{Reason: "unreachable objectop transform dispatch"}
}

func illegalCreate(create, other Op) error {
	return &oterr.IllegalTransform{
		Path: create.Path.String(), KindA: string(create.Kind), KindB: string(other.Kind),
		Reason: "create requires the path to have been absent in the common base",
	}
}

// deleteUpdate applies rule D-U: the delete survives (adjusted to remove
// the value the concurrent update produced), the update becomes NOP.
// del and upd must share a path; the caller maps the returned (delPrime,
// updPrime) pair back onto whichever of a/b held each kind.
func deleteUpdate(del, upd Op) (delPrime Op, updPrime Op, err error) {
	newVal, err := upd.applyDiff(del.Val)
	if err != nil {
		return Op{}, Op{}, err
	}
	delPrime = Op{Kind: KindDelete, Path: del.Path.Clone(), Val: newVal}
	return delPrime, NOP(), nil
}

// deleteSet applies rule D-S: set wins. The delete becomes NOP; the set
// survives with no recorded Original, since the delete's val is already
// gone on the branch where the set is applied second.
func deleteSet(del, set Op) (delPrime Op, setPrime Op) {
	setPrime = Op{Kind: KindSet, Path: set.Path.Clone(), Val: cloneValue(set.Val)}
	return NOP(), setPrime
}

// setSet applies rule S-S: b wins. a becomes NOP; b survives with its
// Original corrected to a's Val, since on the branch where b is applied
// second the value immediately prior to it is a's, not b's own recorded
// original.
func setSet(a, b Op) (aPrime Op, bPrime Op) {
	bPrime = Op{Kind: KindSet, Path: b.Path.Clone(), Val: cloneValue(b.Val), hasOriginal: true, Original: cloneValue(a.Val)}
	return NOP(), bPrime
}

// updateUpdate applies rule U-U: delegate to the leaf transform for the
// shared PropertyType. Mismatched PropertyType between two concurrent
// updates of the same path is a MalformedOp: it means one side's diff
// was generated against a leaf shape the other side could not have seen
// in the common base.
func updateUpdate(a, b Op, opts TransformOptions) (Op, Op, error) {
	if a.PropertyType != b.PropertyType {
		return Op{}, Op{}, &oterr.MalformedOp{
			Reason: "concurrent updates at " + a.Path.String() + " disagree on propertyType",
		}
	}
	switch a.PropertyType {
	case PropertyString:
		aDiff, bDiff, err := textop.Transform(*a.TextDiff, *b.TextDiff, textop.TransformOptions{Inplace: opts.Inplace})
		if err != nil {
			return Op{}, Op{}, err
		}
		aPrime := Op{Kind: KindUpdate, Path: a.Path.Clone(), PropertyType: PropertyString, TextDiff: &aDiff}
		bPrime := Op{Kind: KindUpdate, Path: b.Path.Clone(), PropertyType: PropertyString, TextDiff: &bDiff}
		if aDiff.IsNOP() {
			aPrime = NOP()
		}
		if bDiff.IsNOP() {
			bPrime = NOP()
		}
		return aPrime, bPrime, nil
	case PropertyArray:
		aDiff, bDiff, err := arrayop.Transform(*a.ArrayDiff, *b.ArrayDiff, arrayop.TransformOptions{Inplace: opts.Inplace})
		if err != nil {
			return Op{}, Op{}, err
		}
		aPrime := Op{Kind: KindUpdate, Path: a.Path.Clone(), PropertyType: PropertyArray, ArrayDiff: &aDiff}
		bPrime := Op{Kind: KindUpdate, Path: b.Path.Clone(), PropertyType: PropertyArray, ArrayDiff: &bDiff}
		if aDiff.IsNOP() {
			aPrime = NOP()
		}
		if bDiff.IsNOP() {
			bPrime = NOP()
		}
		return aPrime, bPrime, nil
	default:
		return Op{}, Op{}, &oterr.MalformedOp{Reason: "update op has unknown propertyType"}
	}
}
