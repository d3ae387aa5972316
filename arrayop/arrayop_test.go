package arrayop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyInsertDelete(t *testing.T) {
	out, err := Insert(0, "a", "b").Apply(nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out)

	out, err = Delete(1, "b", "c").Apply([]any{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "d"}, out)
}

func TestInvertRoundTrip(t *testing.T) {
	base := []any{"a", "b", "c", "d"}
	for _, op := range []Op{
		Insert(2, "x", "y"),
		Delete(1, "b", "c"),
	} {
		applied, err := op.Apply(base)
		require.NoError(t, err)
		restored, err := op.Invert().Apply(applied)
		require.NoError(t, err)
		assert.Equal(t, base, restored)
	}
}

func TestTransformConvergesOverlappingDeletes(t *testing.T) {
	base := []any{"a", "b", "c", "d", "e", "f"}
	a := Delete(1, "b", "c", "d")
	b := Delete(2, "c", "d", "e")

	aPrime, bPrime, err := Transform(a, b, TransformOptions{})
	require.NoError(t, err)

	viaB, err := b.Apply(base)
	require.NoError(t, err)
	left, err := aPrime.Apply(viaB)
	require.NoError(t, err)

	viaA, err := a.Apply(base)
	require.NoError(t, err)
	right, err := bPrime.Apply(viaA)
	require.NoError(t, err)

	assert.Equal(t, left, right)
}

func TestCloneDoesNotAliasNestedValues(t *testing.T) {
	nested := map[string]any{"k": "v"}
	op := Insert(0, nested)
	clone := op.Clone()
	clone.Values[0].(map[string]any)["k"] = "changed"
	assert.Equal(t, "v", op.Values[0].(map[string]any)["k"])
}
