package objectop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homveloper/otdoc/docadapter"
	"github.com/homveloper/otdoc/objectop"
	"github.com/homveloper/otdoc/textop"
)

// checkConverges asserts TP1 for a pair of ops against a document seeded
// by seed: apply(a', apply(b, seed)) == apply(b', apply(a, seed)).
func checkConverges(t *testing.T, seed func(*docadapter.Document), a, b objectop.Op) {
	t.Helper()
	aPrime, bPrime, err := objectop.Transform(a, b, objectop.TransformOptions{})
	require.NoError(t, err)

	left := docadapter.New(nil)
	seed(left)
	require.NoError(t, b.Apply(left))
	require.NoError(t, aPrime.Apply(left))

	right := docadapter.New(nil)
	seed(right)
	require.NoError(t, a.Apply(right))
	require.NoError(t, bPrime.Apply(right))

	assert.Equal(t, left.Root(), right.Root())
}

func TestTransformDeleteDeleteBothNOP(t *testing.T) {
	path := objectop.NewPath("x")
	del, err := objectop.NewDelete(path, "v")
	require.NoError(t, err)

	aPrime, bPrime, err := objectop.Transform(del, del, objectop.TransformOptions{})
	require.NoError(t, err)
	assert.True(t, aPrime.IsNOP())
	assert.True(t, bPrime.IsNOP())
}

func TestTransformDeleteUpdateDeleteWins(t *testing.T) {
	path := objectop.NewPath("body")
	del, err := objectop.NewDelete(path, "hello")
	require.NoError(t, err)
	upd, err := objectop.NewUpdateText(path, textop.Insert(5, " world"))
	require.NoError(t, err)

	checkConverges(t, func(d *docadapter.Document) { d.Set(path, "hello") }, del, upd)

	aPrime, bPrime, err := objectop.Transform(del, upd, objectop.TransformOptions{})
	require.NoError(t, err)
	assert.True(t, bPrime.IsNOP())
	assert.Equal(t, "hello world", aPrime.Val)
}

func TestTransformDeleteSetSetWins(t *testing.T) {
	path := objectop.NewPath("status")
	del, err := objectop.NewDelete(path, "draft")
	require.NoError(t, err)
	set, err := objectop.NewSet(path, "published", "draft", true)
	require.NoError(t, err)

	checkConverges(t, func(d *docadapter.Document) { d.Set(path, "draft") }, del, set)

	aPrime, bPrime, err := objectop.Transform(del, set, objectop.TransformOptions{})
	require.NoError(t, err)
	assert.True(t, aPrime.IsNOP())
	assert.Equal(t, "published", bPrime.Val)
}

func TestTransformSetSetBWins(t *testing.T) {
	path := objectop.NewPath("status")
	a, err := objectop.NewSet(path, "approved", "draft", true)
	require.NoError(t, err)
	b, err := objectop.NewSet(path, "rejected", "draft", true)
	require.NoError(t, err)

	checkConverges(t, func(d *docadapter.Document) { d.Set(path, "draft") }, a, b)

	aPrime, bPrime, err := objectop.Transform(a, b, objectop.TransformOptions{})
	require.NoError(t, err)
	assert.True(t, aPrime.IsNOP())
	assert.Equal(t, "rejected", bPrime.Val)
}

func TestTransformUpdateUpdateDelegatesToTextop(t *testing.T) {
	path := objectop.NewPath("body")
	a, err := objectop.NewUpdateText(path, textop.Insert(0, "A"))
	require.NoError(t, err)
	b, err := objectop.NewUpdateText(path, textop.Insert(0, "B"))
	require.NoError(t, err)

	checkConverges(t, func(d *docadapter.Document) { d.Set(path, "base") }, a, b)
}

func TestTransformCreateCreateIsIllegal(t *testing.T) {
	path := objectop.NewPath("x")
	a, err := objectop.NewCreate(path, "a")
	require.NoError(t, err)
	b, err := objectop.NewCreate(path, "b")
	require.NoError(t, err)

	_, _, err = objectop.Transform(a, b, objectop.TransformOptions{})
	assert.Error(t, err)
}

func TestTransformUpdateSetIsIllegal(t *testing.T) {
	path := objectop.NewPath("x")
	upd, err := objectop.NewUpdateText(path, textop.Insert(0, "a"))
	require.NoError(t, err)
	set, err := objectop.NewSet(path, "z", nil, false)
	require.NoError(t, err)

	_, _, err = objectop.Transform(upd, set, objectop.TransformOptions{})
	assert.Error(t, err)
}

func TestTransformDisjointPathsCommute(t *testing.T) {
	a, err := objectop.NewCreate(objectop.NewPath("a"), "1")
	require.NoError(t, err)
	b, err := objectop.NewCreate(objectop.NewPath("b"), "2")
	require.NoError(t, err)

	aPrime, bPrime, err := objectop.Transform(a, b, objectop.TransformOptions{})
	require.NoError(t, err)
	assert.Equal(t, a, aPrime)
	assert.Equal(t, b, bPrime)
}

func TestTransformNoConflictOptionReturnsConflict(t *testing.T) {
	path := objectop.NewPath("x")
	a, err := objectop.NewSet(path, "a", nil, false)
	require.NoError(t, err)
	b, err := objectop.NewSet(path, "b", nil, false)
	require.NoError(t, err)

	_, _, err = objectop.Transform(a, b, objectop.TransformOptions{NoConflict: true})
	assert.Error(t, err)
}
