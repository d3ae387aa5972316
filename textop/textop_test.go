package textop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyInsertDelete(t *testing.T) {
	s, err := Insert(0, "hello").Apply("")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = Delete(1, "ell").Apply("hello")
	require.NoError(t, err)
	assert.Equal(t, "ho", s)
}

func TestApplyOutOfRange(t *testing.T) {
	_, err := Insert(10, "x").Apply("abc")
	assert.Error(t, err)

	_, err = Delete(2, "xyz").Apply("abc")
	assert.Error(t, err)
}

func TestInvertRoundTrip(t *testing.T) {
	base := "the quick fox"
	for _, op := range []Op{
		Insert(4, "very "),
		Delete(4, "quick "),
	} {
		applied, err := op.Apply(base)
		require.NoError(t, err)
		restored, err := op.Invert().Apply(applied)
		require.NoError(t, err)
		assert.Equal(t, base, restored)
	}
}

func TestNOPIdentity(t *testing.T) {
	s, err := NOP().Apply("unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", s)
	assert.True(t, NOP().Invert().IsNOP())
}

func TestTransformConvergesInsertInsert(t *testing.T) {
	base := "ac"
	a := Insert(1, "B")
	b := Insert(1, "X")

	checkConverges(t, base, a, b)
}

func TestTransformConvergesInsertDelete(t *testing.T) {
	base := "abcdef"
	a := Insert(3, "Z")
	b := Delete(1, "bc")

	checkConverges(t, base, a, b)
}

func TestTransformConvergesOverlappingDeletes(t *testing.T) {
	base := "abcdef"
	a := Delete(1, "bcd")
	b := Delete(2, "cde")

	checkConverges(t, base, a, b)
}

func TestTransformConvergesDisjointDeletes(t *testing.T) {
	base := "abcdefgh"
	a := Delete(0, "ab")
	b := Delete(5, "fg")

	checkConverges(t, base, a, b)
}

// checkConverges asserts TP1: apply(a', apply(b, base)) == apply(b', apply(a, base)).
func checkConverges(t *testing.T, base string, a, b Op) {
	t.Helper()
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

func TestComposeAdjacentInserts(t *testing.T) {
	merged, ok := Compose(Insert(0, "ab"), Insert(2, "cd"))
	require.True(t, ok)
	assert.Equal(t, "abcd", merged.Text)
}

func TestComposeNonAdjacentFails(t *testing.T) {
	_, ok := Compose(Insert(0, "ab"), Insert(5, "cd"))
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	op := Insert(3, "hi")
	data, err := json.Marshal(op)
	require.NoError(t, err)

	var out Op
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, op, out)
}
