package docadapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homveloper/otdoc/docadapter"
	"github.com/homveloper/otdoc/objectop"
)

func TestSetCreatesIntermediateObjects(t *testing.T) {
	d := docadapter.New(nil)
	d.Set(objectop.NewPath("a", "b", "c"), "leaf")

	v, ok := d.Get(objectop.NewPath("a", "b", "c"))
	require.True(t, ok)
	assert.Equal(t, "leaf", v)
}

func TestGetMissingPath(t *testing.T) {
	d := docadapter.New(nil)
	_, ok := d.Get(objectop.NewPath("missing"))
	assert.False(t, ok)
}

func TestDeleteStrictOnAbsentPathErrors(t *testing.T) {
	d := docadapter.New(nil)
	err := d.Delete(objectop.NewPath("missing"), "strict")
	assert.Error(t, err)
}

func TestDeleteRemovesKey(t *testing.T) {
	d := docadapter.New(nil)
	d.Set(objectop.NewPath("a"), "1")
	require.NoError(t, d.Delete(objectop.NewPath("a"), "strict"))

	_, ok := d.Get(objectop.NewPath("a"))
	assert.False(t, ok)
}

func TestArrayIndexAccess(t *testing.T) {
	d := docadapter.New(nil)
	d.Set(objectop.NewPath("items"), []any{"x", "y", "z"})

	v, ok := d.Get(objectop.NewPath("items", "1"))
	require.True(t, ok)
	assert.Equal(t, "y", v)
}
