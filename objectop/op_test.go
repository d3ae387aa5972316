package objectop_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homveloper/otdoc/docadapter"
	"github.com/homveloper/otdoc/objectop"
	"github.com/homveloper/otdoc/textop"
)

func TestCreateDeleteInvert(t *testing.T) {
	doc := docadapter.New(nil)
	path := objectop.NewPath("title")

	create, err := objectop.NewCreate(path, "hello")
	require.NoError(t, err)
	require.NoError(t, create.Apply(doc))

	got, ok := doc.Get(path)
	require.True(t, ok)
	assert.Equal(t, "hello", got)

	inv, err := create.Invert()
	require.NoError(t, err)
	require.NoError(t, inv.Apply(doc))

	_, ok = doc.Get(path)
	assert.False(t, ok)
}

func TestUpdateTextApplyInvert(t *testing.T) {
	doc := docadapter.New(nil)
	path := objectop.NewPath("title")
	doc.Set(path, "hello")

	upd, err := objectop.NewUpdateText(path, textop.Insert(5, " world"))
	require.NoError(t, err)
	require.NoError(t, upd.Apply(doc))

	got, _ := doc.Get(path)
	assert.Equal(t, "hello world", got)

	inv, err := upd.Invert()
	require.NoError(t, err)
	require.NoError(t, inv.Apply(doc))

	got, _ = doc.Get(path)
	assert.Equal(t, "hello", got)
}

func TestSetInvertRestoresOriginal(t *testing.T) {
	doc := docadapter.New(nil)
	path := objectop.NewPath("status")
	doc.Set(path, "draft")

	set, err := objectop.NewSet(path, "published", "draft", true)
	require.NoError(t, err)
	require.NoError(t, set.Apply(doc))

	got, _ := doc.Get(path)
	assert.Equal(t, "published", got)

	inv, err := set.Invert()
	require.NoError(t, err)
	require.NoError(t, inv.Apply(doc))

	got, _ = doc.Get(path)
	assert.Equal(t, "draft", got)
}

func TestMalformedOpRejectsEmptyPath(t *testing.T) {
	_, err := objectop.NewCreate(objectop.NewPath(), "x")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	upd, err := objectop.NewUpdateText(objectop.NewPath("a", "b"), textop.Insert(0, "hi"))
	require.NoError(t, err)

	data, err := json.Marshal(upd)
	require.NoError(t, err)

	var out objectop.Op
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, upd.Path, out.Path)
	assert.Equal(t, upd.PropertyType, out.PropertyType)
}
