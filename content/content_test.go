package content

import (
	"strings"
	"testing"

	"eventweb/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func mustJSON(t *testing.T, s string) Value {
	t.Helper()
	v, err := ParseJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestParsePath(t *testing.T) {
	cases := []struct {
		in   string
		want Path
	}{
		{"title", Path{{Key: "title"}}},
		{"hero.title", Path{{Key: "hero"}, {Key: "title"}}},
		{"features[0].icon[0]", Path{{Key: "features"}, {Index: 0, IsIndex: true}, {Key: "icon"}, {Index: 0, IsIndex: true}}},
		{"grid[1][2]", Path{{Key: "grid"}, {Index: 1, IsIndex: true}, {Index: 2, IsIndex: true}}},
		{`links["a.b"].href`, Path{{Key: "links"}, {Key: "a.b"}, {Key: "href"}}},
	}
	for _, tc := range cases {
		got, err := ParsePath(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParsePath_Invalid(t *testing.T) {
	for _, in := range []string{"", ".a", "a.", "a..b", "a[", "a[x]", "a[-1]", "a[0]b", "a[99999]"} {
		_, err := ParsePath(in)
		require.Error(t, err, in)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), in)
	}
}

func TestPathString(t *testing.T) {
	p, err := ParsePath("features[0].icon[1]")
	require.NoError(t, err)
	assert.Equal(t, "features[0].icon[1]", p.String())
}

func TestSetThenGet(t *testing.T) {
	root := mustJSON(t, `{"hero":{"title":"Welcome","subtitle":"Hi"},"features":[{"icon":["u1"]}]}`)

	paths := []string{"hero.title", "features[0].icon[0]", "features[2].name", "footer.links[1].href", "brand"}
	for _, p := range paths {
		require.NoError(t, Set(&root, p, Str("set:"+p)))
		got := Get(root, p, Value{})
		s, ok := got.AsString()
		require.True(t, ok, p)
		assert.Equal(t, "set:"+p, s)
	}

	// siblings survive
	assert.Equal(t, Str("Hi"), Get(root, "hero.subtitle", Value{}))
	// the index gap is padded with null
	assert.True(t, Get(root, "features[1]", Str("x")).IsNull())
	assert.Equal(t, 3, Get(root, "features", Value{}).Len())
}

func TestGet_DefaultOnMissing(t *testing.T) {
	root := mustJSON(t, `{"a":{"b":[1,2]}}`)
	def := StrList()
	assert.Equal(t, def, Get(root, "a.c", def))
	assert.Equal(t, def, Get(root, "a.b[5]", def))
	assert.Equal(t, def, Get(root, "a.b.c", def))
	assert.Equal(t, def, Get(root, "a[0]", def))
	n, _ := Get(root, "a.b[1]", def).AsNumber()
	assert.Equal(t, 2.0, n)
}

func TestSet_PathConflictLeavesRootUntouched(t *testing.T) {
	root := mustJSON(t, `{"title":"x","list":[1]}`)
	before := root.Clone()

	err := Set(&root, "title.text", Str("y"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindPathConflict, apperr.KindOf(err))

	err = Set(&root, "list.first", Str("y"))
	assert.Equal(t, apperr.KindPathConflict, apperr.KindOf(err))

	err = Set(&root, "[0]", Str("y"))
	assert.Equal(t, apperr.KindPathConflict, apperr.KindOf(err))

	assert.True(t, Equal(before, root))
}

func TestSet_ThroughNullCreatesContainer(t *testing.T) {
	root := mustJSON(t, `{"logo":null}`)
	require.NoError(t, Set(&root, "logo[0]", Str("u")))
	assert.Equal(t, StrList("u"), Get(root, "logo", Value{}))
}

func TestDeepMerge(t *testing.T) {
	dst := mustJSON(t, `{"a":{"y":2}}`)
	DeepMerge(&dst, mustJSON(t, `{"a":{"x":1}}`))
	assert.True(t, Equal(mustJSON(t, `{"a":{"x":1,"y":2}}`), dst))

	dst = mustJSON(t, `{"gallery":["u1","u2"],"title":"t"}`)
	DeepMerge(&dst, mustJSON(t, `{"gallery":["u3"]}`))
	assert.True(t, Equal(mustJSON(t, `{"gallery":["u3"],"title":"t"}`), dst))

	dst = mustJSON(t, `{"hero":{"title":"old"}}`)
	DeepMerge(&dst, mustJSON(t, `{"hero":"flat"}`))
	assert.Equal(t, Str("flat"), Get(dst, "hero", Value{}))
}

func TestDeepMerge_DoesNotAliasSource(t *testing.T) {
	dst := Map()
	src := mustJSON(t, `{"a":{"b":["u1"]}}`)
	DeepMerge(&dst, src)
	require.NoError(t, Set(&src, "a.b[0]", Str("changed")))
	assert.Equal(t, Str("u1"), Get(dst, "a.b[0]", Value{}))
}

func TestPatch_Conflicts(t *testing.T) {
	p := NewPatch()
	require.NoError(t, p.Set("hero.title", Str("t")))
	err := p.Set("hero", Str("flat"))
	assert.Equal(t, apperr.KindPathConflict, apperr.KindOf(err))

	p = NewPatch()
	require.NoError(t, p.Set("hero", Str("flat")))
	err = p.Set("hero.title", Str("t"))
	assert.Equal(t, apperr.KindPathConflict, apperr.KindOf(err))

	p = NewPatch()
	require.NoError(t, p.Set("gallery", StrList("u1")))
	err = p.Set("gallery[0].src", Str("u2"))
	assert.Equal(t, apperr.KindPathConflict, apperr.KindOf(err))
}

func TestPatch_ScalarLastWins(t *testing.T) {
	p := NewPatch()
	require.NoError(t, p.Set("hero.title", Str("first")))
	require.NoError(t, p.Set("hero.title", Str("second")))
	assert.Equal(t, Str("second"), Get(p.Value(), "hero.title", Value{}))
}

func TestPatch_SparseIndexes(t *testing.T) {
	p := NewPatch()
	require.NoError(t, p.Set("features[1].icon", StrList("u2")))
	require.NoError(t, p.Set("features[0].icon", StrList("u1")))
	require.NoError(t, p.Set("features[0].title", Str("one")))
	assert.Equal(t, `{"features":[{"icon":["u1"],"title":"one"},{"icon":["u2"]}]}`, string(mustMarshal(t, p.Value())))
}

func mustMarshal(t *testing.T, v Value) []byte {
	t.Helper()
	b, err := v.MarshalJSON()
	require.NoError(t, err)
	return b
}

func TestJSON_PreservesKeyOrder(t *testing.T) {
	in := `{"zeta":1,"alpha":{"b":true,"a":null},"mid":["x",2.5]}`
	v := mustJSON(t, in)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, v.Keys())
	assert.Equal(t, in, string(mustMarshal(t, v)))
}

func TestJSON_RejectsTrailingData(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func nested(depth int) []byte {
	return []byte(strings.Repeat("[", depth) + strings.Repeat("]", depth))
}

func TestJSON_NestingLimit(t *testing.T) {
	_, err := ParseJSON(nested(MaxDepth))
	require.NoError(t, err)

	_, err = ParseJSON(nested(MaxDepth + 1))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = ParseJSON([]byte(strings.Repeat(`{"a":`, MaxDepth+1) + "1" + strings.Repeat("}", MaxDepth+1)))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// a hostile body fails fast instead of exhausting the stack
	_, err = ParseJSON(nested(4 << 20))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestBSONRoundTrip(t *testing.T) {
	type doc struct {
		Content Value `bson:"content"`
	}
	in := doc{Content: mustJSON(t, `{"title":"Welcome","count":3,"ratio":0.5,"on":false,"gallery":["u1","u2"],"nested":{"z":null,"a":[{"k":"v"}]}}`)}

	raw, err := bson.Marshal(in)
	require.NoError(t, err)

	var out doc
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.True(t, Equal(in.Content, out.Content))
	assert.Equal(t, in.Content.Keys(), out.Content.Keys())
}
