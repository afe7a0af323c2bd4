package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{"zebra": Int(1), "apple": Int(2), "banana": Int(3)}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())

	mixed := Object{"a": Int(1), "A": Int(2), "aa": Int(3), "Aa": Int(4)}
	assert.Equal(t, []string{"A", "Aa", "a", "aa"}, mixed.SortedKeys())
}

func TestNewObject(t *testing.T) {
	obj := NewObject(P("id", Int(1)), P("full_name", String("김민준")))
	assert.Equal(t, Object{"id": Int(1), "full_name": String("김민준")}, obj)
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue([]byte(`{"name":"x","n":12,"ok":true,"list":[1,"a"]}`))
	require.NoError(t, err)

	assert.Equal(t, Object{
		"name": String("x"),
		"n":    Int(12),
		"ok":   Bool(true),
		"list": Array{Int(1), String("a")},
	}, v)
}

func TestParseValueRejectsFloats(t *testing.T) {
	for _, input := range []string{`1.5`, `{"a":1e3}`, `[2E1]`} {
		_, err := ParseValue([]byte(input))
		require.Error(t, err, input)
		assert.Contains(t, err.Error(), "floats")
	}
}

func TestParseValueRejectsNull(t *testing.T) {
	_, err := ParseValue([]byte(`{"a":null}`))
	require.Error(t, err)
}

func TestParseValueLargeInt(t *testing.T) {
	v, err := ParseValue([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, Int(9007199254740993), v)
}

func TestObjectJSONRoundTrip(t *testing.T) {
	obj := Object{"amount": Int(1_000_000_000_000), "to": String("treasury")}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"amount":1000000000000,"to":"treasury"}`, string(data))

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obj, back)
}

func TestObjectUnmarshalRejectsArray(t *testing.T) {
	var obj Object
	err := json.Unmarshal([]byte(`[1,2]`), &obj)
	require.Error(t, err)
}

func TestFromGoYAMLShapes(t *testing.T) {
	v, err := FromGo(map[string]any{
		"names":  []any{"a", "b"},
		"months": []any{3, 7},
		"nested": map[string]any{"ok": true},
	})
	require.NoError(t, err)

	assert.Equal(t, Object{
		"names":  Array{String("a"), String("b")},
		"months": Array{Int(3), Int(7)},
		"nested": Object{"ok": Bool(true)},
	}, v)

	_, err = FromGo(map[string]any{"price": 1.5})
	require.Error(t, err)
}

func TestToGo(t *testing.T) {
	obj := Object{"id": Int(1), "tags": Strings([]string{"a"}), "ok": Bool(false)}
	assert.Equal(t, map[string]any{
		"id":   int64(1),
		"tags": []any{"a"},
		"ok":   false,
	}, ToGo(obj))
}
