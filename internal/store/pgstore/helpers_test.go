package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinConditions_Single(t *testing.T) {
	assert.Equal(t, "a = 1", joinConditions([]string{"a = 1"}))
}

func TestJoinConditions_Multiple(t *testing.T) {
	assert.Equal(t, "a = 1 AND b = 2 AND c = 3", joinConditions([]string{"a = 1", "b = 2", "c = 3"}))
}

func TestSliceToSet_Empty(t *testing.T) {
	set := sliceToSet(nil)
	assert.NotNil(t, set)
	assert.Empty(t, set)
}

func TestSliceToSet_Populated(t *testing.T) {
	set := sliceToSet([]byte(`["mem_1","mem_2","mem_1"]`))
	assert.Len(t, set, 2)
	_, ok := set["mem_1"]
	assert.True(t, ok)
	_, ok = set["mem_2"]
	assert.True(t, ok)
}

func TestSliceToSet_MalformedJSON(t *testing.T) {
	set := sliceToSet([]byte(`not json`))
	assert.NotNil(t, set)
	assert.Empty(t, set)
}

func TestSetToSlice_RoundTrip(t *testing.T) {
	set := map[string]struct{}{"a": {}, "b": {}}
	out := setToSlice(set)
	assert.Len(t, out, 2)
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
}

func TestNullableString(t *testing.T) {
	assert.Nil(t, nullableString(""))
	v := nullableString("x")
	if assert.NotNil(t, v) {
		assert.Equal(t, "x", *v)
	}
}
