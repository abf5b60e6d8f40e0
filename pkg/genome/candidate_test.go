/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: candidate_test.go
Description: Tests for the candidate payload model. Verifies ordered JSON
serialization, deep cloning, round-trip persistence, and field operations.
*/

package genome

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateOrderedMarshal(t *testing.T) {
	c := NewCandidate()
	c.Set("name", String("alice"))
	c.Set("age", Int(30))
	c.Set("active", Bool(true))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"alice","age":30,"active":true}`, string(data))
}

func TestCandidateMarshalAllKinds(t *testing.T) {
	c := NewCandidate()
	c.Set("s", String("x"))
	c.Set("i", Int(-5))
	c.Set("f", Float(1.5))
	c.Set("b", Bool(false))
	c.Set("l", List([]string{"a", "b"}))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"s":"x","i":-5,"f":1.5,"b":false,"l":["a","b"]}`, string(data))
}

func TestCandidateRoundTrip(t *testing.T) {
	c := NewCandidate()
	c.Set("name", String("bob"))
	c.Set("age", Int(42))
	c.Set("score", Float(0.75))
	c.Set("hobbies", List([]string{"reading", "hiking"}))
	c.Set("memleak", Bool(true))

	data, err := json.Marshal(c)
	require.NoError(t, err)

	restored := NewCandidate()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.True(t, c.Equal(restored), "round-tripped candidate should equal the original")
	assert.Equal(t, c.Keys(), restored.Keys(), "key order should survive the round trip")
}

func TestCandidateCloneIndependence(t *testing.T) {
	original := NewCandidate()
	original.Set("name", String("carol"))
	original.Set("hobbies", List([]string{"gaming"}))

	clone := original.Clone()
	clone.Set("name", String("dave"))
	clone.Delete("hobbies")
	clone.Set("age", Int(25))

	v, ok := original.Get("name")
	require.True(t, ok)
	assert.Equal(t, "carol", v.Str, "mutating a clone must not touch the original")
	assert.True(t, original.Has("hobbies"))
	assert.False(t, original.Has("age"))
}

func TestCandidateCloneListAliasing(t *testing.T) {
	original := NewCandidate()
	original.Set("hobbies", List([]string{"reading", "hiking"}))

	clone := original.Clone()
	v, _ := clone.Get("hobbies")
	v.List[0] = "hacking"

	ov, _ := original.Get("hobbies")
	assert.Equal(t, "reading", ov.List[0], "clone lists must not alias the original")
}

func TestCandidateDelete(t *testing.T) {
	c := NewCandidate()
	c.Set("a", Int(1))
	c.Set("b", Int(2))
	c.Set("c", Int(3))

	c.Delete("b")
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"a", "c"}, c.Keys())

	// Deleting a missing key is a no-op
	c.Delete("missing")
	assert.Equal(t, 2, c.Len())
}

func TestCandidateSetOverwriteKeepsOrder(t *testing.T) {
	c := NewCandidate()
	c.Set("a", Int(1))
	c.Set("b", Int(2))
	c.Set("a", Int(9))

	assert.Equal(t, []string{"a", "b"}, c.Keys())
	v, _ := c.Get("a")
	assert.Equal(t, int64(9), v.Int)
}

func TestFieldValueUnmarshalKinds(t *testing.T) {
	cases := []struct {
		raw  string
		kind FieldKind
	}{
		{`"hello"`, KindString},
		{`42`, KindInt},
		{`-7`, KindInt},
		{`3.14`, KindFloat},
		{`1e3`, KindFloat},
		{`true`, KindBool},
		{`["x","y"]`, KindList},
	}
	for _, tc := range cases {
		var v FieldValue
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &v), "raw: %s", tc.raw)
		assert.Equal(t, tc.kind, v.Kind, "raw: %s", tc.raw)
	}
}

func TestCandidateEqual(t *testing.T) {
	a := NewCandidate()
	a.Set("name", String("x"))
	a.Set("age", Int(1))

	b := NewCandidate()
	b.Set("name", String("x"))
	b.Set("age", Int(1))
	assert.True(t, a.Equal(b))

	// Different order is a different candidate
	c := NewCandidate()
	c.Set("age", Int(1))
	c.Set("name", String("x"))
	assert.False(t, a.Equal(c))
}
