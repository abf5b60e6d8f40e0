/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: grammar_test.go
Description: Tests for the payload grammar. Verifies that generated candidates
are always non-empty and JSON-serializable, that seeded generators are
deterministic, and that per-field value generation matches field semantics.
*/

package grammar

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
)

func TestCandidateAlwaysNonEmptyAndSerializable(t *testing.T) {
	gen := NewSeededGenerator(1)
	for i := 0; i < 500; i++ {
		c := gen.Candidate()
		require.Greater(t, c.Len(), 0, "generated candidate must never be empty")

		data, err := json.Marshal(c)
		require.NoError(t, err)
		require.True(t, json.Valid(data))
	}
}

func TestSeededGeneratorDeterministic(t *testing.T) {
	a := NewSeededGenerator(42)
	b := NewSeededGenerator(42)
	for i := 0; i < 50; i++ {
		assert.True(t, a.Candidate().Equal(b.Candidate()), "same seed must yield the same sequence")
	}
}

func TestRandomCharsLength(t *testing.T) {
	gen := NewSeededGenerator(7)
	for i := 0; i < 200; i++ {
		s := gen.RandomChars(3, 8)
		assert.GreaterOrEqual(t, len(s), 3)
		assert.LessOrEqual(t, len(s), 8)
	}
}

func TestUserPayloadCarriesRequiredName(t *testing.T) {
	gen := NewSeededGenerator(3)
	for i := 0; i < 200; i++ {
		c := gen.UserPayload()
		require.True(t, c.Has("name"), "user payloads always carry a name")
	}
}

func TestAuthPayloadCarriesCredentials(t *testing.T) {
	gen := NewSeededGenerator(5)
	for i := 0; i < 200; i++ {
		c := gen.AuthPayload()
		require.True(t, c.Has("username"))
		require.True(t, c.Has("password"))

		pw, _ := c.Get("password")
		assert.GreaterOrEqual(t, len(pw.Str), 8)
		assert.LessOrEqual(t, len(pw.Str), 16)
	}
}

func TestRandomAgeCoversDistributions(t *testing.T) {
	gen := NewSeededGenerator(11)
	sawNegative := false
	sawOversized := false
	sawString := false
	for i := 0; i < 500; i++ {
		v := gen.RandomAge()
		switch v.Kind {
		case genome.KindInt:
			if v.Int < 0 {
				sawNegative = true
			}
			if v.Int > 120 {
				sawOversized = true
			}
		case genome.KindString:
			sawString = true
		default:
			t.Fatalf("unexpected age kind: %d", v.Kind)
		}
	}
	assert.True(t, sawNegative, "age distribution includes negative values")
	assert.True(t, sawOversized, "age distribution includes oversized values")
	assert.True(t, sawString, "age distribution includes string values")
}

func TestRandomZipcodeSpecialValue(t *testing.T) {
	gen := NewSeededGenerator(13)
	saw90210 := false
	for i := 0; i < 500; i++ {
		if gen.RandomZipcode() == "90210" {
			saw90210 = true
			break
		}
	}
	assert.True(t, saw90210, "the special zipcode should appear in 500 draws")
}

func TestValueForMatchesSemantics(t *testing.T) {
	gen := NewSeededGenerator(17)

	v := gen.ValueFor("email", genome.FieldValue{})
	assert.Equal(t, genome.KindString, v.Kind)

	v = gen.ValueFor("hobbies", genome.FieldValue{})
	assert.Contains(t, []genome.FieldKind{genome.KindList, genome.KindString}, v.Kind)

	// Unknown fields preserve the prior kind
	v = gen.ValueFor("unknown_counter", genome.Int(5))
	assert.Equal(t, genome.KindInt, v.Kind)
	v = gen.ValueFor("unknown_flag", genome.Bool(false))
	assert.Equal(t, genome.KindBool, v.Kind)
}

func TestSQLInjectionPatternLooksLikeSQL(t *testing.T) {
	gen := NewSeededGenerator(19)
	for i := 0; i < 100; i++ {
		p := gen.SQLInjectionPattern()
		assert.True(t, strings.Contains(p, "'"), "pattern should carry a quote: %q", p)
	}
}

func TestRequiredFieldIsUsable(t *testing.T) {
	gen := NewSeededGenerator(23)
	name, value := gen.RequiredField()
	assert.Equal(t, "name", name)
	assert.Equal(t, genome.KindString, value.Kind)
	assert.NotEmpty(t, value.Str)
}
