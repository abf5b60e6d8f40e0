/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: mutator_test.go
Description: Tests for the payload mutation strategy. Verifies that mutation
never empties or modifies its input, stays safe on degenerate single-field
payloads, and is observably effective across repeated applications.
*/

package strategies

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
	"github.com/kleascm/evogene-fuzzer/pkg/grammar"
)

func newTestMutator(seed int64) *PayloadMutator {
	gen := grammar.NewSeededGenerator(seed)
	return NewSeededPayloadMutator(gen, DefaultMutatorConfig(), seed)
}

func TestMutateNeverEmptyAndSerializable(t *testing.T) {
	m := newTestMutator(1)
	gen := grammar.NewSeededGenerator(2)

	for i := 0; i < 300; i++ {
		mutated := m.Mutate(gen.Candidate())
		require.Greater(t, mutated.Len(), 0, "mutation must never produce an empty payload")

		data, err := json.Marshal(mutated)
		require.NoError(t, err)
		require.True(t, json.Valid(data))
	}
}

func TestMutateDoesNotModifyInput(t *testing.T) {
	m := newTestMutator(3)

	original := genome.NewCandidate()
	original.Set("name", genome.String("alice"))
	original.Set("age", genome.Int(30))
	original.Set("hobbies", genome.List([]string{"reading"}))
	snapshot := original.Clone()

	for i := 0; i < 100; i++ {
		m.Mutate(original)
	}
	assert.True(t, original.Equal(snapshot), "the input candidate must never change")
}

func TestMutateSingleFieldSafe(t *testing.T) {
	m := newTestMutator(5)

	for i := 0; i < 200; i++ {
		c := genome.NewCandidate()
		c.Set("name", genome.String("solo"))
		mutated := m.Mutate(c)
		require.Greater(t, mutated.Len(), 0)
	}
}

func TestMutateObservablyEffective(t *testing.T) {
	m := newTestMutator(7)

	c := genome.NewCandidate()
	c.Set("name", genome.String("alice"))
	c.Set("age", genome.Int(30))
	c.Set("email", genome.String("alice@example.com"))

	changed := 0
	for i := 0; i < 100; i++ {
		if !m.Mutate(c).Equal(c) {
			changed++
		}
	}
	assert.Greater(t, changed, 80, "mutation should change the payload almost every time")
}

func TestMutateTypeAwareModification(t *testing.T) {
	m := newTestMutator(9)

	c := genome.NewCandidate()
	c.Set("flag", genome.Bool(false))
	c.Set("count", genome.Int(10))

	// Every mutated result still serializes and keeps valid kinds
	for i := 0; i < 200; i++ {
		mutated := m.Mutate(c)
		for _, key := range mutated.Keys() {
			v, ok := mutated.Get(key)
			require.True(t, ok)
			_, err := v.MarshalJSON()
			require.NoError(t, err)
		}
	}
}

func TestSideMutationsDisabled(t *testing.T) {
	// With the toggle off, the side-mutation probabilities must have no
	// effect: mutators differing only in those probabilities produce
	// identical sequences from the same seeds
	hot := MutatorConfig{SQLInjectionProb: 1.0, MemleakFlipProb: 1.0, EnableSideMutations: false}
	cold := MutatorConfig{SQLInjectionProb: 0.0, MemleakFlipProb: 0.0, EnableSideMutations: false}
	mHot := NewSeededPayloadMutator(grammar.NewSeededGenerator(11), hot, 11)
	mCold := NewSeededPayloadMutator(grammar.NewSeededGenerator(11), cold, 11)

	c := genome.NewCandidate()
	c.Set("memleak", genome.Bool(false))
	c.Set("name", genome.String("alice"))
	c.Set("age", genome.Int(30))

	for i := 0; i < 100; i++ {
		assert.True(t, mHot.Mutate(c).Equal(mCold.Mutate(c)))
	}
}

func TestSideMutationSQLInjection(t *testing.T) {
	gen := grammar.NewSeededGenerator(13)
	config := MutatorConfig{
		SQLInjectionProb:    1.0,
		MemleakFlipProb:     0.0,
		EnableSideMutations: true,
	}
	m := NewSeededPayloadMutator(gen, config, 13)

	c := genome.NewCandidate()
	c.Set("name", genome.String("alice"))

	sawInjection := false
	for i := 0; i < 50; i++ {
		mutated := m.Mutate(c)
		for _, key := range mutated.Keys() {
			if v, _ := mutated.Get(key); v.Kind == genome.KindString && strings.Contains(v.Str, "'") {
				sawInjection = true
			}
		}
	}
	assert.True(t, sawInjection, "forced SQL side mutation should plant injection literals")
}
