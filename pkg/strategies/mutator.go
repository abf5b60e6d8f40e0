/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: mutator.go
Description: Payload mutation strategy for the Evogene Fuzzer. Applies one of
four structural mutations (add, remove, modify, replace) to a cloned candidate,
then independent low-probability side mutations that plant fault-injection
hints (memleak flag, SQL-injection literals). Guarantees the result is never
empty and the input is never modified.
*/

package strategies

import (
	"math/rand"
	"time"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
	"github.com/kleascm/evogene-fuzzer/pkg/grammar"
)

// MutatorConfig controls the side-mutation behavior of PayloadMutator
type MutatorConfig struct {
	SQLInjectionProb    float64 // Probability of swapping a string field for a SQL literal
	MemleakFlipProb     float64 // Probability of flipping an existing memleak field true
	EnableSideMutations bool    // Master switch for both side mutations
}

// DefaultMutatorConfig returns the standard side-mutation rates
func DefaultMutatorConfig() MutatorConfig {
	return MutatorConfig{
		SQLInjectionProb:    0.05,
		MemleakFlipProb:     0.10,
		EnableSideMutations: true,
	}
}

// PayloadMutator implements the structural mutation strategy.
// Not safe for concurrent use: each engine holds one instance and
// applies mutations on the generational (sequential) path.
type PayloadMutator struct {
	gen    *grammar.Generator // Source of fresh field values
	config MutatorConfig      // Side-mutation rates
	rng    *rand.Rand         // Strategy and probability decisions
}

// NewPayloadMutator creates a mutator seeded from the current time
func NewPayloadMutator(gen *grammar.Generator, config MutatorConfig) *PayloadMutator {
	return NewSeededPayloadMutator(gen, config, time.Now().UnixNano())
}

// NewSeededPayloadMutator creates a deterministic mutator for tests
func NewSeededPayloadMutator(gen *grammar.Generator, config MutatorConfig, seed int64) *PayloadMutator {
	return &PayloadMutator{
		gen:    gen,
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Name returns the name of this mutator
func (m *PayloadMutator) Name() string {
	return "payload_mutator"
}

// Description returns a description of this mutator
func (m *PayloadMutator) Description() string {
	return "Structural add/remove/modify/replace mutation with fault-injection side mutations"
}

// Mutate creates a mutated copy of the candidate. The input is never
// modified and the result always carries at least one field.
func (m *PayloadMutator) Mutate(candidate *genome.Candidate) *genome.Candidate {
	mutated := candidate.Clone()

	strategy := m.rng.Intn(4)
	if mutated.Len() < 2 {
		// Too small to remove or meaningfully shuffle: grow instead
		strategy = 0
	}

	switch strategy {
	case 0:
		m.addField(mutated)
	case 1:
		m.removeField(mutated)
	case 2:
		m.modifyField(mutated)
	case 3:
		m.replaceField(mutated)
	}

	if m.config.EnableSideMutations {
		m.flipMemleak(mutated)
		m.injectSQL(mutated)
	}

	if mutated.Len() == 0 {
		name, value := m.gen.RequiredField()
		mutated.Set(name, value)
	}
	return mutated
}

// addField copies one random field from a freshly generated candidate
func (m *PayloadMutator) addField(c *genome.Candidate) {
	fresh := m.gen.Candidate()
	keys := fresh.Keys()
	key := keys[m.rng.Intn(len(keys))]
	value, _ := fresh.Get(key)
	c.Set(key, value)
}

// removeField drops one random field, leaving at least one behind
func (m *PayloadMutator) removeField(c *genome.Candidate) {
	if c.Len() <= 1 {
		return
	}
	keys := c.Keys()
	c.Delete(keys[m.rng.Intn(len(keys))])
}

// modifyField applies a type-aware perturbation to one random field
func (m *PayloadMutator) modifyField(c *genome.Candidate) {
	keys := c.Keys()
	key := keys[m.rng.Intn(len(keys))]
	value, _ := c.Get(key)

	switch value.Kind {
	case genome.KindString:
		if m.rng.Float64() < 0.5 {
			c.Set(key, genome.String(m.gen.RandomChars(3, 10)))
		} else {
			c.Set(key, genome.String(value.Str+m.gen.RandomChars(1, 5)))
		}
	case genome.KindInt:
		if m.rng.Float64() < 0.5 {
			c.Set(key, m.gen.RandomAge())
		} else {
			c.Set(key, genome.Int(value.Int+int64(m.rng.Intn(21)-10)))
		}
	case genome.KindFloat:
		c.Set(key, genome.Float(value.Float+m.rng.Float64()-0.5))
	case genome.KindBool:
		c.Set(key, genome.Bool(!value.Bool))
	case genome.KindList:
		m.modifyList(c, key, value)
	}
}

// modifyList replaces, extends, or shrinks a list field
func (m *PayloadMutator) modifyList(c *genome.Candidate, key string, value genome.FieldValue) {
	if len(value.List) == 0 || m.rng.Float64() < 0.3 {
		c.Set(key, m.gen.RandomHobbies())
		return
	}
	if m.rng.Float64() < 0.5 {
		items := append(append([]string{}, value.List...), m.gen.RandomChars(3, 10))
		c.Set(key, genome.List(items))
		return
	}
	if len(value.List) > 1 {
		idx := m.rng.Intn(len(value.List))
		items := append(append([]string{}, value.List[:idx]...), value.List[idx+1:]...)
		c.Set(key, genome.List(items))
	}
}

// replaceField regenerates one random field from its semantic grammar
func (m *PayloadMutator) replaceField(c *genome.Candidate) {
	keys := c.Keys()
	key := keys[m.rng.Intn(len(keys))]
	prior, _ := c.Get(key)
	c.Set(key, m.gen.ValueFor(key, prior))
}

// flipMemleak occasionally forces an existing memleak field true
func (m *PayloadMutator) flipMemleak(c *genome.Candidate) {
	if !c.Has("memleak") || m.rng.Float64() >= m.config.MemleakFlipProb {
		return
	}
	c.Set("memleak", genome.Bool(true))
}

// injectSQL occasionally swaps a random string field for a SQL literal
func (m *PayloadMutator) injectSQL(c *genome.Candidate) {
	if m.rng.Float64() >= m.config.SQLInjectionProb {
		return
	}
	var stringKeys []string
	for _, k := range c.Keys() {
		if v, _ := c.Get(k); v.Kind == genome.KindString {
			stringKeys = append(stringKeys, k)
		}
	}
	if len(stringKeys) == 0 {
		return
	}
	key := stringKeys[m.rng.Intn(len(stringKeys))]
	c.Set(key, genome.String(m.gen.SQLInjectionPattern()))
}
