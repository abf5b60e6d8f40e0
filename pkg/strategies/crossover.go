/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: crossover.go
Description: Uniform crossover strategy for the Evogene Fuzzer. Recombines two
parent payloads field-by-field over the union of their keys, with optional
novelty injection, and guarantees both children are non-empty and the parents
are never modified.
*/

package strategies

import (
	"math/rand"
	"time"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
	"github.com/kleascm/evogene-fuzzer/pkg/grammar"
)

// CrossoverConfig controls inheritance rates and novelty injection
type CrossoverConfig struct {
	InheritProb   float64 // Probability a single-parent field is inherited at all
	NoveltyProb   float64 // Probability of injecting one brand-new field per child
	EnableNovelty bool    // Switch for novelty injection
}

// DefaultCrossoverConfig returns the standard crossover rates
func DefaultCrossoverConfig() CrossoverConfig {
	return CrossoverConfig{
		InheritProb:   0.7,
		NoveltyProb:   0.05,
		EnableNovelty: true,
	}
}

// UniformCrossover implements per-field uniform recombination.
// Not safe for concurrent use: crossover runs on the sequential
// generational path.
type UniformCrossover struct {
	gen    *grammar.Generator // Source of novelty and reseed values
	config CrossoverConfig    // Rates
	rng    *rand.Rand         // Assignment decisions
}

// NewUniformCrossover creates a crossover operator seeded from the
// current time
func NewUniformCrossover(gen *grammar.Generator, config CrossoverConfig) *UniformCrossover {
	return NewSeededUniformCrossover(gen, config, time.Now().UnixNano())
}

// NewSeededUniformCrossover creates a deterministic operator for tests
func NewSeededUniformCrossover(gen *grammar.Generator, config CrossoverConfig, seed int64) *UniformCrossover {
	return &UniformCrossover{
		gen:    gen,
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Name returns the name of this operator
func (x *UniformCrossover) Name() string {
	return "uniform_crossover"
}

// Cross produces two children from two parents. Shared fields are
// split 50/50 between the children; single-parent fields are inherited
// with InheritProb and assigned 50/50. Parents are never modified and
// neither child is empty.
func (x *UniformCrossover) Cross(a, b *genome.Candidate) (*genome.Candidate, *genome.Candidate) {
	child1 := genome.NewCandidate()
	child2 := genome.NewCandidate()

	for _, key := range unionKeys(a, b) {
		va, inA := a.Get(key)
		vb, inB := b.Get(key)

		switch {
		case inA && inB:
			if x.rng.Float64() < 0.5 {
				child1.Set(key, va.Clone())
				child2.Set(key, vb.Clone())
			} else {
				child1.Set(key, vb.Clone())
				child2.Set(key, va.Clone())
			}
		case inA:
			x.assignSingle(child1, child2, key, va)
		default:
			x.assignSingle(child1, child2, key, vb)
		}
	}

	if x.config.EnableNovelty {
		x.injectNovelty(child1)
		x.injectNovelty(child2)
	}

	x.reseedIfEmpty(child1, a, b)
	x.reseedIfEmpty(child2, a, b)
	return child1, child2
}

// assignSingle gives a single-parent field to one child with
// probability InheritProb
func (x *UniformCrossover) assignSingle(child1, child2 *genome.Candidate, key string, value genome.FieldValue) {
	if x.rng.Float64() >= x.config.InheritProb {
		return
	}
	if x.rng.Float64() < 0.5 {
		child1.Set(key, value.Clone())
	} else {
		child2.Set(key, value.Clone())
	}
}

// injectNovelty occasionally adds one field the parents never carried
func (x *UniformCrossover) injectNovelty(child *genome.Candidate) {
	if x.rng.Float64() >= x.config.NoveltyProb {
		return
	}
	fresh := x.gen.Candidate()
	keys := fresh.Keys()
	key := keys[x.rng.Intn(len(keys))]
	value, _ := fresh.Get(key)
	child.Set(key, value)
}

// reseedIfEmpty repairs a degenerate child with a freshly generated
// value for a field name drawn from the parents, so children never
// carry keys absent from both parents unless novelty is on
func (x *UniformCrossover) reseedIfEmpty(child, a, b *genome.Candidate) {
	if child.Len() > 0 {
		return
	}
	parentKeys := unionKeys(a, b)
	if len(parentKeys) == 0 {
		name, value := x.gen.RequiredField()
		child.Set(name, value)
		return
	}
	key := parentKeys[x.rng.Intn(len(parentKeys))]
	prior, ok := a.Get(key)
	if !ok {
		prior, _ = b.Get(key)
	}
	child.Set(key, x.gen.ValueFor(key, prior))
}

// unionKeys returns a's keys in order followed by b's keys not in a
func unionKeys(a, b *genome.Candidate) []string {
	keys := a.Keys()
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range b.Keys() {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}
