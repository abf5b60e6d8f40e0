/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the Evogene Fuzzer evolution engine. Defines the
population individual with its tri-state fitness validity, the engine
configuration with its evolutionary parameters, and the per-generation
statistics recorded for each generation of the run.
*/

package core

import (
	"runtime"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
)

// FitnessState tracks whether an individual's stored fitness reflects
// its current payload
type FitnessState int

const (
	// FitnessUnevaluated means the individual has never been scored
	FitnessUnevaluated FitnessState = iota
	// FitnessStale means the payload changed since the last score
	FitnessStale
	// FitnessFresh means the stored fitness matches the payload
	FitnessFresh
)

// Individual is one population slot: a candidate payload plus its
// scored fitness and validity state
type Individual struct {
	Candidate *genome.Candidate // The evolvable payload
	Fitness   float64           // Last computed fitness in [0,1]
	State     FitnessState      // Whether Fitness reflects Candidate
}

// NewIndividual wraps a candidate in an unevaluated slot
func NewIndividual(candidate *genome.Candidate) *Individual {
	return &Individual{Candidate: candidate, State: FitnessUnevaluated}
}

// Clone returns an independent copy preserving fitness and state
func (ind *Individual) Clone() *Individual {
	return &Individual{
		Candidate: ind.Candidate.Clone(),
		Fitness:   ind.Fitness,
		State:     ind.State,
	}
}

// MarkStale invalidates the stored fitness after a payload change
func (ind *Individual) MarkStale() {
	if ind.State == FitnessFresh {
		ind.State = FitnessStale
	}
}

// NeedsEvaluation reports whether the individual must be re-scored
func (ind *Individual) NeedsEvaluation() bool {
	return ind.State != FitnessFresh
}

// Config holds the evolution engine configuration
type Config struct {
	PopulationSize int     `json:"population_size"` // Individuals per generation
	Generations    int     `json:"generations"`     // Generation budget
	CrossoverProb  float64 `json:"crossover_prob"`  // Per-pair crossover probability
	MutationProb   float64 `json:"mutation_prob"`   // Per-individual mutation probability
	TournamentSize int     `json:"tournament_size"` // Selection tournament size
	Workers        int     `json:"workers"`         // Concurrent evaluation workers
	TopPayloads    int     `json:"top_payloads"`    // Best payloads persisted per generation
	StatsDir       string  `json:"stats_dir"`       // Per-generation stats output
	PayloadsDir    string  `json:"payloads_dir"`    // Top-payload output
	Seed           int64   `json:"seed"`            // RNG seed, 0 means time-based
}

// DefaultConfig returns the standard evolutionary parameters
func DefaultConfig() Config {
	return Config{
		PopulationSize: 50,
		Generations:    30,
		CrossoverProb:  0.7,
		MutationProb:   0.3,
		TournamentSize: 3,
		Workers:        runtime.NumCPU(),
		TopPayloads:    10,
	}
}

// GenerationStats summarizes the fitness distribution of one
// generation
type GenerationStats struct {
	Generation int     `json:"generation"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"avg"`
	Median     float64 `json:"median"`
	Std        float64 `json:"std"`
}
