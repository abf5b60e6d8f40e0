/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Evolution engine for the Evogene Fuzzer. Drives the generational
loop: seeds a population from the grammar, evaluates candidates concurrently
across a worker pool, applies tournament selection, uniform crossover, and
mutation, records per-generation fitness statistics and top payloads to disk,
and flushes the finding tracker when the generation budget is exhausted.
*/

package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
	"github.com/kleascm/evogene-fuzzer/pkg/grammar"
	"github.com/kleascm/evogene-fuzzer/pkg/interfaces"
	"github.com/kleascm/evogene-fuzzer/pkg/tracker"
)

// Engine runs the evolutionary search. Components are injected through
// the Set* methods before Initialize; the generational loop itself is
// sequential while candidate evaluation fans out across workers.
type Engine struct {
	config    Config
	generator *grammar.Generator
	evaluator interfaces.Evaluator
	mutator   interfaces.Mutator
	crossover interfaces.Crossover
	tracker   *tracker.Tracker
	logger    *logrus.Logger
	rng       *rand.Rand

	sessionID  string
	population []*Individual
	best       *Individual
	history    []GenerationStats
}

// NewEngine creates an engine with the given configuration
func NewEngine(config Config, logger *logrus.Logger) *Engine {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		config:    config,
		logger:    logger,
		rng:       rand.New(rand.NewSource(seed)),
		sessionID: uuid.New().String(),
	}
}

// SetGenerator injects the payload grammar
func (e *Engine) SetGenerator(g *grammar.Generator) { e.generator = g }

// SetEvaluator injects the fitness evaluator
func (e *Engine) SetEvaluator(ev interfaces.Evaluator) { e.evaluator = ev }

// SetMutator injects the mutation strategy
func (e *Engine) SetMutator(m interfaces.Mutator) { e.mutator = m }

// SetCrossover injects the recombination strategy
func (e *Engine) SetCrossover(x interfaces.Crossover) { e.crossover = x }

// SetTracker injects the finding tracker
func (e *Engine) SetTracker(t *tracker.Tracker) { e.tracker = t }

// Initialize validates the configuration and wiring, creates the
// output directories, and seeds the initial population
func (e *Engine) Initialize() error {
	if e.generator == nil {
		return fmt.Errorf("engine requires a payload generator")
	}
	if e.evaluator == nil {
		return fmt.Errorf("engine requires a fitness evaluator")
	}
	if e.mutator == nil {
		return fmt.Errorf("engine requires a mutation strategy")
	}
	if e.crossover == nil {
		return fmt.Errorf("engine requires a crossover strategy")
	}
	if e.config.PopulationSize < 2 {
		return fmt.Errorf("population size must be at least 2, got %d", e.config.PopulationSize)
	}
	if e.config.Generations < 1 {
		return fmt.Errorf("generation budget must be at least 1, got %d", e.config.Generations)
	}
	if e.config.TournamentSize < 1 {
		return fmt.Errorf("tournament size must be at least 1, got %d", e.config.TournamentSize)
	}
	if e.config.Workers < 1 {
		e.config.Workers = 1
	}

	for _, dir := range []string{e.config.StatsDir, e.config.PayloadsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	e.population = make([]*Individual, e.config.PopulationSize)
	for i := range e.population {
		e.population[i] = NewIndividual(e.generator.Candidate())
	}

	e.logger.WithFields(logrus.Fields{
		"session":     e.sessionID,
		"population":  e.config.PopulationSize,
		"generations": e.config.Generations,
		"workers":     e.config.Workers,
	}).Info("Evolution engine initialized")
	return nil
}

// Run executes the generational loop until the budget is exhausted or
// the context is cancelled, then flushes the tracker to disk. Only
// persistence failures abort the run.
func (e *Engine) Run(ctx context.Context) error {
	if len(e.population) == 0 {
		return fmt.Errorf("engine not initialized")
	}

	e.evaluatePopulation(ctx)
	e.updateBest()

	for gen := 1; gen <= e.config.Generations; gen++ {
		select {
		case <-ctx.Done():
			e.logger.WithField("generation", gen).Warn("Run cancelled")
			return e.finish()
		default:
		}

		e.population = e.nextGeneration()
		e.evaluatePopulation(ctx)
		e.updateBest()
		e.population = e.selectNextPopulation()

		stats := e.computeStats(gen)
		e.history = append(e.history, stats)
		e.logger.WithFields(logrus.Fields{
			"generation": gen,
			"max":        stats.Max,
			"avg":        stats.Mean,
			"best_ever":  e.best.Fitness,
		}).Info("Generation complete")

		if err := e.saveGenerationStats(stats); err != nil {
			return err
		}
		if err := e.saveTopPayloads(); err != nil {
			return err
		}
	}
	return e.finish()
}

// finish flushes the tracker and prints its summary
func (e *Engine) finish() error {
	if e.tracker != nil {
		if err := e.tracker.SaveToDisk(); err != nil {
			return fmt.Errorf("failed to persist tracked findings: %w", err)
		}
		e.tracker.PrintSummary()
	}
	if e.best != nil {
		e.logger.WithFields(logrus.Fields{
			"fitness": e.best.Fitness,
			"payload": e.best.Candidate.String(),
		}).Info("Best payload of the run")
	}
	return nil
}

// nextGeneration breeds a full offspring set from tournament-selected
// parents via crossover and mutation. The offspring are evaluated and
// then pass through a second selection to form the next population.
func (e *Engine) nextGeneration() []*Individual {
	parents := make([]*Individual, e.config.PopulationSize)
	for i := range parents {
		parents[i] = e.tournamentSelect().Clone()
	}

	next := make([]*Individual, 0, e.config.PopulationSize)
	for i := 0; i+1 < len(parents); i += 2 {
		a, b := parents[i], parents[i+1]
		if e.rng.Float64() < e.config.CrossoverProb {
			c1, c2 := e.crossover.Cross(a.Candidate, b.Candidate)
			a = NewIndividual(c1)
			b = NewIndividual(c2)
		}
		next = append(next, a, b)
	}
	if len(parents)%2 == 1 {
		next = append(next, parents[len(parents)-1])
	}

	for _, ind := range next {
		if e.rng.Float64() < e.config.MutationProb {
			ind.Candidate = e.mutator.Mutate(ind.Candidate)
			ind.MarkStale()
		}
	}
	return next
}

// selectNextPopulation forms the next generation by tournament
// selection over the evaluated offspring, so selection pressure acts
// on offspring fitness and not only on parent choice
func (e *Engine) selectNextPopulation() []*Individual {
	next := make([]*Individual, e.config.PopulationSize)
	for i := range next {
		next[i] = e.tournamentSelect().Clone()
	}
	return next
}

// tournamentSelect picks the fittest of TournamentSize random
// individuals
func (e *Engine) tournamentSelect() *Individual {
	best := e.population[e.rng.Intn(len(e.population))]
	for i := 1; i < e.config.TournamentSize; i++ {
		contender := e.population[e.rng.Intn(len(e.population))]
		if contender.Fitness > best.Fitness {
			best = contender
		}
	}
	return best
}

// evaluatePopulation scores every stale or unevaluated slot
// concurrently across the worker pool. Individual evaluation never
// fails the loop: the transport degrades errors to scored responses.
func (e *Engine) evaluatePopulation(ctx context.Context) {
	sem := make(chan struct{}, e.config.Workers)
	var wg sync.WaitGroup

	for _, ind := range e.population {
		if !ind.NeedsEvaluation() {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ind *Individual) {
			defer wg.Done()
			defer func() { <-sem }()
			fitness, _ := e.evaluator.Evaluate(ctx, ind.Candidate)
			ind.Fitness = fitness
			ind.State = FitnessFresh
		}(ind)
	}
	wg.Wait()
}

// updateBest records the best individual seen so far
func (e *Engine) updateBest() {
	for _, ind := range e.population {
		if e.best == nil || ind.Fitness > e.best.Fitness {
			e.best = ind.Clone()
		}
	}
}

// Best returns the best individual seen across the run
func (e *Engine) Best() *Individual {
	return e.best
}

// Population returns the current population slots
func (e *Engine) Population() []*Individual {
	return e.population
}

// History returns the recorded per-generation statistics
func (e *Engine) History() []GenerationStats {
	return e.history
}

// computeStats summarizes the current population's fitness
// distribution
func (e *Engine) computeStats(generation int) GenerationStats {
	values := make([]float64, len(e.population))
	for i, ind := range e.population {
		values[i] = ind.Fitness
	}
	sort.Float64s(values)

	n := len(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)

	var median float64
	if n%2 == 1 {
		median = values[n/2]
	} else {
		median = (values[n/2-1] + values[n/2]) / 2
	}

	return GenerationStats{
		Generation: generation,
		Min:        values[0],
		Max:        values[n-1],
		Mean:       mean,
		Median:     median,
		Std:        math.Sqrt(variance),
	}
}

// saveGenerationStats persists one generation's fitness summary
func (e *Engine) saveGenerationStats(stats GenerationStats) error {
	if e.config.StatsDir == "" {
		return nil
	}
	record := map[string]interface{}{"fitness": stats}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize generation stats: %w", err)
	}
	path := filepath.Join(e.config.StatsDir, fmt.Sprintf("generation_%03d_stats.json", stats.Generation))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write generation stats: %w", err)
	}
	return nil
}

// rankedPayload is one entry of the persisted top-payload list
type rankedPayload struct {
	Payload *genome.Candidate `json:"payload"`
	Fitness float64           `json:"fitness"`
}

// saveTopPayloads persists the current top-K payloads by fitness
func (e *Engine) saveTopPayloads() error {
	if e.config.PayloadsDir == "" || e.config.TopPayloads < 1 {
		return nil
	}

	ranked := make([]*Individual, len(e.population))
	copy(ranked, e.population)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})

	k := e.config.TopPayloads
	if k > len(ranked) {
		k = len(ranked)
	}
	top := make([]rankedPayload, k)
	for i := 0; i < k; i++ {
		top[i] = rankedPayload{
			Payload: ranked[i].Candidate,
			Fitness: ranked[i].Fitness,
		}
	}

	data, err := json.MarshalIndent(top, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize top payloads: %w", err)
	}
	path := filepath.Join(e.config.PayloadsDir, fmt.Sprintf("top_%d_payloads.json", e.config.TopPayloads))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write top payloads: %w", err)
	}
	return nil
}
