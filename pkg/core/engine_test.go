/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: Tests for the evolution engine. Verifies the generational loop
with a stub evaluator, per-generation statistics output, top-payload
persistence, best-ever tracking, and component wiring validation.
*/

package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
	"github.com/kleascm/evogene-fuzzer/pkg/grammar"
	"github.com/kleascm/evogene-fuzzer/pkg/interfaces"
	"github.com/kleascm/evogene-fuzzer/pkg/strategies"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubEvaluator scores candidates by field count, capped to [0,1]
type stubEvaluator struct {
	calls int64
}

func (s *stubEvaluator) Evaluate(ctx context.Context, candidate *genome.Candidate) (float64, *interfaces.ResponseInfo) {
	atomic.AddInt64(&s.calls, 1)
	fitness := float64(candidate.Len()) / 10.0
	if fitness > 1 {
		fitness = 1
	}
	return fitness, &interfaces.ResponseInfo{StatusCode: 200, Data: map[string]interface{}{"ok": true}}
}

func newTestEngine(t *testing.T, config Config) (*Engine, *stubEvaluator) {
	t.Helper()
	gen := grammar.NewSeededGenerator(config.Seed)
	evaluator := &stubEvaluator{}

	engine := NewEngine(config, quietLogger())
	engine.SetGenerator(gen)
	engine.SetEvaluator(evaluator)
	engine.SetMutator(strategies.NewSeededPayloadMutator(gen, strategies.DefaultMutatorConfig(), config.Seed))
	engine.SetCrossover(strategies.NewSeededUniformCrossover(gen, strategies.DefaultCrossoverConfig(), config.Seed))
	return engine, evaluator
}

func TestEngineRunsFullBudget(t *testing.T) {
	dir := t.TempDir()
	config := Config{
		PopulationSize: 10,
		Generations:    3,
		CrossoverProb:  0.7,
		MutationProb:   0.3,
		TournamentSize: 3,
		Workers:        2,
		TopPayloads:    5,
		StatsDir:       filepath.Join(dir, "stats"),
		PayloadsDir:    filepath.Join(dir, "payloads"),
		Seed:           42,
	}
	engine, evaluator := newTestEngine(t, config)

	require.NoError(t, engine.Initialize())
	require.NoError(t, engine.Run(context.Background()))

	assert.Len(t, engine.History(), 3)
	assert.GreaterOrEqual(t, atomic.LoadInt64(&evaluator.calls), int64(10),
		"at least the initial population is evaluated")

	for gen := 1; gen <= 3; gen++ {
		path := filepath.Join(config.StatsDir, fmt.Sprintf("generation_%03d_stats.json", gen))
		_, err := os.Stat(path)
		assert.NoError(t, err, "stats file for generation %d", gen)
	}
	_, err := os.Stat(filepath.Join(config.PayloadsDir, "top_5_payloads.json"))
	assert.NoError(t, err)
}

func TestEngineFitnessInUnitInterval(t *testing.T) {
	dir := t.TempDir()
	config := Config{
		PopulationSize: 10,
		Generations:    2,
		CrossoverProb:  0.7,
		MutationProb:   0.3,
		TournamentSize: 3,
		Workers:        4,
		TopPayloads:    5,
		StatsDir:       filepath.Join(dir, "stats"),
		PayloadsDir:    filepath.Join(dir, "payloads"),
		Seed:           7,
	}
	engine, _ := newTestEngine(t, config)

	require.NoError(t, engine.Initialize())
	require.NoError(t, engine.Run(context.Background()))

	for _, ind := range engine.Population() {
		assert.GreaterOrEqual(t, ind.Fitness, 0.0)
		assert.LessOrEqual(t, ind.Fitness, 1.0)
		assert.Equal(t, FitnessFresh, ind.State, "every slot is evaluated after a run")
	}

	best := engine.Best()
	require.NotNil(t, best)
	assert.GreaterOrEqual(t, best.Fitness, 0.0)
	for _, stats := range engine.History() {
		assert.LessOrEqual(t, stats.Min, stats.Median)
		assert.LessOrEqual(t, stats.Median, stats.Max)
		assert.GreaterOrEqual(t, best.Fitness, stats.Max,
			"the best-ever fitness dominates every generation maximum")
	}
}

// rankedEvaluator hands out a distinct fitness per evaluation
type rankedEvaluator struct {
	n int64
}

func (r *rankedEvaluator) Evaluate(ctx context.Context, candidate *genome.Candidate) (float64, *interfaces.ResponseInfo) {
	v := atomic.AddInt64(&r.n, 1)
	return float64(v%97) / 100.0, &interfaces.ResponseInfo{StatusCode: 200, Data: map[string]interface{}{"ok": true}}
}

func TestNextPopulationSelectedFromEvaluatedOffspring(t *testing.T) {
	dir := t.TempDir()
	config := Config{
		PopulationSize: 6,
		Generations:    1,
		CrossoverProb:  0,
		MutationProb:   1,
		TournamentSize: 400,
		Workers:        1,
		TopPayloads:    2,
		StatsDir:       filepath.Join(dir, "stats"),
		PayloadsDir:    filepath.Join(dir, "payloads"),
		Seed:           11,
	}
	gen := grammar.NewSeededGenerator(config.Seed)
	engine := NewEngine(config, quietLogger())
	engine.SetGenerator(gen)
	engine.SetEvaluator(&rankedEvaluator{})
	engine.SetMutator(strategies.NewSeededPayloadMutator(gen, strategies.DefaultMutatorConfig(), config.Seed))
	engine.SetCrossover(strategies.NewSeededUniformCrossover(gen, strategies.DefaultCrossoverConfig(), config.Seed))

	require.NoError(t, engine.Initialize())
	require.NoError(t, engine.Run(context.Background()))

	// With an oversized tournament and distinct offspring fitness, the
	// post-evaluation selection copies the fittest offspring into every
	// slot of the next population
	population := engine.Population()
	require.NotEmpty(t, population)
	winner := population[0].Fitness
	for _, ind := range population {
		assert.Equal(t, winner, ind.Fitness, "selection pressure acts on offspring fitness")
	}

	stats := engine.History()[0]
	assert.Equal(t, stats.Max, stats.Min, "statistics describe the selected population")
	assert.Equal(t, winner, stats.Max)
}

func TestMutatedOffspringMarkedStale(t *testing.T) {
	config := Config{
		PopulationSize: 4,
		Generations:    1,
		CrossoverProb:  0,
		MutationProb:   1,
		TournamentSize: 2,
		Workers:        1,
		TopPayloads:    2,
		Seed:           5,
	}
	engine, _ := newTestEngine(t, config)
	require.NoError(t, engine.Initialize())

	engine.evaluatePopulation(context.Background())
	offspring := engine.nextGeneration()
	for _, ind := range offspring {
		assert.Equal(t, FitnessStale, ind.State,
			"mutating a scored clone invalidates its stored fitness")
		assert.True(t, ind.NeedsEvaluation())
	}
}

func TestIndividualFitnessStateLifecycle(t *testing.T) {
	gen := grammar.NewSeededGenerator(1)
	ind := NewIndividual(gen.Candidate())
	assert.Equal(t, FitnessUnevaluated, ind.State)
	assert.True(t, ind.NeedsEvaluation())

	ind.MarkStale()
	assert.Equal(t, FitnessUnevaluated, ind.State, "never-scored slots stay unevaluated")

	ind.Fitness = 0.4
	ind.State = FitnessFresh
	assert.False(t, ind.NeedsEvaluation())

	ind.MarkStale()
	assert.Equal(t, FitnessStale, ind.State)
	assert.True(t, ind.NeedsEvaluation())

	clone := ind.Clone()
	assert.Equal(t, FitnessStale, clone.State, "clones carry the validity state")
}

func TestEngineRunsReproducibleWithSeed(t *testing.T) {
	run := func() ([]GenerationStats, float64) {
		dir := t.TempDir()
		config := Config{
			PopulationSize: 8,
			Generations:    3,
			CrossoverProb:  0.7,
			MutationProb:   0.3,
			TournamentSize: 3,
			Workers:        3,
			TopPayloads:    4,
			StatsDir:       filepath.Join(dir, "stats"),
			PayloadsDir:    filepath.Join(dir, "payloads"),
			Seed:           99,
		}
		engine, _ := newTestEngine(t, config)
		require.NoError(t, engine.Initialize())
		require.NoError(t, engine.Run(context.Background()))
		return engine.History(), engine.Best().Fitness
	}

	historyA, bestA := run()
	historyB, bestB := run()
	assert.Equal(t, historyA, historyB, "one seed reproduces the whole run")
	assert.Equal(t, bestA, bestB)
}

func TestEngineInitializeValidatesWiring(t *testing.T) {
	config := DefaultConfig()
	config.Seed = 1

	engine := NewEngine(config, quietLogger())
	assert.Error(t, engine.Initialize(), "missing components must be rejected")

	engine, _ = newTestEngine(t, config)
	badConfig := config
	badConfig.PopulationSize = 1
	bad := NewEngine(badConfig, quietLogger())
	bad.SetGenerator(grammar.NewSeededGenerator(1))
	assert.Error(t, bad.Initialize())

	require.NoError(t, engine.Initialize())
	assert.Len(t, engine.Population(), config.PopulationSize)
}

func TestEngineRunRequiresInitialize(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultConfig())
	assert.Error(t, engine.Run(context.Background()))
}

func TestEngineCancellationStopsEarly(t *testing.T) {
	dir := t.TempDir()
	config := Config{
		PopulationSize: 10,
		Generations:    1000,
		CrossoverProb:  0.7,
		MutationProb:   0.3,
		TournamentSize: 3,
		Workers:        2,
		TopPayloads:    5,
		StatsDir:       filepath.Join(dir, "stats"),
		PayloadsDir:    filepath.Join(dir, "payloads"),
		Seed:           3,
	}
	engine, _ := newTestEngine(t, config)
	require.NoError(t, engine.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, engine.Run(ctx))
	assert.Less(t, len(engine.History()), 1000, "a cancelled run stops before the budget")
}
