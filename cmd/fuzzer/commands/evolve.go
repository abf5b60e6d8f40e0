/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: evolve.go
Description: Evolve command implementation for the Evogene Fuzzer. Wires the
payload grammar, genetic operators, HTTP transport, fitness evaluator, and
finding tracker into the evolution engine, sets up the timestamped run output
layout, and drives the fuzzing run with graceful shutdown.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/evogene-fuzzer/pkg/core"
	"github.com/kleascm/evogene-fuzzer/pkg/fitness"
	"github.com/kleascm/evogene-fuzzer/pkg/grammar"
	"github.com/kleascm/evogene-fuzzer/pkg/strategies"
	"github.com/kleascm/evogene-fuzzer/pkg/tracker"
	"github.com/kleascm/evogene-fuzzer/pkg/transport"
)

// RunEvolve executes the evolutionary fuzzing process
func RunEvolve(cmd *cobra.Command, args []string) error {
	fmt.Println("🧬 Evogene Fuzzer - Starting Evolution Session")
	fmt.Println("==============================================")
	fmt.Println()

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := SetupLogging()
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer appLogger.Close()
	logger := appLogger.GetLogger()

	targetURL := viper.GetString("target_url")
	if targetURL == "" {
		return fmt.Errorf("target API base URL is required")
	}

	// Timestamped run layout: results/run_<ts>/{stats,payloads}
	runDir := filepath.Join(viper.GetString("output_dir"), fmt.Sprintf("run_%s", time.Now().Format("20060102_150405")))
	statsDir := filepath.Join(runDir, "stats")
	payloadsDir := filepath.Join(runDir, "payloads")
	for _, dir := range []string{statsDir, payloadsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create run directory %s: %w", dir, err)
		}
	}

	// One seed drives every RNG so a given --seed reproduces the run
	seed := viper.GetInt64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engineConfig := core.Config{
		PopulationSize: viper.GetInt("population"),
		Generations:    viper.GetInt("generations"),
		CrossoverProb:  viper.GetFloat64("crossover_prob"),
		MutationProb:   viper.GetFloat64("mutation_prob"),
		TournamentSize: viper.GetInt("tournament_size"),
		Workers:        viper.GetInt("workers"),
		TopPayloads:    viper.GetInt("top_payloads"),
		StatsDir:       statsDir,
		PayloadsDir:    payloadsDir,
		Seed:           seed,
	}

	transportConfig := transport.DefaultConfig(targetURL)
	transportConfig.Username = viper.GetString("username")
	transportConfig.Password = viper.GetString("password")
	transportConfig.RequestTimeout = viper.GetDuration("request_timeout")
	transportConfig.MaxRetries = viper.GetInt("max_retries")
	transportConfig.CorruptionProb = viper.GetFloat64("corruption_prob")
	if viper.GetBool("disable_fault_injection") {
		transportConfig.EnableCorruption = false
		transportConfig.EnableMemleakFault = false
	}

	// Wire components into the engine
	gen := grammar.NewSeededGenerator(seed)
	client := transport.NewClient(transportConfig, logger)
	findings := tracker.NewTracker(viper.GetString("tracked_dir"), viper.GetInt("max_tracked"), logger)
	evaluator := fitness.NewEvaluator(client, findings, fitness.DefaultWeights(), logger)
	evaluator.SetHighFitnessThreshold(viper.GetFloat64("high_fitness_threshold"))

	mutatorConfig := strategies.DefaultMutatorConfig()
	crossoverConfig := strategies.DefaultCrossoverConfig()
	if viper.GetBool("disable_fault_injection") {
		mutatorConfig.EnableSideMutations = false
	}

	engine := core.NewEngine(engineConfig, logger)
	engine.SetGenerator(gen)
	engine.SetEvaluator(evaluator)
	engine.SetMutator(strategies.NewSeededPayloadMutator(gen, mutatorConfig, seed+1))
	engine.SetCrossover(strategies.NewSeededUniformCrossover(gen, crossoverConfig, seed+2))
	engine.SetTracker(findings)

	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Received shutdown signal, stopping fuzzer...")
		cancel()
	}()

	if err := engine.Run(ctx); err != nil {
		return fmt.Errorf("fuzzing run failed: %w", err)
	}

	printRunSummary(engine, runDir)

	fmt.Println("\n✨ Evolution session completed!")
	return nil
}

// printRunSummary prints the final run statistics
func printRunSummary(engine *core.Engine, runDir string) {
	fmt.Println()
	fmt.Println("📊 Run Summary")
	fmt.Println("==============")
	fmt.Printf("  Output directory: %s\n", runDir)
	fmt.Printf("  Generations run:  %d\n", len(engine.History()))
	if best := engine.Best(); best != nil {
		fmt.Printf("  Best fitness:     %.4f\n", best.Fitness)
		fmt.Printf("  Best payload:     %s\n", best.Candidate.String())
	}
	if history := engine.History(); len(history) > 0 {
		last := history[len(history)-1]
		fmt.Printf("  Final generation: max=%.4f avg=%.4f median=%.4f\n", last.Max, last.Mean, last.Median)
	}
}
