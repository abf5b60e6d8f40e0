/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for the Evogene Fuzzer. Provides
comprehensive command-line options, configuration management, and beautiful user
interface for controlling the evolutionary fuzzing process with advanced logging
capabilities.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/evogene-fuzzer/cmd/fuzzer/commands"
)

var (
	// Configuration
	configFile string
	logLevel   string
	jsonLogs   bool

	// Target configuration
	targetURL string
	username  string
	password  string

	// Evolution configuration
	populationSize int
	generations    int
	crossoverProb  float64
	mutationProb   float64
	tournamentSize int
	workers        int
	topPayloads    int
	seed           int64

	// Output configuration
	outputDir  string
	trackedDir string
	maxTracked int

	// Transport configuration
	requestTimeout  time.Duration
	maxRetries      int
	corruptionProb  float64
	disableFaults   bool
	highFitnessBar  float64

	// Logging configuration
	logDir      string
	logFormat   string
	logMaxFiles int
	logMaxSize  int64
	logCompress bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evogene-fuzzer",
		Short: "Evogene Fuzzer - Evolutionary black-box fuzzer for JSON HTTP APIs",
		Long: `Evogene Fuzzer is an automated, evolutionary black-box fuzzer for JSON HTTP
APIs. It evolves a population of request payloads against a live target,
scores each response for interestingness (server errors, slowness, injection
and resource-leak signatures, authentication anomalies), and persists the most
valuable discoveries for later analysis.`,
		Version: "1.0.0",
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Use JSON log format")

	// Add logging-specific flags
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "./logs", "Log output directory")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().IntVar(&logMaxFiles, "log-max-files", 10, "Maximum number of log files to keep")
	rootCmd.PersistentFlags().Int64Var(&logMaxSize, "log-max-size", 100*1024*1024, "Maximum log file size in bytes")
	rootCmd.PersistentFlags().BoolVar(&logCompress, "log-compress", false, "Compress rotated log files")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_max_files", rootCmd.PersistentFlags().Lookup("log-max-files"))
	viper.BindPFlag("log_max_size", rootCmd.PersistentFlags().Lookup("log-max-size"))
	viper.BindPFlag("log_compress", rootCmd.PersistentFlags().Lookup("log-compress"))

	// Add evolve command
	evolveCmd := &cobra.Command{
		Use:   "evolve",
		Short: "Start an evolutionary fuzzing run against a target API",
		Long: `Start the evolutionary fuzzing process against a live JSON HTTP API. The
fuzzer seeds a population of payloads, evaluates them against the target,
and breeds increasingly interesting payloads through selection, crossover,
and mutation across the configured generation budget.`,
		RunE: commands.RunEvolve,
	}

	// Add evolve command flags
	evolveCmd.Flags().StringVar(&targetURL, "target", "", "Target API base URL (required)")
	evolveCmd.Flags().StringVar(&username, "username", "", "Username for bearer token refresh")
	evolveCmd.Flags().StringVar(&password, "password", "", "Password for bearer token refresh")

	evolveCmd.Flags().IntVar(&populationSize, "population", 50, "Population size")
	evolveCmd.Flags().IntVar(&generations, "generations", 30, "Generation budget")
	evolveCmd.Flags().Float64Var(&crossoverProb, "crossover", 0.7, "Per-pair crossover probability")
	evolveCmd.Flags().Float64Var(&mutationProb, "mutation", 0.3, "Per-individual mutation probability")
	evolveCmd.Flags().IntVar(&tournamentSize, "tournament", 3, "Tournament selection size")
	evolveCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent evaluation workers (0 = auto-detect)")
	evolveCmd.Flags().IntVar(&topPayloads, "top-payloads", 10, "Best payloads persisted per generation")
	evolveCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (0 = time-based)")

	evolveCmd.Flags().StringVar(&outputDir, "output", "./results", "Directory for run output")
	evolveCmd.Flags().StringVar(&trackedDir, "tracked-dir", "./tracked_payloads", "Directory for tracked findings")
	evolveCmd.Flags().IntVar(&maxTracked, "max-tracked", 100, "Maximum findings kept per category")

	evolveCmd.Flags().DurationVar(&requestTimeout, "timeout", 10*time.Second, "Per-request timeout")
	evolveCmd.Flags().IntVar(&maxRetries, "retries", 3, "Retry budget for transient failures")
	evolveCmd.Flags().Float64Var(&corruptionProb, "corrupt-prob", 0.05, "Per-attempt payload corruption probability")
	evolveCmd.Flags().BoolVar(&disableFaults, "disable-fault-injection", false, "Disable payload corruption and memleak faults")
	evolveCmd.Flags().Float64Var(&highFitnessBar, "high-fitness-threshold", 0.6, "Fitness above which payloads are tracked")

	// Mark required flags
	evolveCmd.MarkFlagRequired("target")

	// Bind flags to viper
	viper.BindPFlag("target_url", evolveCmd.Flags().Lookup("target"))
	viper.BindPFlag("username", evolveCmd.Flags().Lookup("username"))
	viper.BindPFlag("password", evolveCmd.Flags().Lookup("password"))
	viper.BindPFlag("population", evolveCmd.Flags().Lookup("population"))
	viper.BindPFlag("generations", evolveCmd.Flags().Lookup("generations"))
	viper.BindPFlag("crossover_prob", evolveCmd.Flags().Lookup("crossover"))
	viper.BindPFlag("mutation_prob", evolveCmd.Flags().Lookup("mutation"))
	viper.BindPFlag("tournament_size", evolveCmd.Flags().Lookup("tournament"))
	viper.BindPFlag("workers", evolveCmd.Flags().Lookup("workers"))
	viper.BindPFlag("top_payloads", evolveCmd.Flags().Lookup("top-payloads"))
	viper.BindPFlag("seed", evolveCmd.Flags().Lookup("seed"))
	viper.BindPFlag("output_dir", evolveCmd.Flags().Lookup("output"))
	viper.BindPFlag("tracked_dir", evolveCmd.Flags().Lookup("tracked-dir"))
	viper.BindPFlag("max_tracked", evolveCmd.Flags().Lookup("max-tracked"))
	viper.BindPFlag("request_timeout", evolveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("max_retries", evolveCmd.Flags().Lookup("retries"))
	viper.BindPFlag("corruption_prob", evolveCmd.Flags().Lookup("corrupt-prob"))
	viper.BindPFlag("disable_fault_injection", evolveCmd.Flags().Lookup("disable-fault-injection"))
	viper.BindPFlag("high_fitness_threshold", evolveCmd.Flags().Lookup("high-fitness-threshold"))

	rootCmd.AddCommand(evolveCmd)

	// Add list-strategies command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list-strategies",
		Short: "List available genetic operators and their capabilities",
		Long: `List all genetic operators in the Evogene Fuzzer with detailed descriptions
of their capabilities and use cases.`,
		Run: commands.ListStrategies,
	})

	// Add logs command for log statistics and analysis
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Analyze fuzzing-run logs",
		Long: `Analyze log files from previous fuzzing runs: file statistics, log level
distribution, and counts of evaluations, generations, and tracked findings.`,
		RunE: commands.AnalyzeLogs,
	}
	rootCmd.AddCommand(logsCmd)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
