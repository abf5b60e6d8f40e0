/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: strategies.go
Description: List-strategies command for the Evogene Fuzzer. Prints the
available genetic operators with their capabilities and use cases.
*/

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kleascm/evogene-fuzzer/pkg/grammar"
	"github.com/kleascm/evogene-fuzzer/pkg/strategies"
)

// ListStrategies prints the available genetic operators
func ListStrategies(cmd *cobra.Command, args []string) {
	fmt.Println("🧬 Evogene Fuzzer - Available Genetic Operators")
	fmt.Println("===============================================")
	fmt.Println()

	gen := grammar.NewGenerator()
	mutator := strategies.NewPayloadMutator(gen, strategies.DefaultMutatorConfig())
	crossover := strategies.NewUniformCrossover(gen, strategies.DefaultCrossoverConfig())

	fmt.Printf("  %s\n", mutator.Name())
	fmt.Printf("      %s\n", mutator.Description())
	fmt.Println("      Strategies: add-field, remove-field, modify-field (type-aware),")
	fmt.Println("      replace-field, plus SQL-injection and memleak side mutations.")
	fmt.Println()

	fmt.Printf("  %s\n", crossover.Name())
	fmt.Println("      Per-field uniform recombination over the union of parent keys")
	fmt.Println("      with optional novelty injection. Children are never empty.")
	fmt.Println()

	fmt.Println("  Payload archetypes: user (4/6), auth (1/6), legacy predict (1/6).")
}
