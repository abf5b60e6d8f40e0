/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Core contracts for the Evogene Fuzzer. Defines the response model
captured from the target API and the interfaces satisfied by the transport,
fitness evaluator, and genetic operators so the evolution engine can be wired
with pluggable implementations.
*/

package interfaces

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
)

// ResponseInfo captures everything observed from one evaluation of a
// candidate against the target API. Created once per evaluation and
// immutable thereafter. StatusCode 0 means the network call failed
// entirely; 408 is the synthetic timeout status.
type ResponseInfo struct {
	Data       map[string]interface{} `json:"data"`        // Parsed JSON body or synthetic error body
	Time       float64                `json:"time"`        // Wall-clock response time in seconds
	StatusCode int                    `json:"status_code"` // HTTP status, 0 on connection failure
	Headers    map[string]string      `json:"headers"`     // Response headers
}

// BodyString returns the lowercased serialized body for keyword scans.
// An empty or unserializable body yields the empty string.
func (r *ResponseInfo) BodyString() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	data, err := json.Marshal(r.Data)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(data))
}

// Transport delivers a candidate payload to the target API and returns
// the observed response. Implementations must never fail the evaluation
// path: network errors are downgraded to synthetic ResponseInfo values.
type Transport interface {
	// Send routes the candidate to the appropriate endpoint and
	// returns the response observation
	Send(ctx context.Context, candidate *genome.Candidate) *ResponseInfo
}

// Evaluator converts a candidate into a scalar fitness by exercising
// the target and scoring the response
type Evaluator interface {
	// Evaluate sends the candidate and returns its fitness in [0,1]
	// together with the observed response
	Evaluate(ctx context.Context, candidate *genome.Candidate) (float64, *ResponseInfo)
}

// Mutator defines the interface for candidate mutation strategies
type Mutator interface {
	// Mutate creates a new candidate derived from the input. The input
	// is never modified and the result is never empty.
	Mutate(candidate *genome.Candidate) *genome.Candidate

	// Name returns the name of this mutator
	Name() string

	// Description returns a description of this mutator
	Description() string
}

// Crossover defines the interface for candidate recombination strategies
type Crossover interface {
	// Cross produces two children from two parents. Parents are never
	// modified and neither child is empty.
	Cross(a, b *genome.Candidate) (*genome.Candidate, *genome.Candidate)

	// Name returns the name of this operator
	Name() string
}
