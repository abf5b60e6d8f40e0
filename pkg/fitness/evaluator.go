/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: evaluator.go
Description: Fitness evaluator for the Evogene Fuzzer. Sends a candidate
through the transport and scores the observed response on four axes (status
code, latency, body content signatures, error-message signatures), combines
them into a weighted fitness in [0,1], and classifies interesting responses
into the finding tracker's categories.
*/

package fitness

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
	"github.com/kleascm/evogene-fuzzer/pkg/interfaces"
	"github.com/kleascm/evogene-fuzzer/pkg/tracker"
)

// Latency thresholds in seconds
const (
	SlowThreshold     = 1.0
	VerySlowThreshold = 1.5
)

// DefaultHighFitnessThreshold marks payloads worth tracking on fitness
// alone
const DefaultHighFitnessThreshold = 0.6

// Weights combines the four scoring axes into the final fitness
type Weights struct {
	Status  float64 `json:"status"`  // Status-code axis
	Time    float64 `json:"time"`    // Latency axis
	Content float64 `json:"content"` // Body-content axis
	Error   float64 `json:"error"`   // Error-message axis
}

// DefaultWeights returns the standard axis weights
func DefaultWeights() Weights {
	return Weights{Status: 0.3, Time: 0.2, Content: 0.3, Error: 0.2}
}

// statusScores rewards the status codes that signal interesting target
// behavior. Unlisted codes fall back to class defaults.
var statusScores = map[int]float64{
	400: 0.5,
	401: 0.6,
	403: 0.7,
	404: 0.3,
	409: 0.6,
	422: 0.5,
	429: 0.7,
	500: 0.8,
	503: 0.9,
}

// Patterns scanned in error-message text, first hit wins the generic
// bonus
var genericErrorPatterns = []string{
	"sql", "syntax error", "database", "memory", "resource exhausted",
	"injection", "overflow", "buffer", "validation", "timeout", "unavailable",
}

var authTerms = []string{
	"token", "unauthorized", "authentication", "permission", "access", "forbidden",
}

var validationTerms = []string{
	"validation", "invalid", "too long", "too short", "required", "format",
}

// Evaluator scores candidates by exercising the target through the
// transport. Safe for concurrent use: scoring is pure and the tracker
// handles its own locking.
type Evaluator struct {
	transport            interfaces.Transport
	tracker              *tracker.Tracker
	weights              Weights
	highFitnessThreshold float64
	logger               *logrus.Logger
}

// NewEvaluator creates an evaluator with the given transport, tracker,
// and weights
func NewEvaluator(t interfaces.Transport, tr *tracker.Tracker, weights Weights, logger *logrus.Logger) *Evaluator {
	return &Evaluator{
		transport:            t,
		tracker:              tr,
		weights:              weights,
		highFitnessThreshold: DefaultHighFitnessThreshold,
		logger:               logger,
	}
}

// SetHighFitnessThreshold overrides the tracking threshold
func (e *Evaluator) SetHighFitnessThreshold(threshold float64) {
	e.highFitnessThreshold = threshold
}

// Evaluate sends the candidate, scores the response, and classifies
// interesting outcomes into the tracker. The returned fitness is
// always in [0,1].
func (e *Evaluator) Evaluate(ctx context.Context, candidate *genome.Candidate) (float64, *interfaces.ResponseInfo) {
	resp := e.transport.Send(ctx, candidate)

	fitness := e.weights.Status*StatusScore(resp.StatusCode) +
		e.weights.Time*TimeScore(resp.Time) +
		e.weights.Content*ContentScore(resp) +
		e.weights.Error*e.errorScore(candidate, resp)
	fitness = clamp(fitness)

	e.classify(candidate, resp, fitness)

	e.logger.WithFields(logrus.Fields{
		"fitness": fitness,
		"status":  resp.StatusCode,
		"time":    resp.Time,
	}).Debug("Candidate evaluated")
	return fitness, resp
}

// StatusScore maps an HTTP status to its interestingness. Connection
// failures (status 0) score zero: they reveal nothing about the
// target.
func StatusScore(status int) float64 {
	if score, ok := statusScores[status]; ok {
		return score
	}
	switch {
	case status == 0:
		return 0.0
	case status >= 200 && status < 300:
		return 0.1
	case status >= 300 && status < 400:
		return 0.3
	case status >= 400 && status < 500:
		return 0.4
	case status >= 500 && status < 600:
		return 0.7
	}
	return 0.0
}

// TimeScore rewards slow responses, saturating at VerySlowThreshold
func TimeScore(seconds float64) float64 {
	switch {
	case seconds <= 0:
		return 0.0
	case seconds < 0.1:
		return 0.1
	case seconds >= VerySlowThreshold:
		return 1.0
	case seconds >= SlowThreshold:
		return 0.8
	default:
		return seconds / VerySlowThreshold
	}
}

// ContentScore scans the response body for interesting signatures
func ContentScore(resp *interfaces.ResponseInfo) float64 {
	body := resp.BodyString()
	if body == "" {
		return 0.0
	}

	score := 0.0
	if resp.StatusCode >= 500 && resp.StatusCode < 600 {
		score += 0.5
	}
	if _, ok := resp.Data["error"]; ok {
		score += 0.3
	}
	if len(body) > 1000 {
		score += 0.2
	}
	if strings.Contains(body, "memory") || strings.Contains(body, "resource") {
		score += 0.5
	}
	if strings.Contains(body, "database") || strings.Contains(body, "sql") {
		score += 0.7
	}
	if strings.Contains(body, "injection") {
		score += 0.9
	}
	if strings.Contains(body, "null") && strings.Contains(body, "error") {
		score += 0.3
	}
	if strings.Contains(body, "token expired") || strings.Contains(body, "invalid token") {
		score += 0.4
	}
	return clamp(score)
}

// errorScore scores error-message signatures and side-channels
// injection/memory signals into the tracker as they are recognized
func (e *Evaluator) errorScore(candidate *genome.Candidate, resp *interfaces.ResponseInfo) float64 {
	body := resp.BodyString()
	if body == "" {
		return 0.0
	}

	score := 0.0
	for _, pattern := range genericErrorPatterns {
		if strings.Contains(body, pattern) {
			score += 0.4
			break
		}
	}

	if strings.Contains(body, "sql") || strings.Contains(body, "database") {
		score += 0.5
		if e.tracker != nil {
			e.tracker.TrackSQLInjection(candidate, resp)
		}
	}
	if strings.Contains(body, "memory") || strings.Contains(body, "resource exhausted") {
		score += 0.6
		if e.tracker != nil {
			e.tracker.TrackMemoryIssue(candidate, resp)
		}
	}

	if strings.Contains(body, "error") || strings.Contains(body, "invalid") {
		for _, term := range authTerms {
			if strings.Contains(body, term) {
				score += 0.5
				break
			}
		}
	}
	for _, term := range validationTerms {
		if strings.Contains(body, term) {
			score += 0.3
			break
		}
	}
	return clamp(score)
}

// ErrorScore scores error-message signatures without tracker side
// effects, for callers inspecting a response in isolation
func ErrorScore(resp *interfaces.ResponseInfo) float64 {
	e := &Evaluator{}
	return e.errorScore(nil, resp)
}

// classify routes interesting responses into the tracker categories
func (e *Evaluator) classify(candidate *genome.Candidate, resp *interfaces.ResponseInfo, fitness float64) {
	if e.tracker == nil {
		return
	}
	body := resp.BodyString()

	if fitness > e.highFitnessThreshold {
		e.tracker.TrackHighFitness(candidate, resp, fitness)
	}
	if resp.StatusCode >= 500 && resp.StatusCode < 600 {
		e.tracker.TrackServerError(candidate, resp)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		e.tracker.TrackValidationError(candidate, resp)
	}
	if resp.Time >= SlowThreshold {
		e.tracker.TrackSlowResponse(candidate, resp, resp.Time)
	}
	if resp.StatusCode == 408 || strings.Contains(body, "timed out") || strings.Contains(body, "timeout") {
		e.tracker.TrackTimeout(candidate, resp)
	}
	if resp.StatusCode == 401 || resp.StatusCode == 403 || strings.Contains(body, "token") {
		e.tracker.TrackAuthIssue(candidate, resp)
	}
}

// clamp bounds a score to [0,1]
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
