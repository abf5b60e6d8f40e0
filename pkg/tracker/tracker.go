/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracker.go
Description: Finding tracker for the Evogene Fuzzer. Collects interesting
payload/response pairs into FIFO-bounded categories (server errors, validation
errors, slow responses, timeouts, injection signals, memory issues, auth
anomalies, high-fitness discoveries) and persists them to timestamped JSON
files with a manifest for post-run analysis.
*/

package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
	"github.com/kleascm/evogene-fuzzer/pkg/interfaces"
)

// Finding categories. The string values double as the on-disk file
// name prefixes.
const (
	CategoryHighFitness      = "high_fitness"
	CategoryServerErrors     = "server_errors"
	CategoryValidationErrors = "validation_errors"
	CategorySlowResponses    = "slow_responses"
	CategoryTimeouts         = "timeouts"
	CategorySQLInjectionHits = "sql_injection_hits"
	CategoryMemoryIssues     = "memory_issues"
	CategoryAuthIssues       = "auth_issues"
)

// Categories lists every category in stable summary order
var Categories = []string{
	CategoryHighFitness,
	CategoryServerErrors,
	CategoryValidationErrors,
	CategorySlowResponses,
	CategoryTimeouts,
	CategorySQLInjectionHits,
	CategoryMemoryIssues,
	CategoryAuthIssues,
}

// Finding is one tracked payload/response pair
type Finding struct {
	ID           string                   `json:"id"`                       // Unique finding identifier
	Timestamp    string                   `json:"timestamp"`                // RFC3339 capture time
	Payload      *genome.Candidate        `json:"payload"`                  // The candidate that triggered the finding
	Response     *interfaces.ResponseInfo `json:"response"`                 // The observed response
	FitnessScore *float64                 `json:"fitness_score,omitempty"`  // Present for high-fitness findings
	ResponseTime *float64                 `json:"response_time,omitempty"`  // Present for slow-response findings
}

// Tracker collects findings into FIFO-bounded categories.
// Safe for concurrent use by evaluation workers.
type Tracker struct {
	mu         sync.Mutex
	maxItems   int
	outputDir  string
	categories map[string][]*Finding
	logger     *logrus.Logger
}

// NewTracker creates a tracker that keeps at most maxItems findings
// per category and saves under outputDir
func NewTracker(outputDir string, maxItems int, logger *logrus.Logger) *Tracker {
	if maxItems <= 0 {
		maxItems = 100
	}
	return &Tracker{
		maxItems:   maxItems,
		outputDir:  outputDir,
		categories: make(map[string][]*Finding),
		logger:     logger,
	}
}

// add appends a finding to a category, evicting the oldest when the
// bound is reached
func (t *Tracker) add(category string, f *Finding) {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.categories[category]
	if len(list) >= t.maxItems {
		list = list[1:]
	}
	t.categories[category] = append(list, f)
}

// newFinding snapshots the payload and stamps the capture time
func newFinding(payload *genome.Candidate, response *interfaces.ResponseInfo) *Finding {
	return &Finding{
		ID:        uuid.New().String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Payload:   payload.Clone(),
		Response:  response,
	}
}

// TrackHighFitness records a payload whose fitness crossed the
// interestingness threshold
func (t *Tracker) TrackHighFitness(payload *genome.Candidate, response *interfaces.ResponseInfo, fitness float64) {
	f := newFinding(payload, response)
	f.FitnessScore = &fitness
	t.add(CategoryHighFitness, f)
	t.logger.WithFields(logrus.Fields{
		"fitness": fitness,
		"status":  response.StatusCode,
	}).Debug("Tracked high-fitness payload")
}

// TrackServerError records a 5xx response
func (t *Tracker) TrackServerError(payload *genome.Candidate, response *interfaces.ResponseInfo) {
	t.add(CategoryServerErrors, newFinding(payload, response))
}

// TrackValidationError records a 4xx response
func (t *Tracker) TrackValidationError(payload *genome.Candidate, response *interfaces.ResponseInfo) {
	t.add(CategoryValidationErrors, newFinding(payload, response))
}

// TrackSlowResponse records a response that crossed the slowness
// threshold, preserving the observed latency
func (t *Tracker) TrackSlowResponse(payload *genome.Candidate, response *interfaces.ResponseInfo, responseTime float64) {
	f := newFinding(payload, response)
	f.ResponseTime = &responseTime
	t.add(CategorySlowResponses, f)
}

// TrackTimeout records a timed-out request
func (t *Tracker) TrackTimeout(payload *genome.Candidate, response *interfaces.ResponseInfo) {
	t.add(CategoryTimeouts, newFinding(payload, response))
}

// TrackSQLInjection records a payload whose response carried
// SQL/database error signatures
func (t *Tracker) TrackSQLInjection(payload *genome.Candidate, response *interfaces.ResponseInfo) {
	t.add(CategorySQLInjectionHits, newFinding(payload, response))
}

// TrackMemoryIssue records a payload whose response carried
// memory/resource-exhaustion signatures
func (t *Tracker) TrackMemoryIssue(payload *genome.Candidate, response *interfaces.ResponseInfo) {
	t.add(CategoryMemoryIssues, newFinding(payload, response))
}

// TrackAuthIssue records an authentication or authorization anomaly
func (t *Tracker) TrackAuthIssue(payload *genome.Candidate, response *interfaces.ResponseInfo) {
	t.add(CategoryAuthIssues, newFinding(payload, response))
}

// Count returns the number of findings held in a category
func (t *Tracker) Count(category string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.categories[category])
}

// Findings returns a snapshot of a category's findings, oldest first
func (t *Tracker) Findings(category string) []*Finding {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Finding, len(t.categories[category]))
	copy(out, t.categories[category])
	return out
}

// Statistics returns the finding count per non-empty category
func (t *Tracker) Statistics() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := make(map[string]int, len(t.categories))
	for cat, list := range t.categories {
		if len(list) > 0 {
			stats[cat] = len(list)
		}
	}
	return stats
}

// manifest describes one save operation, mapping each saved category
// to its file
type manifest struct {
	Timestamp string            `json:"timestamp"`
	Files     map[string]string `json:"files"`
	Counts    map[string]int    `json:"counts"`
}

// SaveToDisk writes every non-empty category to its own timestamped
// JSON file plus a manifest and a human-readable directory listing.
// Persistence failures are fatal for the run and propagate.
func (t *Tracker) SaveToDisk() error {
	t.mu.Lock()
	snapshot := make(map[string][]*Finding, len(t.categories))
	for cat, list := range t.categories {
		if len(list) > 0 {
			copied := make([]*Finding, len(list))
			copy(copied, list)
			snapshot[cat] = copied
		}
	}
	t.mu.Unlock()

	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create tracker output directory: %w", err)
	}

	ts := time.Now().Unix()
	m := manifest{
		Timestamp: time.Now().Format(time.RFC3339),
		Files:     make(map[string]string, len(snapshot)),
		Counts:    make(map[string]int, len(snapshot)),
	}

	cats := make([]string, 0, len(snapshot))
	for cat := range snapshot {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		filename := fmt.Sprintf("%s_%d.json", cat, ts)
		path := filepath.Join(t.outputDir, filename)
		data, err := json.MarshalIndent(snapshot[cat], "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize %s findings: %w", cat, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s findings: %w", cat, err)
		}
		m.Files[cat] = filename
		m.Counts[cat] = len(snapshot[cat])
	}

	manifestData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize payload manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(t.outputDir, "payload_manifest.json"), manifestData, 0o644); err != nil {
		return fmt.Errorf("failed to write payload manifest: %w", err)
	}

	if err := t.writeDebugInfo(m); err != nil {
		return err
	}

	t.logger.WithFields(logrus.Fields{
		"directory": t.outputDir,
		"files":     len(m.Files),
	}).Info("Tracked payloads saved to disk")
	return nil
}

// writeDebugInfo writes a plain-text listing of what is actually in
// the output directory, plus the category counts of this save
func (t *Tracker) writeDebugInfo(m manifest) error {
	entries, err := os.ReadDir(t.outputDir)
	if err != nil {
		return fmt.Errorf("failed to list tracker output directory: %w", err)
	}

	var sb []byte
	sb = append(sb, fmt.Sprintf("Payload tracker save at %s\n", m.Timestamp)...)
	sb = append(sb, fmt.Sprintf("Output directory: %s\n\n", t.outputDir)...)
	sb = append(sb, "Directory contents:\n"...)
	for _, entry := range entries {
		sb = append(sb, fmt.Sprintf("  %s\n", entry.Name())...)
	}
	sb = append(sb, "\n"...)
	for _, cat := range Categories {
		if count, ok := m.Counts[cat]; ok {
			sb = append(sb, fmt.Sprintf("%s: %d findings\n", cat, count)...)
		}
	}
	if err := os.WriteFile(filepath.Join(t.outputDir, "debug_info.txt"), sb, 0o644); err != nil {
		return fmt.Errorf("failed to write debug info: %w", err)
	}
	return nil
}

// PrintSummary logs per-category totals and the most recent example
// from each non-empty category
func (t *Tracker) PrintSummary() {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, cat := range Categories {
		list := t.categories[cat]
		if len(list) == 0 {
			continue
		}
		total += len(list)
		latest := list[len(list)-1]
		t.logger.WithFields(logrus.Fields{
			"category": cat,
			"count":    len(list),
			"payload":  latest.Payload.String(),
			"status":   latest.Response.StatusCode,
		}).Info("Tracked finding category")
	}
	t.logger.WithField("total", total).Info("Payload tracking summary")
}
