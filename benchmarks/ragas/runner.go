// ABOUTME: Test runner for grounding benchmarks - executes scenarios and collects results
// ABOUTME: Loads each scenario into a fresh session, asks every turn with history, and scores the final answer

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/session"
)

// SessionFactory opens an empty session for one scenario
type SessionFactory func(ctx context.Context) (*session.Session, error)

// BenchmarkRunner executes grounding benchmark tests
type BenchmarkRunner struct {
	newSession SessionFactory
	metrics    *MetricsCalculator
	verbose    bool
	out        io.Writer
}

// NewBenchmarkRunner creates a new benchmark runner; progress goes to out when verbose
func NewBenchmarkRunner(newSession SessionFactory, verbose bool, out io.Writer) *BenchmarkRunner {
	if out == nil {
		out = io.Discard
	}
	return &BenchmarkRunner{
		newSession: newSession,
		metrics:    NewMetricsCalculator(),
		verbose:    verbose,
		out:        out,
	}
}

func (r *BenchmarkRunner) logf(format string, args ...interface{}) {
	if r.verbose {
		fmt.Fprintf(r.out, format, args...)
	}
}

// RunTest executes a single benchmark test in its own session
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) (TestResult, error) {
	r.logf("\n========================================\n")
	r.logf("RUNNING: %s\n", scenario.Name)
	r.logf("========================================\n")
	r.logf("Description: %s\n\n", scenario.Description)

	sess, err := r.newSession(ctx)
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to open session: %w", err)
	}
	defer func() { _ = sess.Close() }()

	report, err := sess.AddDocuments(ctx, scenario.Documents)
	if err != nil {
		return TestResult{}, fmt.Errorf("setup failed: %w", err)
	}
	if len(report.Skipped) > 0 {
		return TestResult{}, fmt.Errorf("setup failed: skipped documents %v", report.SkippedNames())
	}
	r.logf("✓ Indexed %d document(s), %d passage(s)\n\n", len(report.Added), report.Chunks)

	var history []models.Turn
	var final models.CitedAnswer
	found := false

	for _, turn := range scenario.Turns {
		r.logf("[Turn %d] Student: %s\n", turn.TurnNumber, turn.Question)

		answer, err := sess.Ask(ctx, turn.Question, history)
		if err != nil {
			return TestResult{}, fmt.Errorf("turn %d failed: %w", turn.TurnNumber, err)
		}
		r.logf("[Turn %d] Tutor: %s (%d citation(s))\n\n", turn.TurnNumber, truncateRunes(answer.Text, 150), len(answer.Citations))

		history = append(history, models.Turn{Question: turn.Question, Answer: answer.Text})
		if turn.TurnNumber == scenario.GroundTruth.FinalQueryTurn {
			final = answer
			found = true
		}
	}
	if !found {
		return TestResult{}, fmt.Errorf("scenario %s has no turn %d", scenario.ID, scenario.GroundTruth.FinalQueryTurn)
	}

	result := r.metrics.EvaluateTest(scenario, final)

	r.logf("========================================\n")
	r.logf("RESULTS: %s\n", scenario.Name)
	r.logf("Faithfulness: %.2f\n", result.FaithfulnessScore)
	r.logf("Context Recall: %.2f\n", result.ContextRecallScore)
	r.logf("Grounded: %t\n", result.Grounded)
	r.logf("Status: %s\n", result.Status)
	r.logf("========================================\n\n")

	return result, nil
}

// RunAllTests executes all benchmark tests
func (r *BenchmarkRunner) RunAllTests(ctx context.Context) ([]TestResult, error) {
	scenarios := AllScenarios()
	results := make([]TestResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		result, err := r.RunTest(ctx, scenario)
		if err != nil {
			return nil, fmt.Errorf("test %s failed: %w", scenario.ID, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// Summary is the exported benchmark report
type Summary struct {
	Timestamp  string       `json:"timestamp"`
	TotalTests int          `json:"total_tests"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Results    []TestResult `json:"results"`
}

// Summarize counts passes and failures
func Summarize(results []TestResult) Summary {
	summary := Summary{
		Timestamp:  time.Now().Format(time.RFC3339),
		TotalTests: len(results),
		Results:    results,
	}
	for _, result := range results {
		if result.Status == "PASS" {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// ExportResults saves a summary of results to a JSON file
func (r *BenchmarkRunner) ExportResults(results []TestResult, outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	jsonData, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	r.logf("✓ Results exported to: %s\n", outputPath)
	return nil
}
