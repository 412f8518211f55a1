// ABOUTME: Tests for the benchmark runner against an in-memory session
// ABOUTME: An extractive fake generator answers from the top passage so scores are deterministic
package ragas

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/harper/study-standalone/internal/config"
	"github.com/harper/study-standalone/internal/llm"
	"github.com/harper/study-standalone/internal/llm/llmtest"
	"github.com/harper/study-standalone/internal/session"
	"github.com/harper/study-standalone/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var firstPassage = regexp.MustCompile(`(?s)\[P1\] \(source: [^)]*\)\n(.*?)\n+(?:\[P2\]|QUESTION:)`)

// extractive answers with the text of the top-ranked passage and cites it
func extractive(req llm.CompletionRequest) (string, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	m := firstPassage.FindStringSubmatch(prompt)
	if m == nil {
		return `{"answer":"","citations":[],"insufficient":true}`, nil
	}
	data, err := json.Marshal(map[string]interface{}{
		"answer":       m[1],
		"citations":    []string{"P1"},
		"insufficient": false,
	})
	return string(data), err
}

func newTestRunner(t *testing.T, gen *llmtest.ScriptedGenerator, out *bytes.Buffer) *BenchmarkRunner {
	t.Helper()
	cfg := config.Default()
	cfg.LedgerBackend = config.LedgerMemory

	factory := func(ctx context.Context) (*session.Session, error) {
		ledger, err := storage.NewLedger(ctx, storage.NewMemoryBackend(), nil)
		if err != nil {
			return nil, err
		}
		return session.New(session.Options{
			Config:    cfg,
			Provider:  "test",
			Embedder:  &llmtest.HashEmbedder{},
			Generator: gen,
			Ledger:    ledger,
		})
	}
	if out == nil {
		return NewBenchmarkRunner(factory, false, nil)
	}
	return NewBenchmarkRunner(factory, true, out)
}

func TestRunAllTests_ExtractiveTutorPasses(t *testing.T) {
	runner := newTestRunner(t, &llmtest.ScriptedGenerator{Respond: extractive}, nil)

	results, err := runner.RunAllTests(context.Background())
	require.NoError(t, err)
	require.Len(t, results, len(AllScenarios()))

	for _, r := range results {
		assert.Equal(t, "PASS", r.Status, "%s: %v", r.TestID, r.Details)
	}
}

func TestRunTest_UngroundedAnswerFails(t *testing.T) {
	gen := &llmtest.ScriptedGenerator{}
	gen.QueueText(`{"answer":"Mitochondria produce ATP.","citations":["P9"],"insufficient":false}`)
	runner := newTestRunner(t, gen, nil)

	result, err := runner.RunTest(context.Background(), GetTestSingleSource())
	require.NoError(t, err)

	// an unknown passage label leaves no valid citation, so the answer degrades to the marker
	assert.Equal(t, "FAIL", result.Status)
	assert.False(t, result.Grounded)
}

func TestRunTest_OutOfScopeNeverCallsGenerator(t *testing.T) {
	gen := &llmtest.ScriptedGenerator{Respond: extractive}
	var out bytes.Buffer
	runner := newTestRunner(t, gen, &out)

	result, err := runner.RunTest(context.Background(), GetTestOutOfScope())
	require.NoError(t, err)
	assert.Equal(t, "PASS", result.Status)
	assert.Equal(t, 0, gen.Calls())
	assert.Contains(t, out.String(), "RUNNING: Out-of-Scope Refusal")
}

func TestRunTest_MissingFinalTurn(t *testing.T) {
	runner := newTestRunner(t, &llmtest.ScriptedGenerator{Respond: extractive}, nil)
	scenario := GetTestSingleSource()
	scenario.GroundTruth.FinalQueryTurn = 3

	_, err := runner.RunTest(context.Background(), scenario)
	assert.Error(t, err)
}

func TestExportResults(t *testing.T) {
	runner := NewBenchmarkRunner(nil, false, nil)
	path := filepath.Join(t.TempDir(), "out", "results.json")

	results := []TestResult{
		{TestID: "a", Status: "PASS"},
		{TestID: "b", Status: "FAIL"},
	}
	require.NoError(t, runner.ExportResults(results, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var summary Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 2, summary.TotalTests)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "a", summary.Results[0].TestID)
}
