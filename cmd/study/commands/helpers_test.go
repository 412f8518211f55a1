// ABOUTME: Test fixtures for CLI commands
// ABOUTME: Swaps the session and ledger constructors for fake-backed ones

package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/harper/study-standalone/internal/config"
	"github.com/harper/study-standalone/internal/llm"
	"github.com/harper/study-standalone/internal/llm/llmtest"
	"github.com/harper/study-standalone/internal/session"
	"github.com/harper/study-standalone/internal/storage"
	"go.uber.org/zap"
)

var slotLine = regexp.MustCompile(`\[(P\d+)\] type=(\w+)`)

// tutor writes true/false questions answered "true" and answers questions from P1
func tutor(req llm.CompletionRequest) (string, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	if strings.Contains(prompt, "QUESTION:") {
		return `{"answer":"Mitochondria produce ATP.","citations":["P1"],"insufficient":false}`, nil
	}
	var items []string
	for _, m := range slotLine.FindAllStringSubmatch(prompt, -1) {
		items = append(items, `{"passage":"`+m[1]+`","type":"true_false","prompt":"Is `+m[1]+` accurate?","correct_answer":"true","explanation":"The passage says so."}`)
	}
	return `{"questions":[` + strings.Join(items, ",") + `]}`, nil
}

type cliFixture struct {
	ledger    *storage.Ledger
	generator *llmtest.ScriptedGenerator
}

// useFakes points openSession and openLedger at in-memory fakes for the test's duration
func useFakes(t *testing.T, backend *storage.MemoryBackend) *cliFixture {
	t.Helper()
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}
	ledger, err := storage.NewLedger(context.Background(), backend, nil)
	if err != nil {
		t.Fatalf("NewLedger() error = %v", err)
	}
	f := &cliFixture{
		ledger:    ledger,
		generator: &llmtest.ScriptedGenerator{Respond: tutor},
	}

	origSession, origLedger := openSession, openLedger
	t.Cleanup(func() {
		openSession, openLedger = origSession, origLedger
	})

	openSession = func(ctx context.Context) (*session.Session, *zap.Logger, error) {
		cfg := config.Default()
		cfg.RelevanceFloor = 0.2
		cfg.LedgerBackend = config.LedgerMemory
		sess, err := session.New(session.Options{
			Config:    cfg,
			Embedder:  &llmtest.HashEmbedder{},
			Generator: f.generator,
			Ledger:    f.ledger,
		})
		return sess, zap.NewNop(), err
	}
	openLedger = func(ctx context.Context) (*storage.Ledger, error) {
		return f.ledger, nil
	}
	return f
}

// studyFiles writes two small documents and returns their paths
func studyFiles(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"cells.txt": "Mitochondria produce ATP through cellular respiration.",
		"plants.md": "# Plants\n\nChloroplasts capture light energy for photosynthesis.",
	}
	var paths []string
	for _, name := range []string{"cells.txt", "plants.md"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

// run executes the root command with args and stdin, returning stdout and stderr
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
