// ABOUTME: Shared helpers for CLI commands: config, logging, session setup, and output
// ABOUTME: Session and ledger constructors are variables so tests can substitute fakes
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/harper/study-standalone/internal/config"
	"github.com/harper/study-standalone/internal/extract"
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/session"
	"github.com/harper/study-standalone/internal/storage"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// openSession builds the session used by quiz, ask, and mcp
var openSession = func(ctx context.Context) (*session.Session, *zap.Logger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return sess, logger, nil
}

// openLedger opens the wrong-answer ledger alone; review needs no model provider
var openLedger = func(ctx context.Context) (*storage.Ledger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, err
	}
	backend, err := storage.OpenLedgerBackend(cfg)
	if err != nil {
		return nil, err
	}
	ledger, err := storage.NewLedger(ctx, backend, logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return ledger, nil
}

// setup loads .env and configuration, then builds a logger honouring --verbose and --quiet
func setup() (*config.Config, *zap.Logger, error) {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case verbose:
		cfg.LogLevel = "debug"
	case quiet:
		cfg.LogLevel = "error"
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, logger, nil
}

// ingestFiles extracts and indexes files, reporting skipped ones on stderr
func ingestFiles(ctx context.Context, sess *session.Session, paths []string, stderr io.Writer) error {
	var docs []models.Document
	for _, path := range paths {
		doc, err := extract.File(path)
		if err != nil {
			fmt.Fprintf(stderr, "Skipped %s: %v\n", path, err)
			continue
		}
		docs = append(docs, doc)
	}

	report, err := sess.AddDocuments(ctx, docs)
	if err != nil {
		return err
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(stderr, "Skipped %s: %v\n", s.Document, s.Err)
	}
	if len(sess.Documents()) == 0 {
		return fmt.Errorf("none of the %d file(s) could be read", len(paths))
	}
	if !quiet {
		fmt.Fprintf(stderr, "Indexed %d document(s), %d passage(s)\n", len(report.Added), report.Chunks)
	}
	return nil
}

// tableOutput reports whether results should be rendered as a table for w
func tableOutput(w io.Writer) bool {
	switch outputFormat {
	case "table":
		return true
	case "json":
		return false
	}
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintf(w, "%s\n", jsonData)
	return nil
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
	return t.Format("2006-01-02")
}

// optionLetter labels multiple-choice options A, B, C, ...
func optionLetter(i int) string {
	return string(rune('A' + i))
}

// resolveChoice maps a single option letter onto its option text; anything else is returned as typed
func resolveChoice(input string, options []string) string {
	if len(input) == 1 {
		c := input[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if i := int(c - 'A'); i >= 0 && i < len(options) {
			return options[i]
		}
	}
	return input
}
