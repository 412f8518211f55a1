// ABOUTME: Command-line runner for the grounding benchmarks
// ABOUTME: Runs scenarios against the configured model provider and writes JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/study-standalone/benchmarks/ragas"
	"github.com/harper/study-standalone/internal/config"
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/session"
	"github.com/joho/godotenv"
)

func main() {
	// Command-line flags
	testID := flag.String("test", "", "Run specific test (single_source, out_of_scope, follow_up). If empty, runs all tests.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	configPath := flag.String("config", "", "Path to a YAML config file")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (continuing anyway): %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// benchmarks never touch the real wrong-answer ledger
	cfg.LedgerBackend = config.LedgerMemory
	if !*verbose {
		cfg.LogLevel = "warn"
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("========================================")
	fmt.Println("Study Assistant Grounding Benchmarks")
	fmt.Println("========================================")
	fmt.Println()

	runner := ragas.NewBenchmarkRunner(func(ctx context.Context) (*session.Session, error) {
		return session.Open(ctx, cfg, logger)
	}, *verbose, os.Stdout)

	var results []ragas.TestResult

	if *testID == "" {
		fmt.Println("Running all grounding benchmark tests...")
		fmt.Println()

		results, err = runner.RunAllTests(ctx)
		if err != nil {
			log.Fatalf("Benchmark failed: %v", err)
		}
	} else {
		scenario, ok := ragas.ScenarioByID(*testID)
		if !ok {
			log.Fatalf("Unknown test ID: %s (valid options: single_source, out_of_scope, follow_up)", *testID)
		}

		fmt.Printf("Running test: %s\n\n", scenario.Name)

		result, err := runner.RunTest(ctx, scenario)
		if err != nil {
			log.Fatalf("Test failed: %v", err)
		}
		results = []ragas.TestResult{result}
	}

	summary := ragas.Summarize(results)

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Grounded: %t\n", result.Grounded)
		fmt.Printf("  Status: %s\n", result.Status)
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", summary.TotalTests)
	fmt.Printf("Passed: %d\n", summary.Passed)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Println("========================================")

	if err := runner.ExportResults(results, *outputPath); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}
	fmt.Printf("Results exported to: %s\n", *outputPath)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
