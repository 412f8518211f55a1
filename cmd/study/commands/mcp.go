// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Exposes the study session to LLM agents over stdio, with optional Prometheus metrics
package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/study-standalone/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

var metricsAddr string

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs study as an MCP (Model Context Protocol) server, enabling
LLM agents like Claude to ingest documents, generate and grade quizzes,
and answer questions from the materials via stdio.

With --metrics-addr, Prometheus metrics are served at /metrics.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  study mcp

  # Also expose metrics
  study mcp --metrics-addr :9090

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "study": {
  #       "command": "study",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, logger, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	server, _ := mcp.NewServer(sess, versionInfo.Version, logger)

	var metricsServer *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", sess.Metrics().Handler())
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", metricsAddr))
	}

	logger.Info("study MCP server starting on stdio", zap.String("session_id", sess.ID()))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, shutting down")
	case err = <-serverErr:
		if err != nil {
			err = fmt.Errorf("server error: %w", err)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("metrics server shutdown", zap.Error(serr))
		}
	}
	return err
}
