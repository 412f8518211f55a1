// ABOUTME: CLI command to ask questions about study files
// ABOUTME: Answers once with --question, otherwise runs a chat loop that carries prior turns
package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/study-standalone/internal/models"
)

var askQuestion string

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask FILE...",
		Short: "Ask questions answered from study files",
		Long: `Ask questions answered only from study files.

Each answer lists the passages it relied on. When the files do not cover a
question, study says so instead of guessing.

Without --question, study reads one question per line until EOF or "exit".

Examples:
  study ask notes.md -Q "What does the mitochondria do?"
  study ask chapter1.pdf chapter2.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().StringVarP(&askQuestion, "question", "Q", "", "Ask a single question and exit")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := ingestFiles(ctx, sess, args, cmd.ErrOrStderr()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askQuestion != "" {
		answer, err := sess.Ask(ctx, askQuestion, nil)
		if err != nil {
			return err
		}
		return printAnswer(out, answer)
	}

	var history []models.Turn
	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		if !quiet {
			fmt.Fprint(out, "> ")
		}
		if !in.Scan() {
			break
		}
		question := strings.TrimSpace(in.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		answer, err := sess.Ask(ctx, question, history)
		if err != nil {
			return err
		}
		if err := printAnswer(out, answer); err != nil {
			return err
		}
		history = append(history, models.Turn{Question: question, Answer: answer.Text})
	}
	return in.Err()
}

func printAnswer(out io.Writer, answer models.CitedAnswer) error {
	if !tableOutput(out) {
		return writeJSON(out, answer)
	}

	fmt.Fprintf(out, "%s\n", answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for i, c := range answer.Citations {
			fmt.Fprintf(out, "  [%d] %s (chars %d-%d, relevance %.2f)\n", i+1, c.Document, c.Span.Start, c.Span.End, c.Score)
		}
	}
	fmt.Fprintln(out)
	return nil
}
