// ABOUTME: Root command and global flags for the study CLI
// ABOUTME: Registers quiz, ask, review, mcp, sync, and version subcommands
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
 ███████ ████████ ██    ██ ██████  ██    ██
 ██         ██    ██    ██ ██   ██  ██  ██
 ███████    ██    ██    ██ ██   ██   ████
      ██    ██    ██    ██ ██   ██    ██
 ███████    ██     ██████  ██████     ██
`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study",
		Short: "Quiz yourself and ask questions about your study materials",
		Long: banner + `
Study turns your notes, slides, and readings into quizzes and answers.

Questions are generated only from the documents you provide, answers cite
the passages they came from, and every wrong answer is kept for review.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "auto", "json", "table":
				return nil
			}
			return fmt.Errorf("--format must be auto, json or table, got %q", outputFormat)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json, or table")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewQuizCmd(),
		NewAskCmd(),
		NewReviewCmd(),
		NewMCPCmd(),
		NewSyncCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
