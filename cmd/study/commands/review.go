// ABOUTME: CLI command to review and clear recorded wrong answers
// ABOUTME: Lists the ledger newest first; clearing requires --yes
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var reviewLimit int

// NewReviewCmd creates the review command
func NewReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review wrong answers",
		Long: `Review questions you answered wrongly, most recent first.

The same question missed twice appears twice.

Examples:
  study review
  study review --limit 5
  study review --format json
  study review clear --yes`,
		Args: cobra.NoArgs,
		RunE: runReview,
	}

	cmd.Flags().IntVar(&reviewLimit, "limit", 0, "Show at most this many records (0 for all)")
	cmd.AddCommand(newReviewClearCmd())

	return cmd
}

func newReviewClearCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Permanently delete every wrong answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer ledger.Close()

			count := ledger.Len()
			if !confirmed {
				return fmt.Errorf("refusing to delete %d wrong answer(s) without --yes", count)
			}
			if err := ledger.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clearing wrong answers: %w", err)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d wrong answer(s)\n", count)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm deletion")
	return cmd
}

func runReview(cmd *cobra.Command, args []string) error {
	if err := validatePositiveOrZero(reviewLimit, "limit"); err != nil {
		return err
	}

	ledger, err := openLedger(cmd.Context())
	if err != nil {
		return err
	}
	defer ledger.Close()

	records := ledger.List()
	if reviewLimit > 0 && reviewLimit < len(records) {
		records = records[:reviewLimit]
	}

	out := cmd.OutOrStdout()
	if !tableOutput(out) {
		return writeJSON(out, records)
	}

	if len(records) == 0 {
		if !quiet {
			fmt.Fprintln(out, "No wrong answers recorded")
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tQUESTION\tYOUR ANSWER\tCORRECT\n")
	fmt.Fprintf(w, "----\t--------\t-----------\t-------\n")
	for _, r := range records {
		given := r.UserAnswer
		if given == "" {
			given = "(no answer)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			formatTime(r.SubmittedAt),
			truncate(r.Question.Prompt, 50),
			truncate(given, 25),
			truncate(r.CorrectAnswer, 25))
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(out, "\nTotal: %d wrong answer(s)\n", len(records))
	}
	return nil
}

// validatePositiveOrZero returns error if n is negative
func validatePositiveOrZero(n int, name string) error {
	if n < 0 {
		return fmt.Errorf("%s must not be negative, got %d", name, n)
	}
	return nil
}
