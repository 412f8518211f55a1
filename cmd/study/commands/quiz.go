// ABOUTME: CLI command to generate and take a quiz from study files
// ABOUTME: Runs questions interactively on stdin, grades them, and records wrong answers
package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/session"
)

var (
	quizCount      int
	quizDifficulty string
	quizTypes      []string
	quizTopic      string
)

// NewQuizCmd creates the quiz command
func NewQuizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz FILE...",
		Short: "Generate a quiz from study files and take it",
		Long: `Generate a quiz from study files and take it.

Questions are written only from the given files. Answer each question on
its own line; multiple-choice questions accept the option letter. Wrong
answers are saved for "study review".

With --format json the quiz is printed instead of run.

Examples:
  study quiz notes.md chapter3.pdf
  study quiz -n 5 --difficulty hard --types multiple_choice,true_false slides.docx
  study quiz --topic photosynthesis --format json biology.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: runQuiz,
	}

	cmd.Flags().IntVarP(&quizCount, "count", "n", 10, "Number of questions (1-50)")
	cmd.Flags().StringVar(&quizDifficulty, "difficulty", "medium", "Difficulty: easy, medium, or hard")
	cmd.Flags().StringSliceVar(&quizTypes, "types", []string{"multiple_choice", "true_false", "short_answer"}, "Question types (comma-separated)")
	cmd.Flags().StringVar(&quizTopic, "topic", "", "Focus the quiz on a topic")

	return cmd
}

func runQuiz(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess, _, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := ingestFiles(ctx, sess, args, cmd.ErrOrStderr()); err != nil {
		return err
	}

	req := models.QuizRequest{
		Count:      quizCount,
		Difficulty: models.Difficulty(quizDifficulty),
		Topic:      quizTopic,
	}
	for _, t := range quizTypes {
		req.Types = append(req.Types, models.QuestionType(t))
	}

	quiz, err := sess.GenerateQuiz(ctx, req)
	if err != nil {
		return fmt.Errorf("generating quiz: %w", err)
	}
	if quiz.UnderDelivery != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Note: %s\n", quiz.UnderDelivery)
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("no questions could be generated from %d file(s)", len(args))
	}

	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), quiz)
	}
	return takeQuiz(cmd, sess, quiz)
}

func takeQuiz(cmd *cobra.Command, sess *session.Session, quiz *models.Quiz) error {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	answers := make(map[string]string, len(quiz.Questions))
	for i, q := range quiz.Questions {
		fmt.Fprintf(out, "\n%d/%d. %s\n", i+1, len(quiz.Questions), q.Prompt)
		askFor(out, q)
		if !in.Scan() {
			break
		}
		answer := strings.TrimSpace(in.Text())
		if q.Type() == models.MultipleChoiceType {
			answer = resolveChoice(answer, q.Options())
		}
		answers[q.ID] = answer
	}
	if err := in.Err(); err != nil {
		return fmt.Errorf("reading answers: %w", err)
	}

	result, err := sess.Submit(cmd.Context(), quiz.ID, answers)
	if err != nil {
		return fmt.Errorf("grading quiz: %w", err)
	}
	printResult(out, result)
	return nil
}

func askFor(out io.Writer, q models.Question) {
	switch q.Type() {
	case models.MultipleChoiceType:
		for i, opt := range q.Options() {
			fmt.Fprintf(out, "   %s) %s\n", optionLetter(i), opt)
		}
		fmt.Fprint(out, "Answer (letter): ")
	case models.TrueFalseType:
		fmt.Fprint(out, "Answer (true/false): ")
	default:
		fmt.Fprint(out, "Answer: ")
	}
}

func printResult(out io.Writer, result models.QuizResult) {
	fmt.Fprintf(out, "\nScore: %d/%d (%.0f%%)\n", result.Correct, result.Total, result.Score()*100)
	for _, w := range result.Wrong {
		fmt.Fprintf(out, "\n✗ %s\n", w.Question.Prompt)
		given := w.UserAnswer
		if given == "" {
			given = "(no answer)"
		}
		fmt.Fprintf(out, "   Your answer: %s\n", given)
		fmt.Fprintf(out, "   Correct:     %s\n", w.CorrectAnswer)
		if w.Explanation != "" {
			fmt.Fprintf(out, "   Why:         %s\n", w.Explanation)
		}
	}
	if len(result.Wrong) > 0 && !quiet {
		fmt.Fprintf(out, "\n%d wrong answer(s) saved. Run \"study review\" to revisit them.\n", len(result.Wrong))
	}
}
