// ABOUTME: MCP tool handler implementations for the study server
// ABOUTME: Translates tool arguments into Session calls and session errors into tool errors
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/study-standalone/internal/extract"
	"github.com/harper/study-standalone/internal/models"
	"github.com/harper/study-standalone/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	session *session.Session
	logger  *zap.Logger
}

type skippedDocument struct {
	Document string `json:"document"`
	Error    string `json:"error"`
}

// questionView is a quiz question with its answer withheld
type questionView struct {
	ID             string              `json:"id"`
	Type           models.QuestionType `json:"type"`
	Prompt         string              `json:"prompt"`
	Options        []string            `json:"options,omitempty"`
	Difficulty     models.Difficulty   `json:"difficulty"`
	SourceChunkIDs []string            `json:"source_chunk_ids"`
}

// IngestDocuments handles the ingest_documents tool
func (h *Handlers) IngestDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	var docs []models.Document
	skipped := []skippedDocument{}

	for _, path := range stringSlice(args, "paths") {
		doc, err := extract.File(path)
		if err != nil {
			h.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
			skipped = append(skipped, skippedDocument{Document: filepath.Base(path), Error: err.Error()})
			continue
		}
		docs = append(docs, doc)
	}

	if raw, ok := args["documents"].([]interface{}); ok {
		for i, item := range raw {
			fields, _ := item.(map[string]interface{})
			name, _ := fields["name"].(string)
			text, _ := fields["text"].(string)
			doc, err := extract.Text(name, []byte(text))
			if err != nil {
				label := name
				if label == "" {
					label = fmt.Sprintf("documents[%d]", i)
				}
				skipped = append(skipped, skippedDocument{Document: label, Error: err.Error()})
				continue
			}
			docs = append(docs, doc)
		}
	}

	if len(docs) == 0 && len(skipped) == 0 {
		return mcp.NewToolResultError("provide at least one entry in paths or documents"), nil
	}

	report, err := h.session.AddDocuments(ctx, docs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("indexing failed: %v", err)), nil
	}
	for _, s := range report.Skipped {
		skipped = append(skipped, skippedDocument{Document: s.Document, Error: s.Err.Error()})
	}

	names := []string{}
	for _, d := range h.session.Documents() {
		names = append(names, d.Name)
	}

	return jsonResult(map[string]interface{}{
		"added":     report.Added,
		"skipped":   skipped,
		"chunks":    report.Chunks,
		"documents": names,
	})
}

// GenerateQuiz handles the generate_quiz tool
func (h *Handlers) GenerateQuiz(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req := models.QuizRequest{
		Count:      request.GetInt("count", 5),
		Difficulty: models.Difficulty(request.GetString("difficulty", string(models.Medium))),
		Topic:      request.GetString("topic", ""),
	}
	for _, t := range stringSlice(args, "types") {
		req.Types = append(req.Types, models.QuestionType(t))
	}
	if len(req.Types) == 0 {
		req.Types = models.AllQuestionTypes
	}

	quiz, err := h.session.GenerateQuiz(ctx, req)
	if err != nil {
		return toolError("quiz generation failed", err), nil
	}

	questions := make([]questionView, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, questionView{
			ID:             q.ID,
			Type:           q.Type(),
			Prompt:         q.Prompt,
			Options:        q.Options(),
			Difficulty:     q.Difficulty,
			SourceChunkIDs: q.SourceChunkIDs,
		})
	}

	response := map[string]interface{}{
		"quiz_id":   quiz.ID,
		"questions": questions,
	}
	if quiz.UnderDelivery != nil {
		response["under_delivery"] = quiz.UnderDelivery
	}
	return jsonResult(response)
}

// AskQuestion handles the ask_question tool
func (h *Handlers) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}

	var history []models.Turn
	if raw, ok := arguments(request)["history"].([]interface{}); ok {
		for _, item := range raw {
			fields, _ := item.(map[string]interface{})
			q, _ := fields["question"].(string)
			a, _ := fields["answer"].(string)
			if q == "" && a == "" {
				continue
			}
			history = append(history, models.Turn{Question: q, Answer: a})
		}
	}

	answer, err := h.session.Ask(ctx, question, history)
	if err != nil {
		return toolError("answering failed", err), nil
	}
	return jsonResult(answer)
}

// SubmitQuiz handles the submit_quiz tool
func (h *Handlers) SubmitQuiz(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	quizID, err := request.RequireString("quiz_id")
	if err != nil {
		return mcp.NewToolResultError("quiz_id argument is required and must be a string"), nil
	}

	raw, ok := arguments(request)["answers"].(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("answers argument is required and must be an object"), nil
	}
	answers := make(map[string]string, len(raw))
	for id, v := range raw {
		switch val := v.(type) {
		case string:
			answers[id] = val
		case bool:
			answers[id] = fmt.Sprint(val)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("answer for %s must be a string", id)), nil
		}
	}

	result, err := h.session.Submit(ctx, quizID, answers)
	if err != nil {
		return toolError("grading failed", err), nil
	}

	return jsonResult(map[string]interface{}{
		"quiz_id": result.QuizID,
		"total":   result.Total,
		"correct": result.Correct,
		"score":   result.Score(),
		"wrong":   result.Wrong,
	})
}

// ListWrongAnswers handles the list_wrong_answers tool
func (h *Handlers) ListWrongAnswers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := h.session.WrongAnswers()
	total := len(records)
	if limit := request.GetInt("limit", 0); limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	return jsonResult(map[string]interface{}{
		"records": records,
		"total":   total,
	})
}

// ClearWrongAnswers handles the clear_wrong_answers tool
func (h *Handlers) ClearWrongAnswers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !request.GetBool("confirm", false) {
		return mcp.NewToolResultError("clearing the ledger is permanent; call again with confirm=true"), nil
	}

	cleared := len(h.session.WrongAnswers())
	if err := h.session.ClearWrongAnswers(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear wrong answers: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"success": true,
		"cleared": cleared,
	})
}

// ResetSession handles the reset_session tool
func (h *Handlers) ResetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.session.Reset()

	return jsonResult(map[string]interface{}{
		"session_id":    h.session.ID(),
		"reset_at":      time.Now().UTC().Format(time.RFC3339),
		"wrong_answers": len(h.session.WrongAnswers()),
	})
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// stringSlice extracts a string array argument, ignoring non-string items
func stringSlice(args map[string]interface{}, key string) []string {
	arr, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(arr))
	for _, item := range arr {
		if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
			result = append(result, str)
		}
	}
	return result
}

// toolError reports request problems plainly and prefixes everything else with what failed
func toolError(action string, err error) *mcp.CallToolResult {
	var invalid *models.InvalidRequestError
	var unknown *models.UnknownQuestionError
	var notFound *models.QuizNotFoundError
	if errors.As(err, &invalid) || errors.As(err, &unknown) || errors.As(err, &notFound) {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}

func jsonResult(response interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
