// ABOUTME: MCP tool definitions and registration for the study server
// ABOUTME: Declares the JSON schemas for the seven study tools and binds them to handlers
package mcp

import (
	"github.com/harper/study-standalone/internal/logging"
	"github.com/harper/study-standalone/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ToolNames lists the registered tools in registration order
var ToolNames = []string{
	"ingest_documents",
	"generate_quiz",
	"ask_question",
	"submit_quiz",
	"list_wrong_answers",
	"clear_wrong_answers",
	"reset_session",
}

// NewServer creates an MCP server with every study tool registered
func NewServer(sess *session.Session, version string, logger *zap.Logger) (*mcpserver.MCPServer, *Handlers) {
	server := mcpserver.NewMCPServer("Study Assistant", version)
	return server, RegisterTools(server, sess, logger)
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, sess *session.Session, logger *zap.Logger) *Handlers {
	handlers := &Handlers{
		session: sess,
		logger:  logging.OrNop(logger).Named("mcp"),
	}

	// 1. ingest_documents
	server.AddTool(mcp.Tool{
		Name:        "ingest_documents",
		Description: "Add study materials to the session. Accepts file paths (.txt, .md, .pdf, .docx) and/or inline documents. Rebuilds the search index over every document in the session.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paths": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Paths of files to read",
				},
				"documents": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name": map[string]interface{}{"type": "string"},
							"text": map[string]interface{}{"type": "string"},
						},
						"required": []string{"name", "text"},
					},
					"description": "Inline documents given as name and plain text",
				},
			},
		},
	}, handlers.IngestDocuments)

	// 2. generate_quiz
	server.AddTool(mcp.Tool{
		Name:        "generate_quiz",
		Description: "Generate a quiz from the session's study materials. Answers are withheld; grade them with submit_quiz.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"count": map[string]interface{}{
					"type":        "number",
					"description": "Number of questions, 1-50 (default: 5)",
					"default":     5,
				},
				"difficulty": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"easy", "medium", "hard"},
					"description": "Question difficulty (default: medium)",
					"default":     "medium",
				},
				"types": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string", "enum": []string{"multiple_choice", "true_false", "short_answer"}},
					"description": "Question types to mix (default: all three)",
				},
				"topic": map[string]interface{}{
					"type":        "string",
					"description": "Optional topic to focus the quiz on",
				},
			},
		},
	}, handlers.GenerateQuiz)

	// 3. ask_question
	server.AddTool(mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question using only the session's study materials, citing the passages used. Returns an insufficient-context marker when the materials do not cover the question.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer",
				},
				"history": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"question": map[string]interface{}{"type": "string"},
							"answer":   map[string]interface{}{"type": "string"},
						},
					},
					"description": "Earlier exchanges in this conversation, oldest first",
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskQuestion)

	// 4. submit_quiz
	server.AddTool(mcp.Tool{
		Name:        "submit_quiz",
		Description: "Grade answers for the current quiz. Wrong answers are added to the review ledger.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"quiz_id": map[string]interface{}{
					"type":        "string",
					"description": "ID returned by generate_quiz",
				},
				"answers": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": map[string]interface{}{"type": "string"},
					"description":          "Answers keyed by question ID (q1, q2, ...)",
				},
			},
			Required: []string{"quiz_id", "answers"},
		},
	}, handlers.SubmitQuiz)

	// 5. list_wrong_answers
	server.AddTool(mcp.Tool{
		Name:        "list_wrong_answers",
		Description: "List recorded wrong answers, most recent first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum records to return (default: all)",
				},
			},
		},
	}, handlers.ListWrongAnswers)

	// 6. clear_wrong_answers
	server.AddTool(mcp.Tool{
		Name:        "clear_wrong_answers",
		Description: "Permanently delete every recorded wrong answer. Requires confirm=true.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"confirm": map[string]interface{}{
					"type":        "boolean",
					"description": "Must be true to clear the ledger",
				},
			},
			Required: []string{"confirm"},
		},
	}, handlers.ClearWrongAnswers)

	// 7. reset_session
	server.AddTool(mcp.Tool{
		Name:        "reset_session",
		Description: "Start a new study session: drops documents, the index, and the current quiz. Wrong answers are kept.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ResetSession)

	return handlers
}
