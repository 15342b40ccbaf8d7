package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"datalens/internal/common"
	"datalens/internal/dataset"
	"datalens/internal/llm"
	"datalens/internal/safety"
	"datalens/internal/ticket"
)

// maxToolRounds bounds the tool-call loop. The original flow is one round of
// tools plus a summarizing call; a little headroom lets the model chain a
// statistics lookup with a follow-up query.
const maxToolRounds = 4

const (
	toolExecuteSQL    = "execute_sql_query"
	toolDatabaseStats = "get_database_statistics"
	toolCreateTicket  = "create_support_ticket"
)

// Explorer drives the tool-calling conversation over the CDC health dataset.
// Unlike the films pipeline, fetched rows are fed back to the model as tool
// results so it can summarize them for the user.
type Explorer struct {
	provider llm.Provider
	store    *dataset.Store
	tickets  *ticket.Store
}

// ToolExecution records one tool the model invoked, for display to the user.
type ToolExecution struct {
	Name   string          `json:"name"`
	Args   map[string]any  `json:"args"`
	Result json.RawMessage `json:"result"`
}

// ExplorerAnswer is the final response plus the ordered tool trace.
type ExplorerAnswer struct {
	Answer string          `json:"answer"`
	Tools  []ToolExecution `json:"tools,omitempty"`
}

func NewExplorer(provider llm.Provider, store *dataset.Store, tickets *ticket.Store) *Explorer {
	return &Explorer{provider: provider, store: store, tickets: tickets}
}

func explorerTools() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        toolExecuteSQL,
			Description: "Run a database query to get specific health data. Use this when you need detailed information.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sql_query": map[string]any{
						"type":        "string",
						"description": "A SELECT query to run on the database",
					},
				},
				"required": []string{"sql_query"},
			},
		},
		{
			Name:        toolDatabaseStats,
			Description: "Get a quick overview of the database - total patients, diabetes rates, average BMI, etc.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		{
			Name:        toolCreateTicket,
			Description: "Create a support ticket when you can't help or the user needs human assistance",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"issue_description": map[string]any{
						"type":        "string",
						"description": "What's the problem or what help is needed",
					},
					"user_question": map[string]any{
						"type":        "string",
						"description": "What the user originally asked",
					},
				},
				"required": []string{"issue_description"},
			},
		},
	}
}

// Ask processes a user question, letting the model decide which tools to
// call. Tool results are appended to the conversation; the loop ends when the
// model answers in plain content or the round budget runs out.
func (e *Explorer) Ask(ctx context.Context, question string) (*ExplorerAnswer, error) {
	logger := common.Logger()
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question required")
	}
	logger.Info("assistant: explorer question received", "question", question)

	schema, err := e.store.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	messages := []llm.Message{
		{Role: "system", Content: explorerSystemPrompt(schema)},
		{Role: "user", Content: question},
	}
	tools := explorerTools()
	var executed []ToolExecution

	for round := 0; round < maxToolRounds; round++ {
		result, err := e.provider.ChatTools(ctx, messages, tools)
		if err != nil {
			logger.Error("assistant: explorer chat failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		if len(result.ToolCalls) == 0 {
			logger.Info("assistant: explorer answered", "rounds", round, "tools", len(executed))
			return &ExplorerAnswer{Answer: result.Content, Tools: executed}, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})
		for _, call := range result.ToolCalls {
			logger.Info("assistant: model requested tool", "tool", call.Name)
			args := map[string]any{}
			if strings.TrimSpace(call.Arguments) != "" {
				if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
					logger.Warn("assistant: malformed tool arguments", "tool", call.Name, "error", err)
				}
			}
			payload := e.runTool(ctx, call.Name, args, question)
			executed = append(executed, ToolExecution{Name: call.Name, Args: args, Result: payload})
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    string(payload),
				ToolCallID: call.ID,
			})
		}
	}

	// Round budget exhausted: ask for a summary without offering tools.
	answer, err := e.provider.Chat(ctx, messages)
	if err != nil {
		logger.Error("assistant: explorer summary failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return &ExplorerAnswer{Answer: answer, Tools: executed}, nil
}

// runTool executes one model-requested tool and always returns a JSON
// payload; tool failures are reported to the model rather than aborting the
// request.
func (e *Explorer) runTool(ctx context.Context, name string, args map[string]any, question string) json.RawMessage {
	switch name {
	case toolExecuteSQL:
		query, _ := args["sql_query"].(string)
		return e.executeSQL(ctx, query)
	case toolDatabaseStats:
		return e.databaseStats(ctx)
	case toolCreateTicket:
		issue, _ := args["issue_description"].(string)
		userQuestion, _ := args["user_question"].(string)
		if strings.TrimSpace(userQuestion) == "" {
			userQuestion = question
		}
		return e.createTicket(ctx, issue, userQuestion)
	default:
		return mustJSON(map[string]any{"error": fmt.Sprintf("unknown tool %q", name)})
	}
}

// executeSQL gates the model-supplied statement through the same safety
// validator as the films pipeline before running it.
func (e *Explorer) executeSQL(ctx context.Context, raw string) json.RawMessage {
	logger := common.Logger()
	query := safety.CleanSQL(raw)
	if err := safety.Validate(query); err != nil {
		logger.Warn("assistant: explorer query blocked", "sql", query, "error", err)
		return mustJSON(map[string]any{"error": err.Error(), "blocked": true})
	}
	result, err := e.store.ExecuteSelect(ctx, query)
	if err != nil {
		logger.Error("assistant: explorer query failed", "sql", query, "error", err)
		return mustJSON(map[string]any{"error": err.Error(), "success": false})
	}
	data := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		data = append(data, record)
	}
	return mustJSON(map[string]any{
		"success": true,
		"rows":    result.RowCount,
		"data":    data,
	})
}

func (e *Explorer) databaseStats(ctx context.Context) json.RawMessage {
	stats, err := e.store.HealthStats(ctx)
	if err != nil {
		common.Logger().Error("assistant: statistics failed", "error", err)
		return mustJSON(map[string]any{"error": err.Error()})
	}
	return mustJSON(stats)
}

func (e *Explorer) createTicket(ctx context.Context, issue, question string) json.RawMessage {
	if strings.TrimSpace(issue) == "" {
		issue = "User requested assistance"
	}
	created, err := e.tickets.Create(ctx, issue, question)
	if err != nil {
		common.Logger().Error("assistant: ticket creation failed", "error", err)
		return mustJSON(map[string]any{"error": err.Error()})
	}
	return mustJSON(map[string]any{
		"ticket_id": created.ID,
		"status":    created.Status,
		"message":   "Your support ticket has been created and logged for review.",
	})
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return data
}
