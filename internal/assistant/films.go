// Package assistant implements the natural-language pipelines in front of
// the dataset stores: SQL generation for the films assistant, the tool-call
// loop for the health explorer, and the voice-to-image studio.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"datalens/internal/common"
	"datalens/internal/dataset"
	"datalens/internal/llm"
	"datalens/internal/safety"
)

// ErrProvider marks failures of the hosted AI call itself, as opposed to a
// blocked or failing query.
var ErrProvider = errors.New("ai provider request failed")

// ErrQuery marks a generated statement that passed the safety gate but failed
// during execution. The raw cause stays in the logs; callers surface a
// generic message.
var ErrQuery = errors.New("query execution failed")

// Films answers natural-language questions about the films dataset. The
// model receives schema metadata and produces a candidate SQL string; rows
// fetched from the database are returned straight to the caller and are
// never sent back to the model.
type Films struct {
	provider llm.Provider
	store    *dataset.Store
}

// FilmsAnswer carries the generated SQL and the locally executed result.
type FilmsAnswer struct {
	Question string             `json:"question"`
	SQL      string             `json:"sql"`
	Result   *dataset.ResultSet `json:"result"`
}

func NewFilms(provider llm.Provider, store *dataset.Store) *Films {
	return &Films{provider: provider, store: store}
}

// Ask runs the question through the generate-validate-execute pipeline.
func (f *Films) Ask(ctx context.Context, question string) (*FilmsAnswer, error) {
	logger := common.Logger()
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question required")
	}
	logger.Info("assistant: films question received", "question", question)

	schema, err := f.store.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	messages := []llm.Message{
		{Role: "system", Content: filmsSystemPrompt(schema)},
		{Role: "user", Content: question},
	}
	raw, err := f.provider.Chat(ctx, messages, llm.WithTemperature(0))
	if err != nil {
		logger.Error("assistant: sql generation failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	query := safety.CleanSQL(raw)
	logger.Info("assistant: sql generated", "sql", query)
	if err := safety.Validate(query); err != nil {
		logger.Warn("assistant: generated sql blocked", "sql", query, "error", err)
		return nil, err
	}

	result, err := f.store.ExecuteSelect(ctx, query)
	if err != nil {
		logger.Error("assistant: generated sql failed to execute", "sql", query, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	return &FilmsAnswer{Question: question, SQL: query, Result: result}, nil
}
