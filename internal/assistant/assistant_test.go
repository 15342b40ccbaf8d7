package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"datalens/internal/dataset"
	"datalens/internal/llm"
	"datalens/internal/safety"
	"datalens/internal/ticket"
)

// mockProvider plays back scripted responses and records every conversation
// it was handed.
type mockProvider struct {
	chatResponses []string
	chatErr       error
	toolResults   []*llm.ChatResult
	toolErr       error
	transcript    string
	transcribeErr error
	imageURL      string
	imageErr      error

	chatCalls     int
	toolCallCount int
	conversations [][]llm.Message
}

func (m *mockProvider) record(messages []llm.Message) {
	m.conversations = append(m.conversations, append([]llm.Message(nil), messages...))
}

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (string, error) {
	m.record(messages)
	if m.chatErr != nil {
		return "", m.chatErr
	}
	idx := m.chatCalls
	m.chatCalls++
	if idx >= len(m.chatResponses) {
		return "mock-response", nil
	}
	return m.chatResponses[idx], nil
}

func (m *mockProvider) ChatTools(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec) (*llm.ChatResult, error) {
	m.record(messages)
	if m.toolErr != nil {
		return nil, m.toolErr
	}
	idx := m.toolCallCount
	m.toolCallCount++
	if idx >= len(m.toolResults) {
		return &llm.ChatResult{Content: "mock-answer"}, nil
	}
	return m.toolResults[idx], nil
}

func (m *mockProvider) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if audio != nil {
		_, _ = io.Copy(io.Discard, audio)
	}
	if m.transcribeErr != nil {
		return "", m.transcribeErr
	}
	return m.transcript, nil
}

func (m *mockProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if m.imageErr != nil {
		return "", m.imageErr
	}
	return m.imageURL, nil
}

func (m *mockProvider) Name() string { return "mock" }

func seededFilmsStore(t *testing.T) *dataset.Store {
	t.Helper()
	store, err := dataset.Open("films", filepath.Join(t.TempDir(), "films.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SeedFilms(context.Background(), 11))
	return store
}

func healthStore(t *testing.T) *dataset.Store {
	t.Helper()
	store, err := dataset.Open("health", filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	csvPath := filepath.Join(t.TempDir(), "brfss.csv")
	rows := []string{
		"HighBP,HighChol,BMI,Smoker,GenHlth,Age,Diabetes_binary",
		"1,0,28.5,1,3,9,1",
		"0,0,22.1,0,1,2,0",
		"1,1,31.0,1,4,11,1",
	}
	require.NoError(t, os.WriteFile(csvPath, []byte(strings.Join(rows, "\n")+"\n"), 0o644))
	_, err = store.ImportHealthCSV(context.Background(), csvPath)
	require.NoError(t, err)
	return store
}

func ticketStore(t *testing.T) *ticket.Store {
	t.Helper()
	store, err := ticket.Open(filepath.Join(t.TempDir(), "tickets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFilmsAskExecutesGeneratedSQL(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{chatResponses: []string{
		"```sql\nSELECT title, rating FROM movies ORDER BY rating DESC LIMIT 10;\n```",
	}}
	films := NewFilms(provider, seededFilmsStore(t))

	answer, err := films.Ask(context.Background(), "top 10 highest rated movies")
	require.NoError(t, err)
	require.Equal(t, "SELECT title, rating FROM movies ORDER BY rating DESC LIMIT 10", answer.SQL)
	require.Equal(t, []string{"title", "rating"}, answer.Result.Columns)
	require.Equal(t, 10, answer.Result.RowCount)

	// The model saw schema metadata and the question, nothing else. No row
	// data may appear anywhere in the conversation.
	require.Len(t, provider.conversations, 1)
	sent := provider.conversations[0]
	require.Len(t, sent, 2)
	require.Equal(t, "system", sent[0].Role)
	require.Contains(t, sent[0].Content, "Table: movies")
	require.NotContains(t, sent[0].Content, "The Last Journey")
	require.Equal(t, "user", sent[1].Role)
}

func TestFilmsAskRejectsMutatingSQL(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{chatResponses: []string{"DROP TABLE movies"}}
	films := NewFilms(provider, seededFilmsStore(t))

	_, err := films.Ask(context.Background(), "delete everything")
	require.ErrorIs(t, err, safety.ErrBlocked)
}

func TestFilmsAskWrapsExecutionErrors(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{chatResponses: []string{"SELECT no_such_column FROM movies"}}
	films := NewFilms(provider, seededFilmsStore(t))

	_, err := films.Ask(context.Background(), "bad column")
	require.ErrorIs(t, err, ErrQuery)
}

func TestFilmsAskWrapsProviderErrors(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{chatErr: errors.New("connection refused")}
	films := NewFilms(provider, seededFilmsStore(t))

	_, err := films.Ask(context.Background(), "any question")
	require.ErrorIs(t, err, ErrProvider)
}

func TestExplorerAskRunsToolLoop(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{toolResults: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      toolExecuteSQL,
			Arguments: `{"sql_query": "SELECT Age, COUNT(*) as n FROM patient_health_data GROUP BY Age"}`,
		}}},
		{Content: "Diabetes rates rise with age."},
	}}
	explorer := NewExplorer(provider, healthStore(t), ticketStore(t))

	answer, err := explorer.Ask(context.Background(), "Show me diabetes rates by age group")
	require.NoError(t, err)
	require.Equal(t, "Diabetes rates rise with age.", answer.Answer)
	require.Len(t, answer.Tools, 1)
	require.Equal(t, toolExecuteSQL, answer.Tools[0].Name)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(answer.Tools[0].Result, &payload))
	require.Equal(t, true, payload["success"])
	require.Equal(t, float64(3), payload["rows"])

	// Second round carries the assistant turn and the tool result back.
	require.Len(t, provider.conversations, 2)
	followUp := provider.conversations[1]
	require.Equal(t, "assistant", followUp[2].Role)
	require.Equal(t, "tool", followUp[3].Role)
	require.Equal(t, "call-1", followUp[3].ToolCallID)
	require.Contains(t, followUp[3].Content, `"success":true`)
}

func TestExplorerAskAnswersWithoutTools(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{toolResults: []*llm.ChatResult{{Content: "That is out of scope."}}}
	explorer := NewExplorer(provider, healthStore(t), ticketStore(t))

	answer, err := explorer.Ask(context.Background(), "what is the weather")
	require.NoError(t, err)
	require.Equal(t, "That is out of scope.", answer.Answer)
	require.Empty(t, answer.Tools)
}

func TestExplorerBlocksMutatingToolSQL(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{toolResults: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      toolExecuteSQL,
			Arguments: `{"sql_query": "DELETE FROM patient_health_data"}`,
		}}},
		{Content: "I could not run that."},
	}}
	store := healthStore(t)
	explorer := NewExplorer(provider, store, ticketStore(t))

	answer, err := explorer.Ask(context.Background(), "wipe the data")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(answer.Tools[0].Result, &payload))
	require.Equal(t, true, payload["blocked"])

	// The data survived.
	stats, err := store.HealthStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalPatients)
}

func TestExplorerStatisticsAndTicketTools(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{toolResults: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: toolDatabaseStats, Arguments: `{}`},
			{ID: "call-2", Name: toolCreateTicket, Arguments: `{"issue_description": "needs human help"}`},
		}},
		{Content: "Here is the overview; a ticket was filed."},
	}}
	tickets := ticketStore(t)
	explorer := NewExplorer(provider, healthStore(t), tickets)

	answer, err := explorer.Ask(context.Background(), "Give me an overview of the database")
	require.NoError(t, err)
	require.Len(t, answer.Tools, 2)

	var stats dataset.HealthStats
	require.NoError(t, json.Unmarshal(answer.Tools[0].Result, &stats))
	require.Equal(t, 3, stats.TotalPatients)
	require.Equal(t, 2, stats.DiabeticPatients)

	var ticketPayload map[string]any
	require.NoError(t, json.Unmarshal(answer.Tools[1].Result, &ticketPayload))
	require.Equal(t, "created", ticketPayload["status"])

	// The ticket tool falls back to the user's question when the model
	// omitted one.
	listed, err := tickets.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "needs human help", listed[0].Issue)
	require.Equal(t, "Give me an overview of the database", listed[0].Question)
}

func TestExplorerStopsAfterRoundBudget(t *testing.T) {
	t.Parallel()

	loop := &llm.ChatResult{ToolCalls: []llm.ToolCall{{
		ID:        "call-x",
		Name:      toolDatabaseStats,
		Arguments: `{}`,
	}}}
	provider := &mockProvider{
		toolResults:   []*llm.ChatResult{loop, loop, loop, loop},
		chatResponses: []string{"Summary after exhausting tools."},
	}
	explorer := NewExplorer(provider, healthStore(t), ticketStore(t))

	answer, err := explorer.Ask(context.Background(), "loop forever")
	require.NoError(t, err)
	require.Equal(t, "Summary after exhausting tools.", answer.Answer)
	require.Len(t, answer.Tools, maxToolRounds)
	require.Equal(t, 1, provider.chatCalls)
}

func TestStudioGenerate(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{transcript: "a lighthouse at dawn", imageURL: "https://img.example/1.png"}
	studio := NewStudio(provider)

	art, err := studio.Generate(context.Background(), "clip.wav", strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	require.Equal(t, "a lighthouse at dawn", art.Transcript)
	require.Equal(t, "https://img.example/1.png", art.Image)
}

func TestStudioGenerateSurfacesProviderErrors(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{transcribeErr: fmt.Errorf("whisper unavailable")}
	studio := NewStudio(provider)

	_, err := studio.Generate(context.Background(), "clip.wav", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrProvider)
}
