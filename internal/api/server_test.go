package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"datalens/internal/dataset"
	"datalens/internal/llm"
	"datalens/internal/ticket"
)

type mockProvider struct {
	chatResponses []string
	chatErr       error
	toolResults   []*llm.ChatResult
	toolErr       error
	transcript    string
	imageURL      string

	chatCalls int
	toolCalls int
}

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (string, error) {
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
	if m.toolErr != nil {
		return nil, m.toolErr
	}
	idx := m.toolCalls
	m.toolCalls++
	if idx >= len(m.toolResults) {
		return &llm.ChatResult{Content: "mock-answer"}, nil
	}
	return m.toolResults[idx], nil
}

func (m *mockProvider) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if audio != nil {
		_, _ = io.Copy(io.Discard, audio)
	}
	return m.transcript, nil
}

func (m *mockProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return m.imageURL, nil
}

func (m *mockProvider) Name() string { return "mock" }

type testEnv struct {
	server  *Server
	tickets *ticket.Store
}

func newTestEnv(t *testing.T, provider llm.Provider) *testEnv {
	t.Helper()
	ctx := context.Background()

	films, err := dataset.Open("films", filepath.Join(t.TempDir(), "films.db"))
	require.NoError(t, err)
	t.Cleanup(func() { films.Close() })
	require.NoError(t, films.SeedFilms(ctx, 21))

	health, err := dataset.Open("health", filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { health.Close() })
	csvPath := filepath.Join(t.TempDir(), "brfss.csv")
	rows := []string{
		"HighBP,HighChol,BMI,Smoker,GenHlth,Age,Diabetes_binary",
		"1,0,28.5,1,3,9,1",
		"0,0,22.1,0,1,2,0",
	}
	require.NoError(t, os.WriteFile(csvPath, []byte(strings.Join(rows, "\n")+"\n"), 0o644))
	_, err = health.ImportHealthCSV(ctx, csvPath)
	require.NoError(t, err)

	tickets, err := ticket.Open(filepath.Join(t.TempDir(), "tickets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { tickets.Close() })

	server, err := NewServer(provider, films, health, tickets, nil)
	require.NoError(t, err)
	return &testEnv{server: server, tickets: tickets}
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mockProvider{})
	rec := doJSON(t, env.server, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestFilmsAskHappyPath(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{chatResponses: []string{
		"SELECT title, rating FROM movies ORDER BY rating DESC LIMIT 5",
	}}
	env := newTestEnv(t, provider)

	rec := doJSON(t, env.server, http.MethodPost, "/v1/films/ask", askRequest{Question: "top rated movies"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp filmsAskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "SELECT title, rating FROM movies ORDER BY rating DESC LIMIT 5", resp.SQL)
	require.Equal(t, []string{"title", "rating"}, resp.Columns)
	require.Equal(t, 5, resp.RowCount)
	require.Len(t, resp.Rows, 5)
}

func TestFilmsAskMissingQuestion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mockProvider{})
	rec := doJSON(t, env.server, http.MethodPost, "/v1/films/ask", askRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilmsAskBlockedQuery(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{chatResponses: []string{"DROP TABLE movies"}}
	env := newTestEnv(t, provider)

	rec := doJSON(t, env.server, http.MethodPost, "/v1/films/ask", askRequest{Question: "drop it"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["blocked"])
}

func TestFilmsAskExecutionFailureIsGeneric(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{chatResponses: []string{"SELECT no_such FROM movies"}}
	env := newTestEnv(t, provider)

	rec := doJSON(t, env.server, http.MethodPost, "/v1/films/ask", askRequest{Question: "odd"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// The raw database error stays in the logs.
	require.NotContains(t, resp["error"], "no_such")
}

func TestFilmsAskProviderFailureFilesTicket(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{chatErr: errors.New("upstream down")}
	env := newTestEnv(t, provider)

	rec := doJSON(t, env.server, http.MethodPost, "/v1/films/ask", askRequest{Question: "anything"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	ticketID, ok := resp["ticket_id"].(string)
	require.True(t, ok, "expected auto-filed ticket in %v", resp)
	require.True(t, strings.HasPrefix(ticketID, "TICKET-"))

	listed, err := env.tickets.List(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "anything", listed[0].Question)
}

func TestExplorerAskReturnsToolTrace(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{toolResults: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      "execute_sql_query",
			Arguments: `{"sql_query": "SELECT COUNT(*) as n FROM patient_health_data"}`,
		}}},
		{Content: "There are two patients."},
	}}
	env := newTestEnv(t, provider)

	rec := doJSON(t, env.server, http.MethodPost, "/v1/explorer/ask", askRequest{Question: "how many patients?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp explorerAskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "There are two patients.", resp.Answer)
	require.Len(t, resp.Tools, 1)
	require.Equal(t, "execute_sql_query", resp.Tools[0].Name)
}

func TestStatsEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mockProvider{})

	rec := doJSON(t, env.server, http.MethodGet, "/v1/films/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var films dataset.FilmsStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &films))
	require.Equal(t, 600, films.Movies)

	rec = doJSON(t, env.server, http.MethodGet, "/v1/explorer/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health dataset.HealthStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, 2, health.TotalPatients)
}

func TestSchemaEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mockProvider{})

	rec := doJSON(t, env.server, http.MethodGet, "/v1/schema?dataset=films", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp schemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Schema, "Table: movies")

	rec = doJSON(t, env.server, http.MethodGet, "/v1/schema?dataset=nope", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSamplesEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mockProvider{})

	rec := doJSON(t, env.server, http.MethodGet, "/v1/samples?dataset=health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp samplesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Questions)
	require.Contains(t, resp.Questions, "Show me diabetes rates by age group")
}

func TestTicketEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mockProvider{})

	rec := doJSON(t, env.server, http.MethodPost, "/v1/tickets", createTicketRequest{Question: "top movies?"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "created", created["status"])

	rec = doJSON(t, env.server, http.MethodGet, "/v1/tickets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Tickets []ticket.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Tickets, 1)
	// Empty issue falls back to the default description.
	require.Equal(t, "User requested assistance", listed.Tickets[0].Issue)
}

func TestVoiceImageUpload(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{transcript: "a red barn in the snow", imageURL: "https://img.example/barn.png"}
	env := newTestEnv(t, provider)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", "prompt.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-audio-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/voice/image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "a red barn in the snow", resp["transcript"])
	require.Equal(t, "https://img.example/barn.png", resp["image"])
}

func TestVoiceImageRequiresFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mockProvider{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("note", "no audio here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/voice/image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &mockProvider{})
	rec := doJSON(t, env.server, http.MethodGet, "/v1/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp, "entries")
}
