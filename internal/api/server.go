// Package api exposes the assistant pipelines over HTTP. Handlers are thin:
// they decode, delegate to the pipeline, and translate errors into the
// user-facing vocabulary (blocked, failed, unavailable).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"datalens/internal/assistant"
	"datalens/internal/common"
	"datalens/internal/dataset"
	"datalens/internal/llm"
	"datalens/internal/safety"
	"datalens/internal/ticket"
)

// Config controls optional server behavior.
type Config struct {
	// TicketOnProviderFailure files a support ticket automatically when a
	// hosted AI call fails mid-request.
	TicketOnProviderFailure bool
	// MaxUploadBytes bounds voice uploads.
	MaxUploadBytes int64
}

// DefaultConfig returns the standard configuration used when no overrides
// are provided.
func DefaultConfig() Config {
	return Config{
		TicketOnProviderFailure: true,
		MaxUploadBytes:          16 << 20,
	}
}

type Server struct {
	router   chi.Router
	cfg      Config
	provider llm.Provider

	films    *assistant.Films
	explorer *assistant.Explorer
	studio   *assistant.Studio

	filmsData  *dataset.Store
	healthData *dataset.Store
	tickets    *ticket.Store
}

func NewServer(provider llm.Provider, filmsData, healthData *dataset.Store, tickets *ticket.Store, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if provider == nil {
		return nil, fmt.Errorf("provider required")
	}
	if filmsData == nil || healthData == nil {
		return nil, fmt.Errorf("dataset stores required")
	}
	if tickets == nil {
		return nil, fmt.Errorf("ticket store required")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = *cfg
	}
	srv := &Server{
		router:     chi.NewRouter(),
		cfg:        configuration,
		provider:   provider,
		films:      assistant.NewFilms(provider, filmsData),
		explorer:   assistant.NewExplorer(provider, healthData, tickets),
		studio:     assistant.NewStudio(provider),
		filmsData:  filmsData,
		healthData: healthData,
		tickets:    tickets,
	}
	srv.routes()
	logger.Info("api: server ready", "provider", provider.Name())
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/films/ask", s.handleFilmsAsk)
	s.router.Get("/v1/films/stats", s.handleFilmsStats)
	s.router.Post("/v1/explorer/ask", s.handleExplorerAsk)
	s.router.Get("/v1/explorer/stats", s.handleExplorerStats)
	s.router.Get("/v1/schema", s.handleSchema)
	s.router.Get("/v1/samples", s.handleSamples)
	s.router.Post("/v1/voice/image", s.handleVoiceImage)
	s.router.Post("/v1/tickets", s.handleCreateTicket)
	s.router.Get("/v1/tickets", s.handleListTickets)
	s.router.Get("/v1/logs", s.handleLogs)
}

// datasetByName resolves the dataset query parameter used by the schema and
// samples endpoints.
func (s *Server) datasetByName(name string) (*dataset.Store, bool) {
	switch name {
	case "films":
		return s.filmsData, true
	case "health":
		return s.healthData, true
	default:
		return nil, false
	}
}

// writeAskError maps pipeline failures onto responses. Blocked queries get a
// safety message, execution failures a generic hint, and provider outages a
// 502 with an optional auto-filed ticket.
func (s *Server) writeAskError(w http.ResponseWriter, r *http.Request, question string, err error) {
	logger := common.Logger()
	switch {
	case errors.Is(err, safety.ErrBlocked):
		logger.Warn("api: question blocked", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   err.Error(),
			"blocked": true,
		})
	case errors.Is(err, assistant.ErrQuery):
		logger.Error("api: query execution failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "the generated query could not be executed; try rephrasing your question or contact support",
		})
	case errors.Is(err, assistant.ErrProvider):
		logger.Error("api: provider failure", "error", err)
		payload := map[string]any{
			"error": "the AI service is unavailable right now; please try again",
		}
		if s.cfg.TicketOnProviderFailure {
			if created, ticketErr := s.tickets.Create(r.Context(), "AI provider failure during question", question); ticketErr != nil {
				logger.Error("api: failed to file provider-failure ticket", "error", ticketErr)
			} else {
				payload["ticket_id"] = created.ID
			}
		}
		writeJSON(w, http.StatusBadGateway, payload)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
