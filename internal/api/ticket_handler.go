package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"datalens/internal/common"
)

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req createTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("api: ticket decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Issue) == "" {
		req.Issue = "User requested assistance"
	}
	created, err := s.tickets.Create(r.Context(), req.Issue, req.Question)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"ticket_id": created.ID,
		"status":    created.Status,
		"message":   "Your support ticket has been created and logged for review.",
	})
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	tickets, err := s.tickets.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": tickets})
}
