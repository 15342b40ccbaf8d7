package api

import (
	"fmt"
	"net/http"

	"datalens/internal/common"
)

func (s *Server) handleFilmsAsk(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("api: films ask decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question required"))
		return
	}
	answer, err := s.films.Ask(r.Context(), req.Question)
	if err != nil {
		s.writeAskError(w, r, req.Question, err)
		return
	}
	writeJSON(w, http.StatusOK, filmsAskResponse{
		Question:  answer.Question,
		SQL:       answer.SQL,
		Columns:   answer.Result.Columns,
		Rows:      answer.Result.Rows,
		RowCount:  answer.Result.RowCount,
		Truncated: answer.Result.Truncated,
	})
}

func (s *Server) handleExplorerAsk(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("api: explorer ask decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question required"))
		return
	}
	answer, err := s.explorer.Ask(r.Context(), req.Question)
	if err != nil {
		s.writeAskError(w, r, req.Question, err)
		return
	}
	writeJSON(w, http.StatusOK, explorerAskResponse{Answer: answer.Answer, Tools: answer.Tools})
}
