package api

import (
	"fmt"
	"net/http"
	"strings"

	"datalens/internal/assistant"
	"datalens/internal/common"
)

func (s *Server) handleFilmsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.filmsData.FilmsStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExplorerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.healthData.HealthStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("dataset"))
	store, ok := s.datasetByName(name)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown dataset %q", name))
		return
	}
	schema, err := store.Schema(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Dataset: name, Schema: schema})
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("dataset"))
	var questions []string
	switch name {
	case "films":
		questions = assistant.FilmsSampleQuestions
	case "health":
		questions = assistant.HealthSampleQuestions
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown dataset %q", name))
		return
	}
	writeJSON(w, http.StatusOK, samplesResponse{Dataset: name, Questions: questions})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": common.LogEntries()})
}
