package api

import (
	"fmt"
	"net/http"

	"datalens/internal/common"
)

// handleVoiceImage accepts a multipart audio upload under the "audio" field,
// transcribes it, and generates an image from the transcript.
func (s *Server) handleVoiceImage(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		logger.Warn("api: voice upload parse failed", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("audio file required"))
		return
	}
	defer file.Close()

	logger.Info("api: voice upload received", "filename", header.Filename, "size", header.Size)
	art, err := s.studio.Generate(r.Context(), header.Filename, file)
	if err != nil {
		s.writeAskError(w, r, "voice prompt: "+header.Filename, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}
