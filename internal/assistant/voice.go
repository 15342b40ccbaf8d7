package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"datalens/internal/common"
	"datalens/internal/llm"
)

// Studio turns a spoken prompt into an image: the audio is transcribed, and
// the transcript is passed verbatim as the generation prompt.
type Studio struct {
	provider llm.Provider
}

// VoiceArt is the studio output: what was heard and where the image lives.
type VoiceArt struct {
	Transcript string `json:"transcript"`
	Image      string `json:"image"`
}

func NewStudio(provider llm.Provider) *Studio {
	return &Studio{provider: provider}
}

// Generate transcribes the audio and generates an image from the transcript.
func (s *Studio) Generate(ctx context.Context, filename string, audio io.Reader) (*VoiceArt, error) {
	logger := common.Logger()
	if audio == nil {
		return nil, errors.New("audio required")
	}
	transcript, err := s.provider.Transcribe(ctx, filename, audio)
	if err != nil {
		logger.Error("assistant: transcription failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, errors.New("transcription returned no text")
	}
	logger.Info("assistant: audio transcribed", "chars", len(transcript))

	image, err := s.provider.GenerateImage(ctx, transcript)
	if err != nil {
		logger.Error("assistant: image generation failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return &VoiceArt{Transcript: transcript, Image: image}, nil
}
