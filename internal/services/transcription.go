// Package services holds the LLM-backed helpers shared by workers and HTTP
// handlers: audio transcription, photo OCR and onboarding preference
// analysis. Every service degrades gracefully when no LLM client is
// configured.
package services

import (
	"context"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/llm"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/media"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// TranscriptionService converts uploaded audio into text via Whisper.
type TranscriptionService struct {
	llm llm.Client
}

// NewTranscriptionService creates the service. client may be nil, in which
// case Transcribe always returns empty text.
func NewTranscriptionService(client llm.Client) *TranscriptionService {
	return &TranscriptionService{llm: client}
}

// Transcribe returns the transcript of an audio upload, or empty text when
// no LLM client is configured. A provider error is returned to the caller,
// who treats the audio as unprocessed and continues with the written notes.
func (s *TranscriptionService) Transcribe(ctx context.Context, up media.Upload, log *logger.Logger) (string, error) {
	if s.llm == nil {
		log.Warn("transcription skipped: no LLM client configured")
		return "", nil
	}
	text, err := s.llm.Transcribe(ctx, up.Filename, up.Data)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "TranscriptionError"}).
			Error("audio transcription failed")
		return "", err
	}
	log.WithPayload(map[string]interface{}{
		"filename":          up.Filename,
		"transcript_length": len(text),
	}).Info("audio transcribed")
	return text, nil
}
