package services

import (
	"context"
	"strings"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/llm"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/media"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/prompts"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// OCRService extracts text from photos (business cards, badges, slides)
// through a vision model.
type OCRService struct {
	llm    llm.Client
	prompt *prompts.Config
}

// NewOCRService creates the service. client may be nil, in which case
// ExtractText always returns empty text.
func NewOCRService(client llm.Client) *OCRService {
	return &OCRService{
		llm:    client,
		prompt: prompts.MustLoad("ocr.yaml"),
	}
}

// ExtractText returns the readable text found in an image upload. The
// content type is sniffed from the bytes when the request did not declare
// one. An empty result is not an error: not every photo carries text.
func (s *OCRService) ExtractText(ctx context.Context, up media.Upload, log *logger.Logger) (string, error) {
	if s.llm == nil {
		log.Warn("OCR skipped: no LLM client configured")
		return "", nil
	}
	text, err := s.llm.ExtractImageText(ctx, &llm.VisionRequest{
		Model:     s.prompt.Model,
		Prompt:    s.prompt.TextPrompt,
		MIMEType:  media.DetectContentType(up.ContentType, up.Data),
		Data:      up.Data,
		MaxTokens: s.prompt.MaxTokens,
	})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "OCRError"}).
			Error("image text extraction failed")
		return "", err
	}
	text = strings.TrimSpace(text)
	log.WithPayload(map[string]interface{}{
		"filename":    up.Filename,
		"text_length": len(text),
	}).Info("image text extracted")
	return text, nil
}
