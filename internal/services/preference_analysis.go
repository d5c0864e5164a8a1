package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/llm"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/prompts"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// PreferenceAnalysisService mines the free-form comments from the onboarding
// questionnaire for implicit preferences the structured questions missed.
type PreferenceAnalysisService struct {
	llm    llm.Client
	prompt *prompts.Config
}

// NewPreferenceAnalysisService creates the service. client may be nil, in
// which case Analyze uses a keyword scan instead of the LLM.
func NewPreferenceAnalysisService(client llm.Client) *PreferenceAnalysisService {
	return &PreferenceAnalysisService{
		llm:    client,
		prompt: prompts.MustLoad("preference_analysis.yaml"),
	}
}

// Analyze extracts implicit preferences from onboarding comments. Empty
// comments produce empty preferences. LLM failures fall back to the keyword
// scan, so onboarding never fails on a provider outage.
func (s *PreferenceAnalysisService) Analyze(ctx context.Context, comments string, log *logger.Logger) models.ExtractedPreferences {
	comments = strings.TrimSpace(comments)
	if comments == "" {
		return models.ExtractedPreferences{}
	}
	if s.llm == nil {
		return keywordPreferences(comments)
	}

	reply, err := s.llm.Chat(ctx, &llm.ChatRequest{
		Model:         s.prompt.Model,
		SystemMessage: s.prompt.SystemMessage,
		UserMessage:   prompts.Format(s.prompt.UserPromptTemplate, map[string]string{"comments": comments}),
		Temperature:   s.prompt.Temperature,
		JSONResponse:  true,
	})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "PreferenceAnalysisError"}).
			Warn("preference analysis failed, using keyword fallback")
		return keywordPreferences(comments)
	}

	var prefs models.ExtractedPreferences
	if err := json.Unmarshal([]byte(reply), &prefs); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "PreferenceAnalysisError"}).
			Warn("preference analysis returned invalid JSON, using keyword fallback")
		return keywordPreferences(comments)
	}
	return prefs
}

// keywordPreferences is the deterministic fallback: a small keyword scan
// covering the signals users mention most often in comments.
func keywordPreferences(comments string) models.ExtractedPreferences {
	lower := strings.ToLower(comments)
	var prefs models.ExtractedPreferences
	if strings.Contains(lower, "funding") {
		prefs.ValueIndicators = append(prefs.ValueIndicators, "Funding stage mentioned")
	}
	if strings.Contains(lower, "remote") {
		prefs.CustomCriteria = append(prefs.CustomCriteria, "Remote work culture")
	}
	return prefs
}
