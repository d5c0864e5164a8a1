package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/llm"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/prompts"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/taskqueue"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// fallbackSummaryLimit bounds the truncation fallback when no LLM is
// available: the first 200 characters of the unified text plus an ellipsis.
const fallbackSummaryLimit = 200

// focusAreasByUseCase steers the summary toward what the user cares about.
var focusAreasByUseCase = map[string][]string{
	models.UseCaseNetworking:     {"shared interests", "follow-up opportunities", "mutual connections"},
	models.UseCaseSales:          {"pain points", "budget signals", "decision authority", "timeline"},
	models.UseCaseJobHunting:     {"open roles", "hiring signals", "referral opportunities"},
	models.UseCaseLeadGeneration: {"company needs", "buying intent", "growth signals"},
}

// SummarizationAgent condenses the unified meeting text into a short summary
// stored on the meeting document. The user's onboarding preferences steer the
// focus areas; without an LLM the summary is a plain truncation.
type SummarizationAgent struct {
	*BaseAgent
	llm      llm.Client
	prompt   *prompts.Config
	meetings store.MeetingStore
	persons  store.PersonStore
	prefs    store.PreferenceStore
}

// NewSummarizationAgent wires the stage. client may be nil.
func NewSummarizationAgent(tasks taskqueue.Store, registry store.AgentStore,
	meetings store.MeetingStore, persons store.PersonStore,
	prefs store.PreferenceStore, client llm.Client) *SummarizationAgent {
	return &SummarizationAgent{
		BaseAgent: newBaseAgent("summarization_agent",
			[]string{"summarization"},
			models.AgentCapabilities{
				InputTypes:  []string{"unified_text"},
				OutputTypes: []string{"summary"},
			}, tasks, registry),
		llm:      client,
		prompt:   prompts.MustLoad("summarization.yaml"),
		meetings: meetings,
		persons:  persons,
		prefs:    prefs,
	}
}

// ProcessTask claims and executes a summarization task.
func (a *SummarizationAgent) ProcessTask(ctx context.Context, taskID string) error {
	won, err := a.claimTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	a.setStatus(ctx, models.AgentStatusBusy, taskID)
	defer a.setStatus(ctx, models.AgentStatusIdle, "")

	task, err := a.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	var input models.SummarizationInput
	if err := models.DecodePayload(task.InputData, &input); err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}

	log := logger.New(a.agentType, taskID, input.UserID)
	focusAreas := a.focusAreas(ctx, input.UserID)
	personInfo := a.personInfo(ctx, input.MeetingID)
	summary := a.summarize(ctx, input.UnifiedText, personInfo, focusAreas, log)

	err = a.meetings.UpdateSummary(ctx, input.MeetingID, models.Summary{
		Text:      summary,
		KeyPoints: focusAreas,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}
	log.WithPayload(map[string]interface{}{
		"meeting_id":     input.MeetingID,
		"summary_length": len(summary),
	}).Info("meeting summarized")
	return a.completeTask(ctx, taskID, models.SummarizationOutput{Summary: summary})
}

// focusAreas derives the summary focus from the user's onboarding answers.
// Users without preferences get the networking defaults; up to three custom
// criteria are appended as explicit mention checks.
func (a *SummarizationAgent) focusAreas(ctx context.Context, userID string) []string {
	areas := focusAreasByUseCase[models.UseCaseNetworking]
	prefs, err := a.prefs.Get(ctx, userID)
	if err != nil || prefs == nil {
		return areas
	}
	if byCase, ok := focusAreasByUseCase[prefs.UseCase]; ok {
		areas = byCase
	}
	custom := prefs.ExtractedPreferences.CustomCriteria
	if len(custom) > 3 {
		custom = custom[:3]
	}
	for _, crit := range custom {
		areas = append(areas, "mentions of: "+crit)
	}
	return areas
}

// personInfo names the contact in the prompt when extraction already ran
// and resolved the name. The stages race, so an empty result is common.
func (a *SummarizationAgent) personInfo(ctx context.Context, meetingID string) string {
	meeting, err := a.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return ""
	}
	person, err := a.persons.GetByID(ctx, meeting.PersonID)
	if err != nil || !known(person.Name) {
		return ""
	}
	info := "The conversation was with " + person.Name
	if known(person.JobTitle) {
		info += ", " + person.JobTitle
	}
	if known(person.Company) {
		info += " at " + person.Company
	}
	return info + ".\n"
}

// summarize calls the LLM, degrading to truncation when no client is
// configured or the call fails.
func (a *SummarizationAgent) summarize(ctx context.Context, text, personInfo string, focusAreas []string, log *logger.Logger) string {
	if a.llm == nil {
		return truncateSummary(text)
	}
	reply, err := a.llm.Chat(ctx, &llm.ChatRequest{
		Model:         a.prompt.Model,
		SystemMessage: a.prompt.SystemMessage,
		UserMessage: prompts.Format(a.prompt.UserPromptTemplate, map[string]string{
			"person_info":     personInfo,
			"use_case_note":   "",
			"extracted_note":  "",
			"focus_areas_str": strings.Join(focusAreas, ", "),
			"text":            text,
		}),
		Temperature: a.prompt.Temperature,
	})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "SummarizationError"}).
			Warn("LLM summarization failed, using truncation fallback")
		return truncateSummary(text)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return truncateSummary(text)
	}
	return reply
}

// truncateSummary is the deterministic fallback: the first 200 characters of
// the unified text with an ellipsis when it was cut.
func truncateSummary(text string) string {
	if len(text) <= fallbackSummaryLimit {
		return text
	}
	return fmt.Sprintf("%s...", text[:fallbackSummaryLimit])
}
