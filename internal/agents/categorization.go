package agents

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/llm"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/prompts"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/taskqueue"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// Scoring thresholds for the priority tiers.
const (
	scoreP0 = 0.7
	scoreP1 = 0.4
)

// CategorizationAgent is the final pipeline stage: it scores the contact
// against the user's goals and assigns a P0/P1/P2 tier. It reads what the
// extraction and summarization stages wrote, so it only runs once both are
// completed.
type CategorizationAgent struct {
	*BaseAgent
	llm      llm.Client
	prompt   *prompts.Config
	persons  store.PersonStore
	meetings store.MeetingStore
	prefs    store.PreferenceStore
}

// NewCategorizationAgent wires the stage. client may be nil.
func NewCategorizationAgent(tasks taskqueue.Store, registry store.AgentStore,
	persons store.PersonStore, meetings store.MeetingStore,
	prefs store.PreferenceStore, client llm.Client) *CategorizationAgent {
	return &CategorizationAgent{
		BaseAgent: newBaseAgent("categorization_agent",
			[]string{"categorization", "scoring"},
			models.AgentCapabilities{
				InputTypes:  []string{"structured_data", "summary"},
				OutputTypes: []string{"priority_group"},
			}, tasks, registry),
		llm:      client,
		prompt:   prompts.MustLoad("categorization.yaml"),
		persons:  persons,
		meetings: meetings,
		prefs:    prefs,
	}
}

// ProcessTask claims and executes a categorization task.
func (a *CategorizationAgent) ProcessTask(ctx context.Context, taskID string) error {
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
	var input models.CategorizationInput
	if err := models.DecodePayload(task.InputData, &input); err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}

	log := logger.New(a.agentType, taskID, input.UserID)
	person, err := a.persons.GetByID(ctx, input.PersonID)
	if err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}
	meeting, err := a.meetings.GetByID(ctx, input.MeetingID)
	if err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}
	prefs, err := a.prefs.Get(ctx, input.UserID)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "PreferenceLoadError"}).
			Warn("could not load user preferences, scoring without context")
		prefs = nil
	}

	output := a.categorize(ctx, person, meeting, prefs, log)

	err = a.persons.UpdateCategorization(ctx, input.PersonID, models.Categorization{
		Score:            output.Score,
		PriorityGroup:    output.PriorityGroup,
		Reasons:          output.Reasons,
		Persona:          output.Persona,
		UrgencyLevel:     output.UrgencyLevel,
		IntentMatchScore: output.IntentMatchScore,
		CategorizedAt:    time.Now().UTC(),
	})
	if err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}
	if err := a.meetings.SetPriority(ctx, input.MeetingID, output.PriorityGroup); err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}

	log.WithPayload(map[string]interface{}{
		"person_id":      input.PersonID,
		"priority_group": output.PriorityGroup,
		"score":          output.Score,
	}).Info("contact categorized")
	return a.completeTask(ctx, taskID, output)
}

func (a *CategorizationAgent) categorize(ctx context.Context, person *models.Person,
	meeting *models.Meeting, prefs *models.UserPreferences, log *logger.Logger) models.CategorizationOutput {
	if a.llm == nil {
		return fallbackCategorization(person)
	}
	reply, err := a.llm.Chat(ctx, &llm.ChatRequest{
		Model:         a.prompt.Model,
		SystemMessage: a.prompt.SystemMessage,
		UserMessage:   a.buildPrompt(person, meeting, prefs),
		Temperature:   a.prompt.Temperature,
		JSONResponse:  true,
	})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "CategorizationError"}).
			Warn("LLM categorization failed, using rule-based fallback")
		return fallbackCategorization(person)
	}
	var out models.CategorizationOutput
	if err := json.Unmarshal([]byte(reply), &out); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "CategorizationError"}).
			Warn("LLM categorization returned invalid JSON, using rule-based fallback")
		return fallbackCategorization(person)
	}
	return normalizeCategorization(out)
}

func (a *CategorizationAgent) buildPrompt(person *models.Person, meeting *models.Meeting,
	prefs *models.UserPreferences) string {
	vars := map[string]string{
		"few_shot_examples": a.prompt.FewShotExamples,
		"name":              person.Name,
		"company":           person.Company,
		"job_title":         person.JobTitle,
		"summary":           meeting.Summary.Text,
		"conversation_text": meeting.RawData.Text,
		"use_case":          models.UseCaseNetworking,
		"user_intent":       "",
		"user_goals":        "",
		"industries":        "",
		"company_sizes":     "",
		"job_titles":        "",
		"custom_criteria":   "",
		"value_indicators":  "",
	}
	if prefs != nil {
		vars["use_case"] = prefs.UseCase
		vars["user_intent"] = prefs.Intent
		vars["user_goals"] = prefs.Goals
		vars["industries"] = strings.Join(prefs.Priorities.Industries, ", ")
		vars["company_sizes"] = strings.Join(prefs.Priorities.CompanySizes, ", ")
		vars["job_titles"] = strings.Join(prefs.Priorities.JobTitles, ", ")
		vars["custom_criteria"] = strings.Join(prefs.ExtractedPreferences.CustomCriteria, ", ")
		vars["value_indicators"] = strings.Join(prefs.ExtractedPreferences.ValueIndicators, ", ")
	}
	return prompts.Format(a.prompt.UserPromptTemplate, vars)
}

// fallbackCategorization is the rule-based scorer: a 0.5 base plus 0.1 for
// each contact field the extraction stage actually resolved. It is
// deterministic and idempotent over the same person document.
func fallbackCategorization(person *models.Person) models.CategorizationOutput {
	score := 0.5
	reasons := []string{"rule-based scoring (no LLM available)"}
	if known(person.Name) {
		score += 0.1
		reasons = append(reasons, "name identified")
	}
	if known(person.Company) {
		score += 0.1
		reasons = append(reasons, "company identified")
	}
	if known(person.JobTitle) {
		score += 0.1
		reasons = append(reasons, "job title identified")
	}
	// The 0.1 increments do not sum exactly in binary floating point;
	// round to two decimals so the stored score is the advertised one.
	score = math.Round(score*100) / 100
	return models.CategorizationOutput{
		PriorityGroup: groupForScore(score),
		Score:         score,
		Reasons:       reasons,
	}
}

func known(field string) bool {
	return field != "" && field != models.UnknownField
}

func groupForScore(score float64) string {
	switch {
	case score >= scoreP0:
		return models.PriorityP0
	case score >= scoreP1:
		return models.PriorityP1
	default:
		return models.PriorityP2
	}
}

// normalizeCategorization clamps the model's score into [0,1] and coerces
// the priority group onto the three known tiers, defaulting to P2.
func normalizeCategorization(out models.CategorizationOutput) models.CategorizationOutput {
	if out.Score < 0 {
		out.Score = 0
	}
	if out.Score > 1 {
		out.Score = 1
	}
	if out.IntentMatchScore < 0 {
		out.IntentMatchScore = 0
	}
	if out.IntentMatchScore > 1 {
		out.IntentMatchScore = 1
	}
	switch out.PriorityGroup {
	case models.PriorityP0, models.PriorityP1, models.PriorityP2:
	default:
		out.PriorityGroup = models.PriorityP2
	}
	if out.Reasons == nil {
		out.Reasons = []string{}
	}
	return out
}
