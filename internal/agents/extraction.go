package agents

import (
	"context"
	"encoding/json"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/llm"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/prompts"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/taskqueue"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// ExtractionAgent pulls structured contact fields (name, company, job title,
// contact details) out of the unified meeting text and writes them onto the
// person document. Without an LLM every field degrades to "Unknown".
type ExtractionAgent struct {
	*BaseAgent
	llm     llm.Client
	prompt  *prompts.Config
	persons store.PersonStore
}

// NewExtractionAgent wires the stage. client may be nil.
func NewExtractionAgent(tasks taskqueue.Store, registry store.AgentStore,
	persons store.PersonStore, client llm.Client) *ExtractionAgent {
	return &ExtractionAgent{
		BaseAgent: newBaseAgent("extraction_agent",
			[]string{"extraction", "entity_recognition"},
			models.AgentCapabilities{
				InputTypes:  []string{"unified_text"},
				OutputTypes: []string{"structured_data"},
			}, tasks, registry),
		llm:     client,
		prompt:  prompts.MustLoad("extraction.yaml"),
		persons: persons,
	}
}

// ProcessTask claims and executes an extraction task.
func (a *ExtractionAgent) ProcessTask(ctx context.Context, taskID string) error {
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
	var input models.ExtractionInput
	if err := models.DecodePayload(task.InputData, &input); err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}

	log := logger.New(a.agentType, taskID, "")
	output := a.extract(ctx, input.UnifiedText, log)

	if err := a.persons.UpdateExtraction(ctx, input.PersonID, output); err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}
	log.WithPayload(map[string]interface{}{
		"person_id": input.PersonID,
		"name":      output.Name,
		"company":   output.Company,
	}).Info("contact data extracted")
	return a.completeTask(ctx, taskID, output)
}

// extract runs the LLM extraction, falling back to all-Unknown fields when
// no client is configured or the call fails.
func (a *ExtractionAgent) extract(ctx context.Context, text string, log *logger.Logger) models.ExtractionOutput {
	if a.llm == nil {
		return fallbackExtraction()
	}
	reply, err := a.llm.Chat(ctx, &llm.ChatRequest{
		Model:         a.prompt.Model,
		SystemMessage: a.prompt.SystemMessage,
		UserMessage:   prompts.Format(a.prompt.UserPromptTemplate, map[string]string{"text": text}),
		Temperature:   a.prompt.Temperature,
		JSONResponse:  true,
	})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "ExtractionError"}).
			Warn("LLM extraction failed, using fallback")
		return fallbackExtraction()
	}
	var out models.ExtractionOutput
	if err := json.Unmarshal([]byte(reply), &out); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "ExtractionError"}).
			Warn("LLM extraction returned invalid JSON, using fallback")
		return fallbackExtraction()
	}
	return normalizeExtraction(out)
}

func fallbackExtraction() models.ExtractionOutput {
	return models.ExtractionOutput{
		Name:        models.UnknownField,
		Company:     models.UnknownField,
		JobTitle:    models.UnknownField,
		ContactInfo: map[string]string{},
	}
}

// normalizeExtraction fills blanks the model left empty so downstream stages
// can rely on the Unknown sentinel instead of checking for "".
func normalizeExtraction(out models.ExtractionOutput) models.ExtractionOutput {
	if out.Name == "" {
		out.Name = models.UnknownField
	}
	if out.Company == "" {
		out.Company = models.UnknownField
	}
	if out.JobTitle == "" {
		out.JobTitle = models.UnknownField
	}
	if out.ContactInfo == nil {
		out.ContactInfo = map[string]string{}
	}
	return out
}
