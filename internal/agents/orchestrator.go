package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/media"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/taskqueue"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// Stage priorities. Higher runs first when several tasks are eligible.
const (
	prioDataCollection = 10
	prioExtraction     = 9
	prioSummarization  = 8
	prioCategorization = 7
)

// MeetingRequest is one meeting submission entering the pipeline.
type MeetingRequest struct {
	UserID      string
	MeetingText string
	Location    string
	Audio       *media.Upload
	Photos      []media.Upload
}

// PipelineResult is what the orchestrator hands back to the HTTP layer.
// Status is "completed", or "degraded" when the categorization gate timed
// out and the contact was parked in P2.
type PipelineResult struct {
	WorkflowID    string   `json:"workflow_id"`
	PersonID      string   `json:"person_id"`
	MeetingID     string   `json:"meeting_id"`
	Summary       string   `json:"summary"`
	PriorityGroup string   `json:"priority_group"`
	Score         float64  `json:"score"`
	Reasons       []string `json:"reasons"`
	Status        string   `json:"status"`
}

// Orchestrator coordinates one meeting through the four-stage pipeline. It
// owns the task graph: data collection first, extraction and summarization
// in parallel behind it, categorization gated on both. Workers never talk to
// each other; every hand-off goes through the task queue.
type Orchestrator struct {
	*BaseAgent
	dataCollection *DataCollectionAgent
	extraction     *ExtractionAgent
	summarization  *SummarizationAgent
	categorization *CategorizationAgent
	persons        store.PersonStore
	meetings       store.MeetingStore

	gateTimeout  time.Duration
	pollInterval time.Duration
}

// NewOrchestrator wires the coordinator. gateTimeout bounds how long the
// categorization stage waits for its dependencies; pollInterval is the
// completion check cadence.
func NewOrchestrator(tasks taskqueue.Store, registry store.AgentStore,
	dataCollection *DataCollectionAgent, extraction *ExtractionAgent,
	summarization *SummarizationAgent, categorization *CategorizationAgent,
	persons store.PersonStore, meetings store.MeetingStore,
	gateTimeout, pollInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		BaseAgent: newBaseAgent("orchestrator",
			[]string{"coordination", "workflow_management"},
			models.AgentCapabilities{
				InputTypes:  []string{"meeting_submission"},
				OutputTypes: []string{"pipeline_result"},
			}, tasks, registry),
		dataCollection: dataCollection,
		extraction:     extraction,
		summarization:  summarization,
		categorization: categorization,
		persons:        persons,
		meetings:       meetings,
		gateTimeout:    gateTimeout,
		pollInterval:   pollInterval,
	}
}

// ProcessMeeting runs the full pipeline for one submission and blocks until
// the result is ready or degraded. Only a data collection failure aborts the
// workflow; later stage failures degrade the result instead.
func (o *Orchestrator) ProcessMeeting(ctx context.Context, req MeetingRequest) (*PipelineResult, error) {
	workflowID := uuid.New().String()
	log := logger.New("orchestrator", workflowID, req.UserID)
	log.WithPayload(map[string]interface{}{
		"text_length": len(req.MeetingText),
		"has_audio":   req.Audio != nil,
		"photo_count": len(req.Photos),
	}).Info("workflow started")

	collectionID, collected, err := o.runDataCollection(ctx, req)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "WorkflowError"}).
			Error("data collection failed, aborting workflow")
		return nil, fmt.Errorf("data collection: %w", err)
	}

	extractionID, summarizationID, err := o.runMiddleStages(ctx, collectionID, collected, log)
	if err != nil {
		return nil, err
	}

	categorizationID, err := o.createTask(ctx, models.TaskTypeCategorization,
		models.CategorizationInput{
			PersonID:  collected.PersonID,
			MeetingID: collected.MeetingID,
			UserID:    collected.UserID,
		}, []string{extractionID, summarizationID}, prioCategorization)
	if err != nil {
		return nil, err
	}

	result := &PipelineResult{
		WorkflowID: workflowID,
		PersonID:   collected.PersonID,
		MeetingID:  collected.MeetingID,
	}

	ready, err := o.waitForCompletion(ctx, []string{extractionID, summarizationID})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "StoreError"}).
			Error("task store failed during gate wait")
		return nil, fmt.Errorf("gate wait: %w", err)
	}
	if !ready {
		log.Warn("categorization gate timed out, degrading to P2")
		return o.degrade(ctx, result, log)
	}

	catOutput, err := o.runCategorization(ctx, categorizationID)
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "CategorizationError"}).
			Warn("categorization failed, degrading to P2")
		return o.degrade(ctx, result, log)
	}

	result.PriorityGroup = catOutput.PriorityGroup
	result.Score = catOutput.Score
	result.Reasons = catOutput.Reasons
	result.Status = "completed"
	if meeting, err := o.meetings.GetByID(ctx, collected.MeetingID); err == nil {
		result.Summary = meeting.Summary.Text
	}

	log.WithPayload(map[string]interface{}{
		"priority_group": result.PriorityGroup,
		"score":          result.Score,
	}).Info("workflow completed")
	return result, nil
}

func (o *Orchestrator) runDataCollection(ctx context.Context, req MeetingRequest) (string, *models.DataCollectionOutput, error) {
	taskID, err := o.createTask(ctx, models.TaskTypeDataCollection,
		models.DataCollectionInput{
			MeetingText: req.MeetingText,
			Location:    req.Location,
			UserID:      req.UserID,
		}, nil, prioDataCollection)
	if err != nil {
		return "", nil, err
	}
	if err := o.dataCollection.ProcessTask(ctx, taskID, req.Audio, req.Photos); err != nil {
		return "", nil, err
	}
	task, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		return "", nil, err
	}
	if task.Status != models.TaskStatusCompleted {
		return "", nil, fmt.Errorf("data collection task %s ended in status %s", taskID, task.Status)
	}
	var output models.DataCollectionOutput
	if err := models.DecodePayload(task.OutputData, &output); err != nil {
		return "", nil, err
	}
	return taskID, &output, nil
}

// runMiddleStages creates the extraction and summarization tasks and
// dispatches eligible work to both workers concurrently. A stage failure is
// not fatal here: the categorization gate observes the missing completion
// and degrades.
func (o *Orchestrator) runMiddleStages(ctx context.Context, collectionID string,
	collected *models.DataCollectionOutput, log *logger.Logger) (extractionID, summarizationID string, err error) {
	extractionID, err = o.createTask(ctx, models.TaskTypeExtraction,
		models.ExtractionInput{
			UnifiedText: collected.UnifiedText,
			PersonID:    collected.PersonID,
		}, []string{collectionID}, prioExtraction)
	if err != nil {
		return "", "", err
	}
	summarizationID, err = o.createTask(ctx, models.TaskTypeSummarization,
		models.SummarizationInput{
			UnifiedText: collected.UnifiedText,
			MeetingID:   collected.MeetingID,
			UserID:      collected.UserID,
		}, []string{collectionID}, prioSummarization)
	if err != nil {
		return "", "", err
	}

	// Pull eligible work in scheduling order: extraction outranks
	// summarization, so it is dispatched first. A stage failure degrades
	// later; a store failure is fatal for the workflow.
	for i := 0; i < 2; i++ {
		task, err := o.tasks.GetAvailableTask(ctx, taskqueue.AnyType)
		if err != nil {
			return "", "", fmt.Errorf("next available task: %w", err)
		}
		if task == nil {
			break
		}
		if err := o.dispatch(ctx, task); err != nil {
			log.WithError(models.ErrorInfo{Message: err.Error(), Type: "StageError"}).
				WithPayload(map[string]interface{}{"task_type": string(task.TaskType)}).
				Warn("pipeline stage failed")
		}
	}
	return extractionID, summarizationID, nil
}

// dispatch routes a claimed-able task to the worker owning its type.
func (o *Orchestrator) dispatch(ctx context.Context, task *models.Task) error {
	switch task.TaskType {
	case models.TaskTypeExtraction:
		return o.extraction.ProcessTask(ctx, task.TaskID)
	case models.TaskTypeSummarization:
		return o.summarization.ProcessTask(ctx, task.TaskID)
	case models.TaskTypeCategorization:
		return o.categorization.ProcessTask(ctx, task.TaskID)
	default:
		return fmt.Errorf("no worker for task type %s", task.TaskType)
	}
}

func (o *Orchestrator) runCategorization(ctx context.Context, taskID string) (*models.CategorizationOutput, error) {
	if err := o.categorization.ProcessTask(ctx, taskID); err != nil {
		return nil, err
	}
	task, err := o.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusCompleted {
		return nil, fmt.Errorf("categorization task %s ended in status %s", taskID, task.Status)
	}
	var output models.CategorizationOutput
	if err := models.DecodePayload(task.OutputData, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// waitForCompletion polls until every listed task is completed, the gate
// timeout elapses, or the request context is cancelled. A task in the failed
// state can never complete, so the wait ends as soon as one is observed.
// A store error aborts the wait: only a true timeout may degrade, store
// unavailability is fatal for the workflow.
func (o *Orchestrator) waitForCompletion(ctx context.Context, taskIDs []string) (bool, error) {
	deadline := time.NewTimer(o.gateTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		done, failed, err := o.completionState(ctx, taskIDs)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if failed {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, nil
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) completionState(ctx context.Context, taskIDs []string) (allCompleted, anyFailed bool, err error) {
	allCompleted = true
	for _, id := range taskIDs {
		task, err := o.tasks.GetTask(ctx, id)
		if err != nil {
			return false, false, fmt.Errorf("poll task %s: %w", id, err)
		}
		if task.Status == models.TaskStatusFailed {
			return false, true, nil
		}
		if task.Status != models.TaskStatusCompleted {
			allCompleted = false
		}
	}
	return allCompleted, false, nil
}

// degrade parks the contact in P2 so it still shows up in the user's groups
// instead of hanging in processing forever.
func (o *Orchestrator) degrade(ctx context.Context, result *PipelineResult, log *logger.Logger) (*PipelineResult, error) {
	reasons := []string{"processing incomplete, parked in lowest tier"}
	err := o.persons.UpdateCategorization(ctx, result.PersonID, models.Categorization{
		Score:         0,
		PriorityGroup: models.PriorityP2,
		Reasons:       reasons,
		CategorizedAt: time.Now().UTC(),
	})
	if err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "DegradeError"}).
			Error("could not record degraded categorization")
	}
	if err := o.meetings.SetPriority(ctx, result.MeetingID, models.PriorityP2); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "DegradeError"}).
			Error("could not set degraded meeting priority")
	}
	if meeting, err := o.meetings.GetByID(ctx, result.MeetingID); err == nil {
		result.Summary = meeting.Summary.Text
	}
	result.PriorityGroup = models.PriorityP2
	result.Score = 0
	result.Reasons = reasons
	result.Status = "degraded"
	return result, nil
}

func (o *Orchestrator) createTask(ctx context.Context, taskType models.TaskType,
	input interface{}, dependsOn []string, priority int) (string, error) {
	payload, err := models.EncodePayload(input)
	if err != nil {
		return "", err
	}
	taskID, err := o.tasks.CreateTask(ctx, taskType, payload, dependsOn, priority)
	if err != nil {
		return "", fmt.Errorf("create %s task: %w", taskType, err)
	}
	return taskID, nil
}
