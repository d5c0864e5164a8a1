// Package agents implements the workflow workers and the orchestrator that
// drives them. Each worker owns one pipeline stage, communicates with the
// others only through the task queue, and carries a deterministic fallback
// for when no LLM client is configured or a provider call fails.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/taskqueue"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// BaseAgent carries the identity and queue plumbing shared by every worker.
// Registration and status reporting go through the agent registry when one
// is wired; both are best-effort bookkeeping and never fail a task.
type BaseAgent struct {
	agentID   string
	agentType string
	tasks     taskqueue.Store
	registry  store.AgentStore
}

func newBaseAgent(agentType string, skills []string, caps models.AgentCapabilities,
	tasks taskqueue.Store, registry store.AgentStore) *BaseAgent {
	a := &BaseAgent{
		agentID:   agentType + "_" + uuid.New().String()[:8],
		agentType: agentType,
		tasks:     tasks,
		registry:  registry,
	}
	a.registerSelf(skills, caps)
	return a
}

// AgentID returns the worker's unique identity used for task claims.
func (a *BaseAgent) AgentID() string {
	return a.agentID
}

func (a *BaseAgent) registerSelf(skills []string, caps models.AgentCapabilities) {
	if a.registry == nil {
		return
	}
	now := time.Now().UTC()
	err := a.registry.Register(context.Background(), &models.AgentRecord{
		AgentID:       a.agentID,
		AgentType:     a.agentType,
		Skills:        skills,
		Capabilities:  caps,
		Status:        models.AgentStatusIdle,
		RegisteredAt:  now,
		LastHeartbeat: now,
	})
	if err != nil {
		logger.New(a.agentType, "", "").
			WithError(models.ErrorInfo{Message: err.Error(), Type: "RegistrationError"}).
			Warn("agent registration failed, continuing unregistered")
	}
}

// setStatus reports the worker's current state to the registry.
func (a *BaseAgent) setStatus(ctx context.Context, status, taskID string) {
	if a.registry == nil {
		return
	}
	if err := a.registry.UpdateStatus(ctx, a.agentID, status, taskID); err != nil {
		logger.New(a.agentType, "", "").
			WithError(models.ErrorInfo{Message: err.Error(), Type: "StatusUpdateError"}).
			Debug("agent status update failed")
	}
}

// claimTask tries to win the task for this worker. Losing the race returns
// (false, nil); the caller simply walks away.
func (a *BaseAgent) claimTask(ctx context.Context, taskID string) (bool, error) {
	won, err := a.tasks.ClaimTask(ctx, taskID, a.agentID)
	if err != nil {
		return false, fmt.Errorf("claim task %s: %w", taskID, err)
	}
	return won, nil
}

// completeTask encodes the typed output and marks the task completed.
func (a *BaseAgent) completeTask(ctx context.Context, taskID string, output interface{}) error {
	payload, err := models.EncodePayload(output)
	if err != nil {
		return err
	}
	return a.tasks.UpdateTask(ctx, taskID, models.TaskStatusCompleted, payload)
}

// failTask marks the task failed with the causing error. Failed is terminal;
// there is no retry path, dependents stay permanently ineligible.
func (a *BaseAgent) failTask(ctx context.Context, taskID string, cause error) {
	payload, err := models.EncodePayload(models.FailureOutput{Error: cause.Error()})
	if err != nil {
		payload = nil
	}
	if err := a.tasks.UpdateTask(ctx, taskID, models.TaskStatusFailed, payload); err != nil {
		logger.New(a.agentType, "", "").
			WithError(models.ErrorInfo{Message: err.Error(), Type: "TaskUpdateError"}).
			Error("failed to mark task failed")
	}
}
