package taskqueue

import (
	"context"
	"errors"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrTaskNotFound is returned when a task ID does not resolve to a document.
var ErrTaskNotFound = errors.New("task not found")

// AnyType matches tasks of every type in GetAvailableTask.
const AnyType models.TaskType = ""

// Store defines the persistence contract for schedulable tasks. It is the
// only shared mutable state crossing worker boundaries; every mutation goes
// through CreateTask, ClaimTask or UpdateTask.
//
// Dependency IDs in CreateTask are not validated against existing tasks.
// A dependency that never reaches completed status keeps the dependent task
// permanently ineligible; GetAvailableTask skips it and moves on.
type Store interface {
	// CreateTask inserts a new pending, unassigned task and returns its ID.
	CreateTask(ctx context.Context, taskType models.TaskType, input bson.M, dependsOn []string, priority int) (string, error)

	// GetTask returns the task with the given ID, or ErrTaskNotFound.
	GetTask(ctx context.Context, taskID string) (*models.Task, error)

	// GetAvailableTask returns the highest-priority, earliest-created pending
	// unassigned task whose dependencies are all completed, optionally
	// filtered by task type (AnyType disables the filter). Tasks with
	// unsatisfied dependencies are skipped, not blocking. Returns (nil, nil)
	// when no task is eligible.
	GetAvailableTask(ctx context.Context, taskType models.TaskType) (*models.Task, error)

	// ClaimTask atomically transitions taskID from pending/unassigned to
	// assigned/agentID. It reports whether the caller won the claim; losing
	// a claim race is not an error. At most one concurrent caller wins.
	ClaimTask(ctx context.Context, taskID, agentID string) (bool, error)

	// UpdateTask sets the task status, merges the output payload when
	// non-nil, and bumps updated_at.
	UpdateTask(ctx context.Context, taskID string, status models.TaskStatus, output bson.M) error
}
