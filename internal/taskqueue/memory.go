package taskqueue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore is an in-memory implementation of Store with the same
// eligibility, ordering and claim semantics as MongoStore. It backs unit
// tests and local development without a MongoDB instance.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*memoryTask
	seq   int64
}

// memoryTask carries an insertion sequence so that FIFO ordering among
// equal-priority tasks stays deterministic even when created_at collides.
type memoryTask struct {
	task *models.Task
	seq  int64
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*memoryTask)}
}

// CreateTask inserts a new task in pending state.
func (s *MemoryStore) CreateTask(_ context.Context, taskType models.TaskType, input bson.M, dependsOn []string, priority int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	task := &models.Task{
		TaskID:          uuid.New().String(),
		TaskType:        taskType,
		Status:          models.TaskStatusPending,
		AssignedAgentID: "",
		InputData:       input,
		OutputData:      bson.M{},
		DependsOn:       append([]string{}, dependsOn...),
		Priority:        priority,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.seq++
	s.tasks[task.TaskID] = &memoryTask{task: task, seq: s.seq}
	return task.TaskID, nil
}

// GetTask retrieves a copy of the task with the given ID.
func (s *MemoryStore) GetTask(_ context.Context, taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return copyTask(mt.task), nil
}

// GetAvailableTask returns the highest-priority, earliest-created eligible
// task, skipping tasks with unsatisfied dependencies.
func (s *MemoryStore) GetAvailableTask(_ context.Context, taskType models.TaskType) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*memoryTask
	for _, mt := range s.tasks {
		t := mt.task
		if t.Status != models.TaskStatusPending || t.AssignedAgentID != "" {
			continue
		}
		if taskType != AnyType && t.TaskType != taskType {
			continue
		}
		candidates = append(candidates, mt)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.task.Priority != b.task.Priority {
			return a.task.Priority > b.task.Priority
		}
		return a.seq < b.seq
	})

	for _, mt := range candidates {
		if s.dependenciesCompleted(mt.task.DependsOn) {
			return copyTask(mt.task), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) dependenciesCompleted(dependsOn []string) bool {
	for _, dep := range dependsOn {
		mt, ok := s.tasks[dep]
		if !ok || mt.task.Status != models.TaskStatusCompleted {
			return false
		}
	}
	return true
}

// ClaimTask transitions pending/unassigned → assigned/agentID under the
// store lock; at most one concurrent caller observes the pending state.
func (s *MemoryStore) ClaimTask(_ context.Context, taskID, agentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tasks[taskID]
	if !ok {
		return false, nil
	}
	t := mt.task
	if t.Status != models.TaskStatusPending || t.AssignedAgentID != "" {
		return false, nil
	}
	t.Status = models.TaskStatusAssigned
	t.AssignedAgentID = agentID
	t.UpdatedAt = time.Now()
	return true, nil
}

// UpdateTask sets the task status and output payload.
func (s *MemoryStore) UpdateTask(_ context.Context, taskID string, status models.TaskStatus, output bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mt, ok := s.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	mt.task.Status = status
	if output != nil {
		mt.task.OutputData = output
	}
	mt.task.UpdatedAt = time.Now()
	return nil
}

func copyTask(t *models.Task) *models.Task {
	dup := *t
	dup.DependsOn = append([]string{}, t.DependsOn...)
	if t.InputData != nil {
		dup.InputData = bson.M{}
		for k, v := range t.InputData {
			dup.InputData[k] = v
		}
	}
	if t.OutputData != nil {
		dup.OutputData = bson.M{}
		for k, v := range t.OutputData {
			dup.OutputData[k] = v
		}
	}
	return &dup
}
