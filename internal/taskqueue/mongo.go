package taskqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the MongoDB implementation of Store.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a task store over the given collection.
func NewMongoStore(db *mongo.Database, collectionName string) *MongoStore {
	return &MongoStore{
		collection: db.Collection(collectionName),
	}
}

// CreateTask inserts a new task in pending state.
func (s *MongoStore) CreateTask(ctx context.Context, taskType models.TaskType, input bson.M, dependsOn []string, priority int) (string, error) {
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
	if _, err := s.collection.InsertOne(ctx, task); err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return task.TaskID, nil
}

// GetTask retrieves a task by its ID.
func (s *MongoStore) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	err := s.collection.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// GetAvailableTask scans pending unassigned tasks in priority order
// (priority desc, created_at asc) and returns the first one whose
// dependencies are all completed.
func (s *MongoStore) GetAvailableTask(ctx context.Context, taskType models.TaskType) (*models.Task, error) {
	filter := bson.M{
		"status":            models.TaskStatusPending,
		"assigned_agent_id": "",
	}
	if taskType != AnyType {
		filter["task_type"] = taskType
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "priority", Value: -1},
		{Key: "created_at", Value: 1},
	})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query available tasks: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var task models.Task
		if err := cursor.Decode(&task); err != nil {
			return nil, err
		}
		ok, err := s.dependenciesCompleted(ctx, task.DependsOn)
		if err != nil {
			return nil, err
		}
		if ok {
			return &task, nil
		}
		// Unsatisfied dependencies: skip, keep scanning.
	}
	return nil, cursor.Err()
}

// dependenciesCompleted reports whether every listed dependency task exists
// and has completed. A missing dependency document counts as unsatisfied.
func (s *MongoStore) dependenciesCompleted(ctx context.Context, dependsOn []string) (bool, error) {
	if len(dependsOn) == 0 {
		return true, nil
	}
	n, err := s.collection.CountDocuments(ctx, bson.M{
		"task_id": bson.M{"$in": dependsOn},
		"status":  models.TaskStatusCompleted,
	})
	if err != nil {
		return false, fmt.Errorf("count completed dependencies: %w", err)
	}
	return n == int64(len(dependsOn)), nil
}

// ClaimTask performs the single conditional write that makes claiming
// linearizable per task: the update matches only while the task is still
// pending and unassigned, so concurrent claimers produce at most one
// modified document.
func (s *MongoStore) ClaimTask(ctx context.Context, taskID, agentID string) (bool, error) {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{
			"task_id":           taskID,
			"status":            models.TaskStatusPending,
			"assigned_agent_id": "",
		},
		bson.M{
			"$set": bson.M{
				"status":            models.TaskStatusAssigned,
				"assigned_agent_id": agentID,
				"updated_at":        time.Now(),
			},
		},
	)
	if err != nil {
		return false, fmt.Errorf("claim task %s: %w", taskID, err)
	}
	return res.ModifiedCount == 1, nil
}

// UpdateTask sets the task status and output payload.
func (s *MongoStore) UpdateTask(ctx context.Context, taskID string, status models.TaskStatus, output bson.M) error {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if output != nil {
		set["output_data"] = output
	}
	res, err := s.collection.UpdateOne(ctx, bson.M{"task_id": taskID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	if res.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}
