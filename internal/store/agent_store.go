package store

import (
	"context"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AgentStore defines the registry for worker agents: registration at
// construction, heartbeat/status updates around each unit of work, and
// skill-based discovery.
type AgentStore interface {
	Register(ctx context.Context, agent *models.AgentRecord) error
	// UpdateStatus sets the agent's status and heartbeat. taskID updates
	// current_task_id; pass "" to clear it.
	UpdateStatus(ctx context.Context, agentID, status, taskID string) error
	// FindBySkills returns agents matching any of the required skills,
	// filtered by status.
	FindBySkills(ctx context.Context, skills []string, status string) ([]models.AgentRecord, error)
}

// MongoAgentStore is the MongoDB implementation of AgentStore.
type MongoAgentStore struct {
	collection *mongo.Collection
}

// NewMongoAgentStore creates an agent registry over the "agents" collection.
func NewMongoAgentStore(db *mongo.Database) *MongoAgentStore {
	return &MongoAgentStore{collection: db.Collection("agents")}
}

// Register upserts the agent's registration record.
func (s *MongoAgentStore) Register(ctx context.Context, agent *models.AgentRecord) error {
	now := time.Now()
	agent.RegisteredAt = now
	agent.LastHeartbeat = now
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"agent_id": agent.AgentID},
		bson.M{"$set": agent},
		options.Update().SetUpsert(true),
	)
	return err
}

// UpdateStatus sets the agent's status, current task and heartbeat.
func (s *MongoAgentStore) UpdateStatus(ctx context.Context, agentID, status, taskID string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"agent_id": agentID},
		bson.M{"$set": bson.M{
			"status":          status,
			"current_task_id": taskID,
			"last_heartbeat":  time.Now(),
		}},
	)
	return err
}

// FindBySkills returns agents whose skill set intersects the required skills.
func (s *MongoAgentStore) FindBySkills(ctx context.Context, skills []string, status string) ([]models.AgentRecord, error) {
	filter := bson.M{"skills": bson.M{"$in": skills}}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var agents []models.AgentRecord
	if err := cursor.All(ctx, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}
