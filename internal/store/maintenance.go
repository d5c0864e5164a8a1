package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Maintenance groups administrative operations over the whole database.
type Maintenance interface {
	// ClearData deletes all people, meetings and tasks and returns the
	// deletion count per collection. Agent registrations and user
	// preferences are deliberately kept.
	ClearData(ctx context.Context) (map[string]int64, error)
}

// MongoMaintenance is the MongoDB implementation of Maintenance.
type MongoMaintenance struct {
	db *mongo.Database
}

// NewMongoMaintenance creates a maintenance handle over the database.
func NewMongoMaintenance(db *mongo.Database) *MongoMaintenance {
	return &MongoMaintenance{db: db}
}

// ClearData wipes the pipeline's data collections.
func (m *MongoMaintenance) ClearData(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, name := range []string{"people", "meetings", "tasks"} {
		res, err := m.db.Collection(name).DeleteMany(ctx, bson.M{})
		if err != nil {
			return nil, err
		}
		counts[name] = res.DeletedCount
	}
	return counts, nil
}
