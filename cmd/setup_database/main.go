// Command setup_database creates the collections and indexes the pipeline
// relies on. Safe to run repeatedly; index creation is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/config"
	mongodb "github.com/LizaGhosh/mongodb-lead-agent/internal/database/mongo"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, err := mongodb.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongodb.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(cfg.Databases.MongoDB.Database)
	if err := createIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	log.Println("Database setup complete")
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		"tasks": {
			{Keys: bson.D{{Key: "task_id", Value: 1}}, Options: unique},
			// Serves the eligibility scan: pending unassigned tasks in
			// priority order with creation-time tie-break.
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "assigned_agent_id", Value: 1},
				{Key: "priority", Value: -1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "task_type", Value: 1}}},
		},
		"agents": {
			{Keys: bson.D{{Key: "agent_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "skills", Value: 1}}},
		},
		"people": {
			{Keys: bson.D{{Key: "person_id", Value: 1}}, Options: unique},
		},
		"meetings": {
			{Keys: bson.D{{Key: "meeting_id", Value: 1}}, Options: unique},
			// Serves the priority-group aggregation per user.
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1},
				{Key: "priority_group", Value: 1}}},
			{Keys: bson.D{{Key: "person_id", Value: 1}}},
		},
		"user_preferences": {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
		log.Printf("Indexes ready on %s", collection)
	}
	return nil
}
