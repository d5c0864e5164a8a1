package store

import (
	"context"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PreferenceStore defines persistence for onboarding preferences.
type PreferenceStore interface {
	// Upsert saves the user's preferences, replacing any previous answers.
	Upsert(ctx context.Context, prefs *models.UserPreferences) error
	// Get returns the user's preferences, or (nil, nil) when the user has
	// not completed onboarding.
	Get(ctx context.Context, userID string) (*models.UserPreferences, error)
	// Delete removes the user's preferences and reports how many documents
	// were deleted.
	Delete(ctx context.Context, userID string) (int64, error)
}

// MongoPreferenceStore is the MongoDB implementation of PreferenceStore.
type MongoPreferenceStore struct {
	collection *mongo.Collection
}

// NewMongoPreferenceStore creates a store over the "user_preferences" collection.
func NewMongoPreferenceStore(db *mongo.Database) *MongoPreferenceStore {
	return &MongoPreferenceStore{collection: db.Collection("user_preferences")}
}

// Upsert saves or replaces the user's preferences.
func (s *MongoPreferenceStore) Upsert(ctx context.Context, prefs *models.UserPreferences) error {
	prefs.UpdatedAt = time.Now()
	if prefs.CreatedAt.IsZero() {
		prefs.CreatedAt = prefs.UpdatedAt
	}
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"user_id": prefs.UserID},
		bson.M{"$set": prefs},
		options.Update().SetUpsert(true),
	)
	return err
}

// Get retrieves the user's preferences.
func (s *MongoPreferenceStore) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	var prefs models.UserPreferences
	err := s.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prefs)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &prefs, nil
}

// Delete removes the user's preferences.
func (s *MongoPreferenceStore) Delete(ctx context.Context, userID string) (int64, error) {
	res, err := s.collection.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
