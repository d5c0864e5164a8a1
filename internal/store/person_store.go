package store

import (
	"context"
	"errors"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrPersonNotFound is returned when a person ID does not resolve to a document.
var ErrPersonNotFound = errors.New("person not found")

// PersonStore defines persistence for contact documents. The extraction and
// categorization stages each own a disjoint set of fields; no two stages
// write the same field.
type PersonStore interface {
	Create(ctx context.Context, person *models.Person) error
	GetByID(ctx context.Context, personID string) (*models.Person, error)
	UpdateExtraction(ctx context.Context, personID string, extracted models.ExtractionOutput) error
	UpdateCategorization(ctx context.Context, personID string, cat models.Categorization) error
}

// MongoPersonStore is the MongoDB implementation of PersonStore.
type MongoPersonStore struct {
	collection *mongo.Collection
}

// NewMongoPersonStore creates a person store over the "people" collection.
func NewMongoPersonStore(db *mongo.Database) *MongoPersonStore {
	return &MongoPersonStore{collection: db.Collection("people")}
}

// Create inserts a new person document.
func (s *MongoPersonStore) Create(ctx context.Context, person *models.Person) error {
	_, err := s.collection.InsertOne(ctx, person)
	return err
}

// GetByID retrieves a person by ID.
func (s *MongoPersonStore) GetByID(ctx context.Context, personID string) (*models.Person, error) {
	var person models.Person
	err := s.collection.FindOne(ctx, bson.M{"person_id": personID}).Decode(&person)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}
	return &person, nil
}

// UpdateExtraction writes the extraction stage's fields.
func (s *MongoPersonStore) UpdateExtraction(ctx context.Context, personID string, extracted models.ExtractionOutput) error {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"person_id": personID},
		bson.M{"$set": bson.M{
			"name":      extracted.Name,
			"company":   extracted.Company,
			"job_title": extracted.JobTitle,
			"extracted_data": models.ExtractedData{
				ContactInfo: extracted.ContactInfo,
				ExtractedAt: time.Now(),
			},
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPersonNotFound
	}
	return nil
}

// UpdateCategorization writes the categorization stage's fields.
func (s *MongoPersonStore) UpdateCategorization(ctx context.Context, personID string, cat models.Categorization) error {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"person_id": personID},
		bson.M{"$set": bson.M{"categorization": cat}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPersonNotFound
	}
	return nil
}
