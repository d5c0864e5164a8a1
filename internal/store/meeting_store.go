package store

import (
	"context"
	"errors"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrMeetingNotFound is returned when a meeting ID does not resolve to a document.
var ErrMeetingNotFound = errors.New("meeting not found")

// GroupEntry is one meeting row in the priority-grouped listing.
type GroupEntry struct {
	Name             string    `bson:"name" json:"name"`
	Company          string    `bson:"company" json:"company"`
	Designation      string    `bson:"designation" json:"designation"`
	Summary          string    `bson:"summary" json:"summary"`
	MeetingDate      time.Time `bson:"meeting_date" json:"meeting_date"`
	MeetingTimestamp time.Time `bson:"meeting_timestamp" json:"meeting_timestamp"`
	MeetingID        string    `bson:"meeting_id" json:"meeting_id"`
}

// MeetingStore defines persistence for meeting documents.
type MeetingStore interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	GetByID(ctx context.Context, meetingID string) (*models.Meeting, error)
	UpdateSummary(ctx context.Context, meetingID string, summary models.Summary) error
	// SetPriority records the final priority tier and marks the meeting completed.
	SetPriority(ctx context.Context, meetingID, priorityGroup string) error
	// GroupsByPriority returns the user's completed meetings bucketed P0/P1/P2,
	// each joined with its person document.
	GroupsByPriority(ctx context.Context, userID string) (map[string][]GroupEntry, error)
}

// MongoMeetingStore is the MongoDB implementation of MeetingStore.
type MongoMeetingStore struct {
	collection *mongo.Collection
}

// NewMongoMeetingStore creates a meeting store over the "meetings" collection.
func NewMongoMeetingStore(db *mongo.Database) *MongoMeetingStore {
	return &MongoMeetingStore{collection: db.Collection("meetings")}
}

// Create inserts a new meeting document.
func (s *MongoMeetingStore) Create(ctx context.Context, meeting *models.Meeting) error {
	_, err := s.collection.InsertOne(ctx, meeting)
	return err
}

// GetByID retrieves a meeting by ID.
func (s *MongoMeetingStore) GetByID(ctx context.Context, meetingID string) (*models.Meeting, error) {
	var meeting models.Meeting
	err := s.collection.FindOne(ctx, bson.M{"meeting_id": meetingID}).Decode(&meeting)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}
	return &meeting, nil
}

// UpdateSummary writes the summarization stage's fields.
func (s *MongoMeetingStore) UpdateSummary(ctx context.Context, meetingID string, summary models.Summary) error {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"meeting_id": meetingID},
		bson.M{"$set": bson.M{"summary": summary}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

// SetPriority writes the categorization stage's fields on the meeting.
func (s *MongoMeetingStore) SetPriority(ctx context.Context, meetingID, priorityGroup string) error {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"meeting_id": meetingID},
		bson.M{"$set": bson.M{
			"priority_group": priorityGroup,
			"status":         models.MeetingStatusCompleted,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

// GroupsByPriority aggregates completed meetings into P0/P1/P2 buckets with
// the person document joined in.
func (s *MongoMeetingStore) GroupsByPriority(ctx context.Context, userID string) (map[string][]GroupEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":        userID,
			"priority_group": bson.M{"$in": []string{models.PriorityP0, models.PriorityP1, models.PriorityP2}},
			"status":         models.MeetingStatusCompleted,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "people",
			"localField":   "person_id",
			"foreignField": "person_id",
			"as":           "person",
		}}},
		{{Key: "$unwind", Value: "$person"}},
		{{Key: "$group", Value: bson.M{
			"_id": "$priority_group",
			"meetings": bson.M{"$push": bson.M{
				"name":              "$person.name",
				"company":           "$person.company",
				"designation":       "$person.job_title",
				"summary":           "$summary.text",
				"meeting_date":      "$date",
				"meeting_timestamp": "$created_at",
				"meeting_id":        "$meeting_id",
			}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	groups := map[string][]GroupEntry{
		models.PriorityP0: {},
		models.PriorityP1: {},
		models.PriorityP2: {},
	}
	for cursor.Next(ctx) {
		var row struct {
			Priority string       `bson:"_id"`
			Meetings []GroupEntry `bson:"meetings"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		if _, ok := groups[row.Priority]; ok {
			groups[row.Priority] = row.Meetings
		}
	}
	return groups, cursor.Err()
}
