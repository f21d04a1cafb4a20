package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/mindhaven/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MatchEventRepository keeps the audit trail of match requests
type MatchEventRepository interface {
	Record(ctx context.Context, event *models.MatchEvent) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.MatchEvent, error)
}

// MongoMatchEventRepository implements MatchEventRepository for MongoDB
type MongoMatchEventRepository struct {
	collection *mongo.Collection
}

// NewMongoMatchEventRepository creates a new MongoMatchEventRepository
func NewMongoMatchEventRepository(db *mongo.Database) *MongoMatchEventRepository {
	return &MongoMatchEventRepository{collection: db.Collection("match_events")}
}

// Record inserts one audit event
func (r *MongoMatchEventRepository) Record(ctx context.Context, event *models.MatchEvent) error {
	event.ID = primitive.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert match event: %w", err)
	}
	return nil
}

// ListByUser returns the newest events of a user
func (r *MongoMatchEventRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]models.MatchEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find match events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.MatchEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode match events: %w", err)
	}
	return events, nil
}

// NopMatchEventRepository discards events; used when MongoDB is not configured.
type NopMatchEventRepository struct{}

func (NopMatchEventRepository) Record(context.Context, *models.MatchEvent) error { return nil }

func (NopMatchEventRepository) ListByUser(context.Context, string, int64) ([]models.MatchEvent, error) {
	return nil, nil
}
