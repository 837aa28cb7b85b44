package repository

import (
	"context"
	"fmt"
	"time"

	"mastery-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type InteractionRepository struct {
	collection *mongo.Collection
}

// NewInteractionRepository creates a new learning interaction repository instance
func NewInteractionRepository(database *mongo.Database, collection string) *InteractionRepository {
	return &InteractionRepository{
		collection: database.Collection(collection),
	}
}

// InitializeIndexes creates MongoDB indexes for optimal performance
func (r *InteractionRepository) InitializeIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, models.GetInteractionIndexes())
	if err != nil {
		return fmt.Errorf("failed to create interaction indexes: %w", err)
	}
	return nil
}

// Create appends an interaction. Interactions are never updated or deleted
// (the TTL index expires them after a year).
func (r *InteractionRepository) Create(ctx context.Context, interaction *models.LearningInteraction) (*models.LearningInteraction, error) {
	if interaction.ID.IsZero() {
		interaction.ID = bson.NewObjectID()
	}
	if interaction.AttemptedAt.IsZero() {
		interaction.AttemptedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, interaction)
	if err != nil {
		return nil, fmt.Errorf("failed to create interaction: %w", err)
	}

	return interaction, nil
}

// ListSince retrieves a student's interactions for one skill since the given
// time, oldest first. The velocity computation consumes this ordering.
func (r *InteractionRepository) ListSince(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string, since time.Time) ([]*models.LearningInteraction, error) {
	filter := bson.M{
		"owner_id":     ownerID,
		"student_id":   studentID,
		"skill_key":    skillKey,
		"attempted_at": bson.M{"$gte": since},
	}

	findOpts := options.Find().SetSort(bson.M{"attempted_at": 1})

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find interactions: %w", err)
	}
	defer cursor.Close(ctx)

	var interactions []*models.LearningInteraction
	for cursor.Next(ctx) {
		var interaction models.LearningInteraction
		if err := cursor.Decode(&interaction); err != nil {
			return nil, fmt.Errorf("failed to decode interaction: %w", err)
		}
		interactions = append(interactions, &interaction)
	}

	return interactions, nil
}

// ListRecent retrieves a student's latest interactions across all skills,
// newest first, capped at limit.
func (r *InteractionRepository) ListRecent(ctx context.Context, ownerID, studentID bson.ObjectID, limit int64) ([]*models.LearningInteraction, error) {
	filter := bson.M{
		"owner_id":   ownerID,
		"student_id": studentID,
	}

	findOpts := options.Find().
		SetSort(bson.M{"attempted_at": -1}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find interactions: %w", err)
	}
	defer cursor.Close(ctx)

	var interactions []*models.LearningInteraction
	for cursor.Next(ctx) {
		var interaction models.LearningInteraction
		if err := cursor.Decode(&interaction); err != nil {
			return nil, fmt.Errorf("failed to decode interaction: %w", err)
		}
		interactions = append(interactions, &interaction)
	}

	return interactions, nil
}

// CountByStudent returns the total number of stored interactions for a student
func (r *InteractionRepository) CountByStudent(ctx context.Context, ownerID, studentID bson.ObjectID) (int64, error) {
	filter := bson.M{
		"owner_id":   ownerID,
		"student_id": studentID,
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}

	return count, nil
}
