package repository

import (
	"context"
	"fmt"
	"time"

	"mastery-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type PrerequisiteRepository struct {
	collection *mongo.Collection
}

// NewPrerequisiteRepository creates a new skill prerequisite repository instance
func NewPrerequisiteRepository(database *mongo.Database, collection string) *PrerequisiteRepository {
	return &PrerequisiteRepository{
		collection: database.Collection(collection),
	}
}

// InitializeIndexes creates MongoDB indexes for optimal performance
func (r *PrerequisiteRepository) InitializeIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, models.GetPrerequisiteIndexes())
	if err != nil {
		return fmt.Errorf("failed to create prerequisite indexes: %w", err)
	}
	return nil
}

// Create inserts a new prerequisite edge. The unique index rejects duplicate
// (owner, skill, prerequisite) edges.
func (r *PrerequisiteRepository) Create(ctx context.Context, edge *models.SkillPrerequisite) (*models.SkillPrerequisite, error) {
	if edge.ID.IsZero() {
		edge.ID = bson.NewObjectID()
	}

	now := time.Now()
	edge.CreatedAt = now
	edge.UpdatedAt = now
	edge.IsActive = true

	_, err := r.collection.InsertOne(ctx, edge)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("prerequisite edge already exists")
		}
		return nil, fmt.Errorf("failed to create prerequisite: %w", err)
	}

	return edge, nil
}

// GetBySkill retrieves the active edges a skill depends on
func (r *PrerequisiteRepository) GetBySkill(ctx context.Context, ownerID bson.ObjectID, skillKey string) ([]*models.SkillPrerequisite, error) {
	filter := bson.M{
		"owner_id":  ownerID,
		"skill_key": skillKey,
		"is_active": true,
	}

	return r.findAll(ctx, filter)
}

// GetDependents retrieves the active edges that require the given skill
func (r *PrerequisiteRepository) GetDependents(ctx context.Context, ownerID bson.ObjectID, prerequisiteSkillKey string) ([]*models.SkillPrerequisite, error) {
	filter := bson.M{
		"owner_id":               ownerID,
		"prerequisite_skill_key": prerequisiteSkillKey,
		"is_active":              true,
	}

	return r.findAll(ctx, filter)
}

// GetBySubject retrieves all active edges of a subject's skill graph
func (r *PrerequisiteRepository) GetBySubject(ctx context.Context, ownerID, subjectID bson.ObjectID) ([]*models.SkillPrerequisite, error) {
	filter := bson.M{
		"owner_id":   ownerID,
		"subject_id": subjectID,
		"is_active":  true,
	}

	return r.findAll(ctx, filter)
}

// GetByOwner retrieves every active edge of an owner, across all subjects
func (r *PrerequisiteRepository) GetByOwner(ctx context.Context, ownerID bson.ObjectID) ([]*models.SkillPrerequisite, error) {
	filter := bson.M{
		"owner_id":  ownerID,
		"is_active": true,
	}

	return r.findAll(ctx, filter)
}

// Deactivate soft-deletes an edge; the graph readers skip inactive edges.
func (r *PrerequisiteRepository) Deactivate(ctx context.Context, ownerID bson.ObjectID, skillKey, prerequisiteSkillKey string) error {
	filter := bson.M{
		"owner_id":               ownerID,
		"skill_key":              skillKey,
		"prerequisite_skill_key": prerequisiteSkillKey,
	}

	update := bson.M{
		"$set": bson.M{
			"is_active":  false,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to deactivate prerequisite: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("prerequisite edge not found")
	}

	return nil
}

func (r *PrerequisiteRepository) findAll(ctx context.Context, filter bson.M) ([]*models.SkillPrerequisite, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find prerequisites: %w", err)
	}
	defer cursor.Close(ctx)

	var edges []*models.SkillPrerequisite
	for cursor.Next(ctx) {
		var edge models.SkillPrerequisite
		if err := cursor.Decode(&edge); err != nil {
			return nil, fmt.Errorf("failed to decode prerequisite: %w", err)
		}
		edges = append(edges, &edge)
	}

	return edges, nil
}
