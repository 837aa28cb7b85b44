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

type ModuleRepository struct {
	collection *mongo.Collection
}

// NewModuleRepository creates a new learning module repository instance
func NewModuleRepository(database *mongo.Database, collection string) *ModuleRepository {
	return &ModuleRepository{
		collection: database.Collection(collection),
	}
}

// InitializeIndexes creates MongoDB indexes for optimal performance
func (r *ModuleRepository) InitializeIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, models.GetLearningModuleIndexes())
	if err != nil {
		return fmt.Errorf("failed to create module indexes: %w", err)
	}
	return nil
}

// GetByID retrieves a module by its id within an owner's scope
func (r *ModuleRepository) GetByID(ctx context.Context, ownerID, moduleID bson.ObjectID) (*models.LearningModule, error) {
	filter := bson.M{
		"_id":       moduleID,
		"owner_id":  ownerID,
		"is_active": true,
	}

	var module models.LearningModule
	err := r.collection.FindOne(ctx, filter).Decode(&module)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	return &module, nil
}

// Upsert stores the module projection keyed by id. The event consumer calls
// this when the curriculum service announces module changes.
func (r *ModuleRepository) Upsert(ctx context.Context, module *models.LearningModule) error {
	if module.ID.IsZero() {
		module.ID = bson.NewObjectID()
	}

	now := time.Now()
	module.UpdatedAt = now
	if module.CreatedAt.IsZero() {
		module.CreatedAt = now
	}
	module.IsActive = true

	filter := bson.M{"_id": module.ID}
	update := bson.M{"$set": module}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert module: %w", err)
	}

	return nil
}
