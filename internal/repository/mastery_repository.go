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

// ErrVersionConflict is returned when a version-guarded update matched no
// document, meaning another writer got there first.
var ErrVersionConflict = fmt.Errorf("mastery record version conflict")

type MasteryRepository struct {
	collection *mongo.Collection
}

// NewMasteryRepository creates a new mastery record repository instance
func NewMasteryRepository(database *mongo.Database, collection string) *MasteryRepository {
	return &MasteryRepository{
		collection: database.Collection(collection),
	}
}

// InitializeIndexes creates MongoDB indexes for optimal performance
func (r *MasteryRepository) InitializeIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, models.GetMasteryRecordIndexes())
	if err != nil {
		return fmt.Errorf("failed to create mastery record indexes: %w", err)
	}
	return nil
}

// Create inserts a new mastery record
func (r *MasteryRepository) Create(ctx context.Context, record *models.MasteryRecord) (*models.MasteryRecord, error) {
	if record.ID.IsZero() {
		record.ID = bson.NewObjectID()
	}

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.IsActive = true
	record.Version = 1

	_, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create mastery record: %w", err)
	}

	return record, nil
}

// GetByStudentAndSkill retrieves the active record for one (student, skill)
func (r *MasteryRepository) GetByStudentAndSkill(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string) (*models.MasteryRecord, error) {
	filter := bson.M{
		"owner_id":   ownerID,
		"student_id": studentID,
		"skill_key":  skillKey,
		"is_active":  true,
	}

	var record models.MasteryRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mastery record: %w", err)
	}

	return &record, nil
}

// GetByStudent retrieves all active records for a student, optionally scoped
// to a subject, ordered by mastery level descending.
func (r *MasteryRepository) GetByStudent(ctx context.Context, ownerID, studentID bson.ObjectID, subjectID *bson.ObjectID) ([]*models.MasteryRecord, error) {
	filter := bson.M{
		"owner_id":   ownerID,
		"student_id": studentID,
		"is_active":  true,
	}
	if subjectID != nil {
		filter["subject_id"] = *subjectID
	}

	findOpts := options.Find().SetSort(bson.M{"mastery_level": -1})

	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to find mastery records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.MasteryRecord
	for cursor.Next(ctx) {
		var record models.MasteryRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode mastery record: %w", err)
		}
		records = append(records, &record)
	}

	return records, nil
}

// GetDueForReview retrieves a student's records whose review date has passed,
// optionally scoped to a subject, most overdue first.
func (r *MasteryRepository) GetDueForReview(ctx context.Context, ownerID, studentID bson.ObjectID, subjectID *bson.ObjectID, now time.Time) ([]*models.MasteryRecord, error) {
	filter := bson.M{
		"owner_id":       ownerID,
		"student_id":     studentID,
		"is_active":      true,
		"next_review_at": bson.M{"$lte": now},
	}
	if subjectID != nil {
		filter["subject_id"] = *subjectID
	}

	return r.findAll(ctx, filter, options.Find().SetSort(bson.M{"next_review_at": 1}))
}

// FindLowMastery retrieves a student's records below a mastery threshold
func (r *MasteryRepository) FindLowMastery(ctx context.Context, ownerID, studentID bson.ObjectID, threshold float64) ([]*models.MasteryRecord, error) {
	filter := bson.M{
		"owner_id":      ownerID,
		"student_id":    studentID,
		"is_active":     true,
		"mastery_level": bson.M{"$lt": threshold},
	}

	return r.findAll(ctx, filter, options.Find().SetSort(bson.M{"mastery_level": 1}))
}

// FindHighMastery retrieves a student's records at or above a threshold
func (r *MasteryRepository) FindHighMastery(ctx context.Context, ownerID, studentID bson.ObjectID, threshold float64) ([]*models.MasteryRecord, error) {
	filter := bson.M{
		"owner_id":      ownerID,
		"student_id":    studentID,
		"is_active":     true,
		"mastery_level": bson.M{"$gte": threshold},
	}

	return r.findAll(ctx, filter, options.Find().SetSort(bson.M{"mastery_level": -1}))
}

// FindStruggling retrieves records with a consecutive-incorrect streak at or
// above the given count
func (r *MasteryRepository) FindStruggling(ctx context.Context, ownerID, studentID bson.ObjectID, streak int) ([]*models.MasteryRecord, error) {
	filter := bson.M{
		"owner_id":              ownerID,
		"student_id":            studentID,
		"is_active":             true,
		"consecutive_incorrect": bson.M{"$gte": streak},
	}

	return r.findAll(ctx, filter, nil)
}

// FindInactiveSince retrieves records across all students whose last
// practice predates the cutoff. Used by the decay sweep.
func (r *MasteryRepository) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]*models.MasteryRecord, error) {
	filter := bson.M{
		"is_active":         true,
		"last_practiced_at": bson.M{"$lt": cutoff},
	}

	return r.findAll(ctx, filter, nil)
}

// UpdateWithVersion replaces a record iff its stored version still matches
// the version the caller read. The version is incremented on success;
// ErrVersionConflict signals a concurrent writer won.
func (r *MasteryRepository) UpdateWithVersion(ctx context.Context, record *models.MasteryRecord) (*models.MasteryRecord, error) {
	readVersion := record.Version
	record.Version = readVersion + 1
	record.UpdatedAt = time.Now()

	filter := bson.M{
		"_id":     record.ID,
		"version": readVersion,
	}

	result, err := r.collection.ReplaceOne(ctx, filter, record)
	if err != nil {
		record.Version = readVersion
		return nil, fmt.Errorf("failed to update mastery record: %w", err)
	}
	if result.MatchedCount == 0 {
		record.Version = readVersion
		return nil, ErrVersionConflict
	}

	return record, nil
}

// Deactivate soft-deletes a record; documents are never hard-deleted.
func (r *MasteryRepository) Deactivate(ctx context.Context, ownerID, studentID bson.ObjectID, skillKey string) error {
	filter := bson.M{
		"owner_id":   ownerID,
		"student_id": studentID,
		"skill_key":  skillKey,
	}

	update := bson.M{
		"$set": bson.M{
			"is_active":  false,
			"updated_at": time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to deactivate mastery record: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("mastery record not found")
	}

	return nil
}

// GetStatistics aggregates a student's mastery distribution
func (r *MasteryRepository) GetStatistics(ctx context.Context, ownerID, studentID bson.ObjectID) (*models.LearningStatistics, error) {
	match := bson.M{
		"owner_id":   ownerID,
		"student_id": studentID,
		"is_active":  true,
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":         nil,
			"avg_mastery": bson.M{"$avg": "$mastery_level"},
			"total":       bson.M{"$sum": 1},
			"high": bson.M{"$sum": bson.M{
				"$cond": []any{bson.M{"$gte": []any{"$mastery_level", 80.0}}, 1, 0},
			}},
			"medium": bson.M{"$sum": bson.M{
				"$cond": []any{bson.M{"$and": []bson.M{
					{"$gte": []any{"$mastery_level", 50.0}},
					{"$lt": []any{"$mastery_level", 80.0}},
				}}, 1, 0},
			}},
			"low": bson.M{"$sum": bson.M{
				"$cond": []any{bson.M{"$lt": []any{"$mastery_level", 50.0}}, 1, 0},
			}},
		}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate mastery statistics: %w", err)
	}
	defer cursor.Close(ctx)

	stats := &models.LearningStatistics{}
	if cursor.Next(ctx) {
		var row struct {
			AvgMastery float64 `bson:"avg_mastery"`
			Total      int     `bson:"total"`
			High       int     `bson:"high"`
			Medium     int     `bson:"medium"`
			Low        int     `bson:"low"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode mastery statistics: %w", err)
		}
		stats.AvgMastery = row.AvgMastery
		stats.TotalSkills = row.Total
		stats.HighMasterySkills = row.High
		stats.MediumMasterySkills = row.Medium
		stats.LowMasterySkills = row.Low
	}

	return stats, nil
}

// GetVelocityTrends aggregates the velocity distribution across a student's
// active records
func (r *MasteryRepository) GetVelocityTrends(ctx context.Context, ownerID, studentID bson.ObjectID) (*models.VelocityTrends, error) {
	match := bson.M{
		"owner_id":   ownerID,
		"student_id": studentID,
		"is_active":  true,
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":          nil,
			"avg_velocity": bson.M{"$avg": "$velocity_score"},
			"max_velocity": bson.M{"$max": "$velocity_score"},
			"min_velocity": bson.M{"$min": "$velocity_score"},
			"skill_count":  bson.M{"$sum": 1},
		}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate velocity trends: %w", err)
	}
	defer cursor.Close(ctx)

	trends := &models.VelocityTrends{}
	if cursor.Next(ctx) {
		var row struct {
			AvgVelocity float64 `bson:"avg_velocity"`
			MaxVelocity float64 `bson:"max_velocity"`
			MinVelocity float64 `bson:"min_velocity"`
			SkillCount  int     `bson:"skill_count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode velocity trends: %w", err)
		}
		trends.AvgVelocity = row.AvgVelocity
		trends.MaxVelocity = row.MaxVelocity
		trends.MinVelocity = row.MinVelocity
		trends.SkillCount = row.SkillCount
	}

	return trends, nil
}

func (r *MasteryRepository) findAll(ctx context.Context, filter bson.M, findOpts *options.FindOptionsBuilder) ([]*models.MasteryRecord, error) {
	var cursor *mongo.Cursor
	var err error
	if findOpts != nil {
		cursor, err = r.collection.Find(ctx, filter, findOpts)
	} else {
		cursor, err = r.collection.Find(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mastery records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.MasteryRecord
	for cursor.Next(ctx) {
		var record models.MasteryRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode mastery record: %w", err)
		}
		records = append(records, &record)
	}

	return records, nil
}
