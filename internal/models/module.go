package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// LearningModule is the projection of a learning unit this service needs:
// identity plus the declared gating skills. Content itself lives in the
// curriculum service.
type LearningModule struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID   bson.ObjectID `bson:"owner_id" json:"owner_id"`
	SubjectID bson.ObjectID `bson:"subject_id" json:"subject_id"`

	Title    string `bson:"title" json:"title"`
	SkillKey string `bson:"skill_key,omitempty" json:"skill_key,omitempty"`

	// Prerequisites is a comma-delimited list of gating skill keys,
	// e.g. "algebra_basics, fractions". Malformed (empty) entries are
	// skipped, not fatal.
	Prerequisites string `bson:"prerequisites,omitempty" json:"prerequisites,omitempty"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PrerequisiteSkillKeys parses the delimited prerequisite declaration,
// trimming whitespace and dropping empty entries.
func (m *LearningModule) PrerequisiteSkillKeys() []string {
	if m.Prerequisites == "" {
		return nil
	}
	parts := strings.Split(m.Prerequisites, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if key := strings.TrimSpace(p); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// MongoDB indexes for the learning_modules collection
func GetLearningModuleIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "subject_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "skill_key", Value: 1},
			},
			Options: options.Index().SetSparse(true),
		},
	}
}
