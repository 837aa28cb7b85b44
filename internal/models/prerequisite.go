package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SkillPrerequisite is a directed edge "skill_key requires
// prerequisite_skill_key". Raw edge data is not guaranteed acyclic; readers
// must tolerate cycles.
type SkillPrerequisite struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID   bson.ObjectID `bson:"owner_id" json:"owner_id"`
	SubjectID bson.ObjectID `bson:"subject_id" json:"subject_id"`

	SkillKey  string `bson:"skill_key" json:"skill_key"` // the dependent skill
	SkillName string `bson:"skill_name" json:"skill_name"`

	PrerequisiteSkillKey  string `bson:"prerequisite_skill_key" json:"prerequisite_skill_key"`
	PrerequisiteSkillName string `bson:"prerequisite_skill_name" json:"prerequisite_skill_name"`

	MinimumMasteryRequired float64 `bson:"minimum_mastery_required" json:"minimum_mastery_required"` // 0-100, default 60
	Weight                 float64 `bson:"weight" json:"weight"`                                     // importance, 0-1
	IsStrict               bool    `bson:"is_strict" json:"is_strict"`                               // strict edges block, advisory edges don't
	Description            string  `bson:"description,omitempty" json:"description,omitempty"`

	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsMasteryMet reports whether the given mastery satisfies this edge.
func (p *SkillPrerequisite) IsMasteryMet(currentMastery float64) bool {
	return currentMastery >= p.MinimumMasteryRequired
}

func (p *SkillPrerequisite) IsHighPriority() bool {
	return p.Weight >= 0.8
}

func (p *SkillPrerequisite) IsMediumPriority() bool {
	return p.Weight >= 0.5 && p.Weight < 0.8
}

// PriorityLevel returns the display priority derived from the edge weight.
func (p *SkillPrerequisite) PriorityLevel() string {
	if p.IsHighPriority() {
		return "High"
	}
	if p.IsMediumPriority() {
		return "Medium"
	}
	return "Low"
}

// FormattedRequirement renders the edge as a human-readable requirement.
func (p *SkillPrerequisite) FormattedRequirement() string {
	return fmt.Sprintf("Requires %.0f%% mastery in %s", p.MinimumMasteryRequired, p.PrerequisiteSkillName)
}

// MongoDB indexes for the skill_prerequisites collection
func GetPrerequisiteIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "skill_key", Value: 1},
				{Key: "prerequisite_skill_key", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "subject_id", Value: 1},
				{Key: "is_active", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "skill_key", Value: 1},
				{Key: "is_active", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "prerequisite_skill_key", Value: 1},
			},
		},
	}
}
