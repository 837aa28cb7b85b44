package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Outcome classifies the result of a single practice attempt
type Outcome string

const (
	OutcomeCorrect   Outcome = "CORRECT"
	OutcomePartial   Outcome = "PARTIAL"
	OutcomeIncorrect Outcome = "INCORRECT"
	OutcomeSkipped   Outcome = "SKIPPED"
)

// ValidOutcome reports whether s is a known outcome value.
func ValidOutcome(s string) bool {
	switch Outcome(s) {
	case OutcomeCorrect, OutcomePartial, OutcomeIncorrect, OutcomeSkipped:
		return true
	}
	return false
}

// LearningInteraction records a single learning event. Documents are
// append-only: once written they are never modified, and each one is consumed
// exactly once by the mastery computation engine.
type LearningInteraction struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID   bson.ObjectID `bson:"owner_id" json:"owner_id"`
	StudentID bson.ObjectID `bson:"student_id" json:"student_id"`
	ModuleID  bson.ObjectID `bson:"module_id" json:"module_id"`
	SkillKey  string        `bson:"skill_key" json:"skill_key"`

	Difficulty DifficultyLevel `bson:"difficulty" json:"difficulty"`
	Outcome    Outcome         `bson:"outcome" json:"outcome"`
	Score      float64         `bson:"score" json:"score"` // 0-100

	TimeTakenSeconds int    `bson:"time_taken_seconds" json:"time_taken_seconds"`
	HintsUsed        int    `bson:"hints_used" json:"hints_used"`
	QuestionType     string `bson:"question_type,omitempty" json:"question_type,omitempty"` // MCQ, SHORT_ANSWER, ...
	ConfidenceLevel  int    `bson:"confidence_level,omitempty" json:"confidence_level,omitempty"`
	Notes            string `bson:"notes,omitempty" json:"notes,omitempty"`

	// MasteryAfter snapshots the mastery level right after this interaction
	// was applied; the velocity computation reads it back.
	MasteryAfter float64 `bson:"mastery_after" json:"mastery_after"`

	AttemptedAt time.Time `bson:"attempted_at" json:"attempted_at"`
}

func (i *LearningInteraction) IsCorrect() bool {
	return i.Outcome == OutcomeCorrect
}

// MongoDB indexes for the learning_interactions collection
func GetInteractionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "student_id", Value: 1},
				{Key: "skill_key", Value: 1},
				{Key: "attempted_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "student_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "module_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "attempted_at", Value: -1},
			},
			Options: options.Index().SetExpireAfterSeconds(int32((365 * 24 * time.Hour).Seconds())),
		},
	}
}
